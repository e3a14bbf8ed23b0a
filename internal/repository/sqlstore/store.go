// Package sqlstore implements repository.Store on database/sql.  The
// same repositories serve MySQL (go-sql-driver/mysql) and PostgreSQL
// (pgx stdlib); queries are written with '?' placeholders and rebound
// for PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// Driver names accepted by New.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories can
// run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dialect captures the few differences between MySQL and PostgreSQL.
type dialect struct {
	name string
}

// rebind rewrites '?' placeholders to $1, $2, ... for PostgreSQL.
func (d dialect) rebind(q string) string {
	if d.name != DriverPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// isDuplicate reports whether err is a unique constraint violation.
func (d dialect) isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// conn bundles a querier with its dialect; every repository embeds it.
type conn struct {
	q querier
	d dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// affected returns whether an UPDATE/DELETE matched at least one row.
// MySQL connections must be opened with clientFoundRows=true so that
// rows matched but left unchanged still count.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// repos is the repository.Repos implementation bound to one conn.
type repos struct {
	c conn
}

func (r repos) Seats() repository.SeatRepo { return &SeatRepo{conn: r.c} }
func (r repos) Bookings() repository.BookingRepo { return &BookingRepo{conn: r.c} }
func (r repos) PickupPoints() repository.PickupPointRepo { return &PickupPointRepo{conn: r.c} }
func (r repos) Destinations() repository.DestinationRepo { return &DestinationRepo{conn: r.c} }
func (r repos) Activities() repository.ActivityRepo { return &ActivityRepo{conn: r.c} }
func (r repos) Admins() repository.AdminRepo { return &AdminRepo{conn: r.c} }
func (r repos) Tokens() repository.TokenRepo { return &TokenRepo{conn: r.c} }

// Store is a repository.Store backed by a *sql.DB.
type Store struct {
	repos
	db *sql.DB
}

// New wraps an open database handle.  driver must be DriverMySQL or
// DriverPostgres.
func New(db *sql.DB, driver string) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	switch driver {
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	d := dialect{name: driver}
	return &Store{repos: repos{c: conn{q: db, d: d}}, db: db}, nil
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction.  The transaction is rolled back
// when fn returns an error or panics and committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err = fn(repos{c: conn{q: tx, d: s.c.d}}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying pool.
func (s *Store) Close() error { return s.db.Close() }
