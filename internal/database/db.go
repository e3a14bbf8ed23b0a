package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Supported drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options describes how to reach the database.
type Options struct {
	Driver   string // mysql | postgres
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string // postgres only
}

// Open connects to MySQL or PostgreSQL and verifies the connection.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	switch o.Driver {
	case DriverMySQL:
		return openMySQL(ctx, o)
	case DriverPostgres:
		return openPostgres(ctx, o)
	}
	return nil, fmt.Errorf("unsupported database driver %q", o.Driver)
}

// MySQLDSN builds the go-sql-driver DSN.  clientFoundRows makes
// RowsAffected count matched rows, which the conditional seat updates
// rely on; parseTime and loc=UTC turn DATETIME into UTC time.Time.
func MySQLDSN(o Options) string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = o.Host + ":" + o.Port
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.MultiStatements = false
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func openMySQL(ctx context.Context, o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", MySQLDSN(o))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	return db, nil
}

// PostgresDSN builds a libpq-style connection string.
func PostgresDSN(o Options) string {
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		o.Host, o.Port, o.User, o.Password, o.Name, sslMode)
}

// openPostgres creates a pgx pool and exposes it through database/sql.
// It retries a few times to ride out a database container that is
// still starting.
func openPostgres(ctx context.Context, o Options) (*sql.DB, error) {
	poolCfg, err := pgxpool.ParseConfig(PostgresDSN(o))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		slog.Warn("postgres connect failed, retrying", "attempt", attempt, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return stdlib.OpenDBFromPool(pool), nil
}
