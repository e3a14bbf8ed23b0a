package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := New(db, driver)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, mock
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	if _, err := New(db, "sqlite"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE seats SET state = ? WHERE seat_number = ? AND state IN (?, ?)`
	if got := (dialect{name: DriverMySQL}).rebind(q); got != q {
		t.Fatalf("mysql rebind changed query: %s", got)
	}
	want := `UPDATE seats SET state = $1 WHERE seat_number = $2 AND state IN ($3, $4)`
	if got := (dialect{name: DriverPostgres}).rebind(q); got != want {
		t.Fatalf("postgres rebind = %s, want %s", got, want)
	}
}

func TestIsDuplicate(t *testing.T) {
	d := dialect{name: DriverMySQL}
	if !d.isDuplicate(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("mysql 1062 should be a duplicate")
	}
	if d.isDuplicate(&mysql.MySQLError{Number: 1452}) {
		t.Fatal("mysql 1452 is not a duplicate")
	}
	if !d.isDuplicate(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("postgres 23505 should be a duplicate")
	}
	if d.isDuplicate(errors.New("boom")) {
		t.Fatal("plain error is not a duplicate")
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seats SET state = \\?, booking_id = \\?").
		WithArgs("OCCUPIED", "b-1", sqlmock.AnyArg(), 3, "AVAILABLE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx repository.Repos) error {
		ok, err := tx.Seats().Occupy(context.Background(), 3, "b-1", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			t.Error("expected occupy to match a row")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectRollback()

	sentinel := errors.New("abort")
	err := s.WithTx(context.Background(), func(repository.Repos) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeatOccupyLostRace(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectExec("UPDATE seats SET state").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Seats().Occupy(context.Background(), 7, "b-2", time.Now())
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if ok {
		t.Fatal("occupy should report no match when the seat is taken")
	}
}

func TestSeatGet(t *testing.T) {
	s, mock := newMockStore(t, DriverPostgres)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT seat_number, state, booking_id, updated_at FROM seats WHERE seat_number = \\$1").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "state", "booking_id", "updated_at"}).
			AddRow(4, "OCCUPIED", "b-9", now))
	mock.ExpectQuery("FROM seats WHERE seat_number = \\$1").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "state", "booking_id", "updated_at"}))

	seat, err := s.Seats().Get(context.Background(), 4)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if seat.State != model.SeatOccupied || seat.BookingID == nil || *seat.BookingID != "b-9" {
		t.Fatalf("unexpected seat: %+v", seat)
	}
	if _, err := s.Seats().Get(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing seat err = %v, want ErrNotFound", err)
	}
}

func TestSeatCreateRange(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectExec("INSERT INTO seats \\(seat_number, state, booking_id, updated_at\\) VALUES \\(\\?, \\?, NULL, \\?\\),\\(\\?, \\?, NULL, \\?\\),\\(\\?, \\?, NULL, \\?\\)").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := s.Seats().CreateRange(context.Background(), 3, time.Now()); err != nil {
		t.Fatalf("create range: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSeatSetStateClearsReference(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectExec("UPDATE seats SET state = \\?, booking_id = NULL, updated_at = \\? WHERE seat_number = \\? AND state IN \\(\\?\\)").
		WithArgs("BLOCKED", sqlmock.AnyArg(), 5, "AVAILABLE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.Seats().SetState(context.Background(), 5, []model.SeatState{model.SeatAvailable}, model.SeatBlocked, time.Now())
	if err != nil || !ok {
		t.Fatalf("set state = %v, %v", ok, err)
	}
}

func TestSeatReleaseGuardsObservedState(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectQuery("SELECT seat_number, state, booking_id, updated_at FROM seats WHERE seat_number = \\? FOR UPDATE").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "state", "booking_id", "updated_at"}).
			AddRow(5, "OCCUPIED", "b-1", time.Now()))
	mock.ExpectExec("UPDATE seats SET state = \\?, booking_id = NULL, updated_at = \\?\\s+WHERE seat_number = \\? AND state = \\? AND booking_id = \\?").
		WithArgs("AVAILABLE", sqlmock.AnyArg(), 5, "OCCUPIED", "b-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE seats SET state = \\?, booking_id = NULL, updated_at = \\?\\s+WHERE seat_number = \\? AND state = \\? AND booking_id IS NULL").
		WithArgs("AVAILABLE", sqlmock.AnyArg(), 6, "BLOCKED").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	seat, err := s.Seats().GetForUpdate(ctx, 5)
	if err != nil {
		t.Fatalf("get for update: %v", err)
	}
	ok, err := s.Seats().Release(ctx, 5, seat.State, seat.BookingID, time.Now())
	if err != nil || ok {
		t.Fatalf("release of a re-occupied seat = %v, %v; want no match", ok, err)
	}
	ok, err = s.Seats().Release(ctx, 6, model.SeatBlocked, nil, time.Now())
	if err != nil || !ok {
		t.Fatalf("release blocked seat = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceWritesMapUniqueViolations(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectExec("INSERT INTO pickup_points").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'apowa' for key 'uq_pickup_points_active_name'"})
	err := s.PickupPoints().Insert(context.Background(), model.PickupPoint{ID: "p-2", Name: "Apowa", Active: true})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("pickup insert err = %v, want ErrDuplicate", err)
	}

	pg, pgMock := newMockStore(t, DriverPostgres)
	pgMock.ExpectExec("UPDATE destinations SET name = \\$1").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err = pg.Destinations().Update(context.Background(), model.Destination{ID: "d-2", Name: "Accra", Active: true})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("destination update err = %v, want ErrDuplicate", err)
	}
}

func TestBookingInsertDuplicate(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := s.Bookings().Insert(context.Background(), model.Booking{ID: "b-1", Status: model.BookingPending})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

var bookingCols = []string{
	"id", "full_name", "passenger_class", "email", "phone",
	"contact_person_name", "contact_person_phone",
	"pickup_point_id", "pickup_point_name", "destination_id", "destination_name",
	"bus_type", "referral", "departure_date", "seat_number", "amount_cents",
	"status", "payment_status", "payment_ref", "created_at", "updated_at",
}

func TestBookingListByStatusPostgres(t *testing.T) {
	s, mock := newMockStore(t, DriverPostgres)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dep := time.Date(2025, 3, 20, 0, 0, 0, 0, time.FixedZone("GMT+1", 3600))
	mock.ExpectQuery("FROM bookings WHERE status = \\$1 ORDER BY created_at DESC, id DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs("PENDING", 10, 20).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow("b-1", "Ama Mensah", "Level 200", "ama@example.com", "0240000000",
				"Kofi", "0200000000", "p-1", "Apowa", "d-1", "Accra",
				"", "", dep, 12, int64(4000), "PENDING", "PENDING", nil, now, now))

	status := model.BookingPending
	list, err := s.Bookings().List(context.Background(), repository.BookingFilter{Status: &status, Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	b := list[0]
	if b.SeatNumber != 12 || b.AmountCents != 4000 || b.PaymentRef != nil {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if want := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC); !b.DepartureDate.Equal(want) {
		t.Fatalf("departure = %v, want %v", b.DepartureDate, want)
	}
}

func TestBookingGetForUpdateLocks(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := s.Bookings().GetForUpdate(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestActivityMetadataStoredAsJSON(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO admin_activities").
		WithArgs("a-1", "admin-1", "SEAT_TOGGLED", "Blocked seat 3", `{"seat_number":{"number":3}}`, created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM admin_activities ORDER BY created_at DESC, id DESC LIMIT \\? OFFSET \\?").
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "action", "description", "metadata", "created_at"}).
			AddRow("a-1", "admin-1", "SEAT_TOGGLED", "Blocked seat 3", `{"seat_number":{"number":3}}`, created))

	a := model.Activity{
		ID:          "a-1",
		AdminID:     "admin-1",
		Action:      model.ActionSeatToggled,
		Description: "Blocked seat 3",
		Metadata:    model.Metadata{"seat_number": model.Int(3)},
		CreatedAt:   created,
	}
	if err := s.Activities().Insert(context.Background(), a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	list, err := s.Activities().List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Metadata["seat_number"].Num != 3 {
		t.Fatalf("unexpected activities: %+v", list)
	}
}

func TestTokenValidateRefresh(t *testing.T) {
	s, mock := newMockStore(t, DriverMySQL)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"admin_id", "expires_at", "revoked_at"}
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash = \\?").
		WithArgs("live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("admin-1", now.Add(time.Hour), nil))
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash = \\?").
		WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("admin-1", now.Add(time.Hour), now.Add(-time.Minute)))
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash = \\?").
		WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("admin-1", now.Add(-time.Hour), nil))

	id, err := s.Tokens().ValidateRefresh(context.Background(), "live", now)
	if err != nil || id != "admin-1" {
		t.Fatalf("live token = %q, %v", id, err)
	}
	for _, h := range []string{"revoked", "expired"} {
		if _, err := s.Tokens().ValidateRefresh(context.Background(), h, now); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("%s token err = %v, want ErrNotFound", h, err)
		}
	}
}
