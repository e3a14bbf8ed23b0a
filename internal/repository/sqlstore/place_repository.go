package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// PickupPointRepo provides methods to work with the pickup_points table.
type PickupPointRepo struct {
	conn
}

const pickupColumns = `id, name, active, created_at, updated_at`

func scanPickup(row interface{ Scan(...any) error }) (model.PickupPoint, error) {
	var p model.PickupPoint
	err := row.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PickupPointRepo) Insert(ctx context.Context, p model.PickupPoint) error {
	_, err := r.exec(ctx,
		`INSERT INTO pickup_points (`+pickupColumns+`) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *PickupPointRepo) Get(ctx context.Context, id string) (model.PickupPoint, error) {
	p, err := scanPickup(r.queryRow(ctx, `SELECT `+pickupColumns+` FROM pickup_points WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PickupPoint{}, repository.ErrNotFound
	}
	return p, err
}

func (r *PickupPointRepo) FindActiveByName(ctx context.Context, name string) (model.PickupPoint, error) {
	p, err := scanPickup(r.queryRow(ctx,
		`SELECT `+pickupColumns+` FROM pickup_points WHERE active = ? AND LOWER(name) = LOWER(?) LIMIT 1`,
		true, name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.PickupPoint{}, repository.ErrNotFound
	}
	return p, err
}

// Update overwrites name and active flag.
func (r *PickupPointRepo) Update(ctx context.Context, p model.PickupPoint) error {
	res, err := r.exec(ctx,
		`UPDATE pickup_points SET name = ?, active = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Active, p.UpdatedAt, p.ID)
	if err != nil {
		if r.d.isDuplicate(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PickupPointRepo) List(ctx context.Context, includeInactive bool) ([]model.PickupPoint, error) {
	q := `SELECT ` + pickupColumns + ` FROM pickup_points`
	var args []any
	if !includeInactive {
		q += ` WHERE active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY name`
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PickupPoint
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DestinationRepo provides methods to work with the destinations table.
type DestinationRepo struct {
	conn
}

const destinationColumns = `id, name, price_cents, active, created_at, updated_at`

func scanDestination(row interface{ Scan(...any) error }) (model.Destination, error) {
	var d model.Destination
	err := row.Scan(&d.ID, &d.Name, &d.PriceCents, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *DestinationRepo) Insert(ctx context.Context, d model.Destination) error {
	_, err := r.exec(ctx,
		`INSERT INTO destinations (`+destinationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.PriceCents, d.Active, d.CreatedAt, d.UpdatedAt)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *DestinationRepo) Get(ctx context.Context, id string) (model.Destination, error) {
	d, err := scanDestination(r.queryRow(ctx, `SELECT `+destinationColumns+` FROM destinations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Destination{}, repository.ErrNotFound
	}
	return d, err
}

func (r *DestinationRepo) FindActiveByName(ctx context.Context, name string) (model.Destination, error) {
	d, err := scanDestination(r.queryRow(ctx,
		`SELECT `+destinationColumns+` FROM destinations WHERE active = ? AND LOWER(name) = LOWER(?) LIMIT 1`,
		true, name))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Destination{}, repository.ErrNotFound
	}
	return d, err
}

// Update overwrites name, fare and active flag.
func (r *DestinationRepo) Update(ctx context.Context, d model.Destination) error {
	res, err := r.exec(ctx,
		`UPDATE destinations SET name = ?, price_cents = ?, active = ?, updated_at = ? WHERE id = ?`,
		d.Name, d.PriceCents, d.Active, d.UpdatedAt, d.ID)
	if err != nil {
		if r.d.isDuplicate(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DestinationRepo) List(ctx context.Context, includeInactive bool) ([]model.Destination, error) {
	q := `SELECT ` + destinationColumns + ` FROM destinations`
	var args []any
	if !includeInactive {
		q += ` WHERE active = ?`
		args = append(args, true)
	}
	q += ` ORDER BY name`
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
