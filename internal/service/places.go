package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// PlaceCatalog manages pickup points and destinations.  Entries are
// deactivated rather than deleted so bookings keep valid references.
type PlaceCatalog struct {
	store    repository.Store
	recorder *ActivityRecorder
	now      func() time.Time
}

// NewPlaceCatalog returns a catalog backed by store.
func NewPlaceCatalog(store repository.Store, recorder *ActivityRecorder) *PlaceCatalog {
	return &PlaceCatalog{store: store, recorder: recorder, now: time.Now}
}

func cleanName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len(name) > 255 {
		return "", invalid("name", "is too long")
	}
	return name, nil
}

func checkPrice(price int64) error {
	if price <= 0 {
		return invalid("price_cents", "must be greater than zero")
	}
	return nil
}

// ListPickupPoints returns pickup points ordered by name.
func (c *PlaceCatalog) ListPickupPoints(ctx context.Context, includeInactive bool) ([]model.PickupPoint, error) {
	out, err := c.store.PickupPoints().List(ctx, includeInactive)
	if err != nil {
		return nil, storeErr(err)
	}
	if out == nil {
		out = []model.PickupPoint{}
	}
	return out, nil
}

// CreatePickupPoint adds an active pickup point.
func (c *PlaceCatalog) CreatePickupPoint(ctx context.Context, adminID, name string) (model.PickupPoint, error) {
	name, err := cleanName(name)
	if err != nil {
		return model.PickupPoint{}, err
	}
	now := c.now().UTC()
	p := model.PickupPoint{ID: uuid.NewString(), Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	err = c.store.WithTx(ctx, func(tx repository.Repos) error {
		if err := pickupNameFree(ctx, tx, name, ""); err != nil {
			return err
		}
		return tx.PickupPoints().Insert(ctx, p)
	})
	if err != nil {
		return model.PickupPoint{}, nameConflict(err, "pickup point", name)
	}
	c.recorder.Record(ctx, adminID, model.ActionPickupPointCreated,
		fmt.Sprintf("Created pickup point %s", p.Name),
		model.Metadata{"pickup_point_id": model.String(p.ID), "name": model.String(p.Name)})
	return p, nil
}

// nameConflict reports a unique-name violation caught by the store
// itself, when a concurrent create won the race past the name check.
func nameConflict(err error, kind, name string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %s %q already exists", ErrConflict, kind, name)
	}
	return storeErr(err)
}

func pickupNameFree(ctx context.Context, tx repository.Repos, name, selfID string) error {
	existing, err := tx.PickupPoints().FindActiveByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("%w: pickup point %q already exists", ErrConflict, name)
	}
	return nil
}

// UpdatePickupPoint renames a pickup point.
func (c *PlaceCatalog) UpdatePickupPoint(ctx context.Context, adminID, id, name string) (model.PickupPoint, error) {
	name, err := cleanName(name)
	if err != nil {
		return model.PickupPoint{}, err
	}
	var p model.PickupPoint
	var oldName string
	err = c.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.PickupPoints().Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Active {
			if err := pickupNameFree(ctx, tx, name, cur.ID); err != nil {
				return err
			}
		}
		oldName = cur.Name
		cur.Name, cur.UpdatedAt = name, c.now().UTC()
		p = cur
		return tx.PickupPoints().Update(ctx, cur)
	})
	if err != nil {
		return model.PickupPoint{}, nameConflict(err, "pickup point", name)
	}
	c.recorder.Record(ctx, adminID, model.ActionPickupPointUpdated,
		fmt.Sprintf("Renamed pickup point %s to %s", oldName, p.Name),
		model.Metadata{
			"pickup_point_id": model.String(p.ID),
			"old_name":        model.String(oldName),
			"new_name":        model.String(p.Name),
		})
	return p, nil
}

// DeactivatePickupPoint hides a pickup point from new bookings.
// Deactivating an inactive point is a no-op.
func (c *PlaceCatalog) DeactivatePickupPoint(ctx context.Context, adminID, id string) (model.PickupPoint, error) {
	var (
		p       model.PickupPoint
		changed bool
	)
	err := c.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.PickupPoints().Get(ctx, id)
		if err != nil {
			return err
		}
		p = cur
		if !cur.Active {
			return nil
		}
		cur.Active, cur.UpdatedAt = false, c.now().UTC()
		p, changed = cur, true
		return tx.PickupPoints().Update(ctx, cur)
	})
	if err != nil {
		return model.PickupPoint{}, storeErr(err)
	}
	if changed {
		c.recorder.Record(ctx, adminID, model.ActionPickupPointDisabled,
			fmt.Sprintf("Deactivated pickup point %s", p.Name),
			model.Metadata{"pickup_point_id": model.String(p.ID), "name": model.String(p.Name)})
	}
	return p, nil
}

// ListDestinations returns destinations ordered by name.
func (c *PlaceCatalog) ListDestinations(ctx context.Context, includeInactive bool) ([]model.Destination, error) {
	out, err := c.store.Destinations().List(ctx, includeInactive)
	if err != nil {
		return nil, storeErr(err)
	}
	if out == nil {
		out = []model.Destination{}
	}
	return out, nil
}

func destinationNameFree(ctx context.Context, tx repository.Repos, name, selfID string) error {
	existing, err := tx.Destinations().FindActiveByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("%w: destination %q already exists", ErrConflict, name)
	}
	return nil
}

// CreateDestination adds an active destination with its fare.
func (c *PlaceCatalog) CreateDestination(ctx context.Context, adminID, name string, priceCents int64) (model.Destination, error) {
	name, err := cleanName(name)
	if err != nil {
		return model.Destination{}, err
	}
	if err := checkPrice(priceCents); err != nil {
		return model.Destination{}, err
	}
	now := c.now().UTC()
	d := model.Destination{ID: uuid.NewString(), Name: name, PriceCents: priceCents, Active: true, CreatedAt: now, UpdatedAt: now}
	err = c.store.WithTx(ctx, func(tx repository.Repos) error {
		if err := destinationNameFree(ctx, tx, name, ""); err != nil {
			return err
		}
		return tx.Destinations().Insert(ctx, d)
	})
	if err != nil {
		return model.Destination{}, nameConflict(err, "destination", name)
	}
	c.recorder.Record(ctx, adminID, model.ActionDestinationCreated,
		fmt.Sprintf("Created destination %s", d.Name),
		model.Metadata{
			"destination_id": model.String(d.ID),
			"name":           model.String(d.Name),
			"price":          model.Int(d.PriceCents),
		})
	return d, nil
}

// UpdateDestination changes a destination's name and fare.  Existing
// bookings keep the amount they were created with.
func (c *PlaceCatalog) UpdateDestination(ctx context.Context, adminID, id, name string, priceCents int64) (model.Destination, error) {
	name, err := cleanName(name)
	if err != nil {
		return model.Destination{}, err
	}
	if err := checkPrice(priceCents); err != nil {
		return model.Destination{}, err
	}
	var d, before model.Destination
	err = c.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.Destinations().Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Active {
			if err := destinationNameFree(ctx, tx, name, cur.ID); err != nil {
				return err
			}
		}
		before = cur
		cur.Name, cur.PriceCents, cur.UpdatedAt = name, priceCents, c.now().UTC()
		d = cur
		return tx.Destinations().Update(ctx, cur)
	})
	if err != nil {
		return model.Destination{}, nameConflict(err, "destination", name)
	}
	c.recorder.Record(ctx, adminID, model.ActionDestinationUpdated,
		fmt.Sprintf("Updated destination %s", d.Name),
		model.Metadata{
			"destination_id": model.String(d.ID),
			"old_name":       model.String(before.Name),
			"new_name":       model.String(d.Name),
			"old_price":      model.Int(before.PriceCents),
			"new_price":      model.Int(d.PriceCents),
		})
	return d, nil
}

// DeactivateDestination hides a destination from new bookings.
func (c *PlaceCatalog) DeactivateDestination(ctx context.Context, adminID, id string) (model.Destination, error) {
	var (
		d       model.Destination
		changed bool
	)
	err := c.store.WithTx(ctx, func(tx repository.Repos) error {
		cur, err := tx.Destinations().Get(ctx, id)
		if err != nil {
			return err
		}
		d = cur
		if !cur.Active {
			return nil
		}
		cur.Active, cur.UpdatedAt = false, c.now().UTC()
		d, changed = cur, true
		return tx.Destinations().Update(ctx, cur)
	})
	if err != nil {
		return model.Destination{}, storeErr(err)
	}
	if changed {
		c.recorder.Record(ctx, adminID, model.ActionDestinationDisabled,
			fmt.Sprintf("Deactivated destination %s", d.Name),
			model.Metadata{"destination_id": model.String(d.ID), "name": model.String(d.Name)})
	}
	return d, nil
}

// SeedPlace is one entry of the startup seed.  PriceCents is ignored
// for pickup points.
type SeedPlace struct {
	Name       string
	PriceCents int64
}

// Seed inserts any pickup points and destinations whose names are not
// already active.  It records no activity.
func (c *PlaceCatalog) Seed(ctx context.Context, pickups, destinations []SeedPlace) (int, error) {
	added := 0
	err := c.store.WithTx(ctx, func(tx repository.Repos) error {
		now := c.now().UTC()
		for _, sp := range pickups {
			name, err := cleanName(sp.Name)
			if err != nil {
				return err
			}
			if _, err := tx.PickupPoints().FindActiveByName(ctx, name); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			p := model.PickupPoint{ID: uuid.NewString(), Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
			if err := tx.PickupPoints().Insert(ctx, p); err != nil {
				return err
			}
			added++
		}
		for _, sd := range destinations {
			name, err := cleanName(sd.Name)
			if err != nil {
				return err
			}
			if err := checkPrice(sd.PriceCents); err != nil {
				return fmt.Errorf("destination %s: %w", name, err)
			}
			if _, err := tx.Destinations().FindActiveByName(ctx, name); err == nil {
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			d := model.Destination{ID: uuid.NewString(), Name: name, PriceCents: sd.PriceCents, Active: true, CreatedAt: now, UpdatedAt: now}
			if err := tx.Destinations().Insert(ctx, d); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, storeErr(err)
	}
	return added, nil
}
