package model

import "time"

// PickupPoint is a place where passengers board the bus.  Pickup
// points are never deleted; deactivating one hides it from the
// booking form while historical bookings keep their copy of the name.
type PickupPoint struct {
	ID        string    `json:"id"`         // pickup_points.id
	Name      string    `json:"name"`       // pickup_points.name
	Active    bool      `json:"active"`     // pickup_points.active
	CreatedAt time.Time `json:"created_at"` // pickup_points.created_at
	UpdatedAt time.Time `json:"updated_at"` // pickup_points.updated_at
}

// Destination is a drop-off place with its fare.  PriceCents is copied
// into a booking when it is created.
type Destination struct {
	ID         string    `json:"id"`          // destinations.id
	Name       string    `json:"name"`        // destinations.name
	PriceCents int64     `json:"price_cents"` // destinations.price_cents
	Active     bool      `json:"active"`      // destinations.active
	CreatedAt  time.Time `json:"created_at"`  // destinations.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // destinations.updated_at
}
