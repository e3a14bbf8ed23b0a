package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action tags an administrative activity record.
type Action string

const (
	ActionBookingApproved     Action = "BOOKING_APPROVED"
	ActionBookingRejected     Action = "BOOKING_REJECTED"
	ActionBookingDeleted      Action = "BOOKING_DELETED"
	ActionSeatToggled         Action = "SEAT_TOGGLED"
	ActionSeatReleased        Action = "SEAT_RELEASED"
	ActionSeatsInitialized    Action = "SEATS_INITIALIZED"
	ActionPickupPointCreated  Action = "PICKUP_POINT_CREATED"
	ActionPickupPointUpdated  Action = "PICKUP_POINT_UPDATED"
	ActionPickupPointDisabled Action = "PICKUP_POINT_DEACTIVATED"
	ActionDestinationCreated  Action = "DESTINATION_CREATED"
	ActionDestinationUpdated  Action = "DESTINATION_UPDATED"
	ActionDestinationDisabled Action = "DESTINATION_DEACTIVATED"
	ActionDataExported        Action = "DATA_EXPORTED"
)

// Activity is one append-only audit entry describing an action an
// administrator performed.
type Activity struct {
	ID          string    `json:"id"`          // admin_activities.id
	AdminID     string    `json:"admin_id"`    // admin_activities.admin_id
	Action      Action    `json:"action"`      // admin_activities.action
	Description string    `json:"description"` // admin_activities.description
	Metadata    Metadata  `json:"metadata"`    // admin_activities.metadata (JSON)
	CreatedAt   time.Time `json:"created_at"`  // admin_activities.created_at
}

// ValueKind enumerates the scalar types allowed in activity metadata.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindTime   ValueKind = "time"
)

// Value is a metadata scalar.  Exactly one of the fields is meaningful,
// selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// String, Number, Int, Bool and Time build metadata values.
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func Int(i int64) Value { return Value{Kind: KindNumber, Num: float64(i)} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t.UTC()} }

// Interface returns the underlying Go value.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time
	}
	return nil
}

// MarshalJSON encodes the value as a single-key object naming its kind,
// e.g. {"number": 5} or {"time": "2025-01-01T00:00:00Z"}, so that a
// round trip never confuses a timestamp with a string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(map[string]string{"string": v.Str})
	case KindNumber:
		return json.Marshal(map[string]float64{"number": v.Num})
	case KindBool:
		return json.Marshal(map[string]bool{"bool": v.Bool})
	case KindTime:
		return json.Marshal(map[string]string{"time": v.Time.UTC().Format(time.RFC3339Nano)})
	}
	return nil, fmt.Errorf("metadata: unknown value kind %q", v.Kind)
}

// UnmarshalJSON decodes the representation written by MarshalJSON.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.New("metadata: value must have exactly one kind")
	}
	for k, msg := range raw {
		switch ValueKind(k) {
		case KindString:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return err
			}
			*v = String(s)
		case KindNumber:
			var f float64
			if err := json.Unmarshal(msg, &f); err != nil {
				return err
			}
			*v = Number(f)
		case KindBool:
			var bv bool
			if err := json.Unmarshal(msg, &bv); err != nil {
				return err
			}
			*v = Bool(bv)
		case KindTime:
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return err
			}
			*v = Time(t)
		default:
			return fmt.Errorf("metadata: unknown value kind %q", k)
		}
	}
	return nil
}

// Metadata maps keys to scalar values.
type Metadata map[string]Value
