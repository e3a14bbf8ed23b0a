// Package policy decides which admin actions a role may perform.  The
// rules are a Rego module evaluated in process with OPA; the built-in
// module can be replaced by a file named in POLICY_FILE.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Actions checked by the admin routes.
const (
	ActionBookingsRead    = "bookings.read"
	ActionBookingApprove  = "booking.approve"
	ActionBookingReject   = "booking.reject"
	ActionBookingDelete   = "booking.delete"
	ActionSeatsInitialize = "seats.initialize"
	ActionSeatToggle      = "seat.toggle"
	ActionSeatRelease     = "seat.release"
	ActionPlacesWrite     = "places.write"
	ActionActivitiesRead  = "activities.read"
	ActionStatsRead       = "stats.read"
	ActionDataExport      = "data.export"
)

const query = "data.busadmin.authz.allow"

//go:embed authz.rego
var defaultModule string

// Input is the document the policy sees as `input`.
type Input struct {
	AdminID string `json:"admin_id"`
	Role    string `json:"role"`
	Action  string `json:"action"`
}

// Authorizer is a prepared policy query.
type Authorizer struct {
	query rego.PreparedEvalQuery
}

// New compiles module, or the built-in policy when module is empty.
func New(ctx context.Context, module string) (*Authorizer, error) {
	if module == "" {
		module = defaultModule
	}
	pq, err := rego.New(
		rego.Query(query),
		rego.Module("authz.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	return &Authorizer{query: pq}, nil
}

// Load reads a policy file, falling back to the built-in module when
// path is empty.
func Load(ctx context.Context, path string) (*Authorizer, error) {
	if path == "" {
		return New(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return New(ctx, string(b))
}

// Allow reports whether the policy permits in.
func (a *Authorizer) Allow(ctx context.Context, in Input) (bool, error) {
	rs, err := a.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return false, fmt.Errorf("evaluate policy: %w", err)
	}
	return rs.Allowed(), nil
}
