package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// Activity list bounds.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 200
)

// ActivityRecorder appends administrator actions to the audit log.
// Recording is best effort: failures are logged and never returned to
// the operation that triggered them.  A nil recorder records nothing.
type ActivityRecorder struct {
	repo    repository.ActivityRepo
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewActivityRecorder builds a recorder writing through repo.
func NewActivityRecorder(repo repository.ActivityRepo, logger *slog.Logger) *ActivityRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityRecorder{repo: repo, log: logger, now: time.Now, timeout: 3 * time.Second}
}

// Record appends one entry.  It runs detached from ctx cancellation so
// an entry is still written when the client hangs up after the primary
// operation has committed.
func (r *ActivityRecorder) Record(ctx context.Context, adminID string, action model.Action, description string, meta model.Metadata) {
	if r == nil || adminID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	a := model.Activity{
		ID:          uuid.NewString(),
		AdminID:     adminID,
		Action:      action,
		Description: description,
		Metadata:    meta,
		CreatedAt:   r.now().UTC(),
	}
	if a.Metadata == nil {
		a.Metadata = model.Metadata{}
	}
	if err := r.repo.Insert(ctx, a); err != nil {
		r.log.Warn("activity not recorded", "action", action, "admin_id", adminID, "err", err)
	}
}

// List returns entries newest first.  A non-positive limit selects the
// default; limits above MaxActivityLimit are capped.
func (r *ActivityRecorder) List(ctx context.Context, limit, offset int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	out, err := r.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr(err)
	}
	if out == nil {
		out = []model.Activity{}
	}
	return out, nil
}
