package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/bus-seat-admin/internal/model"
)

// ActivityRepo appends to and reads the admin_activities table.
// Metadata is stored as JSON text.
type ActivityRepo struct {
	conn
}

func (r *ActivityRepo) Insert(ctx context.Context, a model.Activity) error {
	meta := a.Metadata
	if meta == nil {
		meta = model.Metadata{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	_, err = r.exec(ctx,
		`INSERT INTO admin_activities (id, admin_id, action, description, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.AdminID, string(a.Action), a.Description, string(raw), a.CreatedAt)
	return err
}

// List returns entries newest first.
func (r *ActivityRepo) List(ctx context.Context, limit, offset int) ([]model.Activity, error) {
	rows, err := r.query(ctx,
		`SELECT id, admin_id, action, description, metadata, created_at
		 FROM admin_activities
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Activity
	for rows.Next() {
		var (
			a   model.Activity
			raw string
		)
		if err := rows.Scan(&a.ID, &a.AdminID, &a.Action, &a.Description, &raw, &a.CreatedAt); err != nil {
			return nil, err
		}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity %s metadata: %w", a.ID, err)
			}
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
