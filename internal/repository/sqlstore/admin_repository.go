package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
)

// AdminRepo manages administrator accounts in the admins table.
type AdminRepo struct {
	conn
}

const adminColumns = `id, email, full_name, password_hash, role, is_active, created_at, updated_at`

func scanAdmin(row *sql.Row) (model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Admin{}, repository.ErrNotFound
	}
	return a, err
}

// Create inserts an admin.  A taken email yields repository.ErrDuplicate.
func (r *AdminRepo) Create(ctx context.Context, a model.Admin) error {
	_, err := r.exec(ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.FullName, a.PasswordHash, a.Role, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	return scanAdmin(r.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = ? LIMIT 1`, email))
}

func (r *AdminRepo) GetByID(ctx context.Context, id string) (model.Admin, error) {
	return scanAdmin(r.queryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ? LIMIT 1`, id))
}

// TokenRepo persists and validates refresh token hashes.
type TokenRepo struct {
	conn
}

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, adminID, tokenHash string, exp time.Time) error {
	_, err := r.exec(ctx,
		`INSERT INTO refresh_tokens (admin_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		adminID, tokenHash, exp)
	if err != nil && r.d.isDuplicate(err) {
		return repository.ErrDuplicate
	}
	return err
}

// ValidateRefresh returns the admin id if a non-revoked, non-expired
// token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var (
		adminID   string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.queryRow(ctx,
		`SELECT admin_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`,
		tokenHash).Scan(&adminID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if revokedAt.Valid || !now.Before(expiresAt) {
		return "", repository.ErrNotFound
	}
	return adminID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		now, tokenHash)
	return err
}

// RevokeAllForAdmin revokes every live token of an admin.
func (r *TokenRepo) RevokeAllForAdmin(ctx context.Context, adminID string, now time.Time) error {
	_, err := r.exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE admin_id = ? AND revoked_at IS NULL`,
		now, adminID)
	return err
}
