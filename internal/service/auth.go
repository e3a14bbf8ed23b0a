package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/repository"
	"github.com/iliyamo/bus-seat-admin/internal/utils"
)

// AuthConfig holds token lifetimes and secrets for the Authenticator.
type AuthConfig struct {
	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	BcryptCost       int
	RegistrationCode string
}

// Session is the result of a successful login, registration or refresh.
type Session struct {
	Admin   model.Admin
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Authenticator verifies admin credentials and issues tokens.
type Authenticator struct {
	store repository.Store
	cfg   AuthConfig
	now   func() time.Time
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(store repository.Store, cfg AuthConfig) *Authenticator {
	return &Authenticator{store: store, cfg: cfg, now: time.Now}
}

// RegisterRequest creates an admin.  Code must equal the configured
// registration code; registration is closed when none is configured.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Role     string
	Code     string
}

// Register creates an admin account and returns a session for it.
func (a *Authenticator) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	if a.cfg.RegistrationCode == "" ||
		subtle.ConstantTimeCompare([]byte(req.Code), []byte(a.cfg.RegistrationCode)) != 1 {
		return Session{}, fmt.Errorf("%w: invalid registration code", ErrForbidden)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Session{}, invalid("email", "is not a valid address")
	}
	if len(req.Password) < utils.MinPasswordLen {
		return Session{}, invalid("password", fmt.Sprintf("must be at least %d characters", utils.MinPasswordLen))
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return Session{}, invalid("full_name", "is required")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = model.RoleAdmin
	case model.RoleAdmin, model.RoleSuperAdmin:
	default:
		return Session{}, invalid("role", "must be admin or superadmin")
	}

	hash, err := utils.HashPassword(req.Password, a.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.now().UTC()
	admin := model.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.Admins().Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return Session{}, storeErr(err)
	}
	return a.issue(ctx, admin)
}

// Login verifies email and password.  Unknown emails, wrong passwords
// and disabled accounts all fail with ErrAuthenticationFailed.
func (a *Authenticator) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, invalid("", "email and password are required")
	}
	admin, err := a.store.Admins().GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrAuthenticationFailed
	}
	if err != nil {
		return Session{}, storeErr(err)
	}
	if !admin.IsActive || !utils.VerifyPassword(admin.PasswordHash, password) {
		return Session{}, ErrAuthenticationFailed
	}
	return a.issue(ctx, admin)
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (a *Authenticator) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token", "is required")
	}
	hash := utils.HashRefreshRaw(raw)
	now := a.now().UTC()
	adminID, err := a.store.Tokens().ValidateRefresh(ctx, hash, now)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrAuthenticationFailed
	}
	if err != nil {
		return Session{}, storeErr(err)
	}
	admin, err := a.store.Admins().GetByID(ctx, adminID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !admin.IsActive) {
		return Session{}, ErrAuthenticationFailed
	}
	if err != nil {
		return Session{}, storeErr(err)
	}
	if err := a.store.Tokens().RevokeByHash(ctx, hash, now); err != nil {
		return Session{}, storeErr(err)
	}
	return a.issue(ctx, admin)
}

// Logout revokes one refresh token when raw is given, otherwise every
// token of adminID.
func (a *Authenticator) Logout(ctx context.Context, adminID, raw string) error {
	now := a.now().UTC()
	if raw = strings.TrimSpace(raw); raw != "" {
		hash := utils.HashRefreshRaw(raw)
		owner, err := a.store.Tokens().ValidateRefresh(ctx, hash, now)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && adminID != "" && owner != adminID) {
			return ErrAuthenticationFailed
		}
		if err != nil {
			return storeErr(err)
		}
		return storeErr(a.store.Tokens().RevokeByHash(ctx, hash, now))
	}
	if adminID == "" {
		return invalid("", "provide Authorization header or refresh_token")
	}
	return storeErr(a.store.Tokens().RevokeAllForAdmin(ctx, adminID, now))
}

// Admin loads the admin behind an access token subject.
func (a *Authenticator) Admin(ctx context.Context, id string) (model.Admin, error) {
	admin, err := a.store.Admins().GetByID(ctx, id)
	if err != nil {
		return model.Admin{}, storeErr(err)
	}
	return admin, nil
}

// EnsureAdmin creates the bootstrap superadmin when the email is not
// registered yet.  It reports whether an account was created.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	if _, err := a.store.Admins().GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, storeErr(err)
	}
	hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if fullName == "" {
		fullName = "Administrator"
	}
	now := a.now().UTC()
	err = a.store.Admins().Create(ctx, model.Admin{
		ID: uuid.NewString(), Email: email, FullName: fullName, PasswordHash: hash,
		Role: model.RoleSuperAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err)
	}
	return true, nil
}

func (a *Authenticator) issue(ctx context.Context, admin model.Admin) (Session, error) {
	now := a.now()
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, admin.ID, admin.Role, a.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(a.cfg.RefreshTTL, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := a.store.Tokens().StoreRefresh(ctx, admin.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, storeErr(err)
	}
	return Session{Admin: admin, Access: access, Refresh: refresh}, nil
}
