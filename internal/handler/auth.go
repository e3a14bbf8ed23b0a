package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/middleware"
	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/service"
	"github.com/iliyamo/bus-seat-admin/internal/utils"
)

// AuthHandler serves the admin authentication endpoints.
type AuthHandler struct {
	Auth      *service.Authenticator
	JWTSecret string
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.Authenticator, jwtSecret string) *AuthHandler {
	return &AuthHandler{Auth: auth, JWTSecret: jwtSecret}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"` // admin | superadmin
	Code     string `json:"registration_code"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type adminPart struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
type authResp struct {
	Admin   adminPart `json:"admin"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func adminView(a model.Admin) adminPart {
	return adminPart{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role}
}

func sessionResp(s service.Session) authResp {
	return authResp{
		Admin:   adminView(s.Admin),
		Access:  tokenPart{Token: s.Access.Token, Expires: s.Access.Exp},
		Refresh: tokenPart{Token: s.Refresh.Raw, Expires: s.Refresh.Exp}, // raw back to client
	}
}

// Register: create an admin (registration code required) and return tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Register(ctx, service.RegisterRequest{
		Email: req.Email, Password: req.Password, FullName: req.FullName, Role: req.Role, Code: req.Code,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(s))
}

// Login: verify and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh: rotate the refresh token and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Logout revokes the refresh token in the body, or every token of the
// admin named by a valid Authorization header when the body has none.
// It runs without JWTAuth so an expired session can still log out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	adminID := ""
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		claims, err := utils.ParseAccessToken(h.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		adminID = claims.Subject
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, adminID, req.RefreshToken); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated admin.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Auth.Admin(ctx, middleware.AdminID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, adminView(a))
}
