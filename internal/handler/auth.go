package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Accounts is the account service as the auth endpoints use it.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, service.TokenPair, error)
	Logout(ctx context.Context, userID uint64) error
}

// AuthHandler serves registration and the session lifecycle.
type AuthHandler struct {
	accounts Accounts
	sessions middleware.Sessions
	cookie   middleware.CookieConfig

	refreshTTL func() time.Duration
}

func NewAuthHandler(accounts Accounts, sessions *service.SessionManager, cookie middleware.CookieConfig) *AuthHandler {
	return newAuthHandler(accounts, sessions, sessions.RefreshTTL, cookie)
}

func newAuthHandler(accounts Accounts, sessions middleware.Sessions, refreshTTL func() time.Duration, cookie middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, refreshTTL: refreshTTL, cookie: cookie}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userView struct {
	ID    uint64     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Phone string     `json:"phone,omitempty"`
	Role  model.Role `json:"role"`
}

func viewOf(u model.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

// Register creates a user account.  It does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.accounts.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "User registered successfully", echo.Map{"user": viewOf(u)})
}

// Login verifies credentials and starts a session: both tokens are set as
// cookies and also returned in the body for non-browser clients.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, pair, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	middleware.SetCookie(c, h.cookie, middleware.AccessCookie, pair.AccessToken, h.sessions.AccessTTL())
	middleware.SetCookie(c, h.cookie, middleware.RefreshCookie, pair.RefreshToken, h.refreshTTL())
	return ok(c, http.StatusOK, "Login successful", echo.Map{
		"user":         viewOf(u),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh exchanges a refresh token (cookie or body) for a new access
// token without going through a guarded route.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	raw := req.RefreshToken
	if raw == "" {
		if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
			raw = ck.Value
		}
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	access, _, err := h.sessions.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	middleware.SetCookie(c, h.cookie, middleware.AccessCookie, access, h.sessions.AccessTTL())
	return ok(c, http.StatusOK, "", echo.Map{"accessToken": access})
}

// Logout revokes the stored refresh token and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		return apperr.Unauthorized("Authentication required")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.accounts.Logout(ctx, claims.UserID); err != nil {
		return err
	}
	middleware.ClearCookie(c, h.cookie, middleware.AccessCookie)
	middleware.ClearCookie(c, h.cookie, middleware.RefreshCookie)
	return ok(c, http.StatusOK, "Logged out", nil)
}

// Me echoes the caller's identity from the token.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, found := middleware.ClaimsFrom(c)
	if !found {
		return apperr.Unauthorized("Authentication required")
	}
	return ok(c, http.StatusOK, "", echo.Map{"user": userView{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}})
}
