package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/egx-lab/backend-cotacao/internal/common"
)

// User is the safe subset of the user model returned to clients.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	Role         string    `json:"role"`
	LastSignedIn time.Time `json:"lastSignedIn"`
}

// UserStore persists admin users. UpsertAdmin creates the user on first
// login and refreshes last_signed_in on subsequent ones.
type UserStore interface {
	UpsertAdmin(ctx context.Context, login string) (User, error)
}

// AdminCredentials is the single configured admin account. PasswordHash
// takes precedence over the plain password when both are set.
type AdminCredentials struct {
	Login        string
	Password     string
	PasswordHash string
}

// CookieConfig controls the session cookie written on login.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) write(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Handler exposes the admin authentication endpoints.
type Handler struct {
	Service  *Service
	Users    UserStore
	Cookies  CookieConfig
	Admin    AdminCredentials
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates the configured admin account and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "login and password are required", nil)
		return
	}

	if !h.verifyAdmin(req.Login, req.Password) {
		h.Logger.Warn().Str("login", req.Login).Str("ip", common.ClientIP(r)).Msg("admin_login_failed")
		common.JSONError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid login or password", nil)
		return
	}

	user, err := h.Users.UpsertAdmin(r.Context(), req.Login)
	if err != nil {
		h.Logger.Error().Err(err).Msg("admin_upsert_failed")
		common.WriteError(w, err)
		return
	}
	token, expiresAt, err := h.Service.SignToken(user.ID, RoleAdmin)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	h.Cookies.write(w, token, expiresAt)
	h.Logger.Info().Int64("user_id", user.ID).Msg("admin_login")
	common.JSON(w, http.StatusOK, loginResponse{User: user, ExpiresAt: expiresAt})
}

// Logout clears the session cookie.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.Cookies.clear(w)
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the authenticated principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	common.JSON(w, http.StatusOK, identity)
}

func (h *Handler) verifyAdmin(login, password string) bool {
	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(h.Admin.Login)) == 1
	if h.Admin.PasswordHash != "" {
		match, err := argon2id.ComparePasswordAndHash(password, h.Admin.PasswordHash)
		return loginOK && err == nil && match
	}
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.Admin.Password)) == 1
	return loginOK && passwordOK
}
