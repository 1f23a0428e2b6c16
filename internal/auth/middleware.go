package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/egx-lab/backend-cotacao/internal/common"
)

var errNoToken = errors.New("auth: token missing")

type identityKey struct{}

// WithIdentity attaches the authenticated principal to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the authenticated principal from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Middleware wires authentication context into HTTP handlers. Tokens are
// read from the session cookie or a bearer Authorization header.
type Middleware struct {
	Service *Service
	Cookie  string
}

// Authenticate attaches the identity when a valid token is present and
// passes the request through otherwise.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin enforces an admin session.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.requireRole(RoleAdmin, next)
}

// RequireSupplier enforces a supplier session.
func (m Middleware) RequireSupplier(next http.Handler) http.Handler {
	return m.requireRole(RoleSupplier, next)
}

func (m Middleware) requireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		identity, _ := IdentityFrom(ctx)
		if identity.Role != role {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Service == nil {
		return r.Context(), errors.New("auth: service not configured")
	}
	token := m.extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	identity, err := m.Service.ParseToken(token)
	if err != nil {
		return r.Context(), err
	}
	ctx := WithIdentity(r.Context(), identity)
	ctx = common.WithUserID(ctx, identity.ID)
	return ctx, nil
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.Cookie != "" {
		if cookie, err := r.Cookie(m.Cookie); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNoToken) {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	if appErr, ok := common.AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusUnauthorized
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}
