package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryUserStore struct {
	users map[string]User
	next  int64
}

func (s *memoryUserStore) UpsertAdmin(_ context.Context, login string) (User, error) {
	if s.users == nil {
		s.users = make(map[string]User)
	}
	if u, ok := s.users[login]; ok {
		u.LastSignedIn = time.Now()
		s.users[login] = u
		return u, nil
	}
	s.next++
	u := User{ID: s.next, Login: login, Role: RoleAdmin, LastSignedIn: time.Now()}
	s.users[login] = u
	return u, nil
}

func newTestHandler(t *testing.T, admin AdminCredentials) *Handler {
	t.Helper()
	return &Handler{
		Service:  newTestService(t),
		Users:    &memoryUserStore{},
		Cookies:  CookieConfig{Name: "cotacao_session", SameSite: http.SameSiteLaxMode},
		Admin:    admin,
		Validate: validator.New(),
		Logger:   zerolog.Nop(),
	}
}

func doLogin(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	return rr
}

func TestLoginSuccessSetsCookie(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})

	rr := doLogin(h, `{"login":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "cotacao_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "admin", resp.User.Login)
	require.Equal(t, RoleAdmin, resp.User.Role)
}

func TestLoginWithArgon2Hash(t *testing.T) {
	hash, err := argon2id.CreateHash("s3cret", argon2id.DefaultParams)
	require.NoError(t, err)
	h := newTestHandler(t, AdminCredentials{Login: "admin", PasswordHash: hash})

	rr := doLogin(h, `{"login":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doLogin(h, `{"login":"admin","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})

	cases := []string{
		`{"login":"admin","password":"wrong"}`,
		`{"login":"someone","password":"s3cret"}`,
	}
	for _, body := range cases {
		rr := doLogin(h, body)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
	}
}

func TestLoginValidation(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})

	rr := doLogin(h, `{"login":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doLogin(h, `not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Negative(t, cookies[0].MaxAge)
}

func TestMeRequiresSession(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})
	mw := Middleware{Service: h.Service, Cookie: h.Cookies.Name}

	protected := mw.RequireAdmin(http.HandlerFunc(h.Me))

	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	token, _, err := h.Service.SignToken(42, RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: h.Cookies.Name, Value: token})
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var identity Identity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &identity))
	require.Equal(t, int64(42), identity.ID)
}

func TestSupplierTokenRejectedOnAdminRoutes(t *testing.T) {
	h := newTestHandler(t, AdminCredentials{Login: "admin", Password: "s3cret"})
	mw := Middleware{Service: h.Service, Cookie: h.Cookies.Name}
	protected := mw.RequireAdmin(http.HandlerFunc(h.Me))

	token, _, err := h.Service.SignToken(7, RoleSupplier)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}
