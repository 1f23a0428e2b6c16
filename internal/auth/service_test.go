package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: "test-secret-test-secret-test-1234"})
	require.NoError(t, err)
	return svc
}

func TestSignAndParseToken(t *testing.T) {
	svc := newTestService(t)

	token, expiresAt, err := svc.SignToken(42, RoleAdmin)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	identity, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, Identity{ID: 42, Role: RoleAdmin}, identity)
}

func TestParseTokenSupplierRole(t *testing.T) {
	svc := newTestService(t)

	token, _, err := svc.SignToken(7, RoleSupplier)
	require.NoError(t, err)

	identity, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, RoleSupplier, identity.Role)
}

func TestSignTokenRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.SignToken(1, "superuser")
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t)
	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })

	svc2, err := NewService(Config{Secret: "test-secret-test-secret-test-1234", SessionTTL: time.Hour})
	require.NoError(t, err)
	svc2.WithNow(func() time.Time { return past })

	token, _, err := svc2.SignToken(1, RoleAdmin)
	require.NoError(t, err)

	svc2.WithNow(time.Now)
	_, err = svc2.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService(Config{Secret: "another-secret-another-secret-99"})
	require.NoError(t, err)

	token, _, err := other.SignToken(1, RoleAdmin)
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	for _, raw := range []string{"", "   ", "not.a.token", "a.b"} {
		_, err := svc.ParseToken(raw)
		require.Error(t, err, "token %q must be rejected", raw)
	}
}
