package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/egx-lab/backend-cotacao/internal/common"
)

// Roles carried in session tokens.
const (
	RoleAdmin    = "admin"
	RoleSupplier = "supplier"
)

const (
	defaultSessionTTL = 8760 * time.Hour
	roleClaim         = "role"
)

// Identity is the authenticated principal extracted from a session token.
type Identity struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// Service signs and verifies session tokens for admins and suppliers.
type Service struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	audience  string
	clockSkew time.Duration
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	now       func() time.Time
}

// Config configures the auth service.
type Config struct {
	Secret     string
	SessionTTL time.Duration
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-cotacao"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "cotacao-frontend"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}
	return &Service{
		secret:    []byte(secret),
		ttl:       ttl,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SignToken issues a session token for the given principal.
func (s *Service) SignToken(id int64, role string) (string, time.Time, error) {
	if role != RoleAdmin && role != RoleSupplier {
		return "", time.Time{}, fmt.Errorf("auth: unknown role %q", role)
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(id, 10)).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// ParseToken verifies a session token and returns the identity it carries.
func (s *Service) ParseToken(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.validator.Algorithm {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	id, err := strconv.ParseInt(parsed.Subject(), 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token subject", http.StatusUnauthorized, err)
	}
	roleValue, ok := parsed.Get(roleClaim)
	role, _ := roleValue.(string)
	if !ok || (role != RoleAdmin && role != RoleSupplier) {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "invalid token role", http.StatusUnauthorized, nil)
	}
	return Identity{ID: id, Role: role}, nil
}

// extractTokenAlgorithm reads the signature algorithm from the protected
// headers. Tokens using the none algorithm or mixed algorithms are rejected
// before any cryptographic verification happens.
func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" || alg == jwa.NoSignature {
			return "", errors.New("auth: token missing or rejecting algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
