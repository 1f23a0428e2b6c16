package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	ClientOrigin       string

	AdminLogin        string
	AdminPassword     string
	AdminPasswordHash string

	SessionTTL     time.Duration
	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	PTAXEndpoint     string
	PTAXFallbackRate float64
	PTAXTimeout      time.Duration
	PTAXCacheTTL     time.Duration

	SummaryCacheTTL time.Duration

	SupplierPasswordDays int
	QuotationExpiryDays  int

	LoginRateWindow time.Duration
	LoginRateMax    int
	GlobalRateLimit string

	ExpirySweepInterval time.Duration
}

const defaultPTAXEndpoint = "https://api.bcb.gov.br/dados/serie/bcdata.sgs.11/dados/ultimos/1?formato=json"

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ClientOrigin:       strings.TrimRight(valueOrDefault(k.String("CLIENT_ORIGIN"), "http://localhost:5173"), "/"),

		AdminLogin:        strings.TrimSpace(k.String("ADMIN_LOGIN")),
		AdminPassword:     k.String("ADMIN_PASSWORD"),
		AdminPasswordHash: strings.TrimSpace(k.String("ADMIN_PASSWORD_HASH")),

		SessionTTL:     parseDuration(k.String("SESSION_TTL"), "8760h"),
		CookieName:     valueOrDefault(k.String("SESSION_COOKIE_NAME"), "cotacao_session"),
		CookieDomain:   strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:   parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite: parseSameSite(k.String("COOKIE_SAMESITE")),

		PTAXEndpoint:     valueOrDefault(k.String("PTAX_ENDPOINT"), defaultPTAXEndpoint),
		PTAXFallbackRate: parseFloat(k.String("PTAX_FALLBACK_RATE"), 5.0),
		PTAXTimeout:      parseDuration(k.String("PTAX_TIMEOUT"), "3s"),
		PTAXCacheTTL:     parseDuration(k.String("PTAX_CACHE_TTL"), "1h"),

		SummaryCacheTTL: parseDuration(k.String("SUMMARY_CACHE_TTL"), "30s"),

		SupplierPasswordDays: parseInt(k.String("SUPPLIER_PASSWORD_DAYS"), 14),
		QuotationExpiryDays:  parseInt(k.String("QUOTATION_EXPIRY_DAYS"), 14),

		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),
		LoginRateMax:    parseInt(k.String("LOGIN_RATE_MAX"), 10),
		GlobalRateLimit: valueOrDefault(k.String("GLOBAL_RATE_LIMIT"), "300-M"),

		ExpirySweepInterval: parseDuration(k.String("EXPIRY_SWEEP_INTERVAL"), "5m"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AdminLogin == "" {
		return nil, errors.New("ADMIN_LOGIN is required")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if cfg.PTAXFallbackRate <= 0 {
		return nil, errors.New("PTAX_FALLBACK_RATE must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(trimmed, "%g", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
