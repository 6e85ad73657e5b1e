// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret is used when JWT_SECRET is unset. It is refused in production.
const DevJWTSecret = "mutual-aid-dev-secret"

type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether an external identity provider is configured.
func (c OIDCConfig) Enabled() bool {
	return c.Issuer != "" && c.ClientID != ""
}

type Config struct {
	Env             string
	Addr            string
	JWTSecret       string
	TokenTTL        time.Duration
	CookieSecure    bool
	CookieHTTPOnly  bool
	CORSOrigins     []string
	AdminAccessCode string
	BcryptCost      int
	AuthRateLimit   float64
	AuthRateBurst   int
	OIDC            OIDCConfig
}

// ConfigFromEnv reads config from env vars, falling back to development defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		Env:             envOr("APP_ENV", "development"),
		Addr:            envOr("HTTP_ADDR", "0.0.0.0:8431"),
		JWTSecret:       envOr("JWT_SECRET", DevJWTSecret),
		TokenTTL:        durationOr("AUTH_TOKEN_TTL", 720*time.Hour),
		CookieSecure:    boolOr("COOKIE_SECURE", false),
		CookieHTTPOnly:  boolOr("COOKIE_HTTP_ONLY", true),
		CORSOrigins:     splitList(envOr("CORS_ORIGINS", "http://localhost:3000")),
		AdminAccessCode: os.Getenv("ADMIN_ACCESS_CODE"),
		BcryptCost:      intOr("BCRYPT_COST", 12),
		AuthRateLimit:   floatOr("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:   intOr("AUTH_RATE_BURST", 10),
		OIDC: OIDCConfig{
			Issuer:       os.Getenv("OIDC_ISSUER"),
			ClientID:     os.Getenv("OIDC_CLIENT_ID"),
			ClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		},
	}
	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate rejects configurations that must never reach production.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.JWTSecret == DevJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}
	if c.AuthRateLimit <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_BURST must be positive")
	}
	if c.OIDC.Enabled() && c.OIDC.RedirectURL == "" {
		return errors.New("OIDC_REDIRECT_URL is required when OIDC_ISSUER is set")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func boolOr(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func intOr(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func floatOr(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
