package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/token"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

// CookieName carries the auth token for browser clients.
const CookieName = "x-auth"

const (
	msgLoggedOut = "user must be logged in"
	msgInvalid   = "invalid credentials provided, acquire new credentials"
)

// Resolver maps a presented token to its account.
type Resolver interface {
	FindByToken(ctx context.Context, value string) (*entity.User, error)
}

// TokenFromRequest returns the bearer token, falling back to the x-auth cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// Middleware authenticates the request and stores the Principal in its context.
func Middleware(resolver Resolver, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := TokenFromRequest(r)
			if value == "" {
				httpx.Error(w, http.StatusUnauthorized, msgLoggedOut)
				return
			}
			u, err := resolver.FindByToken(r.Context(), value)
			if err != nil || u == nil {
				if err != nil && !errors.Is(err, token.ErrInvalidToken) {
					logger.Warnw("token resolution failed", "err", err)
				}
				httpx.Error(w, http.StatusUnauthorized, msgInvalid)
				return
			}
			ctx := WithPrincipal(r.Context(), &Principal{User: u, Token: value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCompletedAccount rejects callers that have not finished setup.
func RequireCompletedAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, msgLoggedOut)
			return
		}
		if !p.User.AccountCompleted {
			httpx.Error(w, http.StatusForbidden, "account setup not completed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type CookieConfig struct {
	TTL      time.Duration
	Secure   bool
	HTTPOnly bool
}

// SetCookie stores value in the x-auth cookie.
func SetCookie(w http.ResponseWriter, cfg CookieConfig, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the x-auth cookie.
func ClearCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: cfg.HTTPOnly,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
