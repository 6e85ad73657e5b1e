package oauth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

const (
	stateCookie    = "x-oauth-state"
	verifierCookie = "x-oauth-verifier"
	flowTTL        = 10 * time.Minute
)

// Accounts maps an external identity onto a local user.
type Accounts interface {
	FindOrCreateOAuth(ctx context.Context, subject, email, name string) (*entity.User, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, u *entity.User) (string, error)
}

type Handler struct {
	provider Provider
	accounts Accounts
	tokens   TokenIssuer
	cookie   auth.CookieConfig
	logger   *zap.SugaredLogger
}

func NewHandler(provider Provider, accounts Accounts, tokens TokenIssuer, cookie auth.CookieConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{provider: provider, accounts: accounts, tokens: tokens, cookie: cookie, logger: logger}
}

// Login starts the authorization-code flow with PKCE.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()
	h.setFlowCookie(w, stateCookie, state, int(flowTTL.Seconds()))
	h.setFlowCookie(w, verifierCookie, verifier, int(flowTTL.Seconds()))
	http.Redirect(w, r, h.provider.AuthCodeURL(state, verifier), http.StatusFound)
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Infow("oauth provider returned error", "error", e, "description", q.Get("error_description"))
		httpx.Fail(w, h.logger, apperr.Unauthenticated("identity provider refused the login"))
		return
	}
	stateC, err1 := r.Cookie(stateCookie)
	verifierC, err2 := r.Cookie(verifierCookie)
	if err1 != nil || err2 != nil || subtle.ConstantTimeCompare([]byte(stateC.Value), []byte(q.Get("state"))) != 1 {
		httpx.Fail(w, h.logger, apperr.Unauthenticated("invalid oauth state"))
		return
	}
	code := q.Get("code")
	if code == "" {
		httpx.Fail(w, h.logger, apperr.Invalid("code", "missing authorization code"))
		return
	}
	h.setFlowCookie(w, stateCookie, "", -1)
	h.setFlowCookie(w, verifierCookie, "", -1)

	id, err := h.provider.Exchange(r.Context(), code, verifierC.Value)
	if err != nil {
		h.logger.Warnw("oauth exchange failed", "err", err)
		httpx.Fail(w, h.logger, apperr.Unauthenticated("invalid credentials provided, acquire new credentials"))
		return
	}
	u, err := h.accounts.FindOrCreateOAuth(r.Context(), id.Subject, id.Email, id.Name)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	tok, err := h.tokens.Issue(r.Context(), u)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	auth.SetCookie(w, h.cookie, tok)
	h.logger.Infow("oauth login", "user_id", u.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) setFlowCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth/oauth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
