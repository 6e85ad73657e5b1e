package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

type fakeProvider struct {
	identity     Identity
	err          error
	gotVerifier  string
	lastVerifier string
}

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	p.lastVerifier = verifier
	return "https://idp.example/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code, verifier string) (Identity, error) {
	p.gotVerifier = verifier
	if p.err != nil {
		return Identity{}, p.err
	}
	return p.identity, nil
}

type fakeAccounts struct{ subject, email string }

func (a *fakeAccounts) FindOrCreateOAuth(_ context.Context, subject, email, _ string) (*entity.User, error) {
	a.subject, a.email = subject, email
	return &entity.User{ID: "u1", Email: email}, nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(context.Context, *entity.User) (string, error) { return "tok-1", nil }

func newHandler(p *fakeProvider, a *fakeAccounts) *Handler {
	return NewHandler(p, a, fakeTokens{}, auth.CookieConfig{TTL: time.Hour, HTTPOnly: true}, zap.NewNop().Sugar())
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestLoginAndCallback(t *testing.T) {
	p := &fakeProvider{identity: Identity{Subject: "sub-1", Email: "ada@example.com", Name: "Ada"}}
	a := &fakeAccounts{}
	h := newHandler(p, a)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/oauth/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	flow := cookiesByName(rec)
	require.Equal(t, state, flow[stateCookie].Value)
	require.Equal(t, p.lastVerifier, flow[verifierCookie].Value)

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state="+url.QueryEscape(state), nil)
	req.AddCookie(flow[stateCookie])
	req.AddCookie(flow[verifierCookie])
	rec = httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "tok-1", cookiesByName(rec)[auth.CookieName].Value)
	assert.Equal(t, "sub-1", a.subject)
	assert.Equal(t, p.lastVerifier, p.gotVerifier)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	h := newHandler(&fakeProvider{}, &fakeAccounts{})
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "real"})
	req.AddCookie(&http.Cookie{Name: verifierCookie, Value: "v"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state=x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackExchangeFailure(t *testing.T) {
	h := newHandler(&fakeProvider{err: errors.New("bad code")}, &fakeAccounts{})
	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state=s", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s"})
	req.AddCookie(&http.Cookie{Name: verifierCookie, Value: "v"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid credentials provided, acquire new credentials"}`, rec.Body.String())
}

func TestCallbackProviderError(t *testing.T) {
	h := newHandler(&fakeProvider{}, &fakeAccounts{})
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
