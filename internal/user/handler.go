package user

import (
	"context"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

// TokenIssuer issues and revokes auth tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, u *entity.User) (string, error)
	Revoke(ctx context.Context, userID, value string) error
}

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *UserService
	tokens TokenIssuer
	cookie auth.CookieConfig
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, tokens TokenIssuer, cookie auth.CookieConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, cookie: cookie, logger: logger}
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string         `json:"token"`
	User  entity.Profile `json:"user"`
}

// ProfileResponse is the profile with a refreshed token alongside.
type ProfileResponse struct {
	Token string `json:"token"`
	entity.Profile
}

// issue refreshes the caller's token and sets the cookie. It writes the
// error response itself and reports whether the caller may continue.
func (h *Handler) issue(w http.ResponseWriter, r *http.Request, u *entity.User) (string, bool) {
	tok, err := h.tokens.Issue(r.Context(), u)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return "", false
	}
	auth.SetCookie(w, h.cookie, tok)
	return tok, true
}

func (h *Handler) respondProfile(w http.ResponseWriter, r *http.Request, u *entity.User) {
	tok, ok := h.issue(w, r, u)
	if !ok {
		return
	}
	p, err := h.svc.Profile(r.Context(), u)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ProfileResponse{Token: tok, Profile: p})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupInput
	if err := httpx.Decode(r, &req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	u, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		h.logger.Debugw("signup failed", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	tok, ok := h.issue(w, r, u)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, AuthResponse{Token: tok, User: u.Profile(nil)})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req LoginRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required.Error("email is required")),
		validation.Field(&req.Password, validation.Required.Error("password is required")),
	)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Fail(w, h.logger, apperr.FromValidation(err))
		return
	}
	u, err := h.svc.FindByCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	tok, ok := h.issue(w, r, u)
	if !ok {
		return
	}
	p, err := h.svc.Profile(r.Context(), u)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, AuthResponse{Token: tok, User: p})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.tokens.Revoke(r.Context(), p.User.ID, p.Token); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	auth.ClearCookie(w, h.cookie)
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	h.respondProfile(w, r, p.User)
}

func (h *Handler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var in SetupInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.CompleteSetup(r.Context(), p.User, in); err != nil {
		h.logger.Debugw("setup failed", "user_id", p.User.ID, "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	h.respondProfile(w, r, p.User)
}

func (h *Handler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var in WalletInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.UpdateWallet(r.Context(), p.User, in); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	h.respondProfile(w, r, p.User)
}

func (h *Handler) AddedToSmartContract(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.svc.MarkAddedToSmartContract(r.Context(), p.User); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.svc.Delete(r.Context(), p.User); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	auth.ClearCookie(w, h.cookie)
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ByID(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.PublicProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]entity.PublicProfile{"OtherUser": out})
}

func (h *Handler) ByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		httpx.Fail(w, h.logger, apperr.Invalid("email", "invalid email"))
		return
	}
	out, err := h.svc.PublicProfileByEmail(r.Context(), email)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]entity.PublicProfile{"OtherUser": out})
}
