package claim

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

var statusOK = map[string]string{"status": "ok"}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	claims, err := h.svc.List(r.Context(), p.User)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, claims)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var in CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		h.logger.Debugw("invalid claim payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), p.User, in)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	c, err := h.svc.Get(r.Context(), p.User, chi.URLParam(r, "claimID"))
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var in EditInput
	if err := httpx.Decode(r, &in); err != nil {
		h.logger.Debugw("invalid claim edit payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.Edit(r.Context(), p.User, chi.URLParam(r, "claimID"), in); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusOK)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.svc.Approve(r.Context(), p.User, chi.URLParam(r, "claimID")); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusOK)
}

func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	if err := h.svc.Deny(r.Context(), p.User, chi.URLParam(r, "claimID")); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statusOK)
}
