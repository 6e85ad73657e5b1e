package group

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
)

// Handler exposes HTTP endpoints for groups and subgroup membership.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	g, err := h.svc.Get(r.Context(), p.User)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var in CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		h.logger.Debugw("invalid group payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	g, err := h.svc.Create(r.Context(), p.User, in)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	g, err := h.svc.Join(r.Context(), p.User, chi.URLParam(r, "name"))
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}
