package setting

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
)

// Handler contains dependencies for handling setting endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type settingsBody struct {
	Settings []entity.Setting `json:"settings"`
}

// List returns the caller's notification preferences.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	out, err := h.svc.List(r.Context(), p.User.ID)
	if err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsBody{Settings: out})
}

// Replace overwrites the caller's notification preferences.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	var body settingsBody
	if err := httpx.Decode(r, &body); err != nil {
		h.logger.Debugw("invalid settings payload", "err", err)
		httpx.Fail(w, h.logger, err)
		return
	}
	if err := h.svc.Replace(r.Context(), p.User.ID, body.Settings); err != nil {
		httpx.Fail(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settingsBody{Settings: body.Settings})
}
