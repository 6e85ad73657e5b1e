// Package httpx provides helper functions for JSON HTTP responses.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
)

const maxBody = 1 << 20

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Fail maps err to a status code and writes its public message. Unknown
// errors are logged and answered with a generic 500.
func Fail(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Errorw("request failed", "err", err)
		}
		Error(w, status, "internal error")
		return
	}
	body := map[string]string{"error": apperr.PublicMessage(err)}
	if field := apperr.FieldOf(err); field != "" {
		body["field"] = field
	}
	JSON(w, status, body)
}

// Decode reads a JSON request body into v. Decoding failures other than
// field validation errors are reported as invalid payload.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		var invalid *apperr.ValidationError
		if errors.As(err, &invalid) {
			return invalid
		}
		return apperr.Invalid("body", "invalid payload")
	}
	return nil
}
