package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.lumeweb.com/portal-plugin-payments/internal/api/messages"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.lumeweb.com/portal-plugin-payments/internal/operations"
	"go.lumeweb.com/portal-plugin-payments/internal/service"
	"go.lumeweb.com/portal-plugin-payments/internal/storage"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.error(w, core.NewValidationError("invalid request body: %v", err))
		return false
	}
	return true
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (a *API) error(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}

	a.writeJSON(w, status, &messages.ErrorResponse{Error: errorBody(err)})
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, service.ErrInvalidSignature) {
		return http.StatusUnauthorized
	}

	switch core.KindOf(err) {
	case core.ErrValidation:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrDuplicateRecord:
		return http.StatusConflict
	case core.ErrDownstream:
		return http.StatusBadGateway
	case core.ErrConsistency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) messages.ErrorBody {
	kind := core.KindName(err)
	body := messages.ErrorBody{Type: kind, Code: kind, Message: err.Error()}

	var fe *operations.FlowError
	if errors.As(err, &fe) {
		body.Code = fe.Code
	}
	if errors.Is(err, operations.ErrPartialWrite) {
		body.Code = "partial_write"
	}
	switch {
	case errors.Is(err, storage.ErrNotSupported):
		body.Code = "not_supported"
	case errors.Is(err, storage.ErrCacheUnavailable):
		body.Code = "cache_unavailable"
	case core.KindOf(err) == core.ErrInternal:
		body.Message = "internal error"
	}

	return body
}
