package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/leads"
	"leadgenius-engine/internal/scout"
	"leadgenius-engine/internal/store"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// errorStatus maps engine errors onto a status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case domain.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, leads.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrInvalidFormat):
		return http.StatusBadRequest, "invalid_format"
	case errors.Is(err, scout.ErrInvalidParams):
		return http.StatusBadRequest, "invalid_params"
	case errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, store.ErrPersistFailed):
		return http.StatusInternalServerError, "persist_failed"
	case domain.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "upstream_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	WriteError(w, r, status, code, err.Error())
}
