package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/marketplace-be/internal/services"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, ErrorResponse{Message: message, Error: detail})
}

// decodeJSON reads a JSON body into dst, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// respondError maps a service error to its HTTP status. Unknown errors are
// logged and reported as 500 with internalMsg and no detail.
func respondError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg, internalMsg string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "Validation failed", vErr.Error())
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", "")
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "User already exists", "")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid email or password", "")
	case errors.Is(err, services.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "Invalid category", "")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg, "")
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(internalMsg)
		writeError(w, http.StatusInternalServerError, internalMsg, "")
	}
}

// urlParam returns the decoded chi URL parameter. chi matches on
// r.URL.RawPath when it is set and on the already decoded r.URL.Path
// otherwise, so only the former needs unescaping.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}
	return value
}
