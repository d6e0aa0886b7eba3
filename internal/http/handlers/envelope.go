package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/catalog"
)

const maxBodyBytes = 1 << 20

type meta map[string]any

// envelope is the response shape of every non-resource endpoint
type envelope struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
	Meta    meta   `json:"meta"`
}

func respond(w http.ResponseWriter, statusCode int, message string, m meta) {
	if m == nil {
		m = meta{}
	}
	writeJSON(w, statusCode, envelope{Message: message, Meta: m})
}

// respondWithError sends an error envelope
func respondWithError(w http.ResponseWriter, statusCode int, message string, m meta) {
	if m == nil {
		m = meta{}
	}
	writeJSON(w, statusCode, envelope{Message: message, Error: true, Meta: m})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// writeError maps a flow error to its status. Unknown errors are logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, "invalid input", meta{"errors": verr.Fields})
	case errors.Is(err, auth.ErrAccountNotFound),
		errors.Is(err, catalog.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrExpiredCode),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, auth.ErrMissingCode),
		errors.Is(err, auth.ErrExternalAuth):
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, catalog.ErrConstraint):
		hlog.FromRequest(r).Info().Err(err).Msg("catalog constraint violation")
		respondWithError(w, http.StatusBadRequest, "invalid reference or duplicate value", nil)
	case errors.Is(err, auth.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, auth.ErrForbidden):
		respondWithError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, auth.ErrRateLimited):
		respondWithError(w, http.StatusTooManyRequests, err.Error(), nil)
	default:
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
