package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/beemart/server/internal/auth"
	"github.com/beemart/server/internal/model"
)

type contextKey string

const accountKey contextKey = "account"

// AccessTokenCookie is the cookie set by login and verify-email
const AccessTokenCookie = "access_token"

// AuthMiddleware authenticates the request by bearer token, falling back to
// the access_token cookie, and attaches the current account to the context.
func AuthMiddleware(guard *auth.AdminGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := requestToken(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			account, err := guard.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				hlog.FromRequest(r).Error().Err(err).Msg("authenticate request")
				respondWithError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// RequireAdmin runs the admin guard on the Authorization header and stops
// the request with 401 or 403 before the handler runs.
func RequireAdmin(guard *auth.AdminGuard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := guard.Authorize(r.Context(), r.Header.Get("Authorization"))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
			case errors.Is(err, auth.ErrUnauthorized):
				respondWithError(w, http.StatusUnauthorized, "invalid or missing token")
			case errors.Is(err, auth.ErrForbidden):
				hlog.FromRequest(r).Warn().Str("path", r.URL.Path).Msg("admin access denied")
				respondWithError(w, http.StatusForbidden, auth.ErrForbidden.Error())
			default:
				hlog.FromRequest(r).Error().Err(err).Msg("authorize request")
				respondWithError(w, http.StatusInternalServerError, "internal server error")
			}
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		return auth.BearerToken(header)
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// WithAccount returns ctx carrying account
func WithAccount(ctx context.Context, account model.Account) context.Context {
	return context.WithValue(ctx, accountKey, account)
}

// GetAccount returns the account attached by AuthMiddleware or RequireAdmin
func GetAccount(ctx context.Context) (model.Account, bool) {
	a, ok := ctx.Value(accountKey).(model.Account)
	return a, ok
}

// respondWithError sends an error envelope
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": message,
		"error":   true,
		"meta":    map[string]any{},
	})
}
