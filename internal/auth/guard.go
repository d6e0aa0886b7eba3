package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/beemart/server/internal/metrics"
	"github.com/beemart/server/internal/model"
	"github.com/beemart/server/internal/repo"
)

// AdminGuard decides per request whether a bearer token belongs to an
// admin. The account is re-read on every call, so a revoked privilege
// applies on the next request.
type AdminGuard struct {
	jwtService *JWTService
	accounts   repo.AccountRepo
	metrics    *metrics.Metrics
}

func NewAdminGuard(jwtService *JWTService, accounts repo.AccountRepo, m *metrics.Metrics) *AdminGuard {
	return &AdminGuard{jwtService: jwtService, accounts: accounts, metrics: m}
}

// Authorize checks an Authorization header value. It returns ErrUnauthorized
// for any token or account lookup problem and ErrForbidden for a valid
// non-admin account.
func (g *AdminGuard) Authorize(ctx context.Context, header string) (model.Account, error) {
	token, ok := BearerToken(header)
	if !ok {
		g.metrics.GuardDecision("unauthorized")
		return model.Account{}, ErrUnauthorized
	}
	account, err := g.Authenticate(ctx, token)
	if err != nil {
		g.metrics.GuardDecision("unauthorized")
		return model.Account{}, err
	}
	if !account.IsAdmin() {
		g.metrics.GuardDecision("forbidden")
		return model.Account{}, ErrForbidden
	}
	g.metrics.GuardDecision("allowed")
	return account, nil
}

// Authenticate resolves an access token to its current account.
func (g *AdminGuard) Authenticate(ctx context.Context, token string) (model.Account, error) {
	claims, err := g.jwtService.VerifyAccessToken(token)
	if err != nil || claims.UserID == uuid.Nil {
		return model.Account{}, ErrUnauthorized
	}
	account, err := g.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, ErrUnauthorized
		}
		return model.Account{}, err
	}
	return account, nil
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
