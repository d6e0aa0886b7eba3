package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beemart/server/internal/auth"
)

// TestAuthE2E runs the HTTP flows against a real database.
// Deterministic: Truncate before each section.
func TestAuthE2E(t *testing.T) {
	ts := newTestServer(t)

	t.Run("A_Health", func(t *testing.T) {
		ts.Truncate(t)
		status, env := ts.callEnvelope(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok", env.Meta["status"])
	})

	t.Run("B_FullFlow", func(t *testing.T) {
		ts.Truncate(t)
		token := ts.register(t, "Jane@X.com")

		status, env := ts.callEnvelope(t, http.MethodGet, "/v1/my-profile", token, nil)
		require.Equal(t, http.StatusOK, status, env.Message)
		assert.Equal(t, "jane@x.com", env.Meta["email"])

		status, env = ts.callEnvelope(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "jane@x.com", "password": "pw123456",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, env.Meta["profile_verified"])

		status, env = ts.callEnvelope(t, http.MethodPost, "/v1/auth/verify-email", "", map[string]string{
			"email": "jane@x.com", "otp": "123456",
		})
		assert.Equal(t, http.StatusBadRequest, status, "a consumed code cannot be reused")
		assert.Equal(t, auth.ErrInvalidCode.Error(), env.Message)

		status, _ = ts.callEnvelope(t, http.MethodPost, "/v1/auth/resend-otp", "", map[string]string{
			"email": "jane@x.com",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("C_OTPIssueLimit", func(t *testing.T) {
		ts.Truncate(t)
		body := map[string]string{"full_name": "Limit", "email": "limit@x.com", "password": "pw123456"}
		status, _ := ts.callEnvelope(t, http.MethodPost, "/v1/auth/register", "", body)
		require.Equal(t, http.StatusCreated, status)

		last := 0
		for i := 0; i < 5; i++ {
			last, _ = ts.callEnvelope(t, http.MethodPost, "/v1/auth/resend-otp", "", map[string]string{"email": "limit@x.com"})
			if last == http.StatusTooManyRequests {
				break
			}
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})

	t.Run("D_CatalogGuard", func(t *testing.T) {
		ts.Truncate(t)
		userToken := ts.register(t, "shopper@x.com")

		status, _ := ts.call(t, http.MethodPost, "/categories/", userToken, map[string]string{"name": "Shoes"})
		assert.Equal(t, http.StatusForbidden, status)
		status, _ = ts.call(t, http.MethodPost, "/categories/", "", map[string]string{"name": "Shoes"})
		assert.Equal(t, http.StatusUnauthorized, status)

		_, err := ts.Auth.CreateSuperuser(context.Background(), auth.RegisterInput{
			FullName: "Root", Email: "root@x.com", Password: "rootpass1",
		})
		require.NoError(t, err)
		status, env := ts.callEnvelope(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"email": "root@x.com", "password": "rootpass1",
		})
		require.Equal(t, http.StatusOK, status)
		adminToken := env.Meta["access_token"].(string)

		status, raw := ts.call(t, http.MethodPost, "/categories/", adminToken, map[string]string{"name": "Shoes"})
		require.Equal(t, http.StatusCreated, status, string(raw))
		var created struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(raw, &created))
		assert.Positive(t, created.ID)

		status, raw = ts.call(t, http.MethodGet, "/categories/"+strconv.FormatInt(created.ID, 10), "", nil)
		assert.Equal(t, http.StatusOK, status, string(raw))

		status, _ = ts.call(t, http.MethodGet, "/warehouses/", userToken, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, _ = ts.call(t, http.MethodPost, "/products/", adminToken, map[string]any{
			"title": "Orphan", "brand_id": 9999,
		})
		assert.Equal(t, http.StatusBadRequest, status, "foreign key violations are client errors")
	})
}
