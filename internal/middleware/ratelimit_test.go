package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(10*time.Minute, 3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("email:jane@x.com"), "request %d", i+1)
		now = now.Add(time.Minute)
	}
	assert.False(t, rl.Allow("email:jane@x.com"))
	assert.True(t, rl.Allow("email:other@x.com"), "keys are independent")

	// first request leaves the window
	now = now.Add(7*time.Minute + time.Second)
	assert.True(t, rl.Allow("email:jane@x.com"))
	assert.False(t, rl.Allow("email:jane@x.com"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(time.Minute, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(30 * time.Second)
	rl.Allow("b")
	now = now.Add(45 * time.Second)

	rl.sweep()
	assert.NotContains(t, rl.requests, "a")
	assert.Contains(t, rl.requests, "b")
}

func TestRateLimitExceeded(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimitExceeded(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"rate limit exceeded","error":true,"meta":{}}`, rec.Body.String())
}
