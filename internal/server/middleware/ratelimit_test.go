package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubLimiter returns a fixed decision.
type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func doRequest(limiter *stubLimiter, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	handler := RateLimit(limiter, 10, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/swap", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_Allows(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allowed: true}
	rec := doRequest(limiter, "10.0.0.1:4242", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"ratelimit:api:10.0.0.1"}, limiter.keys)
}

func TestRateLimit_Rejects(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allowed: false}
	rec := doRequest(limiter, "10.0.0.1:4242", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"error":"rate limit exceeded"}`, rec.Body.String(),
		"rejections carry the same body shape as handler errors")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allowed: false, err: errors.New("redis down")}
	rec := doRequest(limiter, "10.0.0.1:4242", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "limiter errors must not block traffic")
}

func TestRateLimit_ClientIPFromProxyHeaders(t *testing.T) {
	t.Parallel()

	limiter := &stubLimiter{allowed: true}
	doRequest(limiter, "10.0.0.1:4242", map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
	})
	assert.Equal(t, []string{"ratelimit:api:203.0.113.7"}, limiter.keys)

	limiter = &stubLimiter{allowed: true}
	doRequest(limiter, "10.0.0.1:4242", map[string]string{
		"X-Real-IP": "203.0.113.9",
	})
	assert.Equal(t, []string{"ratelimit:api:203.0.113.9"}, limiter.keys)
}
