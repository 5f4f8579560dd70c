package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateStore struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.ttls[key] = ttl
	}
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string {
	return "rl:" + scope
}

func sendRateLimited(handler http.Handler, ip, profile string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/promo", nil)
	req.RemoteAddr = ip + ":5678"
	if profile != "" {
		req = req.WithContext(WithProfileID(req.Context(), profile))
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestRateLimitBlocksProfileOverLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("promo", time.Minute, 0, 2), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		resp := sendRateLimited(handler, "1.2.3.4", "p-1")
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp := sendRateLimited(handler, "1.2.3.4", "p-1")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))
	assert.Contains(t, resp.Body.String(), "RATE_LIMIT_EXCEEDED")

	// Another profile has its own window.
	resp = sendRateLimited(handler, "1.2.3.4", "p-2")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, time.Minute, store.ttls["rl:promo:profile:p-1"])
}

func TestRateLimitCountsForwardedIP(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("promo", time.Minute, 1, 0), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(1), store.counts["rl:promo:ip:9.9.9.9"])
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("promo", 0, 1, 1), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		resp := sendRateLimited(handler, "1.2.3.4", "p-1")
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Empty(t, store.counts)

	handler = RateLimit(NewRateLimitPolicy("promo", time.Minute, 1, 1), nil, nil)(okHandler())
	resp := sendRateLimited(handler, "1.2.3.4", "p-1")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("connection refused")
	handler := RateLimit(NewRateLimitPolicy("promo", time.Minute, 5, 5), store, nil)(okHandler())

	resp := sendRateLimited(handler, "1.2.3.4", "p-1")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
}
