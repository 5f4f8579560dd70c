package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/angelmondragon/ticketcart/pkg/auth"
	"github.com/angelmondragon/ticketcart/pkg/config"
	"github.com/angelmondragon/ticketcart/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	handler := Auth(cfg, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	handler := Auth(cfg, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret"}
	token, err := pkgAuth.MintBuyerToken(cfg, time.Now(), time.Hour, "ayu", 42, "USER")
	require.NoError(t, err)

	var captured struct {
		buyer int64
		role  string
		token string
	}
	handler := Auth(cfg, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.buyer = BuyerIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.token = BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	assert.Equal(t, int64(42), captured.buyer)
	assert.Equal(t, "USER", captured.role)
	assert.Equal(t, token, captured.token)
}

func TestProfileGeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := Profile(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProfileIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, resp.Header().Get(ProfileHeader))
}

func TestProfileKeepsClientValue(t *testing.T) {
	id := uuid.New()
	var seen string
	handler := Profile(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ProfileIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ProfileHeader, id.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, id.String(), seen)
	assert.Equal(t, id.String(), resp.Header().Get(ProfileHeader))
}

func TestProfileRejectsMalformedValue(t *testing.T) {
	handler := Profile(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ProfileHeader, "../../etc/passwd")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", resp.Header().Get(requestIDHeader))
}

func TestRequestIDReplacesUnsafeValue(t *testing.T) {
	handler := RequestID(logger.Nop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\r\nX-Injected: 1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	_, err := uuid.Parse(resp.Header().Get(requestIDHeader))
	require.NoError(t, err)
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecovererReturnsInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestStatusRecorderDefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("x"))
	assert.Equal(t, http.StatusOK, rec.status)
}
