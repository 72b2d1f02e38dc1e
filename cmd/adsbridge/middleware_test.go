package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/api/handlers"
	"github.com/BaSui01/adsbridge/config"
	"github.com/BaSui01/adsbridge/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_ChainedWithOtherMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	handler := Chain(inner, SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Regexp(t, `^req-[0-9a-f-]{36}$`, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), seen)
	})

	t.Run("preserved", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "client-42")
		handler.ServeHTTP(w, r)
		assert.Equal(t, "client-42", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "client-42", seen)
	})
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(types.ErrInternalError), errorCode(t, w))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/v1/runs", "/api/v1/runs"},
		{"/api/v1/tasks/stop", "/api/v1/tasks/stop"},
		{"/api/v1/profiles/jk1x2y3/start", "/api/v1/profiles/:id/start"},
		{"/api/v1/profiles/kq9/status", "/api/v1/profiles/:id/status"},
		{"/api/v1/unknown/12345", "/api/v1/unknown/:id"},
		{"/api/v1/unknown/550e8400-e29b-41d4-a716-446655440000", "/api/v1/unknown/:id"},
		{"/api/v1/unknown/abc", "/api/v1/unknown/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		header     string
		query      string
		allowQuery bool
		wantStatus int
	}{
		{name: "valid header", path: "/api/v1/runs", header: "k1", wantStatus: http.StatusOK},
		{name: "missing key", path: "/api/v1/runs", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", path: "/api/v1/runs", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "skip path", path: "/health", wantStatus: http.StatusOK},
		{name: "query key allowed", path: "/api/v1/runs", query: "k2", allowQuery: true, wantStatus: http.StatusOK},
		{name: "query key rejected", path: "/api/v1/runs", query: "k2", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := APIKeyAuth([]string{"k1", "k2"}, skipAuthPaths, tt.allowQuery, zap.NewNop())(okHandler())

			target := tt.path
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			r := httptest.NewRequest(http.MethodPost, target, nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, string(types.ErrUnauthorized), errorCode(t, w))
			}
		})
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret", Issuer: "adsbridge-test"}

	var userID string
	handler := JWTAuth(cfg, skipAuthPaths, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ = types.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name       string
		auth       string
		wantStatus int
		wantUser   string
	}{
		{
			name:       "user_id claim",
			auth:       "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{"user_id": "u-1", "iss": "adsbridge-test", "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-1",
		},
		{
			name:       "sub fallback",
			auth:       "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-2", "iss": "adsbridge-test", "exp": exp}),
			wantStatus: http.StatusOK,
			wantUser:   "u-2",
		},
		{
			name:       "wrong secret",
			auth:       "Bearer " + signHS256(t, "other", jwt.MapClaims{"sub": "u-3", "iss": "adsbridge-test", "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong issuer",
			auth:       "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-4", "iss": "someone-else", "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			auth:       "Bearer " + signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-5", "iss": "adsbridge-test", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID = ""
			r := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, userID)
		})
	}
}

func TestAnyAuth(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s3cret"}
	handler := AnyAuth(
		APIKeyAuth([]string{"k1"}, skipAuthPaths, false, zap.NewNop()),
		JWTAuth(cfg, skipAuthPaths, zap.NewNop()),
	)(okHandler())

	byKey := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
	byKey.Header.Set("X-API-Key", "k1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, byKey)
	assert.Equal(t, http.StatusOK, w.Code)

	byToken := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
	byToken.Header.Set("Authorization", "Bearer "+signHS256(t, "s3cret", jwt.MapClaims{"sub": "u"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, byToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimiter(ctx, 1, 2, zap.NewNop())(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// 其他 IP 不受影响
	r := httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil)
	r.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin", func(t *testing.T) {
		handler := CORS([]string{"https://console.example.com"})(okHandler())
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
		r.Header.Set("Origin", "https://console.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins configured", func(t *testing.T) {
		handler := CORS(nil)(okHandler())
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
