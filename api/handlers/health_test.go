package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readiness(t *testing.T, h *HealthHandler) (int, ServiceHealthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp ServiceHealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func pass(context.Context) error { return nil }

func TestHealthHandler_HandleLive(t *testing.T) {
	h := NewHealthHandler(nil)
	var probed atomic.Bool
	h.RegisterCheck(NewHealthCheck("adspower", func(context.Context) error {
		probed.Store(true)
		return errors.New("connection refused")
	}))

	w := httptest.NewRecorder()
	h.HandleLive(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, probed.Load(), "liveness must not touch dependencies")
}

func TestHealthHandler_HandleReady(t *testing.T) {
	refused := func(context.Context) error { return errors.New("dial tcp 127.0.0.1:50325: connection refused") }

	tests := []struct {
		name       string
		adspower   func(context.Context) error
		redis      func(context.Context) error
		wantCode   int
		wantStatus string
	}{
		{"all pass", pass, pass, http.StatusOK, StatusHealthy},
		{"redis down degrades", pass, refused, http.StatusOK, StatusDegraded},
		{"adspower down", refused, pass, http.StatusServiceUnavailable, StatusUnhealthy},
		{"both down", refused, refused, http.StatusServiceUnavailable, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(zap.NewNop())
			h.RegisterCheck(NewHealthCheck("adspower", tt.adspower))
			h.RegisterOptionalCheck(NewHealthCheck("redis", tt.redis))

			code, resp := readiness(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			require.Len(t, resp.Checks, 2)
			assert.True(t, resp.Checks["redis"].Optional)
			assert.False(t, resp.Checks["adspower"].Optional)
		})
	}
}

func TestHealthHandler_ReadyReportsFailureMessage(t *testing.T) {
	h := NewHealthHandler(nil)
	h.RegisterCheck(NewHealthCheck("adspower", func(context.Context) error {
		return errors.New("Too many request per second, please check")
	}))

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "fail", resp.Checks["adspower"].Status)
	assert.Equal(t, "Too many request per second, please check", resp.Checks["adspower"].Message)
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	h := NewHealthHandler(nil)
	h.timeout = 20 * time.Millisecond
	h.RegisterCheck(NewHealthCheck("adspower", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks["adspower"].Message)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	h := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	h.HandleVersion("1.2.0", "2026-10-01T00:00:00Z", "4f2c9e1")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.2.0", data["version"])
	assert.Equal(t, "4f2c9e1", data["git_commit"])
}
