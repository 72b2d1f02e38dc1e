package httpclient

import (
	"crypto/tls"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/adsbridge/types"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotEmpty(t, cfg.CipherSuites)
	for _, cs := range cfg.CipherSuites {
		switch cs {
		case tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305:
		default:
			t.Errorf("unexpected non-AEAD cipher suite: %d", cs)
		}
	}
}

func TestNew(t *testing.T) {
	c := New(15 * time.Second)
	assert.Equal(t, 15*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.ForceAttemptHTTP2)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)

	assert.Zero(t, New(0).Timeout)
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested error", `{"error":{"message":"bad key"}}`, "bad key"},
		{"string error", `{"error":"boom"}`, "boom"},
		{"detail", `{"detail":"Not Found"}`, "Not Found"},
		{"msg", `{"code":-1,"msg":"user_id is required"}`, "user_id is required"},
		{"plain text", "  gateway down \n", "gateway down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadErrorMessage(strings.NewReader(tt.body)))
		})
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{http.StatusTooManyRequests, types.ErrRateLimited, true},
		{http.StatusUnauthorized, types.ErrUnauthorized, false},
		{http.StatusForbidden, types.ErrForbidden, false},
		{http.StatusNotFound, types.ErrNotFound, false},
		{http.StatusGatewayTimeout, types.ErrTimeout, true},
		{http.StatusInternalServerError, types.ErrUpstreamError, true},
		{http.StatusBadRequest, types.ErrUpstreamError, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := MapHTTPError(tt.status, "", types.ServiceBrowserUse)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Zero(t, err.HTTPStatus)
			assert.Equal(t, tt.status, UpstreamStatus(err))
			assert.Equal(t, types.ServiceBrowserUse, err.Service)
			assert.Equal(t, http.StatusText(tt.status), err.Message)
		})
	}
}

func TestUpstreamStatus_NotPresent(t *testing.T) {
	assert.Zero(t, UpstreamStatus(types.NewError(types.ErrInternalError, "x")))
	assert.Zero(t, UpstreamStatus(nil))
}
