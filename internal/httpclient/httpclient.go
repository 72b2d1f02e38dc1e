package httpclient

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/adsbridge/types"
)

// maxErrorBody bounds how much of an error response is read into memory.
const maxErrorBody = 64 << 10

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// Transport returns an http.Transport tuned for a small number of local
// upstreams. Both services usually listen on loopback, so the idle pool
// is kept per host rather than global.
func Transport() *http.Transport {
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// New returns an http.Client with the hardened transport.
// timeout <= 0 means no client-side deadline; callers then rely on ctx.
func New(timeout time.Duration) *http.Client {
	c := &http.Client{Transport: Transport()}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return c
}

// ReadErrorMessage 读取响应体中的错误消息
// 依次尝试 {"error":{"message"}}、{"detail"}、{"msg"}，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error  json.RawMessage `json:"error"`
		Detail any             `json:"detail"`
		Msg    string          `json:"msg"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if len(errResp.Error) > 0 {
			if json.Unmarshal(errResp.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var s string
			if json.Unmarshal(errResp.Error, &s) == nil && s != "" {
				return s
			}
		}
		if errResp.Detail != nil {
			return fmt.Sprint(errResp.Detail)
		}
		if errResp.Msg != "" {
			return errResp.Msg
		}
	}

	return strings.TrimSpace(string(data))
}

// MapHTTPError 将上游 HTTP 状态码映射为 types.Error。
// 上游状态码只进入 Cause，HTTPStatus 留空，由 API 层按错误码决定对外状态。
func MapHTTPError(status int, msg, service string) *types.Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := types.NewError(types.ErrUpstreamError, msg).
		WithService(service).
		WithCause(&StatusError{StatusCode: status})

	switch {
	case status == http.StatusTooManyRequests:
		err.Code = types.ErrRateLimited
		err.Retryable = true
	case status == http.StatusUnauthorized:
		err.Code = types.ErrUnauthorized
	case status == http.StatusForbidden:
		err.Code = types.ErrForbidden
	case status == http.StatusNotFound:
		err.Code = types.ErrNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		err.Code = types.ErrTimeout
		err.Retryable = true
	case status >= 500:
		err.Retryable = true
	}
	return err
}

// StatusError records the HTTP status an upstream answered with.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

// UpstreamStatus returns the upstream HTTP status recorded in err, or 0.
func UpstreamStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
