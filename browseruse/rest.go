package browseruse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/internal/httpclient"
	"github.com/BaSui01/adsbridge/types"
)

// maxResponseBody bounds a single result payload.
const maxResponseBody = 32 << 20

// RESTTransport 以 JSON 对象调用 {base}/api/{name}
type RESTTransport struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	logger  *zap.Logger
}

// RESTOption 配置 RESTTransport
type RESTOption func(*RESTTransport)

// WithRESTHeader 为每个请求附加固定请求头
func WithRESTHeader(key, value string) RESTOption {
	return func(t *RESTTransport) {
		t.headers[key] = value
	}
}

// NewRESTTransport 创建 REST 传输。client 为 nil 时使用 httpclient.New(0)。
func NewRESTTransport(baseURL string, client *http.Client, logger *zap.Logger, opts ...RESTOption) *RESTTransport {
	if client == nil {
		client = httpclient.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &RESTTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		headers: make(map[string]string),
		logger:  logger.With(zap.String("component", "browseruse_rest")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call implements Transport.
func (t *RESTTransport) Call(ctx context.Context, op Operation, params Params) (json.RawMessage, error) {
	if !op.Valid() {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unknown operation %s", op))
	}

	payload, err := json.Marshal(params.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", op, err)
	}

	url := t.baseURL + "/api" + op.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	t.logger.Debug("calling automation endpoint", zap.String("url", url))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, upstreamError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := httpclient.ReadErrorMessage(resp.Body)
		return nil, httpclient.MapHTTPError(resp.StatusCode, msg, types.ServiceBrowserUse)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, upstreamError(op, err)
	}
	if len(data) > maxResponseBody {
		return nil, types.NewError(types.ErrUpstreamError,
			fmt.Sprintf("%s response exceeds limit of %d bytes", op, maxResponseBody)).
			WithService(types.ServiceBrowserUse)
	}
	return normalizePayload(data), nil
}

// upstreamError wraps a transport-level failure; the cause stays reachable
// so errors.Is(err, context.DeadlineExceeded) still holds.
func upstreamError(op Operation, err error) *types.Error {
	code := types.ErrUpstreamError
	if errors.Is(err, context.DeadlineExceeded) {
		code = types.ErrTimeout
	}
	return types.NewError(code, fmt.Sprintf("%s call failed", op)).
		WithService(types.ServiceBrowserUse).
		WithRetryable(true).
		WithCause(err)
}
