package browseruse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/internal/httpclient"
	"github.com/BaSui01/adsbridge/types"
)

// Gradio queue event names.
const (
	eventGenerating = "generating"
	eventComplete   = "complete"
	eventError      = "error"
	eventHeartbeat  = "heartbeat"
)

// ProgressFunc receives intermediate outputs of a streamed call.
type ProgressFunc func(op Operation, data json.RawMessage)

// GradioTransport 通过 Gradio 队列 API 调用命名端点：
// 先 POST 提交参数取得 event_id，再 GET 读取 SSE 事件流直到 complete。
type GradioTransport struct {
	baseURL    string
	client     *http.Client
	onProgress ProgressFunc
	logger     *zap.Logger
}

// GradioOption 配置 GradioTransport
type GradioOption func(*GradioTransport)

// WithProgressHandler 注册 generating 事件回调
func WithProgressHandler(fn ProgressFunc) GradioOption {
	return func(t *GradioTransport) {
		t.onProgress = fn
	}
}

// NewGradioTransport 创建 Gradio 传输
func NewGradioTransport(baseURL string, client *http.Client, logger *zap.Logger, opts ...GradioOption) *GradioTransport {
	if client == nil {
		client = httpclient.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &GradioTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With(zap.String("component", "browseruse_gradio")),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call implements Transport.
func (t *GradioTransport) Call(ctx context.Context, op Operation, params Params) (json.RawMessage, error) {
	if !op.Valid() {
		return nil, types.NewInvalidRequestError(fmt.Sprintf("unknown operation %s", op))
	}

	eventID, err := t.submit(ctx, op, params)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("gradio call queued",
		zap.String("operation", op.String()),
		zap.String("event_id", eventID))

	return t.await(ctx, op, eventID)
}

func (t *GradioTransport) callURL(op Operation) string {
	return t.baseURL + "/gradio_api/call" + op.Endpoint()
}

func (t *GradioTransport) submit(ctx context.Context, op Operation, params Params) (string, error) {
	values := params.Values()
	if values == nil {
		values = []any{}
	}
	payload, err := json.Marshal(map[string]any{"data": values})
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s params: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.callURL(op), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", upstreamError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := httpclient.ReadErrorMessage(resp.Body)
		return "", httpclient.MapHTTPError(resp.StatusCode, msg, types.ServiceBrowserUse)
	}

	var queued struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", upstreamError(op, fmt.Errorf("decode event id: %w", err))
	}
	if queued.EventID == "" {
		return "", types.NewError(types.ErrUpstreamError, fmt.Sprintf("%s: response has no event_id", op)).
			WithService(types.ServiceBrowserUse)
	}
	return queued.EventID, nil
}

func (t *GradioTransport) await(ctx context.Context, op Operation, eventID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.callURL(op)+"/"+eventID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, upstreamError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := httpclient.ReadErrorMessage(resp.Body)
		return nil, httpclient.MapHTTPError(resp.StatusCode, msg, types.ServiceBrowserUse)
	}

	var (
		result  json.RawMessage
		done    bool
		callErr error
	)
	err = readEvents(resp.Body, func(ev sseEvent) bool {
		switch ev.name {
		case eventGenerating:
			if t.onProgress != nil {
				t.onProgress(op, normalizePayload(ev.data))
			}
		case eventComplete:
			result = normalizePayload(ev.data)
			done = true
			return false
		case eventError:
			callErr = remoteTaskError(op, ev.data)
			return false
		case eventHeartbeat:
		default:
			t.logger.Debug("ignoring gradio event", zap.String("event", ev.name))
		}
		return true
	})
	if callErr != nil {
		return nil, callErr
	}
	if err != nil {
		return nil, upstreamError(op, err)
	}
	if !done {
		return nil, types.NewError(types.ErrUpstreamError, fmt.Sprintf("%s: event stream closed before completion", op)).
			WithService(types.ServiceBrowserUse).
			WithRetryable(true)
	}
	return result, nil
}

// remoteTaskError builds the error for an "error" event. Gradio sends
// either null or a JSON string with the exception text.
func remoteTaskError(op Operation, data []byte) error {
	msg := "remote call failed"
	var text string
	if json.Unmarshal(data, &text) == nil && text != "" {
		msg = text
	} else if trimmed := strings.TrimSpace(string(data)); trimmed != "" && trimmed != "null" {
		msg = trimmed
	}
	return types.NewError(types.ErrUpstreamError, fmt.Sprintf("%s: %s", op, msg)).
		WithService(types.ServiceBrowserUse)
}

type sseEvent struct {
	name string
	data []byte
}

// readEvents parses a text/event-stream body and hands each dispatched
// event to fn until fn returns false or the stream ends.
func readEvents(r io.Reader, fn func(sseEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBody)

	var (
		name string
		data bytes.Buffer
	)
	dispatch := func() bool {
		if name == "" && data.Len() == 0 {
			return true
		}
		ev := sseEvent{name: name, data: bytes.Clone(data.Bytes())}
		if ev.name == "" {
			ev.name = "message"
		}
		name = ""
		data.Reset()
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if !dispatch() {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}
