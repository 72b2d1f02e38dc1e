package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/types"
)

// BrowserVersion is the Browser.getVersion result.
type BrowserVersion struct {
	ProtocolVersion string `json:"protocolVersion"`
	Product         string `json:"product"`
	Revision        string `json:"revision"`
	UserAgent       string `json:"userAgent"`
	JSVersion       string `json:"jsVersion"`
}

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Prober 探测 DevTools WebSocket 地址
type Prober struct {
	timeout time.Duration
	seq     atomic.Int64
	logger  *zap.Logger
}

// NewProber 创建探测器，timeout <= 0 时默认 5 秒
func NewProber(timeout time.Duration, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		timeout: timeout,
		logger:  logger.With(zap.String("component", "cdp_prober")),
	}
}

// Version 连接 wsURL，发送 Browser.getVersion 并返回结果
func (p *Prober) Version(ctx context.Context, wsURL string) (*BrowserVersion, error) {
	if err := validateSocket(wsURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, devtoolsError("dial devtools socket", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	id := p.seq.Add(1)
	payload, err := json.Marshal(request{ID: id, Method: "Browser.getVersion"})
	if err != nil {
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return nil, devtoolsError("write Browser.getVersion", err)
	}

	// Events may arrive before the reply; skip anything with another id.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, devtoolsError("read Browser.getVersion", err)
		}
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, devtoolsError("decode devtools message", err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return nil, types.NewError(types.ErrUpstreamError,
				fmt.Sprintf("devtools error %d: %s", resp.Error.Code, resp.Error.Message)).
				WithService(types.ServiceDevTools)
		}
		var v BrowserVersion
		if err := json.Unmarshal(resp.Result, &v); err != nil {
			return nil, devtoolsError("decode Browser.getVersion result", err)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")

		p.logger.Debug("devtools socket reachable",
			zap.String("product", v.Product),
			zap.String("protocol", v.ProtocolVersion))
		return &v, nil
	}
}

// Check 仅确认地址可接入
func (p *Prober) Check(ctx context.Context, wsURL string) error {
	_, err := p.Version(ctx, wsURL)
	return err
}

func validateSocket(addr string) error {
	u, err := url.Parse(addr)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return types.NewInvalidRequestError(fmt.Sprintf("not a devtools websocket address: %q", addr))
	}
	return nil
}

func devtoolsError(action string, err error) *types.Error {
	return types.NewError(types.ErrUpstreamError, action+" failed").
		WithService(types.ServiceDevTools).
		WithRetryable(true).
		WithCause(err)
}
