package adspower

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/BaSui01/adsbridge/internal/cache"
	"github.com/BaSui01/adsbridge/internal/httpclient"
	"github.com/BaSui01/adsbridge/types"
)

const instrumentationName = "github.com/BaSui01/adsbridge/adspower"

// DefaultBaseURL is the Local API address AdsPower listens on by default.
const DefaultBaseURL = "http://local.adspower.net:50325"

// codeTooManyRequests is the application code AdsPower returns when the
// Local API throttles a caller.
const codeTooManyRequests = 10002

// ErrThrottled is the cause attached to errors produced by Local API
// throttling. Test with errors.Is.
var ErrThrottled = errors.New("adspower local api throttled the request")

// Config AdsPower Local API 客户端配置
type Config struct {
	// Local API 地址
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数；Local API 对突发请求返回 10002
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 令牌桶容量
	Burst int `yaml:"burst" env:"BURST"`
	// 启动参数，随每次 start 发送
	LaunchArgs []string `yaml:"launch_args" env:"LAUNCH_ARGS"`
	// 无头启动
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// 启动时恢复上次打开的标签页
	OpenTabs bool `yaml:"open_tabs" env:"OPEN_TABS"`
	// 列表缓存 TTL，0 表示不缓存
	ListCacheTTL time.Duration `yaml:"list_cache_ttl" env:"LIST_CACHE_TTL"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      20 * time.Second,
		RateLimit:    1,
		Burst:        1,
		LaunchArgs:   []string{"--no-sandbox"},
		Headless:     false,
		OpenTabs:     true,
		ListCacheTTL: 30 * time.Second,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("adspower.base_url %q is not an absolute URL", c.BaseURL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("adspower.rate_limit must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("adspower.timeout must not be negative")
	}
	return nil
}

// Cache 列表缓存，*cache.Manager 满足该接口
type Cache interface {
	GetJSON(ctx context.Context, cacheType, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CallRecorder receives one observation per Local API call.
type CallRecorder interface {
	RecordRemoteCall(service, operation, status string, duration time.Duration)
}

// =============================================================================
// 🧭 Local API 客户端
// =============================================================================

// Client AdsPower Local API 客户端。并发安全；所有请求共享同一个限流器。
type Client struct {
	cfg      Config
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	cache    Cache
	group    singleflight.Group
	recorder CallRecorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option 配置 Client
type Option func(*Client)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCache 为环境与分组列表启用缓存
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCallRecorder 记录每次调用
func WithCallRecorder(r CallRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient 创建客户端
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpclient.New(cfg.Timeout),
		limiter: rate.NewLimiter(limit, burst),
		tracer:  otel.Tracer(instrumentationName),
		logger:  logger.With(zap.String("component", "adspower")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 启动环境，使用 Config 中的启动参数
func (c *Client) Start(ctx context.Context, profileID string) (*StartResult, error) {
	return c.StartWithOptions(ctx, profileID, StartOptions{})
}

// StartWithOptions 启动环境。
// HTTP 非 2xx、code 非 0、或响应缺少 data.ws 时返回 REMOTE_SERVICE 错误。
func (c *Client) StartWithOptions(ctx context.Context, profileID string, opts StartOptions) (*StartResult, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, types.NewInvalidRequestError("profile id is required")
	}

	q := url.Values{}
	q.Set("user_id", profileID)

	launchArgs := c.cfg.LaunchArgs
	if opts.LaunchArgs != nil {
		launchArgs = opts.LaunchArgs
	}
	if len(launchArgs) > 0 {
		encoded, err := json.Marshal(launchArgs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode launch args: %w", err)
		}
		q.Set("launch_args", string(encoded))
	}
	if pick(opts.Headless, c.cfg.Headless) {
		q.Set("headless", "1")
	}
	// open_tabs=1 tells AdsPower not to restore tabs.
	if !pick(opts.OpenTabs, c.cfg.OpenTabs) {
		q.Set("open_tabs", "1")
	}
	if opts.ClearCacheAfterClosing != nil {
		q.Set("clear_cache_after_closing", boolFlag(*opts.ClearCacheAfterClosing))
	}
	if opts.CDPMask != nil {
		q.Set("cdp_mask", boolFlag(*opts.CDPMask))
	}

	data, err := c.get(ctx, "start", "/api/v1/browser/start", q)
	if err != nil {
		return nil, err
	}

	var bd browserData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &bd); err != nil {
			return nil, types.NewRemoteServiceError("malformed start response").WithCause(err)
		}
	}
	if bd.WS.Empty() {
		return nil, types.NewRemoteServiceError("start response has no data.ws")
	}

	socket := bd.WS.Puppeteer
	if socket == "" {
		socket = bd.WS.Selenium
	}
	result := &StartResult{
		ProfileID:     profileID,
		Status:        StatusActive,
		SocketAddress: socket,
		WS:            bd.WS,
		DebugPort:     string(bd.DebugPort),
		WebDriver:     bd.WebDriver,
	}

	c.logger.Info("profile started",
		zap.String("profile_id", profileID),
		zap.String("socket_address", socket))
	return result, nil
}

// Stop 停止环境。失败时返回错误，是否忽略由调用方决定。
func (c *Client) Stop(ctx context.Context, profileID string) error {
	if strings.TrimSpace(profileID) == "" {
		return types.NewInvalidRequestError("profile id is required")
	}
	q := url.Values{}
	q.Set("user_id", profileID)
	if _, err := c.get(ctx, "stop", "/api/v1/browser/stop", q); err != nil {
		return err
	}
	c.logger.Info("profile stopped", zap.String("profile_id", profileID))
	return nil
}

// Active 查询环境运行状态
func (c *Client) Active(ctx context.Context, profileID string) (*ActiveStatus, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, types.NewInvalidRequestError("profile id is required")
	}
	q := url.Values{}
	q.Set("user_id", profileID)

	data, err := c.get(ctx, "active", "/api/v1/browser/active", q)
	if err != nil {
		return nil, err
	}
	var bd browserData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &bd); err != nil {
			return nil, types.NewRemoteServiceError("malformed active response").WithCause(err)
		}
	}
	status := bd.Status
	if status == "" {
		status = StatusInactive
	}
	return &ActiveStatus{ProfileID: profileID, Status: status, WS: bd.WS}, nil
}

// Status 检查 Local API 是否可用
func (c *Client) Status(ctx context.Context) error {
	_, err := c.get(ctx, "status", "/status", nil)
	return err
}

// ListProfiles 分页列出环境。启用缓存时相同查询在 TTL 内只请求一次。
func (c *Client) ListProfiles(ctx context.Context, query ProfileQuery) (*ProfilePage, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 100
	}
	key := fmt.Sprintf("profiles:%s:%d:%d", query.GroupID, query.Page, query.PageSize)

	v, err := c.cached(ctx, "profiles", key, func(ctx context.Context) (any, error) {
		q := url.Values{}
		q.Set("page", strconv.Itoa(query.Page))
		q.Set("page_size", strconv.Itoa(query.PageSize))
		if query.GroupID != "" {
			q.Set("group_id", query.GroupID)
		}
		data, err := c.get(ctx, "list_profiles", "/api/v1/user/list", q)
		if err != nil {
			return nil, err
		}
		page := &ProfilePage{}
		if len(data) > 0 {
			if err := json.Unmarshal(data, page); err != nil {
				return nil, types.NewRemoteServiceError("malformed user list response").WithCause(err)
			}
		}
		if page.Page == 0 {
			page.Page = query.Page
		}
		if page.PageSize == 0 {
			page.PageSize = query.PageSize
		}
		if page.List == nil {
			page.List = []Profile{}
		}
		return page, nil
	}, func() any { return &ProfilePage{} })
	if err != nil {
		return nil, err
	}
	return v.(*ProfilePage), nil
}

// ListGroups 列出全部分组
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	v, err := c.cached(ctx, "groups", "groups", func(ctx context.Context) (any, error) {
		q := url.Values{}
		q.Set("page", "1")
		q.Set("page_size", "2000")
		data, err := c.get(ctx, "list_groups", "/api/v1/group/list", q)
		if err != nil {
			return nil, err
		}
		var page groupPage
		if len(data) > 0 {
			if err := json.Unmarshal(data, &page); err != nil {
				return nil, types.NewRemoteServiceError("malformed group list response").WithCause(err)
			}
		}
		if page.List == nil {
			page.List = []Group{}
		}
		return &page.List, nil
	}, func() any { return &[]Group{} })
	if err != nil {
		return nil, err
	}
	return *v.(*[]Group), nil
}

// InvalidateListings 清除环境与分组缓存
func (c *Client) InvalidateListings(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if _, err := c.cache.DeletePrefix(ctx, "profiles:"); err != nil {
		return err
	}
	_, err := c.cache.DeletePrefix(ctx, "groups")
	return err
}

// cached serves key from the cache when possible and collapses
// concurrent misses for the same key into one Local API request.
// The shared load runs detached from any single caller; each caller
// waits on its own ctx.
func (c *Client) cached(ctx context.Context, cacheType, key string, load func(ctx context.Context) (any, error), newDest func() any) (any, error) {
	useCache := c.cache != nil && c.cfg.ListCacheTTL > 0
	if useCache {
		dest := newDest()
		err := c.cache.GetJSON(ctx, cacheType, key, dest)
		if err == nil {
			return dest, nil
		}
		if !cache.IsCacheMiss(err) {
			c.logger.Warn("listing cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, c.cfg.Timeout)
			defer cancel()
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if useCache {
			if err := c.cache.SetJSON(loadCtx, key, v, c.cfg.ListCacheTTL); err != nil {
				c.logger.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("listing request shared", zap.String("key", key))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, types.NewRemoteServiceError("adspower listing request canceled").WithCause(context.Cause(ctx))
	}
}

// get performs one rate-limited GET and unwraps the {code,msg,data}
// envelope. Non-2xx statuses and non-zero codes become REMOTE_SERVICE
// errors carrying msg verbatim.
func (c *Client) get(ctx context.Context, op, path string, query url.Values) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "adspower."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("adspower.operation", op),
			attribute.String("adspower.profile_id", query.Get("user_id")),
		))
	defer span.End()

	start := time.Now()
	data, err := c.doGet(ctx, path, query)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrThrottled) {
			status = "throttled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("adspower call failed",
			zap.String("operation", op),
			zap.String("profile_id", query.Get("user_id")),
			zap.Duration("duration", duration),
			zap.Error(err))
	}
	if c.recorder != nil {
		c.recorder.RecordRemoteCall(types.ServiceAdsPower, op, status, duration)
	}
	return data, err
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("adspower rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewRemoteServiceError("adspower request failed").
			WithRetryable(true).
			WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := httpclient.ReadErrorMessage(resp.Body)
		return nil, types.NewRemoteServiceError(fmt.Sprintf("adspower returned HTTP %d: %s", resp.StatusCode, msg)).
			WithCause(&httpclient.StatusError{StatusCode: resp.StatusCode})
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, types.NewRemoteServiceError("malformed adspower response").WithCause(err)
	}
	if env.Code != 0 {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("adspower returned code %d", env.Code)
		}
		e := types.NewRemoteServiceError(msg)
		if isThrottled(env.Code, env.Msg) {
			e = e.WithRetryable(true).WithHTTPStatus(http.StatusTooManyRequests).WithCause(ErrThrottled)
		}
		return nil, e
	}
	return env.Data, nil
}

func isThrottled(code int, msg string) bool {
	return code == codeTooManyRequests || strings.Contains(strings.ToLower(msg), "too many request")
}

func pick(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// portFromAddress extracts the port from "ws://host:port/..." or "host:port".
func portFromAddress(addr string) int {
	host := addr
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		host = u.Host
	}
	_, port, err := net.SplitHostPort(host)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return p
}
