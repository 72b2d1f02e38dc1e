package browseruse

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/types"
)

const instrumentationName = "github.com/BaSui01/adsbridge/browseruse"

// maxLoggedTask caps how many runes of a task description reach the logs.
const maxLoggedTask = 120

// =============================================================================
// 🌐 自动化服务客户端
// =============================================================================

// Client 把方法调用翻译成对自动化服务的命名端点请求，返回值原样透传。
// Client 不持有可变状态，可被多个 goroutine 共享。
type Client struct {
	transport Transport
	defaults  TaskConfig
	research  DeepSearchConfig
	recorder  CallRecorder
	tracer    trace.Tracer
	logger    *zap.Logger
}

// ClientOption 配置 Client
type ClientOption func(*Client)

// WithCallRecorder 记录每次远程调用的耗时与状态
func WithCallRecorder(r CallRecorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithTracer 替换默认的全局 Tracer
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewClient 创建客户端。defaults 与 research 是每次调用合并覆盖值的基线。
func NewClient(transport Transport, defaults TaskConfig, research DeepSearchConfig, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		transport: transport,
		defaults:  defaults,
		research:  research,
		tracer:    otel.Tracer(instrumentationName),
		logger:    logger.With(zap.String("component", "browseruse_client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Defaults returns the baseline task configuration.
func (c *Client) Defaults() TaskConfig {
	return c.defaults
}

// RunTask 运行一次自动化任务。空任务直接返回 INVALID_REQUEST，不发起远程调用。
// 传输层错误原样返回。
func (c *Client) RunTask(ctx context.Context, task string, overrides *TaskOverrides) (json.RawMessage, error) {
	if strings.TrimSpace(task) == "" {
		return nil, types.NewInvalidRequestError("task is required")
	}
	cfg := c.defaults.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, types.NewInvalidRequestError(err.Error())
	}

	c.logger.Info("running automation task",
		zap.String("task", truncate(task, maxLoggedTask)),
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModelName),
		zap.Bool("use_vision", cfg.UseVision),
		zap.Int("browser_port", cfg.BrowserPort))

	return c.call(ctx, OpRunWithStream, cfg.Params(task),
		attribute.String("llm.provider", cfg.LLMProvider),
		attribute.String("llm.model", cfg.LLMModelName))
}

// Stop 停止正在运行的自动化 Agent
func (c *Client) Stop(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, OpStopAgent, nil)
}

// CloseBrowser 关闭服务端的全局浏览器
func (c *Client) CloseBrowser(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, OpCloseBrowser, nil)
}

// RunDeepSearch 运行深度搜索任务
func (c *Client) RunDeepSearch(ctx context.Context, researchTask string, overrides *DeepSearchOverrides) (json.RawMessage, error) {
	if strings.TrimSpace(researchTask) == "" {
		return nil, types.NewInvalidRequestError("research task is required")
	}
	cfg := c.research.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, types.NewInvalidRequestError(err.Error())
	}

	c.logger.Info("running deep search",
		zap.String("task", truncate(researchTask, maxLoggedTask)),
		zap.Int("max_iterations", cfg.MaxSearchIterations))

	return c.call(ctx, OpRunDeepSearch, cfg.Params(researchTask),
		attribute.String("llm.provider", cfg.LLMProvider),
		attribute.String("llm.model", cfg.LLMModelName))
}

// StopResearch 停止深度搜索 Agent
func (c *Client) StopResearch(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, OpStopResearchAgent, nil)
}

// ListRecordings 列出 path 下的录屏
func (c *Client) ListRecordings(ctx context.Context, path string) (json.RawMessage, error) {
	if path == "" {
		path = c.defaults.SaveRecordingPath
	}
	return c.call(ctx, OpListRecordings, Params{{"save_recording_path", path}})
}

// ListModels 列出提供商可用模型，凭据取自默认任务配置
func (c *Client) ListModels(ctx context.Context, provider string) (json.RawMessage, error) {
	if provider == "" {
		provider = c.defaults.LLMProvider
	}
	return c.call(ctx, OpListModels, Params{
		{"provider", provider},
		{"api_key", c.defaults.LLMAPIKey},
		{"base_url", c.defaults.LLMBaseURL},
	})
}

func (c *Client) call(ctx context.Context, op Operation, params Params, attrs ...attribute.KeyValue) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "browseruse."+op.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("browseruse.operation", op.String()))...))
	defer span.End()

	start := time.Now()
	result, err := c.transport.Call(ctx, op, params)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		runID, _ := types.RunID(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("automation call failed",
			zap.String("operation", op.String()),
			zap.String("run_id", runID),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		c.logger.Debug("automation call completed",
			zap.String("operation", op.String()),
			zap.Duration("duration", duration),
			zap.Int("payload_bytes", len(result)))
	}
	if c.recorder != nil {
		c.recorder.RecordRemoteCall(types.ServiceBrowserUse, op.String(), status, duration)
	}
	return result, err
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
