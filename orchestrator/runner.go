package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/adspower"
	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/types"
)

const instrumentationName = "github.com/BaSui01/adsbridge/orchestrator"

// =============================================================================
// 🔌 依赖接口
// =============================================================================

// ProfileController 启停远程浏览器环境，*adspower.Client 实现该接口
type ProfileController interface {
	Start(ctx context.Context, profileID string) (*adspower.StartResult, error)
	Stop(ctx context.Context, profileID string) error
}

// TaskRunner 执行自动化任务，*browseruse.Client 实现该接口
type TaskRunner interface {
	RunTask(ctx context.Context, task string, overrides *browseruse.TaskOverrides) (json.RawMessage, error)
}

// SocketChecker 确认调试 socket 可接入，*cdp.Prober 实现该接口
type SocketChecker interface {
	Check(ctx context.Context, addr string) error
}

// RunRecorder 接收运行级指标，internal/metrics.Collector 实现该接口
type RunRecorder interface {
	RecordRun(status string, duration time.Duration)
	RecordCleanupFailure()
}

// Observer 接收状态迁移通知
type Observer func(runID string, from, to State)

// =============================================================================
// ⚙️ 配置
// =============================================================================

// Config 编排配置
type Config struct {
	// 启动后探测调试 socket；失败时仍会停止环境
	VerifySocket bool `yaml:"verify_socket" env:"VERIFY_SOCKET"`
	// 把调试端口作为 browser_port 传给自动化服务（调用方已设置时不覆盖）
	AttachBrowserPort bool `yaml:"attach_browser_port" env:"ATTACH_BROWSER_PORT"`
	// 停止环境的超时，停止不受调用方取消影响
	StopTimeout time.Duration `yaml:"stop_timeout" env:"STOP_TIMEOUT"`
	// 任务超时，0 表示不限
	TaskTimeout time.Duration `yaml:"task_timeout" env:"TASK_TIMEOUT"`
}

// DefaultConfig 返回默认编排配置
func DefaultConfig() Config {
	return Config{
		VerifySocket:      false,
		AttachBrowserPort: false,
		StopTimeout:       30 * time.Second,
		TaskTimeout:       0,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.StopTimeout <= 0 {
		return errors.New("orchestrator.stop_timeout must be positive")
	}
	if c.TaskTimeout < 0 {
		return errors.New("orchestrator.task_timeout must not be negative")
	}
	return nil
}

// =============================================================================
// 🏃 Runner
// =============================================================================

// Request 一次编排运行的输入
type Request struct {
	ProfileID string                    `json:"profile_id"`
	Task      string                    `json:"task"`
	Overrides *browseruse.TaskOverrides `json:"options,omitempty"`
}

// Result 一次编排运行的输出，Output 为自动化服务的原始返回
type Result struct {
	RunID         string          `json:"run_id"`
	ProfileID     string          `json:"profile_id"`
	SocketAddress string          `json:"socket_address"`
	Output        json.RawMessage `json:"output"`
	StartedAt     time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration"`
}

// Session 环境已启动期间可用的信息
type Session struct {
	RunID     string
	ProfileID string
	Browser   *adspower.StartResult
}

// Runner 执行 启动环境 → 运行任务 → 停止环境 的固定流程。
// Runner 本身无可变状态；不同环境的运行可并发，同一环境的并发运行不做协调。
type Runner struct {
	profiles ProfileController
	tasks    TaskRunner
	checker  SocketChecker
	cfg      Config
	observer Observer
	recorder RunRecorder
	tracer   trace.Tracer
	inst     *instruments
	logger   *zap.Logger
}

// Option 配置 Runner
type Option func(*Runner)

// WithObserver 注册状态迁移回调
func WithObserver(fn Observer) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}

// WithSocketChecker 设置 VerifySocket 使用的探测器
func WithSocketChecker(c SocketChecker) Option {
	return func(r *Runner) {
		r.checker = c
	}
}

// WithRunRecorder 记录运行指标
func WithRunRecorder(rec RunRecorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// NewRunner 创建 Runner
func NewRunner(profiles ProfileController, tasks TaskRunner, cfg Config, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultConfig().StopTimeout
	}
	r := &Runner{
		profiles: profiles,
		tasks:    tasks,
		cfg:      cfg,
		tracer:   otel.Tracer(instrumentationName),
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(r)
	}

	inst, err := newInstruments(otel.Meter(instrumentationName))
	if err != nil {
		r.logger.Warn("otel instruments unavailable, run metrics disabled", zap.Error(err))
	}
	r.inst = inst
	return r
}

// Run 在 ProfileID 对应的环境中执行任务。
//
// 环境启动失败时直接返回该错误且不会停止环境；启动成功后无论任务成败都会
// 恰好停止一次，停止失败只记录日志。任务失败时返回任务的原始错误值。
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Task) == "" {
		return nil, types.NewInvalidRequestError("task is required")
	}

	var (
		output json.RawMessage
		runID  string
		socket string
	)
	startedAt := time.Now()

	err := r.WithProfile(ctx, req.ProfileID, func(ctx context.Context, s *Session) error {
		runID = s.RunID
		socket = s.Browser.SocketAddress

		overrides := req.Overrides.Clone()
		if r.cfg.AttachBrowserPort {
			if port := s.Browser.Port(); port > 0 && (overrides == nil || overrides.BrowserPort == nil) {
				if overrides == nil {
					overrides = &browseruse.TaskOverrides{}
				}
				overrides.BrowserPort = &port
			}
		}

		if r.cfg.TaskTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.TaskTimeout)
			defer cancel()
		}

		var err error
		output, err = r.tasks.RunTask(ctx, req.Task, overrides)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:         runID,
		ProfileID:     req.ProfileID,
		SocketAddress: socket,
		Output:        output,
		StartedAt:     startedAt,
		Duration:      time.Since(startedAt),
	}, nil
}

// WithProfile 启动环境、执行 fn、并在任何退出路径上停止环境。
// fn 的错误原样返回；停止环境的错误被记录（CLEANUP）后丢弃。
func (r *Runner) WithProfile(ctx context.Context, profileID string, fn func(ctx context.Context, s *Session) error) (err error) {
	if strings.TrimSpace(profileID) == "" {
		return types.NewInvalidRequestError("profile id is required")
	}

	runID := uuid.NewString()
	ctx = types.WithProfileID(types.WithRunID(ctx, runID), profileID)
	logger := r.logger.With(zap.String("run_id", runID), zap.String("profile_id", profileID))

	ctx, span := r.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("adspower.profile_id", profileID),
		))
	defer span.End()

	started := time.Now()
	r.inst.begin(ctx)
	status := "success"
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		duration := time.Since(started)
		r.inst.end(ctx, status, duration)
		if r.recorder != nil {
			r.recorder.RecordRun(status, duration)
		}
	}()

	browser, err := r.profiles.Start(ctx, profileID)
	if err != nil {
		status = "start_failed"
		r.transition(runID, NotStarted, Stopped)
		logger.Warn("profile start failed", zap.Error(err))
		return err
	}
	if browser == nil {
		// start reported success, so the profile may be open
		status = "start_failed"
		r.transition(runID, NotStarted, Started)
		r.release(ctx, logger, profileID)
		r.transition(runID, Started, Stopped)
		return types.NewRemoteServiceError("profile start returned no result")
	}
	r.transition(runID, NotStarted, Started)
	logger.Info("profile started", zap.String("socket_address", browser.SocketAddress))

	state := Started
	defer func() {
		r.release(ctx, logger, profileID)
		r.transition(runID, state, Stopped)
	}()

	if r.cfg.VerifySocket && r.checker != nil {
		if err := r.checker.Check(ctx, browser.SocketAddress); err != nil {
			status = "socket_unreachable"
			logger.Warn("devtools socket check failed", zap.Error(err))
			return err
		}
	}

	r.transition(runID, Started, TaskRunning)
	state = TaskRunning

	if err := fn(ctx, &Session{RunID: runID, ProfileID: profileID, Browser: browser}); err != nil {
		status = "task_failed"
		logger.Warn("task failed",
			zap.String("code", string(classify(err))),
			zap.Error(err))
		return err
	}
	return nil
}

// release stops the profile on a context detached from the caller's
// cancellation. Failures are logged and counted, never returned.
func (r *Runner) release(ctx context.Context, logger *zap.Logger, profileID string) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.StopTimeout)
	defer cancel()

	if err := r.profiles.Stop(stopCtx, profileID); err != nil {
		cleanupErr := types.NewError(types.ErrCleanup, "failed to stop profile").
			WithService(types.ServiceAdsPower).
			WithCause(err)
		logger.Error("profile cleanup failed",
			zap.String("code", string(types.ErrCleanup)),
			zap.Error(cleanupErr))
		r.inst.cleanupFailed(stopCtx)
		if r.recorder != nil {
			r.recorder.RecordCleanupFailure()
		}
		return
	}
	logger.Info("profile stopped")
}

func (r *Runner) transition(runID string, from, to State) {
	if r.observer != nil {
		r.observer(runID, from, to)
	}
}

// classify maps a task error onto the error taxonomy for logs and metrics.
// The error value itself is returned to callers untouched.
func classify(err error) types.ErrorCode {
	if code := types.GetErrorCode(err); code != "" {
		return code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrTimeout
	}
	return types.ErrTaskExecution
}

// =============================================================================
// 📊 OTel 指标
// =============================================================================

type instruments struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	cleanup  metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		in  instruments
		err error
	)
	if in.runs, err = meter.Int64Counter("adsbridge.run.total",
		metric.WithDescription("Total number of orchestrated runs"),
		metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("run counter: %w", err)
	}
	if in.duration, err = meter.Float64Histogram("adsbridge.run.duration",
		metric.WithDescription("Orchestrated run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1800)); err != nil {
		return nil, fmt.Errorf("run duration: %w", err)
	}
	if in.active, err = meter.Int64UpDownCounter("adsbridge.run.active",
		metric.WithDescription("Number of runs in progress"),
		metric.WithUnit("{run}")); err != nil {
		return nil, fmt.Errorf("active runs: %w", err)
	}
	if in.cleanup, err = meter.Int64Counter("adsbridge.cleanup.failures",
		metric.WithDescription("Profile stops that failed after a run"),
		metric.WithUnit("{failure}")); err != nil {
		return nil, fmt.Errorf("cleanup counter: %w", err)
	}
	return &in, nil
}

func (in *instruments) begin(ctx context.Context) {
	if in == nil {
		return
	}
	in.active.Add(ctx, 1)
}

func (in *instruments) end(ctx context.Context, status string, d time.Duration) {
	if in == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	in.active.Add(ctx, -1)
	in.runs.Add(ctx, 1, attrs)
	in.duration.Record(ctx, d.Seconds(), attrs)
}

func (in *instruments) cleanupFailed(ctx context.Context) {
	if in == nil {
		return
	}
	in.cleanup.Add(ctx, 1)
}
