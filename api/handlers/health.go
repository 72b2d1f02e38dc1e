package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// 健康状态
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// defaultCheckTimeout bounds each dependency probe.
const defaultCheckTimeout = 3 * time.Second

// HealthCheck 依赖检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler 存活与就绪检查。
//
// 必需依赖（AdsPower Local API）失败时就绪检查返回 503；可选依赖（Redis
// 列表缓存）失败时服务仍可处理运行请求，返回 200 与 degraded。
type HealthHandler struct {
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks []registeredCheck
}

type registeredCheck struct {
	check    HealthCheck
	optional bool
}

// ServiceHealthResponse 健康状态响应
type ServiceHealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个依赖的检查结果
type CheckResult struct {
	Status   string `json:"status"` // "pass", "fail"
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:  logger.With(zap.String("handler", "health")),
		timeout: defaultCheckTimeout,
	}
}

// RegisterCheck 注册必需依赖
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.register(check, false)
}

// RegisterOptionalCheck 注册可选依赖，失败只会让状态降级
func (h *HealthHandler) RegisterOptionalCheck(check HealthCheck) {
	h.register(check, true)
}

func (h *HealthHandler) register(check HealthCheck, optional bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, registeredCheck{check: check, optional: optional})
}

// HandleLive 存活探针：进程能响应即为健康，不访问任何依赖。
// 同时服务 /health 与 /healthz。
// @Summary 存活检查
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse
// @Router /health [get]
func (h *HealthHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	})
}

// HandleReady 就绪探针：并发检查全部已注册依赖
// @Summary 就绪检查
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "healthy 或 degraded"
// @Failure 503 {object} ServiceHealthResponse "必需依赖不可用"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]registeredCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, rc := range checks {
		g.Go(func() error {
			results[i] = h.run(r.Context(), rc)
			return nil
		})
	}
	_ = g.Wait()

	resp := ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	for i, rc := range checks {
		res := results[i]
		resp.Checks[rc.check.Name()] = res
		if res.Status == "pass" {
			continue
		}
		if !rc.optional {
			resp.Status = StatusUnhealthy
		} else if resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}

func (h *HealthHandler) run(ctx context.Context, rc registeredCheck) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := rc.check.Check(ctx)
	latency := time.Since(start)

	res := CheckResult{Status: "pass", Optional: rc.optional, Latency: latency.String()}
	if err != nil {
		res.Status = "fail"
		res.Message = err.Error()
		h.logger.Warn("dependency check failed",
			zap.String("check", rc.check.Name()),
			zap.Bool("optional", rc.optional),
			zap.Duration("latency", latency),
			zap.Error(err))
	}
	return res
}

// HandleVersion 返回构建信息
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	info := map[string]string{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, info)
	}
}

// FuncHealthCheck 把一个探测函数包装为 HealthCheck，
// 例如 adspower.Client.Status 或 cache.Manager.Ping。
type FuncHealthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// NewHealthCheck 创建函数健康检查
func NewHealthCheck(name string, check func(ctx context.Context) error) *FuncHealthCheck {
	return &FuncHealthCheck{name: name, check: check}
}

func (c *FuncHealthCheck) Name() string { return c.name }

func (c *FuncHealthCheck) Check(ctx context.Context) error { return c.check(ctx) }
