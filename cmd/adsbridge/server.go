package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/api/handlers"
	"github.com/BaSui01/adsbridge/config"
	"github.com/BaSui01/adsbridge/internal/metrics"
	"github.com/BaSui01/adsbridge/internal/server"
	"github.com/BaSui01/adsbridge/internal/telemetry"
)

// skipAuthPaths 不需要认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AdsBridge 的 HTTP 服务，管理 API 与 Metrics 两个端点
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	app       *app
	collector *metrics.Collector
	telemetry *telemetry.Providers
	manager   *server.Manager

	// Rate limiter 清理 goroutine 的生命周期
	rateLimiterCancel context.CancelFunc
}

// NewServer 初始化遥测、指标与客户端
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	s.telemetry = providers

	s.collector = metrics.NewCollector("adsbridge", logger)

	s.app, err = newApp(cfg, logger, s.collector)
	if err != nil {
		return nil, fmt.Errorf("failed to init clients: %w", err)
	}
	return s, nil
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 注册 api 与 metrics 端点并开始监听（非阻塞）
func (s *Server) Start() error {
	s.manager = server.NewManager(s.logger)

	if err := s.manager.Register("api", s.apiHandler(), server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}); err != nil {
		return err
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	if err := s.manager.Register("metrics", metricsMux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}); err != nil {
		return err
	}

	if err := s.manager.Start(); err != nil {
		return err
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("adspower", s.cfg.AdsPower.BaseURL),
		zap.String("browser_use", s.cfg.BrowserUse.BaseURL),
		zap.String("protocol", s.cfg.BrowserUse.Protocol),
	)
	return nil
}

// Run 阻塞直到 ctx 结束或端点异常退出
func (s *Server) Run(ctx context.Context) error {
	return s.manager.Run(ctx)
}

// =============================================================================
// 🌐 路由
// =============================================================================

// routes API 路由依赖的处理器
type routes struct {
	health     *handlers.HealthHandler
	runs       *handlers.RunHandler
	automation *handlers.AutomationHandler
	profiles   *handlers.ProfileHandler
}

// mux 注册全部 API 路由（Go 1.22 方法 + 路径模式）
func (rt routes) mux() *http.ServeMux {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", rt.health.HandleLive)
	mux.HandleFunc("GET /healthz", rt.health.HandleLive)
	mux.HandleFunc("GET /ready", rt.health.HandleReady)
	mux.HandleFunc("GET /readyz", rt.health.HandleReady)
	mux.HandleFunc("GET /version", rt.health.HandleVersion(Version, BuildTime, GitCommit))

	// 编排运行
	mux.HandleFunc("POST /api/v1/runs", rt.runs.HandleRun)

	// 自动化服务
	mux.HandleFunc("POST /api/v1/tasks", rt.automation.HandleRunTask)
	mux.HandleFunc("POST /api/v1/tasks/stop", rt.automation.HandleStopTask)
	mux.HandleFunc("POST /api/v1/browser/close", rt.automation.HandleCloseBrowser)
	mux.HandleFunc("POST /api/v1/research", rt.automation.HandleRunResearch)
	mux.HandleFunc("POST /api/v1/research/stop", rt.automation.HandleStopResearch)
	mux.HandleFunc("GET /api/v1/recordings", rt.automation.HandleListRecordings)
	mux.HandleFunc("GET /api/v1/models", rt.automation.HandleListModels)

	// AdsPower 环境
	mux.HandleFunc("GET /api/v1/profiles", rt.profiles.HandleListProfiles)
	mux.HandleFunc("GET /api/v1/groups", rt.profiles.HandleListGroups)
	mux.HandleFunc("POST /api/v1/profiles/{id}/start", rt.profiles.HandleStartProfile)
	mux.HandleFunc("POST /api/v1/profiles/{id}/stop", rt.profiles.HandleStopProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}/status", rt.profiles.HandleProfileStatus)

	return mux
}

// apiHandler 构建路由与中间件链
func (s *Server) apiHandler() http.Handler {
	health := handlers.NewHealthHandler(s.logger)
	health.RegisterCheck(handlers.NewHealthCheck("adspower", s.app.profiles.Status))
	if s.app.cache != nil {
		health.RegisterOptionalCheck(handlers.NewHealthCheck("redis", s.app.cache.Ping))
	}

	rt := routes{
		health:     health,
		runs:       handlers.NewRunHandler(s.app.runner, s.logger),
		automation: handlers.NewAutomationHandler(s.app.automation, s.logger),
		profiles:   handlers.NewProfileHandler(s.app.profiles, s.logger),
	}

	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	}
	// 两种认证都配置时，任一通过即可
	switch {
	case s.cfg.Server.JWT.Enabled() && len(s.cfg.Server.APIKeys) > 0:
		middlewares = append(middlewares, AnyAuth(
			APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger),
			JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger),
		))
	case s.cfg.Server.JWT.Enabled():
		middlewares = append(middlewares, JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger))
	case len(s.cfg.Server.APIKeys) > 0:
		middlewares = append(middlewares, APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger))
	default:
		s.logger.Warn("No API keys or JWT configured, API is unauthenticated")
	}

	return Chain(rt.mux(), middlewares...)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Close 释放 rate limiter、缓存与遥测资源。HTTP 端点由 Run 关闭。
func (s *Server) Close(ctx context.Context) {
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.app != nil {
		s.app.Close()
	}
	if s.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.telemetry.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}
	s.logger.Info("Graceful shutdown completed")
}
