package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🌐 HTTP 服务器管理器
// =============================================================================

// Config 单个监听端点的配置
type Config struct {
	// 监听地址
	Addr string `yaml:"addr" json:"addr"`

	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// 写入超时，0 表示不限
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// 最大请求头大小
	MaxHeaderBytes int `yaml:"max_header_bytes" json:"max_header_bytes"`

	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认服务器配置
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: 30 * time.Second,
	}
}

type endpoint struct {
	name     string
	server   *http.Server
	config   Config
	listener net.Listener
}

// Manager 管理一组 HTTP 端点（API 与 metrics）的启动与优雅关闭。
// 所有端点一起启动；任一端点监听失败时已打开的监听会被关闭。
type Manager struct {
	endpoints []*endpoint
	errCh     chan error
	logger    *zap.Logger
	mu        sync.RWMutex
	started   bool
	closed    bool
}

// NewManager 创建服务器管理器
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		errCh:  make(chan error, 1),
		logger: logger.With(zap.String("component", "http_server")),
	}
}

// Register 注册一个端点，必须在 Start 之前调用
func (m *Manager) Register(name string, handler http.Handler, config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.closed {
		return fmt.Errorf("cannot register %q after start", name)
	}
	for _, ep := range m.endpoints {
		if ep.name == name {
			return fmt.Errorf("endpoint %q already registered", name)
		}
	}

	m.endpoints = append(m.endpoints, &endpoint{
		name:   name,
		config: config,
		server: &http.Server{
			Addr:           config.Addr,
			Handler:        handler,
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
		},
	})
	return nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Start 启动所有端点（非阻塞）
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}
	if m.started {
		return fmt.Errorf("server already started")
	}
	if len(m.endpoints) == 0 {
		return fmt.Errorf("no endpoints registered")
	}

	for i, ep := range m.endpoints {
		listener, err := net.Listen("tcp", ep.config.Addr)
		if err != nil {
			for _, opened := range m.endpoints[:i] {
				_ = opened.listener.Close()
				opened.listener = nil
			}
			return fmt.Errorf("failed to listen on %s for %s: %w", ep.config.Addr, ep.name, err)
		}
		ep.listener = listener
	}

	for _, ep := range m.endpoints {
		m.logger.Info("starting HTTP server",
			zap.String("endpoint", ep.name),
			zap.String("addr", ep.listener.Addr().String()))
		go m.serve(ep)
	}
	m.started = true
	return nil
}

func (m *Manager) serve(ep *endpoint) {
	if err := ep.server.Serve(ep.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("HTTP server failed", zap.String("endpoint", ep.name), zap.Error(err))
		select {
		case m.errCh <- fmt.Errorf("%s: %w", ep.name, err):
		default:
		}
	}
}

// Run 阻塞直到 ctx 结束或任一端点异常退出，然后关闭所有端点。
// 正常收到取消时返回 nil；端点异常时返回该错误。
func (m *Manager) Run(ctx context.Context) error {
	var serveErr error
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))
	case serveErr = <-m.errCh:
		m.logger.Error("server exited unexpectedly", zap.Error(serveErr))
	}

	// ctx 已结束，关闭使用独立上下文
	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// Shutdown 并发地优雅关闭所有端点，每个端点使用自己的 ShutdownTimeout
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range m.endpoints {
		if ep.listener == nil {
			continue
		}
		g.Go(func() error {
			shutdownCtx := gctx
			if ep.config.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				shutdownCtx, cancel = context.WithTimeout(gctx, ep.config.ShutdownTimeout)
				defer cancel()
			}
			m.logger.Info("shutting down HTTP server", zap.String("endpoint", ep.name))
			if err := ep.server.Shutdown(shutdownCtx); err != nil {
				m.logger.Error("HTTP server shutdown failed", zap.String("endpoint", ep.name), zap.Error(err))
				return fmt.Errorf("%s: %w", ep.name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	m.logger.Info("HTTP servers stopped")
	return err
}

// =============================================================================
// 🔧 辅助方法
// =============================================================================

// Addr 返回端点的实际监听地址；未启动时返回配置地址，未注册返回空串
func (m *Manager) Addr(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ep := range m.endpoints {
		if ep.name != name {
			continue
		}
		if ep.listener != nil {
			return ep.listener.Addr().String()
		}
		return ep.config.Addr
	}
	return ""
}

// IsRunning 检查服务器是否运行中
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started && !m.closed
}
