package main

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/adspower"
	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/cdp"
	"github.com/BaSui01/adsbridge/config"
	"github.com/BaSui01/adsbridge/internal/cache"
	"github.com/BaSui01/adsbridge/internal/httpclient"
	"github.com/BaSui01/adsbridge/internal/metrics"
	"github.com/BaSui01/adsbridge/orchestrator"
)

// =============================================================================
// 🔌 组件装配
// =============================================================================

// app 持有 serve 与一次性命令共用的客户端
type app struct {
	cache      *cache.Manager
	profiles   *adspower.Client
	automation *browseruse.Client
	runner     *orchestrator.Runner
	logger     *zap.Logger
}

// newApp 按配置装配客户端。collector 为 nil 时不记录指标（一次性命令）。
// Redis 不可用时降级为无缓存。
func newApp(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (*app, error) {
	a := &app{logger: logger}

	transport, err := newTransport(cfg.BrowserUse, logger)
	if err != nil {
		return nil, err
	}

	var (
		adsOpts    []adspower.Option
		clientOpts []browseruse.ClientOption
		runOpts    []orchestrator.Option
	)
	if collector != nil {
		adsOpts = append(adsOpts, adspower.WithCallRecorder(collector))
		clientOpts = append(clientOpts, browseruse.WithCallRecorder(collector))
		runOpts = append(runOpts,
			orchestrator.WithRunRecorder(collector),
			orchestrator.WithObserver(func(runID string, from, to orchestrator.State) {
				collector.RecordRunTransition(from.String(), to.String())
			}),
		)
	}

	if cfg.Redis.Enabled {
		var cacheOpts []cache.Option
		if collector != nil {
			cacheOpts = append(cacheOpts, cache.WithHitRecorder(collector))
		}
		m, err := cache.NewManager(cfg.Redis, logger, cacheOpts...)
		if err != nil {
			logger.Warn("Redis not available, profile listing cache disabled", zap.Error(err))
		} else {
			a.cache = m
			adsOpts = append(adsOpts, adspower.WithCache(m))
		}
	}

	if cfg.Orchestrator.VerifySocket {
		runOpts = append(runOpts, orchestrator.WithSocketChecker(cdp.NewProber(cfg.DevTools.ProbeTimeout, logger)))
	}

	a.profiles = adspower.NewClient(cfg.AdsPower, logger, adsOpts...)
	a.automation = browseruse.NewClient(transport, cfg.BrowserUse.Task, cfg.BrowserUse.Research, logger, clientOpts...)
	a.runner = orchestrator.NewRunner(a.profiles, a.automation, cfg.Orchestrator, logger, runOpts...)
	return a, nil
}

// newTransport 按协议创建自动化服务传输层
func newTransport(cfg config.BrowserUseConfig, logger *zap.Logger) (browseruse.Transport, error) {
	hc := httpclient.New(cfg.Timeout)
	switch cfg.Protocol {
	case config.ProtocolGradio, "":
		return browseruse.NewGradioTransport(cfg.BaseURL, hc, logger,
			browseruse.WithProgressHandler(func(op browseruse.Operation, data json.RawMessage) {
				logger.Debug("automation progress",
					zap.String("operation", op.String()),
					zap.Int("bytes", len(data)))
			}),
		), nil
	case config.ProtocolREST:
		return browseruse.NewRESTTransport(cfg.BaseURL, hc, logger), nil
	default:
		return nil, fmt.Errorf("unsupported browser_use.protocol: %q (supported: gradio, rest)", cfg.Protocol)
	}
}

// Close 释放缓存连接
func (a *app) Close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close failed", zap.Error(err))
	}
}
