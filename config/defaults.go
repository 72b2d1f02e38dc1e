// =============================================================================
// 📦 AdsBridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/adsbridge/adspower"
	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/internal/cache"
	"github.com/BaSui01/adsbridge/orchestrator"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		AdsPower:     adspower.DefaultConfig(),
		BrowserUse:   DefaultBrowserUseConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		DevTools:     DefaultDevToolsConfig(),
		Redis:        cache.DefaultConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    35 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultBrowserUseConfig 返回默认自动化服务配置
func DefaultBrowserUseConfig() BrowserUseConfig {
	return BrowserUseConfig{
		BaseURL:  "http://127.0.0.1:7788",
		Protocol: ProtocolGradio,
		Timeout:  30 * time.Minute,
		Task:     browseruse.DefaultTaskConfig(),
		Research: browseruse.DefaultDeepSearchConfig(),
	}
}

// DefaultDevToolsConfig 返回默认探测配置
func DefaultDevToolsConfig() DevToolsConfig {
	return DevToolsConfig{
		ProbeTimeout: 5 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "adsbridge",
		SampleRate:   0.1,
	}
}
