// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 adsbridge 命令行与 HTTP 服务入口。

# 概述

cmd/adsbridge 在 AdsPower 环境中运行 browser-use 自动化任务。
一次性子命令（run、stop-task、close-browser、recordings）把服务端
原始返回写到 stdout，日志写到 stderr；serve 启动 HTTP API 与独立的
Prometheus 指标端口。

# 核心类型

  - Server：通过 internal/server.Manager 管理 api、metrics 两个端点
  - app：按配置装配 AdsPower 客户端、自动化客户端、Runner 与缓存
  - Middleware：HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：run、stop-task、close-browser、recordings、serve、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    MetricsMiddleware、OTelTracing、CORS、RateLimiter（基于 IP）、
    APIKeyAuth / JWTAuth
  - 优雅关闭：signal.NotifyContext → Manager.Run → 缓存与遥测关闭
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
