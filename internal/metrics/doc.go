// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP 入口、
远程调用、编排运行与缓存四个维度。

# 概述

Collector 使用 promauto 注册到默认 Registry，所有指标按 namespace 隔离。
它同时满足各业务包声明的记录接口，由 cmd/adsbridge 在装配时注入：

  - adspower.CallRecorder / browseruse.CallRecorder：RecordRemoteCall
  - orchestrator.RunRecorder：RecordRun、RecordCleanupFailure
  - cache.HitRecorder：RecordCacheHit、RecordCacheMiss

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 远程调用：按 service/operation/status 计数，耗时桶覆盖到 30 分钟。
  - 编排运行：运行总数与耗时（按 status）、状态迁移计数、清理失败计数。
  - 缓存：命中与未命中计数，按 cache_type 分组。
*/
package metrics
