// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 adsbridge HTTP API 的请求处理器实现。

# 概述

handlers 包实现编排运行、自动化服务调用、AdsPower 环境管理与
健康检查端点，以及统一的响应/错误处理。所有 Handler 均遵循标准
net/http 接口，依赖通过小接口注入，便于 httptest 测试。

# 核心类型

  - RunHandler：POST /api/v1/runs，启动环境 → 任务 → 停止环境
  - AutomationHandler：任务、停止、关闭浏览器、深度搜索、录像与模型列表
  - ProfileHandler：环境列表、分组、启动、停止与状态
  - HealthHandler：服务健康检查（/health, /healthz, /ready）
  - Response：统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo：结构化错误信息，含 code、message、service、retryable
  - HealthCheck：依赖检查接口；AdsPower 为必需依赖，Redis 为可选依赖（失败时 degraded）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteServiceError
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码映射；远程错误默认 502，超时 504
*/
package handlers
