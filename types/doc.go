// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 adsbridge 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 browseruse、adspower、
orchestrator、api 等上层模块提供统一的错误与 Context 契约。

# 核心类型

  - Error / ErrorCode：结构化错误，含 HTTP 状态码、Retryable、Service 标记
  - REMOTE_SERVICE：配置文件服务（AdsPower）启动失败
  - TASK_EXECUTION：自动化任务失败的分类码
  - CLEANUP：停止配置文件失败，仅记录日志，从不向上传播

# 主要能力

  - Context 传播：WithTraceID / WithRunID / WithProfileID / WithUserID
  - 错误工具链：AsError / IsCode / GetErrorCode / IsRetryable
*/
package types
