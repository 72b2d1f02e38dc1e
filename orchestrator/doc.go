// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package orchestrator 串联 AdsPower 环境与自动化任务：启动环境、运行任务、停止环境。

# 保证

  - 启动失败立即返回错误，不尝试停止
  - 启动成功后恰好尝试停止一次，无论任务成功、失败还是 panic
  - 停止失败只记录日志（错误码 CLEANUP）并计数，不改变返回结果
  - 任务失败时返回任务的原始错误值，不做包装

WithProfile 是底层的作用域获取原语；Run 在其之上执行一次 browseruse 任务。
停止环境使用 context.WithoutCancel 派生的上下文，调用方取消后环境仍会被释放。
*/
package orchestrator
