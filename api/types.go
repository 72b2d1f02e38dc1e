package api

import (
	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/orchestrator"
)

// =============================================================================
// 编排运行类型
// =============================================================================

// RunRequest 一次编排运行请求（启动环境 → 任务 → 停止环境）。
// @Description 编排运行请求结构
type RunRequest = orchestrator.Request

// RunResult 一次编排运行结果，output 为自动化服务原始返回。
// @Description 编排运行结果结构
type RunResult = orchestrator.Result

// =============================================================================
// 自动化服务类型
// =============================================================================

// TaskRequest 直接运行任务（不启动 AdsPower 环境）。
// @Description 任务请求结构
type TaskRequest struct {
	// 自然语言任务描述
	Task string `json:"task" example:"open example.com and read the title" binding:"required"`
	// 单次覆盖参数，未设置的字段使用服务端默认值
	Options *browseruse.TaskOverrides `json:"options,omitempty"`
}

// ResearchRequest 深度搜索请求。
// @Description 深度搜索请求结构
type ResearchRequest struct {
	// 研究主题
	ResearchTask string `json:"research_task" example:"compare headless browser fingerprinting defenses" binding:"required"`
	// 单次覆盖参数
	Options *browseruse.DeepSearchOverrides `json:"options,omitempty"`
}

// =============================================================================
// 错误类型
// =============================================================================

// ErrorResponse 表示错误响应。
// @Description 错误响应结构
type ErrorResponse struct {
	Success bool        `json:"success" example:"false"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail 表示错误详细信息。
// @Description 错误详细结构
type ErrorDetail struct {
	// 错误代码
	Code string `json:"code" example:"REMOTE_SERVICE"`
	// 人类可读的错误消息
	Message string `json:"message" example:"quota exceeded"`
	// 返回错误的远程服务（adspower、browseruse、devtools）
	Service string `json:"service,omitempty" example:"adspower"`
	// 请求是否可以重试
	Retryable bool `json:"retryable,omitempty" example:"false"`
}
