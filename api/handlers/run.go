package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/api"
	"github.com/BaSui01/adsbridge/orchestrator"
	"github.com/BaSui01/adsbridge/types"
)

// =============================================================================
// 🏃 编排运行 Handler
// =============================================================================

// RunExecutor 执行一次 启动环境 → 任务 → 停止环境，*orchestrator.Runner 实现该接口
type RunExecutor interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// RunHandler 编排运行处理器
type RunHandler struct {
	runner RunExecutor
	logger *zap.Logger
}

// NewRunHandler 创建编排运行处理器
func NewRunHandler(runner RunExecutor, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{
		runner: runner,
		logger: logger.With(zap.String("handler", "run")),
	}
}

// HandleRun 处理 POST /api/v1/runs
// @Summary 在指定环境中执行自动化任务
// @Description 启动 AdsPower 环境，运行任务，无论成败都停止环境
// @Tags 运行
// @Accept json
// @Produce json
// @Param request body api.RunRequest true "运行请求"
// @Success 200 {object} Response "运行结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "环境启动或任务失败"
// @Security ApiKeyAuth
// @Router /api/v1/runs [post]
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.RunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ProfileID == "" {
		WriteError(w, types.NewInvalidRequestError("profile_id is required"), h.logger)
		return
	}
	if req.Task == "" {
		WriteError(w, types.NewInvalidRequestError("task is required"), h.logger)
		return
	}

	result, err := h.runner.Run(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("run completed",
		zap.String("run_id", result.RunID),
		zap.String("profile_id", result.ProfileID),
		zap.Duration("duration", result.Duration))

	WriteSuccess(w, result)
}
