package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/api"
	"github.com/BaSui01/adsbridge/browseruse"
	"github.com/BaSui01/adsbridge/types"
)

// =============================================================================
// 🤖 自动化服务 Handler
// =============================================================================

// AutomationService 自动化服务操作，*browseruse.Client 实现该接口
type AutomationService interface {
	RunTask(ctx context.Context, task string, overrides *browseruse.TaskOverrides) (json.RawMessage, error)
	Stop(ctx context.Context) (json.RawMessage, error)
	CloseBrowser(ctx context.Context) (json.RawMessage, error)
	RunDeepSearch(ctx context.Context, researchTask string, overrides *browseruse.DeepSearchOverrides) (json.RawMessage, error)
	StopResearch(ctx context.Context) (json.RawMessage, error)
	ListRecordings(ctx context.Context, path string) (json.RawMessage, error)
	ListModels(ctx context.Context, provider string) (json.RawMessage, error)
}

// AutomationHandler 自动化服务处理器。成功时 data 为服务端原始返回。
type AutomationHandler struct {
	service AutomationService
	logger  *zap.Logger
}

// NewAutomationHandler 创建自动化服务处理器
func NewAutomationHandler(service AutomationService, logger *zap.Logger) *AutomationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationHandler{
		service: service,
		logger:  logger.With(zap.String("handler", "automation")),
	}
}

// HandleRunTask 处理 POST /api/v1/tasks
// @Summary 直接运行自动化任务
// @Tags 自动化
// @Accept json
// @Produce json
// @Param request body api.TaskRequest true "任务请求"
// @Success 200 {object} Response "服务端原始返回"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "自动化服务错误"
// @Security ApiKeyAuth
// @Router /api/v1/tasks [post]
func (h *AutomationHandler) HandleRunTask(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.TaskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Task == "" {
		WriteError(w, types.NewInvalidRequestError("task is required"), h.logger)
		return
	}
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.RunTask(r.Context(), req.Task, req.Options)
	})
}

// HandleStopTask 处理 POST /api/v1/tasks/stop
func (h *AutomationHandler) HandleStopTask(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.Stop(r.Context())
	})
}

// HandleCloseBrowser 处理 POST /api/v1/browser/close
func (h *AutomationHandler) HandleCloseBrowser(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.CloseBrowser(r.Context())
	})
}

// HandleRunResearch 处理 POST /api/v1/research
// @Summary 运行深度搜索
// @Tags 自动化
// @Accept json
// @Produce json
// @Param request body api.ResearchRequest true "深度搜索请求"
// @Success 200 {object} Response "服务端原始返回"
// @Security ApiKeyAuth
// @Router /api/v1/research [post]
func (h *AutomationHandler) HandleRunResearch(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ResearchRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.ResearchTask == "" {
		WriteError(w, types.NewInvalidRequestError("research_task is required"), h.logger)
		return
	}
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.RunDeepSearch(r.Context(), req.ResearchTask, req.Options)
	})
}

// HandleStopResearch 处理 POST /api/v1/research/stop
func (h *AutomationHandler) HandleStopResearch(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.StopResearch(r.Context())
	})
}

// HandleListRecordings 处理 GET /api/v1/recordings?path=
func (h *AutomationHandler) HandleListRecordings(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.ListRecordings(r.Context(), path)
	})
}

// HandleListModels 处理 GET /api/v1/models?provider=
func (h *AutomationHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	h.respond(w, func() (json.RawMessage, error) {
		return h.service.ListModels(r.Context(), provider)
	})
}

func (h *AutomationHandler) respond(w http.ResponseWriter, call func() (json.RawMessage, error)) {
	result, err := call()
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	WriteSuccess(w, result)
}
