package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/adspower"
	"github.com/BaSui01/adsbridge/types"
)

// =============================================================================
// 🗂️ AdsPower 环境 Handler
// =============================================================================

// ProfileService AdsPower 环境操作，*adspower.Client 实现该接口
type ProfileService interface {
	Start(ctx context.Context, profileID string) (*adspower.StartResult, error)
	Stop(ctx context.Context, profileID string) error
	Active(ctx context.Context, profileID string) (*adspower.ActiveStatus, error)
	ListProfiles(ctx context.Context, query adspower.ProfileQuery) (*adspower.ProfilePage, error)
	ListGroups(ctx context.Context) ([]adspower.Group, error)
}

// ProfileHandler 环境管理处理器
type ProfileHandler struct {
	profiles ProfileService
	logger   *zap.Logger
}

// NewProfileHandler 创建环境管理处理器
func NewProfileHandler(profiles ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger.With(zap.String("handler", "profile")),
	}
}

// HandleListProfiles 处理 GET /api/v1/profiles?page=&page_size=&group_id=
func (h *ProfileHandler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		WriteError(w, types.NewInvalidRequestError("page must be a non-negative integer"), h.logger)
		return
	}
	pageSize, err := queryInt(q.Get("page_size"))
	if err != nil {
		WriteError(w, types.NewInvalidRequestError("page_size must be a non-negative integer"), h.logger)
		return
	}

	result, err := h.profiles.ListProfiles(r.Context(), adspower.ProfileQuery{
		Page:     page,
		PageSize: pageSize,
		GroupID:  q.Get("group_id"),
	})
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleListGroups 处理 GET /api/v1/groups
func (h *ProfileHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.profiles.ListGroups(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, groups)
}

// HandleStartProfile 处理 POST /api/v1/profiles/{id}/start
func (h *ProfileHandler) HandleStartProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.profileID(w, r)
	if !ok {
		return
	}
	result, err := h.profiles.Start(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleStopProfile 处理 POST /api/v1/profiles/{id}/stop
func (h *ProfileHandler) HandleStopProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.profileID(w, r)
	if !ok {
		return
	}
	if err := h.profiles.Stop(r.Context(), id); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"profile_id": id, "status": adspower.StatusInactive})
}

// HandleProfileStatus 处理 GET /api/v1/profiles/{id}/status
func (h *ProfileHandler) HandleProfileStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.profileID(w, r)
	if !ok {
		return
	}
	status, err := h.profiles.Active(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	WriteSuccess(w, status)
}

func (h *ProfileHandler) profileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, types.NewInvalidRequestError("profile id is required"), h.logger)
		return "", false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query value; empty is 0.
func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
