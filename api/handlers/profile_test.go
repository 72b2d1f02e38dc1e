package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/adspower"
	"github.com/BaSui01/adsbridge/types"
)

type fakeProfiles struct {
	started  []string
	stopped  []string
	query    adspower.ProfileQuery
	startErr error
	stopErr  error
}

func (f *fakeProfiles) Start(ctx context.Context, profileID string) (*adspower.StartResult, error) {
	f.started = append(f.started, profileID)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &adspower.StartResult{
		ProfileID:     profileID,
		Status:        adspower.StatusActive,
		SocketAddress: "127.0.0.1:9222",
	}, nil
}

func (f *fakeProfiles) Stop(ctx context.Context, profileID string) error {
	f.stopped = append(f.stopped, profileID)
	return f.stopErr
}

func (f *fakeProfiles) Active(ctx context.Context, profileID string) (*adspower.ActiveStatus, error) {
	return &adspower.ActiveStatus{ProfileID: profileID, Status: adspower.StatusInactive}, nil
}

func (f *fakeProfiles) ListProfiles(ctx context.Context, query adspower.ProfileQuery) (*adspower.ProfilePage, error) {
	f.query = query
	return &adspower.ProfilePage{
		List:     []adspower.Profile{{UserID: "jk1x2y3", Name: "shop-01"}},
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

func (f *fakeProfiles) ListGroups(ctx context.Context) ([]adspower.Group, error) {
	return []adspower.Group{{GroupID: "1", GroupName: "default"}}, nil
}

func newProfileMux(h *ProfileHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/profiles", h.HandleListProfiles)
	mux.HandleFunc("GET /api/v1/groups", h.HandleListGroups)
	mux.HandleFunc("POST /api/v1/profiles/{id}/start", h.HandleStartProfile)
	mux.HandleFunc("POST /api/v1/profiles/{id}/stop", h.HandleStopProfile)
	mux.HandleFunc("GET /api/v1/profiles/{id}/status", h.HandleProfileStatus)
	return mux
}

func TestProfileHandler_ListProfiles(t *testing.T) {
	profiles := &fakeProfiles{}
	mux := newProfileMux(NewProfileHandler(profiles, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/profiles?page=2&page_size=50&group_id=7", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, adspower.ProfileQuery{Page: 2, PageSize: 50, GroupID: "7"}, profiles.query)

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Len(t, data["list"], 1)
}

func TestProfileHandler_ListProfilesBadPage(t *testing.T) {
	for _, target := range []string{"/api/v1/profiles?page=abc", "/api/v1/profiles?page_size=-1"} {
		t.Run(target, func(t *testing.T) {
			mux := newProfileMux(NewProfileHandler(&fakeProfiles{}, nil))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestProfileHandler_ListGroups(t *testing.T) {
	mux := newProfileMux(NewProfileHandler(&fakeProfiles{}, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/groups", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	groups, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, groups, 1)
}

func TestProfileHandler_StartStopStatus(t *testing.T) {
	profiles := &fakeProfiles{}
	mux := newProfileMux(NewProfileHandler(profiles, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/profiles/jk1x2y3/start", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "127.0.0.1:9222", data["socket_address"])
	assert.Equal(t, "Active", data["status"])

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/profiles/jk1x2y3/stop", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/profiles/jk1x2y3/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "Inactive", data["status"])

	assert.Equal(t, []string{"jk1x2y3"}, profiles.started)
	assert.Equal(t, []string{"jk1x2y3"}, profiles.stopped)
}

func TestProfileHandler_StartFailure(t *testing.T) {
	profiles := &fakeProfiles{startErr: types.NewRemoteServiceError("profile is not exist")}
	mux := newProfileMux(NewProfileHandler(profiles, zap.NewNop()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/profiles/missing/start", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "profile is not exist", resp.Error.Message)
}

func TestProfileHandler_MissingID(t *testing.T) {
	h := NewProfileHandler(&fakeProfiles{}, nil)

	w := httptest.NewRecorder()
	h.HandleStartProfile(w, httptest.NewRequest(http.MethodPost, "/api/v1/profiles//start", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
