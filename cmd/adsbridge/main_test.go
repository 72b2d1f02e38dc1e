package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/adsbridge/config"
	"github.com/BaSui01/adsbridge/internal/metrics"
	"github.com/BaSui01/adsbridge/testutil"
	"github.com/BaSui01/adsbridge/testutil/mocks"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

func writeConfig(t *testing.T, adspowerURL, automationURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
adspower:
  base_url: %s
  rate_limit: 100
  burst: 10
browser_use:
  base_url: %s
  protocol: rest
log:
  level: error
`, adspowerURL, automationURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFakes(t *testing.T) (*mocks.AdsPowerServer, *mocks.AutomationServer, string) {
	t.Helper()
	ads := mocks.NewAdsPowerServer(t)
	auto := mocks.NewAutomationServer(t)
	auto.Respond("run_with_stream", `{"final_result":"done"}`)
	auto.Respond("stop_agent", `"stopped"`)
	auto.Respond("list_recordings", `["a.webm","b.webm"]`)
	return ads, auto, writeConfig(t, ads.URL, auto.URL)
}

// =============================================================================
// 🧪 命令测试
// =============================================================================

func TestDispatch_VersionAndHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, dispatch(context.Background(), "version", nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "AdsBridge dev")

	stdout.Reset()
	assert.Equal(t, 0, dispatch(context.Background(), "help", nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "close-browser")

	assert.Equal(t, 1, dispatch(context.Background(), "bogus", nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown command: bogus")
}

func TestRunCommand_Success(t *testing.T) {
	ads, auto, cfgPath := newFakes(t)

	var stdout, stderr bytes.Buffer
	code := dispatch(testutil.TestContext(t), "run", []string{
		"--config", cfgPath,
		"--profile", "jk1x2y3",
		"--task", "open example.com",
		"--provider", "anthropic",
		"--max-steps", "7",
		"--vision=false",
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	testutil.AssertJSONEqual(t, `{"final_result":"done"}`, stdout.Bytes())
	assert.Equal(t, []string{"jk1x2y3"}, ads.Starts())
	assert.Equal(t, []string{"jk1x2y3"}, ads.Stops())
	assert.Equal(t, "[\"--no-sandbox\"]", ads.StartParams()[0]["launch_args"])

	body := auto.Body("run_with_stream")
	require.NotNil(t, body)
	assert.Equal(t, "open example.com", body["task"])
	assert.Equal(t, "anthropic", body["llm_provider"])
	assert.EqualValues(t, 7, body["max_steps"])
	assert.Equal(t, false, body["use_vision"])
}

func TestRunCommand_StartFailure(t *testing.T) {
	ads, auto, cfgPath := newFakes(t)
	ads.FailStart("profile is not exist")

	var stdout, stderr bytes.Buffer
	code := dispatch(context.Background(), "run", []string{
		"--config", cfgPath, "--profile", "missing", "--task", "x",
	}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "profile is not exist")
	assert.Empty(t, ads.Stops())
	assert.Empty(t, auto.Calls())
}

func TestRunCommand_RequiresProfileAndTask(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, dispatch(context.Background(), "run", []string{"--task", "x"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--profile and --task")
}

func TestSimpleCommands(t *testing.T) {
	_, auto, cfgPath := newFakes(t)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, dispatch(context.Background(), "stop-task", []string{"--config", cfgPath}, &stdout, &stderr), stderr.String())
	assert.Equal(t, `"stopped"`, strings.TrimSpace(stdout.String()))

	stdout.Reset()
	require.Equal(t, 0, dispatch(context.Background(), "recordings", []string{"--config", cfgPath, "--path", "./videos"}, &stdout, &stderr), stderr.String())
	assert.Equal(t, `["a.webm","b.webm"]`, strings.TrimSpace(stdout.String()))
	assert.Equal(t, "./videos", auto.Body("list_recordings")["save_recording_path"])
}

func TestHealthCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, dispatch(context.Background(), "health", []string{"--addr", srv.URL}, &stdout, &stderr))
	assert.Equal(t, "OK\n", stdout.String())
}

func TestOptionalBool(t *testing.T) {
	var b optionalBool
	assert.Equal(t, "", b.String())
	require.NoError(t, b.Set("false"))
	assert.True(t, b.set)
	assert.False(t, b.value)
	assert.Error(t, b.Set("maybe"))
}

// =============================================================================
// 🧪 API 路由测试
// =============================================================================

func TestAPIHandler_Routes(t *testing.T) {
	ads, _, cfgPath := newFakes(t)

	cfg, err := loadConfig(cfgPath)
	require.NoError(t, err)
	cfg.Server.APIKeys = []string{"test-key"}

	a, err := newApp(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	s := &Server{
		cfg:       cfg,
		logger:    zap.NewNop(),
		app:       a,
		collector: metrics.NewCollector("adsbridge_cmd_test", zap.NewNop()),
	}
	handler := s.apiHandler()
	t.Cleanup(func() { s.Close(context.Background()) })

	do := func(method, target, key string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, target, nil)
		if key != "" {
			r.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/api/v1/profiles/p1/start", "").Code)

	w := do(http.MethodPost, "/api/v1/profiles/p1/start", "test-key")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"p1"}, ads.Starts())

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/profiles/p1/stop", "test-key").Code)
	assert.Equal(t, []string{"p1"}, ads.Stops())

	w = do(http.MethodGet, "/api/v1/profiles/p1/status", "test-key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Inactive"`)

	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodGet, "/api/v1/runs", "test-key").Code)
}

func TestNewTransport_UnknownProtocol(t *testing.T) {
	_, err := newTransport(config.BrowserUseConfig{Protocol: "grpc"}, zap.NewNop())
	assert.Error(t, err)
}
