package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// AutomationServer 模拟自动化服务的 REST 接口（POST /api/{name}）。
// 每个端点返回 Respond 设置的原始 JSON，未设置时返回 null。
type AutomationServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]string
	failures  map[string]int
	calls     []string
	bodies    map[string]map[string]any
}

// NewAutomationServer 启动替身，测试结束时自动关闭
func NewAutomationServer(t testing.TB) *AutomationServer {
	t.Helper()
	s := &AutomationServer{
		responses: make(map[string]string),
		failures:  make(map[string]int),
		bodies:    make(map[string]map[string]any),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Respond 设置端点（如 "run_with_stream"）的原始 JSON 返回
func (s *AutomationServer) Respond(name, rawJSON string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[name] = rawJSON
}

// Fail 让端点返回指定 HTTP 状态
func (s *AutomationServer) Fail(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = status
}

// Calls 按顺序返回被调用的端点名
func (s *AutomationServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Body 返回端点最近一次收到的请求体
func (s *AutomationServer) Body(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[name]
}

func (s *AutomationServer) handle(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutPrefix(r.URL.Path, "/api/")
	if !ok || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.bodies[name] = body
	status, failing := s.failures[name]
	resp, found := s.responses[name]
	s.mu.Unlock()

	if failing {
		http.Error(w, `{"detail":"automation failure"}`, status)
		return
	}
	if !found {
		resp = "null"
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(resp))
}
