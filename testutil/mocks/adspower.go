package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// DefaultSocket 替身返回的 puppeteer 调试地址
const DefaultSocket = "ws://127.0.0.1:9222/devtools/browser/mock"

// AdsPowerServer 模拟 AdsPower Local API：/status、browser/start、
// browser/stop、browser/active。
type AdsPowerServer struct {
	*httptest.Server

	mu          sync.Mutex
	starts      []string
	stops       []string
	startFail   string
	stopFail    string
	socket      string
	active      map[string]bool
	startParams []map[string]string
}

// NewAdsPowerServer 启动替身，测试结束时自动关闭
func NewAdsPowerServer(t testing.TB) *AdsPowerServer {
	t.Helper()
	s := &AdsPowerServer{
		socket: DefaultSocket,
		active: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailStart 之后的启动返回 code -1 与 msg
func (s *AdsPowerServer) FailStart(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFail = msg
}

// FailStop 之后的停止返回 code -1 与 msg
func (s *AdsPowerServer) FailStop(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopFail = msg
}

// Starts 返回收到的启动请求的 user_id
func (s *AdsPowerServer) Starts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.starts...)
}

// Stops 返回收到的停止请求的 user_id
func (s *AdsPowerServer) Stops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stops...)
}

// StartParams 返回每次启动的查询参数
func (s *AdsPowerServer) StartParams() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.startParams...)
}

func (s *AdsPowerServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	id := q.Get("user_id")
	switch r.URL.Path {
	case "/status":
		writeEnvelope(w, 0, "success", nil)
	case "/api/v1/browser/start":
		s.starts = append(s.starts, id)
		params := make(map[string]string, len(q))
		for k := range q {
			params[k] = q.Get(k)
		}
		s.startParams = append(s.startParams, params)
		if s.startFail != "" {
			writeEnvelope(w, -1, s.startFail, nil)
			return
		}
		s.active[id] = true
		writeEnvelope(w, 0, "success", map[string]any{
			"ws":         map[string]string{"puppeteer": s.socket},
			"debug_port": "9222",
		})
	case "/api/v1/browser/stop":
		s.stops = append(s.stops, id)
		if s.stopFail != "" {
			writeEnvelope(w, -1, s.stopFail, nil)
			return
		}
		delete(s.active, id)
		writeEnvelope(w, 0, "success", nil)
	case "/api/v1/browser/active":
		status := "Inactive"
		if s.active[id] {
			status = "Active"
		}
		writeEnvelope(w, 0, "success", map[string]any{"status": status})
	default:
		http.NotFound(w, r)
	}
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"code": code, "msg": msg}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}
