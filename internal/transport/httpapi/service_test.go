package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"timerd/internal/services/manager"
	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

type memStore struct {
	mu   sync.Mutex
	snap map[string]timer.Timer
}

func (m *memStore) Load(ctx context.Context) (map[string]timer.Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *memStore) Save(ctx context.Context, timers map[string]timer.Timer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]timer.Timer, len(timers))
	for k, v := range timers {
		out[k] = v
	}
	m.snap = out
	return nil
}

func newTestAPI(t *testing.T, cfg Config) (*Service, *manager.Service) {
	t.Helper()
	mgr, err := manager.New(manager.Config{}, manager.Deps{Store: &memStore{}}, logx.Nop())
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	return New(cfg, mgr, logx.Nop()), mgr
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResp(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestCreateAndList(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{})
	h := api.routes()

	w := doJSON(t, h, http.MethodPost, "/v1/timers", `{
	  "name": "tea",
	  "duration": 300,
	  "actions": [{"event": "tea.ready", "event_data": {"room": "kitchen"}}],
	  "groups": ["kitchen"]
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	if resp := decodeResp(t, w); resp["name"] != "tea" {
		t.Fatalf("create response = %v", resp)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/timers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	resp := decodeResp(t, w)
	if resp["count"] != float64(1) {
		t.Fatalf("list count = %v", resp["count"])
	}
	timers := resp["timers"].([]any)
	entry := timers[0].(map[string]any)
	if entry["name"] != "tea" || entry["state"] != "active" {
		t.Fatalf("listed entry = %v", entry)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{})
	h := api.routes()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `duration please`},
		{"unknown field", `{"duration": 10, "actions": [{"event": "x"}], "color": "red"}`},
		{"zero duration", `{"actions": [{"event": "x"}]}`},
		{"no actions", `{"duration": 10}`},
	}
	for _, tt := range tests {
		w := doJSON(t, h, http.MethodPost, "/v1/timers", tt.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, w.Code)
		}
	}
}

func TestTimerLifecycleRoutes(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{})
	h := api.routes()

	doJSON(t, h, http.MethodPost, "/v1/timers", `{"name": "tea", "duration": 600, "actions": [{"event": "x"}]}`)

	if w := doJSON(t, h, http.MethodPost, "/v1/timers/tea/pause", ""); w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/v1/timers/tea/resume", ""); w.Code != http.StatusOK {
		t.Fatalf("resume status = %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/v1/timers/tea/extend", `{"add_duration": 60}`); w.Code != http.StatusOK {
		t.Fatalf("extend status = %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodDelete, "/v1/timers/tea", ""); w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", w.Code)
	}

	w := doJSON(t, h, http.MethodGet, "/v1/timers", "")
	if resp := decodeResp(t, w); resp["count"] != float64(0) {
		t.Fatalf("expected empty listing after cancel, got %v", resp)
	}
}

func TestExtendRejections(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{})
	h := api.routes()
	doJSON(t, h, http.MethodPost, "/v1/timers", `{"name": "tea", "duration": 600, "actions": [{"event": "x"}]}`)

	// neither add_duration nor new_expiry
	if w := doJSON(t, h, http.MethodPost, "/v1/timers/tea/extend", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty extend status = %d, want 400", w.Code)
	}
	// unparsable new_expiry
	if w := doJSON(t, h, http.MethodPost, "/v1/timers/tea/extend", `{"new_expiry": "whenever"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad new_expiry status = %d, want 400", w.Code)
	}
}

func TestGroupRoutes(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{})
	h := api.routes()

	doJSON(t, h, http.MethodPost, "/v1/timers", `{"name": "a", "duration": 600, "actions": [{"event": "x"}], "groups": ["kitchen"]}`)
	doJSON(t, h, http.MethodPost, "/v1/timers", `{"name": "b", "duration": 600, "actions": [{"event": "x"}], "groups": ["kitchen"]}`)
	doJSON(t, h, http.MethodPost, "/v1/timers", `{"name": "c", "duration": 600, "actions": [{"event": "x"}]}`)

	w := doJSON(t, h, http.MethodPost, "/v1/groups/kitchen/pause", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pause group status = %d", w.Code)
	}
	if resp := decodeResp(t, w); resp["count"] != float64(2) {
		t.Fatalf("pause group count = %v, want 2", resp["count"])
	}

	w = doJSON(t, h, http.MethodPost, "/v1/groups/kitchen/resume", "")
	if resp := decodeResp(t, w); resp["count"] != float64(2) {
		t.Fatalf("resume group count = %v", resp["count"])
	}

	w = doJSON(t, h, http.MethodPost, "/v1/groups/kitchen/extend", `{"add_duration": 60}`)
	if resp := decodeResp(t, w); resp["count"] != float64(2) {
		t.Fatalf("extend group count = %v", resp["count"])
	}

	w = doJSON(t, h, http.MethodDelete, "/v1/groups/kitchen", "")
	if resp := decodeResp(t, w); resp["count"] != float64(2) {
		t.Fatalf("cancel group count = %v", resp["count"])
	}

	// the non-member survived
	w = doJSON(t, h, http.MethodGet, "/v1/timers", "")
	if resp := decodeResp(t, w); resp["count"] != float64(1) {
		t.Fatalf("remaining count = %v, want 1", resp["count"])
	}
}

func TestHealthzTracksReadiness(t *testing.T) {
	t.Parallel()
	api, mgr := newTestAPI(t, Config{})
	h := api.routes()
	ctx := context.Background()

	if w := doJSON(t, h, http.MethodGet, "/v1/healthz", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("pre-start health = %d, want 503", w.Code)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("manager Start: %v", err)
	}
	defer mgr.Stop(ctx)

	if w := doJSON(t, h, http.MethodGet, "/v1/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("post-start health = %d, want 200", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{Token: "hunter2"})
	h := api.routes()

	if w := doJSON(t, h, http.MethodGet, "/v1/timers", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/timers", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/timers", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{RatePerSec: 1})
	h := api.routes()

	if w := doJSON(t, h, http.MethodGet, "/v1/timers", ""); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/v1/timers", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("burst request status = %d, want 429", w.Code)
	}
}

func TestStartRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{Enabled: true, Addr: "0.0.0.0:0"})
	if err := api.Start(context.Background()); err == nil {
		api.Stop(context.Background())
		t.Fatal("expected refusal for tokenless non-loopback bind")
	}
}

func TestStartStopLoopback(t *testing.T) {
	t.Parallel()
	api, _ := newTestAPI(t, Config{Enabled: true, Addr: "127.0.0.1:0"})
	ctx := context.Background()
	if err := api.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if api.Addr() == "" {
		t.Fatal("no bound address reported")
	}
	api.Stop(ctx)
	if api.Addr() != "" {
		t.Fatal("address still reported after Stop")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8484", true},
		{"localhost:8484", true},
		{"[::1]:8484", true},
		{":8484", true},
		{"0.0.0.0:8484", false},
		{"192.168.1.5:8484", false},
		{"example.com:8484", false},
	}
	for _, tt := range tests {
		if got := isLoopbackAddr(tt.addr); got != tt.want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
