package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"MyFocusAI/internal/ai"
	"MyFocusAI/internal/config"
	"MyFocusAI/internal/events"
	"MyFocusAI/internal/gate"
	"MyFocusAI/internal/monitor"
	"MyFocusAI/internal/notify"
	"MyFocusAI/internal/scheduler"
	"MyFocusAI/internal/storage"
	"MyFocusAI/internal/task"
	"MyFocusAI/internal/timer"
	"MyFocusAI/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("config.NewManager: %v", err)
	}
	store, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewManager: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus()
	binder, err := task.NewBinder(store, bus)
	if err != nil {
		t.Fatalf("task.NewBinder: %v", err)
	}

	aiClient := ai.NewClient(cfg)
	g := gate.NewGate(cfg, aiClient, nil)
	mon := monitor.NewMonitor(cfg, store, bus, g, nil, aiClient, binder, notify.NewDelivery(bus))
	t.Cleanup(mon.Stop)
	sched := scheduler.NewScheduler(cfg, store, aiClient)
	timerSvc := timer.NewService(store, binder, bus)

	return NewServer(cfg, store, mon, binder, sched, timerSvc, aiClient, "test")
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestGetVersion(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/version", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["name"] != "MyFocusAI" || resp["version"] != "test" {
		t.Errorf("resp = %v", resp)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	// 创建
	w := doRequest(t, s, http.MethodPost, "/api/tasks", map[string]string{"text": "写周报"})
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.ID == "" || created.Text != "写周报" {
		t.Fatalf("created = %+v", created)
	}

	// 列表
	w = doRequest(t, s, http.MethodGet, "/api/tasks", nil)
	var tasks []models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d", len(tasks))
	}

	// 绑定
	w = doRequest(t, s, http.MethodPost, "/api/tasks/"+created.ID+"/select", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("select status = %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, s, http.MethodGet, "/api/tasks/selected", nil)
	var sel struct {
		Selected *models.TaskBinding `json:"selected"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sel); err != nil {
		t.Fatalf("unmarshal selected: %v", err)
	}
	if sel.Selected == nil || sel.Selected.TaskID != created.ID {
		t.Fatalf("selected = %+v", sel.Selected)
	}

	// 标记完成后绑定被自动清除
	w = doRequest(t, s, http.MethodPut, "/api/tasks/"+created.ID,
		map[string]interface{}{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, s, http.MethodGet, "/api/tasks/selected", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &sel); err != nil {
		t.Fatalf("unmarshal selected: %v", err)
	}
	if sel.Selected != nil {
		t.Errorf("binding should be cleared after completion, got %+v", sel.Selected)
	}

	// 删除
	w = doRequest(t, s, http.MethodDelete, "/api/tasks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
}

func TestSelectCompletedTaskRejected(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/tasks", map[string]string{"text": "旧任务"})
	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	doRequest(t, s, http.MethodPut, "/api/tasks/"+created.ID, map[string]interface{}{"completed": true})

	w = doRequest(t, s, http.MethodPost, "/api/tasks/"+created.ID+"/select", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("selecting completed task should fail, status = %d", w.Code)
	}
}

func TestDeleteMissingTask(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodDelete, "/api/tasks/no-such-id", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSelectMissingTask(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/tasks/no-such-id/select", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateMonitoringConfigValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		interval int
		want     int
	}{
		{0, http.StatusBadRequest},
		{11, http.StatusBadRequest},
		{5, http.StatusOK},
	}
	for _, tt := range tests {
		w := doRequest(t, s, http.MethodPut, "/api/config/monitoring", map[string]interface{}{
			"interval_minutes": tt.interval,
			"whitelist":        []string{},
			"blacklist":        []string{},
		})
		if w.Code != tt.want {
			t.Errorf("interval %d: status = %d, want %d", tt.interval, w.Code, tt.want)
		}
	}
}

func TestUpdateAIConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPut, "/api/config/ai", models.AIConfig{
		APIType:        models.APITypeOllama,
		APIURL:         "http://localhost:11434/v1",
		DetectionModel: "llama3",
		ReportModel:    "llama3",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, http.MethodGet, "/api/config/ai", nil)
	var cfg models.AIConfig
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.APIType != models.APITypeOllama || cfg.DetectionModel != "llama3" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestStartMonitoringRejectedWithoutAPIKey(t *testing.T) {
	s := newTestServer(t)

	// 默认配置没有 API 密钥，授权检查应拒绝启动
	w := doRequest(t, s, http.MethodPost, "/api/monitoring/start", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/api/monitoring/status", nil)
	var status models.ServiceStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Monitoring {
		t.Error("monitoring should not be running")
	}
	if status.State != models.StateIdle {
		t.Errorf("state = %s, want idle", status.State)
	}
}

func TestTriggerWithoutMonitoringFails(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/monitoring/trigger", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetResultsEmpty(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/monitoring/results?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() == "null" {
		t.Error("results should be an empty array, not null")
	}
}

func TestGetDailyReportNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/reports/daily/2026-01-01", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/reports/daily/%s", "bad-date"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetWeeklyReportNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/reports/weekly/2026-08-24", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = doRequest(t, s, http.MethodGet, "/api/reports/weekly/bad-date", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTimerLifecycle(t *testing.T) {
	s := newTestServer(t)

	// 启动会话
	w := doRequest(t, s, http.MethodPost, "/api/timer/start", map[string]interface{}{
		"session_type":     "focus",
		"duration_minutes": 25,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", w.Code, w.Body.String())
	}
	var session models.FocusSession
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if session.Status != models.SessionActive || session.DurationMinutes != 25 {
		t.Fatalf("session = %+v", session)
	}

	// 状态
	w = doRequest(t, s, http.MethodGet, "/api/timer/status", nil)
	var status struct {
		Session          *models.FocusSession `json:"session"`
		RemainingSeconds int                  `json:"remaining_seconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Session == nil || status.Session.ID != session.ID {
		t.Fatalf("status session = %+v", status.Session)
	}

	// 暂停后结束
	doRequest(t, s, http.MethodPost, "/api/timer/pause", nil)
	w = doRequest(t, s, http.MethodPost, "/api/timer/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stop status = %d: %s", w.Code, w.Body.String())
	}
	var finished models.FocusSession
	if err := json.Unmarshal(w.Body.Bytes(), &finished); err != nil {
		t.Fatalf("unmarshal finished: %v", err)
	}
	if finished.Status != models.SessionCompleted {
		t.Errorf("finished status = %s", finished.Status)
	}

	// 重复结束
	w = doRequest(t, s, http.MethodPost, "/api/timer/stop", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("double stop status = %d, want 400", w.Code)
	}
}

func TestTimerStartInvalidDuration(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/timer/start", map[string]interface{}{
		"duration_minutes": 0,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
