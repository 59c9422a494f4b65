package storage

import (
	"testing"
	"time"

	"MyFocusAI/pkg/models"

	"github.com/google/uuid"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTaskCRUD(t *testing.T) {
	m := newTestManager(t)

	task := &models.Task{
		ID:        uuid.New().String(),
		Text:      "写周报",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := m.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	tasks, err := m.GetTasks()
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Text != "写周报" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}

	task.Completed = true
	task.Text = "写周报（已完成）"
	if err := m.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := m.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got == nil || !got.Completed || got.Text != "写周报（已完成）" {
		t.Fatalf("unexpected task after update: %+v", got)
	}

	if err := m.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	got, err = m.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("task should be gone, got %+v", got)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	m := newTestManager(t)

	err := m.UpdateTask(&models.Task{ID: "missing", Text: "x"})
	if err == nil {
		t.Fatal("expected error for missing task")
	}
}

func TestSelectedTaskRoundTrip(t *testing.T) {
	m := newTestManager(t)

	// 初始没有绑定
	binding, err := m.LoadSelectedTask()
	if err != nil {
		t.Fatalf("LoadSelectedTask: %v", err)
	}
	if binding != nil {
		t.Fatalf("expected no binding, got %+v", binding)
	}

	if err := m.SaveSelectedTask(&models.TaskBinding{TaskID: "t1", TaskText: "复习算法"}); err != nil {
		t.Fatalf("SaveSelectedTask: %v", err)
	}
	binding, err = m.LoadSelectedTask()
	if err != nil {
		t.Fatalf("LoadSelectedTask: %v", err)
	}
	if binding == nil || binding.TaskID != "t1" || binding.TaskText != "复习算法" {
		t.Fatalf("unexpected binding: %+v", binding)
	}

	// 覆盖写
	if err := m.SaveSelectedTask(&models.TaskBinding{TaskID: "t2", TaskText: "写文档"}); err != nil {
		t.Fatalf("SaveSelectedTask overwrite: %v", err)
	}
	binding, _ = m.LoadSelectedTask()
	if binding.TaskID != "t2" {
		t.Fatalf("expected t2, got %+v", binding)
	}

	// 清空
	if err := m.SaveSelectedTask(nil); err != nil {
		t.Fatalf("SaveSelectedTask nil: %v", err)
	}
	binding, _ = m.LoadSelectedTask()
	if binding != nil {
		t.Fatalf("expected cleared binding, got %+v", binding)
	}
}

func TestMonitoringResultsAndStats(t *testing.T) {
	m := newTestManager(t)

	now := time.Now()
	states := []models.FocusState{
		models.StateFocused,
		models.StateFocused,
		models.StateFocused,
		models.StateDistracted,
		models.StateSeverelyDistracted,
	}
	for i, s := range states {
		r := &models.ClassificationResult{
			Timestamp:       now.Add(time.Duration(i) * time.Minute),
			State:           s,
			Confidence:      0.9,
			ApplicationName: "Code",
		}
		if err := m.SaveMonitoringResult(r); err != nil {
			t.Fatalf("SaveMonitoringResult: %v", err)
		}
	}

	recent, err := m.GetRecentResults(3)
	if err != nil {
		t.Fatalf("GetRecentResults: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 results, got %d", len(recent))
	}
	if recent[0].State != models.StateSeverelyDistracted {
		t.Errorf("newest first expected, got %s", recent[0].State)
	}

	stats, err := m.GetTodayStats(3)
	if err != nil {
		t.Fatalf("GetTodayStats: %v", err)
	}
	if stats.TotalFocusSeconds != 3*3*60 {
		t.Errorf("focus seconds = %d", stats.TotalFocusSeconds)
	}
	if stats.TotalDistractSeconds != 2*3*60 {
		t.Errorf("distract seconds = %d", stats.TotalDistractSeconds)
	}
	if stats.FocusScore != 60 {
		t.Errorf("focus score = %d, want 60", stats.FocusScore)
	}
	if stats.InterruptionCount != 2 {
		t.Errorf("interruptions = %d, want 2", stats.InterruptionCount)
	}

	checks, err := m.CountTodayChecks()
	if err != nil {
		t.Fatalf("CountTodayChecks: %v", err)
	}
	if checks != 5 {
		t.Errorf("today checks = %d, want 5", checks)
	}
}

func TestCleanupOldResults(t *testing.T) {
	m := newTestManager(t)

	old := &models.ClassificationResult{
		Timestamp: time.Now().AddDate(0, 0, -40),
		State:     models.StateFocused,
	}
	fresh := &models.ClassificationResult{
		Timestamp: time.Now(),
		State:     models.StateFocused,
	}
	if err := m.SaveMonitoringResult(old); err != nil {
		t.Fatalf("SaveMonitoringResult: %v", err)
	}
	if err := m.SaveMonitoringResult(fresh); err != nil {
		t.Fatalf("SaveMonitoringResult: %v", err)
	}

	deleted, err := m.CleanupOldResults(30)
	if err != nil {
		t.Fatalf("CleanupOldResults: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	recent, _ := m.GetRecentResults(10)
	if len(recent) != 1 {
		t.Errorf("remaining results = %d, want 1", len(recent))
	}
}

func TestDailyReportUpsert(t *testing.T) {
	m := newTestManager(t)

	date := time.Now().Format("2006-01-02")
	if err := m.SaveDailyReport(&models.DailyReport{Date: date, Content: "v1", Model: "gpt-4"}); err != nil {
		t.Fatalf("SaveDailyReport: %v", err)
	}
	if err := m.SaveDailyReport(&models.DailyReport{Date: date, Content: "v2", Model: "gpt-4"}); err != nil {
		t.Fatalf("SaveDailyReport upsert: %v", err)
	}

	report, err := m.GetDailyReport(date)
	if err != nil {
		t.Fatalf("GetDailyReport: %v", err)
	}
	if report == nil || report.Content != "v2" {
		t.Fatalf("unexpected report: %+v", report)
	}

	missing, err := m.GetDailyReport("1999-01-01")
	if err != nil {
		t.Fatalf("GetDailyReport missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing date, got %+v", missing)
	}
}

func TestFocusSessionRoundTrip(t *testing.T) {
	m := newTestManager(t)

	now := time.Now()
	completed := now.Add(25 * time.Minute)
	session := &models.FocusSession{
		ID:              uuid.New().String(),
		Type:            models.SessionFocus,
		Status:          models.SessionCompleted,
		DurationMinutes: 25,
		ElapsedSeconds:  1500,
		TaskID:          "t1",
		TaskText:        "写周报",
		StartedAt:       now,
		CompletedAt:     &completed,
	}
	if err := m.SaveFocusSession(session); err != nil {
		t.Fatalf("SaveFocusSession: %v", err)
	}

	sessions, err := m.GetSessionsForDate(now)
	if err != nil {
		t.Fatalf("GetSessionsForDate: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	got := sessions[0]
	if got.ID != session.ID || got.Type != models.SessionFocus || got.TaskText != "写周报" {
		t.Errorf("session = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at should survive the round trip")
	}

	// 其他日期查不到
	other, err := m.GetSessionsForDate(now.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("GetSessionsForDate other day: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("sessions on other day = %d, want 0", len(other))
	}
}

func TestWeeklyReportUpsert(t *testing.T) {
	m := newTestManager(t)

	report := &models.WeeklyReport{WeekStart: "2026-08-24", WeekEnd: "2026-08-30", Content: "v1", Model: "gpt-4"}
	if err := m.SaveWeeklyReport(report); err != nil {
		t.Fatalf("SaveWeeklyReport: %v", err)
	}
	report.Content = "v2"
	if err := m.SaveWeeklyReport(report); err != nil {
		t.Fatalf("SaveWeeklyReport upsert: %v", err)
	}

	got, err := m.GetWeeklyReport("2026-08-24")
	if err != nil {
		t.Fatalf("GetWeeklyReport: %v", err)
	}
	if got == nil || got.Content != "v2" || got.WeekEnd != "2026-08-30" {
		t.Fatalf("unexpected report: %+v", got)
	}

	missing, err := m.GetWeeklyReport("1999-01-04")
	if err != nil {
		t.Fatalf("GetWeeklyReport missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing week, got %+v", missing)
	}
}
