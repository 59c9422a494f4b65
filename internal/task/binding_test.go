package task

import (
	"testing"
	"time"

	"MyFocusAI/internal/events"
	"MyFocusAI/internal/storage"
	"MyFocusAI/pkg/models"
)

func newTestBinder(t *testing.T) (*Binder, *storage.Manager, *int) {
	t.Helper()
	store, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewManager: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bus := events.NewBus()
	changes := 0
	bus.Subscribe(events.TaskBindingChanged, func(interface{}) { changes++ })

	b, err := NewBinder(store, bus)
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	return b, store, &changes
}

func saveTask(t *testing.T, store *storage.Manager, id, text string) *models.Task {
	t.Helper()
	task := &models.Task{ID: id, Text: text, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.SaveTask(task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	return task
}

func TestSelectAndClear(t *testing.T) {
	b, store, changes := newTestBinder(t)
	task := saveTask(t, store, "t1", "写周报")

	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := b.CurrentText(); got != "写周报" {
		t.Errorf("CurrentText = %q", got)
	}
	if *changes != 1 {
		t.Errorf("changes = %d, want 1", *changes)
	}

	if err := b.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if b.Current() != nil {
		t.Error("binding should be cleared")
	}
	if *changes != 2 {
		t.Errorf("changes = %d, want 2", *changes)
	}

	// 重复清除是空操作
	if err := b.Clear(); err != nil {
		t.Fatalf("Clear again: %v", err)
	}
	if *changes != 2 {
		t.Errorf("repeated clear should not publish, changes = %d", *changes)
	}
}

func TestSelectSameTaskIsIdempotent(t *testing.T) {
	b, store, changes := newTestBinder(t)
	task := saveTask(t, store, "t1", "写周报")

	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := b.Select(task); err != nil {
		t.Fatalf("Select again: %v", err)
	}
	if *changes != 1 {
		t.Errorf("idempotent select should publish once, changes = %d", *changes)
	}
}

func TestSelectSwitchesTask(t *testing.T) {
	b, store, changes := newTestBinder(t)
	task1 := saveTask(t, store, "t1", "写周报")
	task2 := saveTask(t, store, "t2", "复习算法")

	if err := b.Select(task1); err != nil {
		t.Fatalf("Select t1: %v", err)
	}
	if err := b.Select(task2); err != nil {
		t.Fatalf("Select t2: %v", err)
	}
	if got := b.Current().TaskID; got != "t2" {
		t.Errorf("current task = %s, want t2", got)
	}
	if *changes != 2 {
		t.Errorf("changes = %d, want 2", *changes)
	}
}

func TestBindingRestoredAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	if err != nil {
		t.Fatalf("storage.NewManager: %v", err)
	}
	bus := events.NewBus()

	b, err := NewBinder(store, bus)
	if err != nil {
		t.Fatalf("NewBinder: %v", err)
	}
	task := saveTask(t, store, "t1", "写周报")
	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}
	store.Close()

	// 重新打开模拟重启
	store2, err := storage.NewManager(dir)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	defer store2.Close()

	b2, err := NewBinder(store2, events.NewBus())
	if err != nil {
		t.Fatalf("NewBinder after restart: %v", err)
	}
	if got := b2.CurrentText(); got != "写周报" {
		t.Errorf("restored binding = %q", got)
	}
}

func TestReconcileClearsDeletedTask(t *testing.T) {
	b, store, changes := newTestBinder(t)
	task := saveTask(t, store, "t1", "写周报")
	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if err := store.DeleteTask("t1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := b.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if b.Current() != nil {
		t.Error("binding should be cleared after task deleted")
	}
	if *changes != 2 {
		t.Errorf("changes = %d, want 2 (select + clear)", *changes)
	}

	// 再次对账不重复通知
	if err := b.Reconcile(); err != nil {
		t.Fatalf("Reconcile again: %v", err)
	}
	if *changes != 2 {
		t.Errorf("repeated reconcile should not publish, changes = %d", *changes)
	}
}

func TestReconcileClearsCompletedTask(t *testing.T) {
	b, store, _ := newTestBinder(t)
	task := saveTask(t, store, "t1", "写周报")
	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}

	task.Completed = true
	if err := store.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := b.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if b.Current() != nil {
		t.Error("binding should be cleared after task completed")
	}
}

func TestReconcileSyncsEditedText(t *testing.T) {
	b, store, _ := newTestBinder(t)
	task := saveTask(t, store, "t1", "写周报")
	if err := b.Select(task); err != nil {
		t.Fatalf("Select: %v", err)
	}

	task.Text = "写月报"
	if err := store.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if err := b.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := b.CurrentText(); got != "写月报" {
		t.Errorf("binding text = %q, want 写月报", got)
	}
}
