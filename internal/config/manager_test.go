package config

import (
	"os"
	"path/filepath"
	"testing"

	"MyFocusAI/pkg/models"
)

func TestNewManagerWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	for _, name := range []string{"ai_config.json", "monitoring_config.json", "user_settings.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	ai := m.GetAI()
	if ai.APIType != models.APITypeOpenAI {
		t.Errorf("default api type = %q", ai.APIType)
	}
	if got := m.GetMonitoring().IntervalMinutes; got != 3 {
		t.Errorf("default interval = %d, want 3", got)
	}
	if got := m.GetSettings().Intervention.CooldownMinutes; got != 5 {
		t.Errorf("default cooldown = %d, want 5", got)
	}
}

func TestManagerUpdatePersists(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.UpdateAI(func(c *models.AIConfig) {
		c.APIKey = "sk-test"
		c.DetectionModel = "gpt-4o-mini"
	}); err != nil {
		t.Fatalf("UpdateAI: %v", err)
	}
	if err := m.UpdateMonitoring(func(c *models.MonitoringConfig) {
		c.IntervalMinutes = 5
		c.Whitelist = []string{"Visual Studio Code"}
	}); err != nil {
		t.Fatalf("UpdateMonitoring: %v", err)
	}

	// 重新加载验证持久化
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager reload: %v", err)
	}
	if got := m2.GetAI().DetectionModel; got != "gpt-4o-mini" {
		t.Errorf("reloaded detection model = %q", got)
	}
	cfg := m2.GetMonitoring()
	if cfg.IntervalMinutes != 5 {
		t.Errorf("reloaded interval = %d", cfg.IntervalMinutes)
	}
	if len(cfg.Whitelist) != 1 || cfg.Whitelist[0] != "Visual Studio Code" {
		t.Errorf("reloaded whitelist = %v", cfg.Whitelist)
	}
}

func TestGetMonitoringIncludesCurrentAI(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.UpdateAI(func(c *models.AIConfig) { c.APIKey = "sk-abc" }); err != nil {
		t.Fatalf("UpdateAI: %v", err)
	}

	if got := m.GetMonitoring().AI.APIKey; got != "sk-abc" {
		t.Errorf("monitoring snapshot api key = %q, want sk-abc", got)
	}
}

func TestActivateMonitoringWritesSnapshot(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.UpdateAI(func(c *models.AIConfig) { c.APIKey = "sk-active" }); err != nil {
		t.Fatalf("UpdateAI: %v", err)
	}

	snapshot, err := m.ActivateMonitoring()
	if err != nil {
		t.Fatalf("ActivateMonitoring: %v", err)
	}
	if !snapshot.Enabled {
		t.Error("snapshot should be enabled")
	}
	if snapshot.AI.APIKey != "sk-active" {
		t.Errorf("snapshot api key = %q", snapshot.AI.APIKey)
	}
	if _, err := os.Stat(filepath.Join(dir, "active_monitoring_config.json")); err != nil {
		t.Errorf("expected active snapshot file: %v", err)
	}

	if err := m.DeactivateMonitoring(); err != nil {
		t.Fatalf("DeactivateMonitoring: %v", err)
	}
	if m.GetMonitoring().Enabled {
		t.Error("monitoring should be disabled after deactivate")
	}
}
