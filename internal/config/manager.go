package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

const (
	aiConfigFile         = "ai_config.json"
	monitoringConfigFile = "monitoring_config.json"
	userSettingsFile     = "user_settings.json"
	activeConfigFile     = "active_monitoring_config.json"
)

// Manager 配置管理器
// AI 配置、监控配置、用户设置分三个文件独立持久化，
// 任何一项的保存不会影响其他两项
type Manager struct {
	dataDir    string
	ai         *models.AIConfig
	monitoring *models.MonitoringConfig
	settings   *models.UserSettings
	server     *models.ServerConfig
	storage    *models.StorageConfig
	capture    *models.CaptureConfig
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
// 加载失败的文件回落到默认值并立即写回
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	m := &Manager{
		dataDir: dataDir,
		server:  models.DefaultServerConfig(),
		storage: models.DefaultStorageConfig(),
		capture: models.DefaultCaptureConfig(),
	}

	m.ai = &models.AIConfig{}
	if err := m.load(aiConfigFile, m.ai); err != nil {
		m.ai = models.DefaultAIConfig()
		if err := m.save(aiConfigFile, m.ai); err != nil {
			return nil, fmt.Errorf("failed to save default ai config: %w", err)
		}
	}

	m.monitoring = &models.MonitoringConfig{}
	if err := m.load(monitoringConfigFile, m.monitoring); err != nil {
		m.monitoring = models.DefaultMonitoringConfig()
		if err := m.save(monitoringConfigFile, m.monitoring); err != nil {
			return nil, fmt.Errorf("failed to save default monitoring config: %w", err)
		}
	}

	m.settings = &models.UserSettings{}
	if err := m.load(userSettingsFile, m.settings); err != nil {
		m.settings = models.DefaultUserSettings()
		if err := m.save(userSettingsFile, m.settings); err != nil {
			return nil, fmt.Errorf("failed to save default user settings: %w", err)
		}
	}

	logger.Info("配置加载完成: %s (API类型: %s, 检查间隔: %d分钟)",
		dataDir, m.ai.APIType, m.monitoring.IntervalMinutes)
	return m, nil
}

// load 从数据目录加载一个配置文件
func (m *Manager) load(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(m.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", name)
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// save 保存一个配置文件 (内部方法,不加锁)
func (m *Manager) save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(m.dataDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	logger.Debug("✅ 配置已保存到: %s", path)
	return nil
}

// GetAI 获取 AI 配置副本
func (m *Manager) GetAI() models.AIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.ai
}

// UpdateAI 更新并持久化 AI 配置
func (m *Manager) UpdateAI(updater func(*models.AIConfig)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	updater(m.ai)
	return m.save(aiConfigFile, m.ai)
}

// GetMonitoring 获取监控配置副本
// 返回副本时同步填入当前 AI 配置，保证两份配置一起读到的是一致快照
func (m *Manager) GetMonitoring() models.MonitoringConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.monitoring
	cfg.AI = *m.ai
	cfg.Whitelist = append([]string(nil), m.monitoring.Whitelist...)
	cfg.Blacklist = append([]string(nil), m.monitoring.Blacklist...)
	return cfg
}

// UpdateMonitoring 更新并持久化监控配置
func (m *Manager) UpdateMonitoring(updater func(*models.MonitoringConfig)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	updater(m.monitoring)
	return m.save(monitoringConfigFile, m.monitoring)
}

// GetSettings 获取用户设置副本
func (m *Manager) GetSettings() models.UserSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.settings
}

// UpdateSettings 更新并持久化用户设置
func (m *Manager) UpdateSettings(updater func(*models.UserSettings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	updater(m.settings)
	return m.save(userSettingsFile, m.settings)
}

// GetServer 获取服务器配置
func (m *Manager) GetServer() models.ServerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.server
}

// GetStorage 获取存储配置
func (m *Manager) GetStorage() models.StorageConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.storage
}

// GetCapture 获取截屏配置
func (m *Manager) GetCapture() models.CaptureConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.capture
}

// ActivateMonitoring 启动监控时落盘当前生效的配置快照
// 快照用于排查问题时还原本次监控会话实际使用的配置
func (m *Manager) ActivateMonitoring() (models.MonitoringConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.monitoring.Enabled = true
	if err := m.save(monitoringConfigFile, m.monitoring); err != nil {
		return models.MonitoringConfig{}, err
	}

	snapshot := *m.monitoring
	snapshot.AI = *m.ai
	snapshot.Whitelist = append([]string(nil), m.monitoring.Whitelist...)
	snapshot.Blacklist = append([]string(nil), m.monitoring.Blacklist...)
	if err := m.save(activeConfigFile, &snapshot); err != nil {
		return models.MonitoringConfig{}, err
	}
	return snapshot, nil
}

// DeactivateMonitoring 停止监控时更新启用标记
func (m *Manager) DeactivateMonitoring() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitoring.Enabled = false
	return m.save(monitoringConfigFile, m.monitoring)
}
