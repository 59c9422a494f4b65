package models

// APIType AI 服务类型
// 与设置界面保持一致的展示文案
const (
	APITypeOpenAI = "OpenAI Compatible"
	APITypeOllama = "Ollama (本地)"
	APITypeClaude = "Claude API"
)

// AIConfig AI 配置
// 独立于 MonitoringConfig 单独持久化（ai_config.json）
type AIConfig struct {
	APIType        string `json:"api_type"`        // OpenAI Compatible / Ollama (本地) / Claude API
	APIURL         string `json:"api_url"`         // 如 https://api.openai.com/v1
	APIKey         string `json:"api_key"`         // API 密钥
	DetectionModel string `json:"detection_model"` // 专注状态检测模型
	ReportModel    string `json:"report_model"`    // 报告生成模型
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Enabled         bool     `json:"enabled"`          // 是否启用监控
	IntervalMinutes int      `json:"interval_minutes"` // 检查间隔（分钟，1-10）
	Whitelist       []string `json:"whitelist"`        // 白名单应用（有助于专注）
	Blacklist       []string `json:"blacklist"`        // 黑名单应用（通常导致分心）
	AI              AIConfig `json:"ai_config"`        // 本次监控使用的 AI 配置
}

// InterventionSettings 分心干预设置
type InterventionSettings struct {
	Enabled                      bool   `json:"enabled"`                        // 是否启用分心干预
	LightDistractionNotification bool   `json:"light_distraction_notification"` // 轻度分心通知
	SevereDistractionPopup       bool   `json:"severe_distraction_popup"`       // 严重分心弹窗
	EncouragementEnabled         bool   `json:"encouragement_enabled"`          // 是否启用鼓励消息
	CooldownMinutes              int    `json:"intervention_cooldown_minutes"`  // 干预冷却时间（分钟）
	NotificationSound            bool   `json:"notification_sound"`             // 干预通知是否播放声音
	PopupDurationSeconds         int    `json:"popup_duration_seconds"`         // 弹窗显示时长（秒）
	EncouragementFrequency       string `json:"encouragement_frequency"`        // 鼓励频率 ("low", "medium", "high")
}

// UserSettings 用户设置
type UserSettings struct {
	NotificationEnabled bool                 `json:"notification_enabled"` // 是否启用系统通知
	SoundEnabled        bool                 `json:"sound_enabled"`        // 是否启用声音
	Autostart           bool                 `json:"autostart"`            // 是否开机自动启动
	Intervention        InterventionSettings `json:"distraction_intervention"`
}

// ServerConfig Web 管理界面配置
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AutoOpenBrowser bool   `json:"auto_open_browser"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DataDir       string `json:"data_dir"`       // 数据目录
	LogsDir       string `json:"logs_dir"`       // 日志目录
	RetentionDays int    `json:"retention_days"` // 监控结果保留天数
}

// CaptureConfig 截屏上下文采集配置
// OCR 属于可选的上下文增强，任何失败都不应阻断检查循环
type CaptureConfig struct {
	ScreenshotEnabled bool `json:"screenshot_enabled"` // 是否采集屏幕截图
	OCREnabled        bool `json:"ocr_enabled"`        // 是否对截图执行 OCR
	MaxOCRChars       int  `json:"max_ocr_chars"`      // OCR 文本最大长度
	JPEGQuality       int  `json:"jpeg_quality"`       // 截图压缩质量 (1-100)
	DownscaleWidth    int  `json:"downscale_width"`    // 截图缩放宽度（0 表示不缩放）
}

// DefaultMonitoringConfig 返回默认监控配置
func DefaultMonitoringConfig() *MonitoringConfig {
	return &MonitoringConfig{
		Enabled:         false,
		IntervalMinutes: 3, // 默认3分钟
		Whitelist:       []string{},
		Blacklist:       []string{},
		AI:              *DefaultAIConfig(),
	}
}

// DefaultAIConfig 返回默认 AI 配置
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIType:        APITypeOpenAI,
		APIURL:         "https://api.openai.com/v1",
		APIKey:         "",
		DetectionModel: "gpt-3.5-turbo",
		ReportModel:    "gpt-4-turbo-preview",
	}
}

// DefaultUserSettings 返回默认用户设置
func DefaultUserSettings() *UserSettings {
	return &UserSettings{
		NotificationEnabled: true,
		SoundEnabled:        true,
		Autostart:           false,
		Intervention: InterventionSettings{
			Enabled:                      true,
			LightDistractionNotification: true,
			SevereDistractionPopup:       true,
			EncouragementEnabled:         true,
			CooldownMinutes:              5,
			NotificationSound:            true,
			PopupDurationSeconds:         10,
			EncouragementFrequency:       "medium",
		},
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            9528,
		Host:            "localhost",
		AutoOpenBrowser: true,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		DataDir:       "./data",
		LogsDir:       "./data/logs",
		RetentionDays: 30,
	}
}

// DefaultCaptureConfig 返回默认上下文采集配置
func DefaultCaptureConfig() *CaptureConfig {
	return &CaptureConfig{
		ScreenshotEnabled: true,
		OCREnabled:        true,
		MaxOCRChars:       1000,
		JPEGQuality:       85,
		DownscaleWidth:    1280,
	}
}
