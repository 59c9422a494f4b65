package models

import "time"

// FocusState 专注状态
// Idle 既是初始状态，也是停止监控或授权失败后进入的状态
type FocusState string

const (
	StateIdle               FocusState = "idle"
	StateFocused            FocusState = "focused"
	StateDistracted         FocusState = "distracted"
	StateSeverelyDistracted FocusState = "severely_distracted"
)

// CheckContext 一次检查循环采集到的上下文
type CheckContext struct {
	ApplicationName string    `json:"application_name"` // 前台应用名称（空表示未检测到）
	WindowTitle     string    `json:"window_title"`     // 前台窗口标题
	OCRText         string    `json:"ocr_text"`         // 屏幕文本（OCR，可为空）
	TaskText        string    `json:"task_text"`        // 当前绑定任务文本
	Timestamp       time.Time `json:"timestamp"`
}

// ClassificationResult 一次 AI 分类结果
// 每个检查周期产生一次，只保留最近一次用于展示
type ClassificationResult struct {
	Timestamp       time.Time  `json:"timestamp"`
	State           FocusState `json:"state"`
	Confidence      float64    `json:"confidence"` // 置信度 [0,1]，仅用于展示
	ApplicationName string     `json:"application_name,omitempty"`
	WindowTitle     string     `json:"window_title,omitempty"`
	AIAnalysis      string     `json:"ai_analysis,omitempty"` // AI 原始分析文本
}

// InterventionKind 干预类型
type InterventionKind string

const (
	InterventionLight         InterventionKind = "light_distraction"
	InterventionSevere        InterventionKind = "severe_distraction"
	InterventionEncouragement InterventionKind = "encouragement"
)

// InterventionEvent 干预事件
// 由干预策略产生，通知投递组件消费一次后即丢弃
type InterventionEvent struct {
	Kind            InterventionKind `json:"kind"`
	Message         string           `json:"message"`
	Urgent          bool             `json:"urgent"`
	DurationSeconds int              `json:"duration_seconds"`
	SoundEnabled    bool             `json:"sound_enabled"`
	Timestamp       time.Time        `json:"timestamp"`
}

// InterventionCooldown 干预冷却
// 每个监控会话一个实例，停止监控时重置
// 轻度和严重警告共用同一个冷却时钟，鼓励消息不占用
type InterventionCooldown struct {
	LastFiredAt     *time.Time `json:"last_fired_at,omitempty"`
	CooldownMinutes int        `json:"cooldown_minutes"`
}

// Task 任务
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskBinding 当前绑定任务（可为空）
type TaskBinding struct {
	TaskID   string `json:"task_id,omitempty"`
	TaskText string `json:"task_text,omitempty"`
}

// APITestResult API 连通性测试结果
type APITestResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	ModelUsed      string `json:"model_used,omitempty"`
}

// TodayStats 今日统计
// 每条监控结果按检查间隔折算成对应时长
type TodayStats struct {
	TotalFocusSeconds    int `json:"total_focus_time"`
	TotalDistractSeconds int `json:"total_distract_time"`
	FocusScore           int `json:"focus_score"` // 0-100
	InterruptionCount    int `json:"interruption_count"`
}

// DailyReport 每日报告
type DailyReport struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"` // "2006-01-02"
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionType 专注会话类型
type SessionType string

const (
	SessionFocus      SessionType = "focus"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

// SessionStatus 专注会话状态
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// FocusSession 专注会话
// 用户手动启动的倒计时会话，与监控检查循环相互独立。
// 启动时固定当时绑定的任务，中途换绑不影响已开始的会话。
type FocusSession struct {
	ID              string        `json:"id"`
	Type            SessionType   `json:"session_type"`
	Status          SessionStatus `json:"status"`
	DurationMinutes int           `json:"duration_minutes"` // 计划时长
	ElapsedSeconds  int           `json:"elapsed_seconds"`
	TaskID          string        `json:"task_id,omitempty"`
	TaskText        string        `json:"task_text,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// DailyTrend 周报告中单日的数据摘要
type DailyTrend struct {
	Date         string `json:"date"`
	FocusScore   int    `json:"focus_score"`
	FocusSeconds int    `json:"focus_time_seconds"`
	SessionCount int    `json:"session_count"`
}

// WeeklyReport 每周报告
type WeeklyReport struct {
	ID        int64     `json:"id"`
	WeekStart string    `json:"week_start"` // "2006-01-02"，周起始日
	WeekEnd   string    `json:"week_end"`
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// ServiceStatus 监控服务状态
type ServiceStatus struct {
	Monitoring  bool                  `json:"monitoring"`
	State       FocusState            `json:"state"`
	LastResult  *ClassificationResult `json:"last_result,omitempty"`
	BoundTask   *TaskBinding          `json:"bound_task,omitempty"`
	TodayChecks int                   `json:"today_checks"`
}
