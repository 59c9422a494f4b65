package focus

import (
	"fmt"
	"time"

	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

// Policy 分心干预策略
// 只在进入新状态时触发干预：保持同一状态不重复打扰。
// 轻度提醒和严重警告共用一个冷却时钟，鼓励消息不占用冷却。
type Policy struct {
	now func() time.Time // 可注入，便于测试
}

// NewPolicy 创建干预策略
func NewPolicy() *Policy {
	return &Policy{now: time.Now}
}

// Evaluate 根据一次状态迁移决定是否触发干预
// 返回 nil 表示本次不干预
func (p *Policy) Evaluate(
	prev, next models.FocusState,
	taskText string,
	settings *models.InterventionSettings,
	cooldown *models.InterventionCooldown,
) *models.InterventionEvent {
	if !settings.Enabled {
		logger.Debug("ℹ️ 分心干预功能已禁用，跳过干预")
		return nil
	}

	// 状态未变化不重复干预
	if prev == next {
		return nil
	}

	// 空闲态不干预
	if next == models.StateIdle {
		return nil
	}

	now := p.now()

	switch next {
	case models.StateFocused:
		// 鼓励消息不检查也不占用冷却
		if !settings.EncouragementEnabled {
			return nil
		}
		message := "专注状态良好！继续保持。"
		if taskText != "" {
			message = fmt.Sprintf("专注状态良好！继续保持对「%s」的专注。", taskText)
		}
		logger.Info("✅ 进入专注状态，发送鼓励")
		return &models.InterventionEvent{
			Kind:            models.InterventionEncouragement,
			Message:         message,
			Urgent:          false,
			DurationSeconds: settings.PopupDurationSeconds,
			SoundEnabled:    false,
			Timestamp:       now,
		}

	case models.StateDistracted:
		if !settings.LightDistractionNotification {
			logger.Debug("ℹ️ 轻度分心通知已禁用")
			return nil
		}
		if p.inCooldown(cooldown, now) {
			logger.Debug("⏱️ 干预功能在冷却期内，跳过此次干预")
			return nil
		}
		message := "检测到轻度分心，建议重新集中注意力。"
		if taskText != "" {
			message = fmt.Sprintf("检测到轻度分心，当前任务：%s。建议重新集中注意力。", taskText)
		}
		logger.Info("⚠️ 检测到分心状态，执行轻度干预")
		p.markFired(cooldown, now)
		return &models.InterventionEvent{
			Kind:            models.InterventionLight,
			Message:         message,
			Urgent:          false,
			DurationSeconds: settings.PopupDurationSeconds,
			SoundEnabled:    settings.NotificationSound,
			Timestamp:       now,
		}

	case models.StateSeverelyDistracted:
		if !settings.SevereDistractionPopup {
			logger.Debug("ℹ️ 严重分心弹窗已禁用")
			return nil
		}
		if p.inCooldown(cooldown, now) {
			logger.Debug("⏱️ 干预功能在冷却期内，跳过此次干预")
			return nil
		}
		message := "严重分心警告！请立即回到工作状态！"
		if taskText != "" {
			message = fmt.Sprintf("严重分心警告！当前任务：%s。请立即回到工作状态！", taskText)
		}
		logger.Info("🚨 检测到严重分心状态，执行强度干预")
		p.markFired(cooldown, now)
		return &models.InterventionEvent{
			Kind:            models.InterventionSevere,
			Message:         message,
			Urgent:          true,
			DurationSeconds: settings.PopupDurationSeconds,
			SoundEnabled:    settings.NotificationSound,
			Timestamp:       now,
		}
	}

	return nil
}

// inCooldown 判断是否在冷却期内
func (p *Policy) inCooldown(cooldown *models.InterventionCooldown, now time.Time) bool {
	if cooldown.LastFiredAt == nil {
		return false
	}
	minutes := cooldown.CooldownMinutes
	if minutes <= 0 {
		return false
	}
	return now.Sub(*cooldown.LastFiredAt) < time.Duration(minutes)*time.Minute
}

// markFired 记录本次干预时间
func (p *Policy) markFired(cooldown *models.InterventionCooldown, now time.Time) {
	t := now
	cooldown.LastFiredAt = &t
}
