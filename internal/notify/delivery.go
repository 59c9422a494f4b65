package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"MyFocusAI/internal/events"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

// Delivery 干预通知投递
// 应用内通知总是通过事件总线广播；轻度提醒和严重警告额外发送系统通知，
// 鼓励消息只在应用内展示。任何投递失败只记日志，不影响监控循环。
type Delivery struct {
	bus *events.Bus

	mu     sync.Mutex
	timers map[models.InterventionKind]*time.Timer

	// 可注入，便于测试
	osNotify  func(title, message string, urgent bool) error
	playSound func(urgent bool)
}

// NewDelivery 创建通知投递器
func NewDelivery(bus *events.Bus) *Delivery {
	d := &Delivery{
		bus:    bus,
		timers: make(map[models.InterventionKind]*time.Timer),
	}
	d.osNotify = sendSystemNotification
	d.playSound = playSystemSound
	return d
}

// Deliver 投递一次干预通知
func (d *Delivery) Deliver(event *models.InterventionEvent, settings *models.UserSettings) {
	// 应用内通知总是广播
	d.bus.Publish(events.InterventionRaised, event)

	// 同类通知替换展示：重置旧的自动消失计时器
	d.scheduleDismiss(event)

	// 系统级通知：鼓励消息不打扰系统通知中心
	if settings.NotificationEnabled && event.Kind != models.InterventionEncouragement {
		title := notificationTitle(event.Kind)
		if err := d.osNotify(title, event.Message, event.Urgent); err != nil {
			logger.Error("❌ 发送系统通知失败: %v", err)
		}
	}

	if event.SoundEnabled && settings.SoundEnabled {
		d.playSound(event.Urgent)
	}
}

// scheduleDismiss 安排应用内通知自动消失
// 同类通知到达时替换旧通知的计时器
func (d *Delivery) scheduleDismiss(event *models.InterventionEvent) {
	duration := event.DurationSeconds
	if duration <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.timers[event.Kind]; ok {
		old.Stop()
	}

	kind := event.Kind
	d.timers[kind] = time.AfterFunc(time.Duration(duration)*time.Second, func() {
		d.mu.Lock()
		delete(d.timers, kind)
		d.mu.Unlock()
		d.bus.Publish(events.NotificationDismissed, kind)
	})
}

// Stop 停止所有待触发的自动消失计时器
func (d *Delivery) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, timer := range d.timers {
		timer.Stop()
		delete(d.timers, kind)
	}
}

// notificationTitle 各干预类型的通知标题
func notificationTitle(kind models.InterventionKind) string {
	switch kind {
	case models.InterventionSevere:
		return "严重分心警告"
	case models.InterventionLight:
		return "专注提醒"
	case models.InterventionEncouragement:
		return "专注鼓励"
	default:
		return "MyFocusAI"
	}
}

// sendSystemNotification 发送系统通知
func sendSystemNotification(title, message string, urgent bool) error {
	logger.Info("📬 发送系统通知: %s - %s", title, message)

	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		urgency := "normal"
		if urgent {
			urgency = "critical"
		}
		return exec.Command("notify-send", "-u", urgency, "-a", "MyFocusAI", title, message).Run()
	case "windows":
		script := powershellToast(title, message)
		return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// powershellToast 生成 Windows 弹窗通知脚本
func powershellToast(title, message string) string {
	esc := func(s string) string {
		return strings.ReplaceAll(s, "'", "''")
	}
	return fmt.Sprintf(
		`[void][System.Reflection.Assembly]::LoadWithPartialName('System.Windows.Forms');`+
			`$n=New-Object System.Windows.Forms.NotifyIcon;`+
			`$n.Icon=[System.Drawing.SystemIcons]::Information;`+
			`$n.Visible=$true;`+
			`$n.ShowBalloonTip(10000,'%s','%s',[System.Windows.Forms.ToolTipIcon]::Warning)`,
		esc(title), esc(message))
}

// playSystemSound 播放提示音，严重警告用更醒目的声音
func playSystemSound(urgent bool) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		sound := "/System/Library/Sounds/Glass.aiff"
		if urgent {
			sound = "/System/Library/Sounds/Sosumi.aiff"
		}
		err = exec.Command("afplay", sound).Start()
	case "linux":
		sound := "message"
		if urgent {
			sound = "dialog-warning"
		}
		err = exec.Command("canberra-gtk-play", "-i", sound).Start()
	case "windows":
		freq := 600
		if urgent {
			freq = 1000
		}
		err = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
			fmt.Sprintf("[console]::beep(%d,300)", freq)).Start()
	}
	if err != nil {
		logger.Debug("播放提示音失败: %v", err)
	}
}
