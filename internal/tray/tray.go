package tray

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"MyFocusAI/internal/events"
	"MyFocusAI/internal/monitor"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/getlantern/systray"
)

// TrayApp 托盘应用
// 托盘菜单是监控开关的快捷入口，状态随事件总线同步
type TrayApp struct {
	monitorMgr      *monitor.Monitor
	bus             *events.Bus
	webURL          string
	autoOpenBrowser bool
	onExit          func()

	mToggle *systray.MenuItem
	mState  *systray.MenuItem
}

// NewTrayApp 创建托盘应用
func NewTrayApp(
	monitorMgr *monitor.Monitor,
	bus *events.Bus,
	webURL string,
	autoOpenBrowser bool,
	onExit func(),
) *TrayApp {
	return &TrayApp{
		monitorMgr:      monitorMgr,
		bus:             bus,
		webURL:          webURL,
		autoOpenBrowser: autoOpenBrowser,
		onExit:          onExit,
	}
}

// Run 运行托盘应用（阻塞）
func (t *TrayApp) Run() {
	systray.Run(t.onReady, t.onQuit)
}

// onReady 托盘准备就绪
func (t *TrayApp) onReady() {
	systray.SetIcon(getIcon())
	systray.SetTitle("MyFocusAI")
	systray.SetTooltip("MyFocusAI - 专注监控助手\n点击右键查看选项")

	t.mState = systray.AddMenuItem("⚪ 状态: 空闲", "当前专注状态")
	t.mState.Disable()

	systray.AddSeparator()

	t.mToggle = systray.AddMenuItem("▶️ 开始监控", "启动专注状态监控")
	mOpen := systray.AddMenuItem("🌐 打开管理界面", "在浏览器中打开 Web 管理页面")

	systray.AddSeparator()

	mQuit := systray.AddMenuItem("❌ 退出程序", "退出 MyFocusAI")

	// 状态随事件总线同步
	t.bus.Subscribe(events.MonitoringStateChange, func(payload interface{}) {
		running, _ := payload.(bool)
		if running {
			t.mToggle.SetTitle("⏸️ 停止监控")
		} else {
			t.mToggle.SetTitle("▶️ 开始监控")
			t.mState.SetTitle("⚪ 状态: 空闲")
		}
	})
	t.bus.Subscribe(events.FocusStateChanged, func(payload interface{}) {
		state, _ := payload.(models.FocusState)
		t.mState.SetTitle(stateTitle(state))
	})

	// 事件循环
	go func() {
		for {
			select {
			case <-t.mToggle.ClickedCh:
				t.toggleMonitoring()

			case <-mOpen.ClickedCh:
				logger.Info("📱 打开浏览器...")
				t.openBrowser()

			case <-mQuit.ClickedCh:
				logger.Info("🛑 用户请求退出...")
				systray.Quit()
				return
			}
		}
	}()

	// 自动打开浏览器（延迟1秒确保Web服务器已完全启动）
	if t.autoOpenBrowser {
		go func() {
			time.Sleep(1 * time.Second)
			logger.Info("🌐 自动打开浏览器: %s", t.webURL)
			t.openBrowser()
		}()
	}
}

// toggleMonitoring 切换监控开关
func (t *TrayApp) toggleMonitoring() {
	if t.monitorMgr.IsRunning() {
		t.monitorMgr.Stop()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := t.monitorMgr.Start(ctx); err != nil {
		logger.Error("❌ 从托盘启动监控失败: %v", err)
	}
}

// stateTitle 专注状态对应的菜单标题
func stateTitle(state models.FocusState) string {
	switch state {
	case models.StateFocused:
		return "🟢 状态: 专注"
	case models.StateDistracted:
		return "🟡 状态: 分心"
	case models.StateSeverelyDistracted:
		return "🔴 状态: 严重分心"
	default:
		return "⚪ 状态: 空闲"
	}
}

// onQuit 托盘退出
func (t *TrayApp) onQuit() {
	t.monitorMgr.Stop()

	if t.onExit != nil {
		t.onExit()
	}

	logger.Info("👋 MyFocusAI 已退出")
}

// openBrowser 打开浏览器
func (t *TrayApp) openBrowser() {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", t.webURL)
	case "darwin":
		cmd = exec.Command("open", t.webURL)
	default: // linux
		cmd = exec.Command("xdg-open", t.webURL)
	}

	if err := cmd.Start(); err != nil {
		logger.Error("无法打开浏览器: %v", err)
	}
}

// getIcon 获取托盘图标
// Windows 托盘推荐 .ico，其他平台用 PNG；找不到文件时回退到内置图标
func getIcon() []byte {
	exePath, err := os.Executable()
	baseDir := "."
	if err == nil {
		baseDir = filepath.Dir(exePath)
	}

	var candidates []string
	if runtime.GOOS == "windows" {
		candidates = []string{
			filepath.Join(baseDir, "assets", "MyFocusAI.ico"),
		}
	} else {
		candidates = []string{
			filepath.Join(baseDir, "assets", "MyFocusAI.png"),
			filepath.Join(baseDir, "assets", "MyFocusAI.ico"),
		}
	}

	for _, iconPath := range candidates {
		if data, err := os.ReadFile(iconPath); err == nil && len(data) > 0 {
			logger.Info("✅ 使用托盘图标: %s", iconPath)
			return data
		}
	}

	logger.Warn("⚠️ 未找到自定义图标文件，使用内置默认图标")
	// 内置备用图标：16x16 纯色 PNG
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x91, 0x68,
		0x36, 0x00, 0x00, 0x00, 0x19, 0x49, 0x44, 0x41,
		0x54, 0x28, 0x91, 0x63, 0x64, 0x60, 0xF8, 0x0F,
		0x04, 0x0C, 0x0C, 0x8C, 0x40, 0x06, 0x06, 0x46,
		0x20, 0x03, 0x03, 0x23, 0x00, 0x00, 0x0F, 0x70,
		0x01, 0x18, 0xE5, 0xD4, 0x8F, 0x4F, 0x00, 0x00,
		0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42,
		0x60, 0x82,
	}
}
