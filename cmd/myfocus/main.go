package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"MyFocusAI/internal/ai"
	"MyFocusAI/internal/collector"
	"MyFocusAI/internal/config"
	"MyFocusAI/internal/events"
	"MyFocusAI/internal/gate"
	"MyFocusAI/internal/monitor"
	"MyFocusAI/internal/notify"
	"MyFocusAI/internal/scheduler"
	"MyFocusAI/internal/server"
	"MyFocusAI/internal/singleton"
	"MyFocusAI/internal/storage"
	"MyFocusAI/internal/task"
	"MyFocusAI/internal/timer"
	"MyFocusAI/internal/tray"
	"MyFocusAI/pkg/logger"
)

const (
	AppName    = "MyFocusAI"
	AppVersion = "1.2.0"
)

// getAppDataDir 获取应用数据目录
// Windows: %LOCALAPPDATA%\MyFocusAI
// 如果环境变量不存在，则使用当前工作目录
func getAppDataDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, AppName)
	}

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("❌ 无法获取工作目录: %v", err)
	}
	return workDir
}

func main() {
	// 单实例检测 - 防止程序重复启动
	mutex, err := singleton.EnsureSingleInstance(AppName)
	if err != nil {
		os.Exit(1)
	}
	defer mutex.Close()

	// 应用数据目录
	appDataDir := getAppDataDir()
	dataDir := filepath.Join(appDataDir, "data")
	logsDir := filepath.Join(dataDir, "logs")
	for _, dir := range []string{dataDir, logsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("❌ 创建目录失败 %s: %v", dir, err)
		}
	}

	// 初始化日志系统
	if err := logger.Init(logsDir, false); err != nil {
		log.Printf("⚠️ 日志系统初始化失败: %v, 使用控制台输出", err)
	} else {
		fmt.Println("✅ 日志系统初始化完成")
		logger.Info("==================== MyFocusAI %s 启动 ====================", AppVersion)
		logger.Info("应用数据目录: %s", appDataDir)
	}

	// 初始化配置管理器
	configMgr, err := config.NewManager(dataDir)
	if err != nil {
		log.Fatalf("❌ 初始化配置管理器失败: %v", err)
	}
	fmt.Println("✅ 配置管理器初始化完成")

	// 初始化存储管理器
	storageMgr, err := storage.NewManager(dataDir)
	if err != nil {
		log.Fatalf("❌ 初始化存储管理器失败: %v", err)
	}
	fmt.Println("✅ 存储管理器初始化完成")

	// 事件总线
	bus := events.NewBus()

	// 任务绑定器（恢复上次选中的任务）
	binder, err := task.NewBinder(storageMgr, bus)
	if err != nil {
		log.Fatalf("❌ 初始化任务绑定器失败: %v", err)
	}

	// AI 客户端与屏幕采集器
	aiClient := ai.NewClient(configMgr)
	screenCollector := collector.NewCollector(configMgr)
	fmt.Println("✅ AI 客户端初始化完成")

	// 通知投递与监控服务
	delivery := notify.NewDelivery(bus)
	startGate := gate.NewGate(configMgr, aiClient, nil)
	monitorMgr := monitor.NewMonitor(
		configMgr, storageMgr, bus,
		startGate, screenCollector, aiClient, binder, delivery,
	)
	fmt.Println("✅ 监控服务初始化完成")

	// 专注会话计时器
	timerSvc := timer.NewService(storageMgr, binder, bus)

	// 后台维护任务（数据清理、每日报告）
	sched := scheduler.NewScheduler(configMgr, storageMgr, aiClient)
	if err := sched.Start(); err != nil {
		log.Fatalf("❌ 启动任务调度器失败: %v", err)
	}

	// Web 服务器（独立 goroutine）
	webServer := server.NewServer(configMgr, storageMgr, monitorMgr, binder, sched, timerSvc, aiClient, AppVersion)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Printf("❌ Web 服务器错误: %v", err)
		}
	}()

	serverCfg := configMgr.GetServer()
	webURL := fmt.Sprintf("http://%s", webServer.Addr())

	// 系统托盘（阻塞运行）
	fmt.Println("🎯 启动系统托盘...")
	trayApp := tray.NewTrayApp(
		monitorMgr,
		bus,
		webURL,
		serverCfg.AutoOpenBrowser,
		func() {
			fmt.Println("📦 正在清理资源...")
			sched.Stop()
			webServer.Shutdown()
			storageMgr.Close()
			logger.Close()
			fmt.Println("✅ 资源清理完成")
		},
	)
	trayApp.Run()
}
