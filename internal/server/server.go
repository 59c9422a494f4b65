package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"MyFocusAI/internal/config"
	"MyFocusAI/internal/monitor"
	"MyFocusAI/internal/scheduler"
	"MyFocusAI/internal/storage"
	"MyFocusAI/internal/task"
	"MyFocusAI/internal/timer"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server Web 管理界面服务器
type Server struct {
	router     *gin.Engine
	cfg        *config.Manager
	store      *storage.Manager
	monitorMgr *monitor.Monitor
	binder     *task.Binder
	sched      *scheduler.Scheduler
	timerSvc   *timer.Service
	tester     ConnectionTester
	addr       string
	version    string
	httpServer *http.Server
}

// ConnectionTester AI 连通性测试
type ConnectionTester interface {
	TestConnection(ctx context.Context) *models.APITestResult
}

// NewServer 创建 Web 服务器
func NewServer(
	cfg *config.Manager,
	store *storage.Manager,
	monitorMgr *monitor.Monitor,
	binder *task.Binder,
	sched *scheduler.Scheduler,
	timerSvc *timer.Service,
	connTester ConnectionTester,
	version string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	serverCfg := cfg.GetServer()
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)

	s := &Server{
		router:     router,
		cfg:        cfg,
		store:      store,
		monitorMgr: monitorMgr,
		binder:     binder,
		sched:      sched,
		timerSvc:   timerSvc,
		tester:     connTester,
		addr:       addr,
		version:    version,
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)

	api := s.router.Group("/api")
	{
		// 系统信息
		api.GET("/version", s.handleGetVersion)

		// 配置管理
		api.GET("/config/ai", s.handleGetAIConfig)
		api.PUT("/config/ai", s.handleUpdateAIConfig)
		api.GET("/config/monitoring", s.handleGetMonitoringConfig)
		api.PUT("/config/monitoring", s.handleUpdateMonitoringConfig)
		api.GET("/config/settings", s.handleGetSettings)
		api.PUT("/config/settings", s.handleUpdateSettings)

		// AI 相关
		api.POST("/ai/test-connection", s.handleTestAIConnection)

		// 任务管理
		api.GET("/tasks", s.handleGetTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/tasks/selected", s.handleGetSelectedTask)
		api.POST("/tasks/:id/select", s.handleSelectTask)
		api.POST("/tasks/clear-selection", s.handleClearSelection)

		// 监控控制
		api.POST("/monitoring/start", s.handleStartMonitoring)
		api.POST("/monitoring/stop", s.handleStopMonitoring)
		api.POST("/monitoring/trigger", s.handleTriggerCheck)
		api.GET("/monitoring/status", s.handleGetStatus)
		api.GET("/monitoring/results", s.handleGetResults)

		// 专注会话计时器
		api.POST("/timer/start", s.handleTimerStart)
		api.POST("/timer/pause", s.handleTimerPause)
		api.POST("/timer/resume", s.handleTimerResume)
		api.POST("/timer/stop", s.handleTimerStop)
		api.GET("/timer/status", s.handleTimerStatus)

		// 统计与报告
		api.GET("/stats/today", s.handleGetTodayStats)
		api.GET("/reports/daily/:date", s.handleGetDailyReport)
		api.POST("/reports/daily/generate", s.handleGenerateReport)
		api.GET("/reports/weekly/:week_start", s.handleGetWeeklyReport)
		api.POST("/reports/weekly/generate", s.handleGenerateWeeklyReport)
	}
}

// Start 启动服务器（阻塞）
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	logger.Info("🌐 Web服务器启动: http://%s", s.addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	logger.Info("🛑 正在关闭 Web 服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("⚠️ 服务器关闭错误: %v", err)
		return err
	}

	logger.Info("✅ Web 服务器已关闭")
	return nil
}

// Addr 服务器监听地址
func (s *Server) Addr() string {
	return s.addr
}

// ===== 处理函数 =====

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "MyFocusAI",
		"version": s.version,
	})
}

func (s *Server) handleGetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.version,
		"name":    "MyFocusAI",
	})
}

// handleGetAIConfig 获取 AI 配置
func (s *Server) handleGetAIConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.GetAI())
}

// handleUpdateAIConfig 更新 AI 配置
func (s *Server) handleUpdateAIConfig(c *gin.Context) {
	var newConfig models.AIConfig
	if err := c.ShouldBindJSON(&newConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.cfg.UpdateAI(func(cfg *models.AIConfig) {
		*cfg = newConfig
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "AI配置已更新"})
}

// handleGetMonitoringConfig 获取监控配置
func (s *Server) handleGetMonitoringConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.GetMonitoring())
}

// handleUpdateMonitoringConfig 更新监控配置
// 间隔限制在 1-10 分钟，监控运行中修改下次启动才生效
func (s *Server) handleUpdateMonitoringConfig(c *gin.Context) {
	var newConfig models.MonitoringConfig
	if err := c.ShouldBindJSON(&newConfig); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if newConfig.IntervalMinutes < 1 || newConfig.IntervalMinutes > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "检查间隔必须在1-10分钟之间"})
		return
	}

	if err := s.cfg.UpdateMonitoring(func(cfg *models.MonitoringConfig) {
		cfg.IntervalMinutes = newConfig.IntervalMinutes
		cfg.Whitelist = newConfig.Whitelist
		cfg.Blacklist = newConfig.Blacklist
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "监控配置已更新"})
}

// handleGetSettings 获取用户设置
func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.GetSettings())
}

// handleUpdateSettings 更新用户设置
func (s *Server) handleUpdateSettings(c *gin.Context) {
	var newSettings models.UserSettings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.cfg.UpdateSettings(func(settings *models.UserSettings) {
		*settings = newSettings
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "设置已更新"})
}

// handleTestAIConnection 测试 AI 连通性
func (s *Server) handleTestAIConnection(c *gin.Context) {
	result := s.tester.TestConnection(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

// handleGetTasks 获取任务列表
func (s *Server) handleGetTasks(c *gin.Context) {
	tasks, err := s.store.GetTasks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// handleCreateTask 创建任务
func (s *Server) handleCreateTask(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	newTask := &models.Task{
		ID:        uuid.New().String(),
		Text:      req.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveTask(newTask); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newTask)
}

// handleUpdateTask 更新任务
// 绑定中的任务被修改后立即对账，已完成的任务会解除绑定
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req struct {
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}

	if req.Text != "" {
		existing.Text = req.Text
	}
	existing.Completed = req.Completed
	if err := s.store.UpdateTask(existing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.binder.Reconcile(); err != nil {
		logger.Error("❌ 任务绑定对账失败: %v", err)
	}

	c.JSON(http.StatusOK, existing)
}

// handleDeleteTask 删除任务
func (s *Server) handleDeleteTask(c *gin.Context) {
	existing, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}

	if err := s.store.DeleteTask(existing.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := s.binder.Reconcile(); err != nil {
		logger.Error("❌ 任务绑定对账失败: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "任务已删除"})
}

// handleGetSelectedTask 获取当前绑定的任务
func (s *Server) handleGetSelectedTask(c *gin.Context) {
	binding := s.binder.Current()
	if binding == nil {
		c.JSON(http.StatusOK, gin.H{"selected": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": binding})
}

// handleSelectTask 绑定任务
func (s *Server) handleSelectTask(c *gin.Context) {
	t, err := s.store.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}
	if t.Completed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不能绑定已完成的任务"})
		return
	}

	if err := s.binder.Select(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "任务已绑定"})
}

// handleClearSelection 清除任务绑定
func (s *Server) handleClearSelection(c *gin.Context) {
	if err := s.binder.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已清除任务绑定"})
}

// handleStartMonitoring 启动监控
func (s *Server) handleStartMonitoring(c *gin.Context) {
	if err := s.monitorMgr.Start(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "监控已启动"})
}

// handleStopMonitoring 停止监控
func (s *Server) handleStopMonitoring(c *gin.Context) {
	s.monitorMgr.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "监控已停止"})
}

// handleTriggerCheck 立即执行一次检查
func (s *Server) handleTriggerCheck(c *gin.Context) {
	if err := s.monitorMgr.TriggerOnce(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "检查已执行"})
}

// handleGetStatus 获取监控状态
func (s *Server) handleGetStatus(c *gin.Context) {
	status := s.monitorMgr.Status()
	status.BoundTask = s.binder.Current()
	c.JSON(http.StatusOK, status)
}

// handleGetResults 获取最近的监控结果
func (s *Server) handleGetResults(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}

	results, err := s.store.GetRecentResults(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []*models.ClassificationResult{}
	}
	c.JSON(http.StatusOK, results)
}

// handleGetTodayStats 获取今日统计
func (s *Server) handleGetTodayStats(c *gin.Context) {
	monCfg := s.cfg.GetMonitoring()
	stats, err := s.store.GetTodayStats(monCfg.IntervalMinutes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleGetDailyReport 获取指定日期的报告
func (s *Server) handleGetDailyReport(c *gin.Context) {
	dateStr := c.Param("date")
	if _, err := time.Parse("2006-01-02", dateStr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的日期格式"})
		return
	}

	report, err := s.store.GetDailyReport(dateStr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "该日期没有报告"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGenerateReport 立即生成当天的报告
func (s *Server) handleGenerateReport(c *gin.Context) {
	if err := s.sched.GenerateReportNow(c.Request.Context(), time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "报告生成完成"})
}

// handleGetWeeklyReport 获取指定起始日的周报告
func (s *Server) handleGetWeeklyReport(c *gin.Context) {
	weekStart := c.Param("week_start")
	if _, err := time.Parse("2006-01-02", weekStart); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的日期格式"})
		return
	}

	report, err := s.store.GetWeeklyReport(weekStart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "该周没有报告"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleGenerateWeeklyReport 立即生成周报告
// 不指定起始日时默认生成本周（周一起算）
func (s *Server) handleGenerateWeeklyReport(c *gin.Context) {
	var req struct {
		WeekStart string `json:"week_start"`
	}
	_ = c.ShouldBindJSON(&req)

	weekStart := time.Now()
	if req.WeekStart != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.WeekStart, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的日期格式"})
			return
		}
		weekStart = parsed
	} else {
		offset := (int(weekStart.Weekday()) + 6) % 7 // 周一为一周起点
		weekStart = weekStart.AddDate(0, 0, -offset)
	}

	if err := s.sched.GenerateWeeklyReportNow(c.Request.Context(), weekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "周报告生成完成"})
}

// handleTimerStart 启动专注会话
func (s *Server) handleTimerStart(c *gin.Context) {
	var req struct {
		SessionType     models.SessionType `json:"session_type"`
		DurationMinutes int                `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := s.timerSvc.Start(req.SessionType, req.DurationMinutes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleTimerPause 暂停专注会话
func (s *Server) handleTimerPause(c *gin.Context) {
	s.timerSvc.Pause()
	c.JSON(http.StatusOK, gin.H{"message": "会话已暂停"})
}

// handleTimerResume 恢复专注会话
func (s *Server) handleTimerResume(c *gin.Context) {
	s.timerSvc.Resume()
	c.JSON(http.StatusOK, gin.H{"message": "会话已恢复"})
}

// handleTimerStop 结束专注会话
func (s *Server) handleTimerStop(c *gin.Context) {
	session, err := s.timerSvc.Stop()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "当前没有进行中的会话"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleTimerStatus 当前会话状态
func (s *Server) handleTimerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session":           s.timerSvc.Current(),
		"elapsed_seconds":   s.timerSvc.ElapsedSeconds(),
		"remaining_seconds": s.timerSvc.RemainingSeconds(),
	})
}
