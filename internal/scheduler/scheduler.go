package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MyFocusAI/internal/ai"
	"MyFocusAI/internal/config"
	"MyFocusAI/internal/storage"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/robfig/cron/v3"
)

// Scheduler 后台维护任务调度器
// 与监控检查循环相互独立：负责旧数据清理和每日报告生成
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Manager
	store    *storage.Manager
	aiClient *ai.Client
	mu       sync.Mutex
	running  bool
}

// NewScheduler 创建调度器
func NewScheduler(cfg *config.Manager, store *storage.Manager, aiClient *ai.Client) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		store:    store,
		aiClient: aiClient,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	// 清理任务（每天凌晨 3 点）
	if _, err := s.cron.AddFunc("0 3 * * *", s.runCleanup); err != nil {
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	// 每日报告（每天 23:30 总结当天数据）
	if _, err := s.cron.AddFunc("30 23 * * *", s.runDailyReport); err != nil {
		return fmt.Errorf("failed to add daily report job: %w", err)
	}

	s.cron.Start()
	s.running = true

	logger.Info("⏰ 后台任务调度器已启动 (数据保留: %d天)", s.cfg.GetStorage().RetentionDays)
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false
	logger.Info("⏰ 后台任务调度器已停止")
}

// runCleanup 清理超过保留期的监控数据
func (s *Scheduler) runCleanup() {
	logger.Info("🧹 开始清理旧数据...")

	storageCfg := s.cfg.GetStorage()
	deleted, err := s.store.CleanupOldResults(storageCfg.RetentionDays)
	if err != nil {
		logger.Error("❌ 清理失败: %v", err)
		return
	}

	logger.Info("✅ 清理完成，删除了 %d 条旧监控记录", deleted)
}

// runDailyReport 生成当天的专注报告
// 当天没有监控数据时跳过，避免调用报告模型浪费额度
func (s *Scheduler) runDailyReport() {
	logger.Info("📊 开始生成每日专注报告...")

	now := time.Now()
	date := now.Format("2006-01-02")

	results, err := s.store.GetResultsForDate(now)
	if err != nil {
		logger.Error("❌ 获取今日监控数据失败: %v", err)
		return
	}
	if len(results) == 0 {
		logger.Info("ℹ️ 今日没有监控数据，跳过报告生成")
		return
	}

	monCfg := s.cfg.GetMonitoring()
	stats, err := s.store.GetTodayStats(monCfg.IntervalMinutes)
	if err != nil {
		logger.Error("❌ 获取今日统计失败: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	report, err := s.aiClient.GenerateReport(ctx, date, stats, results)
	if err != nil {
		logger.Error("❌ 生成每日报告失败: %v", err)
		return
	}

	if err := s.store.SaveDailyReport(report); err != nil {
		logger.Error("❌ 保存每日报告失败: %v", err)
		return
	}

	logger.Info("✅ 每日专注报告生成完成 (%s, 模型: %s)", date, report.Model)
}

// GenerateReportNow 立即生成指定日期的报告，供界面手动触发
func (s *Scheduler) GenerateReportNow(ctx context.Context, date time.Time) error {
	results, err := s.store.GetResultsForDate(date)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("当日没有监控数据")
	}

	monCfg := s.cfg.GetMonitoring()
	stats, err := s.store.GetTodayStats(monCfg.IntervalMinutes)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	report, err := s.aiClient.GenerateReport(ctx, date.Format("2006-01-02"), stats, results)
	if err != nil {
		return err
	}
	return s.store.SaveDailyReport(report)
}

// GenerateWeeklyReportNow 立即生成指定起始日的周报告，供界面手动触发
// 只聚合有监控数据的日期，整周无数据时返回错误
func (s *Scheduler) GenerateWeeklyReportNow(ctx context.Context, weekStart time.Time) error {
	monCfg := s.cfg.GetMonitoring()

	var trends []models.DailyTrend
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		results, err := s.store.GetResultsForDate(day)
		if err != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
		if len(results) == 0 {
			continue
		}

		stats, err := s.store.GetStatsForDate(day, monCfg.IntervalMinutes)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		sessions, err := s.store.GetSessionsForDate(day)
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}

		trends = append(trends, models.DailyTrend{
			Date:         day.Format("2006-01-02"),
			FocusScore:   stats.FocusScore,
			FocusSeconds: stats.TotalFocusSeconds,
			SessionCount: len(sessions),
		})
	}
	if len(trends) == 0 {
		return fmt.Errorf("本周没有监控数据")
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	report, err := s.aiClient.GenerateWeeklyReport(ctx,
		weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"), trends)
	if err != nil {
		return err
	}

	logger.Info("📊 周报告生成完成 (%s ~ %s)", report.WeekStart, report.WeekEnd)
	return s.store.SaveWeeklyReport(report)
}
