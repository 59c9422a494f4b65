package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"MyFocusAI/internal/collector"
	"MyFocusAI/internal/config"
	"MyFocusAI/internal/events"
	"MyFocusAI/internal/focus"
	"MyFocusAI/internal/storage"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/robfig/cron/v3"
)

// Authorizer 监控启动前的授权检查
type Authorizer interface {
	Authorize(ctx context.Context) (*models.MonitoringConfig, error)
}

// ContextCollector 检查上下文采集
type ContextCollector interface {
	Collect(ctx context.Context, taskText string) (*models.CheckContext, error)
}

// Classifier 专注状态分类
type Classifier interface {
	Classify(ctx context.Context, check *models.CheckContext, whitelist, blacklist []string) (*models.ClassificationResult, error)
}

// TaskSource 当前任务绑定
type TaskSource interface {
	CurrentText() string
	Reconcile() error
}

// Notifier 干预通知投递
type Notifier interface {
	Deliver(event *models.InterventionEvent, settings *models.UserSettings)
	Stop()
}

// Monitor 监控编排器
// 按配置的间隔调度检查循环：采集上下文、AI 分类、状态迁移、干预投递。
// 同一时刻最多一个检查在执行，慢响应导致的重叠周期直接丢弃。
type Monitor struct {
	cfg       *config.Manager
	store     *storage.Manager
	bus       *events.Bus
	gate      Authorizer
	collector ContextCollector
	classify  Classifier
	tasks     TaskSource
	notifier  Notifier
	machine   *focus.Machine
	policy    *focus.Policy

	// generation 每次启动/停止递增，迟到的分类结果按代号丢弃
	generation atomic.Int64
	inFlight   atomic.Bool

	mu         sync.Mutex
	running    bool
	cron       *cron.Cron
	cancel     context.CancelFunc
	active     models.MonitoringConfig
	cooldown   *models.InterventionCooldown
	lastResult *models.ClassificationResult
}

// NewMonitor 创建监控编排器
func NewMonitor(
	cfg *config.Manager,
	store *storage.Manager,
	bus *events.Bus,
	gate Authorizer,
	contextCollector ContextCollector,
	classifier Classifier,
	tasks TaskSource,
	notifier Notifier,
) *Monitor {
	return &Monitor{
		cfg:       cfg,
		store:     store,
		bus:       bus,
		gate:      gate,
		collector: contextCollector,
		classify:  classifier,
		tasks:     tasks,
		notifier:  notifier,
		machine:   focus.NewMachine(),
		policy:    focus.NewPolicy(),
	}
}

// Start 启动监控
// 授权检查失败时不进入监控态，状态机保持空闲
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		logger.Warn("⚠️ 监控已在运行中")
		return fmt.Errorf("monitoring already running")
	}

	snapshot, err := m.gate.Authorize(ctx)
	if err != nil {
		m.machine.Reset()
		return err
	}

	settings := m.cfg.GetSettings()
	m.active = *snapshot
	m.cooldown = &models.InterventionCooldown{
		CooldownMinutes: settings.Intervention.CooldownMinutes,
	}
	m.lastResult = nil
	gen := m.generation.Add(1)

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.cron = cron.New()
	spec := fmt.Sprintf("@every %dm", snapshot.IntervalMinutes)
	if _, err := m.cron.AddFunc(spec, func() {
		m.runCheck(runCtx, gen)
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule check cycle: %w", err)
	}
	m.cron.Start()
	m.running = true

	logger.Info("🚀 监控已启动，检查间隔: %d分钟", snapshot.IntervalMinutes)
	m.bus.Publish(events.MonitoringStateChange, true)

	// 立即执行第一次检查，不等第一个间隔
	go m.runCheck(runCtx, gen)
	return nil
}

// Stop 停止监控，幂等
// 递增代号使在途的分类结果失效，状态机回到空闲态
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.generation.Add(1)
	if m.cancel != nil {
		m.cancel()
	}
	m.cron.Stop()
	m.cron = nil
	m.running = false
	m.cooldown = nil
	m.machine.Reset()
	m.notifier.Stop()

	if err := m.cfg.DeactivateMonitoring(); err != nil {
		logger.Error("❌ 更新监控配置失败: %v", err)
	}

	logger.Info("🛑 监控已停止")
	m.bus.Publish(events.MonitoringStateChange, false)
	m.bus.Publish(events.FocusStateChanged, models.StateIdle)
}

// IsRunning 是否正在监控
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// TriggerOnce 立即执行一次检查
func (m *Monitor) TriggerOnce(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitoring not running")
	}
	gen := m.generation.Load()
	m.mu.Unlock()

	m.runCheck(ctx, gen)
	return nil
}

// Status 当前监控服务状态
func (m *Monitor) Status() *models.ServiceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := &models.ServiceStatus{
		Monitoring: m.running,
		State:      m.machine.Current(),
		LastResult: m.lastResult,
	}
	if checks, err := m.store.CountTodayChecks(); err == nil {
		status.TodayChecks = checks
	}
	return status
}

// runCheck 执行一次检查循环
// 上一次检查还在进行时直接跳过本次调度
func (m *Monitor) runCheck(ctx context.Context, gen int64) {
	if !m.inFlight.CompareAndSwap(false, true) {
		logger.Warn("⏭️ 上一次检查尚未完成，跳过本次检查")
		return
	}
	defer m.inFlight.Store(false)

	if m.generation.Load() != gen {
		return
	}

	// 先对账任务绑定，已删除或已完成的任务不再参与分析
	if err := m.tasks.Reconcile(); err != nil {
		logger.Error("❌ 任务绑定对账失败: %v", err)
	}
	taskText := m.tasks.CurrentText()

	check, err := m.collector.Collect(ctx, taskText)
	if err != nil {
		if err == collector.ErrScreenInactive {
			logger.Debug("💤 屏幕未激活，跳过本次检查")
		} else {
			logger.Error("❌ 上下文采集失败: %v", err)
		}
		return
	}

	m.mu.Lock()
	whitelist := m.active.Whitelist
	blacklist := m.active.Blacklist
	m.mu.Unlock()

	result, err := m.classify.Classify(ctx, check, whitelist, blacklist)
	if err != nil {
		// 分类失败保持当前状态，不做迁移
		logger.Error("❌ AI分类失败，保持当前状态: %v", err)
		return
	}

	m.applyResult(gen, result, taskText)
}

// applyResult 应用一次分类结果：持久化、状态迁移、干预
// 分类完成到应用结果之间监控可能被停止，持锁后按代号再核对一次，
// 过期的结果不落盘也不驱动状态机
func (m *Monitor) applyResult(gen int64, result *models.ClassificationResult, taskText string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation.Load() != gen {
		logger.Warn("🗑️ 监控已停止，丢弃迟到的分类结果")
		return
	}

	if err := m.store.SaveMonitoringResult(result); err != nil {
		logger.Error("❌ 保存监控结果失败: %v", err)
	}
	m.lastResult = result

	prev, changed := m.machine.Apply(result.State)
	if changed {
		logger.Info("🔄 专注状态变化: %s -> %s", prev, result.State)
		m.bus.Publish(events.FocusStateChanged, result.State)
	}

	settings := m.cfg.GetSettings()
	if m.cooldown != nil {
		if event := m.policy.Evaluate(prev, result.State, taskText, &settings.Intervention, m.cooldown); event != nil {
			m.notifier.Deliver(event, &settings)
			if err := m.store.SaveInterventionLog(event); err != nil {
				logger.Error("❌ 保存干预记录失败: %v", err)
			}
		}
	}

	m.bus.Publish(events.CycleCompleted, result)
}
