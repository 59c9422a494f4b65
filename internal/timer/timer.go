package timer

import (
	"fmt"
	"sync"
	"time"

	"MyFocusAI/internal/events"
	"MyFocusAI/internal/storage"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"

	"github.com/google/uuid"
)

// TaskSource 当前任务绑定
type TaskSource interface {
	Current() *models.TaskBinding
}

// Service 专注会话计时器
// 用户手动启动的倒计时会话，与监控检查循环相互独立。
// 启动时固定当时绑定的任务，结束后落盘供周报告统计使用。
type Service struct {
	store *storage.Manager
	tasks TaskSource
	bus   *events.Bus

	mu                sync.Mutex
	session           *models.FocusSession
	runningSince      time.Time // 最近一次进入运行态的时刻
	elapsedWhenPaused int       // 暂停前累计的已过秒数

	now func() time.Time
}

// NewService 创建会话计时器
func NewService(store *storage.Manager, tasks TaskSource, bus *events.Bus) *Service {
	return &Service{
		store: store,
		tasks: tasks,
		bus:   bus,
		now:   time.Now,
	}
}

// Start 启动一个新会话，正在进行的会话被直接替换
func (s *Service) Start(sessionType models.SessionType, durationMinutes int) (*models.FocusSession, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("会话时长必须大于0分钟")
	}
	if sessionType == "" {
		sessionType = models.SessionFocus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := &models.FocusSession{
		ID:              uuid.New().String(),
		Type:            sessionType,
		Status:          models.SessionActive,
		DurationMinutes: durationMinutes,
		StartedAt:       s.now(),
	}
	if binding := s.tasks.Current(); binding != nil {
		session.TaskID = binding.TaskID
		session.TaskText = binding.TaskText
	}

	s.session = session
	s.runningSince = session.StartedAt
	s.elapsedWhenPaused = 0

	logger.Info("⏱️ 会话已开始: %s (%d分钟)", session.ID, durationMinutes)
	s.publishLocked()
	return s.snapshotLocked(), nil
}

// Pause 暂停会话，没有运行中的会话时是空操作
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Status != models.SessionActive {
		return
	}

	s.elapsedWhenPaused += int(s.now().Sub(s.runningSince).Seconds())
	s.session.Status = models.SessionPaused

	logger.Info("⏱️ 会话已暂停 (已进行 %d秒)", s.elapsedWhenPaused)
	s.publishLocked()
}

// Resume 恢复暂停中的会话
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.Status != models.SessionPaused {
		return
	}

	s.runningSince = s.now()
	s.session.Status = models.SessionActive

	logger.Info("⏱️ 会话已恢复")
	s.publishLocked()
}

// Stop 结束当前会话并落盘，没有会话时返回 nil
func (s *Service) Stop() (*models.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, nil
	}

	session := s.session
	session.ElapsedSeconds = s.elapsedLocked()
	session.Status = models.SessionCompleted
	completedAt := s.now()
	session.CompletedAt = &completedAt

	s.session = nil
	s.elapsedWhenPaused = 0

	if err := s.store.SaveFocusSession(session); err != nil {
		return nil, fmt.Errorf("failed to save focus session: %w", err)
	}

	logger.Info("⏱️ 会话已结束: %s (共 %d秒)", session.ID, session.ElapsedSeconds)
	finished := *session
	s.bus.Publish(events.TimerStateChanged, &finished)
	return &finished, nil
}

// Current 当前会话快照，没有会话返回 nil
func (s *Service) Current() *models.FocusSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ElapsedSeconds 当前会话已过秒数
func (s *Service) ElapsedSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// RemainingSeconds 当前会话剩余秒数，到时后为0
func (s *Service) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return 0
	}
	total := s.session.DurationMinutes * 60
	elapsed := s.elapsedLocked()
	if elapsed >= total {
		return 0
	}
	return total - elapsed
}

func (s *Service) elapsedLocked() int {
	if s.session == nil {
		return 0
	}
	if s.session.Status == models.SessionActive {
		return s.elapsedWhenPaused + int(s.now().Sub(s.runningSince).Seconds())
	}
	return s.elapsedWhenPaused
}

func (s *Service) snapshotLocked() *models.FocusSession {
	if s.session == nil {
		return nil
	}
	snapshot := *s.session
	snapshot.ElapsedSeconds = s.elapsedLocked()
	return &snapshot
}

func (s *Service) publishLocked() {
	s.bus.Publish(events.TimerStateChanged, s.snapshotLocked())
}
