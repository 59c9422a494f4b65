package task

import (
	"fmt"
	"sync"

	"MyFocusAI/internal/events"
	"MyFocusAI/internal/storage"
	"MyFocusAI/pkg/logger"
	"MyFocusAI/pkg/models"
)

// Binder 任务绑定管理
// 监控会话最多绑定一个任务。绑定变化通过事件总线广播并持久化，
// 重启后恢复上次的绑定。
type Binder struct {
	mu      sync.RWMutex
	current *models.TaskBinding
	store   *storage.Manager
	bus     *events.Bus
}

// NewBinder 创建任务绑定管理器，并从存储恢复上次的绑定
func NewBinder(store *storage.Manager, bus *events.Bus) (*Binder, error) {
	b := &Binder{
		store: store,
		bus:   bus,
	}

	binding, err := store.LoadSelectedTask()
	if err != nil {
		return nil, fmt.Errorf("failed to restore task binding: %w", err)
	}
	if binding != nil {
		b.current = binding
		logger.Info("📋 已恢复任务绑定: %s", binding.TaskText)
	}

	return b, nil
}

// Current 当前绑定的任务，没有绑定返回 nil
func (b *Binder) Current() *models.TaskBinding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return nil
	}
	binding := *b.current
	return &binding
}

// CurrentText 当前绑定任务的文本，没有绑定返回空串
func (b *Binder) CurrentText() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return ""
	}
	return b.current.TaskText
}

// Select 绑定一个任务
// 重复绑定同一个任务是幂等操作，不触发事件也不重复落盘
func (b *Binder) Select(task *models.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && b.current.TaskID == task.ID {
		return nil
	}

	binding := &models.TaskBinding{TaskID: task.ID, TaskText: task.Text}
	if err := b.store.SaveSelectedTask(binding); err != nil {
		return err
	}
	b.current = binding

	logger.Info("📋 已绑定任务: %s", task.Text)
	b.bus.Publish(events.TaskBindingChanged, binding)
	return nil
}

// Clear 清除任务绑定
// 没有绑定时是空操作
func (b *Binder) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clearLocked()
}

func (b *Binder) clearLocked() error {
	if b.current == nil {
		return nil
	}

	if err := b.store.SaveSelectedTask(nil); err != nil {
		return err
	}
	cleared := b.current
	b.current = nil

	logger.Info("📋 已清除任务绑定: %s", cleared.TaskText)
	b.bus.Publish(events.TaskBindingChanged, (*models.TaskBinding)(nil))
	return nil
}

// Reconcile 对账当前绑定与任务列表
// 绑定的任务被删除或已完成时清除绑定，只通知一次
func (b *Binder) Reconcile() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return nil
	}

	task, err := b.store.GetTask(b.current.TaskID)
	if err != nil {
		return fmt.Errorf("failed to reconcile task binding: %w", err)
	}

	if task == nil {
		logger.Warn("⚠️ 绑定的任务已被删除，自动清除绑定")
		return b.clearLocked()
	}
	if task.Completed {
		logger.Info("✅ 绑定的任务已完成，自动清除绑定")
		return b.clearLocked()
	}

	// 任务文本可能被编辑过，同步最新文本
	if task.Text != b.current.TaskText {
		binding := &models.TaskBinding{TaskID: task.ID, TaskText: task.Text}
		if err := b.store.SaveSelectedTask(binding); err != nil {
			return err
		}
		b.current = binding
		b.bus.Publish(events.TaskBindingChanged, binding)
	}

	return nil
}
