package events

import (
	"sync"

	"MyFocusAI/pkg/logger"
)

// EventType 事件类型
type EventType string

const (
	FocusStateChanged     EventType = "focus-state-changed"     // 专注状态变化
	InterventionRaised    EventType = "intervention-raised"     // 触发干预
	NotificationDismissed EventType = "notification-dismissed"  // 应用内通知消失
	CycleCompleted        EventType = "cycle-completed"         // 一次检查循环完成
	TaskBindingChanged    EventType = "task-binding-changed"    // 任务绑定变化
	MonitoringStateChange EventType = "monitoring-state-change" // 监控启动/停止
	TimerStateChanged     EventType = "timer-state-changed"     // 专注会话计时器变化
)

// Handler 事件处理函数
// 总线同步调用处理函数，处理函数内不应做耗时操作
type Handler func(payload interface{})

// Bus 应用内事件总线
// 前端界面和托盘通过订阅事件感知监控状态，解耦各组件之间的直接依赖
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe 订阅事件
func (b *Bus) Subscribe(event EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish 发布事件,同步调用所有订阅者
func (b *Bus) Publish(event EventType, payload interface{}) {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	b.mu.RUnlock()

	if len(hs) == 0 {
		logger.Debug("事件 %s 无订阅者", event)
		return
	}

	for _, h := range hs {
		h(payload)
	}
}
