package focus

import (
	"sync"

	"MyFocusAI/pkg/models"
)

// Machine 专注状态机
// 只有分类成功才发生状态迁移；停止监控或授权失败时回到空闲态。
// 分类失败保持当前状态，不产生迁移。
type Machine struct {
	mu    sync.RWMutex
	state models.FocusState
}

// NewMachine 创建状态机，初始为空闲态
func NewMachine() *Machine {
	return &Machine{state: models.StateIdle}
}

// Current 当前状态
func (m *Machine) Current() models.FocusState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Apply 应用一次分类结果，返回迁移前的状态和是否发生了变化
func (m *Machine) Apply(next models.FocusState) (prev models.FocusState, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev = m.state
	m.state = next
	return prev, prev != next
}

// Reset 回到空闲态，停止监控或授权失败时调用
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = models.StateIdle
}
