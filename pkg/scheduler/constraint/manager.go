package constraint

import (
	"sort"
	"sync"
)

// Manager 资格规则管理器，按顺序判定，首个失败的硬规则决定结果
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建规则管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册规则
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 同类型规则直接替换
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	sort.SliceStable(m.constraints, func(i, j int) bool {
		return m.constraints[i].Order() < m.constraints[j].Order()
	})
}

// Unregister 注销规则
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取规则
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有规则（按判定顺序）
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取规则
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 判定候选分配
// 硬规则失败立即返回；软规则失败仍可分配，但标记为申请违反
func (m *Manager) Evaluate(ctx *Context, c *Candidate) Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d := Decision{Eligible: true}
	for _, rule := range m.constraints {
		ok, reason := rule.Check(ctx, c)
		if ok {
			continue
		}
		if rule.Category() == CategoryHard {
			return Decision{Eligible: false, Reason: reason}
		}
		d.RequestViolation = true
	}
	return d
}

// CanAssign 检查人员某日能否上该班次
func (m *Manager) CanAssign(ctx *Context, c *Candidate) (bool, string) {
	d := m.Evaluate(ctx, c)
	return d.Eligible, d.Reason
}

// Clear 清除所有规则
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回规则数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回规则摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}
