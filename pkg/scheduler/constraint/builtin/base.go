// Package builtin 提供内置资格规则实现
package builtin

import (
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
)

// BaseConstraint 规则基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	order    int
	reason   string
}

// NewBaseConstraint 创建基础规则
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, order int, reason string) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		order:    order,
		reason:   reason,
	}
}

// Name 返回规则名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回规则类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回规则类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Order 返回判定顺序
func (c *BaseConstraint) Order() int { return c.order }

// Reason 返回失败原因
func (c *BaseConstraint) Reason() string { return c.reason }

// verdict 将判定转换为 (ok, reason)
func (c *BaseConstraint) verdict(ok bool) (bool, string) {
	if ok {
		return true, ""
	}
	return false, c.reason
}
