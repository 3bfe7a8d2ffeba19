package builtin

import (
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
)

// CoordinatorConstraint 协调员不参与自动排班
type CoordinatorConstraint struct {
	*BaseConstraint
}

// NewCoordinatorConstraint 创建协调员规则
func NewCoordinatorConstraint() *CoordinatorConstraint {
	return &CoordinatorConstraint{
		BaseConstraint: NewBaseConstraint("协调员排除", constraint.TypeCoordinator,
			constraint.CategoryHard, orderCoordinator, "coordinator outside solver"),
	}
}

// Check 检查候选分配
func (c *CoordinatorConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(cand.Staff.Category != model.CategoryCoordinator)
}

// LockedDayConstraint 已有锁定记录的日期独占
type LockedDayConstraint struct {
	*BaseConstraint
}

// NewLockedDayConstraint 创建锁定日规则
func NewLockedDayConstraint() *LockedDayConstraint {
	return &LockedDayConstraint{
		BaseConstraint: NewBaseConstraint("锁定日", constraint.TypeLockedDay,
			constraint.CategoryHard, orderLockedDay, "locked cell"),
	}
}

// Check 检查候选分配
func (c *LockedDayConstraint) Check(ctx *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(!ctx.IsLocked(cand.Staff.ID, cand.Day))
}

// PermittedShiftConstraint 人员允许班次列表
type PermittedShiftConstraint struct {
	*BaseConstraint
}

// NewPermittedShiftConstraint 创建允许班次规则
func NewPermittedShiftConstraint() *PermittedShiftConstraint {
	return &PermittedShiftConstraint{
		BaseConstraint: NewBaseConstraint("允许班次", constraint.TypePermittedShift,
			constraint.CategoryHard, orderPermittedShift, "service/shift not permitted"),
	}
}

// Check 检查候选分配
func (c *PermittedShiftConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(cand.Staff.Permits(cand.ShiftCode))
}

// UnknownShiftConstraint 班次代码必须在目录中
type UnknownShiftConstraint struct {
	*BaseConstraint
}

// NewUnknownShiftConstraint 创建未知班次规则
func NewUnknownShiftConstraint() *UnknownShiftConstraint {
	return &UnknownShiftConstraint{
		BaseConstraint: NewBaseConstraint("未知班次", constraint.TypeUnknownShift,
			constraint.CategoryHard, orderUnknownShift, "unknown shift"),
	}
}

// Check 检查候选分配
func (c *UnknownShiftConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(cand.KnownShift)
}

// NightEligibleConstraint 夜班资格
type NightEligibleConstraint struct {
	*BaseConstraint
}

// NewNightEligibleConstraint 创建夜班资格规则
func NewNightEligibleConstraint() *NightEligibleConstraint {
	return &NightEligibleConstraint{
		BaseConstraint: NewBaseConstraint("夜班资格", constraint.TypeNightEligible,
			constraint.CategoryHard, orderNightEligible, "not authorized for nights"),
	}
}

// Check 检查候选分配
func (c *NightEligibleConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(!cand.Shift.IsNight() || cand.Staff.NightEligible)
}
