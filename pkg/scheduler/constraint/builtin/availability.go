package builtin

import (
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
)

// BlockingCodeConstraint 休假/请假/节假日整天阻断
type BlockingCodeConstraint struct {
	*BaseConstraint
}

// NewBlockingCodeConstraint 创建阻断规则
func NewBlockingCodeConstraint() *BlockingCodeConstraint {
	return &BlockingCodeConstraint{
		BaseConstraint: NewBaseConstraint("阻断约束", constraint.TypeBlockingCode,
			constraint.CategoryHard, orderBlockingCode, "constraint"),
	}
}

// Check 检查候选分配，原因带上约束代码
func (c *BlockingCodeConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	if cand.Availability.IsBlocking() {
		return false, c.Reason() + " " + cand.Availability.Code
	}
	return true, ""
}

// ForbiddenTypeConstraint 显式不可用的班次类别
type ForbiddenTypeConstraint struct {
	*BaseConstraint
}

// NewForbiddenTypeConstraint 创建不可用类别规则
func NewForbiddenTypeConstraint() *ForbiddenTypeConstraint {
	return &ForbiddenTypeConstraint{
		BaseConstraint: NewBaseConstraint("不可用类别", constraint.TypeForbiddenType,
			constraint.CategoryHard, orderForbiddenType, "unavailable for this shift"),
	}
}

// Check 检查候选分配
func (c *ForbiddenTypeConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(!cand.Availability.Forbids(cand.Shift.Type))
}

// PartialAvailabilityConstraint 部分可用时类别必须匹配
type PartialAvailabilityConstraint struct {
	*BaseConstraint
}

// NewPartialAvailabilityConstraint 创建部分可用规则
func NewPartialAvailabilityConstraint() *PartialAvailabilityConstraint {
	return &PartialAvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("部分可用", constraint.TypePartialAvailability,
			constraint.CategoryHard, orderPartialAvailability, "available for another shift"),
	}
}

// Check 检查候选分配
func (c *PartialAvailabilityConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	a := cand.Availability
	if a.Kind != model.AvailabilityAvailableFor {
		return true, ""
	}
	return c.verdict(a.Types.Has(cand.Shift.Type))
}

// CategoryOverlayConstraint 类别附加规则：
// 兼职必须有显式可用声明；全职弹性只受显式不可用限制
type CategoryOverlayConstraint struct {
	*BaseConstraint
}

// NewCategoryOverlayConstraint 创建类别附加规则
func NewCategoryOverlayConstraint() *CategoryOverlayConstraint {
	return &CategoryOverlayConstraint{
		BaseConstraint: NewBaseConstraint("类别附加", constraint.TypeCategoryOverlay,
			constraint.CategoryHard, orderCategoryOverlay, "unavailable"),
	}
}

// Check 检查候选分配
func (c *CategoryOverlayConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	a, st := cand.Availability, cand.Shift.Type
	switch {
	case cand.Staff.Category.IsPartTime():
		if !a.Allows(st) {
			return false, "part-time without availability"
		}
	case cand.Staff.Category == model.CategoryFlexFullTime:
		if a.Forbids(st) {
			return false, c.Reason()
		}
	}
	return true, ""
}

// RequestOffConstraint 休息申请
type RequestOffConstraint struct {
	*BaseConstraint
}

// NewRequestOffConstraint 创建休息申请规则，hard=false 时仅标记为申请违反
func NewRequestOffConstraint(hard bool) *RequestOffConstraint {
	cat := constraint.CategorySoft
	if hard {
		cat = constraint.CategoryHard
	}
	return &RequestOffConstraint{
		BaseConstraint: NewBaseConstraint("休息申请", constraint.TypeRequestOff,
			cat, orderRequestOff, "day-off request"),
	}
}

// Check 检查候选分配
func (c *RequestOffConstraint) Check(_ *constraint.Context, cand *constraint.Candidate) (bool, string) {
	return c.verdict(!cand.Availability.IsRequest())
}
