package builtin

import (
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
)

// 判定顺序
const (
	orderCoordinator = iota + 1
	orderLockedDay
	orderPermittedShift
	orderBlockingCode
	orderUnknownShift
	orderNightEligible
	orderForbiddenType
	orderPartialAvailability
	orderCategoryOverlay
	orderRequestOff
)

// RegisterDefaultConstraints 按固定顺序注册全部资格规则
// 休息申请是否为硬规则由月度配置决定
func RegisterDefaultConstraints(manager *constraint.Manager, cfg *model.MonthConfig) {
	requestsHard := true
	if cfg != nil {
		requestsHard = cfg.RequestsHard
	}

	manager.Register(NewCoordinatorConstraint())
	manager.Register(NewLockedDayConstraint())
	manager.Register(NewPermittedShiftConstraint())
	manager.Register(NewBlockingCodeConstraint())
	manager.Register(NewUnknownShiftConstraint())
	manager.Register(NewNightEligibleConstraint())
	manager.Register(NewForbiddenTypeConstraint())
	manager.Register(NewPartialAvailabilityConstraint())
	manager.Register(NewCategoryOverlayConstraint())
	manager.Register(NewRequestOffConstraint(requestsHard))
}

// NewDefaultManager 创建已注册默认规则的管理器
func NewDefaultManager(cfg *model.MonthConfig) *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, cfg)
	return m
}
