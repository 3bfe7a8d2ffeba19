// Package constraint 定义资格规则接口和管理器
package constraint

import (
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// Type 规则类型标识
type Type string

const (
	// 硬规则类型（按判定顺序）
	TypeCoordinator         Type = "coordinator"
	TypeLockedDay           Type = "locked_day"
	TypePermittedShift      Type = "permitted_shift"
	TypeBlockingCode        Type = "blocking_code"
	TypeUnknownShift        Type = "unknown_shift"
	TypeNightEligible       Type = "night_eligible"
	TypeForbiddenType       Type = "forbidden_type"
	TypePartialAvailability Type = "partial_availability"
	TypeCategoryOverlay     Type = "category_overlay"

	// 休息申请（按月度配置决定硬/软）
	TypeRequestOff Type = "request_off"
)

// Category 规则类别
type Category string

const (
	CategoryHard Category = "hard" // 硬规则（不满足即不可分配）
	CategorySoft Category = "soft" // 软规则（可分配但计入惩罚）
)

// Constraint 资格规则接口
type Constraint interface {
	// Name 返回规则名称
	Name() string

	// Type 返回规则类型
	Type() Type

	// Category 返回规则类别
	Category() Category

	// Order 判定顺序，小的先判定
	Order() int

	// Check 检查候选分配
	// 返回 ok=false 时 reason 为面向用户的原因
	Check(ctx *Context, c *Candidate) (ok bool, reason string)
}

// Candidate 候选分配：某人员某日某班次
type Candidate struct {
	Staff        *model.Staff
	Day          int
	ShiftCode    string
	Shift        model.ShiftDefinition
	KnownShift   bool
	Availability model.Availability // 已按类别解析
}

// Decision 资格判定结果
type Decision struct {
	Eligible         bool   `json:"eligible"`
	Reason           string `json:"reason,omitempty"`
	RequestViolation bool   `json:"request_violation,omitempty"`
}

// Context 资格判定上下文（单次运行内只读）
type Context struct {
	Catalog      *catalog.Snapshot
	Config       *model.MonthConfig
	Availability model.AvailabilityMap

	lockedDays map[model.StaffDay]bool
}

// NewContext 创建判定上下文
func NewContext(snap *catalog.Snapshot, cfg *model.MonthConfig, avail model.AvailabilityMap, locked []*model.ScheduleEntry) *Context {
	if avail == nil {
		avail = model.AvailabilityMap{}
	}
	ctx := &Context{
		Catalog:      snap,
		Config:       cfg,
		Availability: avail,
		lockedDays:   make(map[model.StaffDay]bool, len(locked)),
	}
	for _, e := range locked {
		ctx.lockedDays[e.Key()] = true
	}
	return ctx
}

// IsLocked 人员当天是否已有锁定记录
func (c *Context) IsLocked(staffID int64, day int) bool {
	return c.lockedDays[model.StaffDay{StaffID: staffID, Day: day}]
}

// RequestsHard 休息申请是否为硬规则
func (c *Context) RequestsHard() bool {
	if c.Config == nil {
		return true
	}
	return c.Config.RequestsHard
}

// NewCandidate 组装候选分配并解析默认约束
func (c *Context) NewCandidate(staff *model.Staff, day int, shiftCode string) *Candidate {
	def, known := c.Catalog.Shift(shiftCode)
	raw := c.Availability.Get(staff.ID, day)
	return &Candidate{
		Staff:        staff,
		Day:          day,
		ShiftCode:    shiftCode,
		Shift:        def,
		KnownShift:   known,
		Availability: model.ResolveAvailability(raw, staff.Category),
	}
}

// ReasonTally 统计被拒原因，按出现次数取最多者，并列时取先出现者
type ReasonTally struct {
	order  []string
	counts map[string]int
}

// Add 记录一次原因
func (t *ReasonTally) Add(reason string) {
	if reason == "" {
		return
	}
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, seen := t.counts[reason]; !seen {
		t.order = append(t.order, reason)
	}
	t.counts[reason]++
}

// Top 返回最常见原因
func (t *ReasonTally) Top() (string, bool) {
	best, bestN := "", 0
	for _, r := range t.order {
		if n := t.counts[r]; n > bestN {
			best, bestN = r, n
		}
	}
	return best, bestN > 0
}

// Len 不同原因数量
func (t *ReasonTally) Len() int { return len(t.order) }
