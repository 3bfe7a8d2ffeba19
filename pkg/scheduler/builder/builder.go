// Package builder 将月度排班问题构建为布尔约束模型
//
// 每个班位一个恰好一个的变量组：各合格候选人一个变量，外加一个
// "未填补"变量。其余规则（最小休息、每日上限、夜班后休息、连续
// 工作天数、周末休息、工时与余额均衡）叠加为硬约束或目标项。
package builder

import (
	"fmt"
	"math"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
	"github.com/paiban/nurseshift/pkg/scheduler/slots"
)

const (
	// MaxShiftsPerDay 每人每日最多班次数
	MaxShiftsPerDay = 2
	// MaxConsecutiveWorkDays 最多连续工作天数
	MaxConsecutiveWorkDays = 6

	tiebreakWeight = 1
)

// 未填补原因
const (
	ReasonNoEligible        = "no eligible staff"
	ReasonInsufficient      = "insufficient eligible staff"
	ReasonGlobalLimitations = "global limitations"
	reasonHardConstraints   = "hard constraints"
)

// Input 建模输入
type Input struct {
	Year        int
	Month       int
	Catalog     *catalog.Snapshot
	Config      *model.MonthConfig
	Staff       []*model.Staff // 按ID升序
	Expansion   *slots.Expansion
	Locked      *slots.LockedIndex
	Manager     *constraint.Manager
	Context     *constraint.Context
	Adjustments map[int64]*model.MonthlyAdjustment
	Targets     map[int64]*int // 当月目标分钟数
	Role        model.Role     // 分组过滤，空表示按服务角色
}

func (in *Input) validate() error {
	switch {
	case in == nil:
		return fmt.Errorf("builder input is nil")
	case in.Catalog == nil:
		return fmt.Errorf("shift catalog is required")
	case in.Config == nil:
		return fmt.Errorf("month config is required")
	case in.Expansion == nil:
		return fmt.Errorf("slot expansion is required")
	case in.Locked == nil:
		return fmt.Errorf("locked index is required")
	case in.Manager == nil || in.Context == nil:
		return fmt.Errorf("eligibility manager and context are required")
	}
	return nil
}

// Candidate 班位候选人
type Candidate struct {
	StaffID int64
	Var     cpmodel.Var
	Request bool // 违反休息申请（软规则）
}

// SlotVars 班位的决策变量
type SlotVars struct {
	Slot       *slots.Slot
	Candidates []Candidate
	Unfilled   cpmodel.Var
}

// Built 建模结果
type Built struct {
	Model *cpmodel.Model
	// Slots 与 Expansion.Slots 同序，无合格候选人的班位为 nil
	Slots     []*SlotVars
	Immediate []model.UnfilledSlot
	Reasons   map[int]*constraint.ReasonTally
}

// TopReason 班位最常见的拒绝原因
func (b *Built) TopReason(slotIndex int) (string, bool) {
	if t := b.Reasons[slotIndex]; t != nil {
		return t.Top()
	}
	return "", false
}

// UnfilledReason 求解后仍未填补的班位原因
func (b *Built) UnfilledReason(slotIndex int) string {
	if r, ok := b.TopReason(slotIndex); ok {
		return fmt.Sprintf("%s (%s)", ReasonInsufficient, r)
	}
	return ReasonGlobalLimitations
}

type slotStaff struct {
	slot    int
	staffID int64
}

type builder struct {
	in      *Input
	cal     *calendar.Month
	weights model.PenaltyWeights
	m       *cpmodel.Model
	out     *Built

	lookup map[slotStaff]cpmodel.Var
	worked map[model.StaffDay]cpmodel.Lit
	night  map[model.StaffDay]cpmodel.Lit
}

// Build 构建约束模型
func Build(in *Input) (*Built, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cal, err := calendar.NewMonth(in.Year, in.Month)
	if err != nil {
		return nil, err
	}

	b := &builder{
		in:      in,
		cal:     cal,
		weights: in.Config.Penalties,
		m:       cpmodel.NewModel(),
		out: &Built{
			Slots:   make([]*SlotVars, len(in.Expansion.Slots)),
			Reasons: make(map[int]*constraint.ReasonTally),
		},
		lookup: make(map[slotStaff]cpmodel.Var),
		worked: make(map[model.StaffDay]cpmodel.Lit),
		night:  make(map[model.StaffDay]cpmodel.Lit),
	}
	b.out.Model = b.m

	b.addCandidates()
	b.addMinimumRest()
	b.addDailyLimits()
	for _, s := range in.Staff {
		b.addNightRules(s)
		b.addConsecutiveDays(s)
		b.addWeekendOff(s)
	}
	b.addWeeklyHours()
	b.addBankBalance()
	b.addShiftBalance()

	logger.Debug().
		Int("slots", len(in.Expansion.Slots)).
		Int("variables", b.m.NumVars()).
		Int("constraints", b.m.NumConstraints()).
		Int("objective_terms", b.m.NumObjectiveTerms()).
		Int("immediate_unfilled", len(b.out.Immediate)).
		Msg("约束模型构建完成")

	return b.out, nil
}

func (b *builder) candidate(slot int, staffID int64) (cpmodel.Var, bool) {
	v, ok := b.lookup[slotStaff{slot, staffID}]
	return v, ok
}

// addCandidates 为每个班位创建候选变量与覆盖约束
func (b *builder) addCandidates() {
	for i, slot := range b.in.Expansion.Slots {
		tally := &constraint.ReasonTally{}
		sv := &SlotVars{Slot: slot}
		for _, s := range b.in.Staff {
			cand := b.in.Context.NewCandidate(s, slot.Day, slot.ShiftCode)
			d := b.in.Manager.Evaluate(b.in.Context, cand)
			if !d.Eligible {
				if d.Reason != "" {
					tally.Add(d.Reason)
				}
				continue
			}
			v := b.m.NewTaggedVar(fmt.Sprintf("x_%d_%d", slot.Index, s.ID), s.ID)
			b.lookup[slotStaff{slot.Index, s.ID}] = v
			sv.Candidates = append(sv.Candidates, Candidate{StaffID: s.ID, Var: v, Request: d.RequestViolation})

			if d.RequestViolation {
				b.m.Penalize("request", v, int64(b.weights.Request))
			}
			if s.Category != model.CategoryFlexPartTime {
				b.m.Penalize("tiebreak", v, tiebreakWeight)
			}
		}
		if tally.Len() > 0 {
			b.out.Reasons[slot.Index] = tally
		}

		if len(sv.Candidates) == 0 {
			reason := reasonHardConstraints
			if top, ok := tally.Top(); ok {
				reason = top
			}
			b.out.Immediate = append(b.out.Immediate, model.UnfilledSlot{
				Day:         slot.Day,
				ServiceCode: slot.ServiceCode,
				ShiftCode:   slot.ShiftCode,
				Reason:      fmt.Sprintf("%s (%s)", ReasonNoEligible, reason),
			})
			continue
		}

		sv.Unfilled = b.m.NewBoolVar(fmt.Sprintf("slot_%d_unfilled", slot.Index))
		b.m.SetHint(sv.Unfilled, true)
		group := make([]cpmodel.Var, 0, len(sv.Candidates)+1)
		for _, c := range sv.Candidates {
			group = append(group, c.Var)
		}
		b.m.AddExactlyOne(append(group, sv.Unfilled)...)
		b.m.Penalize("unfilled", sv.Unfilled, int64(b.weights.Unfilled))
		b.out.Slots[i] = sv
	}
}

// addMinimumRest 相邻两日休息不足的班次不可同时分配给同一人
func (b *builder) addMinimumRest() {
	minRest := b.in.Config.MinRestMinutes()
	byDay := b.in.Expansion.ByDay
	for day := 1; day < b.cal.Days(); day++ {
		today, next := byDay[day], byDay[day+1]
		if len(today) == 0 || len(next) == 0 {
			continue
		}
		for _, a := range today {
			for _, n := range next {
				if b.in.Catalog.RestMinutes(a.ShiftCode, n.ShiftCode) >= minRest {
					continue
				}
				for _, s := range b.in.Staff {
					va, ok := b.candidate(a.Index, s.ID)
					if !ok {
						continue
					}
					vn, ok := b.candidate(n.Index, s.ID)
					if !ok {
						continue
					}
					b.m.AddAtMost(1, va, vn)
				}
			}
		}
	}
	b.addLockedNeighbours(minRest)
}

// addLockedNeighbours 与前后两日锁定记录冲突的候选变量固定为 0
// 锁定日本身没有工作指示变量，相邻规则需直接对照锁定索引
func (b *builder) addLockedNeighbours(minRest int) {
	for _, slot := range b.in.Expansion.Slots {
		for _, s := range b.in.Staff {
			v, ok := b.candidate(slot.Index, s.ID)
			if !ok {
				continue
			}
			if b.in.Locked.RestConflict(b.in.Catalog, s.ID, slot.Day, slot.ShiftCode, minRest) {
				b.m.AddAtMost(0, v)
			}
		}
	}
}

type dayVar struct {
	v    cpmodel.Var
	slot *slots.Slot
	def  model.ShiftDefinition
}

// addDailyLimits 每日上限、双班组合与当日工作/夜班指示
func (b *builder) addDailyLimits() {
	for _, s := range b.in.Staff {
		for day := 1; day <= b.cal.Days(); day++ {
			if b.in.Locked.Has(s.ID, day) {
				continue
			}
			var vars []dayVar
			var nights []cpmodel.Var
			for _, slot := range b.in.Expansion.ByDay[day] {
				v, ok := b.candidate(slot.Index, s.ID)
				if !ok {
					continue
				}
				def, known := b.in.Catalog.Shift(slot.ShiftCode)
				if !known {
					continue
				}
				vars = append(vars, dayVar{v: v, slot: slot, def: def})
				if def.IsNight() {
					nights = append(nights, v)
				}
			}
			if len(vars) == 0 {
				continue
			}

			key := model.StaffDay{StaffID: s.ID, Day: day}
			all := make([]cpmodel.Var, len(vars))
			lits := make([]cpmodel.Lit, len(vars))
			for i, dv := range vars {
				all[i] = dv.v
				lits[i] = dv.v
			}
			if len(vars) > MaxShiftsPerDay {
				b.m.AddAtMost(MaxShiftsPerDay, lits...)
			}
			b.worked[key] = cpmodel.AnyOf(all...)
			if len(nights) > 0 {
				b.night[key] = cpmodel.AnyOf(nights...)
			}

			for i := 0; i < len(vars); i++ {
				for j := i + 1; j < len(vars); j++ {
					first, second := vars[i], vars[j]
					if first.def.Overlaps(second.def) || !s.AllowsDoubleShift(first.def.Type, second.def.Type) {
						b.m.AddAtMost(1, first.v, second.v)
						continue
					}
					if first.slot.ServiceCode != second.slot.ServiceCode {
						b.m.Penalize("double_service", cpmodel.AllOf(first.v, second.v), int64(b.weights.DoubleShiftService))
					}
				}
			}
		}
	}
}

// addNightRules 夜班后次日不上班、连续夜班惩罚、夜班后休息一天再上班惩罚、月夜班上限
func (b *builder) addNightRules(s *model.Staff) {
	days := b.cal.Days()
	snap := b.in.Catalog
	var nightLits []cpmodel.Lit

	for day := 1; day <= days; day++ {
		key := model.StaffDay{StaffID: s.ID, Day: day}
		nightToday, hasNight := b.night[key]
		if hasNight {
			nightLits = append(nightLits, nightToday)
		}
		lockedNight := b.in.Locked.Night(snap, s.ID, day)
		if day == days {
			break
		}

		nextKey := model.StaffDay{StaffID: s.ID, Day: day + 1}
		if next, ok := b.worked[nextKey]; ok {
			switch {
			case lockedNight:
				b.m.AddAtMost(0, next)
			case hasNight:
				b.m.AddAtMost(1, nightToday, next)
			}
		}

		if nextNight, ok := b.night[nextKey]; ok && hasNight {
			b.m.Penalize("night_sequence", cpmodel.AllOf(nightToday, nextNight), int64(b.weights.NightSequence))
		}

		if !b.in.Config.RestAfterNightRest || day+2 > days || (!hasNight && !lockedNight) {
			continue
		}
		afterKey := model.StaffDay{StaffID: s.ID, Day: day + 2}
		after, ok := b.worked[afterKey]
		weight := int64(b.weights.RestFollowup)
		switch {
		case ok && lockedNight:
			b.m.Penalize("rest_followup", after, weight)
		case ok:
			b.m.Penalize("rest_followup", cpmodel.AllOf(nightToday, after), weight)
		case hasNight && b.in.Locked.Working(s.ID, day+2):
			b.m.Penalize("rest_followup", nightToday, weight)
		}
	}

	if s.MaxNightsPerMonth > 0 && len(nightLits) > 0 {
		var expr cpmodel.LinearExpr
		for _, l := range nightLits {
			expr.Add(l, 1)
		}
		expr.AddConstant(int64(b.in.Locked.TypeCount(s.ID, model.ShiftNight)))
		b.m.AddLessOrEqual(expr, int64(s.MaxNightsPerMonth))
	}
}

// addConsecutiveDays 任意连续 7 天最多工作 6 天（含锁定的非休息日）
func (b *builder) addConsecutiveDays(s *model.Staff) {
	for _, start := range b.cal.Windows(MaxConsecutiveWorkDays + 1) {
		var lits []cpmodel.Lit
		locked := 0
		for day := start; day <= start+MaxConsecutiveWorkDays; day++ {
			if w, ok := b.worked[model.StaffDay{StaffID: s.ID, Day: day}]; ok {
				lits = append(lits, w)
			} else if b.in.Locked.Working(s.ID, day) {
				locked++
			}
		}
		if len(lits) == 0 {
			continue
		}
		rhs := MaxConsecutiveWorkDays - locked
		if rhs < 0 {
			rhs = 0
		}
		if len(lits) > rhs {
			b.m.AddAtMost(int64(rhs), lits...)
		}
	}
}

// addWeekendOff 每月至少一个完整周末休息
func (b *builder) addWeekendOff(s *model.Staff) {
	var offs []cpmodel.Lit
	for _, p := range b.cal.WeekendPairs() {
		sat, okSat := b.worked[model.StaffDay{StaffID: s.ID, Day: p.Saturday}]
		sun, okSun := b.worked[model.StaffDay{StaffID: s.ID, Day: p.Sunday}]
		if !okSat || !okSun {
			continue
		}
		offs = append(offs, cpmodel.AllOf(cpmodel.Not(sat), cpmodel.Not(sun)))
	}
	if len(offs) > 0 {
		b.m.AddAtLeastOne(offs...)
	}
}

// addWeeklyHours 每周工时偏离目标的惩罚，全职合同人员另有每周硬上限
func (b *builder) addWeeklyHours() {
	byWeek := make(map[string][]*slots.Slot)
	for _, slot := range b.in.Expansion.Slots {
		byWeek[slot.Week] = append(byWeek[slot.Week], slot)
	}
	cfg := b.in.Config

	for _, s := range b.in.Staff {
		weekly := s.WeeklyHours
		if weekly == 0 {
			weekly = cfg.TargetHoursWeek
		}
		target := int64(weekly * 60)

		for _, week := range b.in.Expansion.Weeks() {
			var expr cpmodel.LinearExpr
			for _, slot := range byWeek[week] {
				if v, ok := b.candidate(slot.Index, s.ID); ok {
					expr.Add(v, int64(slot.Minutes))
				}
			}
			locked := b.in.Locked.WeekMinutes(s.ID, week)
			if expr.Empty() && locked == 0 {
				continue
			}
			expr.AddConstant(int64(locked))
			b.m.PenalizeDeviation("hours_target", expr, target, int64(b.weights.HoursTarget))

			if s.Category == model.CategoryContracted && !expr.Empty() {
				limit := cfg.MaxHoursWeekContracted
				if weekly > limit {
					limit = weekly
				}
				b.m.AddLessOrEqual(expr, int64(limit*60))
			}
		}
	}
}

// addBankBalance 余额均衡：本月净差额向"拉齐到平均余额"所需的差额靠拢
func (b *builder) addBankBalance() {
	staff := b.in.Staff
	if b.weights.BankBalance == 0 || len(staff) == 0 {
		return
	}
	sum := 0
	for _, s := range staff {
		sum += s.BalanceMinutes
	}
	average := sum / len(staff)

	for _, s := range staff {
		desired := average - s.BalanceMinutes
		target := 0
		if t := b.in.Targets[s.ID]; t != nil {
			target = *t
		}

		var expr cpmodel.LinearExpr
		for _, slot := range b.in.Expansion.Slots {
			if v, ok := b.candidate(slot.Index, s.ID); ok {
				expr.Add(v, int64(slot.Minutes))
			}
		}
		expr.AddConstant(int64(b.in.Locked.MonthMinutes(s.ID)))
		expr.AddConstant(int64(b.in.Adjustments[s.ID].Net()))

		b.m.PenalizeDeviation("bank_balance", expr, int64(target+desired), int64(b.weights.BankBalance))
	}
}

type roleType struct {
	role model.Role
	typ  model.ShiftType
}

var balancedTypes = []model.ShiftType{model.ShiftMorning, model.ShiftAfternoon, model.ShiftNight}

// addShiftBalance 同角色组内各类别班次数向人均目标靠拢，锁定班次计入基数
func (b *builder) addShiftBalance() {
	if b.weights.ShiftBalance == 0 || len(b.in.Staff) == 0 {
		return
	}
	bySlot := make(map[roleType][]*slots.Slot)
	var roles []model.Role
	seen := make(map[model.Role]bool)
	for _, slot := range b.in.Expansion.Slots {
		if slot.Type == "" {
			continue
		}
		role := b.in.Role
		if role == "" {
			role = slot.Role
		}
		if role == "" {
			role = model.RoleNurse
		}
		if !seen[role] {
			seen[role] = true
			roles = append(roles, role)
		}
		key := roleType{role, slot.Type}
		bySlot[key] = append(bySlot[key], slot)
	}

	for _, role := range roles {
		var group []*model.Staff
		for _, s := range b.in.Staff {
			if s.Category.Role() == role {
				group = append(group, s)
			}
		}
		if len(group) == 0 {
			continue
		}
		for _, t := range balancedTypes {
			list := bySlot[roleType{role, t}]
			if len(list) == 0 {
				continue
			}
			target := int64(math.RoundToEven(float64(len(list)) / float64(len(group))))
			for _, s := range group {
				var expr cpmodel.LinearExpr
				for _, slot := range list {
					if v, ok := b.candidate(slot.Index, s.ID); ok {
						expr.Add(v, 1)
					}
				}
				expr.AddConstant(int64(b.in.Locked.TypeCount(s.ID, t)))
				b.m.PenalizeDeviation("shift_balance", expr, target, int64(b.weights.ShiftBalance))
			}
		}
	}
}
