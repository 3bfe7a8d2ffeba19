// Package balance 工时余额核算
//
// 全量生成与单人修改走同一条计算路径：重新计算目标与实际工时，
// 余额按 (新差额 − 旧差额) 增量更新，重复核算同一月份不会改变余额。
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// HolidayCreditMinutes 手工登记的节假日上班每天抵扣的分钟数
const HolidayCreditMinutes = 8 * 60

// DailyMinutes 周工时折算的每日分钟数（周工时 / 5）
func DailyMinutes(weeklyHours int) decimal.Decimal {
	return decimal.NewFromInt(int64(weeklyHours) * 60).Div(decimal.NewFromInt(5))
}

// TargetMinutes 当月目标分钟数；未配置周工时返回 nil
//
//	目标 = 工作日 × 日分钟 − 休假天数 × 日分钟 − 旧数据节假日上班天数 × 日分钟 − 登记节假日 × 8 小时
func TargetMinutes(s *model.Staff, cal *calendar.Month, avail model.AvailabilityMap, adj *model.MonthlyAdjustment) *int {
	if s.WeeklyHours <= 0 {
		return nil
	}
	daily := DailyMinutes(s.WeeklyHours)

	vacation, legacyHoliday := 0, 0
	for day := 1; day <= cal.Days(); day++ {
		a := avail.Get(s.ID, day)
		switch {
		case a.IsVacation():
			vacation++
		case a.IsHolidayWorked():
			legacyHoliday++
		}
	}

	base := daily.Mul(decimal.NewFromInt(int64(cal.BusinessDays()))).IntPart()
	vacationMinutes := daily.Mul(decimal.NewFromInt(int64(vacation))).IntPart()
	holidayMinutes := daily.Mul(decimal.NewFromInt(int64(legacyHoliday))).IntPart()
	if adj != nil {
		holidayMinutes += int64(adj.HolidaysWorked * HolidayCreditMinutes)
	}

	target := int(base - vacationMinutes - holidayMinutes)
	if target < 0 {
		target = 0
	}
	return &target
}

// Targets 批量计算目标分钟数
func Targets(staff []*model.Staff, cal *calendar.Month, avail model.AvailabilityMap, adjs map[int64]*model.MonthlyAdjustment) map[int64]*int {
	out := make(map[int64]*int, len(staff))
	for _, s := range staff {
		out[s.ID] = TargetMinutes(s, cal, avail, adjs[s.ID])
	}
	return out
}

// WorkedMinutes 按人员汇总非休息记录的分钟数
func WorkedMinutes(snap *catalog.Snapshot, entries []*model.ScheduleEntry) map[int64]int {
	out := make(map[int64]int)
	for _, e := range entries {
		out[e.StaffID] += snap.EntryMinutes(e)
	}
	return out
}

// Change 一名人员的核算结果
type Change struct {
	Staff         *model.Staff
	Previous      *model.StaffMonthStat // nil 表示本月首次核算
	Stat          *model.StaffMonthStat
	BalanceBefore int
	BalanceAfter  int
}

// Changed 余额是否变化
func (c Change) Changed() bool { return c.BalanceBefore != c.BalanceAfter }

// Input 核算输入
type Input struct {
	Staff        []*model.Staff         // 需要核算的人员
	Entries      []*model.ScheduleEntry // 这些人员当月的全部记录（含锁定）
	Availability model.AvailabilityMap
	Adjustments  map[int64]*model.MonthlyAdjustment
	Previous     map[int64]*model.StaffMonthStat
}

// Reconciler 工时余额核算器
type Reconciler struct {
	snap *catalog.Snapshot
	cal  *calendar.Month
}

// NewReconciler 创建核算器
func NewReconciler(snap *catalog.Snapshot, year, month int) (*Reconciler, error) {
	cal, err := calendar.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	return &Reconciler{snap: snap, cal: cal}, nil
}

// Calendar 核算月份
func (r *Reconciler) Calendar() *calendar.Month { return r.cal }

// Reconcile 重新计算每名人员的月度统计，并就地更新 Staff.BalanceMinutes
func (r *Reconciler) Reconcile(in Input) []Change {
	worked := WorkedMinutes(r.snap, in.Entries)
	changes := make([]Change, 0, len(in.Staff))
	for _, s := range in.Staff {
		adj := in.Adjustments[s.ID]
		target := TargetMinutes(s, r.cal, in.Availability, adj)
		actual := worked[s.ID] + adj.Net()

		stat := &model.StaffMonthStat{
			StaffID:       s.ID,
			Year:          r.cal.Year,
			Month:         r.cal.Month,
			TargetMinutes: target,
			ActualMinutes: actual,
		}
		stat.DeltaMinutes = actual - targetOrZero(target)

		changes = append(changes, apply(s, in.Previous[s.ID], stat))
	}
	return changes
}

// OverrideTarget 手工设定目标分钟数，差额与余额随之调整
func OverrideTarget(s *model.Staff, previous *model.StaffMonthStat, year, month, target int) Change {
	stat := &model.StaffMonthStat{StaffID: s.ID, Year: year, Month: month}
	if previous != nil {
		*stat = *previous
	}
	stat.TargetMinutes = &target
	stat.DeltaMinutes = stat.ActualMinutes - target
	return apply(s, previous, stat)
}

// Reverse 撤销某月统计对余额的影响
func Reverse(s *model.Staff, stat *model.StaffMonthStat) Change {
	before := s.BalanceMinutes
	if stat != nil {
		s.BalanceMinutes -= stat.DeltaMinutes
	}
	return Change{Staff: s, Previous: stat, BalanceBefore: before, BalanceAfter: s.BalanceMinutes}
}

func apply(s *model.Staff, previous, stat *model.StaffMonthStat) Change {
	before := s.BalanceMinutes
	if previous != nil {
		s.BalanceMinutes -= previous.DeltaMinutes
	}
	s.BalanceMinutes += stat.DeltaMinutes
	return Change{Staff: s, Previous: previous, Stat: stat, BalanceBefore: before, BalanceAfter: s.BalanceMinutes}
}

func targetOrZero(t *int) int {
	if t == nil {
		return 0
	}
	return *t
}
