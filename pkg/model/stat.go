package model

import "github.com/shopspring/decimal"

// MonthlyAdjustment 月度工时调整（分钟）
type MonthlyAdjustment struct {
	StaffID        int64 `json:"staff_id" db:"staff_id"`
	Year           int   `json:"year" db:"year"`
	Month          int   `json:"month" db:"month"`
	ExtraMinutes   int   `json:"extra_minutes" db:"extra_minutes"`
	ReducedMinutes int   `json:"reduced_minutes" db:"reduced_minutes"`
	HolidaysWorked int   `json:"holidays_worked" db:"holidays_worked"`
}

// Net 净调整分钟数
func (a *MonthlyAdjustment) Net() int {
	if a == nil {
		return 0
	}
	return a.ExtraMinutes - a.ReducedMinutes
}

// StaffMonthStat 月度工时统计
// TargetMinutes 为 nil 表示无目标（周工时为 0）
type StaffMonthStat struct {
	StaffID       int64 `json:"staff_id" db:"staff_id"`
	Year          int   `json:"year" db:"year"`
	Month         int   `json:"month" db:"month"`
	TargetMinutes *int  `json:"target_minutes" db:"target_minutes"`
	ActualMinutes int   `json:"actual_minutes" db:"actual_minutes"`
	DeltaMinutes  int   `json:"delta_minutes" db:"delta_minutes"`
}

// StaffStat 对外展示的人员统计
type StaffStat struct {
	StaffID             int64           `json:"staff_id"`
	Name                string          `json:"name"`
	Category            Category        `json:"category"`
	TargetMinutes       *int            `json:"target_minutes"`
	ActualMinutes       int             `json:"actual_minutes"`
	DeltaMinutes        int             `json:"delta_minutes"`
	BankMinutes         int             `json:"bank_minutes"`
	PreviousBankMinutes int             `json:"previous_bank_minutes"`
	TargetHours         decimal.Decimal `json:"target_hours"`
	ActualHours         decimal.Decimal `json:"actual_hours"`
	DeltaHours          decimal.Decimal `json:"delta_hours"`
	BankHours           decimal.Decimal `json:"bank_hours"`
	PreviousBankHours   decimal.Decimal `json:"previous_bank_hours"`
}

// MinutesToHours 分钟转小时（保留两位小数）
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

// NewStaffStat 由统计记录与当前余额组装展示数据
func NewStaffStat(s *Staff, stat *StaffMonthStat) StaffStat {
	out := StaffStat{
		StaffID:     s.ID,
		Name:        s.Name,
		Category:    s.Category,
		BankMinutes: s.BalanceMinutes,
		BankHours:   MinutesToHours(s.BalanceMinutes),
	}
	if stat == nil {
		out.PreviousBankMinutes = s.BalanceMinutes
		out.PreviousBankHours = out.BankHours
		return out
	}
	out.TargetMinutes = stat.TargetMinutes
	if stat.TargetMinutes != nil {
		out.TargetHours = MinutesToHours(*stat.TargetMinutes)
	}
	out.ActualMinutes = stat.ActualMinutes
	out.ActualHours = MinutesToHours(stat.ActualMinutes)
	out.DeltaMinutes = stat.DeltaMinutes
	out.DeltaHours = MinutesToHours(stat.DeltaMinutes)
	out.PreviousBankMinutes = s.BalanceMinutes - stat.DeltaMinutes
	out.PreviousBankHours = MinutesToHours(out.PreviousBankMinutes)
	return out
}
