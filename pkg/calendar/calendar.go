// Package calendar 提供排班月份的日历计算（工作日、周末、ISO 周）
package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Month 排班月份日历
type Month struct {
	Year  int
	Month int
	days  int
}

// NewMonth 创建月份日历
func NewMonth(year, month int) (*Month, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	return &Month{Year: year, Month: month, days: last.Day()}, nil
}

// Days 当月天数
func (m *Month) Days() int { return m.days }

// Date 当月某日
func (m *Month) Date(day int) time.Time {
	return time.Date(m.Year, time.Month(m.Month), day, 0, 0, 0, 0, time.UTC)
}

// Weekday 当月某日星期
func (m *Month) Weekday(day int) time.Weekday {
	return m.Date(day).Weekday()
}

// IsWeekend 周六或周日
func (m *Month) IsWeekend(day int) bool {
	wd := m.Weekday(day)
	return wd == time.Saturday || wd == time.Sunday
}

// ISOWeek 返回 ISO 周键，如 2025-W03
func (m *Month) ISOWeek(day int) string {
	y, w := m.Date(day).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

// Contains 日期是否在当月
func (m *Month) Contains(day int) bool {
	return day >= 1 && day <= m.days
}

// occurrences 在当月范围内展开规则
func (m *Month) occurrences(freq rrule.Frequency, weekdays ...rrule.Weekday) ([]int, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      freq,
		Dtstart:   m.Date(1),
		Until:     m.Date(m.days),
		Byweekday: weekdays,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence: %w", err)
	}
	var days []int
	for _, t := range rule.All() {
		days = append(days, t.Day())
	}
	return days, nil
}

// BusinessDays 周一至周五的天数
func (m *Month) BusinessDays() int {
	days, err := m.occurrences(rrule.DAILY, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR)
	if err != nil {
		return m.countWeekdays()
	}
	return len(days)
}

func (m *Month) countWeekdays() int {
	n := 0
	for d := 1; d <= m.days; d++ {
		if !m.IsWeekend(d) {
			n++
		}
	}
	return n
}

// WeekendPair 同一周末的周六与周日
type WeekendPair struct {
	Saturday int
	Sunday   int
}

// WeekendPairs 返回两天都在当月内的完整周末
func (m *Month) WeekendPairs() []WeekendPair {
	saturdays, err := m.occurrences(rrule.WEEKLY, rrule.SA)
	if err != nil {
		saturdays = nil
		for d := 1; d <= m.days; d++ {
			if m.Weekday(d) == time.Saturday {
				saturdays = append(saturdays, d)
			}
		}
	}
	var pairs []WeekendPair
	for _, sat := range saturdays {
		if m.Contains(sat + 1) {
			pairs = append(pairs, WeekendPair{Saturday: sat, Sunday: sat + 1})
		}
	}
	return pairs
}

// Windows 返回所有完整的 n 天滑动窗口起始日
func (m *Month) Windows(n int) []int {
	var starts []int
	for d := 1; d+n-1 <= m.days; d++ {
		starts = append(starts, d)
	}
	return starts
}
