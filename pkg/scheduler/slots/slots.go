// Package slots 将月度需求拆分为可分配的班位
package slots

import (
	"fmt"
	"sort"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// Slot 一个待分配班位
type Slot struct {
	Index       int             `json:"index"`
	Day         int             `json:"day"`
	ServiceCode string          `json:"service_code"`
	ShiftCode   string          `json:"shift_code"`
	Minutes     int             `json:"minutes"`
	Week        string          `json:"week"` // ISO 周
	Type        model.ShiftType `json:"shift_type"`
	Role        model.Role      `json:"role"`
}

// IsNight 是否夜班班位
func (s *Slot) IsNight() bool { return s.Type == model.ShiftNight }

// Expansion 拆分结果
type Expansion struct {
	Slots    []*Slot
	ByDay    map[int][]*Slot
	Warnings []string // 引用未知班次的需求
}

// Expand 拆分需求：扣除锁定人数、按长班规则取代拆分服务、忽略未知班次
func Expand(snap *catalog.Snapshot, year, month int, reqs []*model.Requirement, locked *LockedIndex) *Expansion {
	sorted := make([]*model.Requirement, len(reqs))
	copy(sorted, reqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ShiftCode < b.ShiftCode
	})

	suppressed := suppressedRequirements(snap, sorted)

	out := &Expansion{ByDay: make(map[int][]*Slot)}
	for _, r := range sorted {
		def, ok := snap.Shift(r.ShiftCode)
		if !ok {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("Day %d %s/%s: unknown shift code", r.Day, r.ServiceCode, r.ShiftCode))
			continue
		}
		if suppressed.covers(r.Day, r.ServiceCode, def.Type) {
			continue
		}
		remaining := r.Required
		if locked != nil {
			remaining -= locked.Count(r.Day, r.ServiceCode, r.ShiftCode)
		}
		for i := 0; i < remaining; i++ {
			s := &Slot{
				Index:       len(out.Slots),
				Day:         r.Day,
				ServiceCode: r.ServiceCode,
				ShiftCode:   r.ShiftCode,
				Minutes:     def.DurationMinutes(),
				Week:        model.ISOWeek(year, month, r.Day),
				Type:        def.Type,
				Role:        snap.ServiceRole(r.ServiceCode),
			}
			out.Slots = append(out.Slots, s)
			out.ByDay[r.Day] = append(out.ByDay[r.Day], s)
		}
	}
	return out
}

type daySvc struct {
	day     int
	service string
}

// suppression 长班取代规则
type suppression struct {
	split   map[daySvc]bool // 该服务当天的早/午班不排
	service map[daySvc]bool // 该服务当天全部不排
}

func (s suppression) covers(day int, service string, t model.ShiftType) bool {
	if s.service[daySvc{day, service}] {
		return true
	}
	return (t == model.ShiftMorning || t == model.ShiftAfternoon) && s.split[daySvc{day, service}]
}

// suppressedRequirements 某服务当天有长班需求时，
// 该服务的早/午班以及其取代的服务当天全部不排
func suppressedRequirements(snap *catalog.Snapshot, reqs []*model.Requirement) suppression {
	out := suppression{split: make(map[daySvc]bool), service: make(map[daySvc]bool)}
	for _, r := range reqs {
		if r.Required <= 0 || snap.Type(r.ShiftCode) != model.ShiftLong {
			continue
		}
		out.split[daySvc{r.Day, r.ServiceCode}] = true
		for _, other := range snap.Supersedes(r.ServiceCode) {
			if other != r.ServiceCode {
				out.service[daySvc{r.Day, other}] = true
			}
		}
	}
	return out
}

// Days 有班位的日期（升序）
func (e *Expansion) Days() []int {
	days := make([]int, 0, len(e.ByDay))
	for d := range e.ByDay {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// Weeks 班位涉及的 ISO 周（升序）
func (e *Expansion) Weeks() []string {
	seen := make(map[string]bool)
	var weeks []string
	for _, s := range e.Slots {
		if !seen[s.Week] {
			seen[s.Week] = true
			weeks = append(weeks, s.Week)
		}
	}
	sort.Strings(weeks)
	return weeks
}
