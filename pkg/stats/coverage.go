package stats

import (
	"sort"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalSlots      int     `json:"total_slots"`      // 需求总人次
	AssignedSlots   int     `json:"assigned_slots"`   // 已覆盖人次（含锁定）
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage     map[int]DayCoverage         `json:"daily_coverage"`
	ShiftTypeCoverage map[model.ShiftType]float64 `json:"shift_type_coverage"`
	ServiceCoverage   map[string]float64          `json:"service_coverage"`

	Understaffed []UnderstaffedDay `json:"understaffed,omitempty"`
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Day          int     `json:"day"`
	Required     int     `json:"required"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	StaffCount   int     `json:"staff_count"` // 当日上班人数
	TotalHours   float64 `json:"total_hours"`
}

// UnderstaffedDay 人手不足的需求
type UnderstaffedDay struct {
	Day         int    `json:"day"`
	ServiceCode string `json:"service_code"`
	ShiftCode   string `json:"shift_code"`
	Required    int    `json:"required"`
	Assigned    int    `json:"assigned"`
	Shortage    int    `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	snap *catalog.Snapshot
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(snap *catalog.Snapshot) *CoverageAnalyzer {
	return &CoverageAnalyzer{snap: snap}
}

type reqKey struct {
	day     int
	service string
	shift   string
}

// Analyze 按需求统计覆盖率；未知班次的需求不计入
// 超出需求的排班不抵扣其他需求
func (c *CoverageAnalyzer) Analyze(reqs []*model.Requirement, entries []*model.ScheduleEntry) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:     make(map[int]DayCoverage),
		ShiftTypeCoverage: make(map[model.ShiftType]float64),
		ServiceCoverage:   make(map[string]float64),
	}

	assigned := make(map[reqKey]int)
	staffDays := make(map[int]map[int64]bool)
	hoursByDay := make(map[int]float64)
	for _, e := range entries {
		if e.IsRest() || !c.snap.Known(e.ShiftCode) {
			continue
		}
		assigned[reqKey{e.Day, e.ServiceCode, e.ShiftCode}]++
		if staffDays[e.Day] == nil {
			staffDays[e.Day] = make(map[int64]bool)
		}
		staffDays[e.Day][e.StaffID] = true
		hoursByDay[e.Day] += float64(c.snap.Minutes(e.ShiftCode)) / 60
	}

	daily := make(map[int]*DayCoverage)
	typeTotals := make(map[model.ShiftType][2]int)
	serviceTotals := make(map[string][2]int)

	for _, r := range reqs {
		if r.Required <= 0 || !c.snap.Known(r.ShiftCode) {
			continue
		}
		got := assigned[reqKey{r.Day, r.ServiceCode, r.ShiftCode}]
		if got > r.Required {
			got = r.Required
		}
		metrics.TotalSlots += r.Required
		metrics.AssignedSlots += got

		day, ok := daily[r.Day]
		if !ok {
			day = &DayCoverage{Day: r.Day}
			daily[r.Day] = day
		}
		day.Required += r.Required
		day.Assigned += got

		t := c.snap.Type(r.ShiftCode)
		tt := typeTotals[t]
		typeTotals[t] = [2]int{tt[0] + r.Required, tt[1] + got}
		st := serviceTotals[r.ServiceCode]
		serviceTotals[r.ServiceCode] = [2]int{st[0] + r.Required, st[1] + got}

		if got < r.Required {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedDay{
				Day:         r.Day,
				ServiceCode: r.ServiceCode,
				ShiftCode:   r.ShiftCode,
				Required:    r.Required,
				Assigned:    got,
				Shortage:    r.Required - got,
			})
		}
	}

	metrics.OverallCoverage = rate(metrics.AssignedSlots, metrics.TotalSlots)
	for d, day := range daily {
		day.CoverageRate = rate(day.Assigned, day.Required)
		day.StaffCount = len(staffDays[d])
		day.TotalHours = hoursByDay[d]
		metrics.DailyCoverage[d] = *day
	}
	for t, v := range typeTotals {
		metrics.ShiftTypeCoverage[t] = rate(v[1], v[0])
	}
	for svc, v := range serviceTotals {
		metrics.ServiceCoverage[svc] = rate(v[1], v[0])
	}

	sort.Slice(metrics.Understaffed, func(i, j int) bool {
		a, b := metrics.Understaffed[i], metrics.Understaffed[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ShiftCode < b.ShiftCode
	})
	return metrics
}

// rate 百分比，分母为 0 视为完全覆盖
func rate(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) / float64(total) * 100
}
