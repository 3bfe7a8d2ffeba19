// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工时公平性
	WorkloadGini     float64 `json:"workload_gini"`      // 工时基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance float64 `json:"workload_variance"`  // 工时方差
	WorkloadStdDev   float64 `json:"workload_std_dev"`   // 工时标准差
	AvgHoursPerStaff float64 `json:"avg_hours_per_staff"` // 人均工时
	MaxHours         float64 `json:"max_hours"`
	MinHours         float64 `json:"min_hours"`
	HoursRange       float64 `json:"hours_range"` // 工时极差

	// 班次类型公平性
	ShiftTypeDistribution map[model.ShiftType]float64 `json:"shift_type_distribution"` // 各班次类型占比 (%)
	NightShiftGini        float64                     `json:"night_shift_gini"`
	WeekendShiftGini      float64                     `json:"weekend_shift_gini"`

	StaffStats []StaffFairness `json:"staff_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// StaffFairness 人员统计
type StaffFairness struct {
	StaffID       int64   `json:"staff_id"`
	Name          string  `json:"name"`
	TotalHours    float64 `json:"total_hours"`
	ShiftCount    int     `json:"shift_count"`
	NightShifts   int     `json:"night_shifts"`
	WeekendShifts int     `json:"weekend_shifts"`
	Deviation     float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	snap *catalog.Snapshot
	cal  *calendar.Month
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer(snap *catalog.Snapshot, cal *calendar.Month) *FairnessAnalyzer {
	return &FairnessAnalyzer{snap: snap, cal: cal}
}

// Analyze 分析一个月的排班公平性
// 参与统计的是 staff 中的全部人员，没有排班的人员按 0 计入
func (f *FairnessAnalyzer) Analyze(entries []*model.ScheduleEntry, staff []*model.Staff) *FairnessMetrics {
	if len(staff) == 0 {
		return &FairnessMetrics{
			ShiftTypeDistribution: make(map[model.ShiftType]float64),
			OverallFairnessScore:  100,
		}
	}

	staffStats := f.calculateStaffStats(entries, staff)

	hours := make([]float64, len(staffStats))
	nightShifts := make([]float64, len(staffStats))
	weekendShifts := make([]float64, len(staffStats))
	for i, stat := range staffStats {
		hours[i] = stat.TotalHours
		nightShifts[i] = float64(stat.NightShifts)
		weekendShifts[i] = float64(stat.WeekendShifts)
	}

	avgHours := mean(hours)
	variance := varianceOf(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := valueRange(hours)

	for i := range staffStats {
		if avgHours > 0 {
			staffStats[i].Deviation = (staffStats[i].TotalHours - avgHours) / avgHours * 100
		}
	}

	workloadGini := Gini(hours)
	nightGini := Gini(nightShifts)
	weekendGini := Gini(weekendShifts)

	return &FairnessMetrics{
		WorkloadGini:          workloadGini,
		WorkloadVariance:      variance,
		WorkloadStdDev:        stdDev,
		AvgHoursPerStaff:      avgHours,
		MaxHours:              maxHours,
		MinHours:              minHours,
		HoursRange:            maxHours - minHours,
		ShiftTypeDistribution: f.shiftTypeDistribution(entries),
		NightShiftGini:        nightGini,
		WeekendShiftGini:      weekendGini,
		StaffStats:            staffStats,
		OverallFairnessScore:  overallScore(workloadGini, nightGini, weekendGini, stdDev, avgHours),
	}
}

func (f *FairnessAnalyzer) calculateStaffStats(entries []*model.ScheduleEntry, staff []*model.Staff) []StaffFairness {
	statMap := make(map[int64]*StaffFairness, len(staff))
	for _, s := range staff {
		statMap[s.ID] = &StaffFairness{StaffID: s.ID, Name: s.Name}
	}

	for _, e := range entries {
		stat, ok := statMap[e.StaffID]
		if !ok || e.IsRest() || !f.snap.Known(e.ShiftCode) {
			continue
		}
		stat.TotalHours += float64(f.snap.Minutes(e.ShiftCode)) / 60
		stat.ShiftCount++
		if f.snap.IsNight(e.ShiftCode) {
			stat.NightShifts++
		}
		if f.cal.IsWeekend(e.Day) {
			stat.WeekendShifts++
		}
	}

	result := make([]StaffFairness, 0, len(statMap))
	for _, stat := range statMap {
		result = append(result, *stat)
	}
	// 按工时降序，工时相同按ID
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalHours != result[j].TotalHours {
			return result[i].TotalHours > result[j].TotalHours
		}
		return result[i].StaffID < result[j].StaffID
	})
	return result
}

func (f *FairnessAnalyzer) shiftTypeDistribution(entries []*model.ScheduleEntry) map[model.ShiftType]float64 {
	counts := make(map[model.ShiftType]int)
	total := 0
	for _, e := range entries {
		if e.IsRest() || !f.snap.Known(e.ShiftCode) {
			continue
		}
		counts[f.snap.Type(e.ShiftCode)]++
		total++
	}

	distribution := make(map[model.ShiftType]float64, len(counts))
	if total > 0 {
		for t, n := range counts {
			distribution[t] = float64(n) / float64(total) * 100
		}
	}
	return distribution
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func varianceOf(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// Gini 基尼系数，全零或空输入返回 0
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// overallScore 综合公平性评分
func overallScore(workloadGini, nightGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.4
		nightWeight    = 0.25
		weekendWeight  = 0.25
		stdDevWeight   = 0.1
	)

	workloadScore := (1 - workloadGini) * 100
	nightScore := (1 - nightGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		nightWeight*nightScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}
