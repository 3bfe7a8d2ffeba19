// Package validator 提供排班验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictUnknownShift  ConflictType = "unknown_shift"  // 未知班次
	ConflictTooMany       ConflictType = "too_many"       // 单元格班次过多
	ConflictDuplicateType ConflictType = "duplicate_type" // 同类别重复
	ConflictOverlap       ConflictType = "overlap"        // 时间重叠
	ConflictCategory      ConflictType = "category"       // 类别不允许的双班组合
	ConflictRestTime      ConflictType = "rest_time"      // 休息时间不足
	ConflictNightFollowup ConflictType = "night_followup" // 夜班次日上班
	ConflictConsecutive   ConflictType = "consecutive"    // 连续天数过多
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	StaffID  int64        `json:"staff_id"`
	Day      int          `json:"day"`
	Message  string       `json:"message"`
	Shifts   []string     `json:"shifts,omitempty"` // 相关的班次代码
}

// IsError 是否为错误级冲突
func (c Conflict) IsError() bool { return c.Severity == SeverityError }

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	snap   *catalog.Snapshot
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MinRestHours       int // 最小休息时间（小时）
	MaxShiftsPerCell   int // 单元格最多班次数
	MaxConsecutiveDays int // 最大连续工作天数
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MinRestHours:       11,
		MaxShiftsPerCell:   3,
		MaxConsecutiveDays: 6,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(snap *catalog.Snapshot, config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{snap: snap, config: config}
}

// DetectForCell 检测单元格（人员+日期）内的班次组合
func (d *ConflictDetector) DetectForCell(staff *model.Staff, day int, shifts []string) []Conflict {
	var conflicts []Conflict
	conflict := func(t ConflictType, msg string, codes ...string) {
		conflicts = append(conflicts, Conflict{
			Type:     t,
			Severity: SeverityError,
			StaffID:  staff.ID,
			Day:      day,
			Message:  msg,
			Shifts:   codes,
		})
	}

	var work []model.ShiftDefinition
	for _, code := range shifts {
		if code == model.RestShiftCode || code == model.RestServiceCode {
			continue
		}
		def, ok := d.snap.Shift(code)
		if !ok {
			conflict(ConflictUnknownShift, fmt.Sprintf("unknown shift code %s", code), code)
			continue
		}
		work = append(work, def)
	}
	if len(shifts) > d.config.MaxShiftsPerCell {
		conflict(ConflictTooMany, fmt.Sprintf("at most %d shifts per day", d.config.MaxShiftsPerCell), shifts...)
	}

	for i := 0; i < len(work); i++ {
		for j := i + 1; j < len(work); j++ {
			a, b := work[i], work[j]
			switch {
			case a.Type == b.Type:
				conflict(ConflictDuplicateType, fmt.Sprintf("shift type %s repeated", a.Type), a.Code, b.Code)
			case a.Overlaps(b):
				conflict(ConflictOverlap, fmt.Sprintf("%s overlaps %s", a.Code, b.Code), a.Code, b.Code)
			case !staff.AllowsDoubleShift(a.Type, b.Type):
				conflict(ConflictCategory, fmt.Sprintf("%s+%s not allowed for %s", a.Type, b.Type, staff.Category), a.Code, b.Code)
			}
		}
	}
	return conflicts
}

// DetectAll 检测整月排班的冲突
func (d *ConflictDetector) DetectAll(entries []*model.ScheduleEntry, staff map[int64]*model.Staff) []Conflict {
	var conflicts []Conflict

	// 按人员分组
	byStaff := groupByStaff(entries)
	ids := make([]int64, 0, len(byStaff))
	for id := range byStaff {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s := staff[id]
		if s == nil {
			continue
		}
		cells := byStaff[id]

		days := make([]int, 0, len(cells))
		for day := range cells {
			days = append(days, day)
		}
		sort.Ints(days)

		for _, day := range days {
			conflicts = append(conflicts, d.DetectForCell(s, day, shiftCodes(cells[day]))...)
		}
		conflicts = append(conflicts, d.detectNightFollowup(s, cells, days)...)
		conflicts = append(conflicts, d.detectRestTimeViolations(s, cells, days)...)
		conflicts = append(conflicts, d.detectConsecutiveDaysViolations(s, cells, days)...)
	}

	return conflicts
}

// detectNightFollowup 夜班次日只允许休息记录
func (d *ConflictDetector) detectNightFollowup(s *model.Staff, cells map[int][]*model.ScheduleEntry, days []int) []Conflict {
	var conflicts []Conflict
	for _, day := range days {
		if !d.hasNight(cells[day]) {
			continue
		}
		for _, e := range cells[day+1] {
			if e.IsRest() {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:     ConflictNightFollowup,
				Severity: SeverityError,
				StaffID:  s.ID,
				Day:      day + 1,
				Message:  fmt.Sprintf("%s works day %d after a night shift", s.Name, day+1),
				Shifts:   []string{e.ShiftCode},
			})
		}
	}
	return conflicts
}

// detectRestTimeViolations 检测相邻两日休息时间不足
func (d *ConflictDetector) detectRestTimeViolations(s *model.Staff, cells map[int][]*model.ScheduleEntry, days []int) []Conflict {
	var conflicts []Conflict
	minRest := d.config.MinRestHours * 60
	for _, day := range days {
		for _, prev := range cells[day] {
			if prev.IsRest() {
				continue
			}
			for _, next := range cells[day+1] {
				if next.IsRest() {
					continue
				}
				rest := d.snap.RestMinutes(prev.ShiftCode, next.ShiftCode)
				if rest >= minRest {
					continue
				}
				conflicts = append(conflicts, Conflict{
					Type:     ConflictRestTime,
					Severity: SeverityWarning,
					StaffID:  s.ID,
					Day:      day + 1,
					Message:  fmt.Sprintf("%s rests only %.1f hours before day %d", s.Name, float64(rest)/60, day+1),
					Shifts:   []string{prev.ShiftCode, next.ShiftCode},
				})
			}
		}
	}
	return conflicts
}

// detectConsecutiveDaysViolations 检测连续工作天数
func (d *ConflictDetector) detectConsecutiveDaysViolations(s *model.Staff, cells map[int][]*model.ScheduleEntry, days []int) []Conflict {
	var conflicts []Conflict

	consecutive, start := 0, 0
	prev := -1
	for _, day := range days {
		if !working(cells[day]) {
			continue
		}
		if day == prev+1 {
			consecutive++
		} else {
			consecutive, start = 1, day
		}
		prev = day
		if consecutive == d.config.MaxConsecutiveDays+1 {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictConsecutive,
				Severity: SeverityWarning,
				StaffID:  s.ID,
				Day:      start,
				Message:  fmt.Sprintf("%s works more than %d consecutive days from day %d", s.Name, d.config.MaxConsecutiveDays, start),
			})
		}
	}
	return conflicts
}

func (d *ConflictDetector) hasNight(entries []*model.ScheduleEntry) bool {
	for _, e := range entries {
		if !e.IsRest() && d.snap.IsNight(e.ShiftCode) {
			return true
		}
	}
	return false
}

func working(entries []*model.ScheduleEntry) bool {
	for _, e := range entries {
		if !e.IsRest() {
			return true
		}
	}
	return false
}

func shiftCodes(entries []*model.ScheduleEntry) []string {
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsRest() {
			continue
		}
		codes = append(codes, e.ShiftCode)
	}
	return codes
}

// groupByStaff 按人员、日期分组
func groupByStaff(entries []*model.ScheduleEntry) map[int64]map[int][]*model.ScheduleEntry {
	result := make(map[int64]map[int][]*model.ScheduleEntry)
	for _, e := range entries {
		if result[e.StaffID] == nil {
			result[e.StaffID] = make(map[int][]*model.ScheduleEntry)
		}
		result[e.StaffID][e.Day] = append(result[e.StaffID][e.Day], e)
	}
	return result
}
