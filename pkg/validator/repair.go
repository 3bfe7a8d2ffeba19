package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/nurseshift/pkg/model"
)

// RepairResult 锁定记录修复结果
type RepairResult struct {
	Kept     []*model.ScheduleEntry
	Removed  []*model.ScheduleEntry
	Messages []string
}

// RepairLocked 检查锁定单元格，组合非法的单元格整体移除
// 移除的记录由调用方删除，排班按未锁定继续
func (d *ConflictDetector) RepairLocked(locked []*model.ScheduleEntry, staff map[int64]*model.Staff) *RepairResult {
	result := &RepairResult{}

	cells := make(map[model.StaffDay][]*model.ScheduleEntry)
	var keys []model.StaffDay
	for _, e := range locked {
		k := e.Key()
		if _, ok := cells[k]; !ok {
			keys = append(keys, k)
		}
		cells[k] = append(cells[k], e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].StaffID < keys[j].StaffID
	})

	for _, k := range keys {
		entries := cells[k]
		s := staff[k.StaffID]
		if s == nil || len(entries) < 2 {
			result.Kept = append(result.Kept, entries...)
			continue
		}
		if !hasError(d.DetectForCell(s, k.Day, shiftCodes(entries))) {
			result.Kept = append(result.Kept, entries...)
			continue
		}
		result.Removed = append(result.Removed, entries...)
		result.Messages = append(result.Messages, fmt.Sprintf("Day %d %s: locked shifts removed", k.Day, s.Name))
	}
	return result
}

// RestWarnings 夜班后一天休息、第二天即上班的提示
func (d *ConflictDetector) RestWarnings(entries []*model.ScheduleEntry, staff map[int64]*model.Staff) []string {
	byStaff := groupByStaff(entries)
	ids := make([]int64, 0, len(byStaff))
	for id := range byStaff {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var warnings []string
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
			if d.hasNight(cells[day]) && working(cells[day+2]) {
				warnings = append(warnings, fmt.Sprintf("No day off after N+D sequence (day %d): %s", day, s.Name))
			}
		}
	}
	return warnings
}

func hasError(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.IsError() {
			return true
		}
	}
	return false
}
