package slots

import (
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

type requirementKey struct {
	day     int
	service string
	shift   string
}

type staffWeek struct {
	staffID int64
	week    string
}

// LockedIndex 锁定记录索引，供拆分、建模与回退共用
type LockedIndex struct {
	counts       map[requirementKey]int
	byDay        map[model.StaffDay][]*model.ScheduleEntry
	weekMinutes  map[staffWeek]int
	monthMinutes map[int64]int
	typeCounts   map[int64]map[model.ShiftType]int
}

// NewLockedIndex 构建锁定记录索引
func NewLockedIndex(snap *catalog.Snapshot, year, month int, locked []*model.ScheduleEntry) *LockedIndex {
	idx := &LockedIndex{
		counts:       make(map[requirementKey]int),
		byDay:        make(map[model.StaffDay][]*model.ScheduleEntry),
		weekMinutes:  make(map[staffWeek]int),
		monthMinutes: make(map[int64]int),
		typeCounts:   make(map[int64]map[model.ShiftType]int),
	}
	for _, e := range locked {
		idx.counts[requirementKey{e.Day, e.ServiceCode, e.ShiftCode}]++
		idx.byDay[e.Key()] = append(idx.byDay[e.Key()], e)

		minutes := snap.EntryMinutes(e)
		idx.weekMinutes[staffWeek{e.StaffID, model.ISOWeek(year, month, e.Day)}] += minutes
		idx.monthMinutes[e.StaffID] += minutes

		if e.IsRest() {
			continue
		}
		if t := snap.Type(e.ShiftCode); t != "" {
			if idx.typeCounts[e.StaffID] == nil {
				idx.typeCounts[e.StaffID] = make(map[model.ShiftType]int)
			}
			idx.typeCounts[e.StaffID][t]++
		}
	}
	return idx
}

// Count 某日某服务某班次的锁定人数
func (l *LockedIndex) Count(day int, service, shift string) int {
	return l.counts[requirementKey{day, service, shift}]
}

// Entries 人员某日的锁定记录
func (l *LockedIndex) Entries(staffID int64, day int) []*model.ScheduleEntry {
	return l.byDay[model.StaffDay{StaffID: staffID, Day: day}]
}

// Has 人员某日是否有锁定记录
func (l *LockedIndex) Has(staffID int64, day int) bool {
	return len(l.Entries(staffID, day)) > 0
}

// Working 人员某日是否有非休息的锁定记录
func (l *LockedIndex) Working(staffID int64, day int) bool {
	for _, e := range l.Entries(staffID, day) {
		if !e.IsRest() {
			return true
		}
	}
	return false
}

// Night 人员某日是否锁定了夜班
func (l *LockedIndex) Night(snap *catalog.Snapshot, staffID int64, day int) bool {
	for _, e := range l.Entries(staffID, day) {
		if !e.IsRest() && snap.IsNight(e.ShiftCode) {
			return true
		}
	}
	return false
}

// RestConflict 某日候选班次是否与前后两日的锁定记录冲突
// 前一日锁定夜班时当日不可上班；候选为夜班时次日不可有锁定的工作班次；
// 与相邻锁定班次之间的休息不得少于 minRest 分钟
func (l *LockedIndex) RestConflict(snap *catalog.Snapshot, staffID int64, day int, shiftCode string, minRest int) bool {
	if l.Night(snap, staffID, day-1) {
		return true
	}
	if snap.IsNight(shiftCode) && l.Working(staffID, day+1) {
		return true
	}
	for _, e := range l.Entries(staffID, day-1) {
		if !e.IsRest() && snap.RestMinutes(e.ShiftCode, shiftCode) < minRest {
			return true
		}
	}
	for _, e := range l.Entries(staffID, day+1) {
		if !e.IsRest() && snap.RestMinutes(shiftCode, e.ShiftCode) < minRest {
			return true
		}
	}
	return false
}

// WeekMinutes 人员某 ISO 周的锁定分钟数
func (l *LockedIndex) WeekMinutes(staffID int64, week string) int {
	return l.weekMinutes[staffWeek{staffID, week}]
}

// MonthMinutes 人员当月锁定分钟数
func (l *LockedIndex) MonthMinutes(staffID int64) int {
	return l.monthMinutes[staffID]
}

// TypeCount 人员某类别的锁定班次数
func (l *LockedIndex) TypeCount(staffID int64, t model.ShiftType) int {
	return l.typeCounts[staffID][t]
}

// Total 人员锁定的工作班次总数
func (l *LockedIndex) Total(staffID int64) int {
	n := 0
	for _, c := range l.typeCounts[staffID] {
		n += c
	}
	return n
}
