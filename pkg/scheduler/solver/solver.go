// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/builder"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
	"github.com/paiban/nurseshift/pkg/scheduler/slots"
)

// Solver 求解器接口
type Solver interface {
	// Solve 为一个月生成新的自动排班记录
	Solve(ctx context.Context, in *builder.Input) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Entries    []*model.ScheduleEntry `json:"entries"` // 新生成的记录（含自动休息）
	Unfilled   []model.UnfilledSlot   `json:"unfilled"`
	Status     cpmodel.Status         `json:"status"`
	Fallback   bool                   `json:"fallback"`
	Objective  int64                  `json:"objective"`
	Iterations int                    `json:"iterations"`
	Statistics *Statistics            `json:"statistics"`
	Duration   time.Duration          `json:"duration"`
}

// Statistics 排班统计
type Statistics struct {
	TotalSlots    int     `json:"total_slots"`
	FilledSlots   int     `json:"filled_slots"`
	UnfilledSlots int     `json:"unfilled_slots"`
	RestEntries   int     `json:"rest_entries"`
	FillRate      float64 `json:"fill_rate"`
	TotalMinutes  int     `json:"total_minutes"`
}

// 回退求解的未填补原因
const reasonFallback = "no eligible staff (fallback)"

func checkInput(in *builder.Input) error {
	switch {
	case in == nil:
		return fmt.Errorf("solver input is nil")
	case in.Catalog == nil || in.Config == nil || in.Expansion == nil || in.Locked == nil:
		return fmt.Errorf("solver input is incomplete")
	case in.Manager == nil || in.Context == nil:
		return fmt.Errorf("eligibility manager and context are required")
	}
	return nil
}

// runID 从上下文读取运行ID
func runID(ctx context.Context) string {
	if id, ok := ctx.Value(logger.RunIDKey).(string); ok {
		return id
	}
	return ""
}

// InsertRestEntries 夜班次日为空时插入休息记录（月末之后不插入）
func InsertRestEntries(snap *catalog.Snapshot, year, month int, created []*model.ScheduleEntry, locked *slots.LockedIndex) []*model.ScheduleEntry {
	days := model.DaysInMonth(year, month)
	occupied := make(map[model.StaffDay]bool, len(created))
	for _, e := range created {
		occupied[e.Key()] = true
	}

	var rests []*model.ScheduleEntry
	for _, e := range created {
		if e.IsRest() || !snap.IsNight(e.ShiftCode) {
			continue
		}
		next := model.StaffDay{StaffID: e.StaffID, Day: e.Day + 1}
		if next.Day > days || occupied[next] || (locked != nil && locked.Has(next.StaffID, next.Day)) {
			continue
		}
		occupied[next] = true
		rests = append(rests, model.NewScheduleEntry(e.StaffID, year, month, next.Day,
			model.RestServiceCode, model.RestShiftCode, model.SourceAutoRest))
	}
	return rests
}

// finish 插入休息记录、排序并汇总统计
func finish(in *builder.Input, result *Result) {
	rests := InsertRestEntries(in.Catalog, in.Year, in.Month, result.Entries, in.Locked)

	stats := &Statistics{
		TotalSlots:    len(in.Expansion.Slots),
		FilledSlots:   len(result.Entries),
		UnfilledSlots: len(result.Unfilled),
		RestEntries:   len(rests),
	}
	for _, e := range result.Entries {
		stats.TotalMinutes += in.Catalog.EntryMinutes(e)
	}
	if stats.TotalSlots > 0 {
		stats.FillRate = float64(stats.FilledSlots) / float64(stats.TotalSlots) * 100
	}
	result.Statistics = stats
	result.Entries = append(result.Entries, rests...)

	sort.SliceStable(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.StaffID < b.StaffID
	})
	sort.SliceStable(result.Unfilled, func(i, j int) bool {
		a, b := result.Unfilled[i], result.Unfilled[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ShiftCode < b.ShiftCode
	})
}
