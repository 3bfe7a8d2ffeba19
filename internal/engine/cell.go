package engine

import (
	"context"
	"strings"

	"github.com/paiban/nurseshift/internal/repository"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/model"
)

// CellUpdate 单元格（人员+日期）修改请求
type CellUpdate struct {
	StaffID     int64    `json:"staff_id" validate:"required"`
	Year        int      `json:"year" validate:"min=2000,max=2100"`
	Month       int      `json:"month" validate:"min=1,max=12"`
	Day         int      `json:"day" validate:"min=1,max=31"`
	Shifts      []string `json:"shift_codes" validate:"max=3,dive,required"`
	ServiceCode string   `json:"service_code,omitempty"`
	Locked      *bool    `json:"locked,omitempty"`
}

// CellResult 单元格修改结果
type CellResult struct {
	Entries []*model.ScheduleEntry `json:"entries"`
	Stat    model.StaffStat        `json:"stat"`
}

// UpdateCell 替换单元格内的班次（最多 3 个）
//
// 班次为空时：给定 Locked 则只改锁定状态，否则清空单元格（锁定单元格拒绝清空）。
// 锁定单元格只有显式 Locked=false 才能改写。修改后按 RecalcStaffStat 的路径重新核算。
func (e *Engine) UpdateCell(ctx context.Context, req CellUpdate) (*CellResult, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidInput("cell", err.Error())
	}
	if req.Day > model.DaysInMonth(req.Year, req.Month) {
		return nil, apperrors.InvalidInput("day", "day outside month")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := loadCatalog(ctx, e.store)
	if err != nil {
		return nil, err
	}
	s, err := loadStaff(ctx, e.store, req.StaffID)
	if err != nil {
		return nil, err
	}
	cfg, err := loadMonthConfig(ctx, e.store, req.Year, req.Month)
	if err != nil {
		return nil, err
	}

	existing, err := e.cellEntries(ctx, req)
	if err != nil {
		return nil, err
	}
	locked := false
	for _, en := range existing {
		locked = locked || en.Locked
	}

	var created []*model.ScheduleEntry
	switch {
	case len(req.Shifts) == 0 && req.Locked != nil && len(existing) > 0:
		for _, en := range existing {
			en.Locked = *req.Locked
		}
		created = existing
	case len(req.Shifts) == 0:
		if locked {
			return nil, apperrors.ScheduleConflict(req.StaffID, req.Day, "cell is locked")
		}
	default:
		if locked && (req.Locked == nil || *req.Locked) {
			return nil, apperrors.ScheduleConflict(req.StaffID, req.Day, "cell is locked")
		}
		var problems []string
		for _, c := range detectorFor(snap, cfg).DetectForCell(s, req.Day, req.Shifts) {
			if c.IsError() {
				problems = append(problems, c.Message)
			}
		}
		if len(problems) > 0 {
			return nil, apperrors.ScheduleConflict(req.StaffID, req.Day, strings.Join(problems, "; "))
		}
		for _, code := range req.Shifts {
			service := req.ServiceCode
			if service == "" {
				service = code
			}
			en := model.NewScheduleEntry(req.StaffID, req.Year, req.Month, req.Day, service, code, model.SourceManual)
			en.Locked = req.Locked != nil && *req.Locked
			created = append(created, en)
		}
	}

	out := &CellResult{Entries: created}
	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.DeleteCell(ctx, req.StaffID, req.Year, req.Month, req.Day); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, created); err != nil {
			return err
		}
		stat, err := recalc(ctx, tx, snap, req.StaffID, req.Year, req.Month)
		if err != nil {
			return err
		}
		out.Stat = stat
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "保存单元格失败")
	}
	return out, nil
}

func (e *Engine) cellEntries(ctx context.Context, req CellUpdate) ([]*model.ScheduleEntry, error) {
	entries, err := e.store.ListStaffEntries(ctx, req.StaffID, req.Year, req.Month)
	if err != nil {
		return nil, apperrors.Database(err, "加载排班记录失败")
	}
	var cell []*model.ScheduleEntry
	for _, en := range entries {
		if en.Day == req.Day {
			cell = append(cell, en)
		}
	}
	return cell, nil
}
