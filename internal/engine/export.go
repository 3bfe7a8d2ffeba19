package engine

import (
	"context"
	"errors"

	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/export"
	"github.com/paiban/nurseshift/pkg/model"
)

// ExportSchedule 导出某月排班工作簿，group 为空时导出全部人员
func (e *Engine) ExportSchedule(ctx context.Context, year, month int, group string) ([]byte, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	role, err := parseGroup(group)
	if err != nil {
		return nil, err
	}
	sc, err := loadScope(ctx, e.store, role)
	if err != nil {
		return nil, err
	}

	entries, err := e.store.ListEntries(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载排班记录失败")
	}
	stats, err := e.store.ListStats(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载月度统计失败")
	}

	data := &export.ScheduleData{
		Year:  year,
		Month: month,
		Staff: sc.staff,
		Stats: make(map[int64]*model.StaffMonthStat, len(stats)),
	}
	for _, en := range entries {
		if sc.has(en.StaffID) {
			data.Entries = append(data.Entries, en)
		}
	}
	for _, st := range stats {
		if sc.has(st.StaffID) {
			data.Stats[st.StaffID] = st
		}
	}
	return workbook(export.ScheduleWorkbook(data))
}

// ExportConstraints 导出某月约束工作簿
func (e *Engine) ExportConstraints(ctx context.Context, year, month int, group string) ([]byte, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	role, err := parseGroup(group)
	if err != nil {
		return nil, err
	}
	sc, err := loadScope(ctx, e.store, role)
	if err != nil {
		return nil, err
	}
	constraints, err := e.store.ListConstraints(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载约束失败")
	}

	data := &export.ConstraintData{Year: year, Month: month, Staff: sc.staff}
	for _, c := range constraints {
		if sc.has(c.StaffID) {
			data.Constraints = append(data.Constraints, c)
		}
	}
	return workbook(export.ConstraintWorkbook(data))
}

func workbook(b []byte, err error) ([]byte, error) {
	if errors.Is(err, export.ErrNoStaff) {
		return nil, apperrors.NotFound("staff", "group")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "生成工作簿失败")
	}
	return b, nil
}
