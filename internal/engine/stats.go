package engine

import (
	"context"
	"fmt"

	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/balance"
	"github.com/paiban/nurseshift/pkg/catalog"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
)

// RecalcStaffStat 重新核算单个人员的月度统计
// 与 Generate 走同一个核算器，结果与整月重新生成时一致
func (e *Engine) RecalcStaffStat(ctx context.Context, staffID int64, year, month int) (*model.StaffStat, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := loadCatalog(ctx, e.store)
	if err != nil {
		return nil, err
	}

	var out model.StaffStat
	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		stat, err := recalc(ctx, tx, snap, staffID, year, month)
		if err != nil {
			return err
		}
		out = stat
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "重新核算统计失败")
	}
	return &out, nil
}

// recalc 在给定事务中核算并保存一名人员的统计
func recalc(ctx context.Context, tx repository.Store, snap *catalog.Snapshot, staffID int64, year, month int) (model.StaffStat, error) {
	s, err := loadStaff(ctx, tx, staffID)
	if err != nil {
		return model.StaffStat{}, err
	}
	entries, err := tx.ListStaffEntries(ctx, staffID, year, month)
	if err != nil {
		return model.StaffStat{}, err
	}
	constraints, err := tx.ListConstraints(ctx, year, month)
	if err != nil {
		return model.StaffStat{}, err
	}
	mine := make([]model.ConstraintEntry, 0)
	for _, c := range constraints {
		if c.StaffID == staffID {
			mine = append(mine, c)
		}
	}
	adjs, err := tx.ListAdjustments(ctx, year, month)
	if err != nil {
		return model.StaffStat{}, err
	}
	adjustments := make(map[int64]*model.MonthlyAdjustment)
	for _, a := range adjs {
		if a.StaffID == staffID {
			adjustments[staffID] = a
		}
	}
	previous, err := tx.GetStat(ctx, staffID, year, month)
	if err != nil {
		return model.StaffStat{}, err
	}

	rec, err := balance.NewReconciler(snap, year, month)
	if err != nil {
		return model.StaffStat{}, apperrors.InvalidPeriod(year, month)
	}
	in := balance.Input{
		Staff:        []*model.Staff{s},
		Entries:      entries,
		Availability: model.NewAvailabilityMap(mine),
		Adjustments:  adjustments,
		Previous:     map[int64]*model.StaffMonthStat{},
	}
	if previous != nil {
		in.Previous[staffID] = previous
	}
	changes := rec.Reconcile(in)
	if err := saveChanges(ctx, tx, changes); err != nil {
		return model.StaffStat{}, err
	}
	c := changes[0]
	return model.NewStaffStat(c.Staff, c.Stat), nil
}

// OverrideStatTarget 手工设定某人某月的目标分钟数
// 差额随之重算，余额按差额变化调整；该月需已有统计记录
func (e *Engine) OverrideStatTarget(ctx context.Context, staffID int64, year, month, targetMinutes int) (*model.StaffStat, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	if targetMinutes < 0 {
		return nil, apperrors.InvalidInput("target_minutes", "must not be negative")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var out model.StaffStat
	err := e.store.WithTx(ctx, func(tx repository.Store) error {
		s, err := loadStaff(ctx, tx, staffID)
		if err != nil {
			return err
		}
		previous, err := tx.GetStat(ctx, staffID, year, month)
		if err != nil {
			return err
		}
		if previous == nil {
			return apperrors.NotFound("stat", fmt.Sprintf("%d/%s", staffID, periodLabel(year, month)))
		}
		change := balance.OverrideTarget(s, previous, year, month, targetMinutes)
		if err := saveChanges(ctx, tx, []balance.Change{change}); err != nil {
			return err
		}
		out = model.NewStaffStat(change.Staff, change.Stat)
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "设置目标工时失败")
	}

	logger.WithContext(ctx).Info().
		Int64("staff_id", staffID).
		Str("period", periodLabel(year, month)).
		Int("target_minutes", targetMinutes).
		Int("delta_minutes", out.DeltaMinutes).
		Msg("手工设置目标工时")
	return &out, nil
}

// ClearResult 清空结果
type ClearResult struct {
	Entries int `json:"entries"`
	Staff   int `json:"staff"`
}

// ClearMonth 清空某月排班：撤销统计差额对余额的影响，
// 删除该分组的全部记录（含锁定）、统计与工时调整
func (e *Engine) ClearMonth(ctx context.Context, year, month int, group string) (*ClearResult, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	role, err := parseGroup(group)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	out := &ClearResult{}
	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		sc, err := loadScope(ctx, tx, role)
		if err != nil {
			return err
		}
		stats, err := tx.ListStats(ctx, year, month)
		if err != nil {
			return err
		}
		for _, st := range stats {
			s := sc.byID[st.StaffID]
			if s == nil {
				continue
			}
			change := balance.Reverse(s, st)
			if change.Changed() {
				if err := tx.UpdateBalance(ctx, s.ID, change.BalanceAfter); err != nil {
					return err
				}
			}
			out.Staff++
		}

		n, err := tx.DeleteEntries(ctx, year, month, sc.ids, false)
		if err != nil {
			return err
		}
		out.Entries = n
		if err := tx.DeleteStats(ctx, year, month, sc.ids); err != nil {
			return err
		}
		return tx.DeleteAdjustments(ctx, year, month, sc.ids)
	})
	if err != nil {
		return nil, asAppError(err, "清空排班失败")
	}

	logger.WithContext(ctx).Info().
		Str("period", periodLabel(year, month)).
		Str("group", string(role)).
		Int("entries", out.Entries).
		Int("staff", out.Staff).
		Msg("已清空月度排班")
	return out, nil
}

// MonthStats 返回某月人员统计，用于展示与导出
func (e *Engine) MonthStats(ctx context.Context, year, month int, group string) ([]model.StaffStat, error) {
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
	stats, err := e.store.ListStats(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载月度统计失败")
	}
	byStaff := make(map[int64]*model.StaffMonthStat, len(stats))
	for _, st := range stats {
		byStaff[st.StaffID] = st
	}

	out := make([]model.StaffStat, 0, len(sc.staff))
	for _, s := range sc.staff {
		out = append(out, model.NewStaffStat(s, byStaff[s.ID]))
	}
	return out, nil
}

// asAppError 已是业务错误的原样返回，其余按数据库错误包装
func asAppError(err error, op string) error {
	if apperrors.GetCode(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.Database(err, op)
}
