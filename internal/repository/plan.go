package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paiban/nurseshift/pkg/model"
)

// ListRequirements 获取某月需求
func (s *SQLStore) ListRequirements(ctx context.Context, year, month int) ([]*model.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, day, service_code, shift_code, required
		FROM requirements
		WHERE year = $1 AND month = $2
		ORDER BY day, service_code, shift_code
	`, year, month)
	if err != nil {
		return nil, wrapError(err, "查询月度需求")
	}
	defer rows.Close()

	var reqs []*model.Requirement
	for rows.Next() {
		var r model.Requirement
		if err := rows.Scan(&r.Year, &r.Month, &r.Day, &r.ServiceCode, &r.ShiftCode, &r.Required); err != nil {
			return nil, fmt.Errorf("扫描月度需求失败: %w", err)
		}
		reqs = append(reqs, &r)
	}
	return reqs, wrapError(rows.Err(), "遍历月度需求")
}

// SaveRequirement 新建或更新需求人数
func (s *SQLStore) SaveRequirement(ctx context.Context, r *model.Requirement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requirements (year, month, day, service_code, shift_code, required)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (year, month, day, service_code, shift_code) DO UPDATE SET
			required = EXCLUDED.required
	`, r.Year, r.Month, r.Day, r.ServiceCode, r.ShiftCode, r.Required)
	return wrapError(err, "保存月度需求")
}

// ListConstraints 获取某月约束
func (s *SQLStore) ListConstraints(ctx context.Context, year, month int) ([]model.ConstraintEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT staff_id, year, month, day, code
		FROM constraint_entries
		WHERE year = $1 AND month = $2
		ORDER BY staff_id, day
	`, year, month)
	if err != nil {
		return nil, wrapError(err, "查询约束")
	}
	defer rows.Close()

	var entries []model.ConstraintEntry
	for rows.Next() {
		var c model.ConstraintEntry
		if err := rows.Scan(&c.StaffID, &c.Year, &c.Month, &c.Day, &c.Code); err != nil {
			return nil, fmt.Errorf("扫描约束失败: %w", err)
		}
		entries = append(entries, c)
	}
	return entries, wrapError(rows.Err(), "遍历约束")
}

// SaveConstraint 设置人员某日约束
func (s *SQLStore) SaveConstraint(ctx context.Context, c model.ConstraintEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO constraint_entries (staff_id, year, month, day, code)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id, year, month, day) DO UPDATE SET code = EXCLUDED.code
	`, c.StaffID, c.Year, c.Month, c.Day, c.Code)
	return wrapError(err, "保存约束")
}

// DeleteConstraint 清除人员某日约束
func (s *SQLStore) DeleteConstraint(ctx context.Context, staffID int64, year, month, day int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM constraint_entries
		WHERE staff_id = $1 AND year = $2 AND month = $3 AND day = $4
	`, staffID, year, month, day)
	return wrapError(err, "删除约束")
}

// GetMonthConfig 获取月度配置
func (s *SQLStore) GetMonthConfig(ctx context.Context, year, month int) (*model.MonthConfig, error) {
	var cfg model.MonthConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT year, month, max_hours_week_contracted, target_hours_week,
			requests_hard, rest_after_night_rest, min_rest_hours, penalties
		FROM month_configs
		WHERE year = $1 AND month = $2
	`, year, month).Scan(
		&cfg.Year, &cfg.Month, &cfg.MaxHoursWeekContracted, &cfg.TargetHoursWeek,
		&cfg.RequestsHard, &cfg.RestAfterNightRest, &cfg.MinRestHours, &cfg.Penalties,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError(err, "查询月度配置")
	}
	return &cfg, nil
}

// SaveMonthConfig 新建或更新月度配置
func (s *SQLStore) SaveMonthConfig(ctx context.Context, cfg *model.MonthConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO month_configs (year, month, max_hours_week_contracted, target_hours_week,
			requests_hard, rest_after_night_rest, min_rest_hours, penalties)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (year, month) DO UPDATE SET
			max_hours_week_contracted = EXCLUDED.max_hours_week_contracted,
			target_hours_week = EXCLUDED.target_hours_week,
			requests_hard = EXCLUDED.requests_hard,
			rest_after_night_rest = EXCLUDED.rest_after_night_rest,
			min_rest_hours = EXCLUDED.min_rest_hours,
			penalties = EXCLUDED.penalties
	`, cfg.Year, cfg.Month, cfg.MaxHoursWeekContracted, cfg.TargetHoursWeek,
		cfg.RequestsHard, cfg.RestAfterNightRest, cfg.MinRestHours, cfg.Penalties)
	return wrapError(err, "保存月度配置")
}

// ListAdjustments 获取某月工时调整
func (s *SQLStore) ListAdjustments(ctx context.Context, year, month int) ([]*model.MonthlyAdjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT staff_id, year, month, extra_minutes, reduced_minutes, holidays_worked
		FROM monthly_adjustments
		WHERE year = $1 AND month = $2
		ORDER BY staff_id
	`, year, month)
	if err != nil {
		return nil, wrapError(err, "查询工时调整")
	}
	defer rows.Close()

	var adjs []*model.MonthlyAdjustment
	for rows.Next() {
		var a model.MonthlyAdjustment
		if err := rows.Scan(&a.StaffID, &a.Year, &a.Month, &a.ExtraMinutes, &a.ReducedMinutes, &a.HolidaysWorked); err != nil {
			return nil, fmt.Errorf("扫描工时调整失败: %w", err)
		}
		adjs = append(adjs, &a)
	}
	return adjs, wrapError(rows.Err(), "遍历工时调整")
}

// SaveAdjustment 新建或更新工时调整
func (s *SQLStore) SaveAdjustment(ctx context.Context, a *model.MonthlyAdjustment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_adjustments (staff_id, year, month, extra_minutes, reduced_minutes, holidays_worked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (staff_id, year, month) DO UPDATE SET
			extra_minutes = EXCLUDED.extra_minutes,
			reduced_minutes = EXCLUDED.reduced_minutes,
			holidays_worked = EXCLUDED.holidays_worked
	`, a.StaffID, a.Year, a.Month, a.ExtraMinutes, a.ReducedMinutes, a.HolidaysWorked)
	return wrapError(err, "保存工时调整")
}

// DeleteAdjustments 删除某月工时调整
func (s *SQLStore) DeleteAdjustments(ctx context.Context, year, month int, staffIDs []int64) error {
	query, args, ok := monthScope(`DELETE FROM monthly_adjustments`, year, month, staffIDs)
	if !ok {
		return nil
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return wrapError(err, "删除工时调整")
}

// monthScope 拼接按月份与人员过滤的语句，空人员列表返回 ok=false
func monthScope(prefix string, year, month int, staffIDs []int64) (string, []interface{}, bool) {
	if staffIDs != nil && len(staffIDs) == 0 {
		return "", nil, false
	}
	query := prefix + ` WHERE year = $1 AND month = $2`
	args := []interface{}{year, month}
	if staffIDs != nil {
		clause, ids := inClause("staff_id", staffIDs, 3)
		query += " AND " + clause
		args = append(args, ids...)
	}
	return query, args, true
}
