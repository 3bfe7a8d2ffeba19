package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paiban/nurseshift/pkg/model"
)

const staffColumns = `id, name, category, permitted_shifts, night_eligible,
	max_nights_per_month, weekly_hours, balance_minutes, display_order`

// ListStaff 获取全部人员，按ID升序
func (s *SQLStore) ListStaff(ctx context.Context) ([]*model.Staff, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY id`)
	if err != nil {
		return nil, wrapError(err, "查询人员列表")
	}
	defer rows.Close()

	var staff []*model.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, st)
	}
	return staff, wrapError(rows.Err(), "遍历人员列表")
}

// GetStaff 根据ID获取人员
func (s *SQLStore) GetStaff(ctx context.Context, id int64) (*model.Staff, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	st, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("人员 %d: %w", id, ErrNotFound)
	}
	return st, err
}

// SaveStaff 新建或更新人员
func (s *SQLStore) SaveStaff(ctx context.Context, st *model.Staff) error {
	permitted, err := encodeCodes(st.PermittedShifts)
	if err != nil {
		return fmt.Errorf("编码人员班次权限失败: %w", err)
	}

	query := `
		INSERT INTO staff (` + staffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			permitted_shifts = EXCLUDED.permitted_shifts,
			night_eligible = EXCLUDED.night_eligible,
			max_nights_per_month = EXCLUDED.max_nights_per_month,
			weekly_hours = EXCLUDED.weekly_hours,
			balance_minutes = EXCLUDED.balance_minutes,
			display_order = EXCLUDED.display_order
	`
	_, err = s.db.ExecContext(ctx, query,
		st.ID, st.Name, string(st.Category), permitted, st.NightEligible,
		st.MaxNightsPerMonth, st.WeeklyHours, st.BalanceMinutes, st.DisplayOrder,
	)
	return wrapError(err, "保存人员")
}

// UpdateBalance 更新累计工时余额
func (s *SQLStore) UpdateBalance(ctx context.Context, staffID int64, balanceMinutes int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE staff SET balance_minutes = $1 WHERE id = $2`, balanceMinutes, staffID)
	if err != nil {
		return wrapError(err, "更新工时余额")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("人员 %d: %w", staffID, ErrNotFound)
	}
	return nil
}

func scanStaff(row Scanner) (*model.Staff, error) {
	var (
		st        model.Staff
		category  string
		permitted string
	)
	err := row.Scan(&st.ID, &st.Name, &category, &permitted, &st.NightEligible,
		&st.MaxNightsPerMonth, &st.WeeklyHours, &st.BalanceMinutes, &st.DisplayOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("扫描人员失败: %w", err)
	}
	st.Category = model.Category(category)
	if st.PermittedShifts, err = decodeCodes(permitted); err != nil {
		return nil, err
	}
	return &st, nil
}
