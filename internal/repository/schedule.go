package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/model"
)

const entryColumns = `id, staff_id, year, month, day, service_code, shift_code, locked, source, created_at`

// ListEntries 获取某月全部排班记录
func (s *SQLStore) ListEntries(ctx context.Context, year, month int) ([]*model.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE year = $1 AND month = $2
		ORDER BY staff_id, day, service_code, shift_code
	`, year, month)
	if err != nil {
		return nil, wrapError(err, "查询排班记录")
	}
	return scanEntries(rows)
}

// ListStaffEntries 获取人员某月排班记录
func (s *SQLStore) ListStaffEntries(ctx context.Context, staffID int64, year, month int) ([]*model.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM schedule_entries
		WHERE staff_id = $1 AND year = $2 AND month = $3
		ORDER BY day, service_code, shift_code
	`, staffID, year, month)
	if err != nil {
		return nil, wrapError(err, "查询人员排班记录")
	}
	return scanEntries(rows)
}

// InsertEntries 批量插入排班记录
func (s *SQLStore) InsertEntries(ctx context.Context, entries []*model.ScheduleEntry) error {
	query := `
		INSERT INTO schedule_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		_, err := s.db.ExecContext(ctx, query,
			e.ID, e.StaffID, e.Year, e.Month, e.Day, e.ServiceCode, e.ShiftCode,
			e.Locked, string(e.Source), e.CreatedAt,
		)
		if err != nil {
			return wrapError(err, "插入排班记录")
		}
	}
	return nil
}

// DeleteEntries 删除某月排班记录，onlyUnlocked 时保留锁定记录
func (s *SQLStore) DeleteEntries(ctx context.Context, year, month int, staffIDs []int64, onlyUnlocked bool) (int, error) {
	query, args, ok := monthScope(`DELETE FROM schedule_entries`, year, month, staffIDs)
	if !ok {
		return 0, nil
	}
	if onlyUnlocked {
		query += fmt.Sprintf(" AND locked = $%d", len(args)+1)
		args = append(args, false)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapError(err, "删除排班记录")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapError(err, "删除排班记录")
	}
	return int(n), nil
}

// DeleteCell 删除人员某日全部记录
func (s *SQLStore) DeleteCell(ctx context.Context, staffID int64, year, month, day int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM schedule_entries
		WHERE staff_id = $1 AND year = $2 AND month = $3 AND day = $4
	`, staffID, year, month, day)
	return wrapError(err, "删除单元格记录")
}

// DeleteEntriesByID 按ID删除记录
func (s *SQLStore) DeleteEntriesByID(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM schedule_entries WHERE id IN (`+strings.Join(marks, ", ")+`)`, args...)
	return wrapError(err, "删除排班记录")
}

// ListStats 获取某月统计
func (s *SQLStore) ListStats(ctx context.Context, year, month int) ([]*model.StaffMonthStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT staff_id, year, month, target_minutes, actual_minutes, delta_minutes
		FROM staff_month_stats
		WHERE year = $1 AND month = $2
		ORDER BY staff_id
	`, year, month)
	if err != nil {
		return nil, wrapError(err, "查询月度统计")
	}
	defer rows.Close()

	var stats []*model.StaffMonthStat
	for rows.Next() {
		st, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, wrapError(rows.Err(), "遍历月度统计")
}

// GetStat 获取人员某月统计
func (s *SQLStore) GetStat(ctx context.Context, staffID int64, year, month int) (*model.StaffMonthStat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT staff_id, year, month, target_minutes, actual_minutes, delta_minutes
		FROM staff_month_stats
		WHERE staff_id = $1 AND year = $2 AND month = $3
	`, staffID, year, month)
	st, err := scanStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

// SaveStat 新建或更新月度统计
func (s *SQLStore) SaveStat(ctx context.Context, st *model.StaffMonthStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_month_stats (staff_id, year, month, target_minutes, actual_minutes, delta_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (staff_id, year, month) DO UPDATE SET
			target_minutes = EXCLUDED.target_minutes,
			actual_minutes = EXCLUDED.actual_minutes,
			delta_minutes = EXCLUDED.delta_minutes
	`, st.StaffID, st.Year, st.Month, st.TargetMinutes, st.ActualMinutes, st.DeltaMinutes)
	return wrapError(err, "保存月度统计")
}

// DeleteStats 删除某月统计
func (s *SQLStore) DeleteStats(ctx context.Context, year, month int, staffIDs []int64) error {
	query, args, ok := monthScope(`DELETE FROM staff_month_stats`, year, month, staffIDs)
	if !ok {
		return nil
	}
	_, err := s.db.ExecContext(ctx, query, args...)
	return wrapError(err, "删除月度统计")
}

func scanEntries(rows *sql.Rows) ([]*model.ScheduleEntry, error) {
	defer rows.Close()

	var entries []*model.ScheduleEntry
	for rows.Next() {
		var (
			e      model.ScheduleEntry
			source string
		)
		err := rows.Scan(&e.ID, &e.StaffID, &e.Year, &e.Month, &e.Day,
			&e.ServiceCode, &e.ShiftCode, &e.Locked, &source, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描排班记录失败: %w", err)
		}
		e.Source = model.EntrySource(source)
		entries = append(entries, &e)
	}
	return entries, wrapError(rows.Err(), "遍历排班记录")
}

func scanStat(row Scanner) (*model.StaffMonthStat, error) {
	var (
		st     model.StaffMonthStat
		target sql.NullInt64
	)
	err := row.Scan(&st.StaffID, &st.Year, &st.Month, &target, &st.ActualMinutes, &st.DeltaMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("扫描月度统计失败: %w", err)
	}
	st.TargetMinutes = nullableInt(target)
	return &st, nil
}
