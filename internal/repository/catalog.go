package repository

import (
	"context"
	"fmt"

	"github.com/paiban/nurseshift/pkg/model"
)

// ListShifts 获取全部班次定义
func (s *SQLStore) ListShifts(ctx context.Context) ([]model.ShiftDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, label, shift_type, start_minute, end_minute
		FROM shifts ORDER BY code
	`)
	if err != nil {
		return nil, wrapError(err, "查询班次定义")
	}
	defer rows.Close()

	var shifts []model.ShiftDefinition
	for rows.Next() {
		var (
			d         model.ShiftDefinition
			shiftType string
		)
		if err := rows.Scan(&d.Code, &d.Label, &shiftType, &d.StartMinute, &d.EndMinute); err != nil {
			return nil, fmt.Errorf("扫描班次定义失败: %w", err)
		}
		d.Type = model.ShiftType(shiftType)
		shifts = append(shifts, d)
	}
	return shifts, wrapError(rows.Err(), "遍历班次定义")
}

// SaveShift 新建或更新班次定义
func (s *SQLStore) SaveShift(ctx context.Context, d model.ShiftDefinition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (code, label, shift_type, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			label = EXCLUDED.label,
			shift_type = EXCLUDED.shift_type,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, d.Code, d.Label, string(d.Type), d.StartMinute, d.EndMinute)
	return wrapError(err, "保存班次定义")
}

// ListServices 获取全部服务
func (s *SQLStore) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, role, supersedes FROM services ORDER BY code`)
	if err != nil {
		return nil, wrapError(err, "查询服务列表")
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var (
			svc        model.Service
			role       string
			supersedes string
		)
		if err := rows.Scan(&svc.Code, &svc.Name, &role, &supersedes); err != nil {
			return nil, fmt.Errorf("扫描服务失败: %w", err)
		}
		svc.Role = model.Role(role)
		if svc.Supersedes, err = decodeCodes(supersedes); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, wrapError(rows.Err(), "遍历服务列表")
}

// SaveService 新建或更新服务
func (s *SQLStore) SaveService(ctx context.Context, svc model.Service) error {
	supersedes, err := encodeCodes(svc.Supersedes)
	if err != nil {
		return fmt.Errorf("编码服务替代列表失败: %w", err)
	}
	role := svc.Role
	if role == "" {
		role = model.RoleNurse
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO services (code, name, role, supersedes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			supersedes = EXCLUDED.supersedes
	`, svc.Code, svc.Name, string(role), supersedes)
	return wrapError(err, "保存服务")
}
