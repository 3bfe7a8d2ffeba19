package database

import (
	"context"
	"fmt"
	"strings"
)

// schema 同时兼容 PostgreSQL 与 SQLite 的建表语句
// 生产环境的版本化迁移由部署流程负责，这里用于开发库与测试库
var schema = []string{
	`CREATE TABLE IF NOT EXISTS staff (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		permitted_shifts TEXT NOT NULL DEFAULT '',
		night_eligible BOOLEAN NOT NULL DEFAULT FALSE,
		max_nights_per_month INTEGER NOT NULL DEFAULT 0,
		weekly_hours INTEGER NOT NULL DEFAULT 0,
		balance_minutes INTEGER NOT NULL DEFAULT 0,
		display_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		shift_type TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'nurse',
		supersedes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS requirements (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		service_code TEXT NOT NULL,
		shift_code TEXT NOT NULL,
		required INTEGER NOT NULL,
		PRIMARY KEY (year, month, day, service_code, shift_code)
	)`,
	`CREATE TABLE IF NOT EXISTS constraint_entries (
		staff_id BIGINT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		code TEXT NOT NULL,
		PRIMARY KEY (staff_id, year, month, day)
	)`,
	`CREATE TABLE IF NOT EXISTS month_configs (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		max_hours_week_contracted INTEGER NOT NULL,
		target_hours_week INTEGER NOT NULL,
		requests_hard BOOLEAN NOT NULL,
		rest_after_night_rest BOOLEAN NOT NULL,
		min_rest_hours INTEGER NOT NULL,
		penalties TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (year, month)
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_entries (
		id TEXT PRIMARY KEY,
		staff_id BIGINT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		service_code TEXT NOT NULL,
		shift_code TEXT NOT NULL,
		locked BOOLEAN NOT NULL DEFAULT FALSE,
		source TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_entries_month
		ON schedule_entries (year, month, staff_id, day)`,
	`CREATE TABLE IF NOT EXISTS monthly_adjustments (
		staff_id BIGINT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		extra_minutes INTEGER NOT NULL DEFAULT 0,
		reduced_minutes INTEGER NOT NULL DEFAULT 0,
		holidays_worked INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (staff_id, year, month)
	)`,
	`CREATE TABLE IF NOT EXISTS staff_month_stats (
		staff_id BIGINT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		target_minutes INTEGER,
		actual_minutes INTEGER NOT NULL,
		delta_minutes INTEGER NOT NULL,
		PRIMARY KEY (staff_id, year, month)
	)`,
}

// Migrate 创建缺失的表
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("建表失败 (%s): %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
