// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/model"
)

// 仓储错误
var (
	ErrNotFound  = errors.New("记录不存在")
	ErrDuplicate = errors.New("记录已存在")
)

// StaffStore 人员仓储
type StaffStore interface {
	ListStaff(ctx context.Context) ([]*model.Staff, error)
	GetStaff(ctx context.Context, id int64) (*model.Staff, error)
	SaveStaff(ctx context.Context, staff *model.Staff) error
	UpdateBalance(ctx context.Context, staffID int64, balanceMinutes int) error
}

// CatalogStore 班次与服务定义
type CatalogStore interface {
	ListShifts(ctx context.Context) ([]model.ShiftDefinition, error)
	SaveShift(ctx context.Context, shift model.ShiftDefinition) error
	ListServices(ctx context.Context) ([]model.Service, error)
	SaveService(ctx context.Context, service model.Service) error
}

// PlanStore 月度需求、约束、配置与调整
type PlanStore interface {
	ListRequirements(ctx context.Context, year, month int) ([]*model.Requirement, error)
	SaveRequirement(ctx context.Context, req *model.Requirement) error

	ListConstraints(ctx context.Context, year, month int) ([]model.ConstraintEntry, error)
	SaveConstraint(ctx context.Context, entry model.ConstraintEntry) error
	DeleteConstraint(ctx context.Context, staffID int64, year, month, day int) error

	// GetMonthConfig 未配置时返回 nil, nil
	GetMonthConfig(ctx context.Context, year, month int) (*model.MonthConfig, error)
	SaveMonthConfig(ctx context.Context, cfg *model.MonthConfig) error

	ListAdjustments(ctx context.Context, year, month int) ([]*model.MonthlyAdjustment, error)
	SaveAdjustment(ctx context.Context, adj *model.MonthlyAdjustment) error
	DeleteAdjustments(ctx context.Context, year, month int, staffIDs []int64) error
}

// ScheduleStore 排班记录与月度统计
//
// staffIDs 为 nil 表示不按人员过滤，非 nil 的空切片不匹配任何记录
type ScheduleStore interface {
	ListEntries(ctx context.Context, year, month int) ([]*model.ScheduleEntry, error)
	ListStaffEntries(ctx context.Context, staffID int64, year, month int) ([]*model.ScheduleEntry, error)
	InsertEntries(ctx context.Context, entries []*model.ScheduleEntry) error
	DeleteEntries(ctx context.Context, year, month int, staffIDs []int64, onlyUnlocked bool) (int, error)
	DeleteCell(ctx context.Context, staffID int64, year, month, day int) error
	DeleteEntriesByID(ctx context.Context, ids []uuid.UUID) error

	ListStats(ctx context.Context, year, month int) ([]*model.StaffMonthStat, error)
	// GetStat 无记录时返回 nil, nil
	GetStat(ctx context.Context, staffID int64, year, month int) (*model.StaffMonthStat, error)
	SaveStat(ctx context.Context, stat *model.StaffMonthStat) error
	DeleteStats(ctx context.Context, year, month int, staffIDs []int64) error
}

// Store 全部仓储
type Store interface {
	StaffStore
	CatalogStore
	PlanStore
	ScheduleStore

	// WithTx 在同一事务中执行 fn，fn 返回错误时全部回滚
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx 事务接口
type Tx interface {
	DB
	Commit() error
	Rollback() error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

func idSet(ids []int64) map[int64]bool {
	if ids == nil {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// matches nil 集合匹配全部人员
func matches(set map[int64]bool, id int64) bool {
	return set == nil || set[id]
}
