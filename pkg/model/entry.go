package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntrySource 排班记录来源
type EntrySource string

const (
	SourceManual   EntrySource = "manual"    // 手工录入（锁定）
	SourceAuto     EntrySource = "auto"      // 自动生成
	SourceAutoRest EntrySource = "auto_rest" // 夜班后自动休息
)

// ScheduleEntry 排班记录
type ScheduleEntry struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	StaffID     int64       `json:"staff_id" db:"staff_id"`
	Year        int         `json:"year" db:"year"`
	Month       int         `json:"month" db:"month"`
	Day         int         `json:"day" db:"day"`
	ServiceCode string      `json:"service_code" db:"service_code"`
	ShiftCode   string      `json:"shift_code" db:"shift_code"`
	Locked      bool        `json:"locked" db:"locked"`
	Source      EntrySource `json:"source" db:"source"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// NewScheduleEntry 创建未锁定的排班记录
func NewScheduleEntry(staffID int64, year, month, day int, service, shift string, source EntrySource) *ScheduleEntry {
	return &ScheduleEntry{
		ID:          uuid.New(),
		StaffID:     staffID,
		Year:        year,
		Month:       month,
		Day:         day,
		ServiceCode: service,
		ShiftCode:   shift,
		Source:      source,
		CreatedAt:   time.Now(),
	}
}

// IsRest 是否为休息占位
func (e *ScheduleEntry) IsRest() bool {
	return e.ServiceCode == RestServiceCode
}

// Key 人员+日期键
func (e *ScheduleEntry) Key() StaffDay {
	return StaffDay{StaffID: e.StaffID, Day: e.Day}
}

// Requirement 某日某服务某班次的需求人数
type Requirement struct {
	Year        int    `json:"year" db:"year"`
	Month       int    `json:"month" db:"month"`
	Day         int    `json:"day" db:"day"`
	ServiceCode string `json:"service_code" db:"service_code"`
	ShiftCode   string `json:"shift_code" db:"shift_code"`
	Required    int    `json:"required" db:"required"`
}

// UnfilledSlot 未填补的需求
type UnfilledSlot struct {
	Day         int    `json:"day"`
	ServiceCode string `json:"service_code"`
	ShiftCode   string `json:"shift_code"`
	Reason      string `json:"reason"`
}

// Message 返回面向用户的描述
func (u UnfilledSlot) Message() string {
	return fmt.Sprintf("Day %d %s/%s: %s", u.Day, u.ServiceCode, u.ShiftCode, u.Reason)
}
