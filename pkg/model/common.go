// Package model 定义排班引擎的核心数据模型
package model

import "fmt"

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// StaffDay 人员+日期键
type StaffDay struct {
	StaffID int64
	Day     int
}

// Period 排班月份
type Period struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// String 返回 YYYY-MM
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Valid 检查月份是否合法
func (p Period) Valid() bool {
	return p.Year >= 2000 && p.Year <= 2100 && p.Month >= 1 && p.Month <= 12
}
