package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PenaltyWeights 软约束权重
type PenaltyWeights struct {
	Unfilled           int `json:"unfilled" yaml:"unfilled" validate:"min=0"`
	Request            int `json:"pedido" yaml:"pedido" validate:"min=0"`
	HoursTarget        int `json:"hours_target" yaml:"hours_target" validate:"min=0"`
	BankBalance        int `json:"bank_balance" yaml:"bank_balance" validate:"min=0"`
	NightSequence      int `json:"night_sequence" yaml:"night_sequence" validate:"min=0"`
	RestFollowup       int `json:"rest_followup" yaml:"rest_followup" validate:"min=0"`
	ShiftBalance       int `json:"shift_balance" yaml:"shift_balance" validate:"min=0"`
	DoubleShiftService int `json:"double_shift_service" yaml:"double_shift_service" validate:"min=0"`
}

// DefaultPenaltyWeights 默认权重
func DefaultPenaltyWeights() PenaltyWeights {
	return PenaltyWeights{
		Unfilled:           5000,
		Request:            300,
		HoursTarget:        5,
		BankBalance:        50,
		NightSequence:      100,
		RestFollowup:       40,
		ShiftBalance:       2,
		DoubleShiftService: 4,
	}
}

// MergeMap 用 map 中存在的键覆盖权重，未知键返回错误
func (w PenaltyWeights) MergeMap(m map[string]int) (PenaltyWeights, error) {
	for k, v := range m {
		if v < 0 {
			return w, fmt.Errorf("penalty %s: negative weight %d", k, v)
		}
		switch k {
		case "unfilled":
			w.Unfilled = v
		case "pedido", "request":
			w.Request = v
		case "hours_target":
			w.HoursTarget = v
		case "bank_balance":
			w.BankBalance = v
		case "night_sequence":
			w.NightSequence = v
		case "rest_followup":
			w.RestFollowup = v
		case "shift_balance":
			w.ShiftBalance = v
		case "double_shift_service":
			w.DoubleShiftService = v
		default:
			return w, fmt.Errorf("unknown penalty key %q", k)
		}
	}
	return w, nil
}

// Value 以 JSON 文本形式持久化
func (w PenaltyWeights) Value() (driver.Value, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 从 JSON 文本解析，缺失键保持默认值
func (w *PenaltyWeights) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan penalties: unsupported type %T", src)
	}
	if len(data) == 0 {
		*w = DefaultPenaltyWeights()
		return nil
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse penalties: %w", err)
	}
	merged, err := DefaultPenaltyWeights().MergeMap(m)
	if err != nil {
		return err
	}
	*w = merged
	return nil
}

// MonthConfig 月度配置
type MonthConfig struct {
	Year                   int            `json:"year" db:"year" validate:"min=2000,max=2100"`
	Month                  int            `json:"month" db:"month" validate:"min=1,max=12"`
	MaxHoursWeekContracted int            `json:"max_hours_week_contracted" db:"max_hours_week_contracted" validate:"min=0"`
	TargetHoursWeek        int            `json:"target_hours_week" db:"target_hours_week" validate:"min=0"`
	RequestsHard           bool           `json:"requests_hard" db:"requests_hard"`
	RestAfterNightRest     bool           `json:"rest_after_night_rest" db:"rest_after_night_rest"`
	MinRestHours           int            `json:"min_rest_hours" db:"min_rest_hours" validate:"min=0,max=24"`
	Penalties              PenaltyWeights `json:"penalties" db:"penalties"`
}

// DefaultMonthConfig 无配置记录时使用的默认值
func DefaultMonthConfig(year, month int) *MonthConfig {
	return &MonthConfig{
		Year:                   year,
		Month:                  month,
		MaxHoursWeekContracted: 52,
		TargetHoursWeek:        40,
		RequestsHard:           true,
		RestAfterNightRest:     false,
		MinRestHours:           11,
		Penalties:              DefaultPenaltyWeights(),
	}
}

// MinRestMinutes 最小休息分钟数
func (c *MonthConfig) MinRestMinutes() int {
	return c.MinRestHours * 60
}

// Period 返回配置月份
func (c *MonthConfig) Period() Period {
	return Period{Year: c.Year, Month: c.Month}
}

// DaysInMonth 返回某月天数
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Date 返回某月某日（UTC）
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ISOWeek 返回 ISO 周键，如 2025-W03
func ISOWeek(year, month, day int) string {
	y, w := Date(year, month, day).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}
