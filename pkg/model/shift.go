package model

import (
	"fmt"
	"strings"
)

// ShiftType 班次类别
type ShiftType string

const (
	ShiftMorning   ShiftType = "M" // 早班
	ShiftAfternoon ShiftType = "T" // 午班
	ShiftNight     ShiftType = "N" // 夜班
	ShiftLong      ShiftType = "L" // 长班
)

// 休息占位记录
const (
	RestServiceCode = "REST"
	RestShiftCode   = "D"
)

// ParseShiftType 解析班次类别（取首字母）
func ParseShiftType(s string) (ShiftType, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	switch t := ShiftType(strings.ToUpper(s[:1])); t {
	case ShiftMorning, ShiftAfternoon, ShiftNight, ShiftLong:
		return t, true
	}
	return "", false
}

// ShiftTypeSet 班次类别集合
type ShiftTypeSet uint8

const (
	setMorning ShiftTypeSet = 1 << iota
	setAfternoon
	setLong
	setNight
)

// AllShiftTypes 全部类别
const AllShiftTypes = setMorning | setAfternoon | setLong | setNight

func typeBit(t ShiftType) ShiftTypeSet {
	switch t {
	case ShiftMorning:
		return setMorning
	case ShiftAfternoon:
		return setAfternoon
	case ShiftLong:
		return setLong
	case ShiftNight:
		return setNight
	}
	return 0
}

// NewShiftTypeSet 创建类别集合
func NewShiftTypeSet(types ...ShiftType) ShiftTypeSet {
	var s ShiftTypeSet
	for _, t := range types {
		s |= typeBit(t)
	}
	return s
}

// ParseShiftTypeSet 从字母串解析集合，如 "MT"、"MTLN"；未知字母忽略
func ParseShiftTypeSet(letters string) ShiftTypeSet {
	var s ShiftTypeSet
	for _, r := range strings.ToUpper(letters) {
		s |= typeBit(ShiftType(string(r)))
	}
	return s
}

// Has 是否包含类别
func (s ShiftTypeSet) Has(t ShiftType) bool {
	bit := typeBit(t)
	return bit != 0 && s&bit != 0
}

// String 返回 MTLN 顺序的字母串
func (s ShiftTypeSet) String() string {
	var b strings.Builder
	for _, t := range []ShiftType{ShiftMorning, ShiftAfternoon, ShiftLong, ShiftNight} {
		if s.Has(t) {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// ShiftDefinition 班次定义
type ShiftDefinition struct {
	Code        string    `json:"code" db:"code"`
	Label       string    `json:"label,omitempty" db:"label"`
	Type        ShiftType `json:"shift_type" db:"shift_type"`
	StartMinute int       `json:"start_minute" db:"start_minute"` // 当日分钟
	EndMinute   int       `json:"end_minute" db:"end_minute"`     // 小于开始时间表示跨日
}

// DurationMinutes 班次时长（分钟）
func (d ShiftDefinition) DurationMinutes() int {
	if d.EndMinute > d.StartMinute {
		return d.EndMinute - d.StartMinute
	}
	return MinutesPerDay - d.StartMinute + d.EndMinute
}

// IsNight 检查是否为夜班
func (d ShiftDefinition) IsNight() bool {
	return d.Type == ShiftNight
}

// Validate 校验班次定义
func (d ShiftDefinition) Validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return fmt.Errorf("shift code is empty")
	}
	if _, ok := ParseShiftType(string(d.Type)); !ok {
		return fmt.Errorf("shift %s: unknown type %q", d.Code, d.Type)
	}
	if d.StartMinute < 0 || d.StartMinute >= MinutesPerDay {
		return fmt.Errorf("shift %s: start minute %d out of range", d.Code, d.StartMinute)
	}
	if d.EndMinute < 0 || d.EndMinute > 2*MinutesPerDay {
		return fmt.Errorf("shift %s: end minute %d out of range", d.Code, d.EndMinute)
	}
	return nil
}

// intervals 将跨日班次拆成当日区间
func (d ShiftDefinition) intervals() [][2]int {
	if d.EndMinute > d.StartMinute {
		return [][2]int{{d.StartMinute, d.EndMinute}}
	}
	return [][2]int{{d.StartMinute, MinutesPerDay}, {0, d.EndMinute}}
}

// Overlaps 检查两个班次时间是否重叠
func (d ShiftDefinition) Overlaps(other ShiftDefinition) bool {
	for _, a := range d.intervals() {
		for _, b := range other.intervals() {
			if a[0] < b[1] && b[0] < a[1] {
				return true
			}
		}
	}
	return false
}

// RestMinutesBetween 前一日班次结束到次日班次开始的休息分钟数
func RestMinutesBetween(prev, next ShiftDefinition) int {
	endMod := prev.EndMinute % MinutesPerDay
	toMidnight := (MinutesPerDay - endMod) % MinutesPerDay
	return toMidnight + next.StartMinute%MinutesPerDay
}

// Service 服务（科室）
type Service struct {
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`
	Role Role   `json:"role" db:"role"`
	// Supersedes 当本服务当天有长班需求时被取代的拆分服务
	Supersedes []string `json:"supersedes,omitempty" db:"supersedes"`
}
