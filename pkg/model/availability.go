package model

import "strings"

// 约束代码词汇表
const (
	CodeVacation       = "VACATION"
	CodeLeave          = "LEAVE"
	CodeHoliday        = "HOLIDAY"
	CodeAvailable      = "AVAILABLE"
	CodeUnavailable    = "UNAVAILABLE"
	CodeHolidayWorked  = "HOLIDAY_WORKED" // 旧数据：节假日上班
	CodeRequestOff     = "REQUEST_OFF"
	CodeRequestRest    = "REQUEST_REST"
	CodeRequestRestOff = "REQUEST_REST_OFF"
)

// AvailabilityKind 约束种类
type AvailabilityKind int

const (
	AvailabilityDefault        AvailabilityKind = iota // 未填写，按类别解析
	AvailabilityBlocking                               // 休假/请假/节假日
	AvailabilityAvailableFor                           // 仅可上指定类别
	AvailabilityUnavailableFor                         // 不可上指定类别
	AvailabilityRequestOff                             // 休息申请
	AvailabilityUnrecognized                           // 未识别代码
)

// String 返回种类名称
func (k AvailabilityKind) String() string {
	switch k {
	case AvailabilityDefault:
		return "default"
	case AvailabilityBlocking:
		return "blocking"
	case AvailabilityAvailableFor:
		return "available_for"
	case AvailabilityUnavailableFor:
		return "unavailable_for"
	case AvailabilityRequestOff:
		return "request_off"
	default:
		return "unrecognized"
	}
}

// Availability 解析后的可用性约束
type Availability struct {
	Kind  AvailabilityKind `json:"kind"`
	Types ShiftTypeSet     `json:"types,omitempty"`
	Code  string           `json:"code,omitempty"`
}

// ParseAvailability 在录入时一次性解析约束代码
func ParseAvailability(code string) Availability {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch code {
	case "":
		return Availability{Kind: AvailabilityDefault}
	case CodeVacation, CodeLeave, CodeHoliday:
		return Availability{Kind: AvailabilityBlocking, Code: code}
	case CodeAvailable, CodeHolidayWorked:
		return Availability{Kind: AvailabilityAvailableFor, Types: AllShiftTypes, Code: code}
	case CodeUnavailable:
		return Availability{Kind: AvailabilityUnavailableFor, Types: AllShiftTypes, Code: code}
	case CodeRequestOff, CodeRequestRest, CodeRequestRestOff:
		return Availability{Kind: AvailabilityRequestOff, Code: code}
	}
	if letters, ok := strings.CutPrefix(code, CodeAvailable+"_"); ok {
		return Availability{Kind: AvailabilityAvailableFor, Types: ParseShiftTypeSet(letters), Code: code}
	}
	if letters, ok := strings.CutPrefix(code, CodeUnavailable+"_"); ok {
		return Availability{Kind: AvailabilityUnavailableFor, Types: ParseShiftTypeSet(letters), Code: code}
	}
	return Availability{Kind: AvailabilityUnrecognized, Code: code}
}

// ResolveAvailability 空约束按人员类别解析：
// 兼职默认全部不可用，协调员默认不可用，其余默认全部可用
func ResolveAvailability(a Availability, c Category) Availability {
	if a.Kind != AvailabilityDefault {
		return a
	}
	switch {
	case c.IsPartTime():
		return Availability{Kind: AvailabilityUnavailableFor, Types: AllShiftTypes, Code: CodeUnavailable + "_MTLN"}
	case c == CategoryCoordinator:
		return Availability{Kind: AvailabilityUnavailableFor, Types: AllShiftTypes, Code: CodeUnavailable}
	default:
		return Availability{Kind: AvailabilityAvailableFor, Types: AllShiftTypes, Code: CodeAvailable + "_MTLN"}
	}
}

// Allows 显式允许该类别
func (a Availability) Allows(t ShiftType) bool {
	return a.Kind == AvailabilityAvailableFor && a.Types.Has(t)
}

// Forbids 显式禁止该类别
func (a Availability) Forbids(t ShiftType) bool {
	return a.Kind == AvailabilityUnavailableFor && a.Types.Has(t)
}

// IsBlocking 整天阻断
func (a Availability) IsBlocking() bool { return a.Kind == AvailabilityBlocking }

// IsRequest 休息申请
func (a Availability) IsRequest() bool { return a.Kind == AvailabilityRequestOff }

// IsVacation 休假
func (a Availability) IsVacation() bool { return a.Code == CodeVacation }

// IsHolidayWorked 旧数据节假日上班标记
func (a Availability) IsHolidayWorked() bool { return a.Code == CodeHolidayWorked }

// ConstraintEntry 人员某日的约束记录
type ConstraintEntry struct {
	StaffID int64  `json:"staff_id" db:"staff_id"`
	Year    int    `json:"year" db:"year"`
	Month   int    `json:"month" db:"month"`
	Day     int    `json:"day" db:"day"`
	Code    string `json:"code" db:"code"`
}

// AvailabilityMap 按人员+日期索引的已解析约束
type AvailabilityMap map[StaffDay]Availability

// NewAvailabilityMap 解析约束记录
func NewAvailabilityMap(entries []ConstraintEntry) AvailabilityMap {
	m := make(AvailabilityMap, len(entries))
	for _, e := range entries {
		m[StaffDay{StaffID: e.StaffID, Day: e.Day}] = ParseAvailability(e.Code)
	}
	return m
}

// Get 获取约束，缺失时返回 Default
func (m AvailabilityMap) Get(staffID int64, day int) Availability {
	if a, ok := m[StaffDay{StaffID: staffID, Day: day}]; ok {
		return a
	}
	return Availability{Kind: AvailabilityDefault}
}
