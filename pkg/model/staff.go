package model

import (
	"fmt"
	"sort"
	"strings"
)

// Category 人员类别
type Category string

const (
	CategoryCoordinator          Category = "COORDINATOR"           // 协调员（不参与自动排班）
	CategoryContracted           Category = "CONTRACTED"            // 全职合同
	CategoryContractedPartTime   Category = "CONTRACTED_PART_TIME"  // 兼职合同
	CategoryFlexFullTime         Category = "FLEX_FULL_TIME"        // 全职弹性
	CategoryFlexPartTime         Category = "FLEX_PART_TIME"        // 兼职弹性
	CategoryOperationalAssistant Category = "OPERATIONAL_ASSISTANT" // 运营助理
)

var categoryOrder = map[Category]int{
	CategoryCoordinator:          0,
	CategoryContracted:           1,
	CategoryContractedPartTime:   2,
	CategoryFlexFullTime:         3,
	CategoryFlexPartTime:         4,
	CategoryOperationalAssistant: 5,
}

// Categories 按固定顺序返回全部类别
func Categories() []Category {
	return []Category{
		CategoryCoordinator,
		CategoryContracted,
		CategoryContractedPartTime,
		CategoryFlexFullTime,
		CategoryFlexPartTime,
		CategoryOperationalAssistant,
	}
}

// Valid 检查类别是否合法
func (c Category) Valid() bool {
	_, ok := categoryOrder[c]
	return ok
}

// Order 返回类别排序序号
func (c Category) Order() int {
	if o, ok := categoryOrder[c]; ok {
		return o
	}
	return len(categoryOrder)
}

// IsPartTime 兼职类别（无显式可用声明时默认不可用）
func (c Category) IsPartTime() bool {
	return c == CategoryContractedPartTime || c == CategoryFlexPartTime
}

// IsContracted 合同类别
func (c Category) IsContracted() bool {
	return c == CategoryContracted || c == CategoryContractedPartTime
}

// Role 返回类别所属的角色组
func (c Category) Role() Role {
	if c == CategoryOperationalAssistant {
		return RoleAssistant
	}
	return RoleNurse
}

// Role 角色组
type Role string

const (
	RoleNurse     Role = "nurse"     // 护理
	RoleAssistant Role = "assistant" // 运营助理
)

// ParseGroup 解析分组过滤参数，空字符串表示不过滤
func ParseGroup(group string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(group)) {
	case "":
		return "", nil
	case "ao", "assistant", "operational_assistant":
		return RoleAssistant, nil
	case "enf", "nurse", "nursing":
		return RoleNurse, nil
	default:
		return "", fmt.Errorf("unknown group %q", group)
	}
}

// Staff 人员
type Staff struct {
	ID                int64    `json:"id" db:"id"`
	Name              string   `json:"name" db:"name"`
	Category          Category `json:"category" db:"category"`
	PermittedShifts   []string `json:"permitted_shifts,omitempty" db:"permitted_shifts"`
	NightEligible     bool     `json:"night_eligible" db:"night_eligible"`
	MaxNightsPerMonth int      `json:"max_nights_per_month,omitempty" db:"max_nights_per_month"` // 0 表示不限
	WeeklyHours       int      `json:"weekly_hours" db:"weekly_hours"`
	BalanceMinutes    int      `json:"balance_minutes" db:"balance_minutes"`
	DisplayOrder      int      `json:"display_order" db:"display_order"`
}

// Permits 检查是否允许该班次代码（列表为空时全部允许）
func (s *Staff) Permits(shiftCode string) bool {
	if len(s.PermittedShifts) == 0 {
		return true
	}
	for _, code := range s.PermittedShifts {
		if code == shiftCode {
			return true
		}
	}
	return false
}

// AllowsDoubleShift 同日两个班次的类别组合是否允许
// 合同类与运营助理只允许早班+午班组合
func (s *Staff) AllowsDoubleShift(a, b ShiftType) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	if s.Category == CategoryOperationalAssistant || s.Category.IsContracted() {
		return (a == ShiftMorning && b == ShiftAfternoon) || (a == ShiftAfternoon && b == ShiftMorning)
	}
	return true
}

// SortStaffByID 按ID升序排序
func SortStaffByID(staff []*Staff) {
	sort.Slice(staff, func(i, j int) bool { return staff[i].ID < staff[j].ID })
}

// SortStaffForDisplay 按类别、显示顺序、姓名排序
func SortStaffForDisplay(staff []*Staff) {
	sort.SliceStable(staff, func(i, j int) bool {
		a, b := staff[i], staff[j]
		if a.Category.Order() != b.Category.Order() {
			return a.Category.Order() < b.Category.Order()
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Name < b.Name
	})
}
