// Package catalog 班次目录快照
//
// 每次排班运行开始时从持久化的班次定义构建一次，之后只读，
// 通过参数传递给各组件，不存在进程级共享状态。
package catalog

import (
	"fmt"
	"sort"

	"github.com/paiban/nurseshift/pkg/model"
)

// Snapshot 不可变的班次与服务目录
type Snapshot struct {
	shifts   map[string]model.ShiftDefinition
	services map[string]model.Service
	codes    []string
}

// New 构建快照，班次代码重复或定义非法时返回错误
func New(shifts []model.ShiftDefinition, services []model.Service) (*Snapshot, error) {
	s := &Snapshot{
		shifts:   make(map[string]model.ShiftDefinition, len(shifts)),
		services: make(map[string]model.Service, len(services)),
	}
	for _, def := range shifts {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.shifts[def.Code]; dup {
			return nil, fmt.Errorf("duplicate shift code %s", def.Code)
		}
		s.shifts[def.Code] = def
		s.codes = append(s.codes, def.Code)
	}
	sort.Strings(s.codes)
	for _, svc := range services {
		s.services[svc.Code] = svc
	}
	return s, nil
}

// MustNew 构建快照，失败时 panic（用于测试与内置数据）
func MustNew(shifts []model.ShiftDefinition, services []model.Service) *Snapshot {
	s, err := New(shifts, services)
	if err != nil {
		panic(err)
	}
	return s
}

// Shift 查找班次定义
func (s *Snapshot) Shift(code string) (model.ShiftDefinition, bool) {
	def, ok := s.shifts[code]
	return def, ok
}

// Known 班次代码是否存在
func (s *Snapshot) Known(code string) bool {
	_, ok := s.shifts[code]
	return ok
}

// Type 班次类别，未知代码返回空
func (s *Snapshot) Type(code string) model.ShiftType {
	return s.shifts[code].Type
}

// Minutes 班次时长，未知代码返回 0
func (s *Snapshot) Minutes(code string) int {
	def, ok := s.shifts[code]
	if !ok {
		return 0
	}
	return def.DurationMinutes()
}

// IsNight 是否夜班
func (s *Snapshot) IsNight(code string) bool {
	return s.shifts[code].Type == model.ShiftNight
}

// Codes 全部班次代码（已排序）
func (s *Snapshot) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Len 班次数量
func (s *Snapshot) Len() int { return len(s.shifts) }

// Service 查找服务
func (s *Snapshot) Service(code string) (model.Service, bool) {
	svc, ok := s.services[code]
	return svc, ok
}

// ServiceRole 服务所属角色，未登记的服务归入护理组
func (s *Snapshot) ServiceRole(code string) model.Role {
	if svc, ok := s.services[code]; ok && svc.Role != "" {
		return svc.Role
	}
	return model.RoleNurse
}

// Supersedes 服务当天有长班需求时被取代的服务
func (s *Snapshot) Supersedes(code string) []string {
	return s.services[code].Supersedes
}

// EntryMinutes 排班记录计入工时的分钟数，休息与未知班次为 0
func (s *Snapshot) EntryMinutes(e *model.ScheduleEntry) int {
	if e.IsRest() {
		return 0
	}
	return s.Minutes(e.ShiftCode)
}

// RestMinutes 相邻两日班次间的休息分钟数，任一班次未知时视为 1440
func (s *Snapshot) RestMinutes(prevCode, nextCode string) int {
	prev, ok1 := s.shifts[prevCode]
	next, ok2 := s.shifts[nextCode]
	if !ok1 || !ok2 {
		return model.MinutesPerDay
	}
	return model.RestMinutesBetween(prev, next)
}
