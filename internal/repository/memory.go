package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/model"
)

type periodKey struct {
	Year, Month int
}

type staffMonthKey struct {
	StaffID     int64
	Year, Month int
}

type constraintKey struct {
	StaffID          int64
	Year, Month, Day int
}

type requirementKey struct {
	Year, Month, Day   int
	Service, ShiftCode string
}

type memoryData struct {
	staff        map[int64]*model.Staff
	shifts       map[string]model.ShiftDefinition
	services     map[string]model.Service
	requirements map[requirementKey]*model.Requirement
	constraints  map[constraintKey]model.ConstraintEntry
	configs      map[periodKey]*model.MonthConfig
	adjustments  map[staffMonthKey]*model.MonthlyAdjustment
	entries      map[uuid.UUID]*model.ScheduleEntry
	stats        map[staffMonthKey]*model.StaffMonthStat
}

func newMemoryData() *memoryData {
	return &memoryData{
		staff:        make(map[int64]*model.Staff),
		shifts:       make(map[string]model.ShiftDefinition),
		services:     make(map[string]model.Service),
		requirements: make(map[requirementKey]*model.Requirement),
		constraints:  make(map[constraintKey]model.ConstraintEntry),
		configs:      make(map[periodKey]*model.MonthConfig),
		adjustments:  make(map[staffMonthKey]*model.MonthlyAdjustment),
		entries:      make(map[uuid.UUID]*model.ScheduleEntry),
		stats:        make(map[staffMonthKey]*model.StaffMonthStat),
	}
}

// clone 深拷贝，事务在副本上执行，提交时整体替换
func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.staff {
		c.staff[k] = copyStaff(v)
	}
	for k, v := range d.shifts {
		c.shifts[k] = v
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.requirements {
		r := *v
		c.requirements[k] = &r
	}
	for k, v := range d.constraints {
		c.constraints[k] = v
	}
	for k, v := range d.configs {
		cfg := *v
		c.configs[k] = &cfg
	}
	for k, v := range d.adjustments {
		a := *v
		c.adjustments[k] = &a
	}
	for k, v := range d.entries {
		e := *v
		c.entries[k] = &e
	}
	for k, v := range d.stats {
		c.stats[k] = copyStat(v)
	}
	return c
}

// MemoryStore 内存仓储，用于测试与命令行试算
type MemoryStore struct {
	mu   sync.Mutex
	txMu *sync.Mutex
	data *memoryData
	inTx bool
}

// NewMemoryStore 创建内存仓储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txMu: &sync.Mutex{}, data: newMemoryData()}
}

// WithTx 在数据副本上执行 fn，成功后替换
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &MemoryStore{txMu: s.txMu, data: s.data.clone(), inTx: true}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// ListStaff 获取全部人员，按ID升序
func (s *MemoryStore) ListStaff(ctx context.Context) ([]*model.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staff := make([]*model.Staff, 0, len(s.data.staff))
	for _, st := range s.data.staff {
		staff = append(staff, copyStaff(st))
	}
	model.SortStaffByID(staff)
	return staff, nil
}

// GetStaff 根据ID获取人员
func (s *MemoryStore) GetStaff(ctx context.Context, id int64) (*model.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.staff[id]
	if !ok {
		return nil, fmt.Errorf("人员 %d: %w", id, ErrNotFound)
	}
	return copyStaff(st), nil
}

// SaveStaff 新建或更新人员
func (s *MemoryStore) SaveStaff(ctx context.Context, st *model.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.staff[st.ID] = copyStaff(st)
	return nil
}

// UpdateBalance 更新累计工时余额
func (s *MemoryStore) UpdateBalance(ctx context.Context, staffID int64, balanceMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.staff[staffID]
	if !ok {
		return fmt.Errorf("人员 %d: %w", staffID, ErrNotFound)
	}
	st.BalanceMinutes = balanceMinutes
	return nil
}

// ListShifts 获取全部班次定义
func (s *MemoryStore) ListShifts(ctx context.Context) ([]model.ShiftDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shifts := make([]model.ShiftDefinition, 0, len(s.data.shifts))
	for _, d := range s.data.shifts {
		shifts = append(shifts, d)
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].Code < shifts[j].Code })
	return shifts, nil
}

// SaveShift 新建或更新班次定义
func (s *MemoryStore) SaveShift(ctx context.Context, d model.ShiftDefinition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.shifts[d.Code] = d
	return nil
}

// ListServices 获取全部服务
func (s *MemoryStore) ListServices(ctx context.Context) ([]model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	services := make([]model.Service, 0, len(s.data.services))
	for _, svc := range s.data.services {
		svc.Supersedes = append([]string(nil), svc.Supersedes...)
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Code < services[j].Code })
	return services, nil
}

// SaveService 新建或更新服务
func (s *MemoryStore) SaveService(ctx context.Context, svc model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc.Role == "" {
		svc.Role = model.RoleNurse
	}
	svc.Supersedes = append([]string(nil), svc.Supersedes...)
	s.data.services[svc.Code] = svc
	return nil
}

// ListRequirements 获取某月需求
func (s *MemoryStore) ListRequirements(ctx context.Context, year, month int) ([]*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reqs []*model.Requirement
	for _, r := range s.data.requirements {
		if r.Year == year && r.Month == month {
			c := *r
			reqs = append(reqs, &c)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ShiftCode < b.ShiftCode
	})
	return reqs, nil
}

// SaveRequirement 新建或更新需求人数
func (s *MemoryStore) SaveRequirement(ctx context.Context, r *model.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.data.requirements[requirementKey{r.Year, r.Month, r.Day, r.ServiceCode, r.ShiftCode}] = &c
	return nil
}

// ListConstraints 获取某月约束
func (s *MemoryStore) ListConstraints(ctx context.Context, year, month int) ([]model.ConstraintEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []model.ConstraintEntry
	for _, c := range s.data.constraints {
		if c.Year == year && c.Month == month {
			entries = append(entries, c)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].StaffID != entries[j].StaffID {
			return entries[i].StaffID < entries[j].StaffID
		}
		return entries[i].Day < entries[j].Day
	})
	return entries, nil
}

// SaveConstraint 设置人员某日约束
func (s *MemoryStore) SaveConstraint(ctx context.Context, c model.ConstraintEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.constraints[constraintKey{c.StaffID, c.Year, c.Month, c.Day}] = c
	return nil
}

// DeleteConstraint 清除人员某日约束
func (s *MemoryStore) DeleteConstraint(ctx context.Context, staffID int64, year, month, day int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.constraints, constraintKey{staffID, year, month, day})
	return nil
}

// GetMonthConfig 获取月度配置
func (s *MemoryStore) GetMonthConfig(ctx context.Context, year, month int) (*model.MonthConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.data.configs[periodKey{year, month}]
	if !ok {
		return nil, nil
	}
	c := *cfg
	return &c, nil
}

// SaveMonthConfig 新建或更新月度配置
func (s *MemoryStore) SaveMonthConfig(ctx context.Context, cfg *model.MonthConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	s.data.configs[periodKey{cfg.Year, cfg.Month}] = &c
	return nil
}

// ListAdjustments 获取某月工时调整
func (s *MemoryStore) ListAdjustments(ctx context.Context, year, month int) ([]*model.MonthlyAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var adjs []*model.MonthlyAdjustment
	for _, a := range s.data.adjustments {
		if a.Year == year && a.Month == month {
			c := *a
			adjs = append(adjs, &c)
		}
	}
	sort.Slice(adjs, func(i, j int) bool { return adjs[i].StaffID < adjs[j].StaffID })
	return adjs, nil
}

// SaveAdjustment 新建或更新工时调整
func (s *MemoryStore) SaveAdjustment(ctx context.Context, a *model.MonthlyAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.data.adjustments[staffMonthKey{a.StaffID, a.Year, a.Month}] = &c
	return nil
}

// DeleteAdjustments 删除某月工时调整
func (s *MemoryStore) DeleteAdjustments(ctx context.Context, year, month int, staffIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(staffIDs)
	for k := range s.data.adjustments {
		if k.Year == year && k.Month == month && matches(set, k.StaffID) {
			delete(s.data.adjustments, k)
		}
	}
	return nil
}

// ListEntries 获取某月全部排班记录
func (s *MemoryStore) ListEntries(ctx context.Context, year, month int) ([]*model.ScheduleEntry, error) {
	return s.filterEntries(func(e *model.ScheduleEntry) bool {
		return e.Year == year && e.Month == month
	}), nil
}

// ListStaffEntries 获取人员某月排班记录
func (s *MemoryStore) ListStaffEntries(ctx context.Context, staffID int64, year, month int) ([]*model.ScheduleEntry, error) {
	return s.filterEntries(func(e *model.ScheduleEntry) bool {
		return e.StaffID == staffID && e.Year == year && e.Month == month
	}), nil
}

func (s *MemoryStore) filterEntries(keep func(*model.ScheduleEntry) bool) []*model.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.ScheduleEntry
	for _, e := range s.data.entries {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StaffID != b.StaffID {
			return a.StaffID < b.StaffID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ServiceCode != b.ServiceCode {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ShiftCode < b.ShiftCode
	})
	return out
}

// InsertEntries 批量插入排班记录
func (s *MemoryStore) InsertEntries(ctx context.Context, entries []*model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if _, exists := s.data.entries[e.ID]; exists {
			return fmt.Errorf("插入排班记录 %s: %w", e.ID, ErrDuplicate)
		}
		c := *e
		s.data.entries[e.ID] = &c
	}
	return nil
}

// DeleteEntries 删除某月排班记录，onlyUnlocked 时保留锁定记录
func (s *MemoryStore) DeleteEntries(ctx context.Context, year, month int, staffIDs []int64, onlyUnlocked bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(staffIDs)
	n := 0
	for id, e := range s.data.entries {
		if e.Year != year || e.Month != month || !matches(set, e.StaffID) {
			continue
		}
		if onlyUnlocked && e.Locked {
			continue
		}
		delete(s.data.entries, id)
		n++
	}
	return n, nil
}

// DeleteCell 删除人员某日全部记录
func (s *MemoryStore) DeleteCell(ctx context.Context, staffID int64, year, month, day int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.data.entries {
		if e.StaffID == staffID && e.Year == year && e.Month == month && e.Day == day {
			delete(s.data.entries, id)
		}
	}
	return nil
}

// DeleteEntriesByID 按ID删除记录
func (s *MemoryStore) DeleteEntriesByID(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.data.entries, id)
	}
	return nil
}

// ListStats 获取某月统计
func (s *MemoryStore) ListStats(ctx context.Context, year, month int) ([]*model.StaffMonthStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats []*model.StaffMonthStat
	for k, st := range s.data.stats {
		if k.Year == year && k.Month == month {
			stats = append(stats, copyStat(st))
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].StaffID < stats[j].StaffID })
	return stats, nil
}

// GetStat 获取人员某月统计
func (s *MemoryStore) GetStat(ctx context.Context, staffID int64, year, month int) (*model.StaffMonthStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.stats[staffMonthKey{staffID, year, month}]
	if !ok {
		return nil, nil
	}
	return copyStat(st), nil
}

// SaveStat 新建或更新月度统计
func (s *MemoryStore) SaveStat(ctx context.Context, st *model.StaffMonthStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.stats[staffMonthKey{st.StaffID, st.Year, st.Month}] = copyStat(st)
	return nil
}

// DeleteStats 删除某月统计
func (s *MemoryStore) DeleteStats(ctx context.Context, year, month int, staffIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := idSet(staffIDs)
	for k := range s.data.stats {
		if k.Year == year && k.Month == month && matches(set, k.StaffID) {
			delete(s.data.stats, k)
		}
	}
	return nil
}

func copyStaff(st *model.Staff) *model.Staff {
	c := *st
	c.PermittedShifts = append([]string(nil), st.PermittedShifts...)
	return &c
}

func copyStat(st *model.StaffMonthStat) *model.StaffMonthStat {
	c := *st
	if st.TargetMinutes != nil {
		t := *st.TargetMinutes
		c.TargetMinutes = &t
	}
	return &c
}

var _ Store = (*MemoryStore)(nil)
