package builder

import (
	"testing"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint/builtin"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
	"github.com/paiban/nurseshift/pkg/scheduler/slots"
)

func testCatalog() *catalog.Snapshot {
	return catalog.MustNew([]model.ShiftDefinition{
		{Code: "M1", Type: model.ShiftMorning, StartMinute: 480, EndMinute: 900},
		{Code: "T1", Type: model.ShiftAfternoon, StartMinute: 900, EndMinute: 1320},
		{Code: "N1", Type: model.ShiftNight, StartMinute: 1320, EndMinute: 480},
		{Code: "L1", Type: model.ShiftLong, StartMinute: 480, EndMinute: 1200},
	}, []model.Service{
		{Code: "SAP", Name: "SAP", Role: model.RoleNurse},
		{Code: "UCI", Name: "UCI", Role: model.RoleNurse},
	})
}

type fixture struct {
	cfg         *model.MonthConfig
	staff       []*model.Staff
	reqs        []*model.Requirement
	locked      []*model.ScheduleEntry
	constraints []model.ConstraintEntry
}

func newFixture(staff ...*model.Staff) *fixture {
	return &fixture{cfg: model.DefaultMonthConfig(2025, 1), staff: staff}
}

func (f *fixture) require(day int, svc, shift string, n int) *fixture {
	f.reqs = append(f.reqs, &model.Requirement{Year: 2025, Month: 1, Day: day, ServiceCode: svc, ShiftCode: shift, Required: n})
	return f
}

func (f *fixture) lock(staffID int64, day int, shift string) *fixture {
	e := model.NewScheduleEntry(staffID, 2025, 1, day, "SAP", shift, model.SourceManual)
	e.Locked = true
	f.locked = append(f.locked, e)
	return f
}

func (f *fixture) constrain(staffID int64, day int, code string) *fixture {
	f.constraints = append(f.constraints, model.ConstraintEntry{StaffID: staffID, Year: 2025, Month: 1, Day: day, Code: code})
	return f
}

func (f *fixture) build(t *testing.T) *Built {
	t.Helper()
	snap := testCatalog()
	locked := slots.NewLockedIndex(snap, 2025, 1, f.locked)
	built, err := Build(&Input{
		Year:      2025,
		Month:     1,
		Catalog:   snap,
		Config:    f.cfg,
		Staff:     f.staff,
		Expansion: slots.Expand(snap, 2025, 1, f.reqs, locked),
		Locked:    locked,
		Manager:   builtin.NewDefaultManager(f.cfg),
		Context:   constraint.NewContext(snap, f.cfg, model.NewAvailabilityMap(f.constraints), f.locked),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return built
}

// assign 按 班位→人员 指派并返回评估状态
func assign(t *testing.T, b *Built, picks map[int]int64) *cpmodel.State {
	t.Helper()
	st := b.Model.Compile().NewState(nil)
	for idx, staffID := range picks {
		sv := b.Slots[idx]
		if sv == nil {
			t.Fatalf("班位 %d 没有候选人", idx)
		}
		found := false
		for _, c := range sv.Candidates {
			if c.StaffID == staffID {
				st.Apply(st.Reassign(b.Model.GroupOf(c.Var), c.Var))
				found = true
			}
		}
		if !found {
			t.Fatalf("人员 %d 不是班位 %d 的候选人", staffID, idx)
		}
	}
	return st
}

func flex(id int64) *model.Staff {
	return &model.Staff{ID: id, Name: "flex", Category: model.CategoryFlexFullTime, NightEligible: true, WeeklyHours: 40}
}

func contracted(id int64) *model.Staff {
	return &model.Staff{ID: id, Name: "contracted", Category: model.CategoryContracted, NightEligible: true, WeeklyHours: 40}
}

func TestBuild_InputValidation(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Error("nil 输入应返回错误")
	}
	if _, err := Build(&Input{Year: 2025, Month: 1}); err == nil {
		t.Error("缺少目录应返回错误")
	}
}

func TestBuild_Candidates(t *testing.T) {
	b := newFixture(contracted(1), contracted(2)).
		require(1, "SAP", "M1", 1).
		constrain(1, 1, "VACATION").
		build(t)

	if len(b.Immediate) != 0 {
		t.Fatalf("Immediate = %v, expected none", b.Immediate)
	}
	sv := b.Slots[0]
	if sv == nil || len(sv.Candidates) != 1 || sv.Candidates[0].StaffID != 2 {
		t.Fatalf("候选人应只有 2, got %+v", sv)
	}
	if r, _ := b.TopReason(0); r != "constraint VACATION" {
		t.Errorf("TopReason() = %q", r)
	}
	if got := b.UnfilledReason(0); got != "insufficient eligible staff (constraint VACATION)" {
		t.Errorf("UnfilledReason() = %q", got)
	}

	// 默认取值为未填补
	st := b.Model.Compile().NewState(nil)
	if !st.Values()[sv.Unfilled] {
		t.Error("未填补变量应为初始真值")
	}
}

func TestBuild_ImmediateUnfilled(t *testing.T) {
	coord := &model.Staff{ID: 9, Category: model.CategoryCoordinator}

	tests := []struct {
		name     string
		fixture  *fixture
		expected string
	}{
		{"全部休假", newFixture(contracted(1)).require(1, "SAP", "M1", 1).constrain(1, 1, "VACATION"),
			"no eligible staff (constraint VACATION)"},
		{"只有协调员", newFixture(coord).require(1, "SAP", "M1", 1),
			"no eligible staff (coordinator outside solver)"},
		{"没有人员", newFixture().require(1, "SAP", "M1", 1),
			"no eligible staff (hard constraints)"},
		{"休息申请为硬规则", newFixture(contracted(1)).require(1, "SAP", "M1", 1).constrain(1, 1, "REQUEST_OFF"),
			"no eligible staff (day-off request)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.fixture.build(t)
			if len(b.Immediate) != 1 {
				t.Fatalf("Immediate = %v, expected 1", b.Immediate)
			}
			if b.Immediate[0].Reason != tt.expected {
				t.Errorf("reason = %q, expected %q", b.Immediate[0].Reason, tt.expected)
			}
			if b.Slots[0] != nil {
				t.Error("无候选班位不应创建变量")
			}
		})
	}
}

func TestBuild_SoftRequest(t *testing.T) {
	f := newFixture(contracted(1)).require(1, "SAP", "M1", 1).constrain(1, 1, "REQUEST_OFF")
	f.cfg.RequestsHard = false
	b := f.build(t)

	if len(b.Immediate) != 0 || b.Slots[0] == nil {
		t.Fatalf("软申请应保留候选人")
	}
	if !b.Slots[0].Candidates[0].Request {
		t.Error("候选人应标记为违反申请")
	}
}

func TestBuild_HardRules(t *testing.T) {
	tests := []struct {
		name     string
		fixture  func() *fixture
		picks    map[int]int64
		violated bool
	}{
		{
			name:    "夜班次日不可上班",
			fixture: func() *fixture { return newFixture(flex(1)).require(1, "SAP", "N1", 1).require(2, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1, 1: 1}, violated: true,
		},
		{
			name:    "仅夜班",
			fixture: func() *fixture { return newFixture(flex(1)).require(1, "SAP", "N1", 1).require(2, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1}, violated: false,
		},
		{
			name:    "锁定夜班次日不可上班",
			fixture: func() *fixture { return newFixture(flex(1)).lock(1, 1, "N1").require(2, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1}, violated: true,
		},
		{
			name:    "夜班次日已锁定早班",
			fixture: func() *fixture { return newFixture(contracted(1)).lock(1, 2, "M1").require(1, "SAP", "N1", 1) },
			picks:   map[int]int64{0: 1}, violated: true,
		},
		{
			name:    "锁定午班后次日早班休息不足",
			fixture: func() *fixture { return newFixture(flex(1)).lock(1, 1, "T1").require(2, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1}, violated: true,
		},
		{
			name:    "午班次日已锁定早班",
			fixture: func() *fixture { return newFixture(flex(1)).lock(1, 2, "M1").require(1, "SAP", "T1", 1) },
			picks:   map[int]int64{0: 1}, violated: true,
		},
		{
			name:    "早班次日已锁定早班",
			fixture: func() *fixture { return newFixture(flex(1)).lock(1, 2, "M1").require(1, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1}, violated: false,
		},
		{
			name:    "休息不足",
			fixture: func() *fixture { return newFixture(flex(1)).require(1, "SAP", "T1", 1).require(2, "SAP", "M1", 1) },
			picks:   map[int]int64{0: 1, 1: 1}, violated: true,
		},
		{
			name:    "弹性人员午班+夜班",
			fixture: func() *fixture { return newFixture(flex(1)).require(1, "SAP", "T1", 1).require(1, "UCI", "N1", 1) },
			picks:   map[int]int64{0: 1, 1: 1}, violated: false,
		},
		{
			name:    "合同人员午班+夜班",
			fixture: func() *fixture { return newFixture(contracted(1)).require(1, "SAP", "T1", 1).require(1, "UCI", "N1", 1) },
			picks:   map[int]int64{0: 1, 1: 1}, violated: true,
		},
		{
			name:    "时间重叠",
			fixture: func() *fixture { return newFixture(flex(1)).require(1, "SAP", "M1", 1).require(1, "UCI", "L1", 1) },
			picks:   map[int]int64{0: 1, 1: 1}, violated: true,
		},
		{
			name: "夜班月上限含锁定",
			fixture: func() *fixture {
				s := flex(1)
				s.MaxNightsPerMonth = 1
				return newFixture(s).lock(1, 10, "N1").require(20, "SAP", "N1", 1)
			},
			picks: map[int]int64{0: 1}, violated: true,
		},
		{
			name: "连续工作七天",
			fixture: func() *fixture {
				f := newFixture(flex(1))
				for d := 1; d <= 7; d++ {
					f.require(d, "SAP", "M1", 1)
				}
				return f.require(11, "SAP", "M1", 1).require(12, "SAP", "M1", 1)
			},
			picks:    map[int]int64{0: 1, 1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 1},
			violated: true,
		},
		{
			name: "连续工作六天",
			fixture: func() *fixture {
				f := newFixture(flex(1))
				for d := 1; d <= 7; d++ {
					f.require(d, "SAP", "M1", 1)
				}
				return f.require(11, "SAP", "M1", 1).require(12, "SAP", "M1", 1)
			},
			picks:    map[int]int64{0: 1, 1: 1, 2: 1, 3: 1, 4: 1, 5: 1},
			violated: false,
		},
		{
			name: "锁定日计入连续天数",
			fixture: func() *fixture {
				f := newFixture(flex(1))
				for d := 1; d <= 6; d++ {
					f.lock(1, d, "M1")
				}
				return f.require(7, "SAP", "M1", 1)
			},
			picks: map[int]int64{0: 1}, violated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.fixture().build(t)
			st := assign(t, b, tt.picks)
			if got := st.Hard() > 0; got != tt.violated {
				t.Errorf("violated = %v (hard=%d), expected %v", got, st.Hard(), tt.violated)
			}
		})
	}
}

func TestBuild_WeekendOff(t *testing.T) {
	weekends := []int{4, 5, 11, 12, 18, 19, 25, 26}
	f := newFixture(flex(1))
	for _, d := range weekends {
		f.require(d, "SAP", "M1", 1)
	}
	b := f.build(t)

	all := make(map[int]int64)
	for i := range weekends {
		all[i] = 1
	}
	if st := assign(t, b, all); st.Hard() == 0 {
		t.Error("所有周末上班应违反周末休息")
	}

	// 最后一个周末两天都休息
	delete(all, 6)
	delete(all, 7)
	if st := assign(t, b, all); st.Hard() != 0 {
		t.Errorf("保留一个完整周末不应违反, hard = %d", st.Hard())
	}

	// 只休周六不算完整周末
	all[7] = 1
	if st := assign(t, b, all); st.Hard() == 0 {
		t.Error("只休一天不算完整周末")
	}
}

func TestBuild_DoubleServicePenalty(t *testing.T) {
	f := newFixture(flex(1)).require(1, "SAP", "T1", 1).require(1, "UCI", "N1", 1)
	f.cfg.Penalties = model.PenaltyWeights{DoubleShiftService: 7}
	b := f.build(t)

	st := assign(t, b, map[int]int64{0: 1, 1: 1})
	if st.Hard() != 0 {
		t.Fatalf("hard = %d, expected 0", st.Hard())
	}
	// 只剩双班跨服务惩罚与两个打破平局项
	if expected := int64(7 + 2*tiebreakWeight); st.Soft() != expected {
		t.Errorf("soft = %d, expected %d", st.Soft(), expected)
	}
}

func TestBuild_UnknownShiftNotModelled(t *testing.T) {
	b := newFixture(flex(1)).require(1, "SAP", "ZZ", 2).build(t)
	if len(b.Slots) != 0 || len(b.Immediate) != 0 {
		t.Errorf("未知班次需求不应建模, slots=%d immediate=%d", len(b.Slots), len(b.Immediate))
	}
	if b.Model.NumVars() != 0 {
		t.Errorf("NumVars() = %d, expected 0", b.Model.NumVars())
	}
}

func TestBuild_TiebreakPrefersFlexPartTime(t *testing.T) {
	pt := &model.Staff{ID: 1, Category: model.CategoryFlexPartTime, WeeklyHours: 40}
	f := newFixture(pt, flex(2)).require(1, "SAP", "M1", 1).constrain(1, 1, "AVAILABLE")
	f.cfg.Penalties = model.PenaltyWeights{Unfilled: 100}
	b := f.build(t)

	partTime := assign(t, b, map[int]int64{0: 1})
	fullTime := assign(t, b, map[int]int64{0: 2})
	if partTime.Soft() >= fullTime.Soft() {
		t.Errorf("兼职弹性人员应更优: %d >= %d", partTime.Soft(), fullTime.Soft())
	}
}
