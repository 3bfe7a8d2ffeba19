package cpmodel

import (
	"math"
	"testing"
)

func TestLiterals(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	values := []bool{true, false}

	tests := []struct {
		name     string
		lit      Lit
		expected bool
	}{
		{"变量", a, true},
		{"取反", Not(b), true},
		{"双重取反", Not(Not(a)), true},
		{"任一", AnyOf(a, b), true},
		{"空任一", AnyOf(), false},
		{"全部", AllOf(a, b), false},
		{"全部取反组合", AllOf(a, Not(b)), true},
		{"空全部", AllOf(), true},
		{"常量", True, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eval(tt.lit, values); got != tt.expected {
				t.Errorf("Eval() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestLinearExpr(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")

	var e LinearExpr
	e.Add(a, 420)
	e.Add(b, -60)
	e.Add(a, 0)
	e.AddConstant(100)

	if len(e.Terms) != 2 {
		t.Errorf("零系数项应忽略, terms = %d", len(e.Terms))
	}
	if got := e.Value([]bool{true, true}); got != 460 {
		t.Errorf("Value() = %d, expected 460", got)
	}
	lo, hi := e.bounds()
	if lo != 40 || hi != 520 {
		t.Errorf("bounds() = (%d, %d), expected (40, 520)", lo, hi)
	}
}

func TestModel_ExactlyOneErrors(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	m.AddExactlyOne(a)
	m.AddExactlyOne(a)

	if status, err := m.Presolve(); status != StatusModelInvalid || err == nil {
		t.Errorf("重复分组应为 ModelInvalid, got %v %v", status, err)
	}

	m = NewModel()
	m.AddExactlyOne()
	if err := m.Validate(); err == nil {
		t.Error("空分组应返回错误")
	}
}

func TestModel_Presolve(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	m.AddExactlyOne(a)

	var e LinearExpr
	e.Add(a, 10)
	e.AddConstant(3000)
	m.AddLessOrEqual(e, 2000)

	if status, _ := m.Presolve(); status != StatusInfeasible {
		t.Errorf("常量超限应为 Infeasible, got %v", status)
	}

	m = NewModel()
	m.AddAtLeastOne()
	if status, _ := m.Presolve(); status != StatusInfeasible {
		t.Errorf("空析取应为 Infeasible, got %v", status)
	}

	m = NewModel()
	x := m.NewBoolVar("x")
	m.AddAtMost(0, x)
	if status, err := m.Presolve(); status != StatusUnknown || err != nil {
		t.Errorf("可满足的模型 presolve = %v %v", status, err)
	}
}

func TestModel_ObjectiveLowerBound(t *testing.T) {
	m := NewModel()
	for i := 0; i < 3; i++ {
		a := m.NewBoolVar("a")
		b := m.NewBoolVar("b")
		u := m.NewBoolVar("u")
		m.AddExactlyOne(a, b, u)
		m.Penalize("tiebreak", a, 1)
		m.Penalize("tiebreak", b, 2)
		m.Penalize("request", b, 3)
		m.Penalize("unfilled", u, 100)
		// 组合文字与偏差项不计入下界
		m.Penalize("pair", AllOf(a, b), 50)
	}
	var e LinearExpr
	e.AddConstant(10)
	m.PenalizeDeviation("hours", e, 0, 5)

	if got := m.ObjectiveLowerBound(); got != 3 {
		t.Errorf("ObjectiveLowerBound() = %d, expected 3", got)
	}

	m = NewModel()
	x := m.NewBoolVar("x")
	m.AddExactlyOne(x)
	m.Penalize("bonus", x, -1)
	if got := m.ObjectiveLowerBound(); got != math.MinInt64 {
		t.Errorf("负权重时 ObjectiveLowerBound() = %d", got)
	}
}

func TestModel_InitialValuesUseHint(t *testing.T) {
	m := NewModel()
	a := m.NewTaggedVar("a", 1)
	b := m.NewTaggedVar("b", 2)
	u := m.NewBoolVar("unfilled")
	m.AddExactlyOne(a, b, u)
	m.SetHint(u, true)

	values := m.InitialValues()
	if values[a] || values[b] || !values[u] {
		t.Errorf("InitialValues() = %v, 应选中提示变量", values)
	}
	if m.DefaultMember(0) != u {
		t.Error("DefaultMember 应为提示变量")
	}
}

func TestState_DeltaAndApply(t *testing.T) {
	m := NewModel()
	// 两个班位，同一人员 a1/a2，另一人员 b1
	a1 := m.NewTaggedVar("a1", 1)
	b1 := m.NewTaggedVar("b1", 2)
	u1 := m.NewBoolVar("u1")
	a2 := m.NewTaggedVar("a2", 1)
	u2 := m.NewBoolVar("u2")
	m.AddExactlyOne(a1, b1, u1)
	m.AddExactlyOne(a2, u2)
	m.SetHint(u1, true)
	m.SetHint(u2, true)

	m.AddAtMost(1, a1, a2)
	m.Penalize("unfilled", u1, 100)
	m.Penalize("unfilled", u2, 100)
	var hours LinearExpr
	hours.Add(a1, 7)
	hours.Add(a2, 7)
	m.PenalizeDeviation("hours", hours, 7, 1)

	c := m.Compile()
	s := c.NewState(nil)
	if s.Hard() != 0 || s.Soft() != 207 {
		t.Fatalf("初始 (hard, soft) = (%d, %d), expected (0, 207)", s.Hard(), s.Soft())
	}

	ch := s.Reassign(0, a1)
	dh, ds := s.Delta(ch)
	if dh != 0 || ds != -107 {
		t.Errorf("Delta = (%d, %d), expected (0, -107)", dh, ds)
	}
	if s.Soft() != 207 || !s.Values()[u1] {
		t.Error("Delta 不应修改状态")
	}

	s.Apply(ch)
	if s.Active(0) != a1 || s.Soft() != 100 {
		t.Errorf("Apply 后 active=%v soft=%d", s.Active(0), s.Soft())
	}

	ch = s.Reassign(1, a2)
	dh, ds = s.Delta(ch)
	if dh != 1 {
		t.Errorf("同一人员两个班位应违反上限, dHard = %d", dh)
	}
	if ds != -100+7 {
		t.Errorf("dSoft = %d, expected -93", ds)
	}

	clone := s.Clone()
	clone.Apply(clone.Reassign(0, b1))
	if s.Active(0) != a1 {
		t.Error("Clone 不应影响原状态")
	}
	s.CopyFrom(clone)
	if s.Active(0) != b1 || s.Soft() != clone.Soft() {
		t.Error("CopyFrom 未复制")
	}

	if v, ok := c.MemberWithTag(0, 2); !ok || v != b1 {
		t.Error("MemberWithTag 错误")
	}
	if _, ok := c.MemberWithTag(1, 2); ok {
		t.Error("组 1 没有标签 2")
	}
}

func TestAtLeastOne(t *testing.T) {
	m := NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddExactlyOne(a, b)
	m.AddAtLeastOne(AllOf(Not(a)))

	s := m.Compile().NewState(nil)
	if s.Hard() != 1 {
		t.Errorf("a 为真时应违反, hard = %d", s.Hard())
	}
	s.Apply(s.Reassign(0, b))
	if s.Hard() != 0 {
		t.Errorf("hard = %d, expected 0", s.Hard())
	}
	resp := s.Response(StatusFeasible)
	if !resp.Value(b) || resp.Value(a) || !resp.Eval(Not(a)) {
		t.Error("Response 取值错误")
	}
	if !resp.Status.Solved() || StatusUnknown.Solved() {
		t.Error("Solved 判断错误")
	}
}

func TestBetter(t *testing.T) {
	if !Better(0, 1000, 1, 0) {
		t.Error("硬违反少者更优")
	}
	if !Better(0, 5, 0, 6) || Better(0, 6, 0, 6) {
		t.Error("目标比较错误")
	}
}
