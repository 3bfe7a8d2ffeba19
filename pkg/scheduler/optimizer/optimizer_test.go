package optimizer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
)

func testConfig() *OptimizationConfig {
	cfg := DefaultOptConfig()
	cfg.MaxTime = 2 * time.Second
	cfg.MaxIterations = 4000
	cfg.PlateauThreshold = 500
	cfg.MigrationInterval = 200
	cfg.ParallelWorkers = 2
	cfg.Seed = 42
	return cfg
}

// assignmentModel 三个班位、两名人员，同一人员最多两个班位
func assignmentModel() (*cpmodel.Model, [][]cpmodel.Var) {
	m := cpmodel.NewModel()
	groups := make([][]cpmodel.Var, 3)
	perStaff := map[int64][]cpmodel.Lit{}
	for slot := 0; slot < 3; slot++ {
		a := m.NewTaggedVar("a", 1)
		b := m.NewTaggedVar("b", 2)
		u := m.NewBoolVar("u")
		m.AddExactlyOne(a, b, u)
		m.SetHint(u, true)
		m.Penalize("unfilled", u, 1000)
		m.Penalize("prefer_a", b, 1)
		perStaff[1] = append(perStaff[1], a)
		perStaff[2] = append(perStaff[2], b)
		groups[slot] = []cpmodel.Var{a, b, u}
	}
	m.AddAtMost(2, perStaff[1]...)
	m.AddAtMost(2, perStaff[2]...)
	return m, groups
}

func TestIslandOptimizer_Solve(t *testing.T) {
	m, groups := assignmentModel()
	resp := NewIslandOptimizer(testConfig()).Solve(context.Background(), m)

	if !resp.Status.Solved() {
		t.Fatalf("Status = %v, expected solved", resp.Status)
	}
	if resp.HardViolation != 0 {
		t.Errorf("HardViolation = %d", resp.HardViolation)
	}
	// 最优：两个班位给 a，一个给 b，没有未填补
	if resp.Objective != 1 {
		t.Errorf("Objective = %d, expected 1", resp.Objective)
	}
	countA := 0
	for _, g := range groups {
		if resp.Value(g[2]) {
			t.Error("不应有未填补班位")
		}
		if resp.Value(g[0]) {
			countA++
		}
	}
	if countA != 2 {
		t.Errorf("a 应分配 2 个班位, got %d", countA)
	}
}

func TestIslandOptimizer_Optimal(t *testing.T) {
	m := cpmodel.NewModel()
	a := m.NewTaggedVar("a", 1)
	u := m.NewBoolVar("u")
	m.AddExactlyOne(a, u)
	m.SetHint(u, true)
	m.Penalize("unfilled", u, 10)

	resp := NewIslandOptimizer(testConfig()).Solve(context.Background(), m)
	if resp.Status != cpmodel.StatusOptimal {
		t.Errorf("Status = %v, expected optimal", resp.Status)
	}
	if !resp.Value(a) {
		t.Error("a 应被选中")
	}
}

func TestIslandOptimizer_OptimalAtLowerBound(t *testing.T) {
	// 每个班位至少付出一次并列惩罚，目标值无法为 0
	m := cpmodel.NewModel()
	var picks []cpmodel.Var
	for slot := 0; slot < 4; slot++ {
		a := m.NewTaggedVar("a", 1)
		u := m.NewBoolVar("u")
		m.AddExactlyOne(a, u)
		m.SetHint(u, true)
		m.Penalize("tiebreak", a, 1)
		m.Penalize("unfilled", u, 1000)
		picks = append(picks, a)
	}

	resp := NewIslandOptimizer(testConfig()).Solve(context.Background(), m)
	if resp.Status != cpmodel.StatusOptimal {
		t.Errorf("Status = %v, expected optimal", resp.Status)
	}
	if resp.Objective != 4 {
		t.Errorf("Objective = %d, expected 4", resp.Objective)
	}
	for _, a := range picks {
		if !resp.Value(a) {
			t.Error("所有班位都应被填补")
		}
	}
}

func TestIslandOptimizer_PresolveInfeasible(t *testing.T) {
	m := cpmodel.NewModel()
	a := m.NewBoolVar("a")
	m.AddExactlyOne(a)
	var e cpmodel.LinearExpr
	e.AddConstant(10)
	m.AddLessOrEqual(e, 5)

	resp := NewIslandOptimizer(testConfig()).Solve(context.Background(), m)
	if resp.Status != cpmodel.StatusInfeasible {
		t.Errorf("Status = %v, expected infeasible", resp.Status)
	}
}

func TestIslandOptimizer_Unsatisfiable(t *testing.T) {
	// 唯一成员必然违反硬约束：局部搜索无法修复
	m := cpmodel.NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	m.AddExactlyOne(a)
	m.AddExactlyOne(b)
	m.AddAtMost(1, a, b)

	resp := NewIslandOptimizer(testConfig()).Solve(context.Background(), m)
	if resp.Status.Solved() {
		t.Errorf("Status = %v, 不应可行", resp.Status)
	}
}

func TestConstruct(t *testing.T) {
	m, groups := assignmentModel()
	s := m.Compile().NewState(nil)
	Construct(s)

	if s.Hard() != 0 {
		t.Errorf("构造解不应违反硬约束, hard = %d", s.Hard())
	}
	if s.Soft() != 1 {
		t.Errorf("构造解 soft = %d, expected 1", s.Soft())
	}
	if !s.Values()[groups[0][0]] {
		t.Error("第一个班位应分配给 a")
	}
}

func TestNeighborhoodGenerator(t *testing.T) {
	m, _ := assignmentModel()
	s := m.Compile().NewState(nil)
	gen := NewNeighborhoodGenerator(rand.New(rand.NewSource(1)))

	seen := map[MoveType]bool{}
	for i := 0; i < 500; i++ {
		mv := gen.Generate(s)
		if mv == nil {
			continue
		}
		seen[mv.Type] = true
		if mv.Key() == mv.ReverseKey() {
			t.Fatalf("移动 %v 的正反哈希不应相同", mv.Type)
		}
		s.Apply(mv.Changes)
		for g := 0; g < m.NumGroups(); g++ {
			n := 0
			for _, v := range m.Group(g) {
				if s.Values()[v] {
					n++
				}
			}
			if n != 1 {
				t.Fatalf("组 %d 有 %d 个真值", g, n)
			}
		}
	}
	for _, mt := range []MoveType{MoveRelocate, MoveInsert, MoveRemove, MoveSwap} {
		if !seen[mt] {
			t.Errorf("未生成 %s 移动", mt)
		}
	}
}

func TestTabuList(t *testing.T) {
	tl := NewTabuList(2)
	tl.Add(1)
	tl.Add(2)
	tl.Add(2)
	tl.Add(3)

	if tl.Contains(1) {
		t.Error("最旧的键应被移除")
	}
	if !tl.Contains(2) || !tl.Contains(3) {
		t.Error("应包含 2 和 3")
	}
	if tl.Len() != 2 {
		t.Errorf("Len() = %d", tl.Len())
	}
	tl.Clear()
	if tl.Contains(3) {
		t.Error("清空后不应包含")
	}
}

func TestBoltzmannProbability(t *testing.T) {
	if boltzmannProbability(-1, 10) != 1 {
		t.Error("更优解应总是接受")
	}
	if boltzmannProbability(5, 0) != 0 {
		t.Error("零温度不接受更差解")
	}
	if p := boltzmannProbability(10, 10); p < 0.36 || p > 0.37 {
		t.Errorf("p = %f", p)
	}
}
