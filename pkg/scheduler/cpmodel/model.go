// Package cpmodel 提供进程内布尔约束模型
//
// 模型由布尔变量、恰好一个的变量组、线性上限、至少一个的析取
// 以及加权目标项组成。求解由 optimizer 包完成，本包只负责建模、
// 预处理与增量评估。
package cpmodel

import (
	"fmt"
	"math"
	"time"
)

// Var 布尔变量
type Var int

// Status 求解状态
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusModelInvalid
)

// String 返回状态名称
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusModelInvalid:
		return "model_invalid"
	default:
		return "unknown"
	}
}

// MarshalText 以名称序列化
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Solved 是否得到可行解
func (s Status) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Response 求解结果
type Response struct {
	Status        Status
	Values        []bool
	Objective     int64
	HardViolation int64
	Iterations    int
	Duration      time.Duration
}

// Value 变量取值
func (r *Response) Value(v Var) bool {
	if r == nil || int(v) >= len(r.Values) {
		return false
	}
	return r.Values[v]
}

// Eval 文字取值
func (r *Response) Eval(l Lit) bool {
	if r == nil || r.Values == nil {
		return false
	}
	return l.eval(r.Values)
}

type itemKind int

const (
	kindLessEqual itemKind = iota
	kindAtLeastOne
	kindWeighted
	kindAbsDeviation
)

// item 约束或目标项
type item struct {
	kind   itemKind
	expr   LinearExpr
	bound  int64 // 上限或目标值
	lits   []Lit
	weight int64
	lit    Lit
	name   string
}

// cost 在给定取值下的代价
func (it *item) cost(values []bool) int64 {
	switch it.kind {
	case kindLessEqual:
		if over := it.expr.Value(values) - it.bound; over > 0 {
			return over
		}
		return 0
	case kindAtLeastOne:
		for _, l := range it.lits {
			if l.eval(values) {
				return 0
			}
		}
		return 1
	case kindWeighted:
		if it.lit.eval(values) {
			return it.weight
		}
		return 0
	case kindAbsDeviation:
		d := it.expr.Value(values) - it.bound
		if d < 0 {
			d = -d
		}
		return it.weight * d
	}
	return 0
}

func (it *item) appendVars(dst []Var) []Var {
	switch it.kind {
	case kindLessEqual, kindAbsDeviation:
		return it.expr.appendVars(dst)
	case kindAtLeastOne:
		for _, l := range it.lits {
			dst = l.appendVars(dst)
		}
		return dst
	case kindWeighted:
		return it.lit.appendVars(dst)
	}
	return dst
}

// Model 布尔约束模型
type Model struct {
	names  []string
	tags   []int64
	hinted []bool
	hints  []bool

	groups  [][]Var
	groupOf []int

	hard []item
	soft []item

	err error
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar 新建布尔变量
func (m *Model) NewBoolVar(name string) Var {
	return m.NewTaggedVar(name, -1)
}

// NewTaggedVar 新建带标签的布尔变量，标签用于组间交换（如人员ID）
func (m *Model) NewTaggedVar(name string, tag int64) Var {
	v := Var(len(m.names))
	m.names = append(m.names, name)
	m.tags = append(m.tags, tag)
	m.hinted = append(m.hinted, false)
	m.hints = append(m.hints, false)
	m.groupOf = append(m.groupOf, -1)
	return v
}

// NumVars 变量数量
func (m *Model) NumVars() int { return len(m.names) }

// Name 变量名
func (m *Model) Name(v Var) string { return m.names[v] }

// Tag 变量标签
func (m *Model) Tag(v Var) int64 { return m.tags[v] }

// SetHint 设置初始取值提示
func (m *Model) SetHint(v Var, value bool) {
	if !m.valid(v) {
		return
	}
	m.hinted[v] = true
	m.hints[v] = value
}

func (m *Model) valid(v Var) bool {
	if int(v) < 0 || int(v) >= len(m.names) {
		if m.err == nil {
			m.err = fmt.Errorf("variable %d out of range", v)
		}
		return false
	}
	return true
}

// AddExactlyOne 恰好一个变量为真；每个变量最多属于一个组
func (m *Model) AddExactlyOne(vars ...Var) {
	if len(vars) == 0 {
		if m.err == nil {
			m.err = fmt.Errorf("exactly-one group %d is empty", len(m.groups))
		}
		return
	}
	g := len(m.groups)
	group := make([]Var, 0, len(vars))
	for _, v := range vars {
		if !m.valid(v) {
			return
		}
		if m.groupOf[v] >= 0 {
			if m.err == nil {
				m.err = fmt.Errorf("variable %s belongs to two exactly-one groups", m.names[v])
			}
			return
		}
		m.groupOf[v] = g
		group = append(group, v)
	}
	m.groups = append(m.groups, group)
}

// AddLessOrEqual 硬约束 expr ≤ rhs
func (m *Model) AddLessOrEqual(expr LinearExpr, rhs int64) {
	m.hard = append(m.hard, item{kind: kindLessEqual, expr: expr, bound: rhs})
}

// AddAtMost 硬约束：文字中最多 k 个为真
func (m *Model) AddAtMost(k int64, lits ...Lit) {
	var expr LinearExpr
	for _, l := range lits {
		expr.Add(l, 1)
	}
	m.AddLessOrEqual(expr, k)
}

// AddAtLeastOne 硬约束：至少一个文字为真
func (m *Model) AddAtLeastOne(lits ...Lit) {
	m.hard = append(m.hard, item{kind: kindAtLeastOne, lits: append([]Lit(nil), lits...)})
}

// AddImplication 硬约束：a 为真则 b 为真
func (m *Model) AddImplication(a, b Lit) {
	m.AddAtMost(1, a, Not(b))
}

// Penalize 目标项：weight × [lit]
func (m *Model) Penalize(name string, lit Lit, weight int64) {
	if weight == 0 {
		return
	}
	m.soft = append(m.soft, item{kind: kindWeighted, lit: lit, weight: weight, name: name})
}

// PenalizeDeviation 目标项：weight × |expr − target|
func (m *Model) PenalizeDeviation(name string, expr LinearExpr, target, weight int64) {
	if weight == 0 {
		return
	}
	m.soft = append(m.soft, item{kind: kindAbsDeviation, expr: expr, bound: target, weight: weight, name: name})
}

// NumGroups 变量组数量
func (m *Model) NumGroups() int { return len(m.groups) }

// Group 第 g 个变量组
func (m *Model) Group(g int) []Var { return m.groups[g] }

// GroupOf 变量所属组，不属于任何组返回 -1
func (m *Model) GroupOf(v Var) int { return m.groupOf[v] }

// NumConstraints 硬约束数量
func (m *Model) NumConstraints() int { return len(m.hard) }

// NumObjectiveTerms 目标项数量
func (m *Model) NumObjectiveTerms() int { return len(m.soft) }

// Validate 检查建模错误
func (m *Model) Validate() error {
	if m.err != nil {
		return m.err
	}
	items := make([]*item, 0, len(m.hard)+len(m.soft))
	for i := range m.hard {
		items = append(items, &m.hard[i])
	}
	for i := range m.soft {
		items = append(items, &m.soft[i])
	}
	for _, it := range items {
		for _, v := range it.appendVars(nil) {
			if int(v) < 0 || int(v) >= len(m.names) {
				return fmt.Errorf("variable %d out of range", v)
			}
		}
	}
	return nil
}

// Presolve 预处理：发现必然违反的硬约束时返回 StatusInfeasible，
// 建模错误返回 StatusModelInvalid，否则返回 StatusUnknown
func (m *Model) Presolve() (Status, error) {
	if err := m.Validate(); err != nil {
		return StatusModelInvalid, err
	}
	for i := range m.hard {
		it := &m.hard[i]
		switch it.kind {
		case kindLessEqual:
			if lo, _ := it.expr.bounds(); lo > it.bound {
				return StatusInfeasible, fmt.Errorf("constraint %d: minimum %d exceeds bound %d", i, lo, it.bound)
			}
		case kindAtLeastOne:
			if len(it.lits) == 0 {
				return StatusInfeasible, fmt.Errorf("constraint %d: empty disjunction", i)
			}
		}
	}
	return StatusUnknown, nil
}

// ObjectiveLowerBound 目标值下界
// 每个恰好一个的组取成员直接加权项之和的最小值，再对所有组求和；
// 其余目标项非负，故为有效下界。存在负权重时返回 math.MinInt64
func (m *Model) ObjectiveLowerBound() int64 {
	direct := make(map[Var]int64)
	for i := range m.soft {
		it := &m.soft[i]
		if it.weight < 0 {
			return math.MinInt64
		}
		if it.kind != kindWeighted {
			continue
		}
		if v, ok := it.lit.(Var); ok && m.groupOf[v] >= 0 {
			direct[v] += it.weight
		}
	}
	var bound int64
	for _, group := range m.groups {
		best := direct[group[0]]
		for _, v := range group[1:] {
			if c := direct[v]; c < best {
				best = c
			}
		}
		bound += best
	}
	return bound
}

// InitialValues 初始取值：每组取提示为真的变量，否则取第一个；
// 不属于任何组的变量取提示值
func (m *Model) InitialValues() []bool {
	values := make([]bool, len(m.names))
	for v := range values {
		if m.groupOf[v] < 0 && m.hinted[v] {
			values[v] = m.hints[v]
		}
	}
	for _, group := range m.groups {
		values[m.defaultOf(group)] = true
	}
	return values
}

// DefaultMember 组的默认成员（提示为真者，否则第一个）
func (m *Model) DefaultMember(g int) Var {
	return m.defaultOf(m.groups[g])
}

func (m *Model) defaultOf(group []Var) Var {
	for _, v := range group {
		if m.hinted[v] && m.hints[v] {
			return v
		}
	}
	return group[0]
}
