package cpmodel

// Lit 布尔文字：变量或变量的组合
type Lit interface {
	eval(values []bool) bool
	appendVars(dst []Var) []Var
}

func (v Var) eval(values []bool) bool { return values[v] }

func (v Var) appendVars(dst []Var) []Var { return append(dst, v) }

type notLit struct{ l Lit }

func (n notLit) eval(values []bool) bool { return !n.l.eval(values) }

func (n notLit) appendVars(dst []Var) []Var { return n.l.appendVars(dst) }

// Not 取反
func Not(l Lit) Lit {
	if inner, ok := l.(notLit); ok {
		return inner.l
	}
	return notLit{l: l}
}

type anyOf []Var

func (a anyOf) eval(values []bool) bool {
	for _, v := range a {
		if values[v] {
			return true
		}
	}
	return false
}

func (a anyOf) appendVars(dst []Var) []Var { return append(dst, a...) }

// AnyOf 任一变量为真（变量列表为空时恒为假）
func AnyOf(vars ...Var) Lit {
	if len(vars) == 1 {
		return vars[0]
	}
	out := make(anyOf, len(vars))
	copy(out, vars)
	return out
}

type allOf []Lit

func (a allOf) eval(values []bool) bool {
	for _, l := range a {
		if !l.eval(values) {
			return false
		}
	}
	return true
}

func (a allOf) appendVars(dst []Var) []Var {
	for _, l := range a {
		dst = l.appendVars(dst)
	}
	return dst
}

// AllOf 全部文字为真（列表为空时恒为真）
func AllOf(lits ...Lit) Lit {
	if len(lits) == 1 {
		return lits[0]
	}
	out := make(allOf, len(lits))
	copy(out, lits)
	return out
}

// constLit 常量文字
type constLit bool

func (c constLit) eval([]bool) bool { return bool(c) }

func (c constLit) appendVars(dst []Var) []Var { return dst }

// True 恒真文字
var True Lit = constLit(true)

// False 恒假文字
var False Lit = constLit(false)

// Eval 在给定取值下计算文字
func Eval(l Lit, values []bool) bool { return l.eval(values) }

// Term 线性项：系数 × [文字]
type Term struct {
	Lit  Lit
	Coef int64
}

// LinearExpr 线性表达式 Σ coef×[lit] + offset
type LinearExpr struct {
	Terms  []Term
	Offset int64
}

// Add 追加一项
func (e *LinearExpr) Add(l Lit, coef int64) {
	if coef == 0 {
		return
	}
	e.Terms = append(e.Terms, Term{Lit: l, Coef: coef})
}

// AddConstant 追加常量
func (e *LinearExpr) AddConstant(c int64) { e.Offset += c }

// Empty 没有变量项
func (e *LinearExpr) Empty() bool { return len(e.Terms) == 0 }

// Value 在给定取值下计算表达式
func (e *LinearExpr) Value(values []bool) int64 {
	sum := e.Offset
	for _, t := range e.Terms {
		if t.Lit.eval(values) {
			sum += t.Coef
		}
	}
	return sum
}

// bounds 表达式可能的最小、最大值（按各项独立估计）
func (e *LinearExpr) bounds() (lo, hi int64) {
	lo, hi = e.Offset, e.Offset
	for _, t := range e.Terms {
		if c, ok := t.Lit.(constLit); ok {
			if c {
				lo += t.Coef
				hi += t.Coef
			}
			continue
		}
		if t.Coef < 0 {
			lo += t.Coef
		} else {
			hi += t.Coef
		}
	}
	return lo, hi
}

func (e *LinearExpr) appendVars(dst []Var) []Var {
	for _, t := range e.Terms {
		dst = t.Lit.appendVars(dst)
	}
	return dst
}
