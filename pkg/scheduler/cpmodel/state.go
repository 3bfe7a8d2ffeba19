package cpmodel

// HardPenalty 默认硬约束违反的目标惩罚倍数
const HardPenalty int64 = 100000

// itemRef 变量影响的约束或目标项
type itemRef struct {
	hard  bool
	index int
}

// Compiled 编译后的模型：变量到受影响项的索引，可被多个 State 共享
type Compiled struct {
	*Model
	affects  [][]itemRef
	tagIndex []map[int64]Var // 组内 标签→变量
}

// Compile 编译模型
func (m *Model) Compile() *Compiled {
	c := &Compiled{
		Model:    m,
		affects:  make([][]itemRef, len(m.names)),
		tagIndex: make([]map[int64]Var, len(m.groups)),
	}
	index := func(hard bool, i int, it *item) {
		seen := make(map[Var]bool)
		for _, v := range it.appendVars(nil) {
			if seen[v] {
				continue
			}
			seen[v] = true
			c.affects[v] = append(c.affects[v], itemRef{hard: hard, index: i})
		}
	}
	for i := range m.hard {
		index(true, i, &m.hard[i])
	}
	for i := range m.soft {
		index(false, i, &m.soft[i])
	}
	for g, group := range m.groups {
		idx := make(map[int64]Var, len(group))
		for _, v := range group {
			if t := m.tags[v]; t >= 0 {
				if _, dup := idx[t]; !dup {
					idx[t] = v
				}
			}
		}
		c.tagIndex[g] = idx
	}
	return c
}

// MemberWithTag 组内带指定标签的变量
func (c *Compiled) MemberWithTag(g int, tag int64) (Var, bool) {
	v, ok := c.tagIndex[g][tag]
	return v, ok
}

// Change 单个变量取值变化
type Change struct {
	Var   Var
	Value bool
}

// State 一组取值及其缓存代价，不可并发使用
type State struct {
	c        *Compiled
	values   []bool
	active   []Var // 每组当前为真的变量
	hardCost []int64
	softCost []int64
	hard     int64
	soft     int64

	stamp []uint32
	epoch uint32
	refs  []itemRef
}

// NewState 以给定取值创建状态，values 为 nil 时使用初始取值
func (c *Compiled) NewState(values []bool) *State {
	if values == nil {
		values = c.InitialValues()
	}
	s := &State{
		c:        c,
		values:   append([]bool(nil), values...),
		active:   make([]Var, len(c.groups)),
		hardCost: make([]int64, len(c.hard)),
		softCost: make([]int64, len(c.soft)),
		stamp:    make([]uint32, len(c.hard)+len(c.soft)),
	}
	for g, group := range c.groups {
		s.active[g] = group[0]
		for _, v := range group {
			if s.values[v] {
				s.active[g] = v
				break
			}
		}
	}
	for i := range c.hard {
		s.hardCost[i] = c.hard[i].cost(s.values)
		s.hard += s.hardCost[i]
	}
	for i := range c.soft {
		s.softCost[i] = c.soft[i].cost(s.values)
		s.soft += s.softCost[i]
	}
	return s
}

// Compiled 所属模型
func (s *State) Compiled() *Compiled { return s.c }

// Values 当前取值（只读）
func (s *State) Values() []bool { return s.values }

// Active 组当前为真的变量
func (s *State) Active(g int) Var { return s.active[g] }

// Hard 硬约束违反总量
func (s *State) Hard() int64 { return s.hard }

// Soft 目标值
func (s *State) Soft() int64 { return s.soft }

// Objective 综合目标 soft + HardPenalty × hard
func (s *State) Objective() int64 { return s.soft + HardPenalty*s.hard }

// Clone 复制状态
func (s *State) Clone() *State {
	out := *s
	out.values = append([]bool(nil), s.values...)
	out.active = append([]Var(nil), s.active...)
	out.hardCost = append([]int64(nil), s.hardCost...)
	out.softCost = append([]int64(nil), s.softCost...)
	out.stamp = make([]uint32, len(s.stamp))
	out.epoch = 0
	out.refs = nil
	return &out
}

// CopyFrom 用另一个状态覆盖（两者须来自同一模型）
func (s *State) CopyFrom(o *State) {
	copy(s.values, o.values)
	copy(s.active, o.active)
	copy(s.hardCost, o.hardCost)
	copy(s.softCost, o.softCost)
	s.hard, s.soft = o.hard, o.soft
}

// collect 收集变化影响的项（去重）
func (s *State) collect(changes []Change) []itemRef {
	s.epoch++
	if s.epoch == 0 {
		for i := range s.stamp {
			s.stamp[i] = 0
		}
		s.epoch = 1
	}
	s.refs = s.refs[:0]
	nh := len(s.hardCost)
	for _, ch := range changes {
		for _, r := range s.c.affects[ch.Var] {
			slot := r.index
			if !r.hard {
				slot += nh
			}
			if s.stamp[slot] == s.epoch {
				continue
			}
			s.stamp[slot] = s.epoch
			s.refs = append(s.refs, r)
		}
	}
	return s.refs
}

func (s *State) set(changes []Change) []bool {
	old := make([]bool, len(changes))
	for i, ch := range changes {
		old[i] = s.values[ch.Var]
		s.values[ch.Var] = ch.Value
	}
	return old
}

func (s *State) restore(changes []Change, old []bool) {
	for i := len(changes) - 1; i >= 0; i-- {
		s.values[changes[i].Var] = old[i]
	}
}

// Delta 评估变化带来的 (硬违反, 目标) 增量，不修改状态
func (s *State) Delta(changes []Change) (dHard, dSoft int64) {
	old := s.set(changes)
	for _, r := range s.collect(changes) {
		if r.hard {
			dHard += s.c.hard[r.index].cost(s.values) - s.hardCost[r.index]
		} else {
			dSoft += s.c.soft[r.index].cost(s.values) - s.softCost[r.index]
		}
	}
	s.restore(changes, old)
	return dHard, dSoft
}

// Apply 应用变化并更新缓存
func (s *State) Apply(changes []Change) {
	s.set(changes)
	for _, r := range s.collect(changes) {
		if r.hard {
			cost := s.c.hard[r.index].cost(s.values)
			s.hard += cost - s.hardCost[r.index]
			s.hardCost[r.index] = cost
		} else {
			cost := s.c.soft[r.index].cost(s.values)
			s.soft += cost - s.softCost[r.index]
			s.softCost[r.index] = cost
		}
	}
	for _, ch := range changes {
		if g := s.c.groupOf[ch.Var]; g >= 0 && ch.Value {
			s.active[g] = ch.Var
		}
	}
}

// Reassign 将组 g 的真值移到变量 to 的变化列表
func (s *State) Reassign(g int, to Var) []Change {
	from := s.active[g]
	if from == to {
		return nil
	}
	return []Change{{Var: from, Value: false}, {Var: to, Value: true}}
}

// Better 按 (硬违反, 目标) 字典序比较
func Better(hardA, softA, hardB, softB int64) bool {
	if hardA != hardB {
		return hardA < hardB
	}
	return softA < softB
}

// Response 由状态生成求解结果（状态由调用方决定）
func (s *State) Response(status Status) *Response {
	return &Response{
		Status:        status,
		Values:        append([]bool(nil), s.values...),
		Objective:     s.soft,
		HardViolation: s.hard,
	}
}
