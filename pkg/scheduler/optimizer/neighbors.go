package optimizer

import (
	"math/rand"

	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveSwap     MoveType = iota // 交换两个班位的人员
	MoveRelocate                 // 班位改派给组内其他成员
	MoveInsert                   // 默认（未填补）班位分配给候选人
	MoveRemove                   // 班位恢复为默认
)

// String 返回移动类型名称
func (t MoveType) String() string {
	switch t {
	case MoveSwap:
		return "swap"
	case MoveRelocate:
		return "relocate"
	case MoveInsert:
		return "insert"
	case MoveRemove:
		return "remove"
	}
	return "unknown"
}

// Move 邻域移动操作
type Move struct {
	Type    MoveType
	Group1  int
	From1   cpmodel.Var
	To1     cpmodel.Var
	Group2  int
	From2   cpmodel.Var
	To2     cpmodel.Var
	Changes []cpmodel.Change
}

// Key 移动目标的哈希
func (m *Move) Key() uint64 {
	k := moveKey(m.Group1, m.To1)
	if m.Type == MoveSwap {
		k ^= moveKey(m.Group2, m.To2) * 31
	}
	return k
}

// ReverseKey 撤销该移动的哈希，应用后加入禁忌表
func (m *Move) ReverseKey() uint64 {
	k := moveKey(m.Group1, m.From1)
	if m.Type == MoveSwap {
		k ^= moveKey(m.Group2, m.From2) * 31
	}
	return k
}

// NeighborhoodGenerator 邻域生成器
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights map[MoveType]float64
	order       []MoveType
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(rng *rand.Rand) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng: rng,
		moveWeights: map[MoveType]float64{
			MoveSwap:     0.25, // 25% 交换
			MoveRelocate: 0.40, // 40% 改派
			MoveInsert:   0.20, // 20% 插入
			MoveRemove:   0.15, // 15% 移除
		},
		order: []MoveType{MoveSwap, MoveRelocate, MoveInsert, MoveRemove},
	}
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	r := n.rng.Float64()
	cumulative := 0.0
	for _, mt := range n.order {
		cumulative += n.moveWeights[mt]
		if r < cumulative {
			return mt
		}
	}
	return MoveRelocate
}

// Generate 生成一个邻域移动，找不到合法移动时返回 nil
func (n *NeighborhoodGenerator) Generate(s *cpmodel.State) *Move {
	c := s.Compiled()
	if c.NumGroups() == 0 {
		return nil
	}
	switch n.selectMoveType() {
	case MoveSwap:
		if mv := n.generateSwapMove(s); mv != nil {
			return mv
		}
	case MoveInsert:
		if mv := n.generateInsertMove(s); mv != nil {
			return mv
		}
	case MoveRemove:
		if mv := n.generateRemoveMove(s); mv != nil {
			return mv
		}
	}
	return n.generateRelocateMove(s)
}

func (n *NeighborhoodGenerator) randomGroup(s *cpmodel.State) int {
	return n.rng.Intn(s.Compiled().NumGroups())
}

func (n *NeighborhoodGenerator) single(t MoveType, s *cpmodel.State, g int, to cpmodel.Var) *Move {
	from := s.Active(g)
	if from == to {
		return nil
	}
	return &Move{
		Type:    t,
		Group1:  g,
		From1:   from,
		To1:     to,
		Group2:  -1,
		Changes: s.Reassign(g, to),
	}
}

// generateRelocateMove 随机班位改派给组内随机的其他成员
func (n *NeighborhoodGenerator) generateRelocateMove(s *cpmodel.State) *Move {
	c := s.Compiled()
	for attempt := 0; attempt < 8; attempt++ {
		g := n.randomGroup(s)
		group := c.Group(g)
		if len(group) < 2 {
			continue
		}
		to := group[n.rng.Intn(len(group))]
		if mv := n.single(MoveRelocate, s, g, to); mv != nil {
			return mv
		}
	}
	return nil
}

// generateInsertMove 处于默认成员的班位改为随机候选人
func (n *NeighborhoodGenerator) generateInsertMove(s *cpmodel.State) *Move {
	c := s.Compiled()
	for attempt := 0; attempt < 8; attempt++ {
		g := n.randomGroup(s)
		group := c.Group(g)
		def := c.DefaultMember(g)
		if len(group) < 2 || s.Active(g) != def {
			continue
		}
		to := group[n.rng.Intn(len(group))]
		if to == def {
			continue
		}
		return n.single(MoveInsert, s, g, to)
	}
	return nil
}

// generateRemoveMove 已分配班位恢复为默认成员
func (n *NeighborhoodGenerator) generateRemoveMove(s *cpmodel.State) *Move {
	c := s.Compiled()
	for attempt := 0; attempt < 8; attempt++ {
		g := n.randomGroup(s)
		if def := c.DefaultMember(g); s.Active(g) != def {
			return n.single(MoveRemove, s, g, def)
		}
	}
	return nil
}

// generateSwapMove 交换两个班位的人员（两边都有对方的候选变量时）
func (n *NeighborhoodGenerator) generateSwapMove(s *cpmodel.State) *Move {
	c := s.Compiled()
	if c.NumGroups() < 2 {
		return nil
	}
	for attempt := 0; attempt < 8; attempt++ {
		g1, g2 := n.randomGroup(s), n.randomGroup(s)
		if g1 == g2 {
			continue
		}
		from1, from2 := s.Active(g1), s.Active(g2)
		t1, t2 := c.Tag(from1), c.Tag(from2)
		if t1 < 0 || t2 < 0 || t1 == t2 {
			continue
		}
		to1, ok1 := c.MemberWithTag(g1, t2)
		to2, ok2 := c.MemberWithTag(g2, t1)
		if !ok1 || !ok2 {
			continue
		}
		changes := append(s.Reassign(g1, to1), s.Reassign(g2, to2)...)
		return &Move{
			Type:    MoveSwap,
			Group1:  g1,
			From1:   from1,
			To1:     to1,
			Group2:  g2,
			From2:   from2,
			To2:     to2,
			Changes: changes,
		}
	}
	return nil
}
