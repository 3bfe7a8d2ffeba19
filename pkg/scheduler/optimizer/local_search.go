// Package optimizer 提供布尔约束模型的局部搜索求解
package optimizer

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations     int           `json:"max_iterations"`     // 每个岛屿的最大迭代次数
	MaxTime           time.Duration `json:"max_time"`           // 最大运行时间
	InitialTemp       float64       `json:"initial_temp"`       // 模拟退火初始温度
	CoolingRate       float64       `json:"cooling_rate"`       // 冷却速率
	TabuSize          int           `json:"tabu_size"`          // 禁忌表大小
	NeighborhoodSize  int           `json:"neighborhood_size"`  // 每次迭代采样的邻域大小
	ParallelWorkers   int           `json:"parallel_workers"`   // 并行岛屿数
	StopOnPlateau     bool          `json:"stop_on_plateau"`    // 平台期停止
	PlateauThreshold  int           `json:"plateau_threshold"`  // 平台期阈值（无改进迭代次数）
	MigrationInterval int           `json:"migration_interval"` // 岛屿间迁移间隔（迭代次数）
	Seed              int64         `json:"seed"`               // 随机种子，0 表示按时间
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:     200000,
		MaxTime:           20 * time.Second,
		InitialTemp:       100.0,
		CoolingRate:       0.9995,
		TabuSize:          50,
		NeighborhoodSize:  20,
		ParallelWorkers:   8,
		StopOnPlateau:     true,
		PlateauThreshold:  20000,
		MigrationInterval: 2000,
	}
}

// normalize 补齐非法配置
func (c *OptimizationConfig) normalize() *OptimizationConfig {
	out := *c
	def := DefaultOptConfig()
	if out.MaxIterations <= 0 {
		out.MaxIterations = def.MaxIterations
	}
	if out.MaxTime <= 0 {
		out.MaxTime = def.MaxTime
	}
	if out.InitialTemp <= 0 {
		out.InitialTemp = def.InitialTemp
	}
	if out.CoolingRate <= 0 || out.CoolingRate >= 1 {
		out.CoolingRate = def.CoolingRate
	}
	if out.TabuSize <= 0 {
		out.TabuSize = def.TabuSize
	}
	if out.NeighborhoodSize <= 0 {
		out.NeighborhoodSize = def.NeighborhoodSize
	}
	if out.ParallelWorkers <= 0 {
		out.ParallelWorkers = 1
	}
	if out.PlateauThreshold <= 0 {
		out.PlateauThreshold = def.PlateauThreshold
	}
	if out.MigrationInterval <= 0 {
		out.MigrationInterval = def.MigrationInterval
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	return &out
}

// Solution 一个取值方案及其代价
type Solution struct {
	State *cpmodel.State
	Hard  int64
	Soft  int64
}

// NewSolution 由状态快照生成方案
func NewSolution(s *cpmodel.State) *Solution {
	return &Solution{State: s.Clone(), Hard: s.Hard(), Soft: s.Soft()}
}

// Clone 深拷贝方案
func (s *Solution) Clone() *Solution {
	return &Solution{State: s.State.Clone(), Hard: s.Hard, Soft: s.Soft}
}

// Feasible 是否满足全部硬约束
func (s *Solution) Feasible() bool { return s.Hard == 0 }

// BetterThan 按 (硬违反, 目标) 字典序比较
func (s *Solution) BetterThan(o *Solution) bool {
	if o == nil {
		return true
	}
	return cpmodel.Better(s.Hard, s.Soft, o.Hard, o.Soft)
}

// LocalSearchOptimizer 局部搜索优化器（模拟退火 + 禁忌表）
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	neighbors *NeighborhoodGenerator
	tabuList  *TabuList
	rng       *rand.Rand

	temperature float64
	iterations  int
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, seed int64) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	rng := rand.New(rand.NewSource(seed))
	return &LocalSearchOptimizer{
		config:      config,
		neighbors:   NewNeighborhoodGenerator(rng),
		tabuList:    NewTabuList(config.TabuSize),
		rng:         rng,
		temperature: config.InitialTemp,
	}
}

// Iterations 已执行迭代次数
func (o *LocalSearchOptimizer) Iterations() int { return o.iterations }

// Optimize 在 current 上执行最多 steps 次迭代，返回过程中的最优方案
// 温度与禁忌表在多次调用间保持
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, current *cpmodel.State, best *Solution, steps int) (*Solution, int) {
	if best == nil {
		best = NewSolution(current)
	}
	noImprovementCount := 0
	objective := func(dh, ds int64) float64 {
		return float64(ds + cpmodel.HardPenalty*dh)
	}

	for i := 0; i < steps; i++ {
		if i&63 == 0 {
			select {
			case <-ctx.Done():
				return best, noImprovementCount
			default:
			}
		}
		o.iterations++

		// 采样邻域，选出最优的非禁忌移动（改进全局最优时无视禁忌）
		var (
			chosen     *Move
			chosenCost float64
		)
		for k := 0; k < o.config.NeighborhoodSize; k++ {
			mv := o.neighbors.Generate(current)
			if mv == nil {
				continue
			}
			dh, ds := current.Delta(mv.Changes)
			cost := objective(dh, ds)
			aspiration := cpmodel.Better(current.Hard()+dh, current.Soft()+ds, best.Hard, best.Soft)
			if o.tabuList.Contains(mv.Key()) && !aspiration {
				continue
			}
			if chosen == nil || cost < chosenCost {
				chosen, chosenCost = mv, cost
			}
		}

		if chosen != nil && o.rng.Float64() < boltzmannProbability(chosenCost, o.temperature) {
			current.Apply(chosen.Changes)
			o.tabuList.Add(chosen.ReverseKey())

			if cpmodel.Better(current.Hard(), current.Soft(), best.Hard, best.Soft) {
				best.State.CopyFrom(current)
				best.Hard, best.Soft = current.Hard(), current.Soft()
				noImprovementCount = 0
			} else {
				noImprovementCount++
			}
		} else {
			noImprovementCount++
		}

		if o.config.StopOnPlateau && noImprovementCount >= o.config.PlateauThreshold {
			break
		}

		// 降温
		o.temperature *= o.config.CoolingRate
		if o.temperature < 1e-3 {
			o.temperature = 1e-3
		}
	}
	return best, noImprovementCount
}

// Construct 构造初始解：每组依次选取使目标最小的成员
func Construct(s *cpmodel.State) {
	c := s.Compiled()
	for g := 0; g < c.NumGroups(); g++ {
		bestVar := s.Active(g)
		var bestHard, bestSoft int64
		for _, v := range c.Group(g) {
			if v == s.Active(g) {
				continue
			}
			dh, ds := s.Delta(s.Reassign(g, v))
			if cpmodel.Better(dh, ds, bestHard, bestSoft) {
				bestVar, bestHard, bestSoft = v, dh, ds
			}
		}
		if bestVar != s.Active(g) {
			s.Apply(s.Reassign(g, bestVar))
		}
	}
	logger.Debug().
		Int64("hard", s.Hard()).
		Int64("soft", s.Soft()).
		Msg("初始解构造完成")
}

// moveKey 计算移动的哈希 (使用FNV-1a算法)
func moveKey(group int, v cpmodel.Var) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	putUint64(buf[:8], uint64(group))
	putUint64(buf[8:], uint64(v))
	h.Write(buf[:])
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0 // 更优解总是接受
	}
	if temperature <= 0 {
		return 0.0 // 温度为0时不接受更差的解
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键提高性能）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Len 禁忌表长度
func (t *TabuList) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}
