package optimizer

import (
	"context"
	"sync"
	"time"

	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
)

// IslandOptimizer 岛屿模型并行优化器
// 多个独立搜索并行进行，定期把全局最优解迁移到最差的岛屿
type IslandOptimizer struct {
	config *OptimizationConfig
}

// NewIslandOptimizer 创建岛屿模型优化器
func NewIslandOptimizer(config *OptimizationConfig) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &IslandOptimizer{config: config.normalize()}
}

// Island 岛屿（独立搜索）
type Island struct {
	ID        int
	Best      *Solution
	Current   *cpmodel.State
	Optimizer *LocalSearchOptimizer
	plateau   int
}

// Solve 在时间预算内求解模型
// 预处理发现不可行或建模错误时直接返回相应状态。
// 目标值达到 Model.ObjectiveLowerBound 时提前结束并报告 optimal；
// 否则只要无硬约束违反即为 feasible（局部搜索无法证明更优解不存在）

func (io *IslandOptimizer) Solve(ctx context.Context, m *cpmodel.Model) *cpmodel.Response {
	start := time.Now()
	cfg := io.config

	if status, err := m.Presolve(); status != cpmodel.StatusUnknown {
		logger.Warn().
			Err(err).
			Str("status", status.String()).
			Msg("模型预处理失败")
		return &cpmodel.Response{Status: status, Duration: time.Since(start)}
	}

	bound := m.ObjectiveLowerBound()
	compiled := m.Compile()
	initial := compiled.NewState(nil)
	Construct(initial)

	ctx, cancel := context.WithTimeout(ctx, cfg.MaxTime)
	defer cancel()

	islands := make([]*Island, cfg.ParallelWorkers)
	for i := range islands {
		islands[i] = &Island{
			ID:        i,
			Best:      NewSolution(initial),
			Current:   initial.Clone(),
			Optimizer: NewLocalSearchOptimizer(cfg, cfg.Seed+int64(i)),
		}
	}

	globalBest := NewSolution(initial)
	rounds := 0
	for {
		steps := cfg.MigrationInterval
		if left := cfg.MaxIterations - rounds*cfg.MigrationInterval; left < steps {
			steps = left
		}
		if steps <= 0 || globalBest.Hard == 0 && globalBest.Soft <= bound {
			break
		}

		io.runRound(ctx, islands, steps)
		rounds++

		worst := islands[0]
		for _, island := range islands {
			if island.Best.BetterThan(globalBest) {
				globalBest = island.Best.Clone()
			}
			if worst.Best.BetterThan(island.Best) {
				worst = island
			}
		}

		logger.Debug().
			Int("round", rounds).
			Int64("hard", globalBest.Hard).
			Int64("soft", globalBest.Soft).
			Msg("岛屿迭代完成")

		if ctx.Err() != nil || io.allPlateaued(islands) {
			break
		}

		// 迁移：全局最优覆盖最差岛屿
		if len(islands) > 1 && globalBest.BetterThan(worst.Best) {
			worst.Current.CopyFrom(globalBest.State)
			worst.Best = globalBest.Clone()
			worst.plateau = 0
		}
	}

	iterations := 0
	for _, island := range islands {
		iterations += island.Optimizer.Iterations()
	}

	status := cpmodel.StatusUnknown
	if globalBest.Feasible() {
		status = cpmodel.StatusFeasible
		if globalBest.Soft <= bound {
			status = cpmodel.StatusOptimal
		}
	}

	resp := globalBest.State.Response(status)
	resp.Iterations = iterations
	resp.Duration = time.Since(start)

	logger.Info().
		Str("status", status.String()).
		Int("islands", len(islands)).
		Int("iterations", iterations).
		Int64("hard", globalBest.Hard).
		Int64("objective", globalBest.Soft).
		Dur("elapsed", resp.Duration).
		Msg("岛屿模型优化完成")

	return resp
}

// runRound 并行运行所有岛屿一轮
func (io *IslandOptimizer) runRound(ctx context.Context, islands []*Island, steps int) {
	var wg sync.WaitGroup
	for _, island := range islands {
		if io.config.StopOnPlateau && island.plateau >= io.config.PlateauThreshold {
			continue
		}
		wg.Add(1)
		go func(island *Island) {
			defer wg.Done()

			before := island.Optimizer.Iterations()
			best, idle := island.Optimizer.Optimize(ctx, island.Current, island.Best, steps)
			island.Best = best
			if ran := island.Optimizer.Iterations() - before; idle < ran {
				island.plateau = idle
			} else {
				island.plateau += idle
			}
		}(island)
	}
	wg.Wait()
}

func (io *IslandOptimizer) allPlateaued(islands []*Island) bool {
	if !io.config.StopOnPlateau {
		return false
	}
	for _, island := range islands {
		if island.plateau < io.config.PlateauThreshold {
			return false
		}
	}
	return true
}
