package solver

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/builder"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
	"github.com/paiban/nurseshift/pkg/scheduler/optimizer"
)

// ModelSolver 约束模型求解器：构建模型、限时优化、提取结果
// 未得到可行解时交给贪心回退
type ModelSolver struct {
	config   *optimizer.OptimizationConfig
	fallback Solver
	logger   *logger.SchedulerLogger
}

// NewModelSolver 创建模型求解器
func NewModelSolver(config *optimizer.OptimizationConfig) *ModelSolver {
	return &ModelSolver{
		config:   config,
		fallback: NewGreedySolver(),
		logger:   logger.NewSchedulerLogger(),
	}
}

// WithoutFallback 关闭贪心回退，未得到可行解时返回 NO_FEASIBLE_SOLUTION
func (s *ModelSolver) WithoutFallback() *ModelSolver {
	s.fallback = nil
	return s
}

// Name 返回求解器名称
func (s *ModelSolver) Name() string {
	return "ModelSolver"
}

// Solve 求解
func (s *ModelSolver) Solve(ctx context.Context, in *builder.Input) (*Result, error) {
	start := time.Now()
	if err := checkInput(in); err != nil {
		return nil, err
	}
	id := runID(ctx)

	built, err := builder.Build(in)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	resp := &cpmodel.Response{Status: cpmodel.StatusOptimal}
	if built.Model.NumGroups() > 0 {
		resp = optimizer.NewIslandOptimizer(s.config).Solve(ctx, built.Model)
	}
	s.logger.SolverStatus(id, resp.Status.String(), resp.Objective, resp.Iterations, resp.Duration)

	if !resp.Status.Solved() {
		if s.fallback == nil {
			return nil, apperrors.NoFeasibleSolution(fmt.Sprintf("model status %s after %d iterations", resp.Status, resp.Iterations))
		}
		s.logger.FallbackUsed(id, resp.Status.String())
		result, err := s.fallback.Solve(ctx, in)
		if err != nil {
			return nil, err
		}
		result.Status = resp.Status
		result.Fallback = true
		result.Iterations = resp.Iterations
		result.Duration = time.Since(start)
		return result, nil
	}

	result := &Result{
		Unfilled:   append([]model.UnfilledSlot(nil), built.Immediate...),
		Status:     resp.Status,
		Objective:  resp.Objective,
		Iterations: resp.Iterations,
	}
	for _, sv := range built.Slots {
		if sv == nil {
			continue
		}
		slot := sv.Slot
		var chosen *builder.Candidate
		for i := range sv.Candidates {
			if resp.Value(sv.Candidates[i].Var) {
				chosen = &sv.Candidates[i]
				break
			}
		}
		if chosen == nil {
			result.Unfilled = append(result.Unfilled, model.UnfilledSlot{
				Day:         slot.Day,
				ServiceCode: slot.ServiceCode,
				ShiftCode:   slot.ShiftCode,
				Reason:      built.UnfilledReason(slot.Index),
			})
			continue
		}
		result.Entries = append(result.Entries, model.NewScheduleEntry(chosen.StaffID, in.Year, in.Month,
			slot.Day, slot.ServiceCode, slot.ShiftCode, model.SourceAuto))
	}

	finish(in, result)
	result.Duration = time.Since(start)
	return result, nil
}
