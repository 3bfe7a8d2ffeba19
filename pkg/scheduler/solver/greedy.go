package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/builder"
	"github.com/paiban/nurseshift/pkg/scheduler/cpmodel"
	"github.com/paiban/nurseshift/pkg/scheduler/slots"
)

// GreedySolver 贪心求解器
// 按 (日期, 服务, 班次) 顺序逐个班位选择已分配最少的合格人员，不支持双班
type GreedySolver struct {
	logger *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{
		logger: logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// greedyScore 候选人排序键：违反申请、已分配数、人员ID 依次升序
type greedyScore struct {
	request int
	total   int
	id      int64
}

func (a greedyScore) less(b greedyScore) bool {
	if a.request != b.request {
		return a.request < b.request
	}
	if a.total != b.total {
		return a.total < b.total
	}
	return a.id < b.id
}

// Solve 使用贪心算法生成排班
func (s *GreedySolver) Solve(ctx context.Context, in *builder.Input) (*Result, error) {
	start := time.Now()
	if err := checkInput(in); err != nil {
		return nil, err
	}

	totals := make(map[int64]int, len(in.Staff))
	for _, st := range in.Staff {
		totals[st.ID] = in.Locked.Total(st.ID)
	}
	assigned := make(map[model.StaffDay]string)

	result := &Result{Status: cpmodel.StatusFeasible}
	for _, slot := range in.Expansion.Slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var best *model.Staff
		var bestScore greedyScore
		for _, st := range in.Staff {
			cand := in.Context.NewCandidate(st, slot.Day, slot.ShiftCode)
			d := in.Manager.Evaluate(in.Context, cand)
			if !d.Eligible {
				continue
			}
			if !s.available(in, slot, st, assigned) {
				continue
			}
			score := greedyScore{total: totals[st.ID], id: st.ID}
			if d.RequestViolation {
				score.request = 1
			}
			if best == nil || score.less(bestScore) {
				best, bestScore = st, score
			}
		}

		if best == nil {
			result.Unfilled = append(result.Unfilled, model.UnfilledSlot{
				Day:         slot.Day,
				ServiceCode: slot.ServiceCode,
				ShiftCode:   slot.ShiftCode,
				Reason:      reasonFallback,
			})
			continue
		}

		assigned[model.StaffDay{StaffID: best.ID, Day: slot.Day}] = slot.ShiftCode
		totals[best.ID]++
		result.Entries = append(result.Entries, model.NewScheduleEntry(best.ID, in.Year, in.Month,
			slot.Day, slot.ServiceCode, slot.ShiftCode, model.SourceAuto))
	}

	finish(in, result)
	result.Duration = time.Since(start)
	if len(result.Unfilled) > 0 {
		s.logger.ConstraintViolation("fallback", fmt.Sprintf("%d slots unfilled", len(result.Unfilled)))
	}
	return result, nil
}

// available 同日只分配一次，夜班次日不上班，相邻两日满足最小休息（含锁定记录）
func (s *GreedySolver) available(in *builder.Input, slot *slots.Slot, st *model.Staff, assigned map[model.StaffDay]string) bool {
	day := slot.Day
	if assigned[model.StaffDay{StaffID: st.ID, Day: day}] != "" {
		return false
	}
	minRest := in.Config.MinRestMinutes()
	if in.Locked.RestConflict(in.Catalog, st.ID, day, slot.ShiftCode, minRest) {
		return false
	}
	if prev := assigned[model.StaffDay{StaffID: st.ID, Day: day - 1}]; prev != "" {
		if in.Catalog.IsNight(prev) || in.Catalog.RestMinutes(prev, slot.ShiftCode) < minRest {
			return false
		}
	}
	if next := assigned[model.StaffDay{StaffID: st.ID, Day: day + 1}]; next != "" {
		if slot.IsNight() || in.Catalog.RestMinutes(slot.ShiftCode, next) < minRest {
			return false
		}
	}
	return true
}
