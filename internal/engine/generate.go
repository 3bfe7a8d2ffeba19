package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/balance"
	"github.com/paiban/nurseshift/pkg/calendar"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/builder"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint"
	"github.com/paiban/nurseshift/pkg/scheduler/constraint/builtin"
	"github.com/paiban/nurseshift/pkg/scheduler/slots"
	"github.com/paiban/nurseshift/pkg/stats"
)

// Result 一次月度生成的结果
type Result struct {
	RunID      string                 `json:"run_id"`
	Year       int                    `json:"year"`
	Month      int                    `json:"month"`
	Group      model.Role             `json:"group,omitempty"`
	Entries    []*model.ScheduleEntry `json:"entries"` // 新生成的未锁定记录
	Unfilled   []model.UnfilledSlot   `json:"unfilled"`
	Violations []string               `json:"violations"`
	Stats      []model.StaffStat      `json:"stats"`
	Status     string                 `json:"status"`
	Fallback   bool                   `json:"fallback"`
	Fairness   *stats.FairnessMetrics `json:"fairness,omitempty"`
	Coverage   *stats.CoverageMetrics `json:"coverage,omitempty"`
	Duration   time.Duration          `json:"duration"`
}

// runInput 一次生成所需的全部已加载数据
type runInput struct {
	cfg         *model.MonthConfig
	scope       *scope
	reqs        []*model.Requirement
	avail       model.AvailabilityMap
	locked      []*model.ScheduleEntry
	adjustments map[int64]*model.MonthlyAdjustment
	previous    map[int64]*model.StaffMonthStat
}

// Generate 生成某月排班，group 为空时处理全部人员
// 只替换本分组人员的未锁定记录，其他分组的结果保持不变
func (e *Engine) Generate(ctx context.Context, year, month int, group string) (*Result, error) {
	start := time.Now()
	result, err := e.generate(ctx, year, month, group)
	metrics.RecordScheduleGeneration(group, err == nil, time.Since(start))
	return result, err
}

func (e *Engine) generate(ctx context.Context, year, month int, group string) (*Result, error) {
	start := time.Now()
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	role, err := parseGroup(group)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := logger.WithContext(ctx)

	snap, err := loadCatalog(ctx, e.store)
	if err != nil {
		return nil, err
	}
	in, err := e.loadRun(ctx, year, month, role, snap.ServiceRole)
	if err != nil {
		return nil, err
	}
	cal, err := calendar.NewMonth(year, month)
	if err != nil {
		return nil, apperrors.InvalidPeriod(year, month)
	}

	res := &Result{RunID: runID, Year: year, Month: month, Group: role, Violations: []string{}}

	// 非法的锁定组合整体移除，按未锁定继续
	detector := detectorFor(snap, in.cfg)
	repair := detector.RepairLocked(in.locked, in.scope.byID)
	res.Violations = append(res.Violations, repair.Messages...)
	for _, msg := range repair.Messages {
		e.log.ConstraintViolation("locked_repair", msg)
	}
	metrics.RecordViolations("locked_repair", len(repair.Messages))

	lockedIdx := slots.NewLockedIndex(snap, year, month, repair.Kept)
	expansion := slots.Expand(snap, year, month, in.reqs, lockedIdx)
	res.Violations = append(res.Violations, expansion.Warnings...)

	e.log.StartSchedule(runID, periodLabel(year, month), len(in.scope.staff), len(expansion.Slots))

	bin := &builder.Input{
		Year:        year,
		Month:       month,
		Catalog:     snap,
		Config:      in.cfg,
		Staff:       in.scope.staff,
		Expansion:   expansion,
		Locked:      lockedIdx,
		Manager:     builtin.NewDefaultManager(in.cfg),
		Context:     constraint.NewContext(snap, in.cfg, in.avail, repair.Kept),
		Adjustments: in.adjustments,
		Targets:     balance.Targets(in.scope.staff, cal, in.avail, in.adjustments),
		Role:        role,
	}
	solved, err := e.solver.Solve(ctx, bin)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNoFeasibleSolution) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "排班求解失败")
	}
	res.Entries = solved.Entries
	res.Unfilled = solved.Unfilled
	res.Status = solved.Status.String()
	res.Fallback = solved.Fallback
	metrics.RecordSolverStatus(res.Status, res.Fallback, solved.Iterations)

	monthEntries := make([]*model.ScheduleEntry, 0, len(repair.Kept)+len(solved.Entries))
	monthEntries = append(monthEntries, repair.Kept...)
	monthEntries = append(monthEntries, solved.Entries...)

	rec, err := balance.NewReconciler(snap, year, month)
	if err != nil {
		return nil, apperrors.InvalidPeriod(year, month)
	}
	changes := rec.Reconcile(balance.Input{
		Staff:        in.scope.staff,
		Entries:      monthEntries,
		Availability: in.avail,
		Adjustments:  in.adjustments,
		Previous:     in.previous,
	})

	if in.cfg.RestAfterNightRest {
		warnings := detector.RestWarnings(monthEntries, in.scope.byID)
		res.Violations = append(res.Violations, warnings...)
		metrics.RecordViolations("rest_warning", len(warnings))
	}
	for _, u := range res.Unfilled {
		res.Violations = append(res.Violations, u.Message())
	}
	metrics.RecordViolations("unfilled", len(res.Unfilled))

	err = e.store.WithTx(ctx, func(tx repository.Store) error {
		removed := make([]uuid.UUID, 0, len(repair.Removed))
		for _, r := range repair.Removed {
			removed = append(removed, r.ID)
		}
		if err := tx.DeleteEntriesByID(ctx, removed); err != nil {
			return err
		}
		if _, err := tx.DeleteEntries(ctx, year, month, in.scope.ids, true); err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, solved.Entries); err != nil {
			return err
		}
		return saveChanges(ctx, tx, changes)
	})
	if err != nil {
		return nil, apperrors.Database(err, "保存排班结果失败")
	}

	for _, c := range changes {
		res.Stats = append(res.Stats, model.NewStaffStat(c.Staff, c.Stat))
	}

	res.Fairness = stats.NewFairnessAnalyzer(snap, cal).Analyze(monthEntries, in.scope.staff)
	res.Coverage = stats.NewCoverageAnalyzer(snap).Analyze(in.reqs, monthEntries)
	label := periodLabel(year, month)
	metrics.SetUnfilledSlots(label, string(role), len(res.Unfilled))
	metrics.SetFairnessGini(label, "workload", res.Fairness.WorkloadGini)
	metrics.SetFairnessGini(label, "night", res.Fairness.NightShiftGini)
	metrics.SetCoverageRate(label, res.Coverage.OverallCoverage)

	res.Duration = time.Since(start)
	filled := 0
	if solved.Statistics != nil {
		filled = solved.Statistics.FilledSlots
	}
	e.log.ScheduleComplete(runID, res.Duration, filled, len(res.Unfilled))
	log.Debug().
		Float64("workload_gini", res.Fairness.WorkloadGini).
		Float64("night_gini", res.Fairness.NightShiftGini).
		Float64("coverage", res.Coverage.OverallCoverage).
		Int("violations", len(res.Violations)).
		Msg("排班质量指标")

	return res, nil
}

// loadRun 加载本分组的需求、约束、锁定记录、调整与上次统计
func (e *Engine) loadRun(ctx context.Context, year, month int, role model.Role, serviceRole func(string) model.Role) (*runInput, error) {
	cfg, err := loadMonthConfig(ctx, e.store, year, month)
	if err != nil {
		return nil, err
	}
	sc, err := loadScope(ctx, e.store, role)
	if err != nil {
		return nil, err
	}
	in := &runInput{
		cfg:         cfg,
		scope:       sc,
		adjustments: make(map[int64]*model.MonthlyAdjustment),
		previous:    make(map[int64]*model.StaffMonthStat),
	}

	reqs, err := e.store.ListRequirements(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载月度需求失败")
	}
	for _, r := range reqs {
		if role == "" || serviceRole(r.ServiceCode) == role {
			in.reqs = append(in.reqs, r)
		}
	}

	constraints, err := e.store.ListConstraints(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载约束失败")
	}
	scoped := make([]model.ConstraintEntry, 0, len(constraints))
	for _, c := range constraints {
		if sc.has(c.StaffID) {
			scoped = append(scoped, c)
		}
	}
	in.avail = model.NewAvailabilityMap(scoped)

	entries, err := e.store.ListEntries(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载排班记录失败")
	}
	for _, en := range entries {
		if en.Locked && sc.has(en.StaffID) {
			in.locked = append(in.locked, en)
		}
	}

	adjs, err := e.store.ListAdjustments(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载工时调整失败")
	}
	for _, a := range adjs {
		if sc.has(a.StaffID) {
			in.adjustments[a.StaffID] = a
		}
	}

	prev, err := e.store.ListStats(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载月度统计失败")
	}
	for _, st := range prev {
		if sc.has(st.StaffID) {
			in.previous[st.StaffID] = st
		}
	}
	return in, nil
}

// saveChanges 保存统计并更新变化的余额
func saveChanges(ctx context.Context, tx repository.Store, changes []balance.Change) error {
	for _, c := range changes {
		if c.Stat != nil {
			if err := tx.SaveStat(ctx, c.Stat); err != nil {
				return err
			}
		}
		if c.Changed() {
			if err := tx.UpdateBalance(ctx, c.Staff.ID, c.BalanceAfter); err != nil {
				return err
			}
		}
	}
	return nil
}
