// Package engine 编排一次月度排班：加载数据、修复锁定记录、展开班位、
// 求解、核算工时余额并在同一事务中持久化
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	playvalidator "github.com/go-playground/validator/v10"

	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/catalog"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/optimizer"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
	"github.com/paiban/nurseshift/pkg/validator"
)

// Engine 排班引擎
// 写操作串行执行，同一时刻只有一次生成或修改在进行
type Engine struct {
	mu       sync.Mutex
	store    repository.Store
	opt      *optimizer.OptimizationConfig
	solver   solver.Solver
	validate *playvalidator.Validate
	log      *logger.SchedulerLogger
	noGreedy bool
}

// Option 引擎选项
type Option func(*Engine)

// WithOptimization 设置优化器参数
func WithOptimization(cfg *optimizer.OptimizationConfig) Option {
	return func(e *Engine) { e.opt = cfg }
}

// WithFallback 无可行解时是否回退到贪心分配（默认开启）
func WithFallback(enabled bool) Option {
	return func(e *Engine) { e.noGreedy = !enabled }
}

// WithSolver 替换求解器
func WithSolver(s solver.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// New 创建排班引擎
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		opt:      optimizer.DefaultOptConfig(),
		validate: playvalidator.New(),
		log:      logger.NewSchedulerLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.solver == nil {
		ms := solver.NewModelSolver(e.opt)
		if e.noGreedy {
			ms.WithoutFallback()
		}
		e.solver = ms
	}
	return e
}

// Store 返回底层仓储
func (e *Engine) Store() repository.Store { return e.store }

func (e *Engine) checkPeriod(year, month int) error {
	if err := e.validate.Struct(model.Period{Year: year, Month: month}); err != nil {
		return apperrors.InvalidPeriod(year, month)
	}
	return nil
}

// parseGroup 解析分组过滤参数
func parseGroup(group string) (model.Role, error) {
	role, err := model.ParseGroup(group)
	if err != nil {
		return "", apperrors.InvalidInput("group", err.Error())
	}
	return role, nil
}

// loadCatalog 每次运行重建班次目录快照
func loadCatalog(ctx context.Context, store repository.Store) (*catalog.Snapshot, error) {
	shifts, err := store.ListShifts(ctx)
	if err != nil {
		return nil, apperrors.Database(err, "加载班次定义失败")
	}
	services, err := store.ListServices(ctx)
	if err != nil {
		return nil, apperrors.Database(err, "加载服务定义失败")
	}
	snap, err := catalog.New(shifts, services)
	if err != nil {
		return nil, apperrors.InvalidConfiguration(err.Error())
	}
	return snap, nil
}

// loadMonthConfig 无配置记录时使用默认值
func loadMonthConfig(ctx context.Context, store repository.Store, year, month int) (*model.MonthConfig, error) {
	cfg, err := store.GetMonthConfig(ctx, year, month)
	if err != nil {
		return nil, apperrors.Database(err, "加载月度配置失败")
	}
	if cfg == nil {
		return model.DefaultMonthConfig(year, month), nil
	}
	return cfg, nil
}

func detectorFor(snap *catalog.Snapshot, cfg *model.MonthConfig) *validator.ConflictDetector {
	dc := validator.DefaultDetectorConfig()
	dc.MinRestHours = cfg.MinRestHours
	return validator.NewConflictDetector(snap, dc)
}

// scope 本次操作涉及的人员
type scope struct {
	role  model.Role
	staff []*model.Staff // 按ID升序
	byID  map[int64]*model.Staff
	ids   []int64 // 无分组过滤时为 nil
}

func (s *scope) has(id int64) bool {
	_, ok := s.byID[id]
	return ok
}

func loadScope(ctx context.Context, store repository.Store, role model.Role) (*scope, error) {
	all, err := store.ListStaff(ctx)
	if err != nil {
		return nil, apperrors.Database(err, "加载人员失败")
	}
	sc := &scope{role: role, byID: make(map[int64]*model.Staff, len(all))}
	if role != "" {
		sc.ids = []int64{}
	}
	for _, s := range all {
		if role != "" && s.Category.Role() != role {
			continue
		}
		sc.staff = append(sc.staff, s)
		sc.byID[s.ID] = s
		if role != "" {
			sc.ids = append(sc.ids, s.ID)
		}
	}
	model.SortStaffByID(sc.staff)
	return sc, nil
}

func loadStaff(ctx context.Context, store repository.Store, staffID int64) (*model.Staff, error) {
	s, err := store.GetStaff(ctx, staffID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("staff", fmt.Sprint(staffID))
	}
	if err != nil {
		return nil, apperrors.Database(err, "加载人员失败")
	}
	return s, nil
}

func periodLabel(year, month int) string {
	return model.Period{Year: year, Month: month}.String()
}

// MonthConfig 返回某月配置，无记录时为默认值
func (e *Engine) MonthConfig(ctx context.Context, year, month int) (*model.MonthConfig, error) {
	if err := e.checkPeriod(year, month); err != nil {
		return nil, err
	}
	return loadMonthConfig(ctx, e.store, year, month)
}
