package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/database"
	"github.com/paiban/nurseshift/pkg/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	conn, err := database.New(&config.DatabaseConfig{Driver: database.DriverSQLite, Name: "test", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.Migrate(context.Background()))
	return NewSQLStore(conn)
}

// stores 对每种实现运行同一组用例
func stores(t *testing.T, run func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { run(t, newSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { run(t, NewMemoryStore()) })
}

func intPtr(v int) *int { return &v }

func TestStaff(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ana := &model.Staff{
			ID: 2, Name: "Ana", Category: model.CategoryContracted,
			PermittedShifts: []string{"M1", "T1"}, NightEligible: true,
			MaxNightsPerMonth: 6, WeeklyHours: 40, BalanceMinutes: -30, DisplayOrder: 1,
		}
		rui := &model.Staff{ID: 1, Name: "Rui", Category: model.CategoryFlexPartTime, WeeklyHours: 20}
		require.NoError(t, s.SaveStaff(ctx, ana))
		require.NoError(t, s.SaveStaff(ctx, rui))

		got, err := s.GetStaff(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, ana, got)

		list, err := s.ListStaff(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(1), list[0].ID, "按ID升序")
		assert.Nil(t, list[0].PermittedShifts)

		require.NoError(t, s.UpdateBalance(ctx, 2, 90))
		got, err = s.GetStaff(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 90, got.BalanceMinutes)

		_, err = s.GetStaff(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.UpdateBalance(ctx, 99, 0), ErrNotFound)
	})
}

func TestCatalog(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveShift(ctx, model.ShiftDefinition{Code: "N1", Type: model.ShiftNight, StartMinute: 1320, EndMinute: 480}))
		require.NoError(t, s.SaveShift(ctx, model.ShiftDefinition{Code: "M1", Label: "Manhã", Type: model.ShiftMorning, StartMinute: 480, EndMinute: 960}))
		assert.Error(t, s.SaveShift(ctx, model.ShiftDefinition{Code: "X", Type: "Q"}))

		shifts, err := s.ListShifts(ctx)
		require.NoError(t, err)
		require.Len(t, shifts, 2)
		assert.Equal(t, "M1", shifts[0].Code)
		assert.Equal(t, 1320, shifts[1].StartMinute)

		require.NoError(t, s.SaveService(ctx, model.Service{Code: "TL", Name: "Long", Supersedes: []string{"TS", "LS"}}))
		require.NoError(t, s.SaveService(ctx, model.Service{Code: "AO", Role: model.RoleAssistant}))
		services, err := s.ListServices(ctx)
		require.NoError(t, err)
		require.Len(t, services, 2)
		assert.Equal(t, model.RoleAssistant, services[0].Role)
		assert.Equal(t, model.RoleNurse, services[1].Role, "默认护理角色")
		assert.Equal(t, []string{"TS", "LS"}, services[1].Supersedes)
	})
}

func TestPlan(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.SaveRequirement(ctx, &model.Requirement{Year: 2025, Month: 3, Day: 2, ServiceCode: "SAP", ShiftCode: "M1", Required: 1}))
		require.NoError(t, s.SaveRequirement(ctx, &model.Requirement{Year: 2025, Month: 3, Day: 1, ServiceCode: "SAP", ShiftCode: "M1", Required: 1}))
		require.NoError(t, s.SaveRequirement(ctx, &model.Requirement{Year: 2025, Month: 3, Day: 1, ServiceCode: "SAP", ShiftCode: "M1", Required: 3}))
		require.NoError(t, s.SaveRequirement(ctx, &model.Requirement{Year: 2025, Month: 4, Day: 1, ServiceCode: "SAP", ShiftCode: "M1", Required: 1}))
		reqs, err := s.ListRequirements(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, reqs, 2)
		assert.Equal(t, 1, reqs[0].Day)
		assert.Equal(t, 3, reqs[0].Required, "重复保存覆盖人数")

		require.NoError(t, s.SaveConstraint(ctx, model.ConstraintEntry{StaffID: 1, Year: 2025, Month: 3, Day: 5, Code: "VACATION"}))
		require.NoError(t, s.SaveConstraint(ctx, model.ConstraintEntry{StaffID: 1, Year: 2025, Month: 3, Day: 5, Code: "AVAILABLE_M"}))
		require.NoError(t, s.SaveConstraint(ctx, model.ConstraintEntry{StaffID: 1, Year: 2025, Month: 3, Day: 6, Code: "LEAVE"}))
		require.NoError(t, s.DeleteConstraint(ctx, 1, 2025, 3, 6))
		cons, err := s.ListConstraints(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, cons, 1)
		assert.Equal(t, "AVAILABLE_M", cons[0].Code)

		cfg, err := s.GetMonthConfig(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Nil(t, cfg, "未配置返回 nil")

		want := model.DefaultMonthConfig(2025, 3)
		want.RequestsHard = false
		want.Penalties.Request = 700
		require.NoError(t, s.SaveMonthConfig(ctx, want))
		cfg, err = s.GetMonthConfig(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Equal(t, want, cfg)

		require.NoError(t, s.SaveAdjustment(ctx, &model.MonthlyAdjustment{StaffID: 1, Year: 2025, Month: 3, ExtraMinutes: 60}))
		require.NoError(t, s.SaveAdjustment(ctx, &model.MonthlyAdjustment{StaffID: 2, Year: 2025, Month: 3, ReducedMinutes: 30}))
		require.NoError(t, s.DeleteAdjustments(ctx, 2025, 3, []int64{}))
		adjs, err := s.ListAdjustments(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Len(t, adjs, 2, "空人员列表不删除")

		require.NoError(t, s.DeleteAdjustments(ctx, 2025, 3, []int64{2}))
		adjs, err = s.ListAdjustments(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, adjs, 1)
		assert.Equal(t, 60, adjs[0].Net())

		require.NoError(t, s.DeleteAdjustments(ctx, 2025, 3, nil))
		adjs, err = s.ListAdjustments(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Empty(t, adjs)
	})
}

func TestScheduleEntries(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		locked := model.NewScheduleEntry(1, 2025, 3, 1, "SAP", "M1", model.SourceManual)
		locked.Locked = true
		auto := model.NewScheduleEntry(1, 2025, 3, 2, "SAP", "N1", model.SourceAuto)
		rest := model.NewScheduleEntry(1, 2025, 3, 3, model.RestServiceCode, model.RestShiftCode, model.SourceAutoRest)
		other := model.NewScheduleEntry(2, 2025, 3, 2, "SAP", "T1", model.SourceAuto)
		require.NoError(t, s.InsertEntries(ctx, []*model.ScheduleEntry{locked, auto, rest, other}))

		err := s.InsertEntries(ctx, []*model.ScheduleEntry{auto})
		assert.ErrorIs(t, err, ErrDuplicate)

		entries, err := s.ListEntries(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, locked.ID, entries[0].ID)
		assert.True(t, entries[0].Locked)
		assert.Equal(t, model.SourceManual, entries[0].Source)

		n, err := s.DeleteEntries(ctx, 2025, 3, []int64{1}, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "只删除人员1的未锁定记录")

		mine, err := s.ListStaffEntries(ctx, 1, 2025, 3)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, locked.ID, mine[0].ID)

		require.NoError(t, s.DeleteEntriesByID(ctx, []uuid.UUID{other.ID}))
		require.NoError(t, s.DeleteCell(ctx, 1, 2025, 3, 1))
		entries, err = s.ListEntries(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestStats(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		st, err := s.GetStat(ctx, 1, 2025, 3)
		require.NoError(t, err)
		assert.Nil(t, st)

		require.NoError(t, s.SaveStat(ctx, &model.StaffMonthStat{StaffID: 1, Year: 2025, Month: 3, TargetMinutes: intPtr(9600), ActualMinutes: 9000, DeltaMinutes: -600}))
		require.NoError(t, s.SaveStat(ctx, &model.StaffMonthStat{StaffID: 2, Year: 2025, Month: 3, ActualMinutes: 480, DeltaMinutes: 480}))
		require.NoError(t, s.SaveStat(ctx, &model.StaffMonthStat{StaffID: 1, Year: 2025, Month: 3, TargetMinutes: intPtr(9600), ActualMinutes: 9600, DeltaMinutes: 0}))

		stats, err := s.ListStats(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		require.NotNil(t, stats[0].TargetMinutes)
		assert.Equal(t, 9600, *stats[0].TargetMinutes)
		assert.Equal(t, 0, stats[0].DeltaMinutes, "保存覆盖旧统计")
		assert.Nil(t, stats[1].TargetMinutes, "无目标保持 nil")

		require.NoError(t, s.DeleteStats(ctx, 2025, 3, []int64{1}))
		stats, err = s.ListStats(ctx, 2025, 3)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, int64(2), stats[0].StaffID)
	})
}

func TestWithTx(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SaveStaff(ctx, &model.Staff{ID: 1, Name: "Ana", Category: model.CategoryContracted}))

		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx Store) error {
			require.NoError(t, tx.UpdateBalance(ctx, 1, 120))
			require.NoError(t, tx.InsertEntries(ctx, []*model.ScheduleEntry{
				model.NewScheduleEntry(1, 2025, 3, 1, "SAP", "M1", model.SourceAuto),
			}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetStaff(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, got.BalanceMinutes, "回滚后余额不变")
		entries, err := s.ListEntries(ctx, 2025, 3)
		require.NoError(t, err)
		assert.Empty(t, entries, "回滚后无记录")

		err = s.WithTx(ctx, func(tx Store) error {
			if err := tx.UpdateBalance(ctx, 1, 120); err != nil {
				return err
			}
			// 嵌套调用复用外层事务
			return tx.WithTx(ctx, func(inner Store) error {
				return inner.SaveStat(ctx, &model.StaffMonthStat{StaffID: 1, Year: 2025, Month: 3, DeltaMinutes: 120})
			})
		})
		require.NoError(t, err)

		got, err = s.GetStaff(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 120, got.BalanceMinutes)
		st, err := s.GetStat(ctx, 1, 2025, 3)
		require.NoError(t, err)
		require.NotNil(t, st)
		assert.Equal(t, 120, st.DeltaMinutes)
	})
}
