package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

func testCatalog() *catalog.Snapshot {
	return catalog.MustNew([]model.ShiftDefinition{
		{Code: "M1", Type: model.ShiftMorning, StartMinute: 480, EndMinute: 900},
		{Code: "N1", Type: model.ShiftNight, StartMinute: 1320, EndMinute: 480},
	}, nil)
}

func january(t *testing.T) *calendar.Month {
	cal, err := calendar.NewMonth(2025, 1)
	require.NoError(t, err)
	return cal
}

func TestTargetMinutes(t *testing.T) {
	cal := january(t)
	avail := model.NewAvailabilityMap([]model.ConstraintEntry{
		{StaffID: 2, Day: 6, Code: "VACATION"},
		{StaffID: 2, Day: 7, Code: "VACATION"},
		{StaffID: 3, Day: 1, Code: "HOLIDAY_WORKED"},
	})

	tests := []struct {
		name     string
		staff    *model.Staff
		adj      *model.MonthlyAdjustment
		expected *int
	}{
		{"40 小时", &model.Staff{ID: 1, WeeklyHours: 40}, nil, intPtr(11040)},
		{"35 小时", &model.Staff{ID: 1, WeeklyHours: 35}, nil, intPtr(9660)},
		{"37 小时", &model.Staff{ID: 1, WeeklyHours: 37}, nil, intPtr(10212)},
		{"两天休假", &model.Staff{ID: 2, WeeklyHours: 40}, nil, intPtr(10080)},
		{"旧数据节假日上班", &model.Staff{ID: 3, WeeklyHours: 40}, nil, intPtr(10560)},
		{"登记节假日上班", &model.Staff{ID: 1, WeeklyHours: 40}, &model.MonthlyAdjustment{HolidaysWorked: 2}, intPtr(10080)},
		{"未配置周工时", &model.Staff{ID: 1}, nil, nil},
		{"不为负", &model.Staff{ID: 1, WeeklyHours: 1}, &model.MonthlyAdjustment{HolidaysWorked: 10}, intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TargetMinutes(tt.staff, cal, avail, tt.adj)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	snap := testCatalog()
	r, err := NewReconciler(snap, 2025, 1)
	require.NoError(t, err)

	s := &model.Staff{ID: 1, WeeklyHours: 40, BalanceMinutes: 100}
	entries := []*model.ScheduleEntry{
		model.NewScheduleEntry(1, 2025, 1, 2, "SAP", "M1", model.SourceAuto),
		model.NewScheduleEntry(1, 2025, 1, 3, "SAP", "N1", model.SourceAuto),
		model.NewScheduleEntry(1, 2025, 1, 4, model.RestServiceCode, model.RestShiftCode, model.SourceAutoRest),
	}
	adjs := map[int64]*model.MonthlyAdjustment{1: {StaffID: 1, ExtraMinutes: 60, ReducedMinutes: 20}}

	first := r.Reconcile(Input{Staff: []*model.Staff{s}, Entries: entries, Adjustments: adjs})
	require.Len(t, first, 1)
	stat := first[0].Stat
	assert.Equal(t, 11040, *stat.TargetMinutes)
	assert.Equal(t, 420+600+40, stat.ActualMinutes)
	assert.Equal(t, 1060-11040, stat.DeltaMinutes)
	assert.Equal(t, 100+stat.DeltaMinutes, s.BalanceMinutes)
	assert.True(t, first[0].Changed())

	second := r.Reconcile(Input{
		Staff:       []*model.Staff{s},
		Entries:     entries,
		Adjustments: adjs,
		Previous:    map[int64]*model.StaffMonthStat{1: stat},
	})
	assert.False(t, second[0].Changed(), "重复核算不应改变余额")
	assert.Equal(t, 100+stat.DeltaMinutes, s.BalanceMinutes)
}

func TestReconcile_NoWeeklyHours(t *testing.T) {
	r, err := NewReconciler(testCatalog(), 2025, 1)
	require.NoError(t, err)

	s := &model.Staff{ID: 5}
	changes := r.Reconcile(Input{
		Staff:   []*model.Staff{s},
		Entries: []*model.ScheduleEntry{model.NewScheduleEntry(5, 2025, 1, 2, "SAP", "M1", model.SourceAuto)},
	})
	assert.Nil(t, changes[0].Stat.TargetMinutes)
	assert.Equal(t, 420, changes[0].Stat.DeltaMinutes)
	assert.Equal(t, 420, s.BalanceMinutes)
}

func TestOverrideTargetAndReverse(t *testing.T) {
	s := &model.Staff{ID: 1, BalanceMinutes: -500}
	previous := &model.StaffMonthStat{StaffID: 1, Year: 2025, Month: 1, TargetMinutes: intPtr(1000), ActualMinutes: 500, DeltaMinutes: -500}

	c := OverrideTarget(s, previous, 2025, 1, 400)
	assert.Equal(t, 100, c.Stat.DeltaMinutes)
	assert.Equal(t, 100, s.BalanceMinutes)
	assert.Equal(t, -500, c.BalanceBefore)
	assert.Equal(t, 1000, *previous.TargetMinutes, "原记录不应被修改")

	r := Reverse(s, c.Stat)
	assert.Equal(t, 0, s.BalanceMinutes)
	assert.Equal(t, 100, r.BalanceBefore)
}

func intPtr(v int) *int { return &v }
