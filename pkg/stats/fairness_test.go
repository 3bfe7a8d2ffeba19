package stats

import (
	"math"
	"testing"

	"github.com/paiban/nurseshift/pkg/calendar"
	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

func testCatalog() *catalog.Snapshot {
	return catalog.MustNew([]model.ShiftDefinition{
		{Code: "M1", Type: model.ShiftMorning, StartMinute: 480, EndMinute: 960},
		{Code: "N1", Type: model.ShiftNight, StartMinute: 1320, EndMinute: 480},
	}, nil)
}

func testAnalyzer(t *testing.T) *FairnessAnalyzer {
	cal, err := calendar.NewMonth(2025, 1)
	if err != nil {
		t.Fatalf("NewMonth: %v", err)
	}
	return NewFairnessAnalyzer(testCatalog(), cal)
}

func entry(staffID int64, day int, shift string) *model.ScheduleEntry {
	return model.NewScheduleEntry(staffID, 2025, 1, day, "SAP", shift, model.SourceAuto)
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := testAnalyzer(t)
	staff := []*model.Staff{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Rui"}}

	entries := []*model.ScheduleEntry{
		entry(1, 6, "M1"),
		entry(1, 7, "M1"),
		entry(2, 6, "M1"),
		model.NewScheduleEntry(2, 2025, 1, 7, model.RestServiceCode, model.RestShiftCode, model.SourceAutoRest),
	}

	metrics := analyzer.Analyze(entries, staff)
	if metrics.WorkloadGini <= 0 || metrics.WorkloadGini > 1 {
		t.Errorf("Gini coefficient should be in (0, 1], got %f", metrics.WorkloadGini)
	}
	if len(metrics.StaffStats) != 2 {
		t.Fatalf("Expected 2 staff stats, got %d", len(metrics.StaffStats))
	}
	if metrics.StaffStats[0].StaffID != 1 || metrics.StaffStats[0].TotalHours != 16 {
		t.Errorf("first stat = %+v, expected Ana with 16 hours", metrics.StaffStats[0])
	}
	if metrics.MaxHours != 16 || metrics.MinHours != 8 {
		t.Errorf("range = %v..%v, expected 8..16", metrics.MinHours, metrics.MaxHours)
	}
	if metrics.ShiftTypeDistribution[model.ShiftMorning] != 100 {
		t.Errorf("morning share = %v, expected 100", metrics.ShiftTypeDistribution[model.ShiftMorning])
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	metrics := testAnalyzer(t).Analyze(nil, nil)
	if metrics == nil || metrics.OverallFairnessScore != 100 {
		t.Fatal("Should return full score for empty input")
	}
}

func TestFairnessAnalyzer_NightAndWeekend(t *testing.T) {
	analyzer := testAnalyzer(t)
	staff := []*model.Staff{{ID: 1}, {ID: 2}}

	// 2025-01-04 为周六
	entries := []*model.ScheduleEntry{
		entry(1, 4, "N1"),
		entry(2, 6, "N1"),
	}
	metrics := analyzer.Analyze(entries, staff)
	if metrics.NightShiftGini != 0 {
		t.Errorf("night gini = %f, expected 0", metrics.NightShiftGini)
	}
	if metrics.WeekendShiftGini != 0.5 {
		t.Errorf("weekend gini = %f, expected 0.5", metrics.WeekendShiftGini)
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"空", nil, 0},
		{"全零", []float64{0, 0}, 0},
		{"完全公平", []float64{8, 8, 8}, 0},
		{"一人承担", []float64{0, 0, 0, 10}, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gini(tt.values); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Gini(%v) = %f, expected %f", tt.values, got, tt.expected)
			}
		})
	}
}

func TestOverallScore(t *testing.T) {
	analyzer := testAnalyzer(t)
	metrics := analyzer.Analyze([]*model.ScheduleEntry{entry(1, 2, "M1")}, []*model.Staff{{ID: 1}, {ID: 2}, {ID: 3}})
	if metrics.OverallFairnessScore < 0 || metrics.OverallFairnessScore > 100 {
		t.Errorf("Score should be 0-100, got %f", metrics.OverallFairnessScore)
	}
	if metrics.OverallFairnessScore >= 100 {
		t.Error("一人承担全部班次时评分应低于满分")
	}
}
