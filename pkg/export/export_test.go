package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/nurseshift/pkg/model"
)

func fixtureStaff() []*model.Staff {
	return []*model.Staff{
		{ID: 2, Name: "Rui", Category: model.CategoryFlexFullTime, WeeklyHours: 40},
		{ID: 1, Name: "Ana", Category: model.CategoryContracted, WeeklyHours: 40, BalanceMinutes: 90},
	}
}

func TestScheduleWorkbook(t *testing.T) {
	target := 11040
	locked := model.NewScheduleEntry(1, 2025, 1, 2, "SAP", "M1", model.SourceManual)
	locked.Locked = true
	data := &ScheduleData{
		Year:  2025,
		Month: 1,
		Staff: fixtureStaff(),
		Entries: []*model.ScheduleEntry{
			locked,
			model.NewScheduleEntry(1, 2025, 1, 2, "UCI", "T1", model.SourceAuto),
			model.NewScheduleEntry(2, 2025, 1, 3, "SAP", "N1", model.SourceAuto),
			model.NewScheduleEntry(2, 2025, 1, 4, model.RestServiceCode, model.RestShiftCode, model.SourceAutoRest),
		},
		Stats: map[int64]*model.StaffMonthStat{
			1: {StaffID: 1, Year: 2025, Month: 1, TargetMinutes: &target, ActualMinutes: 900, DeltaMinutes: 900 - target},
		},
		Unfilled: []model.UnfilledSlot{{Day: 5, ServiceCode: "SAP", ShiftCode: "N1", Reason: "no eligible staff"}},
	}

	out, err := ScheduleWorkbook(data)
	if err != nil {
		t.Fatalf("ScheduleWorkbook: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("workbook should not be empty")
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	// 合同类排在弹性类之前
	if v, _ := f.GetCellValue("Schedule", "A3"); v != "Ana" {
		t.Errorf("A3 = %q, expected Ana", v)
	}
	// 第 2 天位于第 4 列
	if v, _ := f.GetCellValue("Schedule", "D3"); v != "M1*/T1" {
		t.Errorf("D3 = %q, expected M1*/T1", v)
	}
	if v, _ := f.GetCellValue("Schedule", "F4"); v != "D" {
		t.Errorf("F4 = %q, expected D", v)
	}
	if v, _ := f.GetCellValue("Unfilled", "D2"); v != "no eligible staff" {
		t.Errorf("Unfilled D2 = %q", v)
	}
}

func TestConstraintWorkbook(t *testing.T) {
	out, err := ConstraintWorkbook(&ConstraintData{
		Year:  2025,
		Month: 2,
		Staff: fixtureStaff(),
		Constraints: []model.ConstraintEntry{
			{StaffID: 2, Day: 28, Code: "VACATION"},
		},
	})
	if err != nil {
		t.Fatalf("ConstraintWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	// 第 28 天位于第 30 列 (AD)
	if v, _ := f.GetCellValue("Constraints", "AD4"); v != "VACATION" {
		t.Errorf("AD4 = %q, expected VACATION", v)
	}
}

func TestWorkbook_NoStaff(t *testing.T) {
	if _, err := ScheduleWorkbook(&ScheduleData{Year: 2025, Month: 1}); !errors.Is(err, ErrNoStaff) {
		t.Errorf("expected ErrNoStaff, got %v", err)
	}
	if _, err := ConstraintWorkbook(&ConstraintData{Year: 2025, Month: 1}); !errors.Is(err, ErrNoStaff) {
		t.Errorf("expected ErrNoStaff, got %v", err)
	}
}
