package slots

import (
	"testing"

	"github.com/paiban/nurseshift/pkg/catalog"
	"github.com/paiban/nurseshift/pkg/model"
)

func testCatalog() *catalog.Snapshot {
	return catalog.MustNew([]model.ShiftDefinition{
		{Code: "M1", Type: model.ShiftMorning, StartMinute: 480, EndMinute: 900},
		{Code: "T1", Type: model.ShiftAfternoon, StartMinute: 900, EndMinute: 1320},
		{Code: "N1", Type: model.ShiftNight, StartMinute: 1320, EndMinute: 480},
		{Code: "L1", Type: model.ShiftLong, StartMinute: 480, EndMinute: 1200},
	}, []model.Service{
		{Code: "SAP", Role: model.RoleNurse, Supersedes: []string{"Ts", "Ls"}},
		{Code: "AO", Role: model.RoleAssistant},
	})
}

func req(day int, svc, shift string, n int) *model.Requirement {
	return &model.Requirement{Year: 2025, Month: 1, Day: day, ServiceCode: svc, ShiftCode: shift, Required: n}
}

func TestExpand_LockedSubtraction(t *testing.T) {
	snap := testCatalog()
	locked := NewLockedIndex(snap, 2025, 1, []*model.ScheduleEntry{
		{StaffID: 1, Day: 1, ServiceCode: "M1", ShiftCode: "M1", Locked: true},
	})
	exp := Expand(snap, 2025, 1, []*model.Requirement{
		req(1, "M1", "M1", 3),
		req(2, "N1", "N1", 1),
		req(1, "T1", "T1", 0),
	}, locked)

	if len(exp.Slots) != 3 {
		t.Fatalf("len(Slots) = %d, expected 3", len(exp.Slots))
	}
	for i, s := range exp.Slots {
		if s.Index != i {
			t.Errorf("slot %d has index %d", i, s.Index)
		}
	}
	if exp.Slots[0].Minutes != 420 || exp.Slots[0].Week != "2025-W01" {
		t.Errorf("unexpected slot %+v", exp.Slots[0])
	}
	if !exp.Slots[2].IsNight() || exp.Slots[2].Day != 2 {
		t.Errorf("最后一个应为 2 日夜班, got %+v", exp.Slots[2])
	}
	if len(exp.Days()) != 2 {
		t.Errorf("Days() = %v", exp.Days())
	}
}

func TestExpand_UnknownShift(t *testing.T) {
	exp := Expand(testCatalog(), 2025, 1, []*model.Requirement{req(3, "M1", "ZZ", 2)}, nil)
	if len(exp.Slots) != 0 {
		t.Errorf("未知班次不应产生班位")
	}
	if len(exp.Warnings) != 1 || exp.Warnings[0] != "Day 3 M1/ZZ: unknown shift code" {
		t.Errorf("Warnings = %v", exp.Warnings)
	}
}

func TestExpand_LongSuppressesSplit(t *testing.T) {
	exp := Expand(testCatalog(), 2025, 1, []*model.Requirement{
		req(5, "SAP", "L1", 1),
		req(5, "SAP", "M1", 1),
		req(5, "SAP", "N1", 1),
		req(5, "Ts", "T1", 1),
		req(5, "Ls", "M1", 1),
		req(6, "Ts", "T1", 1),
	}, nil)

	got := map[string]int{}
	for _, s := range exp.Slots {
		got[s.ServiceCode+"/"+s.ShiftCode]++
	}
	if got["SAP/L1"] != 1 || got["SAP/N1"] != 1 {
		t.Errorf("长班与夜班应保留: %v", got)
	}
	if got["SAP/M1"] != 0 || got["Ls/M1"] != 0 {
		t.Errorf("早班应被取代: %v", got)
	}
	if got["Ts/T1"] != 1 {
		t.Errorf("只保留 6 日的 Ts/T1: %v", got)
	}
}

func TestExpand_Role(t *testing.T) {
	exp := Expand(testCatalog(), 2025, 1, []*model.Requirement{req(1, "AO", "M1", 1), req(1, "M1", "M1", 1)}, nil)
	if exp.Slots[0].Role != model.RoleAssistant || exp.Slots[1].Role != model.RoleNurse {
		t.Errorf("Role 错误: %s %s", exp.Slots[0].Role, exp.Slots[1].Role)
	}
}

func TestLockedIndex(t *testing.T) {
	snap := testCatalog()
	idx := NewLockedIndex(snap, 2025, 1, []*model.ScheduleEntry{
		{StaffID: 1, Day: 6, ServiceCode: "N1", ShiftCode: "N1", Locked: true},
		{StaffID: 1, Day: 7, ServiceCode: model.RestServiceCode, ShiftCode: model.RestShiftCode, Locked: true},
		{StaffID: 1, Day: 8, ServiceCode: "M1", ShiftCode: "M1", Locked: true},
	})

	if idx.MonthMinutes(1) != 1020 {
		t.Errorf("MonthMinutes = %d, expected 1020", idx.MonthMinutes(1))
	}
	if idx.WeekMinutes(1, "2025-W02") != 1020 {
		t.Errorf("WeekMinutes = %d", idx.WeekMinutes(1, "2025-W02"))
	}
	if !idx.Night(snap, 1, 6) || idx.Night(snap, 1, 8) {
		t.Error("Night 判断错误")
	}
	if idx.Working(1, 7) || !idx.Has(1, 7) {
		t.Error("休息记录不算工作日但算锁定")
	}
	if idx.TypeCount(1, model.ShiftNight) != 1 || idx.Total(1) != 2 {
		t.Error("类别计数错误")
	}
}

func TestLockedIndex_RestConflict(t *testing.T) {
	snap := testCatalog()
	idx := NewLockedIndex(snap, 2025, 1, []*model.ScheduleEntry{
		{StaffID: 1, Day: 6, ServiceCode: "N1", ShiftCode: "N1", Locked: true},
		{StaffID: 1, Day: 7, ServiceCode: model.RestServiceCode, ShiftCode: model.RestShiftCode, Locked: true},
		{StaffID: 1, Day: 8, ServiceCode: "M1", ShiftCode: "M1", Locked: true},
		{StaffID: 1, Day: 12, ServiceCode: "SAP", ShiftCode: "T1", Locked: true},
	})
	const minRest = 11 * 60

	tests := []struct {
		name  string
		staff int64
		day   int
		shift string
		want  bool
	}{
		{"锁定夜班次日", 1, 7, "M1", true},
		{"次日锁定夜班前的夜班", 1, 5, "N1", true},
		{"次日锁定早班前的夜班", 1, 7, "N1", true},
		{"锁定早班次日早班", 1, 9, "M1", false},
		{"次日锁定午班前的夜班", 1, 11, "N1", true},
		{"次日锁定午班前的早班", 1, 11, "M1", false},
		{"锁定午班次日早班休息不足", 1, 13, "M1", true},
		{"锁定午班次日午班", 1, 13, "T1", false},
		{"其他人员不受影响", 2, 7, "M1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.RestConflict(snap, tt.staff, tt.day, tt.shift, minRest); got != tt.want {
				t.Errorf("RestConflict(%d, %d, %s) = %v, expected %v", tt.staff, tt.day, tt.shift, got, tt.want)
			}
		})
	}
}
