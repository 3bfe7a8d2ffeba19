package model

import "testing"

func TestParseAvailability(t *testing.T) {
	tests := []struct {
		code  string
		kind  AvailabilityKind
		types ShiftTypeSet
	}{
		{"", AvailabilityDefault, 0},
		{"VACATION", AvailabilityBlocking, 0},
		{"leave", AvailabilityBlocking, 0},
		{"AVAILABLE", AvailabilityAvailableFor, AllShiftTypes},
		{"AVAILABLE_MT", AvailabilityAvailableFor, NewShiftTypeSet(ShiftMorning, ShiftAfternoon)},
		{"UNAVAILABLE_N", AvailabilityUnavailableFor, NewShiftTypeSet(ShiftNight)},
		{"UNAVAILABLE", AvailabilityUnavailableFor, AllShiftTypes},
		{"HOLIDAY_WORKED", AvailabilityAvailableFor, AllShiftTypes},
		{"REQUEST_REST_OFF", AvailabilityRequestOff, 0},
		{"SOMETHING", AvailabilityUnrecognized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			a := ParseAvailability(tt.code)
			if a.Kind != tt.kind {
				t.Errorf("Kind = %v, expected %v", a.Kind, tt.kind)
			}
			if a.Types != tt.types {
				t.Errorf("Types = %s, expected %s", a.Types, tt.types)
			}
		})
	}
}

func TestResolveAvailability(t *testing.T) {
	def := Availability{Kind: AvailabilityDefault}

	tests := []struct {
		name     string
		category Category
		allows   bool
		forbids  bool
	}{
		{"全职合同默认可用", CategoryContracted, true, false},
		{"全职弹性默认可用", CategoryFlexFullTime, true, false},
		{"兼职合同默认不可用", CategoryContractedPartTime, false, true},
		{"兼职弹性默认不可用", CategoryFlexPartTime, false, true},
		{"协调员默认不可用", CategoryCoordinator, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ResolveAvailability(def, tt.category)
			if got := a.Allows(ShiftMorning); got != tt.allows {
				t.Errorf("Allows(M) = %v, expected %v", got, tt.allows)
			}
			if got := a.Forbids(ShiftMorning); got != tt.forbids {
				t.Errorf("Forbids(M) = %v, expected %v", got, tt.forbids)
			}
		})
	}

	explicit := ParseAvailability("AVAILABLE_N")
	if got := ResolveAvailability(explicit, CategoryFlexPartTime); got != explicit {
		t.Error("显式约束不应被覆盖")
	}
}

func TestStaff_AllowsDoubleShift(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		a, b     ShiftType
		expected bool
	}{
		{"合同早午", CategoryContracted, ShiftMorning, ShiftAfternoon, true},
		{"合同午早", CategoryContractedPartTime, ShiftAfternoon, ShiftMorning, true},
		{"合同早夜", CategoryContracted, ShiftMorning, ShiftNight, false},
		{"助理午长", CategoryOperationalAssistant, ShiftAfternoon, ShiftLong, false},
		{"弹性早夜", CategoryFlexFullTime, ShiftMorning, ShiftNight, true},
		{"同类不允许", CategoryFlexFullTime, ShiftMorning, ShiftMorning, false},
		{"空类别不允许", CategoryFlexFullTime, "", ShiftMorning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Staff{Category: tt.category}
			if got := s.AllowsDoubleShift(tt.a, tt.b); got != tt.expected {
				t.Errorf("AllowsDoubleShift(%s, %s) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestStaff_Permits(t *testing.T) {
	s := &Staff{}
	if !s.Permits("N1") {
		t.Error("空列表应允许全部班次")
	}
	s.PermittedShifts = []string{"M1", "T1"}
	if !s.Permits("M1") || s.Permits("N1") {
		t.Error("应只允许列表内班次")
	}
}

func TestParseGroup(t *testing.T) {
	if r, err := ParseGroup("AO"); err != nil || r != RoleAssistant {
		t.Errorf("ParseGroup(AO) = %v, %v", r, err)
	}
	if r, err := ParseGroup("enf"); err != nil || r != RoleNurse {
		t.Errorf("ParseGroup(enf) = %v, %v", r, err)
	}
	if r, err := ParseGroup(""); err != nil || r != "" {
		t.Errorf("ParseGroup('') = %v, %v", r, err)
	}
	if _, err := ParseGroup("doctors"); err == nil {
		t.Error("未知分组应返回错误")
	}
}

func TestNewStaffStat(t *testing.T) {
	target := 9600
	s := &Staff{ID: 1, Name: "A", BalanceMinutes: 90}
	stat := &StaffMonthStat{StaffID: 1, TargetMinutes: &target, ActualMinutes: 9720, DeltaMinutes: 120}

	out := NewStaffStat(s, stat)
	if out.PreviousBankMinutes != -30 {
		t.Errorf("PreviousBankMinutes = %d, expected -30", out.PreviousBankMinutes)
	}
	if out.DeltaHours.String() != "2" {
		t.Errorf("DeltaHours = %s, expected 2", out.DeltaHours)
	}
	if out.BankHours.String() != "1.5" {
		t.Errorf("BankHours = %s, expected 1.5", out.BankHours)
	}
}
