package calendar

import (
	"testing"
	"time"
)

func TestMonth_BusinessDays(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		month    int
		expected int
	}{
		{"2025年1月", 2025, 1, 23},
		{"2025年2月", 2025, 2, 20},
		{"2024年2月闰年", 2024, 2, 21},
		{"2025年6月", 2025, 6, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMonth(tt.year, tt.month)
			if err != nil {
				t.Fatalf("NewMonth() error = %v", err)
			}
			if got := m.BusinessDays(); got != tt.expected {
				t.Errorf("BusinessDays() = %d, expected %d", got, tt.expected)
			}
			if got := m.countWeekdays(); got != tt.expected {
				t.Errorf("countWeekdays() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestMonth_WeekendPairs(t *testing.T) {
	// 2025年3月：1日周六，2日周日，31日周一
	m, _ := NewMonth(2025, 3)
	pairs := m.WeekendPairs()
	if len(pairs) != 5 {
		t.Fatalf("len(pairs) = %d, expected 5", len(pairs))
	}
	if pairs[0] != (WeekendPair{Saturday: 1, Sunday: 2}) {
		t.Errorf("first pair = %+v", pairs[0])
	}

	// 2025年5月：31日周六，没有对应周日
	m, _ = NewMonth(2025, 5)
	for _, p := range m.WeekendPairs() {
		if p.Saturday == 31 {
			t.Error("周日不在当月的周末不应返回")
		}
	}
}

func TestMonth_Basics(t *testing.T) {
	m, err := NewMonth(2025, 1)
	if err != nil {
		t.Fatal(err)
	}
	if m.Days() != 31 {
		t.Errorf("Days() = %d", m.Days())
	}
	if m.Weekday(1) != time.Wednesday {
		t.Errorf("Weekday(1) = %v", m.Weekday(1))
	}
	if !m.IsWeekend(4) || m.IsWeekend(6) {
		t.Error("IsWeekend 判断错误")
	}
	if m.ISOWeek(6) != "2025-W02" {
		t.Errorf("ISOWeek(6) = %s", m.ISOWeek(6))
	}
	if got := len(m.Windows(7)); got != 25 {
		t.Errorf("len(Windows(7)) = %d, expected 25", got)
	}
	if _, err := NewMonth(2025, 13); err == nil {
		t.Error("13月应返回错误")
	}
}
