package constraints

import (
	"testing"

	"github.com/paiban/nurseshift/pkg/model"
)

func TestGetLibrary(t *testing.T) {
	cfg := model.DefaultMonthConfig(2025, 3)
	cfg.Penalties.Unfilled = 9000

	lib := GetLibrary(cfg)
	if len(lib.Rules) != 10 {
		t.Fatalf("rules = %d, expected 10", len(lib.Rules))
	}
	for i := 1; i < len(lib.Rules); i++ {
		if lib.Rules[i-1].Order > lib.Rules[i].Order {
			t.Errorf("rules not sorted by order: %v", lib.Rules)
		}
	}
	for _, r := range lib.Rules {
		if r.Description == "" {
			t.Errorf("rule %s has no description", r.Name)
		}
	}
	if lib.Rules[0].Name != "coordinator" {
		t.Errorf("first rule = %s, expected coordinator", lib.Rules[0].Name)
	}

	unfilled := lib.Penalties[0]
	if unfilled.Default != 5000 || unfilled.Current != 9000 {
		t.Errorf("unfilled penalty = %+v", unfilled)
	}
	if len(lib.Codes) != 8 || lib.Codes[0].Kind != "blocking" {
		t.Errorf("codes = %+v", lib.Codes)
	}
}

func TestGetLibrary_RequestOffSoft(t *testing.T) {
	tests := []struct {
		name     string
		hard     bool
		expected string
	}{
		{"休息申请为硬规则", true, "hard"},
		{"休息申请为软规则", false, "soft"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultMonthConfig(2025, 3)
			cfg.RequestsHard = tt.hard
			lib := GetLibrary(cfg)
			last := lib.Rules[len(lib.Rules)-1]
			if last.Name != "request_off" || last.Type != tt.expected {
				t.Errorf("request_off rule = %+v, expected type %s", last, tt.expected)
			}
		})
	}
}
