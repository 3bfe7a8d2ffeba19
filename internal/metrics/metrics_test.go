package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHistogram_Buckets(t *testing.T) {
	r := NewRegistry()
	h := r.NewHistogram("test_duration_seconds", "测试", []string{"group"}, []float64{1, 5})
	h.Observe(0.5, "nurse")
	h.Observe(3, "nurse")
	h.Observe(10, "nurse")

	if got := h.Count("nurse"); got != 3 {
		t.Errorf("Count = %d, expected 3", got)
	}

	var buf bytes.Buffer
	r.WriteText(&buf)
	out := buf.String()

	for _, want := range []string{
		`test_duration_seconds_bucket{group="nurse",le="1"} 1`,
		`test_duration_seconds_bucket{group="nurse",le="5"} 2`,
		`test_duration_seconds_bucket{group="nurse",le="+Inf"} 3`,
		`test_duration_seconds_sum{group="nurse"} 13.5`,
		`test_duration_seconds_count{group="nurse"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("test_total", "测试", nil)
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %v, expected 3", c.Value())
	}

	g := r.NewGauge("test_gauge", "测试", []string{"period"})
	g.Set(5, "2025-03")
	g.Dec("2025-03")
	if g.Value("2025-03") != 4 {
		t.Errorf("gauge = %v, expected 4", g.Value("2025-03"))
	}

	var buf bytes.Buffer
	r.WriteText(&buf)
	if !strings.Contains(buf.String(), "test_total 3\n") {
		t.Errorf("unlabelled counter not rendered:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `test_gauge{period="2025-03"} 4`) {
		t.Errorf("labelled gauge not rendered:\n%s", buf.String())
	}
}

func TestRecordHelpers(t *testing.T) {
	RecordScheduleGeneration("", true, 2*time.Second)
	RecordSolverStatus("feasible", true, 1200)
	SetUnfilledSlots("2025-03", "nurse", 4)
	RecordViolations("unfilled", 4)
	RecordViolations("rest_warning", 0)

	reg := GetRegistry()
	if v := reg.GetCounter(GenerationTotal).Value("all", "success"); v < 1 {
		t.Errorf("generation counter = %v, expected >= 1", v)
	}
	if v := reg.GetCounter(SolverStatusTotal).Value("feasible", "true"); v < 1 {
		t.Errorf("solver status counter = %v, expected >= 1", v)
	}
	if v := reg.GetGauge(UnfilledSlots).Value("2025-03", "nurse"); v != 4 {
		t.Errorf("unfilled gauge = %v, expected 4", v)
	}
	if v := reg.GetCounter(ConstraintViolationsTotal).Value("rest_warning"); v != 0 {
		t.Errorf("zero violations should not be recorded, got %v", v)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# TYPE "+GenerationTotal+" counter") {
		t.Errorf("handler output missing generation counter")
	}
}
