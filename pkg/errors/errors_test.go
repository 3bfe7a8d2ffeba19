package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		err      *AppError
		expected int
	}{
		{InvalidInput("group", "unknown"), http.StatusBadRequest},
		{InvalidPeriod(2025, 13), http.StatusBadRequest},
		{NotFound("staff", "7"), http.StatusNotFound},
		{ScheduleConflict(7, 3, "overlap"), http.StatusConflict},
		{InvalidConfiguration("weights"), http.StatusUnprocessableEntity},
		{Database(sql.ErrConnDone, "load staff"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if got := GetHTTPStatus(tt.err); got != tt.expected {
				t.Errorf("status = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestWrapAndIs(t *testing.T) {
	err := fmt.Errorf("generate: %w", Database(sql.ErrTxDone, "commit"))

	if !Is(err, CodeDatabaseError) {
		t.Error("wrapped error should keep its code")
	}
	if GetCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("plain error should map to UNKNOWN")
	}

	conflict := ScheduleConflict(7, 3, "overlap")
	if conflict.Fields["staff_id"] != int64(7) || conflict.Fields["day"] != 3 {
		t.Errorf("fields = %v", conflict.Fields)
	}
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	if ve.HasErrors() {
		t.Fatal("empty set should have no errors")
	}
	ve.Add("month", "out of range")
	app := ve.ToAppError()
	if app.Code != CodeValidationFail || app.Fields["month"] != "out of range" {
		t.Errorf("unexpected app error %+v", app)
	}
}
