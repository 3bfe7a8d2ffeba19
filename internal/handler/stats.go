package handler

import (
	"fmt"
	"net/http"

	"github.com/paiban/nurseshift/internal/constraints"
	"github.com/paiban/nurseshift/pkg/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MonthStats 某月人员工时统计
func (h *Handler) MonthStats(w http.ResponseWriter, r *http.Request) {
	year, month, group, err := periodQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	stats, err := h.engine.MonthStats(r.Context(), year, month, group)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"year":  year,
		"month": month,
		"stats": stats,
	})
}

// TargetRequest 手工目标请求
type TargetRequest struct {
	StaffPeriodRequest
	TargetMinutes int `json:"target_minutes"`
}

// OverrideTarget 手工设置目标工时
func (h *Handler) OverrideTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	stat, err := h.engine.OverrideStatTarget(r.Context(), req.StaffID, req.Year, req.Month, req.TargetMinutes)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stat)
}

// ConstraintLibrary 返回某月生效的资格规则、惩罚权重与约束代码
func (h *Handler) ConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	year, month, _, err := periodQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	cfg, err := h.engine.MonthConfig(r.Context(), year, month)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, constraints.GetLibrary(cfg))
}

// ExportSchedule 下载排班工作簿
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	year, month, group, err := periodQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	data, err := h.engine.ExportSchedule(r.Context(), year, month, group)
	if err != nil {
		respondError(w, err)
		return
	}
	respondFile(w, export.ScheduleFilename(year, month), data)
}

// ExportConstraints 下载约束工作簿
func (h *Handler) ExportConstraints(w http.ResponseWriter, r *http.Request) {
	year, month, group, err := periodQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	data, err := h.engine.ExportConstraints(r.Context(), year, month, group)
	if err != nil {
		respondError(w, err)
		return
	}
	respondFile(w, export.ConstraintFilename(year, month), data)
}

func respondFile(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
