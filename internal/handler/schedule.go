package handler

import (
	"net/http"

	"github.com/paiban/nurseshift/internal/engine"
	"github.com/paiban/nurseshift/pkg/model"
)

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Group string `json:"group,omitempty"` // 空/ao/enf
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success bool `json:"success"`
	Partial bool `json:"partial"` // 存在未填补需求
	*engine.Result
}

// Generate 生成月度排班
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.engine.Generate(r.Context(), req.Year, req.Month, req.Group)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Partial: len(res.Unfilled) > 0,
		Result:  res,
	})
}

// StaffPeriodRequest 单人某月请求
type StaffPeriodRequest struct {
	StaffID int64 `json:"staff_id"`
	Year    int   `json:"year"`
	Month   int   `json:"month"`
}

// Recalc 重新核算单人统计
func (h *Handler) Recalc(w http.ResponseWriter, r *http.Request) {
	var req StaffPeriodRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	stat, err := h.engine.RecalcStaffStat(r.Context(), req.StaffID, req.Year, req.Month)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stat)
}

// UpdateCell 修改单元格
func (h *Handler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	var req engine.CellUpdate
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	res, err := h.engine.UpdateCell(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	if res.Entries == nil {
		res.Entries = []*model.ScheduleEntry{}
	}
	respondJSON(w, http.StatusOK, res)
}

// Clear 清空某月排班
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	year, month, group, err := periodQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := h.engine.ClearMonth(r.Context(), year, month, group)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
