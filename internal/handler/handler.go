// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/engine"
	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/internal/middleware"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
)

// HealthFunc 依赖健康检查
type HealthFunc func(ctx context.Context) error

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Handler 排班 API 处理器
type Handler struct {
	engine *engine.Engine
	health HealthFunc
	build  BuildInfo
}

// New 创建处理器，health 可为 nil
func New(eng *engine.Engine, health HealthFunc, build BuildInfo) *Handler {
	return &Handler{engine: eng, health: health, build: build}
}

// Router 组装路由
// 中间件执行顺序：requestID -> recoverer -> logging -> cors -> rateLimit -> timeout -> handler
func (h *Handler) Router(cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logging)
	if cfg.API.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.API.CORS.Origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.API.RateLimit > 0 && cfg.API.RateWindow > 0 {
			r.Use(middleware.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateWindow).Handler)
		}
		if cfg.API.Timeout > 0 {
			r.Use(chimw.Timeout(cfg.API.Timeout))
		}

		r.Route("/schedule", func(r chi.Router) {
			r.Post("/generate", h.Generate)
			r.Post("/recalc", h.Recalc)
			r.Put("/cell", h.UpdateCell)
			r.Delete("/", h.Clear)
		})
		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.MonthStats)
			r.Put("/target", h.OverrideTarget)
		})
		r.Get("/constraints/library", h.ConstraintLibrary)
		r.Route("/export", func(r chi.Router) {
			r.Get("/schedule", h.ExportSchedule)
			r.Get("/constraints", h.ExportConstraints)
		})
	})
	return r
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "nurseshift"})
}

// Version 版本信息
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.build)
}

// periodQuery 从查询参数读取 year/month/group
func periodQuery(r *http.Request) (year, month int, group string, err error) {
	q := r.URL.Query()
	year, err = strconv.Atoi(q.Get("year"))
	if err != nil {
		return 0, 0, "", apperrors.InvalidInput("year", "must be an integer")
	}
	month, err = strconv.Atoi(q.Get("month"))
	if err != nil {
		return 0, 0, "", apperrors.InvalidInput("month", "must be an integer")
	}
	return year, month, q.Get("group"), nil
}

// decode 解析JSON请求体
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应，非业务错误按内部错误处理
func respondError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == apperrors.CodeUnknown {
		err = apperrors.Wrap(err, apperrors.CodeInternal, "内部错误")
		code = apperrors.CodeInternal
	}
	body := map[string]interface{}{
		"error":   true,
		"code":    code,
		"message": err.Error(),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["message"] = appErr.Message
		if appErr.Details != "" {
			body["details"] = appErr.Details
		}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	}
	respondJSON(w, apperrors.GetHTTPStatus(err), body)
}
