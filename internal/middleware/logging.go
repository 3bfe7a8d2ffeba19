// Package middleware 提供HTTP中间件
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/paiban/nurseshift/internal/metrics"
	apperrors "github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
)

// RequestContext 把 chi 生成的请求ID写入日志上下文，并回写到响应头
// 需挂在 chimw.RequestID 之后
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimw.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set(chimw.RequestIDHeader, requestID)
		}
		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging 记录请求日志与请求指标
// 指标的 path 标签使用路由模式，避免按ID膨胀
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		event := logger.WithContext(r.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = logger.WithContext(r.Context()).Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", duration).
			Msg("请求处理")

		metrics.RecordRequestMetrics(r.Method, path, status, duration)
	})
}

// Recoverer 捕获 panic 并返回统一的 JSON 错误
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.WithContext(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("请求处理异常")
				err := apperrors.New(apperrors.CodeInternal, "内部错误")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(err.HTTPStatus)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   true,
					"code":    err.Code,
					"message": err.Message,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
