package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/paiban/nurseshift/pkg/logger"
)

// RateLimiter 按客户端的滑动窗口限流器
type RateLimiter struct {
	requests  map[string][]time.Time // key -> 窗口内的请求时间
	limit     int                    // 时间窗口内最大请求数
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)
	if rl.lastSweep.IsZero() {
		rl.lastSweep = now
	}
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(windowStart)
		rl.lastSweep = now
	}

	valid := inWindow(rl.requests[key], windowStart)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// sweep 清理已过期的客户端
func (rl *RateLimiter) sweep(windowStart time.Time) {
	for key, reqs := range rl.requests {
		if valid := inWindow(reqs, windowStart); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func inWindow(reqs []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(reqs) && !reqs[i].After(windowStart) {
		i++
	}
	return reqs[i:]
}

// Handler 限流中间件，按客户端地址计数
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			logger.WithContext(r.Context()).Warn().
				Str("client", clientKey(r)).
				Str("path", r.URL.Path).
				Msg("请求过于频繁")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
