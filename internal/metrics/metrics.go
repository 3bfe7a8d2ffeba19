// Package metrics 提供Prometheus监控指标
package metrics

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名称
const (
	HTTPRequestsTotal         = "nurseshift_http_requests_total"
	HTTPRequestDuration       = "nurseshift_http_request_duration_seconds"
	GenerationTotal           = "nurseshift_schedule_generation_total"
	GenerationDuration        = "nurseshift_schedule_generation_duration_seconds"
	SolverStatusTotal         = "nurseshift_solver_status_total"
	OptimizerIterationsTotal  = "nurseshift_optimizer_iterations_total"
	UnfilledSlots             = "nurseshift_unfilled_slots"
	ConstraintViolationsTotal = "nurseshift_constraint_violations_total"
	FairnessGini              = "nurseshift_fairness_gini"
	CoverageRate              = "nurseshift_coverage_rate"
	DBConnections             = "nurseshift_db_connections"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// NewRegistry 创建空注册表
func NewRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
		registry.registerDefaults()
	})
	return registry
}

// registerDefaults 注册默认指标
func (r *MetricsRegistry) registerDefaults() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})

	r.NewCounter(GenerationTotal, "排班生成次数", []string{"group", "status"})
	// 求解时限默认 20 秒
	r.NewHistogram(GenerationDuration, "排班生成耗时",
		[]string{"group"},
		[]float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0, 60.0})

	r.NewCounter(SolverStatusTotal, "求解状态次数", []string{"status", "fallback"})
	r.NewCounter(OptimizerIterationsTotal, "优化器迭代次数", []string{})
	r.NewGauge(UnfilledSlots, "最近一次生成的未填补班位数", []string{"period", "group"})
	r.NewCounter(ConstraintViolationsTotal, "排班提示次数", []string{"kind"})
	r.NewGauge(FairnessGini, "公平性基尼系数", []string{"period", "metric_type"})
	r.NewGauge(CoverageRate, "班位覆盖率", []string{"period"})
	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Inc 增加
func (g *Gauge) Inc(labelValues ...string) {
	g.Add(1, labelValues...)
}

// Dec 减少
func (g *Gauge) Dec(labelValues ...string) {
	g.Add(-1, labelValues...)
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 只记录落入的第一个桶，输出时再累加
	idx := len(h.Buckets)
	for i, bucket := range h.Buckets {
		if value <= bucket {
			idx = i
			break
		}
	}
	h.counts[key][idx]++
	h.sums[key] += value
}

// Count 观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, n := range h.counts[labelKey(labelValues)] {
		total += n
	}
	return total
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, "\x1f")
}

func splitLabelKey(key string, n int) []string {
	if n == 0 {
		return nil
	}
	vals := strings.Split(key, "\x1f")
	for len(vals) < n {
		vals = append(vals, "")
	}
	return vals
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	vals := splitLabelKey(key, len(names))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%q", name, vals[i])
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func series(name string, labels []string, key, extra string) string {
	l := ""
	if len(labels) > 0 {
		l = formatLabels(labels, key)
	}
	if extra != "" {
		if l != "" {
			l += ","
		}
		l += extra
	}
	if l == "" {
		return name
	}
	return name + "{" + l + "}"
}

// WriteText 以Prometheus文本格式输出，按名称排序
func (r *MetricsRegistry) WriteText(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedKeys(c.values) {
			fmt.Fprintf(w, "%s %g\n", series(c.Name, c.Labels, key, ""), c.values[key])
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedKeys(g.values) {
			fmt.Fprintf(w, "%s %g\n", series(g.Name, g.Labels, key, ""), g.values[key])
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedKeys(h.counts) {
			counts := h.counts[key]
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				le := "le=\"" + strconv.FormatFloat(bucket, 'g', -1, 64) + "\""
				fmt.Fprintf(w, "%s %d\n", series(h.Name+"_bucket", h.Labels, key, le), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(w, "%s %d\n", series(h.Name+"_bucket", h.Labels, key, `le="+Inf"`), cumulative)
			fmt.Fprintf(w, "%s %g\n", series(h.Name+"_sum", h.Labels, key, ""), h.sums[key])
			fmt.Fprintf(w, "%s %d\n", series(h.Name+"_count", h.Labels, key, ""), cumulative)
		}
		h.mu.RUnlock()
	}
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		GetRegistry().WriteText(w)
	})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	registry := GetRegistry()

	if counter := registry.GetCounter(HTTPRequestsTotal); counter != nil {
		counter.Inc(method, path, strconv.Itoa(status))
	}
	if histogram := registry.GetHistogram(HTTPRequestDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), method, path)
	}
}

// RecordScheduleGeneration 记录排班生成指标
func RecordScheduleGeneration(group string, success bool, duration time.Duration) {
	registry := GetRegistry()

	status := "success"
	if !success {
		status = "failure"
	}
	if group == "" {
		group = "all"
	}

	if counter := registry.GetCounter(GenerationTotal); counter != nil {
		counter.Inc(group, status)
	}
	if histogram := registry.GetHistogram(GenerationDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), group)
	}
}

// RecordSolverStatus 记录求解状态与迭代次数
func RecordSolverStatus(status string, fallback bool, iterations int) {
	registry := GetRegistry()

	if counter := registry.GetCounter(SolverStatusTotal); counter != nil {
		counter.Inc(status, strconv.FormatBool(fallback))
	}
	if counter := registry.GetCounter(OptimizerIterationsTotal); counter != nil && iterations > 0 {
		counter.Add(float64(iterations))
	}
}

// RecordViolations 记录排班提示，kind 如 unfilled、locked_repair、rest_warning
func RecordViolations(kind string, n int) {
	if n <= 0 {
		return
	}
	if counter := GetRegistry().GetCounter(ConstraintViolationsTotal); counter != nil {
		counter.Add(float64(n), kind)
	}
}

// SetUnfilledSlots 设置未填补班位数
func SetUnfilledSlots(period, group string, n int) {
	if group == "" {
		group = "all"
	}
	if gauge := GetRegistry().GetGauge(UnfilledSlots); gauge != nil {
		gauge.Set(float64(n), period, group)
	}
}

// SetFairnessGini 设置公平性基尼系数
func SetFairnessGini(period, metricType string, gini float64) {
	if gauge := GetRegistry().GetGauge(FairnessGini); gauge != nil {
		gauge.Set(gini, period, metricType)
	}
}

// SetCoverageRate 设置覆盖率
func SetCoverageRate(period string, rate float64) {
	if gauge := GetRegistry().GetGauge(CoverageRate); gauge != nil {
		gauge.Set(rate, period)
	}
}

// SetDBStats 记录连接池状态
func SetDBStats(stats sql.DBStats) {
	gauge := GetRegistry().GetGauge(DBConnections)
	if gauge == nil {
		return
	}
	gauge.Set(float64(stats.OpenConnections), "open")
	gauge.Set(float64(stats.InUse), "in_use")
	gauge.Set(float64(stats.Idle), "idle")
}
