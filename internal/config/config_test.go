package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nurseshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 20*time.Second, cfg.Solver.TimeLimit)
	assert.Equal(t, 8, cfg.Solver.Workers)
	assert.True(t, cfg.Solver.Fallback)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromPath(t *testing.T) {
	path := writeYAML(t, `
app:
  name: ward
  env: test
  port: 8080
  log_level: debug
database:
  driver: sqlite3
  name: ward
  path: /tmp/ward.db
  max_open_conns: 1
solver:
  time_limit: 5s
  workers: 2
  seed: 42
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "ward", cfg.App.Name)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "/tmp/ward.db", cfg.Database.DSN())

	opt := cfg.Solver.Optimization()
	assert.Equal(t, 5*time.Second, opt.MaxTime)
	assert.Equal(t, 2, opt.ParallelWorkers)
	assert.Equal(t, int64(42), opt.Seed)
	// 未出现在文件中的键保留默认值
	assert.Equal(t, 0.9995, opt.CoolingRate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeYAML(t, `
solver:
  workers: 2
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv("SOLVER_WORKERS", "4")
	t.Setenv("API_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("API_RATE_LIMIT", "0")
	t.Setenv("SOLVER_FALLBACK", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Solver.Workers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.CORS.Origins)
	assert.Zero(t, cfg.API.RateLimit, "0 关闭限流")
	assert.False(t, cfg.Solver.Fallback)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知驱动", func(c *Config) { c.Database.Driver = "mysql" }},
		{"未知日志级别", func(c *Config) { c.App.LogLevel = "verbose" }},
		{"零工作线程", func(c *Config) { c.Solver.Workers = 0 }},
		{"冷却率越界", func(c *Config) { c.Solver.CoolingRate = 1.5 }},
		{"sqlite 缺少路径", func(c *Config) {
			c.Database.Driver = "sqlite3"
			c.Database.Path = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFromPath_BadFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromPath(writeYAML(t, "app: [unclosed"))
	assert.Error(t, err)
}
