// Package config 提供配置管理
//
// 加载顺序：.env（若存在）→ NURSESHIFT_CONFIG 指定的 YAML 文件 → 环境变量覆盖 → 校验。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paiban/nurseshift/pkg/scheduler/optimizer"
)

// EnvConfigFile 指定 YAML 配置文件路径的环境变量
const EnvConfigFile = "NURSESHIFT_CONFIG"

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Solver   SolverConfig   `yaml:"solver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Env       string `yaml:"env" validate:"oneof=development test production"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogPretty bool   `yaml:"log_pretty"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" validate:"oneof=postgres sqlite3"`
	Host            string        `yaml:"host" validate:"required_if=Driver postgres"`
	Port            int           `yaml:"port" validate:"min=0,max=65535"`
	Name            string        `yaml:"name" validate:"required"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	Path            string        `yaml:"path" validate:"required_if=Driver sqlite3"` // sqlite 文件路径
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	SlowQuery       time.Duration `yaml:"slow_query"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  int           `yaml:"rate_limit" validate:"min=0"` // 每个客户端每窗口请求数，0 表示不限
	RateWindow time.Duration `yaml:"rate_window"`
	CORS       CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SolverConfig 求解器配置
type SolverConfig struct {
	TimeLimit         time.Duration `yaml:"time_limit"`
	Workers           int           `yaml:"workers" validate:"min=1,max=64"`
	MaxIterations     int           `yaml:"max_iterations" validate:"min=1"`
	PlateauThreshold  int           `yaml:"plateau_threshold" validate:"min=0"`
	InitialTemp       float64       `yaml:"initial_temp" validate:"gt=0"`
	CoolingRate       float64       `yaml:"cooling_rate" validate:"gt=0,lt=1"`
	TabuSize          int           `yaml:"tabu_size" validate:"min=0"`
	NeighborhoodSize  int           `yaml:"neighborhood_size" validate:"min=1"`
	MigrationInterval int           `yaml:"migration_interval" validate:"min=0"`
	Seed              int64         `yaml:"seed"`
	Fallback          bool          `yaml:"fallback"` // 关闭后无可行解直接报错
}

// Optimization 转换为优化器配置
func (c SolverConfig) Optimization() *optimizer.OptimizationConfig {
	cfg := optimizer.DefaultOptConfig()
	cfg.MaxTime = c.TimeLimit
	cfg.ParallelWorkers = c.Workers
	cfg.MaxIterations = c.MaxIterations
	cfg.PlateauThreshold = c.PlateauThreshold
	cfg.StopOnPlateau = c.PlateauThreshold > 0
	cfg.InitialTemp = c.InitialTemp
	cfg.CoolingRate = c.CoolingRate
	cfg.TabuSize = c.TabuSize
	cfg.NeighborhoodSize = c.NeighborhoodSize
	cfg.MigrationInterval = c.MigrationInterval
	cfg.Seed = c.Seed
	return cfg
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

var validate = validator.New()

// Default 返回默认配置
func Default() *Config {
	opt := optimizer.DefaultOptConfig()
	return &Config{
		App: AppConfig{
			Name:     "nurseshift",
			Env:      "development",
			Port:     7012,
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Name:            "nurseshift",
			User:            "nurseshift",
			SSLMode:         "disable",
			Path:            "nurseshift.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			SlowQuery:       100 * time.Millisecond,
		},
		API: APIConfig{
			Timeout:    60 * time.Second,
			RateLimit:  120,
			RateWindow: time.Minute,
			CORS: CORSConfig{
				Enabled: true,
				Origins: []string{"*"},
			},
		},
		Solver: SolverConfig{
			TimeLimit:         opt.MaxTime,
			Workers:           opt.ParallelWorkers,
			MaxIterations:     opt.MaxIterations,
			PlateauThreshold:  opt.PlateauThreshold,
			InitialTemp:       opt.InitialTemp,
			CoolingRate:       opt.CoolingRate,
			TabuSize:          opt.TabuSize,
			NeighborhoodSize:  opt.NeighborhoodSize,
			MigrationInterval: opt.MigrationInterval,
			Fallback:          true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置
func Load() (*Config, error) {
	// .env 缺失不是错误
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath 从指定 YAML 文件加载（不读取环境变量），用于命令行 --config
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Port = getEnvInt("APP_PORT", cfg.App.Port)
	cfg.App.LogLevel = getEnv("APP_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogPretty = getEnvBool("APP_LOG_PRETTY", cfg.App.LogPretty)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", cfg.Database.SSLMode)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.SlowQuery = getEnvDuration("DB_SLOW_QUERY", cfg.Database.SlowQuery)

	cfg.API.Timeout = getEnvDuration("API_TIMEOUT", cfg.API.Timeout)
	cfg.API.RateLimit = getEnvInt("API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.RateWindow = getEnvDuration("API_RATE_WINDOW", cfg.API.RateWindow)
	cfg.API.CORS.Enabled = getEnvBool("API_CORS_ENABLED", cfg.API.CORS.Enabled)
	cfg.API.CORS.Origins = getEnvList("API_CORS_ORIGINS", cfg.API.CORS.Origins)

	cfg.Solver.TimeLimit = getEnvDuration("SOLVER_TIME_LIMIT", cfg.Solver.TimeLimit)
	cfg.Solver.Workers = getEnvInt("SOLVER_WORKERS", cfg.Solver.Workers)
	cfg.Solver.MaxIterations = getEnvInt("SOLVER_MAX_ITERATIONS", cfg.Solver.MaxIterations)
	cfg.Solver.PlateauThreshold = getEnvInt("SOLVER_PLATEAU", cfg.Solver.PlateauThreshold)
	cfg.Solver.InitialTemp = getEnvFloat("SOLVER_INITIAL_TEMP", cfg.Solver.InitialTemp)
	cfg.Solver.CoolingRate = getEnvFloat("SOLVER_COOLING_RATE", cfg.Solver.CoolingRate)
	cfg.Solver.TabuSize = getEnvInt("SOLVER_TABU_SIZE", cfg.Solver.TabuSize)
	cfg.Solver.NeighborhoodSize = getEnvInt("SOLVER_NEIGHBORHOOD_SIZE", cfg.Solver.NeighborhoodSize)
	cfg.Solver.MigrationInterval = getEnvInt("SOLVER_MIGRATION_INTERVAL", cfg.Solver.MigrationInterval)
	cfg.Solver.Seed = int64(getEnvInt("SOLVER_SEED", int(cfg.Solver.Seed)))
	cfg.Solver.Fallback = getEnvBool("SOLVER_FALLBACK", cfg.Solver.Fallback)

	cfg.Metrics.Enabled = getEnvBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Path = getEnv("METRICS_PATH", cfg.Metrics.Path)
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
