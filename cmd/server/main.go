// NurseShift 护理排班引擎
// 主程序入口

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/database"
	"github.com/paiban/nurseshift/internal/engine"
	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// App 命令共享的依赖
type App struct {
	cfg    *config.Config
	db     *database.DB
	engine *engine.Engine
}

var (
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "nurseshift",
		Short:         "NurseShift 护理排班引擎",
		Long:          "按月为护理与运营助理人员生成排班，核算工时余额并导出工作簿。",
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.db != nil {
				app.db.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML 配置文件（默认读取环境变量）")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(recalcCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("命令执行失败")
		os.Exit(1)
	}
}

// initApp 加载配置、初始化日志与数据库、创建排班引擎
func initApp(ctx context.Context) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	format := "json"
	if cfg.App.LogPretty || cfg.IsDevelopment() {
		format = "console"
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.App.LogLevel
	logCfg.Format = format
	logger.Init(logCfg)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := repository.NewSQLStore(db)
	app = &App{
		cfg:    cfg,
		db:     db,
		engine: engine.New(store,
			engine.WithOptimization(cfg.Solver.Optimization()),
			engine.WithFallback(cfg.Solver.Fallback),
		),
	}
	return nil
}
