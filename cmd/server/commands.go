package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/nurseshift/internal/handler"
	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/pkg/export"
	"github.com/paiban/nurseshift/pkg/logger"
)

// periodFlags 月份与分组参数
type periodFlags struct {
	year  int
	month int
	group string
}

func (p *periodFlags) register(cmd *cobra.Command) {
	now := time.Now()
	cmd.Flags().IntVarP(&p.year, "year", "y", now.Year(), "年份")
	cmd.Flags().IntVarP(&p.month, "month", "m", int(now.Month()), "月份 1-12")
	cmd.Flags().StringVarP(&p.group, "group", "g", "", "分组：空为全部，ao 运营助理，enf 护理")
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			h := handler.New(app.engine, app.db.Health, handler.BuildInfo{
				Version:   Version,
				BuildTime: BuildTime,
				GitCommit: GitCommit,
			})

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.App.Port),
				Handler:      h.Router(cfg),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: cfg.API.Timeout + 10*time.Second,
				IdleTimeout:  120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// 定期上报连接池状态
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						metrics.SetDBStats(app.db.Stats())
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Int("port", cfg.App.Port).
					Str("version", Version).
					Str("env", cfg.App.Env).
					Str("driver", app.db.Driver()).
					Msg("服务器启动")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("正在关闭服务器...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			logger.Info().Msg("服务器已关闭")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据库表结构",
		RunE: func(cmd *cobra.Command, args []string) error {
			// initApp 已执行迁移
			logger.Info().Str("driver", app.db.Driver()).Msg("数据库结构已是最新")
			return nil
		},
	}
}

func generateCmd() *cobra.Command {
	var p periodFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成月度排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.engine.Generate(cmd.Context(), p.year, p.month, p.group)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: status=%s fallback=%v entries=%d unfilled=%d (%s)\n",
				res.RunID, res.Status, res.Fallback, len(res.Entries), len(res.Unfilled), res.Duration.Round(time.Millisecond))
			for _, v := range res.Violations {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", v)
			}
			return nil
		},
	}
	p.register(cmd)
	return cmd
}

func recalcCmd() *cobra.Command {
	var (
		p       periodFlags
		staffID int64
	)
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "重新核算单个人员的月度统计",
		RunE: func(cmd *cobra.Command, args []string) error {
			stat, err := app.engine.RecalcStaffStat(cmd.Context(), staffID, p.year, p.month)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: actual=%sh delta=%sh bank=%sh\n",
				stat.Name, stat.ActualHours, stat.DeltaHours, stat.BankHours)
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().Int64Var(&staffID, "staff", 0, "人员ID")
	cmd.MarkFlagRequired("staff")
	return cmd
}

func clearCmd() *cobra.Command {
	var p periodFlags
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "清空月度排班并撤销余额变化",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.engine.ClearMonth(cmd.Context(), p.year, p.month, p.group)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries, reversed %d staff balances\n", res.Entries, res.Staff)
			return nil
		},
	}
	p.register(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		p           periodFlags
		dir         string
		constraints bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出排班（或约束）工作簿",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				name string
				err  error
			)
			if constraints {
				data, err = app.engine.ExportConstraints(cmd.Context(), p.year, p.month, p.group)
				name = export.ConstraintFilename(p.year, p.month)
			} else {
				data, err = app.engine.ExportSchedule(cmd.Context(), p.year, p.month, p.group)
				name = export.ScheduleFilename(p.year, p.month)
			}
			if err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write workbook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	p.register(cmd)
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "输出目录")
	cmd.Flags().BoolVar(&constraints, "constraints", false, "导出约束而非排班")
	return cmd
}
