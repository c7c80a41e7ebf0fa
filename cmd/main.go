package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"GameSync/internal/api"
	"GameSync/internal/scheduler"
	"GameSync/internal/service"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gamesync",
		Short:         "游戏目录、价格、评论与榜单同步服务",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(jobsCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与定时任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "同步执行一个同步任务后退出",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runJob(ctx, args[0])
		},
	}
}

func jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "列出可执行的同步任务",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range (&service.Jobs{}).Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func runServe(ctx context.Context) error {
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	if app.cfg.Schedule.Enabled {
		sched := scheduler.New(ctx, app.jobs, logger)
		if err := sched.Register(scheduler.Entries(app.cfg.Schedule)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("定时任务已启动")
	}

	admin := api.NewAdminHandler(ctx, app.jobs, app.cfg.Admin.Key, logger)
	dashboard := api.NewDashboardHandler(app.dashboardCache, logger)
	router := api.NewRouter(app.cfg.Server.Mode, admin, dashboard)
	logger.Infof("Gin运行模式: %s", app.cfg.Server.Mode)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("服务启动成功，端口：%d", app.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("收到退出信号，正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runJob(ctx context.Context, name string) error {
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	if !app.jobs.Has(name) {
		return fmt.Errorf("未知任务: %s（可用: %s）", name, strings.Join(app.jobs.Names(), ", "))
	}
	app.jobs.Run(ctx, name)
	return nil
}
