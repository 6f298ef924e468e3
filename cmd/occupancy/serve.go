package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/api/handler"
	"github.com/antoninfaure/occupancy-scraper/internal/api/middleware"
	"github.com/antoninfaure/occupancy-scraper/internal/api/router"
	"github.com/antoninfaure/occupancy-scraper/pkg/database"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动管理接口（学期查询与同步触发）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !skipMigrate {
				sqlDB, err := a.db.DB()
				if err != nil {
					return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
				}
				if err := database.RunMigrations(sqlDB, a.logger); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "启动时不执行数据库迁移")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	var limiter middleware.RateLimiter
	if a.rdb != nil {
		limiter = a.rdb
	}
	h := handler.NewHandler(a.svc, a.cfg.Sync.Location())
	engine := router.Setup(a.cfg, h, limiter, a.logger)

	// 同步在请求内执行，写超时需覆盖一次完整的课程安排同步
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: a.cfg.Sync.LockTTL,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("收到关闭信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("服务器关闭异常", zap.Error(err))
	}
	a.logger.Info("服务器已关闭")
	return nil
}
