package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antoninfaure/occupancy-scraper/pkg/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "应用所有未执行的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.NewDB(&opts.cfg.Database, opts.cfg.Log.Level, opts.logger)
			if err != nil {
				return err
			}
			defer closeDB(db)

			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			return database.RunMigrations(sqlDB, opts.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚指定步数的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.NewDB(&opts.cfg.Database, opts.cfg.Log.Level, opts.logger)
			if err != nil {
				return err
			}
			defer closeDB(db)

			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			return database.RollbackMigrations(sqlDB, steps, opts.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚步数")

	cmd.AddCommand(up, down)
	return cmd
}
