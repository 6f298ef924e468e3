package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/service"
)

func newSemesterCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semester",
		Short: "学期管理（写入学期定义、查询当前学期）",
	}
	cmd.AddCommand(
		newSemesterSeedCommand(opts),
		newSemesterImportCommand(opts),
		newSemesterCurrentCommand(opts),
	)
	return cmd
}

// newSemesterSeedCommand 按配置文件 semesters 段写入学期
func newSemesterSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "按配置中的 semesters 定义写入学期（按名称更新）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(opts.cfg.Semesters) == 0 {
				return errors.New("配置中没有 semesters 定义")
			}
			return withSemesters(opts, func(a *app, svc service.SemesterService) error {
				n, err := svc.Seed(cmd.Context(), opts.cfg.Semesters)
				if err != nil {
					return err
				}
				a.logger.Info("学期写入完成", zap.Int("count", n))
				return writeJSON(cmd.OutOrStdout(), dto.ImportResponse{Count: n})
			})
		},
	}
}

// newSemesterImportCommand 从 .xlsx 工作簿导入学期
func newSemesterImportCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "从 .xlsx 工作簿（semesters 工作表）导入学期",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开工作簿失败: %w", err)
			}
			defer f.Close()

			return withSemesters(opts, func(a *app, svc service.SemesterService) error {
				n, err := svc.ImportXLSX(cmd.Context(), f)
				if err != nil {
					return err
				}
				a.logger.Info("学期导入完成", zap.String("file", file), zap.Int("count", n))
				return writeJSON(cmd.OutOrStdout(), dto.ImportResponse{Count: n})
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "学期工作簿路径")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newSemesterCurrentCommand 输出当前或下一个学期
func newSemesterCurrentCommand(opts *rootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "current",
		Short: "查询当前或下一个学期",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *model.SemesterType
			if typ != "" {
				t := model.SemesterType(typ)
				if !t.Valid() {
					return fmt.Errorf("--type 必须是 fall/spring/year，实际=%s", typ)
				}
				filter = &t
			}
			return withSemesters(opts, func(_ *app, svc service.SemesterService) error {
				s, err := svc.CurrentOrNext(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if s == nil {
					return service.ErrSemesterNotFound
				}
				return writeJSON(cmd.OutOrStdout(), dto.ToSemesterResponse(s))
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "学期类型 fall|spring|year（默认不区分，year 除外）")
	return cmd
}

// ── 内部辅助方法 ──

func withSemesters(opts *rootOptions, fn func(a *app, svc service.SemesterService) error) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a, a.svc.Semester)
}
