package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/antoninfaure/occupancy-scraper/internal/dto"
	"github.com/antoninfaure/occupancy-scraper/internal/service"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "执行一次同步并输出 JSON 报告",
	}

	run := func(kind dto.SyncKind, fn func(cmd *cobra.Command, svc service.SyncService) (*dto.SyncReport, error)) *cobra.Command {
		return &cobra.Command{
			Use:   string(kind),
			Short: fmt.Sprintf("同步 %s", kind),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				report, err := fn(cmd, a.svc.Sync)
				if report != nil {
					if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
						return werr
					}
				}
				return err
			},
		}
	}

	var from, to string
	events := run(dto.SyncEvents, func(cmd *cobra.Command, svc service.SyncService) (*dto.SyncReport, error) {
		start, end, err := eventWindow(from, to, opts.cfg.Sync.Location())
		if err != nil {
			return nil, err
		}
		return svc.SyncEvents(cmd.Context(), start, end)
	})
	events.Flags().StringVar(&from, "from", "", "窗口起始日期 2006-01-02（默认今天）")
	events.Flags().StringVar(&to, "to", "", "窗口结束日期 2006-01-02（默认起始日期后 7 天）")

	cmd.AddCommand(
		run(dto.SyncCourses, func(cmd *cobra.Command, svc service.SyncService) (*dto.SyncReport, error) {
			return svc.SyncCourses(cmd.Context())
		}),
		run(dto.SyncSchedules, func(cmd *cobra.Command, svc service.SyncService) (*dto.SyncReport, error) {
			return svc.SyncSchedules(cmd.Context())
		}),
		run(dto.SyncRooms, func(cmd *cobra.Command, svc service.SyncService) (*dto.SyncReport, error) {
			return svc.SyncRooms(cmd.Context())
		}),
		events,
		newSyncAllCommand(opts),
	)
	return cmd
}

// newSyncAllCommand 依次同步课程、课程安排与事件；未配置日历源时跳过事件
func newSyncAllCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "依次同步课程、课程安排与房间事件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			steps := []func() (*dto.SyncReport, error){
				func() (*dto.SyncReport, error) { return a.svc.Sync.SyncCourses(ctx) },
				func() (*dto.SyncReport, error) { return a.svc.Sync.SyncSchedules(ctx) },
				func() (*dto.SyncReport, error) {
					from, to, _ := eventWindow("", "", a.cfg.Sync.Location())
					return a.svc.Sync.SyncEvents(ctx, from, to)
				},
			}
			for _, step := range steps {
				report, err := step()
				if errors.Is(err, service.ErrFeedDisabled) {
					a.logger.Info("未配置房间日历源，跳过事件同步")
					continue
				}
				if report != nil {
					if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
						return werr
					}
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// ── 内部辅助方法 ──

// eventWindow 缺省 from 为今天零点，缺省 to 为 from 之后 7 天
func eventWindow(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	now := time.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if from != "" {
		d, err := time.ParseInLocation(time.DateOnly, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from 日期无效: %w", err)
		}
		start = d
	}
	end := start.AddDate(0, 0, 7)
	if to != "" {
		d, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to 日期无效: %w", err)
		}
		end = d
	}
	return start, end, nil
}

// writeJSON 以缩进 JSON 输出到标准输出（同步报告、学期信息）
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("输出结果失败: %w", err)
	}
	return nil
}
