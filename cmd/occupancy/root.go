package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	applogger "github.com/antoninfaure/occupancy-scraper/pkg/logger"
)

// rootOptions 全局参数与 PersistentPreRunE 中初始化的公共依赖
type rootOptions struct {
	configFile string
	envFile    string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "occupancy",
		Short: "课程目录与教室占用同步工具",
		Long: `occupancy 抓取课程目录与课程安排页面，展开为具体时间段，
并以软删除方式与数据库中的课程、安排、教室与预订对账。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "配置文件路径（默认查找 ./config/config.yaml 与 ./config.yaml）")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "启动前加载的 .env 文件")

	root.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newSemesterCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

// setup 依次加载 .env、配置与日志
func (o *rootOptions) setup() error {
	if o.envFile != "" {
		// .env 不存在时只依赖环境变量，已设置的变量不会被覆盖
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}
