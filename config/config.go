package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Database  DatabaseConfig       `mapstructure:"db"`
	Redis     RedisConfig          `mapstructure:"redis"`
	Log       LogConfig            `mapstructure:"log"`
	Sync      SyncConfig           `mapstructure:"sync"`
	Scraper   ScraperConfig        `mapstructure:"scraper"`
	Feed      FeedConfig           `mapstructure:"feed"`
	Rooms     RoomsConfig          `mapstructure:"rooms"`
	Normalize NormalizeConfig      `mapstructure:"normalize"`
	Semesters []SemesterDefinition `mapstructure:"semesters"`
}

// ServerConfig 管理接口 HTTP 服务配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	RateLimit    int           `mapstructure:"rate_limit"`        // 窗口内每个 IP 允许触发同步的次数
	RateWindow   time.Duration `mapstructure:"rate_limit_window"` // 速率限制窗口
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
	BatchSize       int    `mapstructure:"batch_size"`        // 批量插入每批行数
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（同步运行锁、速率限制）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SyncConfig 同步引擎配置
type SyncConfig struct {
	Timezone            string        `mapstructure:"timezone"`
	IOWorkers           int           `mapstructure:"io_workers"`
	CPUWorkers          int           `mapstructure:"cpu_workers"`
	ExcludedUnitSection string        `mapstructure:"excluded_unit_section"` // 行政豁免单元，空字符串表示不豁免
	LockTTL             time.Duration `mapstructure:"lock_ttl"`
}

// Location 解析同步时区，失败时回退 UTC
func (c *SyncConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ScraperConfig 课程页面抓取配置
type ScraperConfig struct {
	CatalogURL string        `mapstructure:"catalog_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	ExtraPages []string      `mapstructure:"extra_pages"` // 目录页之外需要额外收录的学习计划页
}

// FeedConfig 房间预订日历源配置
type FeedConfig struct {
	URLTemplate string        `mapstructure:"url_template"` // 支持 {room} {from} {to} 占位符
	MaxRetry    int           `mapstructure:"max_retry"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"` // 两次尝试之间的固定间隔
	Timeout     time.Duration `mapstructure:"timeout"`
	Workers     int           `mapstructure:"workers"`
}

// RoomsConfig 房间目录配置
type RoomsConfig struct {
	DirectoryFile string `mapstructure:"directory_file"`
}

// NormalizeConfig 规范化映射扩展（在内置映射之上追加）
// 别名使用列表而非 map：viper 会把 map 键统一转为小写，而房间名区分大小写
type NormalizeConfig struct {
	RoomAliases    []RoomAlias `mapstructure:"room_aliases"`
	RoomExclusions []string    `mapstructure:"room_exclusions"`
}

// RoomAlias 原始房间标签到规范房间名的映射（1:N）
type RoomAlias struct {
	Raw   string   `mapstructure:"raw"`
	Rooms []string `mapstructure:"rooms"`
}

// SemesterDefinition 学期定义（新学年开始时由运维提供）
type SemesterDefinition struct {
	Name      string   `mapstructure:"name"`
	StartDate string   `mapstructure:"start_date"` // "2025-09-08"
	EndDate   string   `mapstructure:"end_date"`
	Type      string   `mapstructure:"type"` // fall | spring | year
	SkipDates []string `mapstructure:"skip_dates"`
	Available bool     `mapstructure:"available"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_limit_window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "occupancy")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Zurich")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.batch_size", 500)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("sync.timezone", "Europe/Zurich")
	v.SetDefault("sync.io_workers", 32)
	v.SetDefault("sync.cpu_workers", runtime.NumCPU())
	v.SetDefault("sync.excluded_unit_section", "MAN")
	v.SetDefault("sync.lock_ttl", "2h")

	v.SetDefault("scraper.catalog_url", "https://edu.epfl.ch/")
	v.SetDefault("scraper.user_agent", "occupancy-scraper/1.0")
	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.extra_pages", []string{
		"https://edu.epfl.ch/studyplan/fr/bachelor/programme-sciences-humaines-et-sociales/",
		"https://edu.epfl.ch/studyplan/fr/master/programme-sciences-humaines-et-sociales/",
	})

	v.SetDefault("feed.url_template", "")
	v.SetDefault("feed.max_retry", 100)
	v.SetDefault("feed.retry_delay", "500ms")
	v.SetDefault("feed.timeout", "20s")
	v.SetDefault("feed.workers", 8)

	v.SetDefault("rooms.directory_file", "")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("OCCUPANCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Sync.IOWorkers <= 0 {
		return fmt.Errorf("配置校验失败: sync.io_workers 必须大于 0")
	}
	if c.Sync.CPUWorkers <= 0 {
		return fmt.Errorf("配置校验失败: sync.cpu_workers 必须大于 0")
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: sync.timezone 无效: %w", err)
	}
	if c.Feed.MaxRetry < 1 {
		return fmt.Errorf("配置校验失败: feed.max_retry 不能小于 1")
	}
	for i, s := range c.Semesters {
		if s.Name == "" {
			return fmt.Errorf("配置校验失败: semesters[%d].name 不能为空", i)
		}
		switch s.Type {
		case "fall", "spring", "year":
		default:
			return fmt.Errorf("配置校验失败: semesters[%d].type 必须是 fall/spring/year", i)
		}
	}
	return nil
}
