package logger

import (
	"testing"

	gormlogger "gorm.io/gorm/logger"

	"github.com/antoninfaure/occupancy-scraper/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "info", Format: format})
		if err != nil {
			t.Fatalf("format=%s 应成功: %v", format, err)
		}
		if l == nil {
			t.Fatalf("format=%s 返回 nil", format)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "verbose", Format: "json"}); err == nil {
		t.Fatal("无效级别应返回错误")
	}
}

func TestNewGormLogger_Level(t *testing.T) {
	l, _ := NewLogger(&config.LogConfig{Level: "info", Format: "json"})

	cases := map[string]gormlogger.LogLevel{
		"debug": gormlogger.Info,
		"info":  gormlogger.Warn,
		"error": gormlogger.Error,
	}
	for in, want := range cases {
		if got := NewGormLogger(l, in).level; got != want {
			t.Errorf("level=%s: 期望 %d, 实际 %d", in, want, got)
		}
	}

	silent := NewGormLogger(l, "info").LogMode(gormlogger.Silent).(*GormLogger)
	if silent.level != gormlogger.Silent {
		t.Errorf("LogMode 应返回新级别的副本")
	}
}
