package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ── PostgreSQL 数组自定义类型 ──

// parsePGArray 将 PostgreSQL 数组文本 {a,b,c} 拆分为元素
// 仅处理不含引号与嵌套的一维数组（uuid、date 均满足）
func parsePGArray(src interface{}, typeName string) ([]string, bool, error) {
	if src == nil {
		return nil, true, nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return nil, false, fmt.Errorf("%s.Scan: unsupported type %T", typeName, src)
	}
	s = strings.Trim(s, "{}")
	if s == "" {
		return []string{}, false, nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts, false, nil
}

// StringArray 对应 PostgreSQL UUID[] / TEXT[] 类型，实现 GORM Scanner/Valuer 接口。
type StringArray []string

// Scan 将 PostgreSQL 返回的 {a,b} 文本解析为 []string。
func (a *StringArray) Scan(src interface{}) error {
	parts, isNull, err := parsePGArray(src, "StringArray")
	if err != nil {
		return err
	}
	if isNull {
		*a = nil
		return nil
	}
	*a = StringArray(parts)
	return nil
}

// Value 将 []string 序列化为 PostgreSQL {a,b} 文本。
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Equal 按顺序逐项比较
func (a StringArray) Equal(b StringArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DateArray 对应 PostgreSQL DATE[] 类型，元素均为 UTC 零点。
type DateArray []time.Time

const dateLayout = "2006-01-02"

// Scan 将 {2025-09-22,2025-10-13} 文本解析为日期列表。
func (a *DateArray) Scan(src interface{}) error {
	parts, isNull, err := parsePGArray(src, "DateArray")
	if err != nil {
		return err
	}
	if isNull {
		*a = nil
		return nil
	}
	arr := make(DateArray, 0, len(parts))
	for _, p := range parts {
		d, err := time.Parse(dateLayout, p)
		if err != nil {
			return fmt.Errorf("DateArray.Scan: invalid element %q: %w", p, err)
		}
		arr = append(arr, d)
	}
	*a = arr
	return nil
}

// Value 将日期列表序列化为 PostgreSQL {2025-09-22} 文本。
func (a DateArray) Value() (driver.Value, error) {
	parts := make([]string, len(a))
	for i, d := range a {
		parts[i] = d.Format(dateLayout)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Lifecycle 软删除标记与审计时间（所有同步实体嵌入）
// 不设置 gorm default 标签，保证 Available=false 也会被显式写入
type Lifecycle struct {
	Available bool      `gorm:"not null"                           json:"available"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Live 新建实体的生命周期字段
func Live() Lifecycle { return Lifecycle{Available: true} }
