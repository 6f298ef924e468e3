// Package feed 读取房间预订日历源（iCalendar over HTTP）。
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
)

const (
	maxFeedSize    = 5 * 1024 * 1024 // 5MB
	defaultTimeout = 20 * time.Second
	feedDateLayout = "2006-01-02"
)

// RoomEvent 房间日历中的一次预订
type RoomEvent struct {
	Room  string // 日历 LOCATION，缺省为查询的房间名
	Name  string
	Start time.Time
	End   time.Time
}

// Client 房间日历源客户端
type Client struct {
	http        *http.Client
	urlTemplate string
	maxRetry    int
	retryDelay  time.Duration
	loc         *time.Location
	logger      *zap.Logger
}

// NewClient 创建 Client 实例
func NewClient(cfg *config.FeedConfig, loc *time.Location, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetry := cfg.MaxRetry
	if maxRetry < 1 {
		maxRetry = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		urlTemplate: cfg.URLTemplate,
		maxRetry:    maxRetry,
		retryDelay:  cfg.RetryDelay,
		loc:         loc,
		logger:      logger,
	}
}

// Enabled 是否配置了日历源地址
func (c *Client) Enabled() bool {
	return c.urlTemplate != ""
}

// RoomEvents 获取房间在 [from, to) 内的预订
// 传输错误或非 200 响应最多尝试 maxRetry 次；全部失败返回 (nil, false)
func (c *Client) RoomEvents(ctx context.Context, room string, from, to time.Time) ([]RoomEvent, bool) {
	target := c.buildURL(room, from, to)

	for attempt := 1; attempt <= c.maxRetry; attempt++ {
		body, err := c.fetch(ctx, target)
		if err == nil {
			events, perr := c.parse(body, room, from, to)
			if perr != nil {
				c.logger.Warn("房间日历解析失败", zap.String("room", room), zap.Error(perr))
				return nil, false
			}
			return events, true
		}

		c.logger.Debug("房间日历获取失败，准备重试",
			zap.String("room", room),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return nil, false
		}
		if attempt < c.maxRetry && c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, false
			case <-time.After(c.retryDelay):
			}
		}
	}

	c.logger.Warn("房间日历获取失败，已放弃", zap.String("room", room), zap.Int("attempts", c.maxRetry))
	return nil, false
}

// buildURL 替换 {room} {from} {to} 占位符
func (c *Client) buildURL(room string, from, to time.Time) string {
	r := strings.NewReplacer(
		"{room}", url.PathEscape(room),
		"{from}", from.In(c.loc).Format(feedDateLayout),
		"{to}", to.In(c.loc).Format(feedDateLayout),
	)
	return r.Replace(c.urlTemplate)
}

// fetch 获取日历内容，限制响应体大小
func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	if strings.HasPrefix(target, "webcal://") {
		target = "https://" + strings.TrimPrefix(target, "webcal://")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取日历失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("获取日历失败: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("读取日历失败: %w", err)
	}
	return body, nil
}

// parse 解析 VEVENT，重复事件展开后只保留与 [from, to) 相交的事件
func (c *Client) parse(body []byte, room string, from, to time.Time) ([]RoomEvent, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	events := []RoomEvent{}
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || strings.TrimSpace(summary.Value) == "" {
			continue
		}
		start, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, c.loc)
		if err != nil {
			continue
		}
		end, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, c.loc)
		if err != nil || !end.After(start) {
			continue
		}

		location := room
		if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil && strings.TrimSpace(p.Value) != "" {
			location = strings.TrimSpace(p.Value)
		}

		for _, s := range occurrences(evt, start, to, c.loc) {
			e := s.Add(end.Sub(start))
			if !s.Before(to) || !e.After(from) {
				continue
			}
			events = append(events, RoomEvent{
				Room:  location,
				Name:  strings.TrimSpace(summary.Value),
				Start: s,
				End:   e,
			})
		}
	}
	return events, nil
}

// ── 重复规则 ──

// rrule RRULE 解析结果（仅支持 DAILY/WEEKLY）
type rrule struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rrule {
	r := rrule{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	if r.interval < 1 {
		r.interval = 1
	}
	return r
}

// occurrences 返回事件的所有开始时间；无 RRULE 时只有 DTSTART
func occurrences(evt *ics.VEvent, start, limit time.Time, loc *time.Location) []time.Time {
	prop := evt.GetProperty(ics.ComponentPropertyRrule)
	if prop == nil {
		return []time.Time{start}
	}
	rule := parseRRule(prop.Value)
	var stepDays int
	switch rule.freq {
	case "DAILY":
		stepDays = rule.interval
	case "WEEKLY":
		stepDays = 7 * rule.interval
	default:
		return []time.Time{start}
	}

	exDates := parseExDates(evt, loc)
	var out []time.Time
	count := 0
	for cur := start; !cur.After(limit); cur = cur.AddDate(0, 0, stepDays) {
		if !rule.until.IsZero() && cur.After(rule.until) {
			break
		}
		if rule.count > 0 && count >= rule.count {
			break
		}
		count++
		if exDates[cur.In(loc).Format("20060102")] {
			continue
		}
		out = append(out, cur)
	}
	return out
}

// parseExDates 解析事件中所有 EXDATE（逗号分隔的多值也支持）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, err := parseICSValue(strings.TrimSpace(v), "", loc); err == nil {
				exDates[t.In(loc).Format("20060102")] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("缺少属性 %s", propName)
	}
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}
	return parseICSValue(prop.Value, tzid, loc)
}

// parseICSValue 依次尝试 UTC、本地时间、全天三种格式
func parseICSValue(val, tzid string, loc *time.Location) (time.Time, error) {
	layouts := []string{"20060102T150405Z", "20060102T150405", "20060102"}
	for _, layout := range layouts {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		zone := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				zone = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
