// Package scraper 抓取课程目录、课程页面与课程安排页面。
//
// 输出为未经规范化的原始记录，规范化与持久化由 service 层负责。
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

const (
	maxPageSize    = 10 * 1024 * 1024 // 10MB
	defaultTimeout = 30 * time.Second
)

// Scraper 课程站点抓取器
type Scraper struct {
	http       *http.Client
	root       *url.URL
	userAgent  string
	extraPages []string
	workers    int
	maps       *normalize.Maps
	loc        *time.Location
	logger     *zap.Logger
}

// New 创建 Scraper 实例
func New(cfg *config.ScraperConfig, workers int, maps *normalize.Maps, loc *time.Location, logger *zap.Logger) (*Scraper, error) {
	root, err := url.Parse(cfg.CatalogURL)
	if err != nil {
		return nil, fmt.Errorf("目录地址无效: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if workers <= 0 {
		workers = 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scraper{
		http:       &http.Client{Timeout: timeout},
		root:       root,
		userAgent:  cfg.UserAgent,
		extraPages: cfg.ExtraPages,
		workers:    workers,
		maps:       maps,
		loc:        loc,
		logger:     logger,
	}, nil
}

// ── 内部辅助方法 ──

// get 获取页面原始内容；404 返回 *NotFoundError
func (s *Scraper) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &apperrors.NotFoundError{Resource: "页面", Name: target}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("请求 %s 失败: HTTP %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", target, err)
	}
	return body, nil
}

// getDocument 获取并解析为 goquery 文档
func (s *Scraper) getDocument(ctx context.Context, target string) (*goquery.Document, error) {
	body, err := s.get(ctx, target)
	if err != nil {
		return nil, err
	}
	return parseDocument(body)
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTML 解析失败: %w", err)
	}
	return doc, nil
}

// resolve 把页面中的相对链接解析为绝对地址
func (s *Scraper) resolve(base, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b := s.root
	if base != "" {
		if u, err := url.Parse(base); err == nil {
			b = u
		}
	}
	return b.ResolveReference(ref).String()
}

// text 取节点文本，NBSP 替换为空格并去除首尾空白
func text(sel *goquery.Selection) string {
	return strings.TrimSpace(strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(sel.Text()))
}
