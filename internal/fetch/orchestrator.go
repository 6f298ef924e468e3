// Package fetch 并发抓取课程安排页面并展开为 Occurrence。
//
// 两个阶段各自使用有界的 errgroup：
//   - 阶段 1（I/O）：获取页面，并发度 IOWorkers
//   - 阶段 2（CPU）：解析与展开，并发度 CPUWorkers
//
// 每个任务只写自己的结果槽位，两阶段结束后按任务顺序拼接。
package fetch

import (
	"context"
	"errors"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

// Page 获取到的课程安排页面；博士院页面的课表位于内嵌 iframe，Frame 为其内容
type Page struct {
	URL   string
	Body  []byte
	Frame []byte
}

// PageSource 页面获取端（I/O）
type PageSource interface {
	FetchSchedulePage(ctx context.Context, url string) (*Page, error)
}

// PageParser 页面解析端（CPU），页面上没有课表时返回 Kind 为 0 的空课表
type PageParser interface {
	ParseSchedulePage(page *Page) (calendar.RawSchedule, error)
}

// Job 一门课程的抓取任务
type Job struct {
	CourseID string
	URL      string
	// Window 为 nil 时周课表被丢弃，只保留带日期的课表
	Window *calendar.Window
}

// Stats 一次运行的统计
type Stats struct {
	Jobs        int `json:"jobs"`
	Fetched     int `json:"fetched"`
	NotFound    int `json:"not_found"`
	Failed      int `json:"failed"`
	Weekly      int `json:"weekly"`
	Dated       int `json:"dated"`
	Occurrences int `json:"occurrences"`
	// FailedCourseIDs 获取或解析失败（页面不存在除外）的课程，其现有安排本次不应被软删除
	FailedCourseIDs []string `json:"-"`
}

// Orchestrator 抓取编排器
type Orchestrator struct {
	source     PageSource
	parser     PageParser
	expander   *calendar.Expander
	ioWorkers  int
	cpuWorkers int
	logger     *zap.Logger
}

// NewOrchestrator 创建 Orchestrator 实例；并发度非正数时分别取 32 与 CPU 核数
func NewOrchestrator(source PageSource, parser PageParser, expander *calendar.Expander, ioWorkers, cpuWorkers int, logger *zap.Logger) *Orchestrator {
	if ioWorkers <= 0 {
		ioWorkers = 32
	}
	if cpuWorkers <= 0 {
		cpuWorkers = runtime.NumCPU()
	}
	return &Orchestrator{
		source:     source,
		parser:     parser,
		expander:   expander,
		ioWorkers:  ioWorkers,
		cpuWorkers: cpuWorkers,
		logger:     logger,
	}
}

// Run 执行全部任务；单个页面的失败只记录日志，不影响其他任务
// 仅当 ctx 被取消时返回错误
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) ([]calendar.TaggedOccurrence, Stats, error) {
	stats := Stats{Jobs: len(jobs)}
	pages := make([]*Page, len(jobs))
	fetchErrs := make([]error, len(jobs))

	// ── 阶段 1：获取页面 ──
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.ioWorkers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			page, err := o.source.FetchSchedulePage(gctx, jobs[i].URL)
			if err != nil {
				fetchErrs[i] = err
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	for i, err := range fetchErrs {
		switch {
		case err == nil:
			stats.Fetched++
		case errors.Is(err, apperrors.ErrNotFound):
			stats.NotFound++
			o.logger.Debug("课程安排页面不存在", zap.String("course_id", jobs[i].CourseID), zap.String("url", jobs[i].URL))
		default:
			stats.Failed++
			stats.FailedCourseIDs = append(stats.FailedCourseIDs, jobs[i].CourseID)
			o.logger.Warn("课程安排页面获取失败", zap.String("course_id", jobs[i].CourseID), zap.String("url", jobs[i].URL), zap.Error(err))
		}
	}

	// ── 阶段 2：解析与展开 ──
	results := make([][]calendar.TaggedOccurrence, len(jobs))
	kinds := make([]calendar.Kind, len(jobs))
	parsed := make([]bool, len(jobs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(o.cpuWorkers)
	for i := range jobs {
		if pages[i] == nil {
			continue
		}
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i], kinds[i], parsed[i] = o.process(jobs[i], pages[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var out []calendar.TaggedOccurrence
	for i, r := range results {
		if pages[i] != nil && !parsed[i] {
			stats.Failed++
			stats.FailedCourseIDs = append(stats.FailedCourseIDs, jobs[i].CourseID)
		}
		switch kinds[i] {
		case calendar.KindWeekly:
			stats.Weekly++
		case calendar.KindDated:
			stats.Dated++
		}
		out = append(out, r...)
	}
	stats.Occurrences = len(out)
	return out, stats, nil
}

// process 解析单个页面并展开；ok 为 false 表示解析或展开失败
func (o *Orchestrator) process(job Job, page *Page) ([]calendar.TaggedOccurrence, calendar.Kind, bool) {
	raw, err := o.parser.ParseSchedulePage(page)
	if err != nil {
		o.logger.Warn("课程安排页面解析失败", zap.String("course_id", job.CourseID), zap.String("url", job.URL), zap.Error(err))
		return nil, 0, false
	}
	if raw.Kind == calendar.KindWeekly && job.Window == nil {
		// 非本学期课程的周课表不展开
		return nil, 0, true
	}

	occs, err := o.expander.Expand(raw, job.Window)
	if err != nil {
		o.logger.Warn("课程安排展开失败", zap.String("course_id", job.CourseID), zap.Error(err))
		return nil, 0, false
	}

	tagged := make([]calendar.TaggedOccurrence, 0, len(occs))
	for _, occ := range occs {
		tagged = append(tagged, calendar.TaggedOccurrence{CourseID: job.CourseID, Occurrence: occ})
	}
	return tagged, raw.Kind, true
}
