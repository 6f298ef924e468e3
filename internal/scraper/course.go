package scraper

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

// shsMarker 人文社科学习计划的课程由 extra_pages 单独收录
const shsMarker = "programme-sciences-humaines-et-sociales"

var (
	yearsPattern  = regexp.MustCompile(`\d{4}-\d{4}`)
	digitsPattern = regexp.MustCompile(`\d+`)
)

// RawCourse 课程页面抓取结果
type RawCourse struct {
	Name       string
	Code       string
	Credits    *int
	StudyPlans []RawStudyPlan
	Teachers   []RawTeacher
	EduURL     string
	Language   *string
}

// RawStudyPlan 课程所属学习计划：section 与 "2024-2025 Bachelor semestre 1" 形式的学期
type RawStudyPlan struct {
	Section  string
	Semester string
}

// RawTeacher 课程页面上的教师
type RawTeacher struct {
	Name      string
	PeopleURL string
}

// ListCourseURLs 遍历目录：首页卡片 → 学习阶段 → 专业 → 课程
// 按课程 slug 去重，保留首次出现顺序
func (s *Scraper) ListCourseURLs(ctx context.Context) ([]string, error) {
	root := s.root.String()
	doc, err := s.getDocument(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("获取课程目录失败: %w", err)
	}

	var promos []string
	doc.Find("div.card-title").Each(func(_ int, card *goquery.Selection) {
		if href, ok := card.Find("a").First().Attr("href"); ok {
			promos = append(promos, s.resolve(root, href))
		}
	})

	var urls []string
	seen := make(map[string]struct{})
	add := func(courseURL string) {
		slug := path.Base(strings.TrimRight(courseURL, "/"))
		if _, dup := seen[slug]; dup {
			return
		}
		seen[slug] = struct{}{}
		urls = append(urls, courseURL)
	}

	for _, promo := range promos {
		promoDoc, err := s.getDocument(ctx, promo)
		if err != nil {
			s.logger.Warn("获取学习阶段页面失败", zap.String("url", promo), zap.Error(err))
			continue
		}
		var sections []string
		promoDoc.Find("main ul").First().Find("a").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok {
				sections = append(sections, s.resolve(promo, href))
			}
		})

		for _, section := range sections {
			sectionDoc, err := s.getDocument(ctx, section)
			if err != nil {
				s.logger.Warn("获取专业页面失败", zap.String("url", section), zap.Error(err))
				continue
			}
			for _, u := range s.courseLinks(sectionDoc.Find("main"), section) {
				if !strings.Contains(u, shsMarker) {
					add(u)
				}
			}
		}
	}

	for _, page := range s.extraPages {
		pageDoc, err := s.getDocument(ctx, page)
		if err != nil {
			s.logger.Warn("获取附加学习计划页面失败", zap.String("url", page), zap.Error(err))
			continue
		}
		for _, u := range s.courseLinks(pageDoc.Selection, page) {
			add(u)
		}
	}

	return urls, nil
}

// courseLinks 提取 div.cours-name 下的课程链接
func (s *Scraper) courseLinks(scope *goquery.Selection, base string) []string {
	var out []string
	scope.Find("div.cours-name").Each(func(_ int, div *goquery.Selection) {
		if href, ok := div.Find("a").First().Attr("href"); ok {
			out = append(out, s.resolve(base, href))
		}
	})
	return out
}

// ScrapeCourse 抓取单个课程页面
func (s *Scraper) ScrapeCourse(ctx context.Context, courseURL string) (*RawCourse, error) {
	doc, err := s.getDocument(ctx, courseURL)
	if err != nil {
		return nil, err
	}
	return ParseCourse(doc, courseURL)
}

// ParseCourse 解析课程页面
func ParseCourse(doc *goquery.Document, courseURL string) (*RawCourse, error) {
	summary := doc.Find("div.course-summary").First()
	if summary.Length() == 0 {
		return nil, fmt.Errorf("课程页面缺少摘要: %s", courseURL)
	}
	paragraphs := summary.Find("p")

	code := ""
	var credits *int
	if paragraphs.Length() > 0 {
		parts := strings.Split(text(paragraphs.Eq(0)), "/")
		code = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			if m := digitsPattern.FindString(parts[1]); m != "" {
				if n, err := strconv.Atoi(m); err == nil {
					credits = &n
				}
			}
		}
	}
	if code == "" {
		return nil, fmt.Errorf("课程页面缺少课程代码: %s", courseURL)
	}

	course := &RawCourse{
		Name:    text(doc.Find("main h1").First()),
		Code:    code,
		Credits: credits,
		EduURL:  courseURL,
	}

	if paragraphs.Length() > 1 {
		paragraphs.Eq(1).Find("a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			course.Teachers = append(course.Teachers, RawTeacher{Name: text(a), PeopleURL: strings.TrimSpace(href)})
		})
	}

	if paragraphs.Length() > 2 {
		parts := strings.SplitN(text(paragraphs.Eq(2)), ":", 2)
		if len(parts) == 2 && strings.Contains(parts[0], "Langue") {
			lang := strings.TrimSpace(parts[1])
			course.Language = &lang
		}
	}

	doc.Find("div.study-plans button.collapse-title-desktop").Each(func(_ int, b *goquery.Selection) {
		if plan, ok := parseStudyPlan(b.Text()); ok {
			course.StudyPlans = append(course.StudyPlans, plan)
		}
	})

	return course, nil
}

// parseStudyPlan 按年份拆分按钮文本：年份之前为 section，之后为学期
func parseStudyPlan(raw string) (RawStudyPlan, bool) {
	raw = strings.NewReplacer("\u00a0", " ", "\n", " ").Replace(raw)
	loc := yearsPattern.FindStringIndex(raw)
	if loc == nil {
		return RawStudyPlan{}, false
	}
	section := strings.TrimSpace(raw[:loc[0]])
	semester := raw[loc[0]:loc[1]] + " " + strings.TrimSpace(raw[loc[1]:])
	return RawStudyPlan{Section: section, Semester: strings.TrimSpace(semester)}, true
}

// ScrapeCourses 抓取全部课程；单个页面失败只记录日志
// 返回按目录顺序排列、按课程代码去重（先到先得）的课程
func (s *Scraper) ScrapeCourses(ctx context.Context) ([]RawCourse, error) {
	urls, err := s.ListCourseURLs(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("课程目录遍历完成", zap.Int("urls", len(urls)))

	results := make([]*RawCourse, len(urls))
	var failed, missing int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			c, err := s.ScrapeCourse(gctx, u)
			if err != nil {
				mu.Lock()
				if errors.Is(err, apperrors.ErrNotFound) {
					missing++
				} else {
					failed++
					s.logger.Warn("课程页面抓取失败", zap.String("url", u), zap.Error(err))
				}
				mu.Unlock()
				return nil
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	courses := make([]RawCourse, 0, len(results))
	codes := make(map[string]struct{}, len(results))
	for _, c := range results {
		if c == nil {
			continue
		}
		if _, dup := codes[c.Code]; dup {
			continue
		}
		codes[c.Code] = struct{}{}
		courses = append(courses, *c)
	}

	s.logger.Info("课程页面抓取完成",
		zap.Int("courses", len(courses)),
		zap.Int("not_found", missing),
		zap.Int("failed", failed),
	)
	return courses, nil
}
