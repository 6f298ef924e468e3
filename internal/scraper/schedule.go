package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/fetch"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

const weeklyCaption = "div.coursebook-week-caption.sr-only"

var (
	slotHoursPattern = regexp.MustCompile(`(\d{1,2})h\s*-\s*(\d{1,2})h`)
	rowDatePattern   = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
)

// FetchSchedulePage 获取课程安排页面
// 页面没有周课表而带 iframe 时（博士院课程），一并获取 iframe 内容
func (s *Scraper) FetchSchedulePage(ctx context.Context, pageURL string) (*fetch.Page, error) {
	body, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	page := &fetch.Page{URL: pageURL, Body: body}

	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.Find(weeklyCaption).Length() > 0 {
		return page, nil
	}
	src, ok := doc.Find("iframe").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return page, nil
	}

	frame, err := s.get(ctx, s.resolve(pageURL, src))
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Debug("博士院课表 iframe 不存在", zap.String("url", pageURL))
		return page, nil
	}
	if err != nil {
		// iframe 获取失败不等同于没有课表
		return nil, fmt.Errorf("获取博士院课表 iframe 失败: %w", err)
	}
	page.Frame = frame
	return page, nil
}

// ParseSchedulePage 解析课程安排页面；页面上没有课表时返回零值
func (s *Scraper) ParseSchedulePage(page *fetch.Page) (calendar.RawSchedule, error) {
	doc, err := parseDocument(page.Body)
	if err != nil {
		return calendar.RawSchedule{}, err
	}
	if caption := doc.Find(weeklyCaption).First(); caption.Length() > 0 {
		return s.parseWeekly(caption), nil
	}
	if page.Frame == nil {
		return calendar.RawSchedule{}, nil
	}
	frame, err := parseDocument(page.Frame)
	if err != nil {
		return calendar.RawSchedule{}, err
	}
	return s.parseDated(frame), nil
}

// parseWeekly 解析周课表，每个 <p> 形如 "Lundi, 8h - 10h: Cours <a>CE1</a>"
// 星期或时间无法识别的时段被跳过
func (s *Scraper) parseWeekly(caption *goquery.Selection) calendar.RawSchedule {
	var slots []calendar.WeeklySlot
	caption.Find("p").Each(func(_ int, p *goquery.Selection) {
		full := text(p)

		weekday, ok := s.maps.Weekday(strings.SplitN(full, ",", 2)[0])
		if !ok {
			s.logger.Debug("无法识别的星期", zap.String("text", full))
			return
		}
		m := slotHoursPattern.FindStringSubmatch(full)
		if m == nil {
			return
		}
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])

		links := p.Find("a[href]")
		labelSource := full
		if links.Length() > 0 {
			if idx := strings.Index(full, text(links.First())); idx > 0 {
				labelSource = full[:idx]
			}
		}
		label := ""
		if parts := strings.Split(labelSource, ": "); len(parts) > 1 {
			label = strings.TrimSpace(parts[1])
		}

		var rooms []string
		links.Each(func(_ int, a *goquery.Selection) {
			rooms = append(rooms, text(a))
		})

		slots = append(slots, calendar.WeeklySlot{
			Weekday:       weekday,
			StartHour:     start,
			DurationHours: end - start,
			Label:         label,
			Rooms:         rooms,
		})
	})
	return calendar.Weekly(slots...)
}

// parseDated 解析博士院表格：th 行给出日期 dd.mm.yyyy，其后 class 含 grisleger 的行为时段
func (s *Scraper) parseDated(frame *goquery.Document) calendar.RawSchedule {
	if frame.Find("table").Length() == 0 {
		return calendar.RawSchedule{}
	}

	var rows []calendar.DatedRow
	var current *time.Time
	frame.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		if th := tr.Find("th"); th.Length() > 0 {
			if m := rowDatePattern.FindString(th.Text()); m != "" {
				if d, err := time.ParseInLocation("02.01.2006", m, s.loc); err == nil {
					current = &d
				}
			}
			return
		}
		if current == nil || !tr.HasClass("grisleger") {
			return
		}

		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		start, end, err := parseHourRange(text(cells.Eq(0)))
		if err != nil {
			s.logger.Debug("博士院时段无法解析", zap.Error(err))
			return
		}
		var rooms []string
		cells.Eq(1).Find("a").Each(func(_ int, a *goquery.Selection) {
			rooms = append(rooms, text(a))
		})

		startAt := time.Date(current.Year(), current.Month(), current.Day(), start, 0, 0, 0, s.loc)
		rows = append(rows, calendar.DatedRow{
			Start: startAt,
			End:   startAt.Add(time.Duration(end-start) * time.Hour),
			Label: text(cells.Eq(2)),
			Rooms: rooms,
		})
	})
	return calendar.Dated(rows...)
}

// parseHourRange 解析 "08:15-10:00"，只取小时
func parseHourRange(raw string) (int, int, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("时段格式无效: %q", raw)
	}
	start, err := strconv.Atoi(strings.TrimSpace(strings.Split(parts[0], ":")[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("时段格式无效: %q", raw)
	}
	end, err := strconv.Atoi(strings.TrimSpace(strings.Split(parts[1], ":")[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("时段格式无效: %q", raw)
	}
	return start, end, nil
}
