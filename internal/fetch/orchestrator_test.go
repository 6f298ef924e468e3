package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

// fakeSource 按 URL 返回预设页面；inFlight 记录最大并发数
type fakeSource struct {
	pages    map[string]*Page
	errs     map[string]error
	inFlight int32
	peak     int32
}

func (f *fakeSource) FetchSchedulePage(_ context.Context, url string) (*Page, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, &apperrors.NotFoundError{Resource: "page", Name: url}
}

// fakeParser 以页面 Body 为键返回预设课表
type fakeParser struct {
	schedules map[string]calendar.RawSchedule
}

func (f *fakeParser) ParseSchedulePage(page *Page) (calendar.RawSchedule, error) {
	if s, ok := f.schedules[string(page.Body)]; ok {
		return s, nil
	}
	return calendar.RawSchedule{}, errors.New("无法解析")
}

func testWindow() *calendar.Window {
	return &calendar.Window{
		Start:    time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 2, 23, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
}

func TestRun_WeeklyAndDated(t *testing.T) {
	day := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{pages: map[string]*Page{
		"u/weekly": {URL: "u/weekly", Body: []byte("weekly")},
		"u/dated":  {URL: "u/dated", Body: []byte("dated")},
		"u/bad":    {URL: "u/bad", Body: []byte("garbage")},
	}, errs: map[string]error{"u/down": errors.New("connection reset")}}
	parser := &fakeParser{schedules: map[string]calendar.RawSchedule{
		"weekly": calendar.Weekly(calendar.WeeklySlot{Weekday: 0, StartHour: 8, DurationHours: 2, Label: "Cours", Rooms: []string{"CO1"}}),
		"dated": calendar.Dated(
			calendar.DatedRow{Start: day, End: day.Add(time.Hour), Label: "Cours", Rooms: []string{"BC01"}},
			calendar.DatedRow{Start: day, End: day.Add(time.Hour), Label: "Cours", Rooms: []string{"BC02"}},
		),
	}}
	o := NewOrchestrator(src, parser, calendar.NewExpander(normalize.Default()), 4, 2, zap.NewNop())

	jobs := []Job{
		{CourseID: "c-weekly", URL: "u/weekly", Window: testWindow()},
		{CourseID: "c-dated", URL: "u/dated"},
		{CourseID: "c-missing", URL: "u/missing", Window: testWindow()},
		{CourseID: "c-down", URL: "u/down", Window: testWindow()},
		{CourseID: "c-bad", URL: "u/bad", Window: testWindow()},
	}
	occs, stats, err := o.Run(context.Background(), jobs)
	require.NoError(t, err)

	require.Len(t, occs, 2)
	assert.Equal(t, "c-weekly", occs[0].CourseID)
	assert.Equal(t, "cours", occs[0].Label)
	assert.Equal(t, time.Date(2025, 2, 17, 8, 0, 0, 0, time.UTC), occs[0].Start)
	assert.Equal(t, "c-dated", occs[1].CourseID)
	assert.Equal(t, []string{"BC01", "BC02"}, occs[1].Rooms)

	assert.Equal(t, 5, stats.Jobs)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 1, stats.NotFound)
	assert.Equal(t, 2, stats.Failed)
	assert.ElementsMatch(t, []string{"c-down", "c-bad"}, stats.FailedCourseIDs)
	assert.Equal(t, 1, stats.Weekly)
	assert.Equal(t, 1, stats.Dated)
	assert.Equal(t, 2, stats.Occurrences)
}

func TestRun_WeeklyWithoutWindowDropped(t *testing.T) {
	src := &fakeSource{pages: map[string]*Page{"u": {URL: "u", Body: []byte("weekly")}}}
	parser := &fakeParser{schedules: map[string]calendar.RawSchedule{
		"weekly": calendar.Weekly(calendar.WeeklySlot{Weekday: 1, StartHour: 10, DurationHours: 1, Label: "Cours", Rooms: []string{"CO1"}}),
	}}
	o := NewOrchestrator(src, parser, calendar.NewExpander(normalize.Default()), 1, 1, zap.NewNop())

	occs, stats, err := o.Run(context.Background(), []Job{{CourseID: "year-course", URL: "u"}})
	require.NoError(t, err)
	assert.Empty(t, occs)
	assert.Equal(t, 0, stats.Weekly)
}

func TestRun_RespectsIOLimit(t *testing.T) {
	pages := make(map[string]*Page)
	schedules := map[string]calendar.RawSchedule{"empty": calendar.Dated()}
	var jobs []Job
	for i := 0; i < 20; i++ {
		url := fmt.Sprintf("u/%d", i)
		pages[url] = &Page{URL: url, Body: []byte("empty")}
		jobs = append(jobs, Job{CourseID: url, URL: url})
	}
	src := &fakeSource{pages: pages}
	o := NewOrchestrator(src, &fakeParser{schedules: schedules}, calendar.NewExpander(normalize.Default()), 3, 2, zap.NewNop())

	_, stats, err := o.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Fetched)
	assert.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(3))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := NewOrchestrator(&fakeSource{}, &fakeParser{}, calendar.NewExpander(normalize.Default()), 1, 1, zap.NewNop())

	_, _, err := o.Run(ctx, []Job{{CourseID: "c", URL: "u"}})
	assert.ErrorIs(t, err, context.Canceled)
}
