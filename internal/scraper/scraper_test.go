package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/fetch"
	"github.com/antoninfaure/occupancy-scraper/internal/normalize"
	apperrors "github.com/antoninfaure/occupancy-scraper/pkg/errors"
)

const analysePage = `<html><body><main>
<h1>Analyse I</h1>
<div class="course-summary">
  <p>MATH-101 / 6 crédits</p>
  <p>Enseignant(s): <a href="https://people.epfl.ch/jean.dupont">Jean Dupont</a>, <a href="https://people.epfl.ch/marie.curie">Marie Curie</a></p>
  <p>Langue: Français</p>
</div>
<div class="study-plans">
  <button class="collapse-title-desktop">Informatique 2024-2025 Bachelor semestre 1</button>
  <button class="collapse-title-desktop">Mathématiques
    2024-2025 Bachelor semestre 2</button>
  <button class="collapse-title-desktop">Sans année</button>
</div>
<div class="coursebook-week-caption sr-only">
  <p>Lundi, 8h - 10h: Cours <a href="/room/CE1">CE1</a> <a href="/room/CO1">CO1</a></p>
  <p>Mercredi, 13h - 15h: Exercice, TP <a href="/room/BC07-08">BC07-08</a></p>
  <p>Jeudi, 9h - 10h: Projet, autre</p>
  <p>Funday, 8h - 9h: Cours</p>
</div>
</main></body></html>`

const ethiquePage = `<html><body><main>
<h1>Ethique</h1>
<div class="course-summary"><p>HUM-100 / 2 crédits</p><p></p></div>
<div class="study-plans"><button class="collapse-title-desktop">SHS 2024-2025 Bachelor semestre 1</button></div>
</main></body></html>`

const edocPage = `<html><body><main><h1>Doctoral</h1><iframe src="/edoc/frame"></iframe></main></body></html>`

const edocFrame = `<html><body><table>
<tr><td>Horaire</td><td>Salle</td><td>Type</td></tr>
<tr><th>Lundi 03.03.2025</th></tr>
<tr class="grisleger"><td>09:15-11:00</td><td><a href="#">BC01</a></td><td>L</td></tr>
<tr class="grisleger"><td>09:15-11:00</td><td><a href="#">BC02</a></td><td>L</td></tr>
<tr class="blanc"><td>12:00-13:00</td><td><a href="#">BC03</a></td><td>E</td></tr>
<tr><th>Mardi 04.03.2025</th></tr>
<tr class="grisleger"><td>14:00-16:00</td><td><a href="#">INM200</a></td><td>E</td></tr>
</table></body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}
	root := page(`<div class="card-title"><a href="/studyplan/fr/bachelor">Bachelor</a></div>`)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		root(w, r)
	})
	mux.HandleFunc("/studyplan/fr/bachelor", page(`<main><ul><li><a href="/studyplan/fr/bachelor/informatique">Informatique</a></li></ul></main>`))
	mux.HandleFunc("/studyplan/fr/bachelor/informatique", page(`<main>
<div class="cours-name"><a href="/coursebook/fr/analyse-I-MATH-101">Analyse I</a></div>
<div class="cours-name"><a href="/studyplan/fr/bachelor/programme-sciences-humaines-et-sociales/ethique">Ethique</a></div>
<div class="cours-name">Sans lien</div>
<div class="cours-name"><a href="/coursebook/fr/disparu-XX-999">Disparu</a></div>
</main>`))
	mux.HandleFunc("/shs", page(`<div class="cours-name"><a href="/coursebook/fr/ethique-HUM-100">Ethique</a></div>
<div class="cours-name"><a href="/coursebook/fr/analyse-I-MATH-101">Analyse I</a></div>`))
	mux.HandleFunc("/coursebook/fr/analyse-I-MATH-101", page(analysePage))
	mux.HandleFunc("/coursebook/fr/ethique-HUM-100", page(ethiquePage))
	mux.HandleFunc("/coursebook/fr/edoc-EDOC-1", page(edocPage))
	mux.HandleFunc("/edoc/frame", page(edocFrame))
	mux.HandleFunc("/coursebook/fr/edoc-EDOC-2", page(`<html><body><main><iframe src="/edoc/broken"></iframe></main></body></html>`))
	mux.HandleFunc("/edoc/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/coursebook/fr/edoc-EDOC-3", page(`<html><body><main><iframe src="/edoc/gone"></iframe></main></body></html>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(t *testing.T, srv *httptest.Server) *Scraper {
	t.Helper()
	s, err := New(&config.ScraperConfig{
		CatalogURL: srv.URL + "/",
		UserAgent:  "test",
		Timeout:    2 * time.Second,
		ExtraPages: []string{srv.URL + "/shs"},
	}, 2, normalize.Default(), time.UTC, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestListCourseURLs(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	urls, err := s.ListCourseURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/coursebook/fr/analyse-I-MATH-101",
		srv.URL + "/coursebook/fr/disparu-XX-999",
		srv.URL + "/coursebook/fr/ethique-HUM-100",
	}, urls)
}

func TestScrapeCourse(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	c, err := s.ScrapeCourse(context.Background(), srv.URL+"/coursebook/fr/analyse-I-MATH-101")
	require.NoError(t, err)
	assert.Equal(t, "Analyse I", c.Name)
	assert.Equal(t, "MATH-101", c.Code)
	require.NotNil(t, c.Credits)
	assert.Equal(t, 6, *c.Credits)
	require.NotNil(t, c.Language)
	assert.Equal(t, "Français", *c.Language)
	assert.Equal(t, []RawTeacher{
		{Name: "Jean Dupont", PeopleURL: "https://people.epfl.ch/jean.dupont"},
		{Name: "Marie Curie", PeopleURL: "https://people.epfl.ch/marie.curie"},
	}, c.Teachers)
	assert.Equal(t, []RawStudyPlan{
		{Section: "Informatique", Semester: "2024-2025 Bachelor semestre 1"},
		{Section: "Mathématiques", Semester: "2024-2025 Bachelor semestre 2"},
	}, c.StudyPlans)
}

func TestScrapeCourse_NotFound(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	_, err := s.ScrapeCourse(context.Background(), srv.URL+"/coursebook/fr/disparu-XX-999")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestScrapeCourses_SkipsMissingAndDedups(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	courses, err := s.ScrapeCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "MATH-101", courses[0].Code)
	assert.Equal(t, "HUM-100", courses[1].Code)
	assert.Nil(t, courses[1].Language)
	assert.Empty(t, courses[1].Teachers)
}

func TestParseSchedulePage_Weekly(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	page, err := s.FetchSchedulePage(context.Background(), srv.URL+"/coursebook/fr/analyse-I-MATH-101")
	require.NoError(t, err)
	assert.Nil(t, page.Frame)

	raw, err := s.ParseSchedulePage(page)
	require.NoError(t, err)
	assert.Equal(t, calendar.KindWeekly, raw.Kind)
	assert.Equal(t, []calendar.WeeklySlot{
		{Weekday: 0, StartHour: 8, DurationHours: 2, Label: "Cours", Rooms: []string{"CE1", "CO1"}},
		{Weekday: 2, StartHour: 13, DurationHours: 2, Label: "Exercice, TP", Rooms: []string{"BC07-08"}},
		{Weekday: 3, StartHour: 9, DurationHours: 1, Label: "Projet, autre"},
	}, raw.Weekly)
}

func TestParseSchedulePage_Dated(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	page, err := s.FetchSchedulePage(context.Background(), srv.URL+"/coursebook/fr/edoc-EDOC-1")
	require.NoError(t, err)
	require.NotNil(t, page.Frame)

	raw, err := s.ParseSchedulePage(page)
	require.NoError(t, err)
	assert.Equal(t, calendar.KindDated, raw.Kind)
	require.Len(t, raw.Dated, 3)

	first := raw.Dated[0]
	assert.True(t, first.Start.Equal(time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)))
	assert.True(t, first.End.Equal(time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, "L", first.Label)
	assert.Equal(t, []string{"BC01"}, first.Rooms)
	assert.Equal(t, []string{"BC02"}, raw.Dated[1].Rooms)
	assert.True(t, raw.Dated[2].Start.Equal(time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)))

	// 合并后同一时段的教室累加
	occs, err := calendar.NewExpander(normalize.Default()).Expand(raw, nil)
	require.NoError(t, err)
	require.Len(t, occs, 2)
	assert.Equal(t, "cours", occs[0].Label)
	assert.Equal(t, []string{"BC01", "BC02"}, occs[0].Rooms)
}

func TestParseSchedulePage_NoSchedule(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	page, err := s.FetchSchedulePage(context.Background(), srv.URL+"/coursebook/fr/ethique-HUM-100")
	require.NoError(t, err)
	raw, err := s.ParseSchedulePage(page)
	require.NoError(t, err)
	assert.Equal(t, calendar.Kind(0), raw.Kind)
}

func TestFetchSchedulePage_FrameError(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	page, err := s.FetchSchedulePage(context.Background(), srv.URL+"/coursebook/fr/edoc-EDOC-2")
	require.Error(t, err)
	assert.Nil(t, page)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestFetchSchedulePage_FrameNotFound(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	page, err := s.FetchSchedulePage(context.Background(), srv.URL+"/coursebook/fr/edoc-EDOC-3")
	require.NoError(t, err)
	assert.Nil(t, page.Frame)

	raw, err := s.ParseSchedulePage(page)
	require.NoError(t, err)
	assert.Equal(t, calendar.Kind(0), raw.Kind)
}

// iframe 获取失败的课程进入 FailedCourseIDs，其现有安排本次不被软删除
func TestOrchestrator_FrameErrorMarksCourseFailed(t *testing.T) {
	srv := newTestSite(t)
	s := newTestScraper(t, srv)

	o := fetch.NewOrchestrator(s, s, calendar.NewExpander(normalize.Default()), 2, 1, zap.NewNop())
	occs, stats, err := o.Run(context.Background(), []fetch.Job{
		{CourseID: "c-broken", URL: srv.URL + "/coursebook/fr/edoc-EDOC-2"},
		{CourseID: "c-gone", URL: srv.URL + "/coursebook/fr/edoc-EDOC-3"},
		{CourseID: "c-edoc", URL: srv.URL + "/coursebook/fr/edoc-EDOC-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-broken"}, stats.FailedCourseIDs)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 1, stats.Dated)
	require.Len(t, occs, 2)
	for _, occ := range occs {
		assert.Equal(t, "c-edoc", occ.CourseID)
	}
}

func TestParseHourRange(t *testing.T) {
	start, end, err := parseHourRange("08:15-10:00")
	require.NoError(t, err)
	assert.Equal(t, 8, start)
	assert.Equal(t, 10, end)

	_, _, err = parseHourRange("toute la journée")
	assert.Error(t, err)
}
