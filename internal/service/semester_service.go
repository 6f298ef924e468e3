package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/antoninfaure/occupancy-scraper/config"
	"github.com/antoninfaure/occupancy-scraper/internal/calendar"
	"github.com/antoninfaure/occupancy-scraper/internal/model"
	"github.com/antoninfaure/occupancy-scraper/internal/repository"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound = errors.New("学期不存在")
	ErrSemesterInvalid  = errors.New("学期定义无效")
)

// semesterSheet 学期导入工作簿的工作表名
const semesterSheet = "semesters"

// SemesterService 学期业务接口
type SemesterService interface {
	List(ctx context.Context) ([]model.Semester, error)
	// CurrentOrNext 当前或下一个学期；没有符合条件的学期时返回 nil, nil
	CurrentOrNext(ctx context.Context, typ *model.SemesterType) (*model.Semester, error)
	// ResolvePeriods 一次性解析当前学期与各类型的当前或下一个学期
	ResolvePeriods(ctx context.Context) (*Periods, error)
	Seed(ctx context.Context, defs []config.SemesterDefinition) (int, error)
	ImportXLSX(ctx context.Context, r io.Reader) (int, error)
}

// Periods 一次同步使用的学期上下文
type Periods struct {
	Current *model.Semester // 不区分类型（year 除外）
	Fall    *model.Semester
	Spring  *model.Semester
	Year    *model.Semester
}

// ForType 按学期类型取对应学期
func (p *Periods) ForType(t model.SemesterType) *model.Semester {
	switch t {
	case model.SemesterFall:
		return p.Fall
	case model.SemesterSpring:
		return p.Spring
	case model.SemesterYear:
		return p.Year
	}
	return nil
}

// Typed 已解析的 fall/spring/year 学期（去除 nil）
func (p *Periods) Typed() []model.Semester {
	var out []model.Semester
	for _, s := range []*model.Semester{p.Fall, p.Spring, p.Year} {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

type semesterService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]model.Semester, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}
	return semesters, nil
}

func (s *semesterService) today() time.Time {
	loc := s.loc
	if loc == nil {
		loc = time.UTC
	}
	return s.now().In(loc)
}

func (s *semesterService) CurrentOrNext(ctx context.Context, typ *model.SemesterType) (*model.Semester, error) {
	semesters, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.ResolveCurrentOrNext(semesters, typ, s.today()), nil
}

func (s *semesterService) ResolvePeriods(ctx context.Context) (*Periods, error) {
	semesters, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today()
	resolve := func(t model.SemesterType) *model.Semester {
		return calendar.ResolveCurrentOrNext(semesters, &t, today)
	}
	p := &Periods{
		Current: calendar.ResolveCurrentOrNext(semesters, nil, today),
		Fall:    resolve(model.SemesterFall),
		Spring:  resolve(model.SemesterSpring),
		Year:    resolve(model.SemesterYear),
	}
	s.logger.Debug("学期上下文解析完成",
		zap.String("current", semesterName(p.Current)),
		zap.String("fall", semesterName(p.Fall)),
		zap.String("spring", semesterName(p.Spring)),
		zap.String("year", semesterName(p.Year)),
	)
	return p, nil
}

// ────────────────────── Seed ──────────────────────

func (s *semesterService) Seed(ctx context.Context, defs []config.SemesterDefinition) (int, error) {
	semesters := make([]model.Semester, 0, len(defs))
	for i, def := range defs {
		sem, err := semesterFromDefinition(def)
		if err != nil {
			return 0, fmt.Errorf("第 %d 个学期定义: %w", i+1, err)
		}
		semesters = append(semesters, *sem)
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for i := range semesters {
			if err := tx.Semester.Upsert(ctx, &semesters[i]); err != nil {
				return fmt.Errorf("写入学期 %s 失败: %w", semesters[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("学期写入失败", zap.Error(err))
		return 0, err
	}

	s.logger.Info("学期写入完成", zap.Int("count", len(semesters)))
	return len(semesters), nil
}

// ImportXLSX 从工作簿 semesters 表读取学期定义并写入
// 列顺序：name | start | end | type | skip_dates | available，首行为表头
func (s *semesterService) ImportXLSX(ctx context.Context, r io.Reader) (int, error) {
	defs, err := ParseSemesterWorkbook(r)
	if err != nil {
		return 0, err
	}
	return s.Seed(ctx, defs)
}

// ParseSemesterWorkbook 解析学期工作簿，空行被跳过
func ParseSemesterWorkbook(r io.Reader) ([]config.SemesterDefinition, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(semesterSheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", semesterSheet, err)
	}

	var defs []config.SemesterDefinition
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		if cell(0) == "" {
			continue
		}
		def := config.SemesterDefinition{
			Name:      cell(0),
			StartDate: cell(1),
			EndDate:   cell(2),
			Type:      strings.ToLower(cell(3)),
			Available: parseBool(cell(5)),
		}
		for _, d := range strings.FieldsFunc(cell(4), func(r rune) bool { return r == ',' || r == ';' }) {
			if d = strings.TrimSpace(d); d != "" {
				def.SkipDates = append(def.SkipDates, d)
			}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ── 内部辅助方法 ──

var dateLayouts = []string{"2006-01-02", "02.01.2006", "01-02-06"}

// parseDate 依次尝试 ISO、瑞士格式与 Excel 默认日期显示格式
func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: 日期 %q 格式不正确", ErrSemesterInvalid, raw)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "oui", "x":
		return true
	}
	return false
}

func semesterFromDefinition(def config.SemesterDefinition) (*model.Semester, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name 不能为空", ErrSemesterInvalid)
	}
	typ := model.SemesterType(strings.ToLower(strings.TrimSpace(def.Type)))
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type %q 必须是 fall/spring/year", ErrSemesterInvalid, def.Type)
	}
	start, err := parseDate(def.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(def.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: 结束日期早于开始日期", ErrSemesterInvalid)
	}

	skip := make(model.DateArray, 0, len(def.SkipDates))
	for _, raw := range def.SkipDates {
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		skip = append(skip, d)
	}

	return &model.Semester{
		SemesterID: uuid.NewString(),
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		Type:       typ,
		SkipDates:  skip,
		Lifecycle:  model.Lifecycle{Available: def.Available},
	}, nil
}

func semesterName(s *model.Semester) string {
	if s == nil {
		return ""
	}
	return s.Name
}
