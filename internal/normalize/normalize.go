// Package normalize 将抓取到的自由文本（房间标签、专业名、长学期名、课程标签）
// 翻译为规范代码。纯查表，无 I/O。
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/antoninfaure/occupancy-scraper/internal/model"
)

// yearsPattern 学习计划标题中的学年，如 "2024-2025"
var yearsPattern = regexp.MustCompile(`\d{4}-\d{4}`)

// Maps 规范化映射集合
// 构造完成后只读，可在多个 worker 间共享
type Maps struct {
	roomAliases       map[string][]string
	roomExclusions    map[string]struct{}
	promos            map[string]string
	promosLong        map[string]string
	sections          map[string]string
	semesterTypes     map[string]model.SemesterType
	semesterTypesLong map[string]model.SemesterType
	labels            map[string]string
	weekdays          map[string]int
}

// UnitSpec 由 (section, 长学期名) 推导出的教学单元描述
type UnitSpec struct {
	Name    string  // 自然键
	Code    string  // SECTION-PROMO 或 SECTION
	Section string  // 专业代码
	Promo   *string // 年级代码，未知长学期名时为 nil
}

// Default 返回内置映射表
func Default() *Maps {
	m := &Maps{
		roomAliases:       make(map[string][]string, len(defaultRoomAliases)),
		roomExclusions:    make(map[string]struct{}, len(defaultRoomExclusions)),
		promos:            indexStrings(defaultPromos),
		promosLong:        indexStrings(defaultPromosLong),
		sections:          indexStrings(defaultSections),
		semesterTypes:     indexTypes(defaultSemesterTypes),
		semesterTypesLong: indexTypes(defaultSemesterTypesLong),
		labels:            indexStrings(defaultLabels),
		weekdays:          make(map[string]int, len(defaultWeekdays)),
	}
	for k, v := range defaultWeekdays {
		m.weekdays[Token(k)] = v
	}
	m.Extend(defaultRoomAliases, defaultRoomExclusions)
	return m
}

// Extend 追加房间别名与排除项，同名键覆盖内置值
// 仅应在启动阶段、共享给 worker 之前调用
func (m *Maps) Extend(aliases map[string][]string, exclusions []string) *Maps {
	for raw, rooms := range aliases {
		canon := make([]string, 0, len(rooms))
		for _, r := range rooms {
			if t := Token(r); t != "" {
				canon = append(canon, t)
			}
		}
		m.roomAliases[Token(raw)] = canon
	}
	for _, raw := range exclusions {
		m.roomExclusions[Token(raw)] = struct{}{}
	}
	return m
}

// Token 规范化自由文本：Unicode NFC、不换行空格转普通空格、去除首尾空白
// 抓取页面混用 NFC/NFD 编码的带重音专业名
func Token(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Map(func(r rune) rune {
		if r == '\u00a0' || r == '\u202f' {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ── 房间 ──

// ExpandRoom 将原始房间标签展开为规范房间名
// 别名 → 一个或多个规范名；排除项 → 空；其余原样保留
func (m *Maps) ExpandRoom(raw string) []string {
	t := Token(raw)
	if t == "" {
		return nil
	}
	if _, ok := m.roomExclusions[t]; ok {
		return nil
	}
	if rooms, ok := m.roomAliases[t]; ok {
		out := make([]string, len(rooms))
		copy(out, rooms)
		return out
	}
	return []string{t}
}

// ExpandRooms 依次展开多个标签，保持顺序，不去重
func (m *Maps) ExpandRooms(raws []string) []string {
	out := make([]string, 0, len(raws))
	for _, r := range raws {
		out = append(out, m.ExpandRoom(r)...)
	}
	return out
}

// IsExcludedRoom 判断原始标签是否在排除列表中
func (m *Maps) IsExcludedRoom(raw string) bool {
	_, ok := m.roomExclusions[Token(raw)]
	return ok
}

// BuildingOf 从房间名推导楼宇前缀：首个数字之前的部分，'-' '_' 替换为空格
func BuildingOf(roomName string) string {
	prefix := roomName
	if i := strings.IndexFunc(roomName, unicode.IsDigit); i >= 0 {
		prefix = roomName[:i]
	}
	prefix = strings.NewReplacer("-", " ", "_", " ").Replace(prefix)
	return strings.TrimSpace(prefix)
}

// ── 标签与星期 ──

// Label 将来源标签映射为 cours / exercice / projet，未知标签原样返回
func (m *Maps) Label(raw string) string {
	t := Token(raw)
	if l, ok := m.labels[t]; ok {
		return l
	}
	return t
}

// Weekday 法语星期名 → 0(周一)..6(周日)
func (m *Maps) Weekday(name string) (int, bool) {
	d, ok := m.weekdays[Token(name)]
	return d, ok
}

// ── 学习计划与单元 ──

// SplitStudyPlanLabel 在首个 "dddd-dddd" 处拆分学期标题
// "2024-2025 Bachelor semestre 1" → ("2024-2025", "Bachelor semestre 1")
// 不含学年时 years 为空，long 为整个规范化后的标题
func SplitStudyPlanLabel(raw string) (years, long string) {
	t := Token(raw)
	loc := yearsPattern.FindStringIndex(t)
	if loc == nil {
		return "", t
	}
	return t[loc[0]:loc[1]], strings.TrimSpace(t[loc[1]:])
}

// Promo 短年级标签 → 年级代码（"Bachelor 1" → "BA1"）
func (m *Maps) Promo(label string) (string, bool) {
	p, ok := m.promos[Token(label)]
	return p, ok
}

// PromoLong 长学期名 → 年级代码（"Bachelor semestre 1" → "BA1"）
func (m *Maps) PromoLong(long string) (string, bool) {
	p, ok := m.promosLong[Token(long)]
	return p, ok
}

// Section 专业名 → 专业代码
func (m *Maps) Section(section string) (string, bool) {
	s, ok := m.sections[Token(section)]
	return s, ok
}

// UnitFor 推导教学单元；专业无映射时返回 false（调用方记录诊断并跳过）
func (m *Maps) UnitFor(section, semesterLong string) (UnitSpec, bool) {
	sec := Token(section)
	long := Token(semesterLong)

	code, ok := m.sections[sec]
	if !ok {
		return UnitSpec{}, false
	}

	spec := UnitSpec{Name: sec, Code: code, Section: code}
	if promo, ok := m.promosLong[long]; ok {
		p := promo
		spec.Name = sec + " - " + long
		spec.Code = code + "-" + promo
		spec.Promo = &p
	}
	return spec, true
}

// UnitName 只计算单元名（自然键），与 UnitFor 的命名规则一致，不要求专业有映射
func (m *Maps) UnitName(section, semesterLong string) string {
	sec := Token(section)
	long := Token(semesterLong)
	if _, ok := m.promosLong[long]; ok {
		return sec + " - " + long
	}
	return sec
}

// SemesterTypeFor 先按长学期名查学期类型，查不到再按专业名查
func (m *Maps) SemesterTypeFor(section, semesterLong string) (model.SemesterType, bool) {
	if t, ok := m.semesterTypesLong[Token(semesterLong)]; ok {
		return t, true
	}
	if t, ok := m.semesterTypesLong[Token(section)]; ok {
		return t, true
	}
	return "", false
}

// SemesterTypeOfPromo 年级代码 → 学期类型（"BA1" → fall）
func (m *Maps) SemesterTypeOfPromo(promo string) (model.SemesterType, bool) {
	t, ok := m.semesterTypes[Token(promo)]
	return t, ok
}

// ── 内部辅助方法 ──

func indexStrings(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[Token(k)] = v
	}
	return out
}

func indexTypes(src map[string]model.SemesterType) map[string]model.SemesterType {
	out := make(map[string]model.SemesterType, len(src))
	for k, v := range src {
		out[Token(k)] = v
	}
	return out
}
