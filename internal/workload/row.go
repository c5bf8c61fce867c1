package workload

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

type fieldKind int

const (
	fieldInt fieldKind = iota
	fieldPair
)

type field struct {
	offset int // columns after the anchor cell
	kind   fieldKind
	set    func(d *Discipline, a, b int)
}

// rowLayout is the column layout that follows the specialty-course cell.
// Format drift is fixed here and nowhere else.
var rowLayout = [...]field{
	{1, fieldInt, func(d *Discipline, v, _ int) { d.Students = v }},
	{2, fieldPair, func(d *Discipline, ft, pt int) { d.LecturesFullTime, d.LecturesPartTime = ft, pt }},
	{3, fieldPair, func(d *Discipline, ft, pt int) { d.PracticalsFullTime, d.PracticalsPartTime = ft, pt }},
	{4, fieldPair, func(d *Discipline, ft, pt int) { d.LabsFullTime, d.LabsPartTime = ft, pt }},
	{5, fieldPair, func(d *Discipline, ft, pt int) { d.ConsultationsFullTime, d.ConsultationsPartTime = ft, pt }},
	{6, fieldPair, func(d *Discipline, ft, pt int) { d.ExamsFullTime, d.ExamsPartTime = ft, pt }},
	{7, fieldPair, func(d *Discipline, ft, pt int) { d.CreditsFullTime, d.CreditsPartTime = ft, pt }},
	{8, fieldInt, func(d *Discipline, v, _ int) { d.ControlWorks = v }},
	{9, fieldInt, func(d *Discipline, v, _ int) { d.CourseWorks = v }},
	{10, fieldInt, func(d *Discipline, v, _ int) { d.ThesisWorks = v }},
	{11, fieldInt, func(d *Discipline, v, _ int) { d.PedPractice = v }},
	{12, fieldInt, func(d *Discipline, v, _ int) { d.EducationalPractice = v }},
	{13, fieldInt, func(d *Discipline, v, _ int) { d.ProductionPractice = v }},
	{14, fieldInt, func(d *Discipline, v, _ int) { d.StateExams = v }},
	{15, fieldInt, func(d *Discipline, v, _ int) { d.PostgraduateStudies = v }},
	{16, fieldInt, func(d *Discipline, v, _ int) { d.Other = v }},
}

var (
	numericOnly = regexp.MustCompile(`^\d+$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

type anchorMatch struct {
	col       int
	specialty string
	course    int
}

func (c *compiled) findAnchor(row convert.Row) (anchorMatch, bool) {
	for idx, cell := range row {
		if !cell.Present {
			continue
		}
		m := c.anchor.FindStringSubmatch(cell.Text)
		if m == nil {
			continue
		}
		course, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return anchorMatch{col: idx, specialty: m[1], course: course}, true
	}
	return anchorMatch{}, false
}

// disciplineName joins the descriptive cells left of the anchor.
func (c *compiled) disciplineName(row convert.Row, anchorCol int) string {
	parts := make([]string, 0, anchorCol)
	for _, cell := range row[:anchorCol] {
		if !cell.Present {
			continue
		}
		v := strings.TrimSpace(cell.Text)
		if v == "" || numericOnly.MatchString(v) || c.nameSkip[v] {
			continue
		}
		parts = append(parts, v)
	}
	return collapseSpaces(strings.Join(parts, " "))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// parseRow turns a candidate row into a discipline. It reports false for
// rows without an anchor cell or with a too-short name.
func (c *compiled) parseRow(row convert.Row, semester Semester) (Discipline, bool) {
	anchor, ok := c.findAnchor(row)
	if !ok {
		return Discipline{}, false
	}

	name := c.disciplineName(row, anchor.col)
	if name == "" || utf8.RuneCountInString(name) < c.minNameLength {
		return Discipline{}, false
	}

	faculty := c.facultyDefault
	if prev := row.At(anchor.col - 1); prev.Present && strings.TrimSpace(prev.Text) != "" {
		faculty = prev.Text
	}

	d := Discipline{
		Name:      name,
		Faculty:   faculty,
		Specialty: anchor.specialty,
		Course:    anchor.course,
		Semester:  int(semester),
	}
	for _, f := range rowLayout {
		cell := row.At(anchor.col + f.offset)
		switch f.kind {
		case fieldPair:
			ft, pt := ParsePair(cell)
			f.set(&d, ft, pt)
		default:
			f.set(&d, ParseInt(cell, 0), 0)
		}
	}
	return d, true
}
