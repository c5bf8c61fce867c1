package workload

import (
	"testing"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

func TestParseRowAnchor(t *testing.T) {
	p := newTestParser(t)

	d, ok := p.ParseRow(convert.RowFromStrings([]string{"Алгоритми", "205-2", "30"}), FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Specialty != "205" || d.Course != 2 {
		t.Fatalf("expected specialty=205 course=2, got %q %d", d.Specialty, d.Course)
	}
	if d.Students != 30 {
		t.Fatalf("expected students=30, got %d", d.Students)
	}
}

func TestParseRowUsesFirstMatchingCell(t *testing.T) {
	p := newTestParser(t)

	row := convert.RowFromStrings([]string{"Архітектура ЕОМ", "КН-21", "123-4", "126-1", "40"})
	d, ok := p.ParseRow(row, FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Specialty != "123" || d.Course != 4 {
		t.Fatalf("expected first anchor 123-4, got %s-%d", d.Specialty, d.Course)
	}
	if d.Students != 126 {
		t.Fatalf("expected students read from the cell after the anchor, got %d", d.Students)
	}
}

func TestParseRowWithoutAnchorYieldsNothing(t *testing.T) {
	p := newTestParser(t)

	rows := [][]string{
		{"Комп'ютерні науки", "25", "34/12"},
		{"Бази даних", "20-1", "25"},
		{"Бази даних", "205 1", "25"},
		{},
	}
	for _, r := range rows {
		if _, ok := p.ParseRow(convert.RowFromStrings(r), FirstSemester); ok {
			t.Fatalf("expected no record for %q", r)
		}
	}
}

func TestParseRowRejectsTrivialNames(t *testing.T) {
	p := newTestParser(t)

	rows := [][]string{
		{"205-1", "25"},
		{"12", "Ел.", "205-1", "25"},
		{"Ел", "205-1"},
		{"ОС", "205-1"},
		{" ", "7", "205-1"},
	}
	for _, r := range rows {
		if _, ok := p.ParseRow(convert.RowFromStrings(r), FirstSemester); ok {
			t.Fatalf("expected no record for %q", r)
		}
	}
}

func TestParseRowNameDerivation(t *testing.T) {
	p := newTestParser(t)

	row := convert.Row{
		convert.TextCell("1"),
		convert.TextCell("Основи   програмування"),
		{},
		convert.TextCell("мовою\tC++"),
		convert.TextCell("Ел."),
		convert.TextCell("205-1"),
	}
	d, ok := p.ParseRow(row, FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Name != "Основи програмування мовою C++" {
		t.Fatalf("unexpected name %q", d.Name)
	}
	if collapseSpaces(d.Name) != d.Name {
		t.Fatalf("collapsing an already collapsed name changed it")
	}
}

func TestParseRowFaculty(t *testing.T) {
	p := newTestParser(t)

	d, ok := p.ParseRow(convert.RowFromStrings([]string{"Бази даних", "ФКТ", "205-3"}), FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Faculty != "ФКТ" {
		t.Fatalf("expected faculty from the cell before the anchor, got %q", d.Faculty)
	}

	row := convert.Row{convert.TextCell("Бази даних"), {}, convert.TextCell("205-3")}
	d, ok = p.ParseRow(row, FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Faculty != "Ел." {
		t.Fatalf("expected sentinel faculty, got %q", d.Faculty)
	}
}

func TestParseRowFieldOffsets(t *testing.T) {
	p := newTestParser(t)

	row := convert.RowFromStrings([]string{
		"Бази даних", "205-3",
		"25",
		"34/12", "17/6", "0/8", "2/1", "1/1", "3/2",
		"4", "5", "6", "7", "8", "9", "10", "11", "12",
		"999",
	})
	d, ok := p.ParseRow(row, SecondSemester)
	if !ok {
		t.Fatalf("expected record")
	}

	want := Discipline{
		Name: "Бази даних", Faculty: "Бази даних", Specialty: "205", Course: 3, Semester: 2,
		Students:         25,
		LecturesFullTime: 34, LecturesPartTime: 12,
		PracticalsFullTime: 17, PracticalsPartTime: 6,
		LabsFullTime: 0, LabsPartTime: 8,
		ConsultationsFullTime: 2, ConsultationsPartTime: 1,
		ExamsFullTime: 1, ExamsPartTime: 1,
		CreditsFullTime: 3, CreditsPartTime: 2,
		ControlWorks: 4, CourseWorks: 5, ThesisWorks: 6, PedPractice: 7,
		EducationalPractice: 8, ProductionPractice: 9, StateExams: 10,
		PostgraduateStudies: 11, Other: 12,
	}
	if d != want {
		t.Fatalf("unexpected record:\n got %+v\nwant %+v", d, want)
	}
}

func TestParseRowShortRowDefaultsToZero(t *testing.T) {
	p := newTestParser(t)

	row := convert.Row{convert.TextCell("Бази даних"), convert.TextCell("205-3"), {}, convert.TextCell("34")}
	d, ok := p.ParseRow(row, FirstSemester)
	if !ok {
		t.Fatalf("expected record")
	}
	if d.Students != 0 {
		t.Fatalf("expected students=0 for absent cell, got %d", d.Students)
	}
	if d.LecturesFullTime != 34 || d.LecturesPartTime != 0 {
		t.Fatalf("expected lectures 34/0, got %d/%d", d.LecturesFullTime, d.LecturesPartTime)
	}
	if d.CreditsFullTime != 0 || d.Other != 0 {
		t.Fatalf("expected trailing fields to default to 0")
	}
}
