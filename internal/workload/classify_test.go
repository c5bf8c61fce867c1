package workload

import (
	"testing"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	return p
}

func TestClassify(t *testing.T) {
	p := newTestParser(t)

	cases := []struct {
		name string
		row  []string
		want RowKind
	}{
		{"semester total", []string{"Всього за І семестр", "", "120"}, RowBoundary},
		{"semester word only", []string{"Всього", "за семестр"}, RowBoundary},
		{"boundary before noise", []string{"Всього за І семестр", "Лекції", "Практ."}, RowBoundary},
		{"header", []string{"Назва дисципліни", "Дисципліни", "Факультет"}, RowNoise},
		{"students header", []string{"К-ть студентів"}, RowNoise},
		{"full-time header", []string{"денне/заочне"}, RowNoise},
		{"discipline", []string{"Комп'ютерні науки", "205-1", "25", "34/12"}, RowCandidate},
		{"plain total", []string{"Всього годин", "1200"}, RowCandidate},
		{"empty", []string{"", ""}, RowCandidate},
	}
	for _, c := range cases {
		got := p.Classify(convert.RowFromStrings(c.row))
		if got != c.want {
			t.Fatalf("%s: Classify(%q) = %s, want %s", c.name, c.row, got, c.want)
		}
	}
}

func TestClassifyIgnoresAbsentCells(t *testing.T) {
	p := newTestParser(t)

	row := convert.Row{{Text: "Дисципліни", Present: false}, convert.TextCell("Бази даних"), convert.TextCell("205-1")}
	if got := p.Classify(row); got != RowCandidate {
		t.Fatalf("absent cell text leaked into blob: got %s", got)
	}
}
