// Package workload turns the tables of an academic workload document into
// discipline records and pulls the signatories out of its text.
//
// Usage:
//
//	p, err := workload.New(workload.Config{})
//	res := p.Parse(doc)
//	fmt.Println(len(res.Disciplines), res.Metadata[workload.KeyDean])
package workload

import (
	"log/slog"

	"github.com/toricodesthings/workload-parser/internal/convert"
)

// Config configures a Parser.
type Config struct {
	// Patterns overrides DefaultPatterns when non-nil.
	Patterns *Patterns

	// Logger for per-table and per-discipline debug output.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Patterns == nil {
		p := DefaultPatterns()
		c.Patterns = &p
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Parser is safe for concurrent use; each Parse call keeps its own state.
type Parser struct {
	patterns *compiled
	logger   *slog.Logger
}

// New compiles the configured patterns.
func New(cfg Config) (*Parser, error) {
	cfg.defaults()
	c, err := cfg.Patterns.compile()
	if err != nil {
		return nil, err
	}
	return &Parser{patterns: c, logger: cfg.Logger}, nil
}

// Parse builds the result for one converted document. Malformed rows are
// skipped; Parse itself does not fail.
func (p *Parser) Parse(doc convert.Document) Result {
	disciplines := p.patterns.walk(doc.Tables, p.logger)
	meta := p.patterns.extractSignatures(doc.FullText)

	p.logger.Debug("document parsed",
		"tables", len(doc.Tables), "disciplines", len(disciplines), "signatures", len(meta))

	return Result{Metadata: meta, Disciplines: disciplines}
}

// Classify reports how a single row is treated by Parse.
func (p *Parser) Classify(row convert.Row) RowKind {
	return p.patterns.classify(row)
}

// ParseRow parses a single candidate row for the given semester.
func (p *Parser) ParseRow(row convert.Row, semester Semester) (Discipline, bool) {
	return p.patterns.parseRow(row, semester)
}

// ExtractSignatures runs only the signature patterns over text.
func (p *Parser) ExtractSignatures(text string) Signatures {
	return p.patterns.extractSignatures(text)
}
