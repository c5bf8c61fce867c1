package workload

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Signature keys used in Result.Metadata.
const (
	KeyDean           = "dean"
	KeyDepartmentHead = "departmentHead"
)

// Patterns holds every institution-specific literal and regular expression
// used while parsing. The zero value is not usable; start from DefaultPatterns.
type Patterns struct {
	// Anchor must have two groups: specialty code and course number.
	Anchor string `yaml:"anchor"`

	Boundary BoundaryPatterns `yaml:"boundary"`

	// NoiseKeywords mark header and section-title rows.
	NoiseKeywords []string `yaml:"noiseKeywords"`

	// NameSkipTokens are cells excluded from the discipline name.
	NameSkipTokens []string `yaml:"nameSkipTokens"`
	FacultyDefault string   `yaml:"facultyDefault"`
	MinNameLength  int      `yaml:"minNameLength"`

	Signatures []SignaturePattern `yaml:"signatures"`
}

// BoundaryPatterns detect the row that closes the first semester block.
// A row is a boundary when it contains Required and at least one of AnyOf,
// or at least one of AnyOfUpper once upper-cased.
type BoundaryPatterns struct {
	Required   string   `yaml:"required"`
	AnyOf      []string `yaml:"anyOf"`
	AnyOfUpper []string `yaml:"anyOfUpper"`
}

// SignaturePattern locates one signatory. Pattern's first group is the
// signature; Fallback is matched as a whole.
type SignaturePattern struct {
	Key      string `yaml:"key"`
	Pattern  string `yaml:"pattern"`
	Fallback string `yaml:"fallback"`
}

const signatureShape = `(доц\.\s*[A-Я]\.[A-Я]\.\s*[A-Яа-я]+)`

// DefaultPatterns returns the pattern set for the computer technologies
// faculty workload forms.
func DefaultPatterns() Patterns {
	return Patterns{
		Anchor: `(\d{3,})-(\d)`,
		Boundary: BoundaryPatterns{
			Required:   "Всього",
			AnyOf:      []string{"семестр"},
			AnyOfUpper: []string{"І"},
		},
		NoiseKeywords: []string{
			"Дисципліни", "Факультет", "Спеціальність", "студентів",
			"денне", "заочне", "Лекції", "Практ",
		},
		NameSkipTokens: []string{"Ел.", "Ел"},
		FacultyDefault: "Ел.",
		MinNameLength:  3,
		Signatures: []SignaturePattern{
			{
				Key:      KeyDean,
				Pattern:  `(?is)Декан факультету.*?комп['’ʼ]ютерних технологій.*?` + signatureShape,
				Fallback: `доц\.\s*Ю\.М\.\s*Фургала`,
			},
			{
				Key:      KeyDepartmentHead,
				Pattern:  `(?is)Завідувач.*?кафедри системного проектування.*?` + signatureShape,
				Fallback: `доц\.\s*Р\.Я\.\s*Шувар`,
			},
		},
	}
}

// LoadPatterns reads a YAML file over DefaultPatterns. Keys missing from the
// file keep their default values.
func LoadPatterns(path string) (Patterns, error) {
	p := DefaultPatterns()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read patterns: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse patterns %s: %w", path, err)
	}
	return p, nil
}

// YAML encodes the pattern set in the format LoadPatterns reads.
func (p Patterns) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

type compiledSignature struct {
	key      string
	primary  *regexp.Regexp
	fallback *regexp.Regexp
}

// compiled is the ready-to-use form of Patterns. It is never mutated after
// compile, so one value is shared by concurrent parses.
type compiled struct {
	anchor         *regexp.Regexp
	boundary       BoundaryPatterns
	noise          []string
	nameSkip       map[string]bool
	facultyDefault string
	minNameLength  int
	signatures     []compiledSignature
}

func (p Patterns) compile() (*compiled, error) {
	anchor, err := regexp.Compile(p.Anchor)
	if err != nil {
		return nil, fmt.Errorf("anchor pattern: %w", err)
	}
	if anchor.NumSubexp() < 2 {
		return nil, fmt.Errorf("anchor pattern needs 2 groups, has %d", anchor.NumSubexp())
	}
	if strings.TrimSpace(p.Boundary.Required) == "" {
		return nil, fmt.Errorf("boundary.required is empty")
	}

	c := &compiled{
		anchor:         anchor,
		boundary:       p.Boundary,
		noise:          p.NoiseKeywords,
		nameSkip:       make(map[string]bool, len(p.NameSkipTokens)),
		facultyDefault: p.FacultyDefault,
		minNameLength:  p.MinNameLength,
	}
	for _, tok := range p.NameSkipTokens {
		c.nameSkip[tok] = true
	}

	for _, sp := range p.Signatures {
		if strings.TrimSpace(sp.Key) == "" {
			return nil, fmt.Errorf("signature pattern without key")
		}
		cs := compiledSignature{key: sp.Key}
		if sp.Pattern != "" {
			if cs.primary, err = regexp.Compile(sp.Pattern); err != nil {
				return nil, fmt.Errorf("signature %s pattern: %w", sp.Key, err)
			}
			if cs.primary.NumSubexp() < 1 {
				return nil, fmt.Errorf("signature %s pattern needs a capture group", sp.Key)
			}
		}
		if sp.Fallback != "" {
			if cs.fallback, err = regexp.Compile(sp.Fallback); err != nil {
				return nil, fmt.Errorf("signature %s fallback: %w", sp.Key, err)
			}
		}
		c.signatures = append(c.signatures, cs)
	}
	return c, nil
}
