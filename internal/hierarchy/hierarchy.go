// Package hierarchy describes the nesting of a municipal code (chapter,
// article, division, section, subsection) as an ordered table of levels.
//
// Each level owns a set of metadata fields. Entering level i clears every
// field owned by levels at index >= i and leaves shallower fields alone.
package hierarchy

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/dgallion1/codechunk/internal/doctree"
	"gopkg.in/yaml.v3"
)

// Field names a metadata slot on doctree.Meta.
type Field string

const (
	Chapter       Field = "chapter"
	Article       Field = "article"
	ArticleNumber Field = "article_number"
	ArticleTitle  Field = "article_title"
	Division      Field = "division"
	SectionID     Field = "section_id"
	SectionNumber Field = "section_number"
	SectionTitle  Field = "section_title"
	Subsection    Field = "subsection"
)

// Fields lists every known field in output order.
var Fields = []Field{
	Chapter, Article, ArticleNumber, ArticleTitle, Division,
	SectionID, SectionNumber, SectionTitle, Subsection,
}

func (f Field) slot(m *doctree.Meta) **string {
	switch f {
	case Chapter:
		return &m.Chapter
	case Article:
		return &m.Article
	case ArticleNumber:
		return &m.ArticleNumber
	case ArticleTitle:
		return &m.ArticleTitle
	case Division:
		return &m.Division
	case SectionID:
		return &m.SectionID
	case SectionNumber:
		return &m.SectionNumber
	case SectionTitle:
		return &m.SectionTitle
	case Subsection:
		return &m.Subsection
	}
	return nil
}

// Get returns the current value of f, or nil when unset or unknown.
func Get(m *doctree.Meta, f Field) *string {
	if p := f.slot(m); p != nil {
		return *p
	}
	return nil
}

// Set assigns v to f. Unknown fields are ignored.
func Set(m *doctree.Meta, f Field, v *string) {
	if p := f.slot(m); p != nil {
		*p = v
	}
}

func known(f Field) bool {
	return slices.Contains(Fields, f)
}

// Rule is a pattern applied to a boundary's own text. Capture group i+1
// fills Captures[i].
type Rule struct {
	Pattern  string  `yaml:"pattern"`
	Captures []Field `yaml:"captures"`

	re *regexp.Regexp
}

// Level is one row of the hierarchy table.
type Level struct {
	Name string `yaml:"name"`
	// Classes must all be present on a node for it to open this level.
	Classes []string `yaml:"classes"`
	// Fields owned by the level. The first receives the boundary text.
	Fields []Field `yaml:"fields"`
	Rules  []Rule  `yaml:"rules"`
	// Defaults are set to the boundary text when no rule filled them.
	Defaults []Field `yaml:"defaults"`
}

// Main returns the field that receives the level's text.
func (l Level) Main() Field {
	if len(l.Fields) == 0 {
		return ""
	}
	return l.Fields[0]
}

// Owns reports whether the level owns f.
func (l Level) Owns(f Field) bool {
	return slices.Contains(l.Fields, f)
}

// Levels is the ordered hierarchy table, outermost first.
type Levels []Level

// DefaultLevels returns the table for the American Legal Publishing export.
func DefaultLevels() Levels {
	ls := Levels{
		{
			Name:    "Chapter",
			Classes: []string{"rbox", "Chapter"},
			Fields:  []Field{Chapter},
		},
		{
			Name:    "Article",
			Classes: []string{"rbox", "Article"},
			Fields:  []Field{Article, ArticleNumber, ArticleTitle},
			Rules: []Rule{
				{
					Pattern:  `(?i)^ARTICLE\s+([0-9]+[A-Z]?(?:[-.][0-9A-Z]+)*|[IVXLCDM]+)(?:\s*[.:]\s*|\s+|$)(.*)$`,
					Captures: []Field{ArticleNumber, ArticleTitle},
				},
				{
					Pattern:  `(?i)^(\d+[A-Z]?-?\d*\.?|\b[IVXLCDM]+\b)\.?\s+(.+)`,
					Captures: []Field{ArticleNumber, ArticleTitle},
				},
			},
			Defaults: []Field{ArticleTitle},
		},
		{
			Name:    "Division",
			Classes: []string{"rbox", "Division"},
			Fields:  []Field{Division},
		},
		{
			Name:    "Section",
			Classes: []string{"Section", "toc-destination"},
			Fields:  []Field{SectionTitle, SectionNumber, SectionID},
			Rules: []Rule{
				{
					Pattern:  `(?i)SEC\.\s*(\d+[A-Z]?(?:\.\d+[A-Z]?)*)`,
					Captures: []Field{SectionNumber},
				},
			},
		},
		{
			Name:    "Subsection",
			Classes: []string{"Subsection", "toc-destination"},
			Fields:  []Field{Subsection},
		},
	}
	if err := ls.Compile(); err != nil {
		panic(fmt.Sprintf("hierarchy: default table: %v", err))
	}
	return ls
}

// LoadYAML reads a hierarchy table from a YAML file of the form
//
//	levels:
//	  - name: Chapter
//	    classes: [rbox, Chapter]
//	    fields: [chapter]
func LoadYAML(path string) (Levels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hierarchy file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and compiles a hierarchy table.
func ParseYAML(data []byte) (Levels, error) {
	var doc struct {
		Levels Levels `yaml:"levels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse hierarchy yaml: %w", err)
	}
	if err := doc.Levels.Compile(); err != nil {
		return nil, err
	}
	return doc.Levels, nil
}

// Compile validates the table and compiles rule patterns in place.
func (ls Levels) Compile() error {
	if len(ls) == 0 {
		return fmt.Errorf("hierarchy: no levels defined")
	}
	owner := make(map[Field]string)
	for i := range ls {
		l := &ls[i]
		if l.Name == "" {
			return fmt.Errorf("hierarchy: level %d has no name", i)
		}
		if len(l.Classes) == 0 {
			return fmt.Errorf("hierarchy: level %s has no classes", l.Name)
		}
		if len(l.Fields) == 0 {
			return fmt.Errorf("hierarchy: level %s owns no fields", l.Name)
		}
		for _, f := range l.Fields {
			if !known(f) {
				return fmt.Errorf("hierarchy: level %s: unknown field %q", l.Name, f)
			}
			if prev, ok := owner[f]; ok {
				return fmt.Errorf("hierarchy: field %q owned by both %s and %s", f, prev, l.Name)
			}
			owner[f] = l.Name
		}
		for _, f := range l.Defaults {
			if !l.Owns(f) {
				return fmt.Errorf("hierarchy: level %s: default field %q not owned", l.Name, f)
			}
		}
		for j := range l.Rules {
			r := &l.Rules[j]
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return fmt.Errorf("hierarchy: level %s rule %d: %w", l.Name, j, err)
			}
			if len(r.Captures) > re.NumSubexp() {
				return fmt.Errorf("hierarchy: level %s rule %d: %d captures but %d groups",
					l.Name, j, len(r.Captures), re.NumSubexp())
			}
			for _, f := range r.Captures {
				if !l.Owns(f) {
					return fmt.Errorf("hierarchy: level %s rule %d: field %q not owned", l.Name, j, f)
				}
			}
			r.re = re
		}
	}
	return nil
}

// Match returns the index of the first level whose classes are all present.
func (ls Levels) Match(classes []string) (int, bool) {
	for i, l := range ls {
		if hasAll(classes, l.Classes) {
			return i, true
		}
	}
	return -1, false
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

// Reset clears every field owned by level idx and the levels below it.
func (ls Levels) Reset(m *doctree.Meta, idx int) {
	if idx < 0 {
		idx = 0
	}
	for _, l := range ls[min(idx, len(ls)):] {
		for _, f := range l.Fields {
			Set(m, f, nil)
		}
	}
}

// Apply populates level idx's fields from the boundary text. The main field
// takes the whole text. Each rule fills its captures in order; the first rule
// to produce a non-empty value for a field wins.
func (ls Levels) Apply(idx int, text string, m *doctree.Meta) {
	if idx < 0 || idx >= len(ls) {
		return
	}
	l := ls[idx]
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	Set(m, l.Main(), doctree.Ptr(text))

	filled := make(map[Field]bool)
	for _, r := range l.Rules {
		re := r.re
		if re == nil {
			re = regexp.MustCompile(r.Pattern)
		}
		sm := re.FindStringSubmatch(text)
		if sm == nil {
			continue
		}
		for i, f := range r.Captures {
			if filled[f] {
				continue
			}
			v := cleanCapture(sm[i+1])
			if v == "" {
				continue
			}
			Set(m, f, doctree.Ptr(v))
			filled[f] = true
		}
	}
	for _, f := range l.Defaults {
		if !filled[f] {
			Set(m, f, doctree.Ptr(text))
		}
	}
}

func cleanCapture(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".: ")
}

// Names returns the level names in order.
func (ls Levels) Names() []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name
	}
	return out
}
