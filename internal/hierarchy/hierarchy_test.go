package hierarchy

import (
	"strings"
	"testing"

	"github.com/dgallion1/codechunk/internal/doctree"
)

func fullMeta() *doctree.Meta {
	m := &doctree.Meta{}
	for _, f := range Fields {
		Set(m, f, doctree.Ptr(string(f)+"-value"))
	}
	Set(m, Chapter, doctree.Ptr("5"))
	Set(m, Article, doctree.Ptr("II"))
	return m
}

func TestReset_DivisionKeepsChapterAndArticle(t *testing.T) {
	ls := DefaultLevels()
	m := fullMeta()

	ls.Reset(m, 2)

	if doctree.Str(m.Chapter) != "5" {
		t.Errorf("expected chapter %q, got %q", "5", doctree.Str(m.Chapter))
	}
	if doctree.Str(m.Article) != "II" {
		t.Errorf("expected article %q, got %q", "II", doctree.Str(m.Article))
	}
	if m.ArticleNumber == nil || m.ArticleTitle == nil {
		t.Error("expected article-owned fields to survive a division boundary")
	}
	for _, f := range []Field{Division, SectionID, SectionNumber, SectionTitle, Subsection} {
		if Get(m, f) != nil {
			t.Errorf("expected %s cleared, got %q", f, *Get(m, f))
		}
	}
}

func TestReset_ArticleKeepsOnlyChapter(t *testing.T) {
	ls := DefaultLevels()
	m := fullMeta()

	ls.Reset(m, 1)

	if doctree.Str(m.Chapter) != "5" {
		t.Errorf("expected chapter %q, got %q", "5", doctree.Str(m.Chapter))
	}
	for _, f := range Fields[1:] {
		if Get(m, f) != nil {
			t.Errorf("expected %s cleared, got %q", f, *Get(m, f))
		}
	}
}

func TestReset_ChapterClearsEverything(t *testing.T) {
	ls := DefaultLevels()
	m := fullMeta()
	ls.Reset(m, 0)
	for _, f := range Fields {
		if Get(m, f) != nil {
			t.Errorf("expected %s cleared", f)
		}
	}
}

func TestMatch(t *testing.T) {
	ls := DefaultLevels()
	tests := []struct {
		classes []string
		want    int
		ok      bool
	}{
		{[]string{"rbox", "Chapter"}, 0, true},
		{[]string{"Article", "rbox", "extra"}, 1, true},
		{[]string{"rbox", "Division"}, 2, true},
		{[]string{"Section", "toc-destination"}, 3, true},
		{[]string{"toc-destination", "Subsection"}, 4, true},
		{[]string{"rbox"}, -1, false},
		{[]string{"Section"}, -1, false},
		{nil, -1, false},
	}
	for _, tt := range tests {
		got, ok := ls.Match(tt.classes)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Match(%v): expected (%d, %v), got (%d, %v)", tt.classes, tt.want, tt.ok, got, ok)
		}
	}
}

func TestApply_Article(t *testing.T) {
	ls := DefaultLevels()
	tests := []struct {
		text   string
		number string
		title  string
	}{
		{"ARTICLE II: GENERAL PROVISIONS", "II", "GENERAL PROVISIONS"},
		{"ARTICLE 5. FEES", "5", "FEES"},
		{"ARTICLE 10A-1 SPECIAL USE DISTRICTS", "10A-1", "SPECIAL USE DISTRICTS"},
		{"IV. Enforcement", "IV", "Enforcement"},
		{"ARTICLE 7", "7", "ARTICLE 7"},
		{"Miscellaneous Provisions", "", "Miscellaneous Provisions"},
	}
	for _, tt := range tests {
		m := &doctree.Meta{}
		ls.Apply(1, tt.text, m)
		if doctree.Str(m.Article) != tt.text {
			t.Errorf("%q: expected article %q, got %q", tt.text, tt.text, doctree.Str(m.Article))
		}
		if doctree.Str(m.ArticleNumber) != tt.number {
			t.Errorf("%q: expected article_number %q, got %q", tt.text, tt.number, doctree.Str(m.ArticleNumber))
		}
		if doctree.Str(m.ArticleTitle) != tt.title {
			t.Errorf("%q: expected article_title %q, got %q", tt.text, tt.title, doctree.Str(m.ArticleTitle))
		}
	}
}

func TestApply_Section(t *testing.T) {
	ls := DefaultLevels()
	m := &doctree.Meta{}
	ls.Apply(3, "SEC. 18.5. DEFINITIONS.", m)

	if doctree.Str(m.SectionTitle) != "SEC. 18.5. DEFINITIONS." {
		t.Errorf("expected full section title, got %q", doctree.Str(m.SectionTitle))
	}
	if doctree.Str(m.SectionNumber) != "18.5" {
		t.Errorf("expected section_number %q, got %q", "18.5", doctree.Str(m.SectionNumber))
	}
	if m.SectionID != nil {
		t.Errorf("expected section_id untouched by rules, got %q", *m.SectionID)
	}
}

func TestApply_EmptyTextLeavesFieldsUnset(t *testing.T) {
	ls := DefaultLevels()
	m := &doctree.Meta{}
	ls.Apply(0, "   ", m)
	if m.Chapter != nil {
		t.Errorf("expected chapter unset, got %q", *m.Chapter)
	}
}

func TestParseYAML_MatchesDefaults(t *testing.T) {
	ls, err := LoadYAML("../../configs/hierarchy.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultLevels()
	if strings.Join(ls.Names(), ",") != strings.Join(def.Names(), ",") {
		t.Fatalf("expected levels %v, got %v", def.Names(), ls.Names())
	}

	for _, text := range []string{"ARTICLE II: GENERAL PROVISIONS", "IV. Enforcement"} {
		a, b := &doctree.Meta{}, &doctree.Meta{}
		ls.Apply(1, text, a)
		def.Apply(1, text, b)
		if doctree.Str(a.ArticleNumber) != doctree.Str(b.ArticleNumber) {
			t.Errorf("%q: yaml table gave %q, default gave %q", text,
				doctree.Str(a.ArticleNumber), doctree.Str(b.ArticleNumber))
		}
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "levels: []", "no levels"},
		{"unknown field", "levels:\n  - name: A\n    classes: [a]\n    fields: [bogus]\n", "unknown field"},
		{"double owner", "levels:\n  - name: A\n    classes: [a]\n    fields: [chapter]\n  - name: B\n    classes: [b]\n    fields: [chapter]\n", "owned by both"},
		{"bad pattern", "levels:\n  - name: A\n    classes: [a]\n    fields: [chapter]\n    rules:\n      - pattern: '('\n", "rule 0"},
		{"too many captures", "levels:\n  - name: A\n    classes: [a]\n    fields: [chapter]\n    rules:\n      - pattern: 'x'\n        captures: [chapter]\n", "captures"},
		{"foreign capture", "levels:\n  - name: A\n    classes: [a]\n    fields: [chapter]\n    rules:\n      - pattern: '(x)'\n        captures: [division]\n", "not owned"},
	}
	for _, tt := range tests {
		_, err := ParseYAML([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}
