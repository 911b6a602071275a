// Package audit collects the non-fatal anomalies seen during extraction:
// text captured outside the known hierarchy, internal links that cannot be
// resolved, and skipped editorial annotations.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const maxSamples = 5

// ClassCount tallies fallback captures for one tag/class key.
type ClassCount struct {
	Key     string   `json:"key"`
	Count   int      `json:"count"`
	Chars   int      `json:"chars"`
	Samples []string `json:"samples"`
}

// Report is the audit produced by one extraction run.
type Report struct {
	Input       string         `json:"input,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"`
	Chunks      int            `json:"chunks"`
	Sections    int            `json:"sections"`
	Boundaries  map[string]int `json:"boundaries"`

	ContentBlocks      int `json:"content_blocks"`
	Footnotes          int `json:"footnotes"`
	Continuations      int `json:"continuations"`
	FallbackBlocks     int `json:"fallback_blocks"`
	SkippedAnnotations int `json:"skipped_annotations"`

	Unrecognized      map[string]*ClassCount `json:"unrecognized"`
	UnresolvedLinks   int                    `json:"unresolved_links"`
	UnresolvedSamples []string               `json:"unresolved_samples"`
}

func New() *Report {
	return &Report{
		Boundaries:        make(map[string]int),
		Unrecognized:      make(map[string]*ClassCount),
		UnresolvedSamples: []string{},
	}
}

// Boundary counts a structural boundary of the named level.
func (r *Report) Boundary(level string) {
	r.Boundaries[level]++
	r.Sections++
}

// Fallback records text captured outside the known hierarchy.
func (r *Report) Fallback(key, text string) {
	r.FallbackBlocks++
	cc, ok := r.Unrecognized[key]
	if !ok {
		cc = &ClassCount{Key: key, Samples: []string{}}
		r.Unrecognized[key] = cc
	}
	cc.Count++
	cc.Chars += len([]rune(text))
	if len(cc.Samples) < maxSamples {
		cc.Samples = append(cc.Samples, truncate(text, 120))
	}
}

// Unresolved records internal link descriptors without a hash fragment.
func (r *Report) Unresolved(raw ...string) {
	for _, s := range raw {
		r.UnresolvedLinks++
		if len(r.UnresolvedSamples) < maxSamples {
			r.UnresolvedSamples = append(r.UnresolvedSamples, s)
		}
	}
}

// Sorted returns the unrecognized keys, most frequent first.
func (r *Report) Sorted() []ClassCount {
	out := make([]ClassCount, 0, len(r.Unrecognized))
	for _, cc := range r.Unrecognized {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Clean reports whether nothing needs manual review.
func (r *Report) Clean() bool {
	return r.FallbackBlocks == 0 && r.UnresolvedLinks == 0
}

// Markdown renders the report for manual review.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Extraction audit\n\n")
	if r.Input != "" {
		fmt.Fprintf(&b, "Input: `%s`\n\n", r.Input)
	}

	b.WriteString("| Measure | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Chunks | %d |\n", r.Chunks)
	fmt.Fprintf(&b, "| Sections | %d |\n", r.Sections)
	fmt.Fprintf(&b, "| Content blocks | %d |\n", r.ContentBlocks)
	fmt.Fprintf(&b, "| Footnotes | %d |\n", r.Footnotes)
	fmt.Fprintf(&b, "| Continuations | %d |\n", r.Continuations)
	fmt.Fprintf(&b, "| Fallback blocks | %d |\n", r.FallbackBlocks)
	fmt.Fprintf(&b, "| Skipped annotations | %d |\n", r.SkippedAnnotations)
	fmt.Fprintf(&b, "| Unresolved links | %d |\n", r.UnresolvedLinks)

	if len(r.Boundaries) > 0 {
		b.WriteString("\n## Boundaries\n\n| Level | Count |\n|---|---:|\n")
		levels := make([]string, 0, len(r.Boundaries))
		for l := range r.Boundaries {
			levels = append(levels, l)
		}
		sort.Strings(levels)
		for _, l := range levels {
			fmt.Fprintf(&b, "| %s | %d |\n", l, r.Boundaries[l])
		}
	}

	if classes := r.Sorted(); len(classes) > 0 {
		b.WriteString("\n## Unrecognized classes\n\n| Key | Count | Chars | Sample |\n|---|---:|---:|---|\n")
		for _, cc := range classes {
			sample := ""
			if len(cc.Samples) > 0 {
				sample = escapeCell(cc.Samples[0])
			}
			fmt.Fprintf(&b, "| `%s` | %d | %d | %s |\n", cc.Key, cc.Count, cc.Chars, sample)
		}
	}

	if len(r.UnresolvedSamples) > 0 {
		b.WriteString("\n## Unresolved links\n\n")
		for _, s := range r.UnresolvedSamples {
			fmt.Fprintf(&b, "- `%s`\n", s)
		}
	}
	return b.String()
}

// HTML renders the Markdown report with goldmark.
func (r *Report) HTML() (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render audit html: %w", err)
	}
	return buf.String(), nil
}

// WriteFile writes the report as Markdown (.md), HTML (.html) or JSON.
func (r *Report) WriteFile(path string) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data = []byte(r.Markdown())
	case ".html", ".htm":
		s, err := r.HTML()
		if err != nil {
			return err
		}
		data = []byte(s)
	default:
		var err error
		data, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal audit: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// Load reads a JSON report written by WriteFile.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}
	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse audit: %w", err)
	}
	return r, nil
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
