package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/chunker"
	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/hierarchy"
	"golang.org/x/net/html"
)

// Options tunes an extraction run.
type Options struct {
	// TextOnly skips link, reference and history sub-extraction.
	TextOnly bool
}

// Extractor turns a parsed document into chunks in a single walk.
type Extractor struct {
	walker *Walker
	acc    *chunker.Accumulator
	report *audit.Report
	opts   Options
	log    *slog.Logger
}

// NewExtractor prepares a one-shot extraction. Use a new Extractor per
// document.
func NewExtractor(levels hierarchy.Levels, cfg chunker.Config, opts Options, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		walker: NewWalker(levels),
		acc:    chunker.New(cfg),
		report: audit.New(),
		opts:   opts,
		log:    log,
	}
}

// Extract walks root and returns the emitted chunks with the audit report.
// A *chunker.InvariantError aborts the walk.
func (e *Extractor) Extract(root *html.Node) ([]doctree.Chunk, *audit.Report, error) {
	if err := e.walker.Walk(root, e.handle); err != nil {
		return nil, e.report, err
	}
	chunks, err := e.acc.Finish()
	if err != nil {
		return nil, e.report, err
	}
	e.report.Chunks = len(chunks)
	return chunks, e.report, nil
}

func (e *Extractor) handle(ev Event) error {
	switch ev.Class.Category {
	case Ignorable:
		e.report.SkippedAnnotations++
		return nil
	case Boundary:
		if ev.Continuation {
			e.report.Continuations++
			return e.acc.Add(e.block(ev))
		}
		return e.boundary(ev)
	case Content:
		if ev.Continuation {
			e.report.Continuations++
		} else {
			e.report.ContentBlocks++
		}
		return e.content(ev)
	case Footnote:
		e.report.Footnotes++
		return e.content(ev)
	case Fallback:
		if ev.Text == "" {
			return nil
		}
		if ev.Continuation {
			e.report.Continuations++
		} else {
			e.report.Fallback(auditKey(ev), ev.Text)
			e.log.Debug("fallback capture", "key", auditKey(ev), "chars", len(ev.Text))
		}
		return e.content(ev)
	}
	return nil
}

// boundary closes the current section and opens a new one at the node's
// level. The node's own text seeds the new section.
func (e *Extractor) boundary(ev Event) error {
	idx := ev.Class.Level
	levels := e.walker.Levels
	if idx < 0 || idx >= len(levels) {
		return fmt.Errorf("boundary level %d out of range", idx)
	}
	level := levels[idx]

	if err := e.acc.StartSection(); err != nil {
		return err
	}
	meta := &e.acc.State.Meta
	levels.Reset(meta, idx)
	levels.Apply(idx, strings.ReplaceAll(ev.Plain, "\n", " "), meta)

	if hash := e.walker.AnchorHash(ev.Node); hash != "" {
		e.acc.State.Hash = &hash
	}
	if id := Attr(ev.Node, "id"); id != "" && level.Owns(hierarchy.SectionID) {
		meta.SectionID = doctree.Ptr(id)
	}
	e.report.Boundary(level.Name)
	return e.acc.Add(e.block(ev))
}

func (e *Extractor) content(ev Event) error {
	b := e.block(ev)
	if ev.Class.Category == Content && !ev.Continuation {
		b.DivClass = divClass(ev.Node)
		if e.acc.State.Meta.SectionID == nil {
			if id := Attr(ev.Node, "id"); id != "" {
				e.acc.State.Meta.SectionID = doctree.Ptr(id)
			}
		}
	}
	if e.acc.State.Hash == nil && ev.Node != nil && !ev.Continuation {
		if hash := e.walker.AnchorHash(ev.Node); hash != "" {
			e.acc.State.Hash = &hash
		}
	}
	return e.acc.Add(b)
}

// block packages the event's text with its sub-extracted metadata. Links
// and history are taken once per claimed node, from its first event.
func (e *Extractor) block(ev Event) chunker.Block {
	b := chunker.Block{Text: ev.Text, Tag: annotation(ev)}
	if e.opts.TextOnly || ev.Continuation {
		return b
	}

	b.Links = doctree.NewLinks()
	b.History = doctree.NewHistory()
	nodes := ev.Nodes
	if len(nodes) == 0 && ev.Node != nil {
		nodes = []*html.Node{ev.Node}
	}
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		owner := ev.Node
		if len(ev.Nodes) > 0 {
			owner = n
		}
		res := e.walker.ExtractLinks(n, owner)
		b.Links.Merge(res.Links)
		b.References = append(b.References, res.References...)
		e.report.Unresolved(res.Unresolved...)
		b.History.Merge(e.walker.ExtractHistory(n, owner))
	}
	return b
}

func annotation(ev Event) doctree.TagAnnotation {
	n := ev.Node
	if n == nil {
		return doctree.TagAnnotation{Tag: "#text", Classes: []string{}}
	}
	cls := Classes(n)
	if cls == nil {
		cls = []string{}
	}
	return doctree.TagAnnotation{Tag: tagName(n), Classes: cls, ID: Attr(n, "id")}
}

func auditKey(ev Event) string {
	if ev.Class.Rule == RuleInline {
		return "#text"
	}
	key := tagName(ev.Node)
	if cls := Classes(ev.Node); len(cls) > 0 {
		key += "." + strings.Join(cls, ".")
	}
	return key
}

// divClass names the container a content block came from: the class of its
// first non-annotation child element, or its own class.
func divClass(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || isAnnotation(c) {
			continue
		}
		if cls := Attr(c, "class"); cls != "" {
			return cls
		}
		break
	}
	return Attr(n, "class")
}
