// Package parser walks the American Legal Publishing HTML export of a
// municipal code, classifies its nodes and extracts section text, links
// and amendment history into chunks.
package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/codechunk/internal/hierarchy"
	"golang.org/x/net/html"
)

// Category is the role a node plays in the extraction walk.
type Category int

const (
	Passthrough Category = iota
	Ignorable
	Boundary
	Content
	Footnote
	Fallback
)

func (c Category) String() string {
	switch c {
	case Ignorable:
		return "ignorable"
	case Boundary:
		return "structural-boundary"
	case Content:
		return "content-block"
	case Footnote:
		return "footnote-block"
	case Fallback:
		return "fallback"
	}
	return "passthrough"
}

// Rule names, in priority order.
const (
	RuleAnnotation     = "annotation"
	RuleHierarchy      = "hierarchy"
	RuleContent        = "normal-level"
	RuleFootnote       = "footnote"
	RulePresentational = "presentational"
	RuleBlock          = "block"
	RuleInline         = "inline"
)

// Classification is the result of running the rule table on a node.
type Classification struct {
	Category Category
	Level    int // Index into the hierarchy table for boundaries.
	Rule     string
}

// Rule maps a node predicate to a category. Match returns the hierarchy
// level for boundary rules and 0 otherwise.
type Rule struct {
	Name     string
	Category Category
	Match    func(n *html.Node) (level int, ok bool)
}

var presentationalTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "iframe": true, "svg": true,
}

// Block-level tags that are captured on their own when they hold text
// outside any recognized container.
var fallbackTags = map[string]bool{
	"p": true, "td": true, "th": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "dd": true, "blockquote": true, "pre": true,
	"caption": true, "figcaption": true,
}

// Tags that break lines in extracted text.
var breakTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"caption": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "thead": true, "tfoot": true, "tr": true, "ul": true,
}

var cellTags = map[string]bool{"td": true, "th": true}

// Walker classifies DOM nodes and walks a document in order.
type Walker struct {
	Levels hierarchy.Levels
	Rules  []Rule
}

// NewWalker builds the rule table for the given hierarchy.
func NewWalker(levels hierarchy.Levels) *Walker {
	w := &Walker{Levels: levels}
	w.Rules = []Rule{
		{Name: RuleAnnotation, Category: Ignorable, Match: always(isAnnotation)},
		{Name: RuleHierarchy, Category: Boundary, Match: func(n *html.Node) (int, bool) {
			return levels.Match(Classes(n))
		}},
		{Name: RuleContent, Category: Content, Match: always(func(n *html.Node) bool {
			return HasClass(n, "Normal-Level")
		})},
		{Name: RuleFootnote, Category: Footnote, Match: always(isFootnote)},
		{Name: RulePresentational, Category: Ignorable, Match: always(func(n *html.Node) bool {
			return presentationalTags[n.Data]
		})},
		{Name: RuleBlock, Category: Fallback, Match: always(func(n *html.Node) bool {
			return fallbackTags[n.Data]
		})},
	}
	return w
}

func always(p func(*html.Node) bool) func(*html.Node) (int, bool) {
	return func(n *html.Node) (int, bool) { return 0, p(n) }
}

// Classify returns the first matching rule for an element. Non-element
// nodes and unmatched elements are Passthrough.
func (w *Walker) Classify(n *html.Node) Classification {
	if n == nil || n.Type != html.ElementNode {
		return Classification{Category: Passthrough}
	}
	for _, r := range w.Rules {
		if level, ok := r.Match(n); ok {
			return Classification{Category: r.Category, Level: level, Rule: r.Name}
		}
	}
	return Classification{Category: Passthrough}
}

// claimable reports whether n always opens its own text segment.
func (w *Walker) claimable(n *html.Node) bool {
	switch w.Classify(n).Category {
	case Boundary, Content, Footnote:
		return true
	}
	return false
}

// containsClaimable reports whether any descendant of n would be emitted
// as its own event.
func (w *Walker) containsClaimable(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch w.Classify(c).Category {
		case Boundary, Content, Footnote, Fallback:
			return true
		case Ignorable:
			continue
		}
		if w.containsClaimable(c) {
			return true
		}
	}
	return false
}

// owned reports whether x contributes to root's text: no annotation
// container or nested claimable sits between them, unless an editor note
// rescues x from an annotation.
func (w *Walker) owned(x, root *html.Node) bool {
	if x == root {
		return true
	}
	rescued := false
	for p := x.Parent; p != nil && p != root; p = p.Parent {
		if isEditorNote(p) {
			rescued = true
		}
		if isAnnotation(p) && !rescued {
			return false
		}
		if w.claimable(p) {
			return false
		}
	}
	return true
}

// Event is one classified unit of document text, emitted in document order.
type Event struct {
	Node  *html.Node
	Nodes []*html.Node // Top-level nodes of a loose inline run.
	Class Classification
	Text  string
	// Plain is Text without editor notes rescued from annotation
	// containers. Boundary metadata is read from it.
	Plain string
	// Continuation marks text of a claimed node that follows one of its
	// nested claimables.
	Continuation bool
}

// Walk traverses root in document order and calls fn for every claimed
// node, every run of loose text outside claimed nodes, and every skipped
// annotation container. Each claimed node's first event precedes the events
// of the nodes nested inside it.
func (w *Walker) Walk(root *html.Node, fn func(Event) error) error {
	ws := &walkState{w: w, fn: fn}
	if err := ws.node(root); err != nil {
		return err
	}
	return ws.flush()
}

type segment struct {
	owner   *html.Node
	class   Classification
	started bool
}

type walkState struct {
	w          *Walker
	fn         func(Event) error
	seg        segment
	buf        strings.Builder
	plain      strings.Builder
	rescue     int
	loose      []*html.Node
	looseDepth int
}

func (ws *walkState) node(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		ws.write(n.Data)
		return nil
	case html.DocumentNode:
		return ws.children(n)
	case html.ElementNode:
	default:
		return nil
	}

	cl := ws.w.Classify(n)
	switch cl.Category {
	case Ignorable:
		if cl.Rule == RuleAnnotation {
			if err := ws.fn(Event{Node: n, Class: cl}); err != nil {
				return err
			}
			return ws.editorNotes(n)
		}
		return nil
	case Boundary, Content, Footnote:
		return ws.claim(n, cl)
	case Fallback:
		if ws.seg.owner == nil && ws.looseDepth == 0 {
			return ws.claim(n, cl)
		}
	}

	if ws.seg.owner == nil && ws.looseDepth == 0 && !ws.w.containsClaimable(n) {
		ws.loose = append(ws.loose, n)
		ws.looseDepth++
		defer func() { ws.looseDepth-- }()
	}
	return ws.element(n)
}

func (ws *walkState) element(n *html.Node) error {
	switch n.Data {
	case "br":
		ws.write("\n")
		return nil
	case "img":
		if src := Attr(n, "src"); src != "" {
			ws.write(fmt.Sprintf(" [%s] ", src))
		}
		return nil
	}

	block, cell := breakTags[n.Data], cellTags[n.Data]
	switch {
	case block:
		ws.write("\n")
	case cell:
		ws.write(" ")
	}
	if err := ws.children(n); err != nil {
		return err
	}
	if href := externalHref(n); href != "" {
		ws.write(fmt.Sprintf(" [%s] ", href))
	}
	switch {
	case block:
		ws.write("\n")
	case cell:
		ws.write(" ")
	}
	return nil
}

func (ws *walkState) children(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := ws.node(c); err != nil {
			return err
		}
	}
	return nil
}

// claim ends the current segment and opens one owned by n.
func (ws *walkState) claim(n *html.Node, cl Classification) error {
	if err := ws.flush(); err != nil {
		return err
	}
	saved := ws.seg
	ws.seg = segment{owner: n, class: cl}
	if err := ws.element(n); err != nil {
		return err
	}
	if err := ws.flush(); err != nil {
		return err
	}
	ws.seg = saved
	return nil
}

// editorNotes keeps the text of editor notes inside an annotation container.
func (ws *walkState) editorNotes(n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		var err error
		if isEditorNote(c) {
			ws.rescue++
			ws.write(" ")
			err = ws.element(c)
			ws.write(" ")
			ws.rescue--
		} else {
			err = ws.editorNotes(c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// write appends s to the segment text. Text outside rescued editor notes
// also goes to the plain text.
func (ws *walkState) write(s string) {
	ws.buf.WriteString(s)
	if ws.rescue == 0 {
		ws.plain.WriteString(s)
	}
}

func (ws *walkState) flush() error {
	text := NormalizeText(ws.buf.String())
	plain := NormalizeText(ws.plain.String())
	ws.buf.Reset()
	ws.plain.Reset()

	seg := &ws.seg
	if seg.owner == nil {
		nodes := ws.loose
		ws.loose = nil
		if text == "" {
			return nil
		}
		ev := Event{Nodes: nodes, Class: Classification{Category: Fallback, Rule: RuleInline}, Text: text, Plain: plain}
		if len(nodes) > 0 {
			ev.Node = nodes[0]
		}
		return ws.fn(ev)
	}

	// A boundary or content node always reports its first segment, even
	// when empty, so its side effects happen before nested events.
	if text == "" && (seg.started || seg.class.Category == Fallback) {
		return nil
	}
	ev := Event{Node: seg.owner, Class: seg.class, Text: text, Plain: plain, Continuation: seg.started}
	seg.started = true
	return ws.fn(ev)
}

// NormalizeText collapses whitespace inside each line and drops blank lines.
func NormalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}

// VisibleText returns the whitespace-normalized text a reader sees in root,
// with image and external link targets inlined the way chunks carry them.
func (w *Walker) VisibleText(root *html.Node) string {
	var b strings.Builder
	w.visible(&b, root)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (w *Walker) visible(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.visible(b, c)
		}
		return
	case html.ElementNode:
	default:
		return
	}

	cl := w.Classify(n)
	if cl.Category == Ignorable {
		if cl.Rule == RuleAnnotation {
			for _, note := range findAll(n, isEditorNote) {
				b.WriteByte(' ')
				w.visible(b, note)
				b.WriteByte(' ')
			}
		}
		return
	}
	switch n.Data {
	case "br":
		b.WriteByte(' ')
		return
	case "img":
		if src := Attr(n, "src"); src != "" {
			fmt.Fprintf(b, " [%s] ", src)
		}
		return
	}

	pad := cl.Category != Passthrough || breakTags[n.Data] || cellTags[n.Data]
	if pad {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visible(b, c)
	}
	if href := externalHref(n); href != "" {
		fmt.Fprintf(b, " [%s] ", href)
	}
	if pad {
		b.WriteByte(' ')
	}
}

// findAll returns the outermost descendants of n matching pred.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if pred(c) {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}
