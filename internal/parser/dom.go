package parser

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Classes returns the class tokens of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries the exact class token c.
func HasClass(n *html.Node, c string) bool {
	for _, cls := range Classes(n) {
		if cls == c {
			return true
		}
	}
	return false
}

func hasClassFold(n *html.Node, names ...string) bool {
	for _, cls := range Classes(n) {
		for _, name := range names {
			if strings.EqualFold(cls, name) {
				return true
			}
		}
	}
	return false
}

func isAnnotation(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return n.Data == "annotationdrawer" || hasClassFold(n, "AnnotationDrawer", "annotation-drawer")
}

func isEditorNote(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return hasClassFold(n, "EdNote", "EditorNote", "Editor-Note")
}

func isFootnote(n *html.Node) bool {
	for _, cls := range Classes(n) {
		if strings.HasPrefix(strings.ToLower(cls), "footnote") {
			return true
		}
	}
	return false
}

// externalHref returns the target of an anchor marked as an external link.
func externalHref(n *html.Node) string {
	if n.Type != html.ElementNode || n.Data != "a" || !HasClass(n, "Web") {
		return ""
	}
	return Attr(n, "href")
}

// tagName describes n for provenance and audit keys.
func tagName(n *html.Node) string {
	if n == nil {
		return "#text"
	}
	if n.Type == html.TextNode {
		return "#text"
	}
	return n.Data
}
