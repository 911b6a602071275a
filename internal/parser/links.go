package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dgallion1/codechunk/internal/doctree"
	"golang.org/x/net/html"
)

const (
	internalSelector  = "link[to]"
	externalSelector  = "a.Web"
	intercodeSelector = "intercodelink[destinationid]"
	imageSelector     = "img[src]"
	historySelector   = ".History"
	anchorSelector    = `a[name^="JD_"]`
)

// LinkResult is everything sub-extracted from the links under one node.
type LinkResult struct {
	Links      doctree.Links
	References []doctree.Reference
	// Unresolved holds internal descriptors that carry no hash.
	Unresolved []string
}

// selectOwned returns the nodes at or under n that match selector and
// belong to owner's text.
func (w *Walker) selectOwned(n, owner *html.Node, selector string) []*goquery.Selection {
	root := goquery.NewDocumentFromNode(n).Selection
	var out []*goquery.Selection
	keep := func(_ int, s *goquery.Selection) {
		if w.owned(s.Get(0), owner) {
			out = append(out, s)
		}
	}
	root.Filter(selector).Each(keep)
	root.Find(selector).Each(keep)
	return out
}

// ExtractLinks collects the four link categories under n that belong to
// owner, and resolves internal links into references.
func (w *Walker) ExtractLinks(n, owner *html.Node) LinkResult {
	res := LinkResult{Links: doctree.NewLinks(), References: []doctree.Reference{}}

	for _, s := range w.selectOwned(n, owner, internalSelector) {
		raw, _ := s.Attr("to")
		res.Links.Internal = append(res.Links.Internal, raw)
		if ref, ok := ParseInternalLink(raw).Reference(); ok {
			res.References = append(res.References, ref)
		} else {
			res.Unresolved = append(res.Unresolved, raw)
		}
	}
	for _, s := range w.selectOwned(n, owner, externalSelector) {
		href, ok := s.Attr("href")
		if !ok {
			continue
		}
		res.Links.External = append(res.Links.External, doctree.ExternalLink{
			Href: href,
			Text: collapse(s.Text()),
		})
	}
	for _, s := range w.selectOwned(n, owner, intercodeSelector) {
		id, _ := s.Attr("destinationid")
		res.Links.Intercode = append(res.Links.Intercode, doctree.IntercodeLink{
			DestinationID: id,
			Text:          collapse(s.Text()),
		})
	}
	for _, s := range w.selectOwned(n, owner, imageSelector) {
		res.Links.Images = append(res.Links.Images, doctree.ImageLink{
			Src:    s.AttrOr("src", ""),
			Alt:    s.AttrOr("alt", ""),
			Width:  s.AttrOr("width", ""),
			Height: s.AttrOr("height", ""),
		})
	}
	return res
}

// ExtractHistory parses every amendment-history container under n that
// belongs to owner.
func (w *Walker) ExtractHistory(n, owner *html.Node) doctree.History {
	h := doctree.NewHistory()
	for _, s := range w.selectOwned(n, owner, historySelector) {
		h.Merge(ParseHistory(s.Text()))
	}
	return h
}

// AnchorHash returns "#JD_..." for the first jump anchor owned by n.
func (w *Walker) AnchorHash(n *html.Node) string {
	for _, s := range w.selectOwned(n, n, anchorSelector) {
		if name, ok := s.Attr("name"); ok {
			return "#" + name
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
