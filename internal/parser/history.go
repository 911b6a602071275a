package parser

import (
	"regexp"
	"strings"

	"github.com/dgallion1/codechunk/internal/doctree"
)

var (
	addedByRe   = regexp.MustCompile(`(?i)\bAdded\s+by\s+(.*?)(?:;|$)`)
	amendedByRe = regexp.MustCompile(`(?i)\bAmended\s+by\s+(.*?)(?:;|$)`)
	ordinanceRe = regexp.MustCompile(`(?i)\bOrds?\.?\s*(?:No\.\s*)?([0-9][^;\s,)]*)`)
	seeAlsoRe   = regexp.MustCompile(`(?i)\bsee\s+([^;)]+)`)
)

// ParseHistory pulls ordinance numbers and see-also clauses out of an
// amendment history line such as
//
//	Added by Ord. 123-20; Amended by Ord. 45-21
func ParseHistory(text string) doctree.History {
	h := doctree.NewHistory()
	text = strings.Join(strings.Fields(text), " ")
	for _, m := range addedByRe.FindAllStringSubmatch(text, -1) {
		h.AddedBy = append(h.AddedBy, ordinances(m[1])...)
	}
	for _, m := range amendedByRe.FindAllStringSubmatch(text, -1) {
		h.AmendedBy = append(h.AmendedBy, ordinances(m[1])...)
	}
	for _, m := range seeAlsoRe.FindAllStringSubmatch(text, -1) {
		if s := strings.TrimRight(strings.TrimSpace(m[1]), ".,"); s != "" {
			h.SeeAlso = append(h.SeeAlso, s)
		}
	}
	return h
}

func ordinances(clause string) []string {
	var out []string
	for _, m := range ordinanceRe.FindAllStringSubmatch(clause, -1) {
		out = append(out, strings.TrimRight(m[1], "."))
	}
	return out
}
