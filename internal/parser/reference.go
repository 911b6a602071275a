package parser

import (
	"path"
	"regexp"
	"strings"

	"github.com/dgallion1/codechunk/internal/doctree"
)

// InternalLink is a parsed jump-link descriptor of the form
//
//	pathname: '/codes/san_francisco/latest/sf_admin/0-0-0-1234', hash: '#JD_1.1'
type InternalLink struct {
	Pathname string
	Hash     string
}

var (
	pathnameRe = regexp.MustCompile(`pathname:\s*'([^']*)'`)
	hashRe     = regexp.MustCompile(`hash:\s*'([^']*)'`)

	articleRefRe  = regexp.MustCompile(`^Article([IVXLCDM]+|[\w-]+)`)
	appendixSecRe = regexp.MustCompile(`^A\d`)
	numericRe     = regexp.MustCompile(`^\d`)
)

// ParseInternalLink extracts the pathname and hash from a raw descriptor.
func ParseInternalLink(raw string) InternalLink {
	var l InternalLink
	if m := pathnameRe.FindStringSubmatch(raw); m != nil {
		l.Pathname = m[1]
	}
	if m := hashRe.FindStringSubmatch(raw); m != nil {
		l.Hash = m[1]
	}
	return l
}

// RecordID is the last segment of the link's path.
func (l InternalLink) RecordID() string {
	p := strings.TrimRight(l.Pathname, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Reference resolves the link. ok is false when the link has no hash.
func (l InternalLink) Reference() (doctree.Reference, bool) {
	if strings.TrimPrefix(l.Hash, "#") == "" {
		return doctree.Reference{}, false
	}
	rid := l.RecordID()
	return doctree.Reference{
		Hash:            l.Hash,
		ReferenceString: ReferenceString(l.Hash, rid),
		RecordID:        rid,
	}, true
}

// ReferenceString formats a jump hash for readers:
//
//	#JD_Article5   -> Article 5
//	#JD_A12.3      -> Section A12.3
//	#JD_18.5       -> Section 18.5
//	#JD_Appendix1  -> Appendix1
//
// Anything else is returned without the JD_ prefix. An empty target falls
// back to the record id.
func ReferenceString(hash, recordID string) string {
	ref := strings.TrimPrefix(strings.TrimPrefix(hash, "#"), "JD_")
	switch {
	case ref == "":
		return recordID
	case articleRefRe.MatchString(ref):
		return "Article " + articleRefRe.FindStringSubmatch(ref)[1]
	case appendixSecRe.MatchString(ref), numericRe.MatchString(ref):
		return "Section " + ref
	}
	return ref
}
