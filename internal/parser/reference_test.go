package parser

import (
	"strings"
	"testing"
)

func TestParseInternalLink(t *testing.T) {
	l := ParseInternalLink(`pathname: '/codes/san_francisco/latest/sf_admin/0-0-0-1234', hash: '#JD_Article5'`)
	if l.Pathname != "/codes/san_francisco/latest/sf_admin/0-0-0-1234" {
		t.Errorf("unexpected pathname %q", l.Pathname)
	}
	if l.RecordID() != "0-0-0-1234" {
		t.Errorf("expected record id 0-0-0-1234, got %q", l.RecordID())
	}
	ref, ok := l.Reference()
	if !ok {
		t.Fatal("expected a reference")
	}
	if ref.Hash != "#JD_Article5" || ref.ReferenceString != "Article 5" || ref.RecordID != "0-0-0-1234" {
		t.Errorf("unexpected reference %+v", ref)
	}
}

func TestInternalLink_NoHash(t *testing.T) {
	for _, raw := range []string{
		`pathname: '/codes/x/0-0-0-1'`,
		`pathname: '/codes/x/0-0-0-1', hash: ''`,
		`pathname: '/codes/x/0-0-0-1', hash: '#'`,
	} {
		if _, ok := ParseInternalLink(raw).Reference(); ok {
			t.Errorf("%s: expected no reference", raw)
		}
	}
}

func TestReferenceString(t *testing.T) {
	tests := []struct {
		hash, record, want string
	}{
		{"#JD_Article5", "r", "Article 5"},
		{"#JD_ArticleIV", "r", "Article IV"},
		{"#JD_18.5", "r", "Section 18.5"},
		{"#JD_A12.3", "r", "Section A12.3"},
		{"#JD_Appendix1", "r", "Appendix1"},
		{"#JD_", "0-0-0-9", "0-0-0-9"},
		{"#Chapter2", "r", "Chapter2"},
	}
	for _, tc := range tests {
		if got := ReferenceString(tc.hash, tc.record); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.hash, tc.want, got)
		}
	}
}

func TestParseHistory(t *testing.T) {
	h := ParseHistory("(Added by Ord. 123-20, File No. 200123;\n Amended by Ord. 45-21; Ord. 9-22; see also Sec. 18.5)")
	if strings.Join(h.AddedBy, ",") != "123-20" {
		t.Errorf("unexpected added_by %v", h.AddedBy)
	}
	if strings.Join(h.AmendedBy, ",") != "45-21" {
		t.Errorf("unexpected amended_by %v", h.AmendedBy)
	}
	if len(h.SeeAlso) != 1 || h.SeeAlso[0] != "also Sec. 18.5" {
		t.Errorf("unexpected see_also %v", h.SeeAlso)
	}
}

func TestParseHistory_MultipleOrdinances(t *testing.T) {
	h := ParseHistory("Amended by Ords. 10-01, 11-02 and Ord. No. 12-03.")
	if strings.Join(h.AmendedBy, ",") != "10-01,12-03" {
		t.Errorf("unexpected amended_by %v", h.AmendedBy)
	}
	if len(h.AddedBy) != 0 || len(h.SeeAlso) != 0 {
		t.Errorf("expected only amendments, got %+v", h)
	}
}

func TestParseHistory_Empty(t *testing.T) {
	h := ParseHistory("No history here.")
	if !h.Empty() {
		t.Errorf("expected empty history, got %+v", h)
	}
	if h.AddedBy == nil || h.SeeAlso == nil {
		t.Error("expected non-nil lists for stable JSON")
	}
}
