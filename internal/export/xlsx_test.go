package export

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/doctree"
)

func TestWriteXLSX(t *testing.T) {
	chunks := []doctree.Chunk{{
		Meta:           doctree.Meta{Chapter: doctree.Ptr("Chapter 5"), SectionID: doctree.Ptr("JD_5.1")},
		ChunkNumber:    1,
		ChunkIndex:     1,
		DocID:          "sf_municipal_code_chapter_5",
		Content:        "Body text.",
		CharacterCount: 10,
		AllLinks:       doctree.Links{Internal: []string{"a", "b"}},
		History:        doctree.History{AddedBy: []string{"Ord. 1", "Ord. 2"}},
	}}
	rep := audit.New()
	rep.Chunks = 1
	rep.Boundary("Section")
	rep.Fallback("p", "stray text")

	path := filepath.Join(t.TempDir(), "chunks.xlsx")
	if err := WriteXLSX(path, chunks, rep); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	rows, err := ReadSheet(path, ChunkSheet)
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
	if rows[0][0] != "chunk_number" || rows[0][len(rows[0])-1] != "content" {
		t.Errorf("unexpected header %v", rows[0])
	}
	row := rows[1]
	if row[1] != "sf_municipal_code_chapter_5" || row[3] != "Chapter 5" || row[11] != "2" {
		t.Errorf("unexpected chunk row %v", row)
	}
	if row[16] != "Ord. 1; Ord. 2" || row[len(row)-1] != "Body text." {
		t.Errorf("unexpected history or content %v", row)
	}

	auditRows, err := ReadSheet(path, AuditSheet)
	if err != nil {
		t.Fatalf("ReadSheet audit: %v", err)
	}
	var joined []string
	for _, r := range auditRows {
		joined = append(joined, strings.Join(r, "="))
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{"chunks=1", "fallback_blocks=1", "boundary:Section=1", "p=1=10=stray text"} {
		if !strings.Contains(all, want) {
			t.Errorf("expected %q in audit sheet:\n%s", want, all)
		}
	}
}

func TestWriteXLSX_NoAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.xlsx")
	if err := WriteXLSX(path, nil, nil); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	if _, err := ReadSheet(path, AuditSheet); err == nil {
		t.Error("expected missing audit sheet")
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("a", maxCellChars+5)
	if got := clip(long); len(got) != maxCellChars {
		t.Errorf("expected %d chars, got %d", maxCellChars, len(got))
	}
}
