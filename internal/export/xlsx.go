// Package export writes the chunk list and its audit as an xlsx workbook
// for manual review.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/doctree"
)

const (
	ChunkSheet = "Chunks"
	AuditSheet = "Audit"

	// Excel rejects cells longer than this.
	maxCellChars = 32767
)

var chunkHeader = []any{
	"chunk_number", "doc_id", "chunk_index", "chapter", "article", "division",
	"section_id", "section_number", "section_title", "title", "character_count",
	"internal_links", "external_links", "intercode_links", "image_links",
	"references", "added_by", "amended_by", "hash", "uuid", "content",
}

// WriteXLSX writes chunks to the Chunks sheet and, when report is non-nil,
// a key/value summary plus unrecognized markup to the Audit sheet.
func WriteXLSX(path string, chunks []doctree.Chunk, report *audit.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ChunkSheet); err != nil {
		return fmt.Errorf("naming chunk sheet: %w", err)
	}
	if err := writeChunks(f, chunks); err != nil {
		return err
	}
	if report != nil {
		if _, err := f.NewSheet(AuditSheet); err != nil {
			return fmt.Errorf("creating audit sheet: %w", err)
		}
		if err := writeAudit(f, report); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeChunks(f *excelize.File, chunks []doctree.Chunk) error {
	if err := setRow(f, ChunkSheet, 1, chunkHeader); err != nil {
		return err
	}
	for i, c := range chunks {
		row := []any{
			c.ChunkNumber,
			c.DocID,
			c.ChunkIndex,
			doctree.Str(c.Chapter),
			doctree.Str(c.Article),
			doctree.Str(c.Division),
			doctree.Str(c.SectionID),
			doctree.Str(c.SectionNumber),
			doctree.Str(c.SectionTitle),
			c.Title,
			c.CharacterCount,
			len(c.AllLinks.Internal),
			len(c.AllLinks.External),
			len(c.AllLinks.Intercode),
			len(c.AllLinks.Images),
			len(c.References),
			strings.Join(c.History.AddedBy, "; "),
			strings.Join(c.History.AmendedBy, "; "),
			doctree.Str(c.Hash),
			c.UUID,
			clip(c.Content),
		}
		if err := setRow(f, ChunkSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ChunkSheet, "U", "U", 100); err != nil {
		return fmt.Errorf("sizing content column: %w", err)
	}
	return f.SetPanes(ChunkSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeAudit(f *excelize.File, r *audit.Report) error {
	rows := [][]any{
		{"input", r.Input},
		{"content_hash", r.ContentHash},
		{"chunks", r.Chunks},
		{"sections", r.Sections},
		{"content_blocks", r.ContentBlocks},
		{"footnotes", r.Footnotes},
		{"continuations", r.Continuations},
		{"fallback_blocks", r.FallbackBlocks},
		{"skipped_annotations", r.SkippedAnnotations},
		{"unresolved_links", r.UnresolvedLinks},
	}
	levels := make([]string, 0, len(r.Boundaries))
	for lvl := range r.Boundaries {
		levels = append(levels, lvl)
	}
	sort.Strings(levels)
	for _, lvl := range levels {
		rows = append(rows, []any{"boundary:" + lvl, r.Boundaries[lvl]})
	}

	rows = append(rows, []any{}, []any{"unrecognized", "count", "chars", "sample"})
	for _, cc := range r.Sorted() {
		sample := ""
		if len(cc.Samples) > 0 {
			sample = cc.Samples[0]
		}
		rows = append(rows, []any{cc.Key, cc.Count, cc.Chars, sample})
	}

	for i, row := range rows {
		if err := setRow(f, AuditSheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
	return nil
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxCellChars {
		return s
	}
	return string(r[:maxCellChars])
}

// ReadSheet returns the rows of one sheet of an xlsx file as text.
func ReadSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()
	return f.GetRows(sheet)
}
