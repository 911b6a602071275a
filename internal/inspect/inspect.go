// Package inspect answers read-only questions about an emitted chunk list:
// lookups, per-chapter counts, neighbors, short chunks, size statistics and
// duplicate analysis.
package inspect

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dgallion1/codechunk/internal/chunker"
	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/stats"
)

// Index wraps a chunk list with lookup maps. The chunk slice is never
// modified.
type Index struct {
	chunks   []doctree.Chunk
	byNumber map[int]int
	byHash   map[string]int
}

func NewIndex(chunks []doctree.Chunk) *Index {
	ix := &Index{
		chunks:   chunks,
		byNumber: make(map[int]int, len(chunks)),
		byHash:   make(map[string]int),
	}
	for i, c := range chunks {
		if _, ok := ix.byNumber[c.ChunkNumber]; !ok {
			ix.byNumber[c.ChunkNumber] = i
		}
		if h := doctree.Str(c.Hash); h != "" {
			if _, ok := ix.byHash[h]; !ok {
				ix.byHash[h] = i
			}
		}
	}
	return ix
}

func (ix *Index) Len() int { return len(ix.chunks) }

func (ix *Index) Chunks() []doctree.Chunk { return ix.chunks }

// At returns the chunk at array position i.
func (ix *Index) At(i int) (doctree.Chunk, bool) {
	if i < 0 || i >= len(ix.chunks) {
		return doctree.Chunk{}, false
	}
	return ix.chunks[i], true
}

// Query selects a chunk by identifier. The first non-empty field that
// matches wins, checked chunk by chunk in document order.
type Query struct {
	DocID     string
	SectionID string
	UUID      string
}

func (q Query) Empty() bool {
	return q.DocID == "" && q.SectionID == "" && q.UUID == ""
}

// Find returns the array position of the first chunk matching q.
func (ix *Index) Find(q Query) (int, bool) {
	if q.Empty() {
		return -1, false
	}
	for i, c := range ix.chunks {
		if q.DocID != "" && c.DocID == q.DocID {
			return i, true
		}
		if q.SectionID != "" && doctree.Str(c.SectionID) == q.SectionID {
			return i, true
		}
		if q.UUID != "" && c.UUID == q.UUID {
			return i, true
		}
	}
	return -1, false
}

// ByNumber returns the array position of the chunk with chunk_number n.
func (ix *Index) ByNumber(n int) (int, bool) {
	i, ok := ix.byNumber[n]
	return i, ok
}

// ByDocID returns every chunk of one document in order.
func (ix *Index) ByDocID(docID string) []doctree.Chunk {
	var out []doctree.Chunk
	for _, c := range ix.chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	return out
}

// ChapterCount holds unique sections, articles and divisions of a chapter.
type ChapterCount struct {
	Chapter   string `json:"chapter"`
	Sections  int    `json:"section_count"`
	Articles  int    `json:"article_count"`
	Divisions int    `json:"division_count"`
}

// ChapterStats counts per chapter in first-seen order. Chunks without a
// chapter are skipped.
func (ix *Index) ChapterStats() []ChapterCount {
	type sets struct {
		sections, articles, divisions map[string]bool
	}
	var order []string
	seen := make(map[string]*sets)
	for _, c := range ix.chunks {
		ch := doctree.Str(c.Chapter)
		if ch == "" {
			continue
		}
		s, ok := seen[ch]
		if !ok {
			s = &sets{map[string]bool{}, map[string]bool{}, map[string]bool{}}
			seen[ch] = s
			order = append(order, ch)
		}
		if v := doctree.Str(c.SectionID); v != "" {
			s.sections[v] = true
		}
		if v := doctree.Str(c.Article); v != "" {
			s.articles[v] = true
		}
		if v := doctree.Str(c.Division); v != "" {
			s.divisions[v] = true
		}
	}
	out := make([]ChapterCount, 0, len(order))
	for _, ch := range order {
		s := seen[ch]
		out = append(out, ChapterCount{
			Chapter:   ch,
			Sections:  len(s.sections),
			Articles:  len(s.articles),
			Divisions: len(s.divisions),
		})
	}
	return out
}

// Referenced resolves the references of c through the anchor-hash map.
// Hashes with no owning chunk are returned in missing.
func (ix *Index) Referenced(c doctree.Chunk) (found []doctree.Chunk, missing []string) {
	for _, ref := range c.References {
		if i, ok := ix.byHash[ref.Hash]; ok && ref.Hash != "" {
			found = append(found, ix.chunks[i])
			continue
		}
		missing = append(missing, ref.Hash)
	}
	return found, missing
}

// Summary is the short form of a chunk used by neighbor listings.
type Summary struct {
	ChunkNumber    int    `json:"chunk_number"`
	CharacterCount int    `json:"character_count"`
	Content        string `json:"content"`
	Title          string `json:"title"`
	Chapter        string `json:"chapter"`
	Article        string `json:"article"`
	SectionID      string `json:"section_id"`
	ChunkIndex     int    `json:"chunk_index"`
}

func Summarize(c doctree.Chunk) Summary {
	return Summary{
		ChunkNumber:    c.ChunkNumber,
		CharacterCount: c.CharacterCount,
		Content:        preview(c.Content, 100),
		Title:          c.Title,
		Chapter:        doctree.Str(c.Chapter),
		Article:        doctree.Str(c.Article),
		SectionID:      doctree.Str(c.SectionID),
		ChunkIndex:     c.ChunkIndex,
	}
}

// Neighbor is one slot in a window around a target chunk. Chunk is nil when
// the slot falls outside the list.
type Neighbor struct {
	Offset int            `json:"offset"`
	Chunk  *doctree.Chunk `json:"chunk"`
}

// Neighbors returns 2*radius+1 slots centered on chunk_number n.
func (ix *Index) Neighbors(n, radius int) ([]Neighbor, error) {
	center, ok := ix.ByNumber(n)
	if !ok {
		return nil, fmt.Errorf("chunk #%d not found", n)
	}
	if radius < 0 {
		radius = 0
	}
	out := make([]Neighbor, 0, 2*radius+1)
	for off := -radius; off <= radius; off++ {
		nb := Neighbor{Offset: off}
		if c, ok := ix.At(center + off); ok {
			nb.Chunk = &c
		}
		out = append(out, nb)
	}
	return out, nil
}

// ShortChunk is a chunk at or under a size limit plus the size of the chunk
// before it.
type ShortChunk struct {
	Index             int    `json:"array_index"`
	ChunkNumber       int    `json:"chunk_number"`
	CharacterCount    int    `json:"character_count"`
	Content           string `json:"content"`
	SectionID         string `json:"section_id"`
	Title             string `json:"title"`
	PredecessorLength *int   `json:"predecessor_length"`
}

func (ix *Index) Short(maxLen int) []ShortChunk {
	var out []ShortChunk
	for i, c := range ix.chunks {
		if c.CharacterCount > maxLen {
			continue
		}
		sc := ShortChunk{
			Index:          i,
			ChunkNumber:    c.ChunkNumber,
			CharacterCount: c.CharacterCount,
			Content:        c.Content,
			SectionID:      doctree.Str(c.SectionID),
			Title:          c.Title,
		}
		if i > 0 {
			n := ix.chunks[i-1].CharacterCount
			sc.PredecessorLength = &n
		}
		out = append(out, sc)
	}
	return out
}

// SizeStats describes the character and estimated token distribution.
type SizeStats struct {
	Chunks     int           `json:"chunks"`
	Documents  int           `json:"documents"`
	Characters stats.Summary `json:"characters"`
	Tokens     stats.Summary `json:"tokens"`
	// OverLimit counts chunks larger than limit, which can only come from
	// single blocks that were never cut.
	OverLimit int `json:"over_limit"`
}

func (ix *Index) SizeStats(limit int) SizeStats {
	chars := make([]int64, 0, len(ix.chunks))
	tokens := make([]int64, 0, len(ix.chunks))
	docs := make(map[string]bool)
	over := 0
	for _, c := range ix.chunks {
		chars = append(chars, int64(c.CharacterCount))
		tokens = append(tokens, int64(chunker.EstimateTokens(c.Content)))
		docs[c.DocID] = true
		if limit > 0 && c.CharacterCount > limit {
			over++
		}
	}
	return SizeStats{
		Chunks:     len(ix.chunks),
		Documents:  len(docs),
		Characters: stats.Summarize(chars),
		Tokens:     stats.Summarize(tokens),
		OverLimit:  over,
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TagInfo renders the first tag annotation as "tag:[classes]".
func TagInfo(c doctree.Chunk) string {
	if len(c.HTMLTags) == 0 {
		return "no_tags"
	}
	t := c.HTMLTags[0]
	return fmt.Sprintf("%s:[%s]", t.Tag, strings.Join(t.Classes, " "))
}

const rowHeader = "%-4s%-8s %-25s %-25s %-20s %-3s %-6s %-40s %s\n"

// FprintHeader writes the column header for FprintRow.
func FprintHeader(w io.Writer) {
	fmt.Fprintf(w, rowHeader, "", "Chunk #", "Chapter", "Article", "Section ID", "Idx", "Length", "HTML Tag Info", "Text")
	fmt.Fprintln(w, strings.Repeat("-", 150))
}

// FprintRow writes one table row. marked rows get an arrow.
func FprintRow(w io.Writer, c *doctree.Chunk, marked bool) {
	marker := ""
	if marked {
		marker = " -> "
	}
	if c == nil {
		fmt.Fprintf(w, rowHeader, marker, "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A")
		return
	}
	fmt.Fprintf(w, rowHeader, marker,
		fmt.Sprint(c.ChunkNumber),
		cut(strOr(c.Chapter, "None"), 24),
		cut(strOr(c.Article, "None"), 24),
		cut(strOr(c.SectionID, "None"), 19),
		fmt.Sprint(c.ChunkIndex),
		fmt.Sprint(c.CharacterCount),
		TagInfo(*c),
		fmt.Sprintf("%q", c.Content))
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// FprintSummary writes a field-per-line summary.
func FprintSummary(w io.Writer, label string, s Summary) {
	fmt.Fprintf(w, "%s:\n", label)
	fmt.Fprintf(w, "  chunk_number: %d\n", s.ChunkNumber)
	fmt.Fprintf(w, "  character_count: %d\n", s.CharacterCount)
	fmt.Fprintf(w, "  content: %s\n", s.Content)
	fmt.Fprintf(w, "  title: %s\n", s.Title)
	fmt.Fprintf(w, "  chapter: %s\n", s.Chapter)
	fmt.Fprintf(w, "  article: %s\n", s.Article)
	fmt.Fprintf(w, "  section_id: %s\n", s.SectionID)
	fmt.Fprintf(w, "  chunk_index: %d\n\n", s.ChunkIndex)
}

// FprintDetail writes the long inspection form of one chunk. Content longer
// than 200 characters is truncated unless verbose.
func FprintDetail(w io.Writer, n int, c doctree.Chunk, verbose bool) {
	bar := strings.Repeat("=", 80)
	fmt.Fprintf(w, "%s\nCHUNK %d\n%s\n", bar, n, bar)
	fmt.Fprintf(w, "Doc ID: %s\n", c.DocID)
	fmt.Fprintf(w, "UUID: %s...\n", cut(c.UUID, 8))
	fmt.Fprintf(w, "Title: %s\n", c.Title)

	fmt.Fprintf(w, "\nHierarchy:\n")
	fmt.Fprintf(w, "  Chapter: %s\n", strOr(c.Chapter, "N/A"))
	fmt.Fprintf(w, "  Article: %s\n", strOr(c.Article, "N/A"))
	optional := []struct {
		label string
		v     *string
	}{
		{"Article Number", c.ArticleNumber},
		{"Article Title", c.ArticleTitle},
		{"Division", c.Division},
		{"Section Number", c.SectionNumber},
		{"Section Title", c.SectionTitle},
	}
	for _, o := range optional {
		if v := doctree.Str(o.v); v != "" {
			fmt.Fprintf(w, "  %s: %s\n", o.label, v)
		}
	}

	if verbose || len([]rune(c.Content)) <= 200 {
		fmt.Fprintf(w, "\nContent:\n%s\n", c.Content)
	} else {
		fmt.Fprintf(w, "\nContent (truncated):\n%s...\n", cut(c.Content, 200))
	}

	fmt.Fprintf(w, "\nLinks:\n")
	fmt.Fprintf(w, "  Internal: %d\n", len(c.AllLinks.Internal))
	fmt.Fprintf(w, "  External: %d\n", len(c.AllLinks.External))
	fmt.Fprintf(w, "  Intercode: %d\n", len(c.AllLinks.Intercode))
	fmt.Fprintf(w, "  Images: %d\n", len(c.AllLinks.Images))

	if !c.History.Empty() {
		fmt.Fprintf(w, "\nHistory:\n")
		if len(c.History.AddedBy) > 0 {
			fmt.Fprintf(w, "  Added by: %s\n", strings.Join(c.History.AddedBy, ", "))
		}
		if len(c.History.AmendedBy) > 0 {
			fmt.Fprintf(w, "  Amended by: %s\n", strings.Join(c.History.AmendedBy, ", "))
		}
		if see := c.History.SeeAlso; len(see) > 3 {
			fmt.Fprintf(w, "  See also: %s... (%d total)\n", strings.Join(see[:3], ", "), len(see))
		} else if len(see) > 0 {
			fmt.Fprintf(w, "  See also: %s\n", strings.Join(see, ", "))
		}
	}

	if h := doctree.Str(c.Hash); h != "" {
		fmt.Fprintf(w, "\nHash: %s\n", h)
	}
	if refs := c.References; len(refs) > 0 {
		fmt.Fprintf(w, "\nReferences (%d total):\n", len(refs))
		for i, r := range refs[:min(5, len(refs))] {
			fmt.Fprintf(w, "  %d. %s -> %s\n", i+1, r.ReferenceString, r.Hash)
		}
		if len(refs) > 5 {
			fmt.Fprintf(w, "  ... and %d more\n", len(refs)-5)
		}
	}

	fmt.Fprintf(w, "\nOther metadata:\n")
	fmt.Fprintf(w, "  Character count: %d\n", c.CharacterCount)
	fmt.Fprintf(w, "  Source URL: %s\n", c.SourceURL)
	fmt.Fprintf(w, "  Download date: %s\n\n", c.DownloadDate)
}

// FprintChapterStats writes chapter counts sorted by chapter name.
func FprintChapterStats(w io.Writer, counts []ChapterCount) {
	sorted := append([]ChapterCount(nil), counts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Chapter < sorted[j].Chapter })
	fmt.Fprintf(w, "Total chapters: %d\n", len(sorted))
	for _, c := range sorted {
		fmt.Fprintf(w, "  %s: %d sections, %d articles, %d divisions\n", c.Chapter, c.Sections, c.Articles, c.Divisions)
	}
}

// Fprint writes size statistics.
func (s SizeStats) Fprint(w io.Writer) {
	fmt.Fprintf(w, "Chunks: %d in %d documents\n", s.Chunks, s.Documents)
	fmt.Fprintf(w, "Characters: min=%d p50=%.0f p95=%.0f p99=%.0f max=%d avg=%.1f\n",
		s.Characters.Min, s.Characters.P50, s.Characters.P95, s.Characters.P99, s.Characters.Max, s.Characters.Avg)
	fmt.Fprintf(w, "Est. tokens: total=%d p50=%.0f p95=%.0f max=%d\n",
		s.Tokens.Sum, s.Tokens.P50, s.Tokens.P95, s.Tokens.Max)
	fmt.Fprintf(w, "Over limit: %d\n", s.OverLimit)
}
