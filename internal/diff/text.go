package diff

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/codechunk/internal/doctree"
)

var (
	// Image URLs in the raw export are sometimes wrapped mid-path.
	brokenImageURLRe = regexp.MustCompile(`(https://export\.amlegal\.com/media/[^/]+/IMAGES/[^\]]*)\s*\n\s*([^\]]+\.(?:jpg|png))`)
	imageURLRe       = regexp.MustCompile(`https://export\.amlegal\.com/media/[^/]+/IMAGES/[^\]]+\.(?:jpg|png)`)
	bareImageURLRe   = regexp.MustCompile(`https://export\.amlegal\.com/media/[^\s\]]+\.(?:jpg|png)`)
	emptyBracketsRe  = regexp.MustCompile(`\[\]`)
)

// ImageComparison is the set difference between image URLs in the raw text
// and image links in the chunks.
type ImageComparison struct {
	RawCount   int      `json:"raw_count"`
	ChunkCount int      `json:"chunk_count"`
	Missing    []string `json:"missing_from_chunks"`
	Extra      []string `json:"extra_in_chunks"`
}

// CompareImageURLs collects unique image URLs on both sides.
func CompareImageURLs(raw string, chunks []doctree.Chunk) ImageComparison {
	rawSet := make(map[string]bool)
	fixed := brokenImageURLRe.ReplaceAllString(raw, "$1$2")
	for _, u := range imageURLRe.FindAllString(fixed, -1) {
		rawSet[u] = true
	}
	chunkSet := make(map[string]bool)
	for _, c := range chunks {
		for _, img := range c.AllLinks.Images {
			if img.Src != "" {
				chunkSet[img.Src] = true
			}
		}
	}

	return ImageComparison{
		RawCount:   len(rawSet),
		ChunkCount: len(chunkSet),
		Missing:    setDiff(rawSet, chunkSet),
		Extra:      setDiff(chunkSet, rawSet),
	}
}

func setDiff(a, b map[string]bool) []string {
	out := []string{}
	for k := range a {
		if !b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// StripImageURLs removes export image URLs and the brackets left around
// them.
func StripImageURLs(raw string) string {
	raw = brokenImageURLRe.ReplaceAllString(raw, "")
	raw = bareImageURLRe.ReplaceAllString(raw, "")
	return emptyBracketsRe.ReplaceAllString(raw, "")
}

// Mismatch is one resynchronized divergence found by DetailedDiffs.
type Mismatch struct {
	RawPos   int    `json:"raw_pos"`
	ChunkPos int    `json:"chunk_pos"`
	Raw      string `json:"raw"`
	Chunks   string `json:"chunks"`
}

// TextComparison compares the whole normalized text of both sides.
type TextComparison struct {
	RawLen     int        `json:"raw_len"`
	ChunkLen   int        `json:"chunk_len"`
	Mismatches []Mismatch `json:"mismatches"`
	RawExtra   string     `json:"raw_extra,omitempty"`
	ChunkExtra string     `json:"chunk_extra,omitempty"`
}

// Percent is the length difference relative to the raw text.
func (t TextComparison) Percent() float64 {
	if t.RawLen == 0 {
		return 0
	}
	return float64(abs(t.RawLen-t.ChunkLen)) / float64(t.RawLen) * 100
}

// CompareText strips image URLs from raw, joins chunk contents with spaces,
// normalizes whitespace on both and walks them for divergences. limit caps
// the number of mismatches kept; 0 keeps all.
func CompareText(raw string, chunks []doctree.Chunk, limit int) TextComparison {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	rawNorm := NormalizeWhitespace(StripImageURLs(raw))
	chunkNorm := NormalizeWhitespace(strings.Join(parts, " "))
	return DetailedDiffs(rawNorm, chunkNorm, limit)
}

const (
	syncWindow = 100
	syncProbe  = 10
	showAround = 20
	showExtra  = 100
)

// DetailedDiffs advances through both texts in lockstep. At each divergence
// it searches a widening window for a point where the next ten runes agree
// again and records what was skipped on each side.
func DetailedDiffs(a, b string, limit int) TextComparison {
	ra, rb := []rune(a), []rune(b)
	tc := TextComparison{RawLen: len(ra), ChunkLen: len(rb), Mismatches: []Mismatch{}}

	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if ra[i] == rb[j] {
			i++
			j++
			continue
		}
		startI, startJ := i, j
		if di, dj, ok := resync(ra, rb, i, j); ok {
			i += di
			j += dj
		} else {
			i++
			j++
		}
		if limit == 0 || len(tc.Mismatches) < limit {
			tc.Mismatches = append(tc.Mismatches, Mismatch{
				RawPos:   startI,
				ChunkPos: startJ,
				Raw:      window(ra, startI-showAround, i+showAround),
				Chunks:   window(rb, startJ-showAround, j+showAround),
			})
		}
	}
	if i < len(ra) {
		tc.RawExtra = window(ra, i, i+showExtra)
	}
	if j < len(rb) {
		tc.ChunkExtra = window(rb, j, j+showExtra)
	}
	return tc
}

func resync(a, b []rune, i, j int) (int, int, bool) {
	for w := 1; w < syncWindow; w++ {
		for off := 0; off < w; off++ {
			ai, bj := i+off, j+w-off
			if ai >= len(a) || bj >= len(b) {
				continue
			}
			if window(a, ai, ai+syncProbe) == window(b, bj, bj+syncProbe) {
				return off, w - off, true
			}
		}
	}
	return 0, 0, false
}

func window(rs []rune, lo, hi int) string {
	lo = max(0, lo)
	hi = min(len(rs), hi)
	if lo >= hi {
		return ""
	}
	return string(rs[lo:hi])
}

// Fprint writes the text comparison.
func (t TextComparison) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\n=== TEXT COMPARISON (URLs removed from raw) ===\n")
	fmt.Fprintf(w, "Raw (normalized): %d chars\n", t.RawLen)
	fmt.Fprintf(w, "Chunks (normalized): %d chars\n", t.ChunkLen)
	fmt.Fprintf(w, "Difference: %d chars (%.2f%%)\n", abs(t.RawLen-t.ChunkLen), t.Percent())

	fmt.Fprintf(w, "\n=== DETAILED DIFFERENCES ===\n\n")
	for n, m := range t.Mismatches {
		fmt.Fprintf(w, "Diff %d at raw:%d chunk:%d\n", n+1, m.RawPos, m.ChunkPos)
		fmt.Fprintf(w, "  Raw:    '%s'\n", m.Raw)
		fmt.Fprintf(w, "  Chunks: '%s'\n\n", m.Chunks)
	}
	if t.RawExtra != "" {
		fmt.Fprintf(w, "\nRaw has extra characters at end: '%s'...\n", t.RawExtra)
	}
	if t.ChunkExtra != "" {
		fmt.Fprintf(w, "\nChunks have extra characters at end: '%s'...\n", t.ChunkExtra)
	}
}

// Fprint writes the image URL comparison, listing at most ten URLs per side.
func (c ImageComparison) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\n=== IMAGE URL COMPARISON ===\n")
	fmt.Fprintf(w, "Unique image URLs in raw text: %d\n", c.RawCount)
	fmt.Fprintf(w, "Unique image URLs in chunks: %d\n", c.ChunkCount)
	list := func(title string, urls []string) {
		if len(urls) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d URLs):\n", title, len(urls))
		for _, u := range urls[:min(10, len(urls))] {
			fmt.Fprintf(w, "  - %s\n", u)
		}
		if len(urls) > 10 {
			fmt.Fprintf(w, "  ... and %d more\n", len(urls)-10)
		}
	}
	list("Missing from chunks", c.Missing)
	list("Extra in chunks", c.Extra)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
