package inspect

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/codechunk/internal/doctree"
)

const (
	minSentence   = 20
	minOverlap    = 50
	maxOverlap    = 500
	minContained  = 50
	examplesShown = 3
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

type ExactDuplicate struct {
	Content string `json:"content"`
	Count   int    `json:"count"`
}

type RepeatedSentence struct {
	Index    int    `json:"array_index"`
	Chapter  string `json:"chapter"`
	Sentence string `json:"sentence"`
	Count    int    `json:"count"`
}

type Overlap struct {
	Index  int    `json:"array_index"`
	Length int    `json:"length"`
	Text   string `json:"text"`
}

type Containment struct {
	Chapter   string `json:"chapter"`
	Contained int    `json:"contained"`
	Container int    `json:"container"`
	Text      string `json:"text"`
}

// DuplicateReport collects four kinds of repeated text.
type DuplicateReport struct {
	Exact []ExactDuplicate `json:"exact"`
	// ExtraCopies is the sum of count-1 over Exact.
	ExtraCopies int `json:"extra_copies"`

	Repeated           []RepeatedSentence `json:"repeated_sentences"`
	ChunksWithRepeats  int                `json:"chunks_with_repeats"`
	RepeatedExtraCount int                `json:"repeated_extra_count"`

	Overlaps     []Overlap `json:"overlaps"`
	OverlapChars int       `json:"overlap_chars"`

	Containments []Containment `json:"containments"`
}

// Duplicates scans the chunk list. Containment is quadratic per chapter.
func (ix *Index) Duplicates() DuplicateReport {
	r := DuplicateReport{
		Exact:        []ExactDuplicate{},
		Repeated:     []RepeatedSentence{},
		Overlaps:     []Overlap{},
		Containments: []Containment{},
	}
	r.exact(ix.chunks)
	r.sentences(ix.chunks)
	r.overlaps(ix.chunks)
	r.containment(ix.chunks)
	return r
}

func (r *DuplicateReport) exact(chunks []doctree.Chunk) {
	counts := make(map[string]int)
	var order []string
	for _, c := range chunks {
		if counts[c.Content] == 0 {
			order = append(order, c.Content)
		}
		counts[c.Content]++
	}
	for _, text := range order {
		if n := counts[text]; n > 1 {
			r.Exact = append(r.Exact, ExactDuplicate{Content: text, Count: n})
			r.ExtraCopies += n - 1
		}
	}
	sort.SliceStable(r.Exact, func(i, j int) bool { return r.Exact[i].Count > r.Exact[j].Count })
}

func (r *DuplicateReport) sentences(chunks []doctree.Chunk) {
	for i, c := range chunks {
		counts := make(map[string]int)
		var order []string
		for _, s := range sentenceSplitRe.Split(c.Content, -1) {
			s = strings.TrimSpace(s)
			if len(s) <= minSentence {
				continue
			}
			if counts[s] == 0 {
				order = append(order, s)
			}
			counts[s]++
		}
		repeated := false
		for _, s := range order {
			if n := counts[s]; n > 1 {
				repeated = true
				r.RepeatedExtraCount += n - 1
				r.Repeated = append(r.Repeated, RepeatedSentence{
					Index:    i,
					Chapter:  doctree.Str(c.Chapter),
					Sentence: s,
					Count:    n,
				})
			}
		}
		if repeated {
			r.ChunksWithRepeats++
		}
	}
}

// overlaps finds the longest suffix of each chunk that is a prefix of the
// next one.
func (r *DuplicateReport) overlaps(chunks []doctree.Chunk) {
	for i := 0; i+1 < len(chunks); i++ {
		a, b := chunks[i].Content, chunks[i+1].Content
		limit := min(len(a), len(b), maxOverlap)
		for n := limit; n >= minOverlap; n-- {
			if a[len(a)-n:] == b[:n] {
				r.Overlaps = append(r.Overlaps, Overlap{Index: i, Length: n, Text: a[len(a)-n:]})
				r.OverlapChars += n
				break
			}
		}
	}
}

func (r *DuplicateReport) containment(chunks []doctree.Chunk) {
	byChapter := make(map[string][]int)
	var order []string
	for i, c := range chunks {
		ch := strOr(c.Chapter, "Unknown")
		if _, ok := byChapter[ch]; !ok {
			order = append(order, ch)
		}
		byChapter[ch] = append(byChapter[ch], i)
	}
	for _, ch := range order {
		idx := byChapter[ch]
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				a, b := chunks[idx[x]].Content, chunks[idx[y]].Content
				if len(a) <= minContained || len(b) <= minContained {
					continue
				}
				switch {
				case strings.Contains(b, a):
					r.Containments = append(r.Containments, Containment{Chapter: ch, Contained: idx[x], Container: idx[y], Text: a})
				case strings.Contains(a, b):
					r.Containments = append(r.Containments, Containment{Chapter: ch, Contained: idx[y], Container: idx[x], Text: b})
				}
			}
		}
	}
}

// Fprint writes counts and the first few examples of each kind.
func (r DuplicateReport) Fprint(w io.Writer) {
	fmt.Fprintf(w, "=== EXACT DUPLICATE CHUNKS ===\n")
	fmt.Fprintf(w, "Number of chunks that appear more than once: %d\n", len(r.Exact))
	fmt.Fprintf(w, "Total duplicate occurrences: %d\n", r.ExtraCopies)
	for _, d := range r.Exact[:min(10, len(r.Exact))] {
		fmt.Fprintf(w, "\nAppears %d times: '%s'\n", d.Count, preview(d.Content, 100))
	}

	fmt.Fprintf(w, "\n=== DUPLICATE PATTERNS WITHIN CHUNKS ===\n")
	for _, s := range r.Repeated[:min(examplesShown, len(r.Repeated))] {
		fmt.Fprintf(w, "Chunk %d (chapter %s) repeats %d times: '%s'\n", s.Index, s.Chapter, s.Count, preview(s.Sentence, 80))
	}
	fmt.Fprintf(w, "Chunks with internal repeated sentences: %d\n", r.ChunksWithRepeats)
	fmt.Fprintf(w, "Total repeated sentences: %d\n", r.RepeatedExtraCount)

	fmt.Fprintf(w, "\n=== OVERLAPPING TEXT BETWEEN CONSECUTIVE CHUNKS ===\n")
	for _, o := range r.Overlaps[:min(examplesShown, len(r.Overlaps))] {
		fmt.Fprintf(w, "Chunks %d and %d overlap by %d characters: '%s'\n", o.Index, o.Index+1, o.Length, preview(o.Text, 100))
	}
	fmt.Fprintf(w, "Total overlapping consecutive chunks: %d\n", len(r.Overlaps))
	fmt.Fprintf(w, "Total overlapping characters: %d\n", r.OverlapChars)

	fmt.Fprintf(w, "\n=== PARENT-CHILD DUPLICATION PATTERN ===\n")
	for _, c := range r.Containments[:min(examplesShown, len(r.Containments))] {
		fmt.Fprintf(w, "Chapter %s: chunk %d is contained in chunk %d: '%s'\n", c.Chapter, c.Contained, c.Container, preview(c.Text, 100))
	}
	fmt.Fprintf(w, "Total parent-child duplicates found: %d\n", len(r.Containments))
}
