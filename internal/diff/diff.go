// Package diff compares chunk output against a raw text rendition of the same
// code, article by article. It uses github.com/pmezard/go-difflib/difflib for
// sequence matching and unified patches.
package diff

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/dgallion1/codechunk/internal/doctree"
)

// Options controls article comparison.
type Options struct {
	// MinDiffSize drops differences shorter than this many characters on
	// both sides. 0 means the default of 200.
	MinDiffSize int

	// MaxCompare is a guardrail on normalized article size. Larger articles
	// are only checked for equality. 0 means the default of 1,000,000.
	MaxCompare int

	// Context is the number of characters shown around each difference.
	// 0 means the default of 400.
	Context int
}

func (o Options) withDefaults() Options {
	if o.MinDiffSize <= 0 {
		o.MinDiffSize = 200
	}
	if o.MaxCompare <= 0 {
		o.MaxCompare = 1_000_000
	}
	if o.Context <= 0 {
		o.Context = 400
	}
	return o
}

// Reconstruct joins the non-empty chunk contents in order.
func Reconstruct(chunks []doctree.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Content != "" {
			parts = append(parts, c.Content)
		}
	}
	return strings.Join(parts, "\n")
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses every whitespace run to one space.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Article is one ARTICLE division located in a text. Start and End are
// byte offsets.
type Article struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Header string `json:"header"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

var articleRe = regexp.MustCompile(`ARTICLE\s+([IVXLCDM]+):\s*([^\n]+)?`)

// FindArticleDivisions splits text at each "ARTICLE <roman>:" header. The
// title may follow on the next line. Each division runs to the next header
// or the end of the text.
func FindArticleDivisions(text string) []Article {
	var out []Article
	for _, m := range articleRe.FindAllStringSubmatchIndex(text, -1) {
		a := Article{
			Number: text[m[2]:m[3]],
			Header: text[m[0]:m[1]],
			Start:  m[0],
		}
		if m[4] >= 0 {
			a.Title = strings.TrimSpace(text[m[4]:m[5]])
		}
		out = append(out, a)
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].End = out[i+1].Start
		} else {
			out[i].End = len(text)
		}
	}
	return out
}

var ignoredURLRe = []*regexp.Regexp{
	regexp.MustCompile(`^https?://\S+$`),
	regexp.MustCompile(`^ftp://\S+$`),
	regexp.MustCompile(`^www\.\S+$`),
}

// ShouldIgnore reports whether a differing fragment is only whitespace,
// underscores or a single URL.
func ShouldIgnore(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	if strings.TrimSpace(strings.ReplaceAll(t, "_", " ")) == "" {
		return true
	}
	for _, re := range ignoredURLRe {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// Difference is one non-equal opcode between raw and reconstructed text.
// Offsets are rune offsets into the normalized texts.
type Difference struct {
	Tag          string `json:"tag"` // delete, insert or replace
	RawStart     int    `json:"raw_start"`
	RawEnd       int    `json:"raw_end"`
	ReconStart   int    `json:"recon_start"`
	ReconEnd     int    `json:"recon_end"`
	Raw          string `json:"raw"`
	Recon        string `json:"recon"`
	RawContext   string `json:"raw_context"`
	ReconContext string `json:"recon_context"`
}

// ArticleDiff is the comparison of one article present on both sides.
type ArticleDiff struct {
	Number      string       `json:"number"`
	Identical   bool         `json:"identical"`
	Oversize    bool         `json:"oversize"`
	SizeDelta   int          `json:"size_delta"`
	Differences []Difference `json:"differences"`
}

// Count is the number of reportable differences. An oversize article that
// differs counts once.
func (a ArticleDiff) Count() int {
	if a.Oversize {
		if a.Identical {
			return 0
		}
		return 1
	}
	return len(a.Differences)
}

// CompareArticle diffs one article's raw and reconstructed text on
// whitespace-normalized runes.
func CompareArticle(number, raw, recon string, opts Options) ArticleDiff {
	opts = opts.withDefaults()
	nr := []rune(NormalizeWhitespace(raw))
	nc := []rune(NormalizeWhitespace(recon))
	ad := ArticleDiff{Number: number, SizeDelta: len(nc) - len(nr), Differences: []Difference{}}

	if len(nr) > opts.MaxCompare || len(nc) > opts.MaxCompare {
		ad.Oversize = true
		ad.Identical = string(nr) == string(nc)
		return ad
	}
	if string(nr) == string(nc) {
		ad.Identical = true
		return ad
	}

	m := difflib.NewMatcher(runeStrings(nr), runeStrings(nc))
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		rawPart := string(nr[op.I1:op.I2])
		reconPart := string(nc[op.J1:op.J2])
		if ShouldIgnore(rawPart) && ShouldIgnore(reconPart) {
			continue
		}
		if max(op.I2-op.I1, op.J2-op.J1) < opts.MinDiffSize {
			continue
		}

		d := Difference{
			RawStart: op.I1, RawEnd: op.I2,
			ReconStart: op.J1, ReconEnd: op.J2,
			Raw: rawPart, Recon: reconPart,
		}
		switch op.Tag {
		case 'd':
			d.Tag = "delete"
			d.RawContext = surrounding(nr, op.I1, op.I2, opts.Context)
			d.ReconContext = placeholder(nc, op.J1, op.I2-op.I1, opts.Context)
		case 'i':
			d.Tag = "insert"
			d.RawContext = placeholder(nr, op.I1, op.J2-op.J1, opts.Context)
			d.ReconContext = surrounding(nc, op.J1, op.J2, opts.Context)
		default:
			d.Tag = "replace"
			d.RawContext = surrounding(nr, op.I1, op.I2, opts.Context)
			d.ReconContext = surrounding(nc, op.J1, op.J2, opts.Context)
		}
		ad.Differences = append(ad.Differences, d)
	}
	ad.Identical = len(ad.Differences) == 0 && ad.SizeDelta == 0
	return ad
}

func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// surrounding marks text[start:end] with [[[ ]]] inside n runes of context.
func surrounding(text []rune, start, end, n int) string {
	lo := max(0, start-n)
	hi := min(len(text), end+n)
	return string(text[lo:start]) + "[[[" + string(text[start:end]) + "]]]" + string(text[end:hi])
}

// placeholder marks where length runes are missing at pos.
func placeholder(text []rune, pos, length, n int) string {
	lo := max(0, pos-n)
	hi := min(len(text), pos+n)
	markers := strings.Repeat("%-", length/2) + strings.Repeat("%", length%2)
	return string(text[lo:pos]) + "[[[" + markers + "]]]" + string(text[pos:hi])
}

// Report is the article-level comparison of a raw text and a reconstruction.
type Report struct {
	RawArticles   []Article     `json:"raw_articles"`
	ReconArticles []Article     `json:"recon_articles"`
	MissingInRec  []string      `json:"missing_in_reconstructed"`
	ExtraInRec    []string      `json:"extra_in_reconstructed"`
	Articles      []ArticleDiff `json:"articles"`
	MinDiffSize   int           `json:"min_diff_size"`
}

// Total is the number of reportable differences across all articles.
func (r *Report) Total() int {
	n := 0
	for _, a := range r.Articles {
		n += a.Count()
	}
	return n
}

// CompareArticles locates ARTICLE divisions on both sides and diffs the
// articles they share. Articles with byte-identical text are skipped.
func CompareArticles(raw, recon string, opts Options) *Report {
	opts = opts.withDefaults()
	r := &Report{
		RawArticles:   FindArticleDivisions(raw),
		ReconArticles: FindArticleDivisions(recon),
		MissingInRec:  []string{},
		ExtraInRec:    []string{},
		Articles:      []ArticleDiff{},
		MinDiffSize:   opts.MinDiffSize,
	}

	rawByNum := byNumber(r.RawArticles)
	recByNum := byNumber(r.ReconArticles)
	for n := range rawByNum {
		if _, ok := recByNum[n]; !ok {
			r.MissingInRec = append(r.MissingInRec, n)
		}
	}
	var common []string
	for n := range recByNum {
		if _, ok := rawByNum[n]; ok {
			common = append(common, n)
		} else {
			r.ExtraInRec = append(r.ExtraInRec, n)
		}
	}
	sort.Strings(r.MissingInRec)
	sort.Strings(r.ExtraInRec)
	sort.Strings(common)

	for _, n := range common {
		ra, ca := rawByNum[n], recByNum[n]
		rawText := raw[ra.Start:ra.End]
		recText := recon[ca.Start:ca.End]
		if rawText == recText {
			continue
		}
		ad := CompareArticle(n, rawText, recText, opts)
		if ad.Count() > 0 {
			r.Articles = append(r.Articles, ad)
		}
	}
	return r
}

// byNumber keeps the last article seen for each number.
func byNumber(as []Article) map[string]Article {
	m := make(map[string]Article, len(as))
	for _, a := range as {
		m[a.Number] = a
	}
	return m
}

// Fprint writes the report in a reviewer-friendly text layout.
func (r *Report) Fprint(w io.Writer) {
	fmt.Fprintf(w, "Found %d articles in raw text\n", len(r.RawArticles))
	fmt.Fprintf(w, "Found %d articles in reconstructed text\n", len(r.ReconArticles))
	if len(r.MissingInRec) > 0 {
		fmt.Fprintf(w, "\nArticles in RAW but missing in RECONSTRUCTED: %v\n", r.MissingInRec)
	}
	if len(r.ExtraInRec) > 0 {
		fmt.Fprintf(w, "\nArticles in RECONSTRUCTED but not in RAW: %v\n", r.ExtraInRec)
	}

	for _, a := range r.Articles {
		if a.Oversize {
			fmt.Fprintf(w, "\nArticle %s DIFFERS, too large for detailed analysis (size difference %d chars)\n", a.Number, a.SizeDelta)
			continue
		}
		for i, d := range a.Differences {
			switch d.Tag {
			case "delete":
				fmt.Fprintf(w, "\n%s\nArticle %s - Diff %d: %d characters present in RAW, missing in RECONSTRUCTED\n",
					strings.Repeat("-", 80), a.Number, i+1, len([]rune(d.Raw)))
				fmt.Fprintf(w, "Missing text: %q\n", d.Raw)
			case "insert":
				fmt.Fprintf(w, "\n%s\nArticle %s - Diff %d: %d characters present in RECONSTRUCTED, missing in RAW\n",
					strings.Repeat("+", 80), a.Number, i+1, len([]rune(d.Recon)))
				fmt.Fprintf(w, "Extra text: %q\n", d.Recon)
			default:
				fmt.Fprintf(w, "\n%s\nArticle %s - Diff %d: REPLACEMENT - %d chars in RAW replaced by %d chars in RECONSTRUCTED\n",
					strings.Repeat("=", 80), a.Number, i+1, len([]rune(d.Raw)), len([]rune(d.Recon)))
				fmt.Fprintf(w, "RAW text: %q\nRECONSTRUCTED text: %q\n", d.Raw, d.Recon)
			}
			fmt.Fprintf(w, "\nRAW text context:\n%s\n", d.RawContext)
			fmt.Fprintf(w, "\nRECONSTRUCTED text context:\n%s\n", d.ReconContext)
		}
		fmt.Fprintf(w, "\nFound %d differences >= %d chars in Article %s\n", a.Count(), r.MinDiffSize, a.Number)
	}
	fmt.Fprintf(w, "\nTotal differences >= %d chars found: %d\n", r.MinDiffSize, r.Total())
}
