package chunker

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/google/uuid"
)

// Corpus is the static metadata stamped on every chunk.
type Corpus struct {
	SourceURL    string
	DownloadDate string
	City         string
	DocIDPrefix  string
}

// Config controls chunking behavior.
type Config struct {
	MaxChunkSize int // Character (rune) threshold that triggers a split.
	Corpus       Corpus
	Now          func() time.Time
}

// DefaultConfig returns the settings used for the San Francisco export.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: 2000,
		Corpus: Corpus{
			SourceURL:    "https://codelibrary.amlegal.com/codes/san_francisco/latest/overview",
			DownloadDate: "2024-06-30",
			City:         "San Francisco",
			DocIDPrefix:  "sf_municipal_code",
		},
		Now: time.Now,
	}
}

// InvariantError reports a hierarchy-tracking defect detected at emission.
// It is never recovered from.
type InvariantError struct {
	ChunkID string
	Reason  string
}

func (e *InvariantError) Error() string {
	if e.ChunkID == "" {
		return "chunk invariant violated: " + e.Reason
	}
	return fmt.Sprintf("chunk invariant violated for %s: %s", e.ChunkID, e.Reason)
}

// State is the per-section accumulation state. Buckets persist across
// size-triggered splits and are cleared when a new section starts.
type State struct {
	Meta       doctree.Meta
	Hash       *string
	ChunkIndex int // Section-local, starts at 1. Zero means undefined.
	Links      doctree.Links
	History    doctree.History
	References []doctree.Reference
	DivClasses []string
	Tags       []doctree.TagAnnotation // Sources of the current buffer only.

	buf      strings.Builder
	bufRunes int
	docID    string
}

// Buffered returns the text waiting to be emitted.
func (s *State) Buffered() string {
	return s.buf.String()
}

func (s *State) clearBuckets() {
	s.Hash = nil
	s.ChunkIndex = 1
	s.Links = doctree.NewLinks()
	s.History = doctree.NewHistory()
	s.References = []doctree.Reference{}
	s.DivClasses = []string{}
	s.docID = ""
	s.resetBuffer()
}

func (s *State) resetBuffer() {
	s.buf.Reset()
	s.bufRunes = 0
	s.Tags = nil
}

// Accumulator buffers section text and emits size-bounded chunks in order.
type Accumulator struct {
	cfg    Config
	State  State
	chunks []doctree.Chunk
	number int

	chunkIDs map[string]bool
	docIDs   map[string]bool
	docBases map[string]int
}

// New returns an Accumulator positioned at the start of an untitled
// leading section.
func New(cfg Config) *Accumulator {
	def := DefaultConfig()
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = def.MaxChunkSize
	}
	if cfg.Corpus.DocIDPrefix == "" {
		cfg.Corpus.DocIDPrefix = def.Corpus.DocIDPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Accumulator{
		cfg:      cfg,
		chunkIDs: make(map[string]bool),
		docIDs:   make(map[string]bool),
		docBases: make(map[string]int),
	}
	a.State.clearBuckets()
	return a
}

// StartSection emits any buffered text and clears the per-section buckets.
// The caller resets hierarchy fields afterwards.
func (a *Accumulator) StartSection() error {
	if err := a.Flush(); err != nil {
		return err
	}
	a.State.clearBuckets()
	return nil
}

// Block is one unit of section text together with the links and history
// sub-extracted from the node it came from.
type Block struct {
	Text       string
	Tag        doctree.TagAnnotation
	DivClass   string
	Links      doctree.Links
	History    doctree.History
	References []doctree.Reference
}

// Add appends a block. If its text does not fit behind the current buffer,
// the buffer is emitted first and the block starts the next chunk of the
// same section. The block's links and history are merged after that
// decision, so an emitted chunk never carries metadata from text it does
// not contain. Blocks are never cut.
func (a *Accumulator) Add(b Block) error {
	text := strings.TrimSpace(b.Text)
	n := utf8.RuneCountInString(text)

	if n > 0 && a.State.bufRunes > 0 && a.State.bufRunes+n > a.cfg.MaxChunkSize {
		if err := a.finalize(); err != nil {
			return err
		}
		a.State.ChunkIndex++
		a.State.resetBuffer()
	}

	a.State.Links.Merge(b.Links)
	a.State.History.Merge(b.History)
	a.State.References = append(a.State.References, b.References...)
	if b.DivClass != "" && !slices.Contains(a.State.DivClasses, b.DivClass) {
		a.State.DivClasses = append(a.State.DivClasses, b.DivClass)
	}

	if n == 0 {
		return nil
	}
	if a.State.bufRunes > 0 {
		a.State.buf.WriteByte('\n')
		a.State.bufRunes++
	}
	a.State.buf.WriteString(text)
	a.State.bufRunes += n

	if b.Tag.Tag != "" {
		t := b.Tag
		t.TextLength = n
		a.State.Tags = append(a.State.Tags, t)
	}
	return nil
}

// Append adds plain text with no sub-extracted metadata.
func (a *Accumulator) Append(text string, tag doctree.TagAnnotation) error {
	return a.Add(Block{Text: text, Tag: tag})
}

// Flush emits the buffered text, if any, without ending the section.
func (a *Accumulator) Flush() error {
	if err := a.finalize(); err != nil {
		return err
	}
	a.State.resetBuffer()
	return nil
}

// Finish force-emits the remaining buffer and returns every chunk.
func (a *Accumulator) Finish() ([]doctree.Chunk, error) {
	if err := a.Flush(); err != nil {
		return nil, err
	}
	if a.chunks == nil {
		a.chunks = []doctree.Chunk{}
	}
	return a.chunks, nil
}

// Chunks returns the chunks emitted so far.
func (a *Accumulator) Chunks() []doctree.Chunk {
	return a.chunks
}

func (a *Accumulator) finalize() error {
	s := &a.State
	if s.bufRunes == 0 {
		return nil
	}
	if s.ChunkIndex < 1 {
		return &InvariantError{Reason: fmt.Sprintf("chunk_index undefined (%d)", s.ChunkIndex)}
	}

	docID := a.docID()
	chunkID := fmt.Sprintf("%s_%d", docID, s.ChunkIndex)
	if a.chunkIDs[chunkID] {
		return &InvariantError{ChunkID: chunkID, Reason: "duplicate chunk id"}
	}
	a.chunkIDs[chunkID] = true
	a.number++

	c := a.cfg.Corpus
	a.chunks = append(a.chunks, doctree.Chunk{
		Meta:                s.Meta,
		Hash:                s.Hash,
		ChunkIndex:          s.ChunkIndex,
		ChunkNumber:         a.number,
		DivClasses:          append([]string{}, s.DivClasses...),
		HTMLTags:            append([]doctree.TagAnnotation{}, s.Tags...),
		AllLinks:            s.Links.Clone(),
		History:             s.History.Clone(),
		References:          append([]doctree.Reference{}, s.References...),
		Content:             s.buf.String(),
		DocID:               docID,
		ChunkID:             chunkID,
		Title:               a.title(),
		UUID:                DocUUID(docID),
		SourceURL:           c.SourceURL,
		DownloadDate:        c.DownloadDate,
		City:                c.City,
		ProcessingTimestamp: a.cfg.Now().UTC().Format(time.RFC3339),
		CharacterCount:      s.bufRunes,
	})
	return nil
}

// docID is fixed at the first emission of a section so that every chunk of
// the section shares it. Sections that would reuse an earlier section's id
// get a numeric suffix.
func (a *Accumulator) docID() string {
	if a.State.docID != "" {
		return a.State.docID
	}
	base := BaseDocID(a.cfg.Corpus.DocIDPrefix, a.State.Meta)
	id := base
	for a.docIDs[id] {
		a.docBases[base]++
		id = fmt.Sprintf("%s_%d", base, a.docBases[base]+1)
	}
	a.docIDs[id] = true
	a.State.docID = id
	return id
}

func (a *Accumulator) title() string {
	m := a.State.Meta
	var parts []string
	for _, p := range []*string{m.Chapter, m.Article, m.Division} {
		if v := doctree.Str(p); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		if a.cfg.Corpus.City == "" {
			return "Municipal Code Section"
		}
		return a.cfg.Corpus.City + " Municipal Code Section"
	}
	return strings.Join(parts, " - ")
}

// BaseDocID joins the prefix with slugs of the chapter, article and
// section id that are set.
func BaseDocID(prefix string, m doctree.Meta) string {
	parts := []string{prefix}
	for _, p := range []*string{m.Chapter, m.Article, m.SectionID} {
		if s := Slug(doctree.Str(p)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

// DocUUID derives a stable UUID (v5, URL namespace) from a document id.
func DocUUID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9.\-]+`)
	slugRuns  = regexp.MustCompile(`_+`)
)

// Slug lowercases s and replaces runs of other characters with "_".
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ":", "")
	s = slugStrip.ReplaceAllString(s, "_")
	s = slugRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_.-")
}
