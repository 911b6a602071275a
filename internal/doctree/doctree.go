// Package doctree holds the record types emitted by the extraction pipeline
// and read back by the reporting tools.
package doctree

// Meta is the hierarchy metadata of the section a chunk belongs to.
// Unset fields serialize as null.
type Meta struct {
	Chapter       *string `json:"chapter"`
	Article       *string `json:"article"`
	ArticleNumber *string `json:"article_number"`
	ArticleTitle  *string `json:"article_title"`
	Division      *string `json:"division"`
	SectionID     *string `json:"section_id"`
	SectionNumber *string `json:"section_number"`
	SectionTitle  *string `json:"section_title"`
	Subsection    *string `json:"subsection"`
}

// Chunk is a finalized, size-bounded slice of one section's text together
// with a snapshot of everything known about that section when it was emitted.
type Chunk struct {
	Meta
	Hash        *string         `json:"hash"`
	ChunkIndex  int             `json:"chunk_index"`
	ChunkNumber int             `json:"chunk_number"`
	DivClasses  []string        `json:"div_classes"`
	HTMLTags    []TagAnnotation `json:"html_tags"`
	AllLinks    Links           `json:"all_links"`
	History     History         `json:"history_data"`
	References  []Reference     `json:"references"`
	Content     string          `json:"content"`

	DocID               string `json:"doc_id"`
	ChunkID             string `json:"chunk_id"`
	Title               string `json:"title"`
	UUID                string `json:"uuid"`
	SourceURL           string `json:"source_url"`
	DownloadDate        string `json:"download_date"`
	City                string `json:"city"`
	ProcessingTimestamp string `json:"processing_timestamp"`
	CharacterCount      int    `json:"character_count"`
}

// Links is the four-way link bucket collected for a section.
type Links struct {
	Internal  []string        `json:"internal_links"`
	External  []ExternalLink  `json:"external_links"`
	Intercode []IntercodeLink `json:"intercode_links"`
	Images    []ImageLink     `json:"image_links"`
}

type ExternalLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

type IntercodeLink struct {
	DestinationID string `json:"destination_id"`
	Text          string `json:"text"`
}

type ImageLink struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// History is the amendment history collected for a section.
type History struct {
	AddedBy   []string `json:"added_by"`
	AmendedBy []string `json:"amended_by"`
	SeeAlso   []string `json:"see_also"`
}

// Reference is an internal link resolved to a human-readable target.
type Reference struct {
	Hash            string `json:"hash"`
	ReferenceString string `json:"reference_string"`
	RecordID        string `json:"record_id"`
}

// TagAnnotation records a source element that contributed text to a chunk.
type TagAnnotation struct {
	Tag        string   `json:"tag"`
	Classes    []string `json:"classes"`
	ID         string   `json:"id,omitempty"`
	TextLength int      `json:"text_length"`
}

// NewLinks returns a bucket whose lists serialize as [] rather than null.
func NewLinks() Links {
	return Links{
		Internal:  []string{},
		External:  []ExternalLink{},
		Intercode: []IntercodeLink{},
		Images:    []ImageLink{},
	}
}

// Merge appends every link in o.
func (l *Links) Merge(o Links) {
	l.Internal = append(l.Internal, o.Internal...)
	l.External = append(l.External, o.External...)
	l.Intercode = append(l.Intercode, o.Intercode...)
	l.Images = append(l.Images, o.Images...)
}

func (l Links) Len() int {
	return len(l.Internal) + len(l.External) + len(l.Intercode) + len(l.Images)
}

// Clone returns a deep copy with non-nil lists.
func (l Links) Clone() Links {
	out := NewLinks()
	out.Merge(l)
	return out
}

func NewHistory() History {
	return History{AddedBy: []string{}, AmendedBy: []string{}, SeeAlso: []string{}}
}

func (h *History) Merge(o History) {
	h.AddedBy = append(h.AddedBy, o.AddedBy...)
	h.AmendedBy = append(h.AmendedBy, o.AmendedBy...)
	h.SeeAlso = append(h.SeeAlso, o.SeeAlso...)
}

func (h History) Empty() bool {
	return len(h.AddedBy) == 0 && len(h.AmendedBy) == 0 && len(h.SeeAlso) == 0
}

func (h History) Clone() History {
	out := NewHistory()
	out.Merge(h)
	return out
}

// Normalize replaces nil lists with empty ones. Chunk files written by other
// tools may omit optional fields.
func (c *Chunk) Normalize() {
	if c.DivClasses == nil {
		c.DivClasses = []string{}
	}
	if c.HTMLTags == nil {
		c.HTMLTags = []TagAnnotation{}
	}
	if c.References == nil {
		c.References = []Reference{}
	}
	c.AllLinks = c.AllLinks.Clone()
	c.History = c.History.Clone()
}

// Str returns the value of an optional field, or "" when unset.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}
