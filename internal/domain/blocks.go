package domain

// Block types emitted by the structural parsers.
const (
	BlockH1         = "h1"
	BlockH2         = "h2"
	BlockH3         = "h3"
	BlockHeading    = "heading"
	BlockParagraph  = "paragraph"
	BlockList       = "list"
	BlockTable      = "table"
	BlockEquation   = "equation"
	BlockCode       = "code"
	BlockBlockquote = "blockquote"
	BlockImage      = "image"
	BlockReference  = "reference"
)

// Block is one tagged content unit in a candidate's document. The set of
// populated fields depends on Type; unset fields are omitted from JSON.
type Block struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// heading / paragraph / blockquote / code / reference
	Text           string      `json:"text,omitempty"`
	InlineMarkdown string      `json:"inline_markdown,omitempty"`
	InlineRuns     []InlineRun `json:"inline_runs,omitempty"`

	// list
	Ordered *bool    `json:"ordered,omitempty"`
	Items   []string `json:"items,omitempty"`

	// table; Columns/Rows are the legacy flat projection kept alongside
	// the cell-level header/body rows
	Columns    []string      `json:"columns,omitempty"`
	Rows       [][]string    `json:"rows,omitempty"`
	HeaderRows [][]TableCell `json:"header_rows,omitempty"`
	BodyRows   [][]TableCell `json:"body_rows,omitempty"`
	Caption    string        `json:"caption,omitempty"`
	Notes      []string      `json:"notes,omitempty"`

	// equation
	EquationTeX    string `json:"equation_tex,omitempty"`
	EquationNumber string `json:"equation_number,omitempty"`

	// image
	ImageURL string `json:"image_url,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Source   string `json:"source,omitempty"`

	// reference
	AnchorID string          `json:"anchor_id,omitempty"`
	Links    []ReferenceLink `json:"links,omitempty"`
}

// TableCell is one cell of a table block.
type TableCell struct {
	Text           string      `json:"text"`
	IsHeader       bool        `json:"is_header"`
	InlineMarkdown string      `json:"inline_markdown,omitempty"`
	InlineRuns     []InlineRun `json:"inline_runs,omitempty"`
	Colspan        int         `json:"colspan,omitempty"`
	Rowspan        int         `json:"rowspan,omitempty"`
	Scope          string      `json:"scope,omitempty"`
}

// ColspanOrOne returns the cell's colspan treating the zero value as 1.
func (c TableCell) ColspanOrOne() int {
	if c.Colspan > 1 {
		return c.Colspan
	}
	return 1
}

// ReferenceLink is one auto-detected link attached to a reference block.
type ReferenceLink struct {
	Href  string `json:"href"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Reference link kinds.
const (
	LinkKindArxiv  = "arxiv"
	LinkKindDOI    = "doi"
	LinkKindURL    = "url"
	LinkKindSearch = "search"
)

// BoolPtr returns a pointer to b, for optional block fields.
func BoolPtr(b bool) *bool {
	return &b
}

// DistinctBlockTypes counts the distinct block types in a slice.
func DistinctBlockTypes(blocks []Block) int {
	seen := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		if b.Type != "" {
			seen[b.Type] = struct{}{}
		}
	}
	return len(seen)
}
