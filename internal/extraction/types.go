package extraction

import (
	"context"

	"github.com/sammcj/mcp-pdf/internal/pagerange"
)

// Mode selects how page text is rendered
type Mode int

const (
	// ModePlain collapses runs of whitespace into single spaces
	ModePlain Mode = iota
	// ModeLayout keeps one output line per text row
	ModeLayout
	// ModeStructured is ModeLayout plus the individual lines on each Page
	ModeStructured
)

// Page is the text of a single page
type Page struct {
	Number int
	Text   string
	Lines  []string
}

// Document is the result of reading a page selection
type Document struct {
	PageCount int
	Selected  pagerange.PageSet
	Pages     []Page
}

// Info is document level metadata. Dates are RFC 3339 when they can be
// parsed and the raw PDF value otherwise.
type Info struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
	PageCount    int
	Version      string
	Encrypted    bool
}

// Report summarises a structural check of a document
type Report struct {
	Valid     bool
	Readable  bool
	Encrypted bool
	Version   string
	PageCount int
	Problem   string
}

// Selector resolves the pages to read once the page count is known
type Selector func(totalPages int) (pagerange.PageSet, error)

// TextReader reads page text from a document on disk
type TextReader interface {
	PageCount(ctx context.Context, path string) (int, error)
	ReadPages(ctx context.Context, path string, selector Selector, mode Mode) (Document, error)
}

// InfoReader reads metadata and checks document structure
type InfoReader interface {
	ReadInfo(ctx context.Context, path string) (Info, error)
	Check(ctx context.Context, path string) error
}
