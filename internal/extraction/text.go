package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
)

// ErrEncrypted is wrapped by errors for documents that need a password
var ErrEncrypted = errors.New("PDF is encrypted")

var _ TextReader = (*ContentReader)(nil)

// ContentReader extracts text with github.com/ledongthuc/pdf
type ContentReader struct{}

// NewContentReader creates a ContentReader
func NewContentReader() *ContentReader {
	return &ContentReader{}
}

// PageCount opens the document and returns its number of pages
func (c *ContentReader) PageCount(_ context.Context, path string) (int, error) {
	f, r, err := openDocument(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	return r.NumPage(), nil
}

// ReadPages reads the text of each page chosen by selector, checking ctx
// between pages.
func (c *ContentReader) ReadPages(ctx context.Context, path string, selector Selector, mode Mode) (Document, error) {
	f, r, err := openDocument(path)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = f.Close() }()

	total := r.NumPage()
	selected, err := selector(total)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		PageCount: total,
		Selected:  selected,
		Pages:     make([]Page, 0, len(selected)),
	}

	fonts := make(map[string]*pdf.Font)
	for _, n := range selected {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}

		page := Page{Number: n}
		p := r.Page(n)
		if !p.V.IsNull() {
			for _, name := range p.Fonts() {
				if _, ok := fonts[name]; !ok {
					font := p.Font(name)
					fonts[name] = &font
				}
			}
			if err := readPage(p, fonts, mode, &page); err != nil {
				return Document{}, pdferrors.Wrap(pdferrors.KindProcessingError,
					fmt.Sprintf("PDF processing failed: could not read page %d", n), err)
			}
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

func openDocument(path string) (*os.File, *pdf.Reader, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, nil, pdferrors.Wrap(pdferrors.KindProcessingError, "PDF is encrypted and cannot be read",
				fmt.Errorf("%w: %v", ErrEncrypted, err))
		}
		return nil, nil, pdferrors.Wrap(pdferrors.KindProcessingError, "PDF processing failed: could not parse document", err)
	}
	return f, r, nil
}

func readPage(p pdf.Page, fonts map[string]*pdf.Font, mode Mode, page *Page) error {
	if p.V.Key("Contents").IsNull() {
		return nil
	}

	lines, err := layoutLines(p)
	if err != nil || len(lines) == 0 {
		// positions unusable, let the library flatten the page instead
		text, perr := p.GetPlainText(fonts)
		if perr != nil {
			if err != nil {
				return err
			}
			return perr
		}
		lines = splitLines(text)
	}

	if mode == ModePlain {
		page.Text = strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
		return nil
	}

	page.Text = strings.Join(lines, "\n")
	if mode == ModeStructured {
		page.Lines = lines
	}
	return nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimRight(line, " \t\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
