// Package testutil builds small PDF fixtures for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
)

// lineHeight is the distance between fixture lines in millimetres
const lineHeight = 7.0

// PDFOptions describes a fixture document. Each entry in Pages is the text of
// one page; newlines split it into separate lines.
type PDFOptions struct {
	Pages []string

	Title    string
	Author   string
	Subject  string
	Keywords string
	Creator  string
	Producer string

	CreationDate time.Time
	ModDate      time.Time
}

// WritePDF writes a fixture to dir/name and returns its path
func WritePDF(tb testing.TB, dir, name string, opts PDFOptions) string {
	tb.Helper()
	data, err := BuildPDF(opts)
	if err != nil {
		tb.Fatalf("failed to build fixture: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		tb.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// BuildPDF renders an uncompressed A4 document in Helvetica 12pt
func BuildPDF(opts PDFOptions) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetCatalogSort(true)

	if opts.Title != "" {
		doc.SetTitle(opts.Title, false)
	}
	if opts.Author != "" {
		doc.SetAuthor(opts.Author, false)
	}
	if opts.Subject != "" {
		doc.SetSubject(opts.Subject, false)
	}
	if opts.Keywords != "" {
		doc.SetKeywords(opts.Keywords, false)
	}
	if opts.Creator != "" {
		doc.SetCreator(opts.Creator, false)
	}
	if opts.Producer != "" {
		doc.SetProducer(opts.Producer, false)
	}
	if !opts.CreationDate.IsZero() {
		doc.SetCreationDate(opts.CreationDate)
	}
	if !opts.ModDate.IsZero() {
		doc.SetModificationDate(opts.ModDate)
	}

	doc.SetFont("Helvetica", "", 12)
	for _, text := range opts.Pages {
		doc.AddPage()
		for i, line := range strings.Split(text, "\n") {
			doc.Text(20, 20+float64(i)*lineHeight, line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
