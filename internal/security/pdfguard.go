package security

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/sammcj/mcp-pdf/internal/pdferrors"
)

var pdfMagic = []byte("%PDF")

const msgNotPDF = "file is not a valid PDF document"

// PDFGuard validates a path and confirms the file starts with the PDF header
type PDFGuard struct {
	paths *PathValidator
}

// NewPDFGuard creates a guard that runs paths through v first
func NewPDFGuard(v *PathValidator) *PDFGuard {
	return &PDFGuard{paths: v}
}

// Validate returns the validated path when candidate is a safe file whose
// first bytes are %PDF. Only the header is inspected. A failed open is a
// ReadError carrying the errno; any failure reading the header is InvalidPdf,
// returned alongside the validated path.
func (g *PDFGuard) Validate(candidate string) (ValidatedPath, error) {
	vp, err := g.paths.Validate(candidate)
	if err != nil {
		return ValidatedPath{}, err
	}

	f, err := os.Open(vp.Path())
	if err != nil {
		return ValidatedPath{}, pdferrors.Wrap(pdferrors.KindReadError, "could not open file", withoutPath(err))
	}
	defer func() { _ = f.Close() }()

	// the file must still be the one that was validated
	opened, err := f.Stat()
	if err != nil {
		return ValidatedPath{}, pdferrors.Wrap(pdferrors.KindReadError, "could not read file", withoutPath(err))
	}
	if !os.SameFile(vp.Info(), opened) {
		return ValidatedPath{}, violation()
	}

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return vp, notPDF()
		}
		return vp, pdferrors.Wrap(pdferrors.KindInvalidPDF, msgNotPDF, withoutPath(err))
	}
	if !bytes.Equal(header, pdfMagic) {
		return vp, notPDF()
	}

	return vp, nil
}

func notPDF() error {
	return pdferrors.New(pdferrors.KindInvalidPDF, msgNotPDF)
}
