package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
)

var disablePDFCPUConfig sync.Once

var _ InfoReader = (*PDFCPUReader)(nil)

// PDFCPUReader reads metadata with github.com/pdfcpu/pdfcpu
type PDFCPUReader struct {
	conf *model.Configuration
}

// NewInfoReader creates a reader using pdfcpu's relaxed validation mode.
// pdfcpu's on-disk configuration directory is never created.
func NewInfoReader() *PDFCPUReader {
	disablePDFCPUConfig.Do(func() {
		model.ConfigPath = "disable"
	})
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUReader{conf: conf}
}

// ReadInfo reads the document information dictionary, version and page count
func (r *PDFCPUReader) ReadInfo(_ context.Context, path string) (Info, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return Info{}, pdferrors.Wrap(pdferrors.KindProcessingError, "PDF processing failed: could not read document metadata", err)
	}

	xrt := pdfCtx.XRefTable
	info := Info{
		Title:        xrt.Title,
		Author:       xrt.Author,
		Subject:      xrt.Subject,
		Keywords:     xrt.Keywords,
		Creator:      xrt.Creator,
		Producer:     xrt.Producer,
		CreationDate: normaliseDate(xrt.CreationDate),
		ModDate:      normaliseDate(xrt.ModDate),
		PageCount:    xrt.PageCount,
		Version:      xrt.VersionString(),
		Encrypted:    xrt.Encrypt != nil,
	}

	if info.PageCount == 0 {
		if n, err := api.PageCountFile(path); err == nil {
			info.PageCount = n
		}
	}

	return info, nil
}

// Check runs pdfcpu's structural validation
func (r *PDFCPUReader) Check(_ context.Context, path string) error {
	return api.ValidateFile(path, r.conf)
}

// normaliseDate converts a PDF date (D:YYYYMMDDHHmmSSOHH'mm') to RFC 3339,
// keeping the raw value when it cannot be parsed
func normaliseDate(raw string) string {
	if raw == "" {
		return ""
	}
	if t, ok := types.DateTime(raw, true); ok {
		return t.Format(time.RFC3339)
	}
	return raw
}
