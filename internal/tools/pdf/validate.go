package pdf

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// ValidateTool reports whether a file is a readable PDF
type ValidateTool struct {
	handler
}

// NewValidateTool creates the validate_pdf tool
func NewValidateTool(guard Guard, extractor Extractor) *ValidateTool {
	return &ValidateTool{handler{guard: guard, extractor: extractor}}
}

// Definition returns the tool's definition for MCP registration
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolValidate,
		mcp.WithDescription("Check whether a file is a structurally valid, readable PDF. Reports version, encryption and page count."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the file to check"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute validates the file. Path and security failures are error results;
// a file that is not a valid PDF is a normal result with is_valid false.
func (t *ValidateTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	return t.run(ctx, logger, ToolValidate, args, func(ctx context.Context, filePath string) (any, error) {
		vp, err := t.guard.Validate(filePath)
		if err != nil {
			var pe *pdferrors.Error
			if errors.As(err, &pe) && pe.Kind == pdferrors.KindInvalidPDF {
				return &ValidationResponse{
					ErrorMessage:  pe.Message,
					FileSizeBytes: vp.Size(),
				}, nil
			}
			return nil, err
		}

		report, err := t.extractor.Validate(ctx, vp)
		if err != nil {
			return nil, err
		}

		resp := &ValidationResponse{
			IsValid:       report.Valid,
			PDFVersion:    report.Version,
			IsEncrypted:   report.Encrypted,
			IsReadable:    report.Readable,
			PageCount:     report.PageCount,
			FileSizeBytes: vp.Size(),
		}
		if !report.Valid {
			resp.ErrorMessage = report.Problem
		}
		return resp, nil
	})
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ValidateTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Check a downloaded file",
				Arguments: map[string]any{
					"file_path": "/Users/username/Downloads/statement.pdf",
				},
				ExpectedResult: "is_valid, is_readable, is_encrypted, pdf_version, page_count and file_size_bytes",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "is_valid is false but is_readable is true",
				Solution: "The document has structural problems but its text can still be read. Extraction usually works.",
			},
			{
				Problem:  "Error result instead of is_valid false",
				Solution: "Path problems (missing file, security rejections, oversized files) are reported as errors, not as invalid PDFs.",
			},
		},
		ParameterDetails: map[string]string{
			"file_path": "Path to the file (required).",
		},
		WhenToUse: "Use before extraction when a file's origin is unknown or a previous extraction failed.",
	}
}
