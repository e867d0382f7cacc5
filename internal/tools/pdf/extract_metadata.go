package pdf

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// ExtractMetadataTool returns document information
type ExtractMetadataTool struct {
	handler
}

// NewExtractMetadataTool creates the extract_pdf_metadata tool
func NewExtractMetadataTool(guard Guard, extractor Extractor) *ExtractMetadataTool {
	return &ExtractMetadataTool{handler{guard: guard, extractor: extractor}}
}

// Definition returns the tool's definition for MCP registration
func (t *ExtractMetadataTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolExtractMetadata,
		mcp.WithDescription("Read PDF metadata: title, author, subject, keywords, creator, producer, dates, page count, PDF version, encryption and file size."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute reads the document information
func (t *ExtractMetadataTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	return t.run(ctx, logger, ToolExtractMetadata, args, func(ctx context.Context, filePath string) (any, error) {
		vp, err := t.guard.Validate(filePath)
		if err != nil {
			return nil, err
		}

		info, err := t.extractor.Info(ctx, vp)
		if err != nil {
			return nil, err
		}
		return metadataResponse(info, vp.Size()), nil
	})
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ExtractMetadataTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Read document information",
				Arguments: map[string]any{
					"file_path": "/Users/username/documents/report.pdf",
				},
				ExpectedResult: "Title, author and other info dictionary values with dates in RFC 3339, plus page_count, pdf_version, is_encrypted and file_size_bytes",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Fields such as title or author are missing",
				Solution: "Empty fields are omitted. Many PDFs simply do not set them.",
			},
			{
				Problem:  "Dates are not in RFC 3339 format",
				Solution: "Dates that cannot be parsed are returned exactly as stored in the document.",
			},
		},
		ParameterDetails: map[string]string{
			"file_path": "Path to the PDF (required).",
		},
		WhenToUse: "Use before extracting text to learn the page count or to identify a document.",
	}
}
