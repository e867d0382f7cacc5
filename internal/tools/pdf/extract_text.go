package pdf

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/extraction"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// ExtractTextTool returns the text of selected pages
type ExtractTextTool struct {
	handler
}

// NewExtractTextTool creates the extract_pdf_text tool
func NewExtractTextTool(guard Guard, extractor Extractor) *ExtractTextTool {
	return &ExtractTextTool{handler{guard: guard, extractor: extractor}}
}

// Definition returns the tool's definition for MCP registration
func (t *ExtractTextTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolExtractText,
		mcp.WithDescription("Extract text from a PDF file. Supports page selection and optional document metadata. Text is read from the PDF's text layer; scanned documents without one return little or no text."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
		mcp.WithString("pages",
			mcp.Description("Pages to extract, e.g. '1-3,5' or 'all' (default: all)"),
			mcp.DefaultString("all"),
		),
		mcp.WithBoolean("preserve_formatting",
			mcp.Description("Keep one line per text row instead of collapsing whitespace (default: true)"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("include_metadata",
			mcp.Description("Include document metadata in the response (default: false)"),
			mcp.DefaultBool(false),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute extracts the requested pages
func (t *ExtractTextTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	return t.run(ctx, logger, ToolExtractText, args, func(ctx context.Context, filePath string) (any, error) {
		start := time.Now()

		pages, err := stringArg(args, "pages", "all")
		if err != nil {
			return nil, err
		}
		preserve, err := boolArg(args, "preserve_formatting", true)
		if err != nil {
			return nil, err
		}
		includeMetadata, err := boolArg(args, "include_metadata", false)
		if err != nil {
			return nil, err
		}

		vp, err := t.guard.Validate(filePath)
		if err != nil {
			return nil, err
		}

		mode := extraction.ModePlain
		if preserve {
			mode = extraction.ModeLayout
		}

		doc, err := t.extractor.Text(ctx, vp, pages, mode)
		if err != nil {
			return nil, err
		}

		texts := make([]string, 0, len(doc.Pages))
		for _, p := range doc.Pages {
			texts = append(texts, p.Text)
		}

		resp := &TextResponse{
			Text:           strings.Join(texts, "\n\n"),
			PageCount:      doc.PageCount,
			PagesExtracted: []int(doc.Selected),
		}
		if resp.PagesExtracted == nil {
			resp.PagesExtracted = []int{}
		}

		if includeMetadata {
			info, err := t.extractor.Info(ctx, vp)
			if err != nil {
				return nil, err
			}
			resp.Metadata = metadataResponse(info, vp.Size())
		}

		logger.WithFields(logrus.Fields{
			"tool":       ToolExtractText,
			"request_id": tools.RequestID(ctx),
			"pages":      doc.Selected.String(),
			"text_bytes": len(resp.Text),
		}).Debug("Extracted PDF text")

		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	})
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ExtractTextTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Extract all text from a document",
				Arguments: map[string]any{
					"file_path": "/Users/username/documents/report.pdf",
				},
				ExpectedResult: "Text of every page separated by blank lines, the page count and the list of extracted pages",
			},
			{
				Description: "Extract selected pages with metadata",
				Arguments: map[string]any{
					"file_path":        "/Users/username/documents/manual.pdf",
					"pages":            "1-3,7",
					"include_metadata": true,
				},
				ExpectedResult: "Text of pages 1, 2, 3 and 7 plus title, author and other document information",
			},
			{
				Description: "Extract compact text for summarisation",
				Arguments: map[string]any{
					"file_path":           "/Users/username/papers/paper.pdf",
					"preserve_formatting": false,
				},
				ExpectedResult: "Page text with whitespace collapsed to single spaces",
			},
		},
		CommonPatterns: []string{
			"Call extract_pdf_metadata first to learn the page count, then extract only the pages you need",
			"Use preserve_formatting: false when line structure does not matter",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "VALIDATION_ERROR: file path failed security validation",
				Solution: "Paths may not contain '..', '~', './', encoded traversal, control characters or point into system directories. Pass a plain absolute or relative path to the PDF.",
			},
			{
				Problem:  "VALIDATION_ERROR: invalid page range",
				Solution: "Pages are 1-based and must not exceed the document's page count. Use '1-5', '1,3,5' or 'all'.",
			},
			{
				Problem:  "Empty text returned",
				Solution: "The PDF probably has no text layer (for example a scanned document). OCR is not supported.",
			},
			{
				Problem:  "TIMEOUT_ERROR",
				Solution: "Very large documents can exceed the processing timeout. Extract fewer pages at a time or raise PDF_PROCESSING_TIMEOUT.",
			},
		},
		ParameterDetails: map[string]string{
			"file_path":           "Path to the PDF (required). Symbolic links are rejected and the file must start with the %PDF header.",
			"pages":               "Page selection (optional, default 'all'). Terms are separated by commas; each is a page number or an inclusive range.",
			"preserve_formatting": "When true (default) each text row becomes a line; when false whitespace is collapsed.",
			"include_metadata":    "When true the response includes a metadata object (default false).",
		},
		WhenToUse:    "Use to read the text content of text-based PDFs, either whole or for specific pages.",
		WhenNotToUse: "Don't use for scanned PDFs that need OCR, for extracting images or tables, or for password-protected documents.",
	}
}
