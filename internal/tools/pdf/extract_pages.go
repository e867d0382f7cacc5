package pdf

import (
	"context"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/extraction"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// Output formats accepted by extract_pdf_pages
const (
	FormatText       = "text"
	FormatStructured = "structured"
)

var outputFormats = []string{FormatText, FormatStructured}

// ExtractPagesTool returns text page by page
type ExtractPagesTool struct {
	handler
}

// NewExtractPagesTool creates the extract_pdf_pages tool
func NewExtractPagesTool(guard Guard, extractor Extractor) *ExtractPagesTool {
	return &ExtractPagesTool{handler{guard: guard, extractor: extractor}}
}

// Definition returns the tool's definition for MCP registration
func (t *ExtractPagesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		ToolExtractPages,
		mcp.WithDescription("Extract text from specific PDF pages, returning each page separately with a word count. Structured output also returns the individual text lines."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
		mcp.WithString("page_range",
			mcp.Required(),
			mcp.Description("Pages to extract, e.g. '1-3,5' or 'all'"),
		),
		mcp.WithString("output_format",
			mcp.Description("'text' for page content only, 'structured' to add lines (default: text)"),
			mcp.Enum(outputFormats...),
			mcp.DefaultString(FormatText),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute extracts the requested pages
func (t *ExtractPagesTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	return t.run(ctx, logger, ToolExtractPages, args, func(ctx context.Context, filePath string) (any, error) {
		pageRange, err := stringArg(args, "page_range", "")
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(pageRange) == "" {
			return nil, pdferrors.New(pdferrors.KindInvalidPageRange, "page range is required")
		}

		format, err := stringArg(args, "output_format", FormatText)
		if err != nil {
			return nil, err
		}
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			format = FormatText
		}
		if !slices.Contains(outputFormats, format) {
			return nil, pdferrors.Newf(pdferrors.KindInvalidArgument, "output_format must be one of: %s", strings.Join(outputFormats, ", "))
		}

		vp, err := t.guard.Validate(filePath)
		if err != nil {
			return nil, err
		}

		mode := extraction.ModeLayout
		if format == FormatStructured {
			mode = extraction.ModeStructured
		}

		doc, err := t.extractor.Text(ctx, vp, pageRange, mode)
		if err != nil {
			return nil, err
		}

		resp := &PagesResponse{
			Pages:               make([]PageContent, 0, len(doc.Pages)),
			TotalPagesExtracted: len(doc.Pages),
			PageCount:           doc.PageCount,
		}
		for _, p := range doc.Pages {
			pc := PageContent{
				PageNumber: p.Number,
				Content:    p.Text,
				WordCount:  len(strings.Fields(p.Text)),
			}
			if format == FormatStructured {
				pc.Lines = p.Lines
				if pc.Lines == nil {
					pc.Lines = []string{}
				}
			}
			resp.Pages = append(resp.Pages, pc)
		}
		return resp, nil
	})
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ExtractPagesTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Extract two chapters page by page",
				Arguments: map[string]any{
					"file_path":  "/Users/username/books/guide.pdf",
					"page_range": "10-12,20",
				},
				ExpectedResult: "One entry per page with page_number, content and word_count",
			},
			{
				Description: "Extract lines for further processing",
				Arguments: map[string]any{
					"file_path":     "/Users/username/forms/invoice.pdf",
					"page_range":    "1",
					"output_format": "structured",
				},
				ExpectedResult: "Page 1 with its content and a lines array in reading order",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "VALIDATION_ERROR: page range is required",
				Solution: "page_range must be supplied. Use 'all' to extract every page.",
			},
			{
				Problem:  "VALIDATION_ERROR: output_format must be one of",
				Solution: "Use 'text' or 'structured'.",
			},
		},
		ParameterDetails: map[string]string{
			"file_path":     "Path to the PDF (required).",
			"page_range":    "Page selection (required). Same syntax as the pages parameter of extract_pdf_text.",
			"output_format": "'text' (default) or 'structured'. Structured output adds a lines array to each page.",
		},
		WhenToUse:    "Use when page boundaries matter, for example to cite page numbers or process pages independently.",
		WhenNotToUse: "Use extract_pdf_text instead when a single block of text is enough.",
	}
}
