// Package pdf implements the PDF extraction tools exposed over MCP.
package pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/extraction"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"github.com/sammcj/mcp-pdf/internal/security"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// Tool names
const (
	ToolExtractText     = "extract_pdf_text"
	ToolExtractMetadata = "extract_pdf_metadata"
	ToolExtractPages    = "extract_pdf_pages"
	ToolValidate        = "validate_pdf"
)

// Guard validates caller supplied paths and confirms the PDF header
type Guard interface {
	Validate(candidate string) (security.ValidatedPath, error)
}

// Extractor runs PDF library work on validated paths
type Extractor interface {
	Text(ctx context.Context, path security.ValidatedPath, expr string, mode extraction.Mode) (extraction.Document, error)
	Info(ctx context.Context, path security.ValidatedPath) (extraction.Info, error)
	Validate(ctx context.Context, path security.ValidatedPath) (extraction.Report, error)
}

// handler holds what every PDF tool needs
type handler struct {
	guard     Guard
	extractor Extractor
}

// run executes fn and converts its outcome to a tool result. Failures and
// panics become error results carrying the classified ToolError as JSON.
func (h *handler) run(ctx context.Context, logger *logrus.Logger, tool string, args map[string]any,
	fn func(ctx context.Context, filePath string) (any, error)) (result *mcp.CallToolResult, err error) {

	filePath, _ := args["file_path"].(string)
	start := time.Now()
	entry := logger.WithFields(logrus.Fields{
		"tool":       tool,
		"request_id": tools.RequestID(ctx),
	})

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", fmt.Sprint(r)).Error("Recovered panic in tool handler")
			result, err = errorResult(pdferrors.ClassifyValue(r, filePath))
		}
	}()

	data, callErr := fn(ctx, filePath)
	if callErr != nil {
		te := pdferrors.Classify(callErr, filePath)
		entry.WithFields(logrus.Fields{
			"error_type":  te.Data.ErrorType,
			"code":        te.Code,
			"file_path":   strconv.QuoteToASCII(filePath),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info(te.Message)
		return errorResult(te)
	}

	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Tool call completed")
	return newToolResultJSON(data)
}

// newToolResultJSON creates a tool result with indented JSON content
func newToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func errorResult(te *pdferrors.ToolError) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(te)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error: %w", err)
	}
	return mcp.NewToolResultError(string(jsonBytes)), nil
}

func stringArg(args map[string]any, key, def string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", pdferrors.Newf(pdferrors.KindInvalidArgument, "%s must be a string", key)
	}
	return s, nil
}

func boolArg(args map[string]any, key string, def bool) (bool, error) {
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, pdferrors.Newf(pdferrors.KindInvalidArgument, "%s must be a boolean", key)
		}
		return b, nil
	default:
		return false, pdferrors.Newf(pdferrors.KindInvalidArgument, "%s must be a boolean", key)
	}
}

func metadataResponse(info extraction.Info, size int64) *MetadataResponse {
	return &MetadataResponse{
		Title:            info.Title,
		Author:           info.Author,
		Subject:          info.Subject,
		Keywords:         info.Keywords,
		Creator:          info.Creator,
		Producer:         info.Producer,
		CreationDate:     info.CreationDate,
		ModificationDate: info.ModDate,
		PageCount:        info.PageCount,
		PDFVersion:       info.Version,
		IsEncrypted:      info.Encrypted,
		FileSizeBytes:    size,
	}
}
