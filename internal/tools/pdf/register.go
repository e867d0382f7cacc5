package pdf

import (
	"github.com/sammcj/mcp-pdf/internal/registry"
	"github.com/sammcj/mcp-pdf/internal/tools"
)

// NewTools returns the PDF tool catalogue
func NewTools(guard Guard, extractor Extractor) []tools.Tool {
	return []tools.Tool{
		NewExtractTextTool(guard, extractor),
		NewExtractMetadataTool(guard, extractor),
		NewExtractPagesTool(guard, extractor),
		NewValidateTool(guard, extractor),
	}
}

// RegisterTools adds the catalogue to the registry
func RegisterTools(guard Guard, extractor Extractor) {
	for _, t := range NewTools(guard, extractor) {
		registry.Register(t)
	}
}
