package pdferrors

import (
	"context"
	"errors"
	"io/fs"
	"strconv"
	"strings"
	"syscall"
)

// JSON-RPC error codes used in tool error payloads
const (
	CodeValidation = -32602
	CodeInternal   = -32603
	CodeSize       = -32604
	CodeFormat     = -32605
)

// Error type tags reported in ToolError.Data.ErrorType
const (
	TypeValidation = "VALIDATION_ERROR"
	TypeFile       = "FILE_ERROR"
	TypeSize       = "SIZE_ERROR"
	TypeFormat     = "FORMAT_ERROR"
	TypePermission = "PERMISSION_ERROR"
	TypeResource   = "RESOURCE_ERROR"
	TypeTimeout    = "TIMEOUT_ERROR"
	TypeProcessing = "PROCESSING_ERROR"
	TypeUnknown    = "UNKNOWN_ERROR"
)

// ToolError is the structured error returned to protocol clients
type ToolError struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// ErrorData carries the error type tag and optional context
type ErrorData struct {
	ErrorType string `json:"error_type"`
	FilePath  string `json:"file_path,omitempty"`
	Details   string `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	return e.Message
}

type mapping struct {
	code      int
	errorType string
}

var kindMappings = map[Kind]mapping{
	KindInvalidPath:       {CodeValidation, TypeValidation},
	KindSecurityViolation: {CodeValidation, TypeValidation},
	KindInvalidPageRange:  {CodeValidation, TypeValidation},
	KindInvalidPageNumber: {CodeValidation, TypeValidation},
	KindInvalidArgument:   {CodeValidation, TypeValidation},
	KindFileNotFound:      {CodeInternal, TypeFile},
	KindNotAFile:          {CodeInternal, TypeFile},
	KindReadError:         {CodeInternal, TypeFile},
	KindFileTooLarge:      {CodeSize, TypeSize},
	KindInvalidPDF:        {CodeFormat, TypeFormat},
	KindProcessingTimeout: {CodeInternal, TypeTimeout},
	KindProcessingError:   {CodeInternal, TypeProcessing},
	KindUnknown:           {CodeInternal, TypeUnknown},
}

// Classify maps err to a ToolError. filePath is the candidate originally
// supplied by the caller and may be empty.
func Classify(err error, filePath string) *ToolError {
	te := classify(err)
	if filePath != "" {
		te.Data.FilePath = strconv.QuoteToASCII(filePath)
	}
	return te
}

// ClassifyValue classifies an arbitrary value, typically one recovered from a panic
func ClassifyValue(v any, filePath string) *ToolError {
	if err, ok := v.(error); ok {
		return Classify(err, filePath)
	}
	te := &ToolError{
		Code:    CodeInternal,
		Message: "an unknown error occurred",
		Data:    ErrorData{ErrorType: TypeUnknown},
	}
	if filePath != "" {
		te.Data.FilePath = strconv.QuoteToASCII(filePath)
	}
	return te
}

func classify(err error) *ToolError {
	if err == nil {
		return &ToolError{Code: CodeInternal, Message: "an unknown error occurred", Data: ErrorData{ErrorType: TypeUnknown}}
	}

	var pe *Error
	if errors.As(err, &pe) {
		if pe.Kind == KindReadError && errors.Is(pe.Cause, fs.ErrPermission) {
			return &ToolError{Code: CodeInternal, Message: "permission denied", Data: ErrorData{ErrorType: TypePermission}}
		}
		m := kindMappings[pe.Kind]
		return &ToolError{
			Code:    m.code,
			Message: pe.Message,
			Data:    ErrorData{ErrorType: m.errorType, Details: pe.Details},
		}
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Code: CodeInternal, Message: "PDF processing timed out", Data: ErrorData{ErrorType: TypeTimeout}}
	case errors.Is(err, context.Canceled):
		return &ToolError{Code: CodeInternal, Message: "PDF processing was cancelled", Data: ErrorData{ErrorType: TypeProcessing}}
	case errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT) || strings.Contains(msg, "ENOENT"):
		return &ToolError{Code: CodeInternal, Message: "file not found", Data: ErrorData{ErrorType: TypeFile}}
	case errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || strings.Contains(msg, "EACCES"):
		return &ToolError{Code: CodeInternal, Message: "permission denied", Data: ErrorData{ErrorType: TypePermission}}
	case errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		strings.Contains(msg, "EMFILE") || strings.Contains(msg, "ENFILE"):
		return &ToolError{Code: CodeSize, Message: "too many open files", Data: ErrorData{ErrorType: TypeResource}}
	}

	return &ToolError{
		Code:    CodeInternal,
		Message: "PDF processing failed: " + msg,
		Data:    ErrorData{ErrorType: TypeProcessing},
	}
}
