package pdferrors

import (
	"errors"
	"fmt"
)

// Kind represents the category of a failure
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidPath
	KindSecurityViolation
	KindFileNotFound
	KindNotAFile
	KindFileTooLarge
	KindInvalidPDF
	KindReadError
	KindInvalidPageRange
	KindInvalidPageNumber
	KindProcessingTimeout
	KindProcessingError
	KindInvalidArgument
)

var kindNames = map[Kind]string{
	KindUnknown:           "UnknownError",
	KindInvalidPath:       "InvalidPath",
	KindSecurityViolation: "SecurityViolation",
	KindFileNotFound:      "FileNotFound",
	KindNotAFile:          "NotAFile",
	KindFileTooLarge:      "FileTooLarge",
	KindInvalidPDF:        "InvalidPdf",
	KindReadError:         "ReadError",
	KindInvalidPageRange:  "InvalidPageRange",
	KindInvalidPageNumber: "InvalidPageNumber",
	KindProcessingTimeout: "ProcessingTimeout",
	KindProcessingError:   "ProcessingError",
	KindInvalidArgument:   "InvalidArgument",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is matching on kind alone
var (
	ErrInvalidPath       = &Error{Kind: KindInvalidPath}
	ErrSecurityViolation = &Error{Kind: KindSecurityViolation}
	ErrFileNotFound      = &Error{Kind: KindFileNotFound}
	ErrNotAFile          = &Error{Kind: KindNotAFile}
	ErrFileTooLarge      = &Error{Kind: KindFileTooLarge}
	ErrInvalidPDF        = &Error{Kind: KindInvalidPDF}
	ErrReadError         = &Error{Kind: KindReadError}
	ErrInvalidPageRange  = &Error{Kind: KindInvalidPageRange}
	ErrInvalidPageNumber = &Error{Kind: KindInvalidPageNumber}
	ErrProcessingTimeout = &Error{Kind: KindProcessingTimeout}
	ErrProcessingError   = &Error{Kind: KindProcessingError}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
)

// Error is a classified failure raised by validation or extraction.
// Message is safe to show to callers; it never contains a rejected path.
type Error struct {
	Kind    Kind
	Message string
	// Details carries optional non-path context such as an offending page term
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
