// Package security validates caller-supplied file paths before any PDF
// library touches them.
package security

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/sammcj/mcp-pdf/internal/config"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"golang.org/x/text/unicode/norm"
)

const (
	// MsgPathRequired is returned for empty or whitespace-only candidates
	MsgPathRequired = "file path is required"
	// MsgSecurityViolation is the single message used for every rejected path
	MsgSecurityViolation = "file path failed security validation"

	maxDecodeRounds = 3
)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

var sensitiveFragments = []string{
	"/etc/",
	"/root/",
	"/proc/",
	"/dev/",
	"/sys/",
	"/var/log/",
	"c:/windows/",
}

// ValidatedPath is an absolute path that passed every check, together with
// the file information captured when it was checked.
type ValidatedPath struct {
	path string
	info fs.FileInfo
}

// Path returns the absolute path
func (p ValidatedPath) Path() string { return p.path }

// Info returns the file information captured at validation time
func (p ValidatedPath) Info() fs.FileInfo { return p.info }

// Size returns the file size in bytes at validation time
func (p ValidatedPath) Size() int64 {
	if p.info == nil {
		return 0
	}
	return p.info.Size()
}

// String returns the path quoted so it is safe to log
func (p ValidatedPath) String() string { return fmt.Sprintf("%q", p.path) }

// PathValidator applies the path checks. It holds no mutable state and is
// safe for concurrent use.
type PathValidator struct {
	maxPathLength int
	maxPathDepth  int
	maxFileSize   int64
}

// NewPathValidator creates a validator using the path and size limits from cfg
func NewPathValidator(cfg config.Config) *PathValidator {
	return &PathValidator{
		maxPathLength: cfg.MaxPathLength,
		maxPathDepth:  cfg.MaxPathDepth,
		maxFileSize:   cfg.MaxFileSize,
	}
}

// Validate checks candidate and resolves it to a regular file on disk.
// Rejections never include the candidate in the error message.
func (v *PathValidator) Validate(candidate string) (ValidatedPath, error) {
	if strings.TrimSpace(candidate) == "" {
		return ValidatedPath{}, pdferrors.New(pdferrors.KindInvalidPath, MsgPathRequired)
	}

	if !v.syntaxAllowed(candidate) {
		return ValidatedPath{}, violation()
	}

	return v.resolve(candidate)
}

// syntaxAllowed runs the string-only checks in order and stops at the first failure
func (v *PathValidator) syntaxAllowed(candidate string) bool {
	checks := []func(string) bool{
		hasNoTraversal,
		hasNoControlChars,
		hasNoEncodedTraversal,
		hasNoReservedName,
		hasNoSensitivePrefix,
		hasNoAlternateStream,
		v.withinLimits,
	}
	for _, check := range checks {
		if !check(candidate) {
			return false
		}
	}
	return true
}

func (v *PathValidator) resolve(candidate string) (ValidatedPath, error) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return ValidatedPath{}, violation()
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return ValidatedPath{}, statError(err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return ValidatedPath{}, pdferrors.New(pdferrors.KindNotAFile, "path refers to a symbolic link")
	}
	if !info.Mode().IsRegular() {
		return ValidatedPath{}, pdferrors.New(pdferrors.KindNotAFile, "path is not a regular file")
	}

	if info.Size() > v.maxFileSize {
		return ValidatedPath{}, pdferrors.Newf(pdferrors.KindFileTooLarge,
			"file size %s exceeds maximum allowed size %s",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(v.maxFileSize)))
	}

	return ValidatedPath{path: abs, info: info}, nil
}

// statError maps a failed Lstat to a path-stage kind. Permission failures
// keep the errno so the classifier reports them as such.
func statError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return pdferrors.New(pdferrors.KindFileNotFound, "file not found")
	case errors.Is(err, fs.ErrPermission):
		return pdferrors.Wrap(pdferrors.KindReadError, "could not access file", withoutPath(err))
	default:
		return pdferrors.Wrap(pdferrors.KindInvalidPath, "file path could not be resolved", withoutPath(err))
	}
}

func violation() error {
	return pdferrors.New(pdferrors.KindSecurityViolation, MsgSecurityViolation)
}

// withoutPath drops the path from *fs.PathError so it cannot reach callers
func withoutPath(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// Literal traversal. ".." anywhere is rejected, including names like "a..b".
func hasNoTraversal(p string) bool {
	return !strings.Contains(p, "..") && !strings.Contains(p, "./") && !strings.Contains(p, "~")
}

func hasNoControlChars(p string) bool {
	if !utf8.ValidString(p) {
		return false
	}
	return !containsControl(p)
}

func containsControl(s string) bool {
	for _, r := range s {
		if r <= 0x1f || (r >= 0x7f && r <= 0x9f) {
			return true
		}
	}
	return false
}

// hasNoEncodedTraversal decodes up to maxDecodeRounds times and rejects if any
// stage, or its NFKC form, reveals traversal or control characters.
func hasNoEncodedTraversal(p string) bool {
	stage := p
	for range maxDecodeRounds {
		if unsafeStage(norm.NFKC.String(stage)) {
			return false
		}
		decoded, err := url.PathUnescape(stage)
		if err != nil {
			return false
		}
		if decoded == stage {
			return true
		}
		stage = decoded
		if unsafeStage(stage) {
			return false
		}
	}
	return !unsafeStage(norm.NFKC.String(stage))
}

func unsafeStage(s string) bool {
	return strings.Contains(s, "..") || strings.Contains(s, "~") || !utf8.ValidString(s) || containsControl(s)
}

func hasNoReservedName(p string) bool {
	base := p
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		base = p[i+1:]
	}
	stem, _, _ := strings.Cut(base, ".")
	stem = strings.TrimRight(stem, " ")
	_, reserved := reservedNames[strings.ToUpper(stem)]
	return !reserved
}

func hasNoSensitivePrefix(p string) bool {
	if !isAbsolute(p) {
		return true
	}
	normalised := strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalised, fragment) {
			return false
		}
	}
	return true
}

// hasNoAlternateStream rejects NTFS stream syntax such as "file.pdf:hidden".
// POSIX absolute paths may legitimately contain colons.
func hasNoAlternateStream(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	rest := p
	if hasDriveLetter(p) {
		rest = p[2:]
	}
	return !strings.Contains(rest, ":")
}

func (v *PathValidator) withinLimits(p string) bool {
	if utf8.RuneCountInString(p) > v.maxPathLength {
		return false
	}
	depth := 0
	for _, segment := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment != "" {
			depth++
		}
	}
	return depth <= v.maxPathDepth
}

func isAbsolute(p string) bool {
	switch {
	case strings.HasPrefix(p, "/"):
		return true
	case strings.HasPrefix(p, `\\`):
		return true
	case hasDriveLetter(p) && len(p) > 2 && (p[2] == '\\' || p[2] == '/'):
		return true
	}
	return false
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
