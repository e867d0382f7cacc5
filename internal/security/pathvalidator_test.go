package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/sammcj/mcp-pdf/internal/config"
	"github.com/sammcj/mcp-pdf/internal/pdferrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPDF = "%PDF-1.4\n%%EOF\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newValidator() *PathValidator {
	return NewPathValidator(config.Default())
}

func TestValidate_RequiresPath(t *testing.T) {
	t.Parallel()

	v := newValidator()
	for _, candidate := range []string{"", "   ", "\t"} {
		_, err := v.Validate(candidate)
		require.Error(t, err)
		assert.Equal(t, pdferrors.KindInvalidPath, pdferrors.KindOf(err))
		assert.Equal(t, MsgPathRequired, err.Error())
	}
}

func TestValidate_RejectsUnsafeSyntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
	}{
		{"parent traversal", "../x.pdf"},
		{"traversal in middle", "docs/../x.pdf"},
		{"double dot in name", "report..pdf"},
		{"backslash traversal", `docs\..\x.pdf`},
		{"home expansion", "~/x.pdf"},
		{"dot slash", "./doc.pdf"},
		{"null byte", "doc\x00.pdf"},
		{"newline", "doc\n.pdf"},
		{"delete char", "doc\x7f.pdf"},
		{"c1 control", "doc\u0085.pdf"},
		{"invalid utf8", "doc\xff.pdf"},
		{"encoded traversal", "%2e%2e/x.pdf"},
		{"encoded traversal upper", "%2E%2E%2Fx.pdf"},
		{"double encoded traversal", "%252e%252e/x.pdf"},
		{"triple encoded traversal", "%25252e%25252e/x.pdf"},
		{"encoded tilde", "%7e/x.pdf"},
		{"double encoded tilde", "%257E/x.pdf"},
		{"encoded null", "doc%00.pdf"},
		{"bad escape", "doc%zz.pdf"},
		{"fullwidth dots", "\uff0e\uff0e/x.pdf"},
		{"fullwidth tilde", "\uff5e/x.pdf"},
		{"reserved con", "CON"},
		{"reserved lower with extension", "con.pdf"},
		{"reserved mixed case", "Nul.txt.pdf"},
		{"reserved in directory", "docs/COM1.pdf"},
		{"reserved backslash", `docs\lpt9.pdf`},
		{"reserved trailing space", "aux .pdf"},
		{"etc", "/etc/shadow"},
		{"proc", "/proc/self/environ"},
		{"root home", "/root/secret.pdf"},
		{"dev", "/dev/null"},
		{"sys", "/sys/kernel/x.pdf"},
		{"var log", "/var/log/syslog.pdf"},
		{"windows dir", `C:\Windows\System32\x.pdf`},
		{"windows dir forward", "c:/WINDOWS/x.pdf"},
		{"unc var log", `\\server\share\var\log\x.pdf`},
		{"alternate stream", "doc.pdf:hidden"},
		{"drive relative stream", "c:doc.pdf:hidden"},
		{"too long", strings.Repeat("a", 252) + ".pdf"},
		{"too deep", strings.Repeat("d/", 21) + "x.pdf"},
	}

	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(tt.candidate)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pdferrors.ErrSecurityViolation), "got %v", err)
			assert.Equal(t, MsgSecurityViolation, err.Error())
		})
	}
}

func TestValidate_RejectsAllReservedNames(t *testing.T) {
	t.Parallel()

	names := []string{"CON", "PRN", "AUX", "NUL"}
	for i := 1; i <= 9; i++ {
		names = append(names, fmt.Sprintf("COM%d", i), fmt.Sprintf("LPT%d", i))
	}
	require.Len(t, names, 22)

	v := newValidator()
	for _, name := range names {
		candidates := []string{
			name,
			strings.ToLower(name),
			alternateCase(name),
			name + ".pdf",
			strings.ToLower(name) + ".tar.gz",
			alternateCase(name) + ".PDF",
			"docs/" + alternateCase(name) + ".pdf",
		}
		for _, candidate := range candidates {
			_, err := v.Validate(candidate)
			assert.True(t, errors.Is(err, pdferrors.ErrSecurityViolation), "%q: got %v", candidate, err)
		}
	}

	// a reserved stem must be the whole stem
	for _, candidate := range []string{"console.pdf", "printer.pdf", "com10.pdf", "lpt0.pdf", "auxiliary.pdf"} {
		_, err := v.Validate(candidate)
		assert.Equal(t, pdferrors.KindFileNotFound, pdferrors.KindOf(err), candidate)
	}
}

func alternateCase(s string) string {
	b := []byte(strings.ToLower(s))
	for i := 0; i < len(b); i += 2 {
		b[i] = byte(unicode.ToUpper(rune(b[i])))
	}
	return string(b)
}

func TestValidate_MessagesDoNotVaryWithAttack(t *testing.T) {
	t.Parallel()

	v := newValidator()
	messages := make(map[string]struct{})
	for _, candidate := range []string{"../x", "~/x", "/etc/shadow", "x\x00"} {
		_, err := v.Validate(candidate)
		require.Error(t, err)
		messages[err.Error()] = struct{}{}
		assert.NotContains(t, err.Error(), candidate)
	}
	assert.LessOrEqual(t, len(messages), 2)
}

func TestValidate_AcceptsSafeRelativePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.pdf", minimalPDF)
	t.Chdir(dir)

	vp, err := newValidator().Validate("doc.pdf")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(vp.Path()))
	assert.Equal(t, "doc.pdf", filepath.Base(vp.Path()))
	assert.Equal(t, int64(len(minimalPDF)), vp.Size())
	assert.True(t, vp.Info().Mode().IsRegular())
}

func TestValidate_RevalidatesOwnOutput(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "doc.pdf", minimalPDF)
	v := newValidator()

	first, err := v.Validate(path)
	require.NoError(t, err)

	second, err := v.Validate(first.Path())
	require.NoError(t, err)
	assert.Equal(t, first.Path(), second.Path())
}

func TestValidate_AllowsColonInPOSIXAbsolutePath(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "a:b.pdf", minimalPDF)
	_, err := newValidator().Validate(path)
	assert.NoError(t, err)
}

func TestValidate_FileSystemFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	v := newValidator()

	_, err := v.Validate(filepath.Join(dir, "missing.pdf"))
	assert.Equal(t, pdferrors.KindFileNotFound, pdferrors.KindOf(err))

	// a regular file used as a directory
	parent := writeFile(t, dir, "a.pdf", minimalPDF)
	_, err = v.Validate(filepath.Join(parent, "x.pdf"))
	assert.Equal(t, pdferrors.KindFileNotFound, pdferrors.KindOf(err))
	assert.NotContains(t, err.Error(), dir)

	sub := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(sub, 0700))
	_, err = v.Validate(sub)
	assert.Equal(t, pdferrors.KindNotAFile, pdferrors.KindOf(err))
	assert.NotContains(t, err.Error(), dir)
}

func TestValidate_RejectsSymlinkToValidPDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := writeFile(t, dir, "real.pdf", minimalPDF)
	link := filepath.Join(dir, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := newValidator().Validate(link)
	require.Error(t, err)
	assert.Equal(t, pdferrors.KindNotAFile, pdferrors.KindOf(err))
}

func TestValidate_FileTooLarge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "big.pdf", strings.Repeat("x", 2048))

	cfg := config.Default()
	cfg.MaxFileSize = 1024
	_, err := NewPathValidator(cfg).Validate(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pdferrors.ErrFileTooLarge))
	assert.Contains(t, err.Error(), "2.0 KiB")
	assert.Contains(t, err.Error(), "1.0 KiB")
	assert.NotContains(t, err.Error(), dir)
}

func TestValidate_ConfiguredLimits(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.MaxPathLength = 10
	cfg.MaxPathDepth = 2
	v := NewPathValidator(cfg)

	_, err := v.Validate("abcdefghijk.pdf")
	assert.True(t, errors.Is(err, pdferrors.ErrSecurityViolation))

	_, err = v.Validate("a/b/c.pdf")
	assert.True(t, errors.Is(err, pdferrors.ErrSecurityViolation))

	// multibyte characters count once
	_, err = v.Validate("ééééé.pdf")
	assert.Equal(t, pdferrors.KindFileNotFound, pdferrors.KindOf(err))
}

func TestValidate_Concurrent(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "doc.pdf", minimalPDF)
	v := newValidator()

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Validate(path)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestValidate_NameTooLong(t *testing.T) {
	t.Chdir(t.TempDir())

	// within the rune limit but longer than the file system allows in bytes
	candidate := strings.Repeat("é", 200) + ".pdf"
	_, err := newValidator().Validate(candidate)
	require.Error(t, err)
	assert.Equal(t, pdferrors.KindInvalidPath, pdferrors.KindOf(err))
	assert.NotContains(t, err.Error(), "é")
}

func TestValidate_UnreadableDirectory(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0700))
	path := writeFile(t, locked, "doc.pdf", minimalPDF)
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0700) })

	_, err := newValidator().Validate(path)
	require.Error(t, err)
	assert.Equal(t, pdferrors.KindReadError, pdferrors.KindOf(err))
	assert.Equal(t, pdferrors.TypePermission, pdferrors.Classify(err, path).Data.ErrorType)
}
