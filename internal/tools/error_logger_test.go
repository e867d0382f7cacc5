package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func readEntries(t *testing.T, path string) []ErrorLogEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []ErrorLogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e ErrorLogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestErrorLogger_Disabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := OpenErrorLogger(quietLogger(), false, dir)
	require.NoError(t, err)

	assert.False(t, l.IsEnabled())
	assert.Empty(t, l.FilePath())
	l.Log(ErrorLogEntry{ToolName: "extract_pdf_text", Error: "boom"})
	require.NoError(t, l.Close())

	_, err = os.Stat(filepath.Join(dir, ErrorLogFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestErrorLogger_WritesEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := OpenErrorLogger(quietLogger(), true, dir)
	require.NoError(t, err)

	l.Log(ErrorLogEntry{
		ToolName:  "extract_pdf_text",
		ErrorType: "VALIDATION_ERROR",
		Code:      -32602,
		Error:     "file path failed security validation",
		Arguments: map[string]any{"file_path": "../etc\x00passwd", "pages": float64(3)},
		Transport: "stdio",
	})
	require.NoError(t, l.Close())

	entries := readEntries(t, l.FilePath())
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "extract_pdf_text", e.ToolName)
	assert.Equal(t, "VALIDATION_ERROR", e.ErrorType)
	assert.Equal(t, -32602, e.Code)
	assert.NotEmpty(t, e.Timestamp)
	assert.Equal(t, `"../etc\x00passwd"`, e.Arguments["file_path"])
	assert.Equal(t, float64(3), e.Arguments["pages"])
}

func TestErrorLogger_PruneDropsOldEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ErrorLogFileName)

	old := ErrorLogEntry{Timestamp: time.Now().AddDate(0, 0, -90).Format(time.RFC3339), ToolName: "old", Error: "x"}
	recent := ErrorLogEntry{Timestamp: time.Now().AddDate(0, 0, -1).Format(time.RFC3339), ToolName: "recent", Error: "y"}
	var lines []string
	for _, e := range []ErrorLogEntry{old, recent} {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		lines = append(lines, string(data))
	}
	lines = append(lines, "not json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	l, err := OpenErrorLogger(quietLogger(), true, dir)
	require.NoError(t, err)
	require.NoError(t, l.Prune())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, `"tool_name":"old"`)
	assert.Contains(t, content, `"tool_name":"recent"`)
	assert.Contains(t, content, "not json")
}

func TestSanitiseArgs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SanitiseArgs(nil))

	long := strings.Repeat("a", 500)
	out := SanitiseArgs(map[string]any{"file_path": long, "flag": true})
	assert.Equal(t, true, out["flag"])
	s, ok := out["file_path"].(string)
	require.True(t, ok)
	assert.Less(t, len(s), len(long))
	assert.True(t, strings.HasSuffix(s, `..."`))
}

func TestEntryFromResult(t *testing.T) {
	t.Parallel()

	args := map[string]any{"file_path": "a.pdf"}

	result := mcp.NewToolResultError(`{"code":-32605,"message":"file is not a valid PDF document","data":{"error_type":"FORMAT_ERROR"}}`)
	entry := EntryFromResult("validate_pdf", result, args)
	assert.Equal(t, "validate_pdf", entry.ToolName)
	assert.Equal(t, -32605, entry.Code)
	assert.Equal(t, "FORMAT_ERROR", entry.ErrorType)
	assert.Equal(t, "file is not a valid PDF document", entry.Error)
	assert.Equal(t, args, entry.Arguments)

	entry = EntryFromResult("extract_pdf_text", mcp.NewToolResultError("plain failure"), nil)
	assert.Equal(t, "plain failure", entry.Error)
	assert.Zero(t, entry.Code)

	entry = EntryFromResult("extract_pdf_text", nil, nil)
	assert.Empty(t, entry.Error)
}
