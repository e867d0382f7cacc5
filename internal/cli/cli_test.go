package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/registry"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTool returns its arguments as JSON, or an error result when fail is set
type echoTool struct{}

func (echoTool) Definition() mcp.Tool {
	return mcp.NewTool("echo_args",
		mcp.WithDescription("Echo arguments\nSecond line"),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path")),
		mcp.WithString("output_format", mcp.Enum("text", "structured")),
		mcp.WithBoolean("fail", mcp.Description("Return an error result")),
	)
}

func (echoTool) Execute(_ context.Context, _ *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	data, _ := json.Marshal(args)
	if args["fail"] == true {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (echoTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		WhenToUse: "When testing",
		Examples: []tools.ToolExample{
			{Description: "Echo a path", Arguments: map[string]any{"file_path": "a.pdf"}},
		},
	}
}

func setupRegistry(t *testing.T) {
	t.Helper()
	t.Setenv(registry.DisabledToolsEnv, "")
	registry.Init(nil)
	registry.Register(echoTool{})
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestListTools(t *testing.T) {
	setupRegistry(t)

	var out bytes.Buffer
	require.NoError(t, NewRunner(quietLogger(), OutputText, &out).ListTools())
	assert.Contains(t, out.String(), "echo_args")
	assert.Contains(t, out.String(), "Echo arguments")
	assert.NotContains(t, out.String(), "Second line")

	out.Reset()
	require.NoError(t, NewRunner(quietLogger(), OutputJSON, &out).ListTools())
	var entries []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "echo_args", entries[0]["name"])
}

func TestHelpTool(t *testing.T) {
	setupRegistry(t)

	var out bytes.Buffer
	require.NoError(t, NewRunner(quietLogger(), OutputText, &out).HelpTool("echo-args"))

	text := out.String()
	assert.Contains(t, text, "Tool: echo_args")
	assert.Contains(t, text, "--file-path")
	assert.Contains(t, text, "(required)")
	assert.Contains(t, text, "[text|structured]")
	assert.Contains(t, text, "When to use: When testing")
	assert.Contains(t, text, "Echo a path")

	err := NewRunner(quietLogger(), OutputText, &out).HelpTool("missing")
	assert.EqualError(t, err, "unknown tool: missing")
}

func TestRunTool(t *testing.T) {
	setupRegistry(t)

	var out bytes.Buffer
	runner := NewRunner(quietLogger(), OutputText, &out)
	err := runner.RunTool(context.Background(), "echo_args", []string{
		"--file-path=doc.pdf",
		"--output-format", "structured",
		`{"file_path": "ignored.pdf", "extra": 1}`,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &got))
	assert.Equal(t, "doc.pdf", got["file_path"])
	assert.Equal(t, "structured", got["output_format"])
	assert.InDelta(t, 1, got["extra"], 0)
}

func TestRunTool_ErrorResult(t *testing.T) {
	setupRegistry(t)

	var out bytes.Buffer
	err := NewRunner(quietLogger(), OutputText, &out).RunTool(context.Background(), "echo_args",
		[]string{"--file-path", "doc.pdf", "--fail"})
	assert.ErrorIs(t, err, ErrToolFailed)
	assert.Contains(t, out.String(), `"fail":true`)
}

func TestRunTool_ArgumentErrors(t *testing.T) {
	setupRegistry(t)
	runner := NewRunner(quietLogger(), OutputText, io.Discard)

	err := runner.RunTool(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, "unknown tool: nope")

	err = runner.RunTool(context.Background(), "echo_args", []string{"stray"})
	assert.ErrorContains(t, err, "unexpected argument: stray")

	err = runner.RunTool(context.Background(), "echo_args", []string{"--file-path"})
	assert.ErrorContains(t, err, "flag --file-path requires a value")

	err = runner.RunTool(context.Background(), "echo_args", []string{"{bad json"})
	assert.ErrorContains(t, err, "invalid JSON argument")
}

func TestCoerceValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, true, coerceValue("yes", "boolean"))
	assert.Equal(t, false, coerceValue("0", "boolean"))
	assert.Equal(t, "maybe", coerceValue("maybe", "boolean"))
	assert.Equal(t, "1-3", coerceValue("1-3", "string"))
}

func TestToFlagName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file-path", toFlagName("file_path"))
	assert.Equal(t, "page-range", toFlagName("pageRange"))
}

func TestPrintError(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	PrintError(&out, assert.AnError)
	assert.Contains(t, out.String(), "Error: ")
	assert.Contains(t, out.String(), assert.AnError.Error())
}
