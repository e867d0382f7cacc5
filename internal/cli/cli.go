// Package cli runs mcp-pdf tools directly from the command line, bypassing
// the MCP server. Tools are invoked in-process via the registry.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-pdf/internal/registry"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// ErrToolFailed is returned by RunTool when the tool produced an error result
var ErrToolFailed = errors.New("tool returned an error")

// Runner executes CLI commands against the tool registry.
type Runner struct {
	logger *logrus.Logger
	output OutputFormat
	out    io.Writer
}

// NewRunner creates a Runner that writes to out in the given format.
func NewRunner(logger *logrus.Logger, output OutputFormat, out io.Writer) *Runner {
	return &Runner{logger: logger, output: output, out: out}
}

// ListTools prints all enabled tools with their descriptions.
func (r *Runner) ListTools() error {
	enabled := registry.GetEnabledTools()

	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	entries := make([]entry, 0, len(enabled))
	for _, t := range enabled {
		def := t.Definition()
		entries = append(entries, entry{Name: def.Name, Description: firstLine(def.Description)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	if r.output == OutputJSON {
		return writeJSON(r.out, entries)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Description)
	}
	return w.Flush()
}

// HelpTool prints the schema, usage and extended help for a single tool.
func (r *Runner) HelpTool(name string) error {
	tool, ok := resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}

	def := tool.Definition()
	var extended *tools.ExtendedHelp
	if p, ok := tool.(tools.ExtendedHelpProvider); ok {
		extended = p.ProvideExtendedInfo()
	}

	if r.output == OutputJSON {
		return writeJSON(r.out, struct {
			Tool         mcp.Tool            `json:"tool"`
			ExtendedHelp *tools.ExtendedHelp `json:"extended_help,omitempty"`
		}{def, extended})
	}

	fmt.Fprintf(r.out, "Tool: %s\n\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(r.out, "%s\n\n", def.Description)
	}

	props := def.InputSchema.Properties
	required := toSet(def.InputSchema.Required)

	if len(props) == 0 {
		fmt.Fprintln(r.out, "No parameters.")
	} else {
		fmt.Fprintln(r.out, "Parameters:")

		names := make([]string, 0, len(props))
		for k := range props {
			names = append(names, k)
		}
		slices.Sort(names)

		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		for _, pName := range names {
			pMap, ok := props[pName].(map[string]any)
			if !ok {
				continue
			}

			pType, _ := pMap["type"].(string)
			pDesc, _ := pMap["description"].(string)

			reqMark := ""
			if required[pName] {
				reqMark = " (required)"
			}

			fmt.Fprintf(w, "  --%s\t%s\t%s%s%s\n", toFlagName(pName), pType, firstLine(pDesc), reqMark, formatEnum(pMap))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if extended != nil {
		r.writeExtendedHelp(extended)
	}
	return nil
}

func (r *Runner) writeExtendedHelp(h *tools.ExtendedHelp) {
	if h.WhenToUse != "" {
		fmt.Fprintf(r.out, "\nWhen to use: %s\n", h.WhenToUse)
	}
	if h.WhenNotToUse != "" {
		fmt.Fprintf(r.out, "When not to use: %s\n", h.WhenNotToUse)
	}

	if len(h.Examples) > 0 {
		fmt.Fprintln(r.out, "\nExamples:")
		for _, ex := range h.Examples {
			args, _ := json.Marshal(ex.Arguments)
			fmt.Fprintf(r.out, "  %s\n    %s\n", ex.Description, args)
		}
	}

	if len(h.Troubleshooting) > 0 {
		fmt.Fprintln(r.out, "\nTroubleshooting:")
		for _, tip := range h.Troubleshooting {
			fmt.Fprintf(r.out, "  %s\n    %s\n", tip.Problem, tip.Solution)
		}
	}
}

// RunTool executes a tool by name with the given arguments.
// args can be:
//   - A single JSON string: '{"key": "value"}'
//   - Flag-style arguments: --key=value --flag
//   - Mixed: --key=value '{"other": "json"}'  (flags take precedence)
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	tool, ok := resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'mcp-pdf cli list' to see available tools)", name)
	}

	params, err := parseArgs(args, tool.Definition())
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	result, err := tool.Execute(ctx, r.logger, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}

	return r.renderResult(result)
}

// parseArgs converts CLI arguments into a map[string]any suitable for tool.Execute().
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)
	schema := buildSchemaInfo(def)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			// earlier flags take precedence
			for k, v := range obj {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			continue
		}

		if strings.HasPrefix(arg, "--") {
			key, val, err := parseFlag(arg, args, &i, schema)
			if err != nil {
				return nil, err
			}
			params[key] = val
			continue
		}

		return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
	}

	return params, nil
}

// schemaInfo holds resolved schema information for argument parsing.
type schemaInfo struct {
	// typeMap maps parameter names to their JSON Schema types
	typeMap map[string]string
	// flagToParam maps kebab-case flag names to parameter names
	flagToParam map[string]string
}

// parseFlag parses a single --key=value or --key value or --flag (bool true).
func parseFlag(arg string, args []string, idx *int, schema schemaInfo) (string, any, error) {
	stripped := strings.TrimPrefix(arg, "--")

	if flagName, rawVal, found := strings.Cut(stripped, "="); found {
		paramName := schema.resolveParam(flagName)
		return paramName, coerceValue(rawVal, schema.typeMap[paramName]), nil
	}

	flagName := stripped
	paramName := schema.resolveParam(flagName)

	if schema.typeMap[paramName] == "boolean" {
		return paramName, true, nil
	}

	*idx++
	if *idx >= len(args) {
		return "", nil, fmt.Errorf("flag --%s requires a value", flagName)
	}
	return paramName, coerceValue(args[*idx], schema.typeMap[paramName]), nil
}

func (s schemaInfo) resolveParam(flagName string) string {
	if actual, ok := s.flagToParam[flagName]; ok {
		return actual
	}
	return strings.ReplaceAll(flagName, "-", "_")
}

func buildSchemaInfo(def mcp.Tool) schemaInfo {
	info := schemaInfo{
		typeMap:     make(map[string]string, len(def.InputSchema.Properties)),
		flagToParam: make(map[string]string, len(def.InputSchema.Properties)),
	}
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			if t, ok := pm["type"].(string); ok {
				info.typeMap[name] = t
			}
		}
		info.flagToParam[toFlagName(name)] = name
	}
	return info
}

// coerceValue converts a raw flag value to the schema's type. Values that do
// not parse are passed through so the tool can report them.
func coerceValue(raw, schemaType string) any {
	if schemaType != "boolean" {
		return raw
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return raw
}

// renderResult formats a CallToolResult for terminal output.
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}

	if r.output == OutputJSON {
		if err := writeJSON(r.out, result); err != nil {
			return err
		}
	} else {
		for _, content := range result.Content {
			switch c := content.(type) {
			case mcp.TextContent:
				fmt.Fprintln(r.out, c.Text)
			default:
				data, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					fmt.Fprintf(r.out, "%+v\n", c)
				} else {
					fmt.Fprintln(r.out, string(data))
				}
			}
		}
	}

	if result.IsError {
		return ErrToolFailed
	}
	return nil
}

// PrintError writes err to w, in red when w is a terminal.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprint("Error: ")+err.Error())
}

// resolveTool looks up a tool by name, then with hyphens converted to
// underscores since CLI users naturally type kebab-case.
func resolveTool(name string) (tools.Tool, bool) {
	if tool, ok := registry.GetTool(name); ok {
		return tool, true
	}
	if snakeName := strings.ReplaceAll(name, "-", "_"); snakeName != name {
		return registry.GetTool(snakeName)
	}
	return nil, false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	if before, _, found := strings.Cut(s, "\n"); found {
		return before
	}
	return s
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// toFlagName converts camelCase or snake_case to kebab-case for CLI flags.
func toFlagName(s string) string {
	s = strings.ReplaceAll(s, "_", "-")
	var out strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('-')
			}
			out.WriteRune(r + 32)
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func formatEnum(pMap map[string]any) string {
	var vals []string
	switch e := pMap["enum"].(type) {
	case []string:
		vals = e
	case []any:
		for _, v := range e {
			vals = append(vals, fmt.Sprint(v))
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
