// Package registry holds the tool catalogue shared by the MCP server and the
// direct CLI.
package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
)

// DisabledToolsEnv lists tools to leave out, comma separated
const DisabledToolsEnv = "DISABLED_TOOLS"

var (
	mu sync.RWMutex

	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools holds normalised names of tools to skip
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger
)

// Init initialises the registry and reads DISABLED_TOOLS
func Init(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()

	logger = l
	toolRegistry = make(map[string]tools.Tool)
	disabledTools = parseDisabledTools(os.Getenv(DisabledToolsEnv))
}

func parseDisabledTools(value string) map[string]bool {
	disabled := make(map[string]bool)
	for tool := range strings.SplitSeq(value, ",") {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		disabled[normalise(tool)] = true
		if logger != nil {
			logger.WithField("tool", tool).Debug("Tool disabled")
		}
	}
	return disabled
}

// normalise lowercases and treats hyphens and underscores alike
func normalise(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

func isDisabled(name string) bool {
	return disabledTools[normalise(name)]
}

// Register adds a tool unless it is disabled
func Register(tool tools.Tool) {
	name := tool.Definition().Name

	mu.Lock()
	defer mu.Unlock()

	if isDisabled(name) {
		if logger != nil {
			logger.WithField("tool", name).Debug("Tool not registered (disabled)")
		}
		return
	}

	toolRegistry[name] = tool
	if logger != nil {
		logger.WithField("tool", name).Debug("Tool successfully registered")
	}
}

// GetTool retrieves a tool by name
func GetTool(name string) (tools.Tool, bool) {
	mu.RLock()
	defer mu.RUnlock()

	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetEnabledTools returns a copy of the registered tools
func GetEnabledTools() map[string]tools.Tool {
	mu.RLock()
	defer mu.RUnlock()

	enabled := make(map[string]tools.Tool, len(toolRegistry))
	for name, tool := range toolRegistry {
		enabled[name] = tool
	}
	return enabled
}

// GetEnabledToolNames returns a sorted list of registered tool names
func GetEnabledToolNames() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of registered tools that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	mu.RLock()
	defer mu.RUnlock()

	var names []string
	for name, tool := range toolRegistry {
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
