package tools

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLogRetentionDays is how long failed tool calls are kept
	DefaultLogRetentionDays = 60

	// ErrorLogFileName is created inside the log directory
	ErrorLogFileName = "tool-errors.log"

	maxLoggedArgLength = 200
)

// ErrorLogEntry is one line of the tool error log
type ErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	ErrorType string         `json:"error_type,omitempty"`
	Code      int            `json:"code,omitempty"`
	Error     string         `json:"error"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Transport string         `json:"transport,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ErrorLogger appends failed tool calls to a JSON-lines file. A disabled
// logger accepts entries and drops them.
type ErrorLogger struct {
	enabled  bool
	logFile  *os.File
	logger   *logrus.Logger
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// DisabledErrorLogger returns a logger that records nothing
func DisabledErrorLogger() *ErrorLogger {
	return &ErrorLogger{now: time.Now}
}

// OpenErrorLogger opens dir/tool-errors.log when enabled is true. Entries
// older than the retention period are pruned in the background.
func OpenErrorLogger(logger *logrus.Logger, enabled bool, dir string) (*ErrorLogger, error) {
	if !enabled {
		l := DisabledErrorLogger()
		l.logger = logger
		return l, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &ErrorLogger{
		enabled:  true,
		logger:   logger,
		filePath: filepath.Join(dir, ErrorLogFileName),
		now:      time.Now,
	}
	if err := l.reopenLocked(); err != nil {
		return nil, err
	}

	go func() {
		if err := l.Prune(); err != nil && logger != nil {
			logger.WithError(err).Warn("Failed to prune old tool error log entries")
		}
	}()

	if logger != nil {
		logger.Infof("Tool error logging enabled: %s", strconv.Quote(l.filePath))
	}
	return l, nil
}

// Log writes entry with a timestamp and sanitised arguments
func (l *ErrorLogger) Log(entry ErrorLogEntry) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return
	}

	entry.Timestamp = l.now().Format(time.RFC3339)
	entry.Arguments = SanitiseArgs(entry.Arguments)

	data, err := json.Marshal(entry)
	if err != nil {
		l.warn(err, "Failed to marshal tool error log entry")
		return
	}
	if _, err := l.logFile.Write(append(data, '\n')); err != nil {
		l.warn(err, "Failed to write tool error log entry")
		return
	}
	if err := l.logFile.Sync(); err != nil {
		l.warn(err, "Failed to sync tool error log file")
	}
}

// SanitiseArgs copies args, quoting strings so control bytes are escaped and
// truncating long values
func SanitiseArgs(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		if len(s) > maxLoggedArgLength {
			s = s[:maxLoggedArgLength] + "..."
		}
		out[k] = strconv.QuoteToASCII(s)
	}
	return out
}

// Close releases the log file
func (l *ErrorLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// IsEnabled reports whether entries are recorded
func (l *ErrorLogger) IsEnabled() bool {
	return l.enabled
}

// FilePath returns the log file location, empty when disabled
func (l *ErrorLogger) FilePath() string {
	return l.filePath
}

// Prune rewrites the log keeping only entries inside the retention period.
// Lines that cannot be parsed are kept.
func (l *ErrorLogger) Prune() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		// closed
		return nil
	}
	if err := l.logFile.Close(); err != nil {
		return fmt.Errorf("failed to close log file for pruning: %w", err)
	}
	l.logFile = nil

	kept, err := l.retainedLines()
	if err != nil {
		_ = l.reopenLocked()
		return err
	}

	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}

	tmpPath := l.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		_ = l.reopenLocked()
		return fmt.Errorf("failed to write pruned log file: %w", err)
	}
	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLocked()
		return fmt.Errorf("failed to replace log file: %w", err)
	}

	return l.reopenLocked()
}

func (l *ErrorLogger) retainedLines() ([]string, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	cutoff := l.now().AddDate(0, 0, -DefaultLogRetentionDays)

	var kept []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry ErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			kept = append(kept, line)
			continue
		}
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || ts.After(cutoff) {
			kept = append(kept, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return kept, nil
}

// reopenLocked opens the log file for appending. Caller must hold l.mu or
// be the only reference.
func (l *ErrorLogger) reopenLocked() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open tool error log file: %w", err)
	}
	l.logFile = f
	return nil
}

func (l *ErrorLogger) warn(err error, msg string) {
	if l.logger != nil {
		l.logger.WithError(err).Error(msg)
	}
}

// EntryFromResult builds a log entry from a tool error result whose text is
// a JSON error payload. Non-JSON text is recorded as the error message.
func EntryFromResult(toolName string, result *mcp.CallToolResult, args map[string]any) ErrorLogEntry {
	entry := ErrorLogEntry{ToolName: toolName, Arguments: args}
	if result == nil {
		return entry
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			ErrorType string `json:"error_type"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil || payload.Message == "" {
		entry.Error = text
		return entry
	}

	entry.Code = payload.Code
	entry.Error = payload.Message
	entry.ErrorType = payload.Data.ErrorType
	return entry
}
