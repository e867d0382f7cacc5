package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sammcj/mcp-pdf/internal/registry"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

// newMCPServer creates the server and registers every enabled tool
func newMCPServer(logger *logrus.Logger, transport string) *mcpserver.MCPServer {
	logger.Debug("Creating MCP server")
	mcpSrv := mcpserver.NewMCPServer(appName, Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	enabledTools := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

	for name, tool := range enabledTools {
		if transport != transportStdio {
			logger.Infof("Registering tool: %s", name)
		}
		mcpSrv.AddTool(tool.Definition(), toolHandler(name, tool, logger, transport))
	}
	return mcpSrv
}

// toolHandler adapts a tool to the MCP handler signature, tagging each call
// with a request id and recording failures in the tool error log.
func toolHandler(name string, tool tools.Tool, logger *logrus.Logger, transport string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			if request.Params.Arguments != nil {
				return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
			}
			args = map[string]any{}
		}

		ctx = tools.WithRequestID(ctx, "")
		requestID := tools.RequestID(ctx)

		result, err := tool.Execute(ctx, logger, args)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"tool":       name,
				"request_id": requestID,
			}).Error("Tool execution failed")

			if el := errorLogger.Load(); el != nil && el.IsEnabled() {
				el.Log(tools.ErrorLogEntry{
					ToolName:  name,
					Error:     err.Error(),
					Arguments: args,
					Transport: transport,
					RequestID: requestID,
				})
			}
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}

		if result != nil && result.IsError {
			if el := errorLogger.Load(); el != nil && el.IsEnabled() {
				entry := tools.EntryFromResult(name, result, args)
				entry.Transport = transport
				entry.RequestID = requestID
				el.Log(entry)
			}
		}
		return result, nil
	}
}

func serveStdio(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *logrus.Logger) error {
	logger.Debug("Starting stdio server")

	stdio := mcpserver.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startStreamableHTTPServer(ctx context.Context, cmd *cli.Command, mcpSrv *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	endpointPath := cmd.String("endpoint-path")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithHeartbeatInterval(30*time.Second),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	)

	mux := http.NewServeMux()
	mux.Handle(endpointPath, requireToken(cmd.String("auth-token"), logger, httpServer))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("MCP transport shutdown failed")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}

	logger.Info("HTTP server stopped gracefully")
	return nil
}

// requireToken rejects requests without the expected bearer token. An empty
// token disables the check.
func requireToken(expected string, logger *logrus.Logger, next http.Handler) http.Handler {
	if expected == "" {
		return next
	}
	logger.Info("Token authentication enabled")

	const bearerPrefix = "Bearer "
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, bearerPrefix)
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Warn("Rejected request with missing or invalid authentication token")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
