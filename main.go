package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	pdfcli "github.com/sammcj/mcp-pdf/internal/cli"
	"github.com/sammcj/mcp-pdf/internal/config"
	"github.com/sammcj/mcp-pdf/internal/extraction"
	"github.com/sammcj/mcp-pdf/internal/registry"
	"github.com/sammcj/mcp-pdf/internal/security"
	"github.com/sammcj/mcp-pdf/internal/tools"
	"github.com/sammcj/mcp-pdf/internal/tools/pdf"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	errorLogger  atomic.Pointer[tools.ErrorLogger]
	isStdioMode  atomic.Bool
)

const (
	appName = "mcp-pdf"

	transportStdio = "stdio"
	transportHTTP  = "http"
	transportCLI   = "cli"

	envLogToolErrors = "LOG_TOOL_ERRORS"
)

// parseLogLevel parses a level name. Defaults to WarnLevel if empty or invalid.
func parseLogLevel(value string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

// setMemoryLimit configures the Go runtime soft memory limit
func setMemoryLimit(limit int64) {
	if limit > 0 {
		debug.SetMemoryLimit(limit)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the transport is known
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	err := newApp(logger).Run(ctx, os.Args)
	performCleanup(logger)
	if err != nil {
		if !isStdioMode.Load() && !errors.Is(err, pdfcli.ErrToolFailed) {
			pdfcli.PrintError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newApp(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:    appName,
		Usage:   "MCP server for PDF text and metadata extraction",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   transportStdio,
				Usage:   "Transport type (stdio or http)",
			},
			&cli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for the Streamable HTTP transport",
			},
			&cli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli.StringFlag{
				Name:  "auth-token",
				Usage: "Bearer token required by the Streamable HTTP transport (optional)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a dotenv file loaded before reading the environment",
			},
			&cli.Int64Flag{
				Name:  "max-file-size",
				Usage: "Largest PDF in bytes that will be opened",
			},
			&cli.DurationFlag{
				Name:  "processing-timeout",
				Usage: "Time limit for a single extraction",
			},
			&cli.IntFlag{
				Name:  "max-concurrent-operations",
				Usage: "Maximum number of simultaneous extractions",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-tool-errors",
				Usage: "Record failed tool calls in tool-errors.log (also LOG_TOOL_ERRORS=true)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("%s version %s\n", appName, Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			transport := cmd.String("transport")
			if transport != transportStdio && transport != transportHTTP {
				return fmt.Errorf("unsupported transport: %s", transport)
			}
			isStdioMode.Store(transport == transportStdio)

			cfg, err := bootstrap(cmd, logger, transport)
			if err != nil {
				return err
			}

			if transport != transportStdio {
				logger.Infof("Starting %s version %s (commit: %s, built: %s)", appName, Version, Commit, BuildDate)
			}
			logger.WithFields(logrus.Fields{
				"max_file_size":             cfg.MaxFileSize,
				"processing_timeout":        cfg.ProcessingTimeout.String(),
				"max_concurrent_operations": cfg.MaxConcurrentOperations,
			}).Debug("Configuration loaded")

			mcpSrv := newMCPServer(logger, transport)

			switch transport {
			case transportHTTP:
				return startStreamableHTTPServer(ctx, cmd, mcpSrv, logger)
			default:
				return serveStdio(ctx, mcpSrv, logger)
			}
		},
	}
}

// cliCommand runs tools in-process without starting a server
func cliCommand(logger *logrus.Logger) *cli.Command {
	runner := func(cmd *cli.Command) (*pdfcli.Runner, error) {
		if _, err := bootstrap(cmd, logger, transportCLI); err != nil {
			return nil, err
		}
		output := pdfcli.OutputText
		if cmd.Bool("json") {
			output = pdfcli.OutputJSON
		}
		return pdfcli.NewRunner(logger, output, os.Stdout), nil
	}

	return &cli.Command{
		Name:  "cli",
		Usage: "Run PDF tools directly from the command line",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List available tools",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := runner(cmd)
					if err != nil {
						return err
					}
					return r.ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show parameters and usage for a tool",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: %s cli help <tool>", appName)
					}
					r, err := runner(cmd)
					if err != nil {
						return err
					}
					return r.HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a tool with --key=value flags or a JSON object",
				ArgsUsage:       "<tool> [--key=value ...] ['{\"key\": \"value\"}']",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("usage: %s cli run <tool> [arguments]", appName)
					}
					r, err := runner(cmd)
					if err != nil {
						return err
					}
					args := cmd.Args().Slice()
					return r.RunTool(tools.WithRequestID(ctx, ""), args[0], args[1:])
				},
			},
		},
	}
}

// bootstrap loads configuration, configures logging and registers the tool
// catalogue. It is shared by the server and the direct CLI.
func bootstrap(cmd *cli.Command, logger *logrus.Logger, transport string) (config.Config, error) {
	cfg, warnings, err := loadConfig(cmd)
	if err != nil {
		return cfg, err
	}

	logDir := configureLogging(logger, transport, parseLogLevel(cfg.LogLevel))
	for _, w := range warnings {
		logger.Warn(w)
	}

	setMemoryLimit(cfg.MaxMemoryUsage)

	if logDir != "" {
		el, err := tools.OpenErrorLogger(logger, logToolErrors(cmd), logDir)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialise tool error logger")
		} else {
			errorLogger.Store(el)
		}
	}

	registry.Init(logger)

	guard := security.NewPDFGuard(security.NewPathValidator(cfg))
	pdf.RegisterTools(guard, extraction.NewService(cfg, logger))

	logger.WithField("tool_count", len(registry.GetEnabledToolNames())).Debug("Tools registered")
	return cfg, nil
}

// loadConfig applies defaults, the YAML file, the dotenv file, the
// environment and finally explicit flags, in that order.
func loadConfig(cmd *cli.Command) (config.Config, []string, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, nil, err
		}
	}

	if path := cmd.String("env-file"); path != "" {
		if err := config.LoadDotEnv(path); err != nil {
			return cfg, nil, err
		}
	}

	warnings := cfg.ApplyEnv(os.LookupEnv)

	if cmd.IsSet("max-file-size") {
		cfg.MaxFileSize = cmd.Int64("max-file-size")
	}
	if cmd.IsSet("processing-timeout") {
		cfg.ProcessingTimeout = cmd.Duration("processing-timeout")
	}
	if cmd.IsSet("max-concurrent-operations") {
		cfg.MaxConcurrentOperations = cmd.Int("max-concurrent-operations")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, warnings, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, warnings, nil
}

func logToolErrors(cmd *cli.Command) bool {
	if cmd.Bool("log-tool-errors") {
		return true
	}
	enabled, _ := strconv.ParseBool(os.Getenv(envLogToolErrors))
	return enabled
}

// configureLogging always logs to a file so stdio framing is never broken.
// It returns the log directory, or "" when it could not be created.
func configureLogging(logger *logrus.Logger, transport string, level logrus.Level) string {
	// stdio mode always records warnings
	if transport == transportStdio && level < logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	logrus.SetLevel(level)

	fallback := func() {
		if transport == transportStdio {
			logger.SetOutput(io.Discard)
			logrus.SetOutput(io.Discard)
			return
		}
		logger.SetOutput(os.Stderr)
		logrus.SetOutput(os.Stderr)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fallback()
		return ""
	}

	logDir := filepath.Join(homeDir, "."+appName, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		fallback()
		return ""
	}

	file, err := os.OpenFile(filepath.Join(logDir, appName+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fallback()
		return logDir
	}

	if old := debugLogFile.Swap(file); old != nil {
		_ = old.Close()
	}
	logger.SetOutput(file)
	logrus.SetOutput(file)
	logger.WithField("level", level.String()).Debug("Logging configured")
	return logDir
}

func performCleanup(logger *logrus.Logger) {
	if el := errorLogger.Load(); el != nil {
		if err := el.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}

	if file := debugLogFile.Load(); file != nil {
		logger.SetOutput(io.Discard)
		_ = file.Close()
	}
}
