// Package config builds the server configuration from defaults, an optional
// YAML file, an optional dotenv file and the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxFileSize             = int64(100 * 1024 * 1024) // 100MB
	DefaultProcessingTimeout       = 60 * time.Second
	DefaultMaxMemoryUsage          = int64(500 * 1024 * 1024) // 500MB, advisory
	DefaultMaxConcurrentOperations = 5
	DefaultMaxPathLength           = 255
	DefaultMaxPathDepth            = 20
	DefaultLogLevel                = "warn"
)

// Environment variable names
const (
	EnvMaxFileSize             = "PDF_MAX_FILE_SIZE"
	EnvProcessingTimeout       = "PDF_PROCESSING_TIMEOUT"
	EnvMaxMemoryUsage          = "PDF_MAX_MEMORY_USAGE"
	EnvMaxConcurrentOperations = "PDF_MAX_CONCURRENT_OPERATIONS"
	EnvMaxPathLength           = "PDF_MAX_PATH_LENGTH"
	EnvMaxPathDepth            = "PDF_MAX_PATH_DEPTH"
	EnvLogLevel                = "LOG_LEVEL"
)

// Config holds every tunable limit. It is built once at start-up and passed
// by value into component constructors.
type Config struct {
	// MaxFileSize is the largest PDF, in bytes, that will be opened
	MaxFileSize int64 `yaml:"max_file_size"`

	// ProcessingTimeout bounds a single extraction call
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`

	// MaxMemoryUsage is applied as the Go runtime soft memory limit. It is not enforced per request.
	MaxMemoryUsage int64 `yaml:"max_memory_usage"`

	// MaxConcurrentOperations caps simultaneous extraction calls; extra calls queue
	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`

	MaxPathLength int `yaml:"max_path_length"`
	MaxPathDepth  int `yaml:"max_path_depth"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		MaxFileSize:             DefaultMaxFileSize,
		ProcessingTimeout:       DefaultProcessingTimeout,
		MaxMemoryUsage:          DefaultMaxMemoryUsage,
		MaxConcurrentOperations: DefaultMaxConcurrentOperations,
		MaxPathLength:           DefaultMaxPathLength,
		MaxPathDepth:            DefaultMaxPathDepth,
		LogLevel:                DefaultLogLevel,
	}
}

// LoadFile overlays values from a YAML file onto c. Keys absent from the
// file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are not overridden.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment values using lookup (normally os.LookupEnv).
// Invalid or non-positive values are ignored and reported as warnings so the
// previous value stays in effect.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) []string {
	var warnings []string

	ignore := func(name, value string) {
		warnings = append(warnings, fmt.Sprintf("ignoring invalid %s value %q", name, value))
	}

	if v, ok := lookupTrimmed(lookup, EnvMaxFileSize); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxFileSize = n
		} else {
			ignore(EnvMaxFileSize, v)
		}
	}

	if v, ok := lookupTrimmed(lookup, EnvProcessingTimeout); ok {
		// milliseconds
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.ProcessingTimeout = time.Duration(n) * time.Millisecond
		} else {
			ignore(EnvProcessingTimeout, v)
		}
	}

	if v, ok := lookupTrimmed(lookup, EnvMaxMemoryUsage); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxMemoryUsage = n
		} else {
			ignore(EnvMaxMemoryUsage, v)
		}
	}

	intVars := []struct {
		name string
		dst  *int
	}{
		{EnvMaxConcurrentOperations, &c.MaxConcurrentOperations},
		{EnvMaxPathLength, &c.MaxPathLength},
		{EnvMaxPathDepth, &c.MaxPathDepth},
	}
	for _, iv := range intVars {
		v, ok := lookupTrimmed(lookup, iv.name)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*iv.dst = n
		} else {
			ignore(iv.name, v)
		}
	}

	if v, ok := lookupTrimmed(lookup, EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}

	return warnings
}

// Validate reports the first limit that cannot be used
func (c Config) Validate() error {
	switch {
	case c.MaxFileSize <= 0:
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileSize)
	case c.ProcessingTimeout <= 0:
		return fmt.Errorf("processing timeout must be positive, got %s", c.ProcessingTimeout)
	case c.MaxMemoryUsage <= 0:
		return fmt.Errorf("max memory usage must be positive, got %d", c.MaxMemoryUsage)
	case c.MaxConcurrentOperations <= 0:
		return fmt.Errorf("max concurrent operations must be positive, got %d", c.MaxConcurrentOperations)
	case c.MaxPathLength <= 0:
		return fmt.Errorf("max path length must be positive, got %d", c.MaxPathLength)
	case c.MaxPathDepth <= 0:
		return fmt.Errorf("max path depth must be positive, got %d", c.MaxPathDepth)
	}
	return nil
}

func lookupTrimmed(lookup func(string) (string, bool), name string) (string, bool) {
	v, ok := lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}
