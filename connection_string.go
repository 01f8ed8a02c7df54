package minibtree

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/minibtree/internal/pkg/logging"
)

// ConnectionConfig holds parsed connection string parameters
type ConnectionConfig struct {
	FilePath         string // Page file path
	LogLevel         string // Log level: debug, info, warn, error (default: warn)
	MaxCachedPages   int    // Clean pages kept by the buffer manager (default: 1000)
	CatalogCacheSize int    // Catalog lookups kept in the LRU cache (default: 128)
	TracePath        string // Trace file, tracing is off when empty
}

// DefaultConnectionConfig returns default configuration
func DefaultConnectionConfig(filePath string) *ConnectionConfig {
	return &ConnectionConfig{
		FilePath:         filePath,
		LogLevel:         "warn",
		MaxCachedPages:   defaultPageCacheSize,
		CatalogCacheSize: defaultCatalogCacheSize,
	}
}

// ParseConnectionString parses a connection string with optional query parameters.
//
// Format: /path/to/indexes.db?param1=value1&param2=value2
//
// Supported parameters:
//   - log_level=debug|info|warn|error : Set logging level (default: warn)
//   - max_cached_pages=N              : Buffer manager cache size in pages
//   - catalog_cache=N                 : Catalog lookup cache size
//   - trace=/path/to/trace.log        : Write page visit traces to a file
//
// Examples:
//   - "./indexes.db"
//   - "./indexes.db?log_level=debug&trace=/tmp/trace.log"
func ParseConnectionString(connStr string) (*ConnectionConfig, error) {
	// Split on first '?' to separate path from query params
	parts := strings.SplitN(connStr, "?", 2)

	if parts[0] == "" {
		return nil, fmt.Errorf("connection string has no file path")
	}
	config := DefaultConnectionConfig(parts[0])

	if len(parts) == 1 {
		return config, nil
	}

	queryParams, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid connection string query parameters: %w", err)
	}

	if logLevel := queryParams.Get("log_level"); logLevel != "" {
		logLevel = strings.ToLower(logLevel)
		switch logLevel {
		case "debug", "info", "warn", "error":
			config.LogLevel = logLevel
		default:
			return nil, fmt.Errorf("invalid log_level parameter: must be 'debug', 'info', 'warn', or 'error', got %q", logLevel)
		}
	}

	if config.MaxCachedPages, err = parseSize(queryParams, "max_cached_pages", config.MaxCachedPages); err != nil {
		return nil, err
	}
	if config.CatalogCacheSize, err = parseSize(queryParams, "catalog_cache", config.CatalogCacheSize); err != nil {
		return nil, err
	}

	config.TracePath = queryParams.Get("trace")

	return config, nil
}

func parseSize(queryParams url.Values, param string, defaultValue int) (int, error) {
	value := queryParams.Get(param)
	if value == "" {
		return defaultValue, nil
	}
	size, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: must be a positive integer, got %q", param, value)
	}
	if size <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: must be positive, got %d", param, size)
	}
	return size, nil
}

// GetZapLevel converts log level string to zap.Level
func (c *ConnectionConfig) GetZapLevel() zap.AtomicLevel {
	switch c.LogLevel {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
}

// OpenConnectionString opens storage configured by a connection string. The
// logger and the trace file are owned by the returned storage.
func OpenConnectionString(ctx context.Context, connStr string) (*Storage, error) {
	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	logConf := logging.DefaultConfig()
	logConf.Level = config.GetZapLevel()
	logger, err := logConf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	opts := []Option{
		WithPageCacheSize(config.MaxCachedPages),
		WithCatalogCacheSize(config.CatalogCacheSize),
	}
	var aTracer *Tracer
	if config.TracePath != "" {
		aTracer, err = NewTracer(config.TracePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTracer(aTracer))
	}

	s, err := Open(ctx, logger, config.FilePath, opts...)
	if err != nil {
		aTracer.Close()
		return nil, err
	}
	s.ownsTracer = aTracer != nil

	return s, nil
}
