// Package config provides centralized configuration for the record
// parser. Settings load from environment variables with defaults and are
// validated on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all settings for the parser and its surrounding service.
type Config struct {
	Parser  ParserConfig
	Runs    RunConfig
	Logging LoggingConfig
}

// ParserConfig controls one parse run. It is a value type, created once
// per run and never mutated; the engine treats zero fields as "use the
// default" via WithDefaults.
type ParserConfig struct {
	// BufferSizeBytes is the size of each chunk read (default: 8192).
	// Validate enforces 1024-65536; the engine itself accepts any
	// positive size, range policy belongs to the caller.
	BufferSizeBytes int `env:"PARSER_BUFFER_SIZE" default:"8192"`

	// BatchSize is the maximum records per batch event (default: 100).
	BatchSize int `env:"PARSER_BATCH_SIZE" default:"100"`

	// ProgressRecordInterval emits a progress event after this many
	// records since the last one (default: 5000).
	ProgressRecordInterval int `env:"PARSER_PROGRESS_RECORD_INTERVAL" default:"5000"`

	// ProgressInterval emits a progress event after this much time since
	// the last one (default: 1s).
	ProgressInterval time.Duration `env:"PARSER_PROGRESS_INTERVAL" default:"1s"`

	// EmitBatchEvents toggles batch events (default: true).
	EmitBatchEvents bool `env:"PARSER_EMIT_BATCH_EVENTS" default:"true"`

	// EmitProgressEvents toggles progress events (default: true).
	EmitProgressEvents bool `env:"PARSER_EMIT_PROGRESS_EVENTS" default:"true"`
}

// RunConfig controls run scheduling at the service boundary.
type RunConfig struct {
	// MaxConcurrent is the maximum number of parallel runs (default: 5).
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s).
	MaxWaitTime time.Duration `env:"RUN_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single run; 0 disables it (default: 10m). A
	// timeout is composed as external cancellation, the engine has no
	// timeout of its own.
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DefaultParserConfig returns a ParserConfig with every field at its
// documented default.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		BufferSizeBytes:        8192,
		BatchSize:              100,
		ProgressRecordInterval: 5000,
		ProgressInterval:       time.Second,
		EmitBatchEvents:        true,
		EmitProgressEvents:     true,
	}
}

// WithDefaults returns a copy with non-positive numeric fields replaced
// by their defaults. The emit toggles are left as-is.
func (c ParserConfig) WithDefaults() ParserConfig {
	def := DefaultParserConfig()
	if c.BufferSizeBytes <= 0 {
		c.BufferSizeBytes = def.BufferSizeBytes
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.ProgressRecordInterval <= 0 {
		c.ProgressRecordInterval = def.ProgressRecordInterval
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = def.ProgressInterval
	}
	return c
}
