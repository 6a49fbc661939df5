package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds configuration for the logger
type Config struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig writes info level to console only
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// ConsoleWriter returns human-friendly writer
func ConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// FileWriter returns a file writer with rotation
func FileWriter(cfg Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}
}

// New creates logger writing to console (stderr) and/or rotated file.
// Logger discards everything when neither is configured.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "Bad log level '%s'", cfg.Level)
		}
		level = parsed
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, ConsoleWriter(os.Stderr))
	}
	if cfg.FilePath != "" {
		writers = append(writers, FileWriter(cfg))
	}
	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}
	multi := io.MultiWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger().Level(level), nil
}
