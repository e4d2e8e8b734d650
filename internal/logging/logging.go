// Package logging holds the process-wide zap logger. Pipeline stages log
// through Named so every line carries its stage (catalog, select, provision).
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.Logger

	// Sugar is the sugared logger for convenience
	Sugar *zap.SugaredLogger

	mu      sync.RWMutex
	logFile *os.File
)

// Config contains logging configuration
type Config struct {
	// Level is the minimum log level
	Level string `json:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`

	// Format is console (coloured levels) or json (for CI)
	Format string `json:"format" mapstructure:"format" validate:"omitempty,oneof=json console"`

	// Output is stdout, stderr or a file path
	Output string `json:"output" mapstructure:"output"`

	// Development adds stack traces to errors
	Development bool `json:"development" mapstructure:"development"`
}

// DefaultConfig logs info and above to stderr
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// Initialize replaces the global logger according to cfg
func Initialize(cfg Config) error {
	var (
		w    io.Writer
		file *os.File
	)
	switch cfg.Output {
	case "stdout":
		w = os.Stdout
	case "", "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w, file = f, f
	}

	install(build(cfg, w), file)
	return nil
}

// InitializeWriter replaces the global logger with one writing to w
func InitializeWriter(cfg Config, w io.Writer) {
	install(build(cfg, w), nil)
}

func build(cfg Config, w io.Writer) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	if cfg.Development {
		return zap.New(core, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core)
}

func install(l *zap.Logger, file *os.File) {
	mu.Lock()
	defer mu.Unlock()

	if Logger != nil {
		_ = Logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	Logger = l
	Sugar = l.Sugar()
	logFile = file
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// Sync flushes the logger
func Sync() {
	_ = current().Sync()
}

// Named returns a child logger for a pipeline stage
func Named(stage string) *zap.Logger {
	return current().Named(stage)
}

// Debug logs at debug level
func Debug(msg string, fields ...zap.Field) {
	current().Debug(msg, fields...)
}

// Info logs at info level
func Info(msg string, fields ...zap.Field) {
	current().Info(msg, fields...)
}

// Warn logs at warn level
func Warn(msg string, fields ...zap.Field) {
	current().Warn(msg, fields...)
}

// Error logs at error level
func Error(msg string, fields ...zap.Field) {
	current().Error(msg, fields...)
}

func init() {
	InitializeWriter(DefaultConfig(), os.Stderr)
}
