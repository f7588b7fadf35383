package utils

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log *zap.Logger
)

// Default log files, relative to the working directory
const (
	LogFile      = "arbagent.log"
	ErrorLogFile = "arbagent-error.log"
)

// LogOptions selects the level, encoding and files of a logger. Empty file
// names keep the output on the console.
type LogOptions struct {
	Debug     bool
	Encoding  string // json or console, json when empty
	File      string
	ErrorFile string
}

// NewLogger builds a production zap logger for opts
func NewLogger(opts LogOptions) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if opts.Encoding != "" {
		config.Encoding = opts.Encoding
	}

	config.OutputPaths = []string{"stdout"}
	if opts.File != "" {
		config.OutputPaths = append(config.OutputPaths, opts.File)
	}
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.ErrorFile != "" {
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, opts.ErrorFile)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// InitLogger installs a console logger as the global instance unless one is
// already configured, and returns the global instance
func InitLogger(debug bool) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		logger, err := NewLogger(LogOptions{Debug: debug})
		if err != nil {
			panic(err)
		}
		log = logger
	}
	return log
}

// ConfigureLogger replaces the global logger, flushing the previous one
func ConfigureLogger(opts LogOptions) (*zap.Logger, error) {
	logger, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	prev := log
	log = logger
	mu.Unlock()

	if prev != nil {
		_ = prev.Sync()
	}
	return logger, nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return InitLogger(false)
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
}
