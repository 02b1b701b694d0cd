// Package logging configures the process-wide structured logger used by the
// training, collection and prediction components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// ParseLevel maps a configured level name to a LogLevel. Unknown names are INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	OutputFile string    // Path to log file (empty = console only)
	MaxSize    int64     // Max size in bytes before rotation (default: 10MB)
	MaxBackups int       // Number of old log files to keep (default: 3)
	JSONFormat bool      // Use JSON format
	AddSource  bool      // Add source file and line number
	Console    io.Writer // Console destination (default: stderr)
}

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Initialize creates the global logger and installs it as the slog default,
// so components that log through slog.Default pick it up.
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		logger, err := NewLogger(config)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		globalLogger = logger
		slog.SetDefault(logger.slog)
	})
	return initErr
}

// NewLogger creates a new logger instance with the given configuration
func NewLogger(config Config) (*Logger, error) {
	// Set defaults
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}

	logger := &Logger{
		config: config,
	}

	// stdout carries command output, so logs go to stderr
	console := config.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{console}

	// Add file output if specified
	if config.OutputFile != "" {
		// Ensure directory exists
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}

		// Check if rotation needed
		if err := logger.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}

		// Open log file
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		logger.file = file
		writers = append(writers, file)
	}

	// Create multi-writer
	multiWriter := io.MultiWriter(writers...)

	// Configure slog handler
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     logger.toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	if config.JSONFormat {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	logger.slog = slog.New(handler)
	return logger, nil
}

// rotateIfNeeded checks if log file needs rotation and performs it
func (l *Logger) rotateIfNeeded() error {
	if l.config.OutputFile == "" {
		return nil
	}

	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil // File doesn't exist yet
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < l.config.MaxSize {
		return nil // No rotation needed
	}

	// Close existing file if open
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	// Rotate existing backup files
	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath) // Ignore error, file might not exist
		}
	}

	// Rotate current file to .1
	backupPath := fmt.Sprintf("%s.1", l.config.OutputFile)
	if err := os.Rename(l.config.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return nil
}

// toSlogLevel converts our LogLevel to slog.Level
func (l *Logger) toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	case FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message (only in debug mode)
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// Slog returns the underlying slog.Logger
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// With returns a new logger with additional context
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
		file:   l.file,
	}
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Global logging functions for convenience

// Debug logs a debug message using the global logger
func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Debug(msg, args...)
	} else {
		slog.Debug(msg, args...)
	}
}

// Info logs an info message using the global logger
func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Info(msg, args...)
	} else {
		slog.Info(msg, args...)
	}
}

// Warn logs a warning message using the global logger
func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Warn(msg, args...)
	} else {
		slog.Warn(msg, args...)
	}
}

// Error logs an error message using the global logger
func Error(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Error(msg, args...)
	} else {
		slog.Error(msg, args...)
	}
}

// Component returns a slog logger tagged with a component name
func Component(name string) *slog.Logger {
	if globalLogger != nil {
		return globalLogger.slog.With("component", name)
	}
	return slog.Default().With("component", name)
}

// Close closes the global logger
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}

// DefaultConfig returns the configuration for an interactive run. Logs go to
// the console only unless logFile is set.
func DefaultConfig(debugMode bool, logFile string) Config {
	level := INFO
	if debugMode {
		level = DEBUG
	}

	return Config{
		Level:      level,
		OutputFile: logFile,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxBackups: 3,
		AddSource:  debugMode,
	}
}

// TimestampedFile returns a per-run log file path under dir
func TimestampedFile(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("ownerscope_%s.log", timestamp))
}
