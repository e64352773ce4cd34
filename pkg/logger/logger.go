// Package logger provides structured logging with rotation support.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	instance *Logger
	once     sync.Once
)

// Logger wraps a zap logger. Until Initialize is called every log call is
// discarded, so components may log unconditionally.
type Logger struct {
	mu        sync.RWMutex
	zapLogger *zap.Logger
	sugar     *zap.SugaredLogger
	logFile   *os.File
	logPath   string
	level     zap.AtomicLevel
}

// Config holds logger configuration.
type Config struct {
	LogPath    string // Path to log file, empty disables the file core
	Level      string // debug, info, warn, error
	MaxSize    int64  // Rotation threshold in bytes (default 10MB)
	MaxBackups int    // Number of rotated files to keep (default 5)
	Console    bool   // Also write to stdout
}

// GetInstance returns the singleton logger instance.
func GetInstance() *Logger {
	once.Do(func() {
		instance = &Logger{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	})
	return instance
}

// ParseLevel maps a config string to a zap level. Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize sets up the logger with the given configuration.
func (l *Logger) Initialize(config Config) error {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 5
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = zap.NewAtomicLevelAt(ParseLevel(config.Level))

	if config.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogPath), 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(config.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		l.logFile = file
		l.logPath = config.LogPath

		if err := l.rotate(config.MaxSize, config.MaxBackups); err != nil {
			return err
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var cores []zapcore.Core
	if l.logFile != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(l.logFile), l.level))
	}
	if config.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), l.level))
	}

	l.zapLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	l.sugar = l.zapLogger.Sugar()

	return nil
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.level.SetLevel(ParseLevel(level))
}

// Level returns the current log level name.
func (l *Logger) Level() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level.Level().String()
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.zapLogger != nil {
		_ = l.zapLogger.Sync()
	}
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

func (l *Logger) z() *zap.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zapLogger
}

func (l *Logger) s() *zap.SugaredLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sugar
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if z := l.z(); z != nil {
		z.Debug(msg, fields...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	if z := l.z(); z != nil {
		z.Info(msg, fields...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if z := l.z(); z != nil {
		z.Warn(msg, fields...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	if z := l.z(); z != nil {
		z.Error(msg, fields...)
	}
}

// Infof logs a formatted info message.
func (l *Logger) Infof(template string, args ...interface{}) {
	if s := l.s(); s != nil {
		s.Infof(template, args...)
	}
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(template string, args ...interface{}) {
	if s := l.s(); s != nil {
		s.Warnf(template, args...)
	}
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(template string, args ...interface{}) {
	if s := l.s(); s != nil {
		s.Errorf(template, args...)
	}
}

// LogBatch logs the outcome of one candidate batch merged into a session.
func (l *Logger) LogBatch(sessionID, source string, offered, accepted int, err error) {
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("source", source),
		zap.Int("offered", offered),
		zap.Int("accepted", accepted),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		l.Warn("batch partially rejected", fields...)
		return
	}
	l.Info("batch merged", fields...)
}

// LogSend logs a finished send reported by the transfer collaborator.
func (l *Logger) LogSend(jobID, path string, size int64, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("job", jobID),
		zap.String("path", path),
		zap.Int64("size_bytes", size),
		zap.Duration("duration", duration),
	}

	if err != nil {
		fields = append(fields, zap.Error(err))
		l.Error("send failed", fields...)
		return
	}
	l.Info("send completed", fields...)
}

// rotate moves an oversized log file aside before the cores are built.
// Caller holds l.mu.
func (l *Logger) rotate(maxSize int64, maxBackups int) error {
	if l.logFile == nil || l.logPath == "" {
		return nil
	}

	info, err := l.logFile.Stat()
	if err != nil {
		return err
	}
	if info.Size() < maxSize {
		return nil
	}

	l.logFile.Close()

	for i := maxBackups - 1; i > 0; i-- {
		os.Rename(fmt.Sprintf("%s.%d", l.logPath, i), fmt.Sprintf("%s.%d", l.logPath, i+1))
	}
	os.Rename(l.logPath, l.logPath+".1")

	l.logFile, err = os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	return err
}
