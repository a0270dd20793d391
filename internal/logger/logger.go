package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents the severity of a log message
type Level uint8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelPrefixes = map[Level]string{
	DebugLevel: "[DEBUG] ",
	InfoLevel:  "[INFO]  ",
	WarnLevel:  "[WARN]  ",
	ErrorLevel: "[ERROR] ",
	FatalLevel: "[FATAL] ",
}

// ParseLevel converts a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// DefaultLogger implements the Logger interface
type DefaultLogger struct {
	logger *log.Logger
	file   *os.File
	level  atomic.Uint32
	exit   func(int)
}

// New creates a logger that writes to a timestamped file under dir and to stdout
func New(appName, dir string) (*DefaultLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15_0")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", appName, timestamp))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := newLogger(io.MultiWriter(file, os.Stdout))
	l.file = file
	return l, nil
}

// NewWriter creates a logger that writes only to w
func NewWriter(w io.Writer) *DefaultLogger {
	return newLogger(w)
}

func newLogger(w io.Writer) *DefaultLogger {
	l := &DefaultLogger{
		logger: log.New(w, "", log.Ldate|log.Ltime|log.Lshortfile),
		exit:   os.Exit,
	}
	l.level.Store(uint32(InfoLevel))
	return l
}

func (l *DefaultLogger) log(level Level, format string, v ...interface{}) {
	if level >= Level(l.level.Load()) {
		msg := fmt.Sprintf(format, v...)
		l.logger.Output(3, levelPrefixes[level]+msg)
	}
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

func (l *DefaultLogger) Debug(format string, v ...interface{}) {
	l.log(DebugLevel, format, v...)
}

func (l *DefaultLogger) Info(format string, v ...interface{}) {
	l.log(InfoLevel, format, v...)
}

func (l *DefaultLogger) Warn(format string, v ...interface{}) {
	l.log(WarnLevel, format, v...)
}

func (l *DefaultLogger) Error(format string, v ...interface{}) {
	l.log(ErrorLevel, format, v...)
}

func (l *DefaultLogger) Fatal(format string, v ...interface{}) {
	l.log(FatalLevel, format, v...)
	l.exit(1)
}

// Close closes the log file, if any.
func (l *DefaultLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
