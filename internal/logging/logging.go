package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
	levelMu      sync.RWMutex

	colorTags bool
	rotator   *lumberjack.Logger
	outputMu  sync.Mutex
)

// ANSI colors for level tags on a terminal.
var tagColors = map[string]string{
	"DEBUG": "\033[36m",
	"INFO":  "\033[32m",
	"WARN":  "\033[33m",
	"ERROR": "\033[31m",
}

// Options configures log output beyond the level.
type Options struct {
	// File, when set, receives a copy of all output and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		lvl := ParseLevel(os.Getenv("LOG_LEVEL"))
		switch strings.ToLower(os.Getenv("DEBUG")) {
		case "1", "true", "yes", "on":
			lvl = LevelDebug
		}
		levelMu.Lock()
		currentLevel = lvl
		levelMu.Unlock()
		colorTags = term.IsTerminal(int(os.Stderr.Fd()))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetLevel overrides the level derived from the environment.
func SetLevel(l LogLevel) {
	initLevel()
	levelMu.Lock()
	currentLevel = l
	levelMu.Unlock()
}

// Configure applies file output settings. It may be called again to change
// or drop the log file.
func Configure(opts Options) error {
	initLevel()
	outputMu.Lock()
	defer outputMu.Unlock()

	if rotator != nil {
		if err := rotator.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		rotator = nil
	}

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	rotator = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	// ANSI codes would end up in the file.
	colorTags = false
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	initLevel()
	outputMu.Lock()
	defer outputMu.Unlock()
	colorTags = false
	log.SetOutput(w)
}

// Close flushes and closes the rotating log file, if any.
func Close() error {
	outputMu.Lock()
	defer outputMu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	log.SetOutput(os.Stderr)
	return err
}

func tag(name string) string {
	if colorTags {
		return tagColors[name] + "[" + name + "]\033[0m "
	}
	return "[" + name + "] "
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	if GetLevel() <= LevelDebug {
		log.Printf(tag("DEBUG")+format, args...)
	}
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if GetLevel() <= LevelInfo {
		log.Printf(tag("INFO")+format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if GetLevel() <= LevelWarn {
		log.Printf(tag("WARN")+format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if GetLevel() <= LevelError {
		log.Printf(tag("ERROR")+format, args...)
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
