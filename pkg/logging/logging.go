package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// slogLevelCritical sits one step above slog.LevelError.
const slogLevelCritical = slog.Level(12)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelCritical:
		return slogLevelCritical
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// LevelFromVerbosity maps a repeated -v count onto a level. CRITICAL is always
// shown; each -v lowers the threshold by one level, and a single -v (the
// default) shows errors.
func LevelFromVerbosity(verbosity int) LogLevel {
	level := LevelCritical - LogLevel(verbosity)
	if level < LevelDebug {
		return LevelDebug
	}
	if level > LevelCritical {
		return LevelCritical
	}
	return level
}

// LogEntry is a structured log entry. Sinks that want entries rather than
// formatted text can subscribe with SetEntryHook.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Subsystem string
	Message   string
	Err       error
}

var (
	defaultLogger atomic.Pointer[slog.Logger]
	entryHook     atomic.Pointer[func(LogEntry)]
)

// InitForCLI initializes the logging system. Every record at or above
// filterLevel is written to all outputs.
func InitForCLI(filterLevel LogLevel, outputs ...io.Writer) {
	var output io.Writer = os.Stderr
	switch len(outputs) {
	case 0:
	case 1:
		output = outputs[0]
	default:
		output = io.MultiWriter(outputs...)
	}

	opts := &slog.HandlerOptions{
		Level: filterLevel.SlogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= slogLevelCritical {
					return slog.String(slog.LevelKey, LevelCritical.String())
				}
			}
			return a
		},
	}

	logger := slog.New(slog.NewTextHandler(output, opts))
	defaultLogger.Store(logger)
	slog.SetDefault(logger)
}

// SetEntryHook registers a function that receives every enabled entry after
// it was written. Passing nil removes the hook.
func SetEntryHook(hook func(LogEntry)) {
	if hook == nil {
		entryHook.Store(nil)
		return
	}
	entryHook.Store(&hook)
}

// Enabled reports whether entries at level would be written.
func Enabled(level LogLevel) bool {
	logger := defaultLogger.Load()
	return logger != nil && logger.Enabled(context.Background(), level.SlogLevel())
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	logger := defaultLogger.Load()
	if logger == nil || !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	slogAttrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		slogAttrs = append(slogAttrs, slog.String("error", err.Error()))
	}

	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, slogAttrs...)

	if hook := entryHook.Load(); hook != nil {
		(*hook)(LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Subsystem: subsystem,
			Message:   msg,
			Err:       err,
		})
	}
}

// Log writes a message at an explicit level. Use it where the level is chosen
// per call instead of by the call site.
func Log(level LogLevel, subsystem string, messageFmt string, args ...interface{}) {
	logInternal(level, subsystem, nil, messageFmt, args...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// Critical logs a fatal condition right before it is propagated.
func Critical(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelCritical, subsystem, err, messageFmt, args...)
}
