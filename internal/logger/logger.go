package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed diagnostics (device probing, sample flow)
	DEBUG Level = iota
	// INFO level for lifecycle messages
	INFO
	// WARN level for recoverable conditions (overflow drops, rate mismatch)
	WARN
	// ERROR level for failures
	ERROR
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled messages to a daily-rotated file, or to stderr
// when no log directory is configured. Safe for concurrent use; the
// capture path only logs rate-limited warnings, so the internal mutex is
// never held long enough to matter to the realtime threads.
type Logger struct {
	mu            sync.Mutex
	level         Level
	logDir        string
	retentionDays int
	file          *os.File
	sink          *log.Logger
	currentDay    string
}

// Config holds logger configuration
type Config struct {
	LogDir        string // empty means log to stderr
	Level         Level
	RetentionDays int
}

// DefaultConfig returns the default logger configuration: stderr, INFO.
func DefaultConfig() Config {
	return Config{Level: INFO, RetentionDays: 7}
}

// New creates a logger. With an empty LogDir the logger writes to stderr
// and never touches the filesystem.
func New(config Config) (*Logger, error) {
	l := &Logger{
		level:         config.Level,
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
	}
	if l.logDir == "" {
		l.sink = log.New(os.Stderr, "", log.LstdFlags)
		return l, nil
	}
	if err := l.rotate(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// rotate opens the current day's log file, replacing the previous one.
// Caller must hold mu (or be the constructor).
func (l *Logger) rotate() error {
	today := time.Now().Format("20060102")
	if l.currentDay == today && l.file != nil {
		return nil
	}
	if l.file != nil {
		l.file.Close()
	}
	if err := os.MkdirAll(l.logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(l.logDir, fmt.Sprintf("audiorec-%s.log", today))
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = file
	l.sink = log.New(file, "", log.LstdFlags)
	l.currentDay = today
	l.sweepOldLogs()
	return nil
}

// sweepOldLogs deletes log files older than the retention window.
func (l *Logger) sweepOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(l.logDir, entry.Name()))
		}
	}
}

func (l *Logger) write(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || l.sink == nil {
		return
	}
	if l.logDir != "" {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	l.sink.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) { l.write(DEBUG, format, v...) }

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) { l.write(INFO, format, v...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) { l.write(WARN, format, v...) }

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) { l.write(ERROR, format, v...) }

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level.
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.sink = nil
		return err
	}
	return nil
}
