// Package logging provides categorized file-based logging for armature.
// Logs are written to the configured directory with one file per category
// and a date prefix. When logging is disabled every call is a no-op, so
// hot paths (the 60 Hz control loops) can log unconditionally.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category identifies a subsystem log stream.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategorySequencer Category = "sequencer" // Run lifecycle, state transitions
	CategoryPrimitive Category = "primitive" // Motion primitive control loops
	CategoryRouter    Category = "router"    // Step dispatch decisions
	CategoryVerify    Category = "verify"    // Success criteria checking
	CategoryAnalytics Category = "analytics" // Per-step run recording
	CategoryRobot     Category = "robot"     // Robot handle / mock hardware
	CategoryCatalog   Category = "catalog"   // Assembly catalog, file watching
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls logger behavior. Zero value disables logging entirely.
type Options struct {
	Enabled    bool
	Dir        string          // Directory for log files
	Level      string          // debug, info, warn, error
	Categories map[string]bool // nil = all categories enabled
}

// Logger writes to a single category's log file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	opts     Options
	logLevel = LevelInfo
)

// Initialize configures the logging system. Call once at startup; calling
// again replaces the configuration and closes any open files.
func Initialize(o Options) error {
	CloseAll()

	mu.Lock()
	defer mu.Unlock()
	opts = o

	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	if !o.Enabled {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logging enabled but no directory configured")
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// IsCategoryEnabled reports whether a category will produce output.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !opts.Enabled {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. Returns a no-op
// logger if the category is disabled or its log file cannot be opened.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs at error level. Always written if the file is open.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions. No-ops when the category is disabled.

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// Sequencer logs to the sequencer category.
func Sequencer(format string, args ...interface{}) { Get(CategorySequencer).Info(format, args...) }

// SequencerDebug logs debug to the sequencer category.
func SequencerDebug(format string, args ...interface{}) {
	Get(CategorySequencer).Debug(format, args...)
}

// Primitive logs to the primitive category.
func Primitive(format string, args ...interface{}) { Get(CategoryPrimitive).Info(format, args...) }

// PrimitiveDebug logs debug to the primitive category.
func PrimitiveDebug(format string, args ...interface{}) {
	Get(CategoryPrimitive).Debug(format, args...)
}

// PrimitiveWarn logs warning to the primitive category.
func PrimitiveWarn(format string, args ...interface{}) {
	Get(CategoryPrimitive).Warn(format, args...)
}

// Router logs to the router category.
func Router(format string, args ...interface{}) { Get(CategoryRouter).Info(format, args...) }

// RouterDebug logs debug to the router category.
func RouterDebug(format string, args ...interface{}) { Get(CategoryRouter).Debug(format, args...) }

// Verify logs to the verify category.
func Verify(format string, args ...interface{}) { Get(CategoryVerify).Info(format, args...) }

// VerifyDebug logs debug to the verify category.
func VerifyDebug(format string, args ...interface{}) { Get(CategoryVerify).Debug(format, args...) }

// Analytics logs to the analytics category.
func Analytics(format string, args ...interface{}) { Get(CategoryAnalytics).Info(format, args...) }

// AnalyticsWarn logs warning to the analytics category.
func AnalyticsWarn(format string, args ...interface{}) {
	Get(CategoryAnalytics).Warn(format, args...)
}

// Robot logs to the robot category.
func Robot(format string, args ...interface{}) { Get(CategoryRobot).Info(format, args...) }

// Catalog logs to the catalog category.
func Catalog(format string, args ...interface{}) { Get(CategoryCatalog).Info(format, args...) }

// CatalogWarn logs warning to the catalog category.
func CatalogWarn(format string, args ...interface{}) { Get(CategoryCatalog).Warn(format, args...) }

// Timer measures an operation's duration and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
