// Package logging provides config-driven categorized file-based logging for devconsole.
// Logs are written to .devconsole/logs/ with separate files per category.
// Logging is controlled by logging.debug_mode in .devconsole/config.yaml - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, shutdown
	CategoryCapture Category = "capture" // Interception, buffers, mount/replay
	CategoryInspect Category = "inspect" // Formatting, registry, invoke
	CategoryEval    Category = "eval"    // Evaluation bridge and evaluators
	CategoryBrowser Category = "browser" // Browser host, CDP console events
	CategoryUI      Category = "ui"      // Terminal presentation layer
)

// Categories lists every category.
var Categories = []Category{CategoryBoot, CategoryCapture, CategoryInspect, CategoryEval, CategoryBrowser, CategoryUI}

// loggingConfig mirrors config.LoggingConfig to avoid an import cycle.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// StructuredLogEntry is one JSON log line.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"`
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".devconsole", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		configMu.Lock()
		config.DebugMode = false
		configMu.Unlock()
	}

	if !IsDebugMode() {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== devconsole logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Log level: %s", config.Level)
	for _, cat := range Categories {
		boot.Debug("Category '%s': %v", cat, IsCategoryEnabled(cat))
	}
	return nil
}

// loadConfig reads the logging section of .devconsole/config.yaml
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	data, err := os.ReadFile(filepath.Join(workspace, ".devconsole", "config.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		data = nil
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config = cf.Logging
	logLevel = parseLevel(config.Level)
	if debugFromEnv() {
		config.DebugMode = true
	}
	return nil
}

func debugFromEnv() bool {
	v := os.Getenv("DEVCONSOLE_DEBUG")
	return v == "1" || v == "true"
}

func parseLevel(s string) int {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	enabled, exists := config.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
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

func (l *Logger) write(level string, min int, format string, args []any) {
	if l.logger == nil || logLevel > min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if IsJSONFormat() {
		l.logJSON(level, msg, nil)
		return
	}
	l.logger.Printf("[%s] %s", levelTag(level), msg)
}

func levelTag(level string) string {
	switch level {
	case "debug":
		return "DEBUG"
	case "warn":
		return "WARN"
	case "error":
		return "ERROR"
	}
	return "INFO"
}

func (l *Logger) logJSON(level, msg string, fields map[string]any) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
		Fields:    fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", levelTag(level), msg)
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...any) { l.write("debug", LevelDebug, format, args) }

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...any) { l.write("info", LevelInfo, format, args) }

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...any) { l.write("warn", LevelWarn, format, args) }

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...any) { l.write("error", LevelError, format, args) }

// StructuredLog writes a fully structured log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]any) {
	if l.logger == nil {
		return
	}
	if IsJSONFormat() {
		l.logJSON(level, msg, fields)
		return
	}
	l.logger.Printf("[%s] %s | fields=%v", levelTag(level), msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.JSONFormat
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures an operation and logs it when stopped.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing op in category.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %v", t.op, elapsed)
	return elapsed
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...any) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...any) { Get(CategoryBoot).Debug(format, args...) }

// BootError logs error to the boot category
func BootError(format string, args ...any) { Get(CategoryBoot).Error(format, args...) }

// Capture logs to the capture category
func Capture(format string, args ...any) { Get(CategoryCapture).Info(format, args...) }

// CaptureDebug logs debug to the capture category
func CaptureDebug(format string, args ...any) { Get(CategoryCapture).Debug(format, args...) }

// Inspect logs to the inspect category
func Inspect(format string, args ...any) { Get(CategoryInspect).Info(format, args...) }

// InspectWarn logs warning to the inspect category
func InspectWarn(format string, args ...any) { Get(CategoryInspect).Warn(format, args...) }

// Eval logs to the eval category
func Eval(format string, args ...any) { Get(CategoryEval).Info(format, args...) }

// EvalDebug logs debug to the eval category
func EvalDebug(format string, args ...any) { Get(CategoryEval).Debug(format, args...) }

// EvalError logs error to the eval category
func EvalError(format string, args ...any) { Get(CategoryEval).Error(format, args...) }

// Browser logs to the browser category
func Browser(format string, args ...any) { Get(CategoryBrowser).Info(format, args...) }

// BrowserDebug logs debug to the browser category
func BrowserDebug(format string, args ...any) { Get(CategoryBrowser).Debug(format, args...) }

// BrowserWarn logs warning to the browser category
func BrowserWarn(format string, args ...any) { Get(CategoryBrowser).Warn(format, args...) }

// BrowserError logs error to the browser category
func BrowserError(format string, args ...any) { Get(CategoryBrowser).Error(format, args...) }

// UI logs to the ui category
func UI(format string, args ...any) { Get(CategoryUI).Info(format, args...) }

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...any) { Get(CategoryUI).Debug(format, args...) }
