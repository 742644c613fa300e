// Package config loads the devconsole configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"devconsole/internal/console"
	"devconsole/internal/evaluate"
	"devconsole/internal/inspect"

	"gopkg.in/yaml.v3"
)

// Dir is the per-workspace directory holding config and logs.
const Dir = ".devconsole"

// Config holds all devconsole configuration.
type Config struct {
	Console ConsoleConfig   `yaml:"console"`
	Inspect inspect.Options `yaml:"inspect"`
	Eval    EvalConfig      `yaml:"eval"`
	Browser BrowserConfig   `yaml:"browser"`
	Logging LoggingConfig   `yaml:"logging"`
}

// ConsoleConfig sizes the capture buffers.
type ConsoleConfig struct {
	PreBufferSize  int `yaml:"pre_buffer_size"`
	PostBufferSize int `yaml:"post_buffer_size"`
	HistorySize    int `yaml:"history_size"`
}

// EvalConfig configures the Go evaluator.
type EvalConfig struct {
	Timeout string   `yaml:"timeout"`
	Imports []string `yaml:"imports"`
}

// BrowserConfig configures page attachment.
type BrowserConfig struct {
	// DebuggerURL is a DevTools websocket URL. Empty launches a browser.
	DebuggerURL string `yaml:"debugger_url"`
	Headless    bool   `yaml:"headless"`
	// Bin overrides the browser binary used by the launcher.
	Bin     string `yaml:"bin"`
	Timeout string `yaml:"timeout"`
	// EventThrottle drops repeated identical console events inside the window.
	EventThrottle string `yaml:"event_throttle"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Console: ConsoleConfig{
			PreBufferSize:  console.DefaultPreBufferSize,
			PostBufferSize: console.DefaultPostBufferSize,
			HistorySize:    evaluate.DefaultHistorySize,
		},
		Inspect: inspect.DefaultOptions(),
		Eval: EvalConfig{
			Timeout: "10s",
			Imports: append([]string(nil), evaluate.DefaultImports...),
		},
		Browser: BrowserConfig{
			Headless:      true,
			Timeout:       "30s",
			EventThrottle: "100ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns <workspace>/.devconsole/config.yaml.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, Dir, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("DEVCONSOLE_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if v := os.Getenv("DEVCONSOLE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := os.Getenv("DEVCONSOLE_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// Validate checks sizes and durations.
func (c *Config) Validate() error {
	sizes := []struct {
		name string
		n    int
	}{
		{"console.pre_buffer_size", c.Console.PreBufferSize},
		{"console.post_buffer_size", c.Console.PostBufferSize},
		{"console.history_size", c.Console.HistorySize},
		{"inspect.max_properties", c.Inspect.MaxProperties},
		{"inspect.preview_length", c.Inspect.PreviewLength},
		{"inspect.max_depth", c.Inspect.MaxDepth},
	}
	for _, s := range sizes {
		if s.n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", s.name, s.n)
		}
	}

	durations := []struct {
		name, v string
	}{
		{"eval.timeout", c.Eval.Timeout},
		{"browser.timeout", c.Browser.Timeout},
		{"browser.event_throttle", c.Browser.EventThrottle},
	}
	for _, d := range durations {
		if d.v == "" {
			continue
		}
		if _, err := time.ParseDuration(d.v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.v, err)
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	if u := c.Browser.DebuggerURL; u != "" && !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") && !strings.HasPrefix(u, "http://") {
		return fmt.Errorf("invalid browser.debugger_url: %s", u)
	}
	return nil
}

// GetEvalTimeout returns the evaluation timeout; zero means none.
func (c *Config) GetEvalTimeout() time.Duration {
	return parseDuration(c.Eval.Timeout, 0)
}

// GetBrowserTimeout returns the browser connect timeout.
func (c *Config) GetBrowserTimeout() time.Duration {
	return parseDuration(c.Browser.Timeout, 30*time.Second)
}

// GetEventThrottle returns the console event throttle window.
func (c *Config) GetEventThrottle() time.Duration {
	return parseDuration(c.Browser.EventThrottle, 100*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ConsoleOptions builds console options from the config.
func (c *Config) ConsoleOptions() console.Options {
	return console.Options{
		PreBufferSize:  c.Console.PreBufferSize,
		PostBufferSize: c.Console.PostBufferSize,
		Inspect:        c.Inspect,
	}
}

// YaegiOptions builds evaluator options; the caller fills in the writers
// and the console.
func (c *Config) YaegiOptions() evaluate.YaegiOptions {
	return evaluate.YaegiOptions{
		Imports: c.Eval.Imports,
		Timeout: c.GetEvalTimeout(),
	}
}
