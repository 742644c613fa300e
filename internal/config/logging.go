package config

// LoggingConfig configures the categorized file logger. It is read again by
// internal/logging, which cannot import this package.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`          // JSON lines instead of text
	DebugMode  bool            `yaml:"debug_mode"`           // master toggle, false = no file logs
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false.
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
