// Package ui is the terminal front end of the console: a filtered log view
// over the captured entries and an evaluation prompt.
package ui

import (
	"os"
	"strconv"
	"strings"

	"devconsole/internal/capture"
	"devconsole/internal/inspect"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode
	LightForeground = lipgloss.Color("#101F38")
	LightMuted      = lipgloss.Color("#6a737d")
	LightBorder     = lipgloss.Color("#dce0e5")
	LightAccent     = lipgloss.Color("#0366d6")

	// Dark mode
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkMuted      = lipgloss.Color("#8b949e")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkAccent     = lipgloss.Color("#8BC34A")

	// Same in both modes
	Destructive = lipgloss.Color("#e53935")
	Warning     = lipgloss.Color("#FFC107")
	Info        = lipgloss.Color("#2196F3")
	Debug       = lipgloss.Color("#9C27B0")
	Success     = lipgloss.Color("#4CAF50")
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Accent     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{Foreground: LightForeground, Muted: LightMuted, Border: LightBorder, Accent: LightAccent}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{Foreground: DarkForeground, Muted: DarkMuted, Border: DarkBorder, Accent: DarkAccent, IsDark: true}
}

// DetectTheme picks a theme from COLORFGBG or DEVCONSOLE_DARK_MODE.
func DetectTheme() Theme {
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && (bg >= 0 && bg <= 6 || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("DEVCONSOLE_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds the styled components.
type Styles struct {
	Theme Theme

	Title     lipgloss.Style
	Muted     lipgloss.Style
	Status    lipgloss.Style
	ErrStatus lipgloss.Style
	Prompt    lipgloss.Style
	Badge     lipgloss.Style
	BadgeOff  lipgloss.Style
	Timestamp lipgloss.Style
	Marker    lipgloss.Style
	Result    lipgloss.Style

	kinds  map[capture.Kind]lipgloss.Style
	tokens map[inspect.TokenClass]lipgloss.Style
}

// NewStyles builds the styles for a theme.
func NewStyles(theme Theme) Styles {
	base := lipgloss.NewStyle().Foreground(theme.Foreground)
	s := Styles{
		Theme:     theme,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Muted:     lipgloss.NewStyle().Foreground(theme.Muted),
		Status:    lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
		ErrStatus: lipgloss.NewStyle().Foreground(Destructive),
		Prompt: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Badge:     lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		BadgeOff:  lipgloss.NewStyle().Foreground(theme.Muted).Strikethrough(true),
		Timestamp: lipgloss.NewStyle().Foreground(theme.Muted),
		Marker:    lipgloss.NewStyle().Foreground(Info).Bold(true),
		Result:    lipgloss.NewStyle().Foreground(Success),
		kinds: map[capture.Kind]lipgloss.Style{
			capture.KindLog:    base,
			capture.KindWarn:   lipgloss.NewStyle().Foreground(Warning),
			capture.KindError:  lipgloss.NewStyle().Foreground(Destructive),
			capture.KindInfo:   lipgloss.NewStyle().Foreground(Info),
			capture.KindDebug:  lipgloss.NewStyle().Foreground(Debug),
			capture.KindResult: lipgloss.NewStyle().Foreground(Success),
		},
		tokens: map[inspect.TokenClass]lipgloss.Style{
			inspect.TokenKey:      lipgloss.NewStyle().Foreground(Debug),
			inspect.TokenString:   lipgloss.NewStyle().Foreground(Success),
			inspect.TokenNumber:   lipgloss.NewStyle().Foreground(Info),
			inspect.TokenBoolean:  lipgloss.NewStyle().Foreground(Warning),
			inspect.TokenNull:     lipgloss.NewStyle().Foreground(theme.Muted),
			inspect.TokenBracket:  lipgloss.NewStyle().Foreground(theme.Muted),
			inspect.TokenFunction: lipgloss.NewStyle().Foreground(Info).Italic(true),
			inspect.TokenAccessor: lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
			inspect.TokenPlain:    base,
		},
	}
	return s
}

// Kind returns the style for an entry kind.
func (s Styles) Kind(k capture.Kind) lipgloss.Style {
	if st, ok := s.kinds[k]; ok {
		return st
	}
	return s.kinds[capture.KindLog]
}

// Token returns the style for a token class.
func (s Styles) Token(c inspect.TokenClass) lipgloss.Style {
	if st, ok := s.tokens[c]; ok {
		return st
	}
	return s.tokens[inspect.TokenPlain]
}
