// Package styles holds the showcase TUI palettes and lipgloss styles.
package styles

import "strings"

// ThemeTokens defines the semantic color roles for the TUI.
type ThemeTokens struct {
	Background string
	Panel      string
	Text       string
	TextMuted  string
	Border     string
	Accent     string
	Focus      string
	UserBubble string
	Warning    string
	Error      string
	Info       string
}

// Theme bundles a palette with a name.
type Theme struct {
	Name   string
	Tokens ThemeTokens
	// RoleColors is false when persona colors are replaced by Text for legibility.
	RoleColors bool
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	DefaultTheme.Name:      DefaultTheme,
	HighContrastTheme.Name: HighContrastTheme,
}

// Lookup finds a theme by name. An empty name selects the default theme.
func Lookup(name string) (Theme, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultTheme, true
	}
	theme, ok := Themes[name]
	return theme, ok
}
