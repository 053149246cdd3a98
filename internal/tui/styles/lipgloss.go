package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/showcase-dev/showcase/internal/conversation"
)

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme     Theme
	Title     lipgloss.Style
	Text      lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Pane      lipgloss.Style
	PaneFocus lipgloss.Style
	Border    lipgloss.Style
	Focus     lipgloss.Style
	UserEntry lipgloss.Style
	Badge     lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style

	roles map[conversation.Role]lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	color := func(hex string) lipgloss.Color { return lipgloss.Color(hex) }

	s := Styles{
		Theme:     theme,
		Title:     lipgloss.NewStyle().Foreground(color(tokens.Text)).Bold(true),
		Text:      lipgloss.NewStyle().Foreground(color(tokens.Text)),
		Muted:     lipgloss.NewStyle().Foreground(color(tokens.TextMuted)),
		Accent:    lipgloss.NewStyle().Foreground(color(tokens.Accent)),
		Pane:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(color(tokens.Border)).Padding(0, 1),
		PaneFocus: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(color(tokens.Focus)).Padding(0, 1),
		Border:    lipgloss.NewStyle().Foreground(color(tokens.Border)),
		Focus:     lipgloss.NewStyle().Foreground(color(tokens.Focus)).Bold(true),
		UserEntry: lipgloss.NewStyle().Foreground(color(tokens.Text)).Background(color(tokens.UserBubble)).Padding(0, 1),
		Badge:     lipgloss.NewStyle().Foreground(color(tokens.Background)).Background(color(tokens.Accent)).Bold(true).Padding(0, 1),
		Warning:   lipgloss.NewStyle().Foreground(color(tokens.Warning)),
		Error:     lipgloss.NewStyle().Foreground(color(tokens.Error)),
		Info:      lipgloss.NewStyle().Foreground(color(tokens.Info)),
		roles:     make(map[conversation.Role]lipgloss.Style),
	}
	for _, role := range conversation.Roles() {
		fg := tokens.Text
		if theme.RoleColors {
			fg = role.Persona().Color
		}
		s.roles[role] = lipgloss.NewStyle().Foreground(color(fg)).Bold(true)
	}
	return s
}

// Role returns the heading style for a speaker role.
func (s Styles) Role(role conversation.Role) lipgloss.Style {
	if style, ok := s.roles[role]; ok {
		return style
	}
	return s.Title
}
