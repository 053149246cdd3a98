package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/tui/styles"
)

// RenderPhaseBadge renders the player phase with icon and color.
func RenderPhaseBadge(styleSet styles.Styles, phase conversation.Phase) string {
	icon, label, style := phaseDescriptor(styleSet, phase)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func phaseDescriptor(styleSet styles.Styles, phase conversation.Phase) (string, string, lipgloss.Style) {
	switch phase {
	case conversation.PhaseRevealing:
		return "●", "Live", styleSet.Accent
	case conversation.PhaseFinished:
		return "✓", "Done", styleSet.Info
	case conversation.PhaseTransitioning:
		return "~", "Next", styleSet.Muted
	default:
		return "-", "Unknown", styleSet.Muted
	}
}

// RenderQuotaBadge renders the remaining request count. Before the server
// reports a value it renders nothing.
func RenderQuotaBadge(styleSet styles.Styles, locale chat.Locale, remaining int, known bool) string {
	if !known {
		return ""
	}
	label := fmt.Sprintf("%d consultas restantes", remaining)
	if locale == chat.LocaleEN {
		label = fmt.Sprintf("%d requests left", remaining)
	}
	style := styleSet.Badge
	if remaining <= 0 {
		style = style.Background(lipgloss.Color(styleSet.Theme.Tokens.Error))
	}
	return style.Render(label)
}
