package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/tui/styles"
)

// RenderScriptMessage renders one revealed message: persona heading, body,
// and reference docs for retrieval messages. dim renders everything muted.
func RenderScriptMessage(styleSet styles.Styles, msg conversation.Message, width int, dim bool) string {
	persona := msg.Role.Persona()
	heading := styleSet.Role(msg.Role)
	body := styleSet.Text
	docs := styleSet.Muted
	if dim {
		heading, body = styleSet.Muted, styleSet.Muted
	}

	lines := []string{heading.Render(persona.Icon + " " + persona.Name)}
	lines = append(lines, wrap(body, msg.Content, width))
	for _, doc := range msg.ReferenceDocs {
		lines = append(lines, wrap(docs, "  "+doc, width))
	}
	return strings.Join(lines, "\n")
}

// RenderTyping renders the pending-reveal indicator.
func RenderTyping(styleSet styles.Styles, frame string) string {
	return styleSet.Muted.Render(frame + " typing...")
}

// RenderChatEntry renders a chat transcript entry with its source labels.
func RenderChatEntry(styleSet styles.Styles, entry chat.Entry, locale chat.Locale, width int) string {
	if entry.Author == chat.AuthorUser {
		label := "Tú"
		if locale == chat.LocaleEN {
			label = "You"
		}
		return styleSet.Focus.Render(label) + "\n" + wrap(styleSet.UserEntry, entry.Content, width)
	}

	lines := []string{styleSet.Accent.Render("🤖 Impuestify"), wrap(styleSet.Text, entry.Content, width)}
	labels := entry.SourceLabels(locale)
	if len(labels) > 0 {
		heading := "Fuentes:"
		if locale == chat.LocaleEN {
			heading = "Sources:"
		}
		lines = append(lines, styleSet.Muted.Render(heading))
		for _, label := range labels {
			lines = append(lines, wrap(styleSet.Info, "  • "+label, width))
		}
	}
	return strings.Join(lines, "\n")
}

func wrap(style lipgloss.Style, text string, width int) string {
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(text)
}
