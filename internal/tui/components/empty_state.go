// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/tui/styles"
)

// EmptyState is shown in place of content that has not arrived yet.
type EmptyState struct {
	// Icon is an optional icon to display (e.g., "💡").
	Icon     string
	Title    string
	Subtitle string
	// Heading introduces the suggestions.
	Heading     string
	Suggestions []string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	var lines []string

	titleLine := e.Title
	if e.Icon != "" {
		titleLine = e.Icon + "  " + titleLine
	}
	if titleLine != "" {
		lines = append(lines, styleSet.Muted.Render(titleLine))
	}
	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Suggestions) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		if e.Heading != "" {
			lines = append(lines, styleSet.Text.Render(e.Heading))
		}
		for i, s := range e.Suggestions {
			lines = append(lines, fmt.Sprintf("  %s %s", styleSet.Muted.Render(fmt.Sprintf("%d.", i+1)), styleSet.Accent.Render(s)))
		}
	}

	return strings.Join(lines, "\n")
}

// ExampleQuestions suggests starter questions for an empty chat.
func ExampleQuestions(locale chat.Locale) EmptyState {
	state := EmptyState{
		Icon:        "💡",
		Heading:     "Preguntas de ejemplo:",
		Subtitle:    "Tab para usar una pregunta.",
		Suggestions: chat.ExampleQuestions(locale),
	}
	if locale == chat.LocaleEN {
		state.Heading = "Example questions:"
		state.Subtitle = "Press Tab to use one."
	}
	return state
}

// PlayerLoading is shown before the first script snapshot arrives.
func PlayerLoading() EmptyState {
	return EmptyState{
		Icon:     "⏳",
		Title:    "Preparing the demo...",
		Subtitle: "Scripted agents will start talking shortly.",
	}
}
