package cli

import (
	"os"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// colorEnabled is false when NO_COLOR is set or stdout is not a terminal.
var colorEnabled = func() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func colorize(text, color string) string {
	if color == "" || !colorEnabled() {
		return text
	}
	return color + text + colorReset
}

func roleColor(role conversation.Role) string {
	switch role {
	case conversation.RoleUser:
		return colorCyan
	case conversation.RoleCoordinator:
		return colorRed
	case conversation.RoleRetrieval:
		return colorGreen
	case conversation.RoleAgent:
		return colorYellow
	default:
		return ""
	}
}

func formatOutcome(outcome chat.Outcome) string {
	switch outcome {
	case chat.OutcomeAnswered:
		return colorize("OK", colorGreen)
	case chat.OutcomeRateLimited:
		return colorize("RATE LIMITED", colorMagenta)
	case chat.OutcomeFailed:
		return colorize("ERR", colorRed)
	default:
		return colorize("SKIPPED", colorYellow)
	}
}
