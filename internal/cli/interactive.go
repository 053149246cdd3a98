package cli

import "os"

// IsNonInteractive reports whether the TUI must not be opened.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("SHOWCASE_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}
