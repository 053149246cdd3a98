package cli

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/config"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/logging"
	"github.com/showcase-dev/showcase/internal/tui"
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the showcase TUI",
	Long:  "Launch the terminal UI: the scripted agent replay beside the chat demo.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "TUI requires an interactive terminal",
			Hint:     "Run without --non-interactive and with a TTY, or use the replay and ask commands",
			NextStep: "showcase replay",
		}
	}

	cfg := GetConfig()
	// Log lines would corrupt the alternate screen.
	if cfg.Logging.File == "" {
		logging.Discard()
	}

	lib, err := conversation.LoadLibrary(cfg.Player.ScriptsDir)
	if err != nil {
		return err
	}
	chatOpts, err := chatOptions(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return tui.Run(ctx, tui.Options{
		Library: lib,
		PlayerOptions: []conversation.Option{
			conversation.WithDwell(cfg.Player.Dwell),
			conversation.WithSettle(cfg.Player.Settle),
			conversation.WithLogger(logging.Component("player")),
		},
		Endpoint:    cfg.Chat.Endpoint,
		ChatOptions: chatOpts,
		Theme:       cfg.TUI.Theme,
		Logger:      logging.Component("tui"),
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// chatOptions builds widget options shared by ui and ask.
func chatOptions(cfg *config.Config) ([]chat.Option, error) {
	locale, err := chat.ParseLocale(cfg.Chat.Locale)
	if err != nil {
		return nil, err
	}
	opts := []chat.Option{
		chat.WithHTTPClient(&http.Client{Timeout: cfg.Chat.Timeout}),
		chat.WithLocale(locale),
		chat.WithLogger(logging.Component("chat")),
	}
	if cfg.Chat.Language != "" {
		opts = append(opts, chat.WithLanguage(cfg.Chat.Language))
	}
	if cfg.Chat.RateLimitNotice != "" || cfg.Chat.FailedNotice != "" {
		notices := chat.DefaultNotices(locale)
		if cfg.Chat.RateLimitNotice != "" {
			notices.RateLimited = cfg.Chat.RateLimitNotice
		}
		if cfg.Chat.FailedNotice != "" {
			notices.Failed = cfg.Chat.FailedNotice
		}
		opts = append(opts, chat.WithNotices(notices))
	}
	return opts, nil
}
