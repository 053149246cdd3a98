package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/chat"
)

func init() {
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the demo tax assistant one question",
	Long:  "Submit a single question to the chat endpoint and print the resulting transcript.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		opts, err := chatOptions(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		widget := chat.NewWidget(cfg.Chat.Endpoint, opts...)
		question := strings.Join(args, " ")

		progress := startProgress(cmd.ErrOrStderr(), "Asking "+cfg.Chat.Endpoint)
		outcome := widget.Submit(ctx, question)
		switch outcome {
		case chat.OutcomeAnswered:
			progress.Done()
		case chat.OutcomeSkipped:
			progress.Fail("empty question")
		default:
			progress.Fail(outcome.String())
		}

		if err := printAskResult(cmd.OutOrStdout(), widget, outcome); err != nil {
			return err
		}
		return outcomeError(outcome)
	},
}

type askEntryJSON struct {
	Author    chat.Author   `json:"author"`
	Content   string        `json:"content"`
	Sources   []chat.Source `json:"sources,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type askResultJSON struct {
	Outcome    string         `json:"outcome"`
	Remaining  *int           `json:"remaining_requests,omitempty"`
	Transcript []askEntryJSON `json:"transcript"`
}

func printAskResult(out io.Writer, widget *chat.Widget, outcome chat.Outcome) error {
	entries := widget.Transcript()
	remaining, known := widget.Remaining()

	if IsJSONOutput() {
		result := askResultJSON{Outcome: outcome.String(), Transcript: make([]askEntryJSON, 0, len(entries))}
		if known {
			result.Remaining = &remaining
		}
		for _, e := range entries {
			result.Transcript = append(result.Transcript, askEntryJSON{
				Author:    e.Author,
				Content:   e.Content,
				Sources:   e.Sources,
				Timestamp: e.Timestamp,
			})
		}
		return writeJSON(out, result)
	}

	locale := widget.Locale()
	for _, e := range entries {
		label := "Assistant"
		if e.Author == chat.AuthorUser {
			label = "You"
		}
		fmt.Fprintf(out, "%s: %s\n", label, e.Content)
		for _, src := range e.SourceLabels(locale) {
			fmt.Fprintf(out, "  • %s\n", src)
		}
	}
	fmt.Fprintf(out, "\n[%s]", formatOutcome(outcome))
	if known {
		fmt.Fprintf(out, " %d requests left", remaining)
	}
	fmt.Fprintln(out)
	return nil
}

// outcomeError maps unsuccessful outcomes to a non-zero exit.
func outcomeError(outcome chat.Outcome) error {
	switch outcome {
	case chat.OutcomeAnswered:
		return nil
	case chat.OutcomeRateLimited:
		return chat.ErrRateLimited
	case chat.OutcomeSkipped:
		return fmt.Errorf("question is empty")
	default:
		return chat.ErrRequestFailed
	}
}
