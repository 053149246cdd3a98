package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/db"
	"github.com/showcase-dev/showcase/internal/models"
)

var (
	eventsType   string
	eventsClient string
	eventsSince  time.Duration
	eventsLimit  int
	eventsID     string
)

var eventTypeNames = map[string]models.EventType{
	"question":     models.EventTypeQuestionReceived,
	"answered":     models.EventTypeAnswerSent,
	"rejected":     models.EventTypeInputRejected,
	"rate_limited": models.EventTypeRateLimited,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by type (question, answered, rejected, rate_limited)")
	eventsCmd.Flags().StringVar(&eventsClient, "client", "", "filter by client key")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 24*time.Hour, "only events newer than this (0 for all)")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum number of events to print")
	eventsCmd.Flags().StringVar(&eventsID, "id", "", "print a single event by ID")
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List entries from the chat server's event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsLimit <= 0 {
			return &PreflightError{Message: "--limit must be greater than 0"}
		}
		if eventsSince < 0 {
			return &PreflightError{Message: "--since must not be negative"}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		database, err := openEventDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()
		repo := db.NewEventRepository(database)
		out := cmd.OutOrStdout()

		if eventsID != "" {
			event, err := repo.Get(ctx, eventsID)
			if errors.Is(err, db.ErrEventNotFound) {
				return &PreflightError{
					Message:  fmt.Sprintf("event %s not found", eventsID),
					NextStep: "showcase events --since 0",
				}
			}
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return writeJSON(out, event)
			}
			return printEvents(out, []*models.Event{event}, 1)
		}

		q := db.EventQuery{Limit: eventsLimit}
		if eventsType != "" {
			t, err := parseEventType(eventsType)
			if err != nil {
				return err
			}
			q.Type = &t
		}
		if eventsClient != "" {
			q.ClientID = &eventsClient
		}
		if eventsSince > 0 {
			since := time.Now().UTC().Add(-eventsSince)
			q.Since = &since
		}

		total, err := repo.Count(ctx, q)
		if err != nil {
			return err
		}
		events, err := repo.Query(ctx, q)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			if events == nil {
				events = []*models.Event{}
			}
			return writeJSON(out, map[string]any{"events": events, "total": total})
		}
		return printEvents(out, events, total)
	},
}

// openEventDB opens the server's event database from config.
func openEventDB(ctx context.Context) (*db.DB, error) {
	path := GetConfig().Server.DatabasePath
	if path == "" {
		return nil, &PreflightError{
			Message:  "server.database_path is not set",
			Hint:     "The server keeps events in memory unless a database path is configured",
			NextStep: "showcase serve --db ./showcase.db",
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func parseEventType(s string) (models.EventType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := eventTypeNames[s]; ok {
		return t, nil
	}
	for _, t := range eventTypeNames {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &PreflightError{
		Message: fmt.Sprintf("unknown event type %q", s),
		Hint:    "Use one of question, answered, rejected, rate_limited",
	}
}

func printEvents(out io.Writer, events []*models.Event, total int) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Type),
			e.ClientID,
			e.ID,
		})
	}
	if err := writeTable(out, []string{"TIME", "TYPE", "CLIENT", "ID"}, rows); err != nil {
		return err
	}
	_, err := io.WriteString(out, "\nShowing "+strconv.Itoa(len(events))+" of "+strconv.Itoa(total)+" events\n")
	return err
}
