package cli

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/db"
	"github.com/showcase-dev/showcase/internal/models"
)

var statsDays int

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "number of days to summarize")
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the chat server's event log",
	Long: `Read the demo chat server's event database and print question,
answer, rejection and rate-limit counts per day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsDays <= 0 {
			return &PreflightError{Message: "--days must be greater than 0"}
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

		now := time.Now().UTC()
		since := now.AddDate(0, 0, -statsDays)
		usage := db.NewUsageRepository(database)
		summary, err := usage.Summarize(ctx, &since)
		if err != nil {
			return err
		}
		daily, err := usage.Daily(ctx, since, now.Add(time.Second), statsDays+1)
		if err != nil {
			return err
		}
		return printStats(cmd.OutOrStdout(), summary, daily)
	},
}

func printStats(out io.Writer, summary *models.UsageSummary, daily []*models.DailyUsage) error {
	if IsJSONOutput() {
		if daily == nil {
			daily = []*models.DailyUsage{}
		}
		return writeJSON(out, map[string]any{
			"summary": summary,
			"daily":   daily,
		})
	}

	count := func(n int64) string { return strconv.FormatInt(n, 10) }
	rows := make([][]string, 0, len(daily)+1)
	for _, d := range daily {
		rows = append(rows, []string{d.Date, count(d.Questions), count(d.Answers), count(d.Rejections), count(d.RateLimited), count(d.Total())})
	}
	total := summary.Questions + summary.Answers + summary.Rejections + summary.RateLimited
	rows = append(rows, []string{"TOTAL", count(summary.Questions), count(summary.Answers), count(summary.Rejections), count(summary.RateLimited), count(total)})
	if err := writeTable(out, []string{"DATE", "QUESTIONS", "ANSWERS", "REJECTED", "RATE LIMITED", "EVENTS"}, rows); err != nil {
		return err
	}
	_, err := io.WriteString(out, "\nUnique clients: "+count(summary.UniqueClients)+"\n")
	return err
}
