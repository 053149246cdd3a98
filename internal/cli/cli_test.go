package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/config"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/db"
	"github.com/showcase-dev/showcase/internal/models"
)

func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "showcase.yaml")
	content := fmt.Sprintf(`logging:
  level: error
player:
  dwell: 4s
  settle: 500ms
  scripts_dir: %q
chat:
  endpoint: %q
  timeout: 5s
  locale: es
`, filepath.Join(dir, "scripts"), endpoint)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel, logFormat = "", "", ""
	nonInteractive, jsonOutput, noProgress = false, false, false
	replayScripts, replaySpeed = 0, 1
	statsDays = 7
	eventsType, eventsClient, eventsID = "", "", ""
	eventsSince, eventsLimit = 24*time.Hour, 20
	appConfig = nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func answerServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":           "El modelo 303 es trimestral.",
			"sources":            []map[string]any{{"title": "Doc A", "page": 3}},
			"remaining_requests": 4,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScriptsTable(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "scripts")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "irpf-salary")
	assert.Contains(t, out, "freelance-deductions")
	assert.Contains(t, out, "payroll-withholding")
}

func TestScriptsJSON(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "--json", "scripts")
	require.NoError(t, err)

	var list []struct {
		Name     string `json:"name"`
		Messages int    `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "irpf-salary", list[0].Name)
	assert.Equal(t, 4, list[0].Messages)
}

func TestAskPrintsTranscript(t *testing.T) {
	srv := answerServer(t, http.StatusOK)
	out, err := runCLI(t, "--config", writeConfig(t, srv.URL), "--no-progress", "ask", "¿Qué", "es", "el", "303?")
	require.NoError(t, err)

	assert.Contains(t, out, "You: ¿Qué es el 303?")
	assert.Contains(t, out, "Assistant: El modelo 303 es trimestral.")
	assert.Contains(t, out, "Doc A (pág. 3)")
	assert.Contains(t, out, "[OK] 4 requests left")
}

func TestAskJSON(t *testing.T) {
	srv := answerServer(t, http.StatusOK)
	out, err := runCLI(t, "--config", writeConfig(t, srv.URL), "--json", "ask", "modelo 303")
	require.NoError(t, err)

	var result askResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, chat.OutcomeAnswered.String(), result.Outcome)
	require.NotNil(t, result.Remaining)
	assert.Equal(t, 4, *result.Remaining)
	require.Len(t, result.Transcript, 2)
	assert.Equal(t, chat.AuthorUser, result.Transcript[0].Author)
}

func TestAskRateLimited(t *testing.T) {
	srv := answerServer(t, http.StatusTooManyRequests)
	out, err := runCLI(t, "--config", writeConfig(t, srv.URL), "--no-progress", "ask", "hola")
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrRateLimited))
	assert.Contains(t, out, "Límite alcanzado")
}

func TestAskUsesConfiguredNotice(t *testing.T) {
	t.Setenv("SHOWCASE_CHAT_RATE_LIMIT_NOTICE", "Slow down, please.")
	srv := answerServer(t, http.StatusTooManyRequests)
	out, err := runCLI(t, "--config", writeConfig(t, srv.URL), "--no-progress", "ask", "hola")
	require.Error(t, err)
	assert.Contains(t, out, "Slow down, please.")
	assert.NotContains(t, out, "Límite alcanzado")
}

func TestChatOptionsNoticeOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Chat.FailedNotice = "broken"
	opts, err := chatOptions(cfg)
	require.NoError(t, err)

	w := chat.NewWidget("http://127.0.0.1:1/api/chat", opts...)
	assert.Equal(t, chat.OutcomeFailed, w.Submit(context.Background(), "hola"))
	transcript := w.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "broken", transcript[1].Content)
}

func TestReplayPrintsScript(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "replay", "--scripts", "1", "--speed", "1000")
	require.NoError(t, err)

	assert.Contains(t, out, "── irpf-salary ──")
	assert.Contains(t, out, "👤 Usuario: ¿Cuánto pagaré de IRPF")
	assert.Contains(t, out, "📄 BOE 2024 - Art. 56 IRPF")
	assert.Contains(t, out, "🤖 TaxAgent:")
	assert.NotContains(t, out, "freelance-deductions")
}

func TestReplayRejectsBadSpeed(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "replay", "--speed", "0")
	assert.ErrorContains(t, err, "speed")
}

func TestReplayLoopsPastLibraryEnd(t *testing.T) {
	lib := conversation.Library{{
		Name: "only",
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: "q"},
			{Role: conversation.RoleAgent, Content: "a", Delay: time.Millisecond},
		},
	}}

	var out bytes.Buffer
	err := replay(context.Background(), &out, lib, replayOptions{
		scripts: 2,
		speed:   1,
		dwell:   time.Millisecond,
		settle:  time.Millisecond,
		json:    true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	var first replayLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "only", first.Script)
	assert.Equal(t, "user", first.Role)
	assert.Equal(t, "Usuario", first.Speaker)
}

func TestReplayStopsOnCancel(t *testing.T) {
	lib := conversation.Library{{
		Name:     "slow",
		Messages: []conversation.Message{{Role: conversation.RoleUser, Content: "q", Delay: time.Hour}},
	}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, replay(ctx, &out, lib, replayOptions{speed: 1}))
	assert.Empty(t, out.String())
}

func TestUIRequiresInteractiveTerminal(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "--non-interactive", "ui")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "interactive terminal")
}

func TestMissingConfigFileIsPreflightError(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "scripts")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, &PreflightError{Message: "broken", Hint: "fix it", NextStep: "showcase scripts"})
	assert.Equal(t, "Error: broken\nHint: fix it\nNext: showcase scripts\n", buf.String())

	buf.Reset()
	printError(&buf, errors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())
}

func TestOutcomeError(t *testing.T) {
	assert.NoError(t, outcomeError(chat.OutcomeAnswered))
	assert.ErrorIs(t, outcomeError(chat.OutcomeRateLimited), chat.ErrRateLimited)
	assert.ErrorIs(t, outcomeError(chat.OutcomeFailed), chat.ErrRequestFailed)
	assert.Error(t, outcomeError(chat.OutcomeSkipped))
}

func TestScaleLibrary(t *testing.T) {
	lib := conversation.Library{{
		Name:     "s",
		Messages: []conversation.Message{{Role: conversation.RoleUser, Content: "q", Delay: 2 * time.Second}},
	}}
	scaled := scaleLibrary(lib, 4)
	assert.Equal(t, 500*time.Millisecond, scaled[0].Messages[0].Delay)
	assert.Equal(t, 2*time.Second, lib[0].Messages[0].Delay)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
}

func seedEventDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	database, err := db.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx))

	repo := db.NewEventRepository(database)
	now := time.Now().UTC()
	for _, e := range []*models.Event{
		{Type: models.EventTypeQuestionReceived, ClientID: "10.0.0.1", Timestamp: now},
		{Type: models.EventTypeAnswerSent, ClientID: "10.0.0.1", Timestamp: now},
		{Type: models.EventTypeRateLimited, ClientID: "10.0.0.2", Timestamp: now},
	} {
		require.NoError(t, repo.Create(ctx, e))
	}
	require.NoError(t, database.Close())
	return path
}

func TestStatsRequiresDatabasePath(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "stats")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "database_path")
}

func TestStatsTable(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_DATABASE_PATH", seedEventDB(t))

	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "RATE LIMITED")
	assert.Contains(t, out, time.Now().UTC().Format("2006-01-02"))
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Unique clients: 2")
	assert.Contains(t, out, "EVENTS")

	var total []string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 && fields[0] == "TOTAL" {
			total = fields
		}
	}
	assert.Equal(t, []string{"TOTAL", "1", "1", "0", "1", "3"}, total)
}

func TestStatsJSON(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_DATABASE_PATH", seedEventDB(t))

	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "--json", "stats", "--days", "1")
	require.NoError(t, err)

	var body struct {
		Summary models.UsageSummary `json:"summary"`
		Daily   []models.DailyUsage `json:"daily"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, int64(1), body.Summary.Questions)
	assert.Equal(t, int64(1), body.Summary.RateLimited)
	require.Len(t, body.Daily, 1)
	assert.Equal(t, int64(3), body.Daily[0].Total())
}

func TestEventsTable(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_DATABASE_PATH", seedEventDB(t))

	out, err := runCLI(t, "--config", writeConfig(t, "http://127.0.0.1:1/api/chat"), "events")
	require.NoError(t, err)
	assert.Contains(t, out, "chat.question")
	assert.Contains(t, out, "chat.rate_limited")
	assert.Contains(t, out, "Showing 3 of 3 events")
}

func TestEventsFilterAndLimit(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_DATABASE_PATH", seedEventDB(t))
	cfg := writeConfig(t, "http://127.0.0.1:1/api/chat")

	out, err := runCLI(t, "--config", cfg, "--json", "events", "--client", "10.0.0.1", "--limit", "1")
	require.NoError(t, err)
	var body struct {
		Events []models.Event `json:"events"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "10.0.0.1", body.Events[0].ClientID)

	out, err = runCLI(t, "--config", cfg, "--json", "events", "--type", "rate_limited")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Events, 1)
	assert.Equal(t, models.EventTypeRateLimited, body.Events[0].Type)

	out, err = runCLI(t, "--config", cfg, "--json", "events", "--id", body.Events[0].ID)
	require.NoError(t, err)
	var single models.Event
	require.NoError(t, json.Unmarshal([]byte(out), &single))
	assert.Equal(t, "10.0.0.2", single.ClientID)
}

func TestEventsErrors(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_DATABASE_PATH", seedEventDB(t))
	cfg := writeConfig(t, "http://127.0.0.1:1/api/chat")

	_, err := runCLI(t, "--config", cfg, "events", "--id", "missing")
	var preflight *PreflightError
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "not found")

	_, err = runCLI(t, "--config", cfg, "events", "--type", "bogus")
	require.ErrorAs(t, err, &preflight)
	assert.Contains(t, preflight.Message, "unknown event type")

	_, err = runCLI(t, "--config", cfg, "events", "--limit", "0")
	require.ErrorAs(t, err, &preflight)
}

func TestParseEventTypeAcceptsStoredName(t *testing.T) {
	got, err := parseEventType("chat.answered")
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeAnswerSent, got)
}
