package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/tui/styles"
)

func testLibrary() conversation.Library {
	return conversation.Library{{
		Name: "salary",
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: "How much tax?"},
			{Role: conversation.RoleCoordinator, Content: "Routing", Delay: time.Second},
			{Role: conversation.RoleAgent, Content: "About 17%", Delay: time.Second},
		},
	}}
}

type harness struct {
	clock  *conversation.FakeClock
	player *conversation.Player
	widget *chat.Widget
	model  model
}

func newHarness(t *testing.T, handler http.HandlerFunc, opts ...chat.Option) *harness {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	clock := conversation.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	player, err := conversation.NewPlayer(testLibrary(), conversation.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(player.Stop)

	widget := chat.NewWidget(srv.URL, append([]chat.Option{chat.WithWelcome()}, opts...)...)
	m := newModel(context.Background(), player, widget, styles.DefaultStyles())
	return &harness{clock: clock, player: player, widget: widget, model: m}
}

func answerHandler(answer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response":           answer,
			"sources":            []map[string]any{{"title": "Doc A", "page": 3}},
			"remaining_requests": 9,
		})
	}
}

func (h *harness) update(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(model)
	return cmd
}

func TestViewShowsBothPanes(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))
	h.update(t, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := h.model.View()
	assert.Contains(t, view, playerTitle)
	assert.Contains(t, view, chatTitle)
	assert.Contains(t, view, "Preguntas de ejemplo")
}

func TestViewTooSmall(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))
	h.update(t, tea.WindowSizeMsg{Width: 40, Height: 10})

	assert.Contains(t, h.model.View(), "Terminal too small (40x10)")
}

func TestSnapshotMessagesRenderInPlayerPane(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))
	h.update(t, tea.WindowSizeMsg{Width: 120, Height: 40})

	h.player.Start()
	h.clock.Advance(time.Second)
	h.update(t, snapshotMsg(h.player.Snapshot()))

	view := h.model.View()
	assert.Contains(t, view, "How much tax?")
	assert.Contains(t, view, "Coordinator")
	assert.Contains(t, view, "typing...")
	assert.NotContains(t, view, "About 17%")
}

func TestStaleSnapshotIgnored(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))

	h.player.Start()
	early := h.player.Snapshot()
	h.clock.Advance(2 * time.Second)
	late := h.player.Snapshot()
	require.Greater(t, late.Seq, early.Seq)

	h.update(t, snapshotMsg(late))
	h.update(t, snapshotMsg(early))
	assert.Equal(t, late.Seq, h.model.snapshot.Seq)
	assert.Len(t, h.model.snapshot.Visible, 3)
}

func TestSubmitRoundTrip(t *testing.T) {
	h := newHarness(t, answerHandler("El IVA es trimestral."))
	h.update(t, tea.WindowSizeMsg{Width: 120, Height: 40})

	h.update(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("¿IVA?")})
	cmd := h.update(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, h.model.submitting)
	assert.Empty(t, h.model.input.Value())

	// A second enter while waiting does nothing.
	assert.Nil(t, h.update(t, tea.KeyMsg{Type: tea.KeyEnter}))

	done, ok := cmd().(submitDoneMsg)
	require.True(t, ok)
	assert.Equal(t, chat.OutcomeAnswered, done.outcome)

	h.update(t, done)
	h.update(t, focusMsg{})
	assert.False(t, h.model.submitting)
	assert.True(t, h.model.input.Focused())

	view := h.model.View()
	assert.Contains(t, view, "El IVA es trimestral.")
	assert.Contains(t, view, "Doc A (pág. 3)")
	assert.Contains(t, view, "9 consultas restantes")
	assert.NotContains(t, view, "Preguntas de ejemplo")
}

func TestBlankEnterIgnored(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))

	h.update(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("   ")})
	assert.Nil(t, h.update(t, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.False(t, h.model.submitting)
	assert.Len(t, h.widget.Transcript(), 1)
}

func TestTabCyclesExampleQuestions(t *testing.T) {
	h := newHarness(t, answerHandler("ok"), chat.WithLocale(chat.LocaleEN))
	examples := chat.ExampleQuestions(chat.LocaleEN)

	h.update(t, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, examples[0], h.model.input.Value())
	h.update(t, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, examples[1], h.model.input.Value())
}

func TestRateLimitedNoticeShown(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h.update(t, tea.WindowSizeMsg{Width: 120, Height: 40})

	h.update(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hola")})
	cmd := h.update(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	h.update(t, cmd())

	assert.Contains(t, h.model.View(), "Límite alcanzado")
}

func TestQuitStopsPlayerAndDisposesWidget(t *testing.T) {
	h := newHarness(t, answerHandler("ok"))
	h.player.Start()
	before := h.player.Snapshot()

	cmd := h.update(t, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)

	h.clock.Advance(time.Minute)
	assert.Equal(t, before.Seq, h.player.Snapshot().Seq)
	assert.Equal(t, chat.OutcomeSkipped, h.widget.Submit(context.Background(), "hola"))
}

func TestTailLines(t *testing.T) {
	assert.Equal(t, "c\nd", tailLines("a\nb\nc\nd", 2))
	assert.Equal(t, "a", tailLines("a", 5))
}

func TestProgramBridgeDropsBeforeAttach(t *testing.T) {
	b := &programBridge{}
	assert.NotPanics(t, func() {
		b.OnSnapshot(conversation.Snapshot{})
		b.Focus()
	})
}

func TestRunRejectsUnknownTheme(t *testing.T) {
	err := Run(context.Background(), Options{Library: testLibrary(), Theme: "neon"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "neon"))
}
