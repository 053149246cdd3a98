// Package tui implements the showcase terminal user interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/tui/components"
	"github.com/showcase-dev/showcase/internal/tui/styles"
)

// Options configures the TUI program.
type Options struct {
	Library       conversation.Library
	PlayerOptions []conversation.Option
	Endpoint      string
	ChatOptions   []chat.Option
	Theme         string
	Logger        zerolog.Logger
}

// Run launches the showcase TUI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	theme, ok := styles.Lookup(opts.Theme)
	if !ok {
		return fmt.Errorf("unknown theme %q", opts.Theme)
	}

	bridge := &programBridge{}
	playerOpts := append(append([]conversation.Option(nil), opts.PlayerOptions...), conversation.WithObserver(bridge.OnSnapshot))
	player, err := conversation.NewPlayer(opts.Library, playerOpts...)
	if err != nil {
		return err
	}
	chatOpts := append(append([]chat.Option(nil), opts.ChatOptions...), chat.WithWelcome(), chat.WithFocus(bridge.Focus))
	widget := chat.NewWidget(opts.Endpoint, chatOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer widget.Dispose()
	defer player.Stop()

	program := tea.NewProgram(
		newModel(ctx, player, widget, styles.BuildStyles(theme)),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	bridge.attach(program)

	opts.Logger.Debug().Str("theme", theme.Name).Int("scripts", len(opts.Library)).Msg("tui starting")
	_, err = program.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

const (
	minWidth  = 80
	minHeight = 20

	playerTitle = "Multi-Agent System · Live Demo"
	chatTitle   = "Impuestify · Demo"
)

type model struct {
	ctx    context.Context
	width  int
	height int
	styles styles.Styles

	player   *conversation.Player
	snapshot conversation.Snapshot

	widget     *chat.Widget
	locale     chat.Locale
	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	submitting bool
	example    int
}

func newModel(ctx context.Context, player *conversation.Player, widget *chat.Widget, styleSet styles.Styles) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 500
	input.Placeholder = "Escribe tu pregunta fiscal..."
	if widget.Locale() == chat.LocaleEN {
		input.Placeholder = "Type your tax question..."
	}
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styleSet.Accent

	transcript := viewport.New(0, 0)
	transcript.MouseWheelEnabled = true

	m := model{
		ctx:        ctx,
		styles:     styleSet,
		player:     player,
		snapshot:   player.Snapshot(),
		widget:     widget,
		locale:     widget.Locale(),
		input:      input,
		transcript: transcript,
		spinner:    sp,
	}
	m.refreshTranscript()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, startPlayerCmd(m.player))
}

func startPlayerCmd(player *conversation.Player) tea.Cmd {
	return func() tea.Msg {
		player.Start()
		return nil
	}
}

func submitCmd(ctx context.Context, widget *chat.Widget, question string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{outcome: widget.Submit(ctx, question)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case snapshotMsg:
		// Snapshots may race through program.Send; keep the newest.
		if msg.Seq >= m.snapshot.Seq {
			m.snapshot = conversation.Snapshot(msg)
		}
	case focusMsg:
		cmds = append(cmds, m.input.Focus())
	case submitDoneMsg:
		m.submitting = false
		if msg.outcome == chat.OutcomeSkipped {
			cmds = append(cmds, m.input.Focus())
		}
		m.refreshTranscript()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.submitting {
			m.refreshTranscript()
		}
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.shutdown()
			return m, tea.Quit
		case "enter":
			question := m.input.Value()
			if m.submitting || strings.TrimSpace(question) == "" {
				return m, nil
			}
			m.submitting = true
			m.input.Reset()
			m.input.Blur()
			return m, submitCmd(m.ctx, m.widget, question)
		case "tab":
			if m.showExamples() {
				examples := chat.ExampleQuestions(m.locale)
				m.input.SetValue(examples[m.example%len(examples)])
				m.input.CursorEnd()
				m.example++
			}
			return m, nil
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// shutdown stops the player and detaches the widget before the program exits.
func (m model) shutdown() {
	m.player.Stop()
	m.widget.Dispose()
}

func (m model) showExamples() bool {
	for _, entry := range m.widget.Transcript() {
		if entry.Author == chat.AuthorUser {
			return false
		}
	}
	return true
}

// layout returns the outer widths of both panes and their shared height.
func (m model) layout() (left, right, height int) {
	left = m.width * 11 / 20
	right = m.width - left
	height = m.height - 1
	return left, right, height
}

// paneInner is the content width of a pane after border and padding.
func paneInner(outer int) int {
	return max(outer-4, 10)
}

func (m *model) resize() {
	_, right, height := m.layout()
	inner := paneInner(right)
	m.input.Width = max(inner-3, 1)
	// Header, blank line and input, plus the pane border.
	m.transcript.Width = inner
	m.transcript.Height = max(height-2-4, 1)
	m.refreshTranscript()
}

func (m *model) refreshTranscript() {
	width := m.transcript.Width
	entries := m.widget.Transcript()
	blocks := make([]string, 0, len(entries)+1)
	for _, entry := range entries {
		blocks = append(blocks, components.RenderChatEntry(m.styles, entry, m.locale, width))
	}
	if m.showExamples() {
		blocks = append(blocks, components.ExampleQuestions(m.locale).Render(m.styles))
	}
	m.transcript.SetContent(strings.Join(blocks, "\n\n"))
	m.transcript.GotoBottom()
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 {
		if m.width < minWidth || m.height < minHeight {
			return fmt.Sprintf("%s\n", strings.Join(m.smallViewLines(), "\n"))
		}
	}
	if m.width == 0 || m.height == 0 {
		return "\n"
	}

	left, right, height := m.layout()
	playerPane := m.styles.Pane.
		Width(left - 2).
		Height(height - 2).
		Render(m.playerView(paneInner(left), height-2))
	chatPane := m.styles.PaneFocus.
		Width(right - 2).
		Height(height - 2).
		Render(m.chatView(paneInner(right)))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, playerPane, chatPane),
		m.styles.Muted.Render(m.helpLine()),
	)
}

func (m model) smallViewLines() []string {
	message := fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)
	hint := fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)

	return []string{
		m.styles.Warning.Render(message),
		m.styles.Muted.Render(hint),
		m.styles.Muted.Render("Press esc to quit."),
	}
}

func (m model) helpLine() string {
	if m.locale == chat.LocaleEN {
		return " enter send · tab example · pgup/pgdn scroll · esc quit"
	}
	return " enter enviar · tab ejemplo · pgup/pgdn desplazar · esc salir"
}

func (m model) playerView(width, height int) string {
	snap := m.snapshot
	header := []string{
		m.styles.Title.Render(playerTitle),
		fmt.Sprintf("%s %s",
			components.RenderPhaseBadge(m.styles, snap.Phase),
			m.styles.Muted.Render(fmt.Sprintf("%s · %d/%d", snap.ScriptName, len(snap.Visible), snap.ScriptLen)),
		),
		"",
	}

	var body []string
	if len(snap.Visible) == 0 {
		body = append(body, components.PlayerLoading().Render(m.styles))
	}
	for _, msg := range snap.Visible {
		body = append(body, components.RenderScriptMessage(m.styles, msg, width, !snap.Shown), "")
	}
	if snap.Typing {
		body = append(body, components.RenderTyping(m.styles, m.spinner.View()))
	}

	bodyHeight := max(height-len(header), 1)
	return strings.Join(header, "\n") + "\n" + tailLines(strings.Join(body, "\n"), bodyHeight)
}

func (m model) chatView(width int) string {
	header := m.styles.Title.Render(chatTitle)
	remaining, known := m.widget.Remaining()
	if badge := components.RenderQuotaBadge(m.styles, m.locale, remaining, known); badge != "" {
		gap := max(width-lipgloss.Width(header)-lipgloss.Width(badge), 1)
		header += strings.Repeat(" ", gap) + badge
	}

	inputLine := m.input.View()
	if m.submitting {
		waiting := "Pensando..."
		if m.locale == chat.LocaleEN {
			waiting = "Thinking..."
		}
		inputLine = m.spinner.View() + " " + m.styles.Muted.Render(waiting)
	}

	return strings.Join([]string{header, m.transcript.View(), "", inputLine}, "\n")
}

// tailLines keeps the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
