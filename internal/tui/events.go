package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/showcase-dev/showcase/internal/chat"
	"github.com/showcase-dev/showcase/internal/conversation"
)

// snapshotMsg carries a player state change into the update loop.
type snapshotMsg conversation.Snapshot

// submitDoneMsg reports a finished chat request.
type submitDoneMsg struct {
	outcome chat.Outcome
}

// focusMsg asks the model to refocus the chat input.
type focusMsg struct{}

// programBridge forwards callbacks from player and widget goroutines to the
// running program. Callbacks before attach are dropped.
type programBridge struct {
	mu      sync.Mutex
	program *tea.Program
}

func (b *programBridge) attach(program *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = program
}

func (b *programBridge) send(msg tea.Msg) {
	b.mu.Lock()
	program := b.program
	b.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

// OnSnapshot implements conversation.Observer.
func (b *programBridge) OnSnapshot(snap conversation.Snapshot) {
	b.send(snapshotMsg(snap))
}

// Focus is the chat widget's focus hook.
func (b *programBridge) Focus() {
	b.send(focusMsg{})
}
