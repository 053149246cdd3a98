package conversation

import "time"

// Phase is the player's state-machine phase.
type Phase int

const (
	// PhaseRevealing: messages of the active script are being revealed.
	PhaseRevealing Phase = iota
	// PhaseFinished: every message is visible; the dwell timer is running.
	PhaseFinished
	// PhaseTransitioning: the widget is hidden; the settle timer is running.
	PhaseTransitioning
)

func (p Phase) String() string {
	switch p {
	case PhaseRevealing:
		return "revealing"
	case PhaseFinished:
		return "finished"
	case PhaseTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// machine holds the player state and its transition table. It has no notion
// of time beyond reporting how long to wait before the next step.
type machine struct {
	lib    Library
	dwell  time.Duration
	settle time.Duration

	phase   Phase
	script  int
	visible int
	shown   bool
}

// newMachine requires lib to hold at least one message.
func newMachine(lib Library, dwell, settle time.Duration) *machine {
	m := &machine{lib: lib, dwell: dwell, settle: settle}
	m.enterScript(0)
	return m
}

// enterScript starts script i, skipping empty scripts without any dwell.
func (m *machine) enterScript(i int) {
	n := len(m.lib)
	for offset := 0; offset < n; offset++ {
		idx := (i + offset) % n
		if m.lib[idx].Len() == 0 {
			continue
		}
		m.script = idx
		m.visible = 0
		m.phase = PhaseRevealing
		m.shown = true
		return
	}
}

func (m *machine) active() Script {
	return m.lib[m.script]
}

// pending is the wait before the next step.
func (m *machine) pending() time.Duration {
	switch m.phase {
	case PhaseRevealing:
		return m.active().Messages[m.visible].Delay
	case PhaseFinished:
		return m.dwell
	default:
		return m.settle
	}
}

// step applies exactly one transition.
func (m *machine) step() {
	switch m.phase {
	case PhaseRevealing:
		m.visible++
		if m.visible >= m.active().Len() {
			m.visible = m.active().Len()
			m.phase = PhaseFinished
		}
	case PhaseFinished:
		m.shown = false
		m.phase = PhaseTransitioning
	case PhaseTransitioning:
		m.enterScript(m.script + 1)
	}
}

func (m *machine) typing() bool {
	return m.phase == PhaseRevealing && m.visible > 0
}

func (m *machine) visibleMessages() []Message {
	return cloneMessages(m.active().Messages[:m.visible])
}
