package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Default pacing between scripts.
const (
	DefaultDwell  = 4 * time.Second
	DefaultSettle = 500 * time.Millisecond
)

// Player errors.
var (
	ErrEmptyLibrary = errors.New("script library is empty")
	ErrNoMessages   = errors.New("script library has no messages")
	ErrNegativeWait = errors.New("dwell and settle must not be negative")
)

// Snapshot is the render projection of the player state.
type Snapshot struct {
	// Seq increases with every state change.
	Seq         uint64
	ScriptIndex int
	ScriptName  string
	ScriptLen   int
	Phase       Phase
	// Visible is the revealed prefix of the active script.
	Visible []Message
	// Shown is false while the widget is faded out between scripts.
	Shown  bool
	Typing bool
}

// Observer receives a snapshot after each state change. It runs on the
// timer goroutine and must not block for long.
type Observer func(Snapshot)

// Option configures a Player.
type Option func(*Player)

// WithClock sets the scheduling clock.
func WithClock(clock Clock) Option {
	return func(p *Player) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithDwell sets how long a finished script stays visible.
func WithDwell(d time.Duration) Option {
	return func(p *Player) { p.dwell = d }
}

// WithSettle sets the hidden pause before the next script starts.
func WithSettle(d time.Duration) Option {
	return func(p *Player) { p.settle = d }
}

// WithObserver registers a change observer.
func WithObserver(fn Observer) Option {
	return func(p *Player) { p.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Player) { p.logger = logger }
}

// Player replays a Library forever, one message at a time.
type Player struct {
	clock    Clock
	dwell    time.Duration
	settle   time.Duration
	observer Observer
	logger   zerolog.Logger

	mu      sync.Mutex
	m       *machine
	timer   Timer
	gen     uint64
	seq     uint64
	started bool
	stopped bool

	notifyMu     sync.Mutex
	lastNotified uint64
}

// NewPlayer creates a player positioned at the first message of the first
// non-empty script. Nothing happens until Start.
func NewPlayer(lib Library, opts ...Option) (*Player, error) {
	if len(lib) == 0 {
		return nil, ErrEmptyLibrary
	}
	if lib.TotalMessages() == 0 {
		return nil, ErrNoMessages
	}

	p := &Player{
		clock:  RealClock{},
		dwell:  DefaultDwell,
		settle: DefaultSettle,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dwell < 0 || p.settle < 0 {
		return nil, ErrNegativeWait
	}

	scripts := make(Library, len(lib))
	for i, s := range lib {
		scripts[i] = Script{Name: s.Name, Source: s.Source, Messages: cloneMessages(s.Messages)}
	}
	p.m = newMachine(scripts, p.dwell, p.settle)
	return p, nil
}

// Start begins the reveal sequence. Later calls, and calls after Stop, do nothing.
func (p *Player) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.logger.Debug().Str("script", p.m.active().Name).Msg("player started")
	p.scheduleLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
}

// Stop cancels the pending timer. No state changes after it returns.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.logger.Debug().Msg("player stopped")
}

// Visible returns the revealed prefix of the active script.
func (p *Player) Visible() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m.visibleMessages()
}

// Typing reports whether a reveal is pending after at least one visible message.
func (p *Player) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m.typing()
}

// Snapshot returns the current projection.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// scheduleLocked reveals zero-delay messages immediately and arms a single
// timer for the next transition. Caller holds p.mu.
func (p *Player) scheduleLocked() {
	for p.m.phase == PhaseRevealing && p.m.pending() == 0 {
		p.stepLocked()
	}

	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = p.clock.AfterFunc(p.m.pending(), func() { p.fire(gen) })
}

func (p *Player) stepLocked() {
	prev := p.m.phase
	p.m.step()
	p.seq++

	event := p.logger.Debug().
		Str("script", p.m.active().Name).
		Int("visible", p.m.visible).
		Str("phase", p.m.phase.String())
	switch prev {
	case PhaseRevealing:
		event.Msg("message revealed")
	case PhaseFinished:
		event.Msg("script hidden")
	default:
		event.Msg("script advanced")
	}
}

func (p *Player) fire(gen uint64) {
	p.mu.Lock()
	if p.stopped || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.stepLocked()
	p.scheduleLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
}

func (p *Player) notify(snap Snapshot) {
	if p.observer == nil {
		return
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if snap.Seq != 0 && snap.Seq <= p.lastNotified {
		return
	}
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	p.lastNotified = snap.Seq
	p.observer(snap)
}

func (p *Player) snapshotLocked() Snapshot {
	active := p.m.active()
	return Snapshot{
		Seq:         p.seq,
		ScriptIndex: p.m.script,
		ScriptName:  active.Name,
		ScriptLen:   active.Len(),
		Phase:       p.m.phase,
		Visible:     p.m.visibleMessages(),
		Shown:       p.m.shown,
		Typing:      p.m.typing(),
	}
}
