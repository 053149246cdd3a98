package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testLibrary() Library {
	return Library{
		{
			Name: "first",
			Messages: []Message{
				{Role: RoleUser, Content: "q1", Delay: 0},
				{Role: RoleCoordinator, Content: "routing", Delay: time.Second},
				{Role: RoleRetrieval, Content: "RAG Retrieval:", ReferenceDocs: []string{"doc-a", "doc-b"}, Delay: 2 * time.Second},
				{Role: RoleAgent, Content: "a1", Delay: 3 * time.Second},
			},
		},
		{
			Name: "second",
			Messages: []Message{
				{Role: RoleUser, Content: "q2", Delay: time.Second},
				{Role: RoleAgent, Content: "a2", Delay: time.Second},
			},
		},
	}
}

type recorder struct {
	clock *FakeClock
	snaps []Snapshot
	at    []time.Time
}

func (r *recorder) observe(s Snapshot) {
	r.snaps = append(r.snaps, s)
	r.at = append(r.at, r.clock.Now())
}

func newTestPlayer(t *testing.T, lib Library) (*Player, *FakeClock, *recorder) {
	t.Helper()
	clock := NewFakeClock(epoch)
	rec := &recorder{clock: clock}
	p, err := NewPlayer(lib, WithClock(clock), WithObserver(rec.observe))
	require.NoError(t, err)
	t.Cleanup(p.Stop)
	return p, clock, rec
}

func TestNewPlayerRejectsEmptyLibrary(t *testing.T) {
	_, err := NewPlayer(nil)
	require.ErrorIs(t, err, ErrEmptyLibrary)

	_, err = NewPlayer(Library{{Name: "empty"}})
	require.ErrorIs(t, err, ErrNoMessages)

	_, err = NewPlayer(testLibrary(), WithDwell(-time.Second))
	require.ErrorIs(t, err, ErrNegativeWait)
}

func TestPlayerInitialStateBeforeStart(t *testing.T) {
	p, clock, _ := newTestPlayer(t, testLibrary())

	snap := p.Snapshot()
	assert.Equal(t, 0, snap.ScriptIndex)
	assert.Empty(t, snap.Visible)
	assert.True(t, snap.Shown)
	assert.Equal(t, PhaseRevealing, snap.Phase)
	assert.Equal(t, 0, clock.Pending())
}

func TestPlayerRevealsInOrder(t *testing.T) {
	p, clock, _ := newTestPlayer(t, testLibrary())
	p.Start()

	// Zero-delay first message is visible at once; the second is pending.
	require.Len(t, p.Visible(), 1)
	assert.True(t, p.Typing())

	clock.Advance(999 * time.Millisecond)
	require.Len(t, p.Visible(), 1)

	clock.Advance(time.Millisecond)
	require.Len(t, p.Visible(), 2)
	assert.True(t, p.Typing())

	clock.Advance(2 * time.Second)
	visible := p.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, RoleRetrieval, visible[2].Role)
	assert.Equal(t, []string{"doc-a", "doc-b"}, visible[2].ReferenceDocs)

	clock.Advance(3 * time.Second)
	snap := p.Snapshot()
	require.Len(t, snap.Visible, 4)
	assert.Equal(t, PhaseFinished, snap.Phase)
	assert.False(t, snap.Typing)
	assert.True(t, snap.Shown)
}

func TestPlayerNotTypingBeforeFirstReveal(t *testing.T) {
	lib := Library{{
		Name: "delayed",
		Messages: []Message{
			{Role: RoleUser, Content: "q", Delay: time.Second},
			{Role: RoleAgent, Content: "a", Delay: time.Second},
		},
	}}
	p, clock, _ := newTestPlayer(t, lib)
	p.Start()

	require.Empty(t, p.Visible())
	assert.False(t, p.Typing())

	clock.Advance(time.Second)
	require.Len(t, p.Visible(), 1)
	assert.True(t, p.Typing())

	clock.Advance(time.Second)
	require.Len(t, p.Visible(), 2)
	assert.False(t, p.Typing())
}

func TestPlayerDwellSettleAndAdvance(t *testing.T) {
	p, clock, _ := newTestPlayer(t, testLibrary())
	p.Start()
	clock.Advance(6 * time.Second) // first script fully revealed

	clock.Advance(DefaultDwell - time.Millisecond)
	assert.True(t, p.Snapshot().Shown)

	clock.Advance(time.Millisecond)
	snap := p.Snapshot()
	assert.False(t, snap.Shown)
	assert.Equal(t, PhaseTransitioning, snap.Phase)
	assert.Equal(t, 0, snap.ScriptIndex)

	clock.Advance(DefaultSettle)
	snap = p.Snapshot()
	assert.True(t, snap.Shown)
	assert.Equal(t, 1, snap.ScriptIndex)
	assert.Equal(t, "second", snap.ScriptName)
	assert.Empty(t, snap.Visible)
	assert.Equal(t, PhaseRevealing, snap.Phase)
}

func TestPlayerLoopsBackToFirstScript(t *testing.T) {
	lib := testLibrary()
	p, clock, _ := newTestPlayer(t, lib)
	p.Start()

	cycle := time.Duration(0)
	for _, s := range lib {
		cycle += s.Duration() + DefaultDwell + DefaultSettle
	}
	clock.Advance(cycle)

	snap := p.Snapshot()
	assert.Equal(t, 0, snap.ScriptIndex)
	assert.True(t, snap.Shown)
	require.Len(t, snap.Visible, 1)
	assert.Equal(t, "q1", snap.Visible[0].Content)
}

func TestPlayerVisibleIsMonotonicPrefix(t *testing.T) {
	lib := testLibrary()
	p, clock, rec := newTestPlayer(t, lib)
	p.Start()

	for i := 0; i < 400; i++ {
		clock.Advance(100 * time.Millisecond)
	}

	require.NotEmpty(t, rec.snaps)
	prev := rec.snaps[0]
	for _, snap := range rec.snaps {
		script := lib[snap.ScriptIndex]
		require.LessOrEqual(t, len(snap.Visible), script.Len())
		for k, msg := range snap.Visible {
			require.Equal(t, script.Messages[k].Content, msg.Content)
		}
		if snap.ScriptIndex == prev.ScriptIndex {
			require.GreaterOrEqual(t, len(snap.Visible), len(prev.Visible))
		} else {
			require.LessOrEqual(t, len(snap.Visible), 1)
		}
		prev = snap
	}
}

func TestPlayerNoPrematureReveal(t *testing.T) {
	lib := testLibrary()
	p, clock, rec := newTestPlayer(t, lib)
	p.Start()

	for i := 0; i < 400; i++ {
		clock.Advance(50 * time.Millisecond)
	}

	scriptStart := epoch
	lastScript := 0
	for i, snap := range rec.snaps {
		if snap.ScriptIndex != lastScript && snap.Phase == PhaseRevealing {
			scriptStart = rec.at[i]
			lastScript = snap.ScriptIndex
		}
		if !snap.Shown || len(snap.Visible) == 0 {
			continue
		}
		var due time.Duration
		for _, msg := range lib[snap.ScriptIndex].Messages[:len(snap.Visible)] {
			due += msg.Delay
		}
		assert.False(t, rec.at[i].Before(scriptStart.Add(due)),
			"script %d message %d visible at %v, due %v", snap.ScriptIndex, len(snap.Visible)-1, rec.at[i].Sub(scriptStart), due)
	}
}

func TestPlayerStopPreventsFurtherMutation(t *testing.T) {
	p, clock, rec := newTestPlayer(t, testLibrary())
	p.Start()
	clock.Advance(time.Second)
	before := p.Snapshot()
	notified := len(rec.snaps)

	p.Stop()
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, before, p.Snapshot())
	assert.Equal(t, notified, len(rec.snaps))
}

func TestPlayerStaleTimerIgnored(t *testing.T) {
	p, clock, rec := newTestPlayer(t, testLibrary())
	p.Start()

	// Simulate a timer from an earlier generation firing late.
	p.fire(0)
	assert.Len(t, p.Visible(), 1)

	clock.Advance(time.Second)
	assert.Len(t, p.Visible(), 2)
	assert.Equal(t, 1, clock.Pending())
	assert.NotEmpty(t, rec.snaps)
}

func TestPlayerStartIsIdempotent(t *testing.T) {
	p, clock, _ := newTestPlayer(t, testLibrary())
	p.Start()
	p.Start()
	assert.Equal(t, 1, clock.Pending())

	p.Stop()
	p.Start()
	assert.Equal(t, 0, clock.Pending())
}

func TestPlayerSkipsEmptyScript(t *testing.T) {
	lib := testLibrary()
	lib = Library{lib[0], {Name: "blank"}, lib[1]}
	p, clock, _ := newTestPlayer(t, lib)
	p.Start()

	clock.Advance(lib[0].Duration() + DefaultDwell + DefaultSettle)
	snap := p.Snapshot()
	assert.Equal(t, 2, snap.ScriptIndex)
	assert.Equal(t, "second", snap.ScriptName)
	assert.True(t, snap.Shown)
}

func TestPlayerCustomPacing(t *testing.T) {
	clock := NewFakeClock(epoch)
	p, err := NewPlayer(testLibrary(), WithClock(clock), WithDwell(time.Second), WithSettle(0))
	require.NoError(t, err)
	defer p.Stop()
	p.Start()

	clock.Advance(6 * time.Second)
	clock.Advance(time.Second)
	snap := p.Snapshot()
	assert.Equal(t, 1, snap.ScriptIndex)
	assert.True(t, snap.Shown)
}

func TestSnapshotVisibleIsCopy(t *testing.T) {
	p, clock, _ := newTestPlayer(t, testLibrary())
	p.Start()
	clock.Advance(3 * time.Second)

	visible := p.Visible()
	visible[2].ReferenceDocs[0] = "mutated"
	visible[0].Content = "mutated"

	again := p.Visible()
	assert.Equal(t, "doc-a", again[2].ReferenceDocs[0])
	assert.Equal(t, "q1", again[0].Content)
}
