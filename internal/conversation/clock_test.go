package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	clock := NewFakeClock(epoch)
	var order []string
	clock.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clock.AfterFunc(time.Second, func() { order = append(order, "a") })
	clock.AfterFunc(2*time.Second, func() { order = append(order, "c") })

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(2500*time.Millisecond), clock.Now())
}

func TestFakeClockChainedCallbacks(t *testing.T) {
	clock := NewFakeClock(epoch)
	var fired []time.Time
	var schedule func()
	schedule = func() {
		fired = append(fired, clock.Now())
		if len(fired) < 3 {
			clock.AfterFunc(time.Second, schedule)
		}
	}
	clock.AfterFunc(time.Second, schedule)

	clock.Advance(10 * time.Second)
	require.Len(t, fired, 3)
	assert.Equal(t, epoch.Add(3*time.Second), fired[2])
}

func TestFakeTimerStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	called := false
	timer := clock.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	clock.Advance(time.Minute)
	assert.False(t, called)
	assert.Equal(t, 0, clock.Pending())
}
