package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTimelinePosition(t *testing.T) {
	tl := Timeline{VideoTime: 10, IsPlaying: true, LastUpdate: t0}

	assert.InDelta(t, 10.0, tl.Position(t0), 1e-9)
	assert.InDelta(t, 13.5, tl.Position(t0.Add(3500*time.Millisecond)), 1e-9)
	assert.InDelta(t, 10.0, tl.Position(t0.Add(-time.Second)), 1e-9, "clock going backwards must not rewind")

	tl.IsPlaying = false
	assert.InDelta(t, 10.0, tl.Position(t0.Add(time.Hour)), 1e-9)
}

func TestTimelinePositionIsMonotonicWhilePlaying(t *testing.T) {
	tl := Timeline{VideoTime: 0, IsPlaying: true, LastUpdate: t0}

	prev := tl.Position(t0)
	for i := 1; i <= 100; i++ {
		p := tl.Position(t0.Add(time.Duration(i) * 37 * time.Millisecond))
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestTimelineApply(t *testing.T) {
	tl := NewTimeline(t0)
	assert.False(t, tl.IsPlaying)

	now := t0.Add(time.Second)
	tl.Apply(Event{Kind: EventPlay, Value: 5}, now)
	assert.Equal(t, Timeline{VideoTime: 5, IsPlaying: true, LastUpdate: now}, tl)

	now = now.Add(time.Second)
	tl.Apply(Event{Kind: EventSeek, Value: 42}, now)
	assert.Equal(t, Timeline{VideoTime: 42, IsPlaying: true, LastUpdate: now}, tl, "seek keeps play state")

	now = now.Add(time.Second)
	tl.Apply(Event{Kind: EventPause, Value: 43}, now)
	assert.Equal(t, Timeline{VideoTime: 43, IsPlaying: false, LastUpdate: now}, tl)

	now = now.Add(time.Second)
	tl.Apply(Event{Kind: EventHeartbeat, Value: 50}, now)
	assert.False(t, tl.IsPlaying, "heartbeat never toggles play state")
	assert.Equal(t, 50.0, tl.VideoTime)
}

func TestTimelineReset(t *testing.T) {
	tl := Timeline{VideoTime: 99, IsPlaying: false, LastUpdate: t0}
	now := t0.Add(time.Minute)
	tl.Reset(now)
	assert.Equal(t, Timeline{VideoTime: 0, IsPlaying: true, LastUpdate: now}, tl)
}
