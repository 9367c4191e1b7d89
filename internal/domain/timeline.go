package domain

import "time"

// Timeline is the authoritative playback clock of a room.
// While playing the position advances with wall time from LastUpdate.
type Timeline struct {
	VideoTime  float64
	IsPlaying  bool
	LastUpdate time.Time
}

func NewTimeline(now time.Time) Timeline {
	return Timeline{LastUpdate: now}
}

// Position extrapolates the playback position at t. A t earlier than
// LastUpdate is treated as LastUpdate, so the result never goes backwards.
func (t Timeline) Position(at time.Time) float64 {
	if !t.IsPlaying {
		return t.VideoTime
	}

	elapsed := at.Sub(t.LastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return t.VideoTime + elapsed
}

// Apply mutates the timeline for an already accepted event.
func (t *Timeline) Apply(e Event, now time.Time) {
	switch e.Kind {
	case EventPlay:
		t.IsPlaying = true
	case EventPause:
		t.IsPlaying = false
	case EventSeek, EventHeartbeat:
	}

	t.VideoTime = e.Value
	t.LastUpdate = now
}

// Reset starts a new track from zero in the playing state.
func (t *Timeline) Reset(now time.Time) {
	t.VideoTime = 0
	t.IsPlaying = true
	t.LastUpdate = now
}
