package client

import (
	"time"

	"github.com/sharetube/jam/internal/domain"
)

// authority is the participant's model of the room timeline. It is anchored
// to the local clock on receipt, so server clock skew never enters it.
type authority struct {
	timeline domain.Timeline
	track    *domain.Track
	known    bool
}

func (a *authority) trackID() string {
	if a.track == nil {
		return ""
	}
	return a.track.ID
}

func (a *authority) set(videoTime float64, isPlaying bool, now time.Time) {
	a.timeline = domain.Timeline{VideoTime: videoTime, IsPlaying: isPlaying, LastUpdate: now}
	a.known = true
}

func (a *authority) position(now time.Time) float64 {
	return a.timeline.Position(now)
}
