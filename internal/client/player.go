package client

import (
	"context"

	"github.com/sharetube/jam/internal/domain"
)

type PlayState int

const (
	PlayStateUnstarted PlayState = iota
	PlayStatePlaying
	PlayStatePaused
	PlayStateBuffering
	PlayStateEnded
)

func (s PlayState) String() string {
	switch s {
	case PlayStateUnstarted:
		return "unstarted"
	case PlayStatePlaying:
		return "playing"
	case PlayStatePaused:
		return "paused"
	case PlayStateBuffering:
		return "buffering"
	case PlayStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Player is the local video element. Calls may fail at any time; the loop
// retries on its next tick.
type Player interface {
	Load(ctx context.Context, track domain.Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, position float64) error
	SetRate(ctx context.Context, rate float64) error

	Position(ctx context.Context) (float64, error)
	Duration(ctx context.Context) (float64, error)
	State(ctx context.Context) (PlayState, error)
}

// Emitter sends the participant's own actions to the room.
type Emitter interface {
	VideoAction(ctx context.Context, kind domain.EventKind, value float64) error
	PlayNext(ctx context.Context) error
}
