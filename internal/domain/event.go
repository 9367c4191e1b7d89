package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownEventKind  = errors.New("unknown event kind")
	ErrInvalidEventValue = errors.New("invalid event value")
)

type EventKind string

const (
	EventPlay      EventKind = "play"
	EventPause     EventKind = "pause"
	EventSeek      EventKind = "seek"
	EventHeartbeat EventKind = "heartbeat"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventPlay, EventPause, EventSeek, EventHeartbeat:
		return true
	}
	return false
}

// Event is a playback report from a participant. Value is the sender's
// player position in seconds. Build it with NewEvent.
type Event struct {
	Kind  EventKind `json:"kind"`
	Value float64   `json:"value"`
}

func NewEvent(kind string, value float64) (Event, error) {
	k := EventKind(kind)
	if !k.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEventValue, value)
	}

	return Event{Kind: k, Value: value}, nil
}
