package domain

import "time"

// Room is the synchronized state of one room. It is not safe for concurrent use.
type Room struct {
	Timeline Timeline
	Nav      *Navigation
}

// NewRoom returns the state of a freshly created room: no track, paused, empty stacks.
func NewRoom(now time.Time, queueLimit int) *Room {
	return &Room{
		Timeline: NewTimeline(now),
		Nav:      NewNavigation(queueLimit),
	}
}

type Snapshot struct {
	CurrentTrack    *Track  `json:"current_track"`
	VideoTime       float64 `json:"video_time"`
	IsPlaying       bool    `json:"is_playing"`
	Queue           []Track `json:"queue"`
	CanPlayPrevious bool    `json:"can_play_previous"`
	CanPlayNext     bool    `json:"can_play_next"`
	// ServerTime is the unix time in milliseconds VideoTime was computed for.
	ServerTime int64 `json:"server_time"`
}

// Snapshot returns the room state with VideoTime already extrapolated to at.
func (r *Room) Snapshot(at time.Time) Snapshot {
	return Snapshot{
		CurrentTrack:    r.Nav.Current(),
		VideoTime:       r.Timeline.Position(at),
		IsPlaying:       r.Timeline.IsPlaying,
		Queue:           r.Nav.Queue(),
		CanPlayPrevious: r.Nav.CanPrevious(),
		CanPlayNext:     r.Nav.CanNext(),
		ServerTime:      at.UnixMilli(),
	}
}
