package room

import (
	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/domain"
)

type RoomSummary struct {
	Key          string        `json:"key"`
	MemberCount  int           `json:"member_count"`
	IsPlaying    bool          `json:"is_playing"`
	CurrentTrack *domain.Track `json:"current_track"`
}

type ConnectParams struct {
	Conn *websocket.Conn
}

// Publish hooks run with the room still locked, right after the change they
// report. Messages queued from them reach members in the order the room
// changed. They must not block.

type DisconnectParams struct {
	Conn    *websocket.Conn
	Publish func(*LeaveRoomResponse)
}

type DisconnectResponse struct {
	ParticipantID string
	// Left is nil when the participant never joined a room.
	Left *LeaveRoomResponse
}

type JoinRoomParams struct {
	ParticipantID string
	DisplayName   string
	RoomKey       string
	Publish       func(*JoinRoomResponse)
	// PublishLeft reports leaving the previous room.
	PublishLeft func(*LeaveRoomResponse)
}

type JoinRoomResponse struct {
	Participant domain.Participant
	Snapshot    domain.Snapshot
	MemberCount int
	Created     bool
	// Conns holds every member of the room, the joiner included.
	Conns      []*websocket.Conn
	SenderConn *websocket.Conn
	// Left is set when joining moved the participant out of another room.
	Left *LeaveRoomResponse
}

type LeaveRoomParams struct {
	ParticipantID string
	Publish       func(*LeaveRoomResponse)
}

type LeaveRoomResponse struct {
	RoomKey     string
	Participant domain.Participant
	MemberCount int
	Conns       []*websocket.Conn
}

type VideoActionParams struct {
	ParticipantID string
	Event         domain.Event
	Publish       func(*VideoActionResponse)
}

type VideoActionResponse struct {
	Outcome Outcome
	Event   domain.Event
	// Snapshot is what the sender must resync to when Outcome is OutcomeResync.
	Snapshot domain.Snapshot
	// Conns holds the other members of the room.
	Conns      []*websocket.Conn
	SenderConn *websocket.Conn
}

type ChangeTrackParams struct {
	ParticipantID string
	Track         domain.Track
	Publish       func(*NavigationResponse)
}

type PlayNextParams struct {
	ParticipantID string
	Publish       func(*NavigationResponse)
}

type PlayPreviousParams struct {
	ParticipantID string
	Publish       func(*NavigationResponse)
}

type NavigationResponse struct {
	// Changed is false when there was nothing to navigate to.
	Changed  bool
	Snapshot domain.Snapshot
	// TrackID is empty when navigation landed on "no track".
	TrackID    string
	Conns      []*websocket.Conn
	SenderConn *websocket.Conn
}

type EnqueueParams struct {
	ParticipantID string
	Track         domain.Track
	Publish       func(*QueueResponse)
}

type DequeueParams struct {
	ParticipantID string
	Index         int
	Publish       func(*QueueResponse)
}

type ReorderQueueParams struct {
	ParticipantID string
	Queue         []domain.Track
	Publish       func(*QueueResponse)
}

type QueueResponse struct {
	Queue       []domain.Track
	CanPlayNext bool
	Conns       []*websocket.Conn
}
