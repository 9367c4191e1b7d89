// Package protocol holds the websocket message types and payloads exchanged
// between room participants and the server.
package protocol

import "github.com/sharetube/jam/internal/domain"

// client -> server
const (
	TypeJoin         = "JOIN"
	TypeVideoAction  = "VIDEO_ACTION"
	TypeChangeTrack  = "CHANGE_TRACK"
	TypePlayNext     = "PLAY_NEXT"
	TypePlayPrevious = "PLAY_PREVIOUS"
	TypeEnqueue      = "ENQUEUE"
	TypeDequeue      = "DEQUEUE"
	TypeReorderQueue = "REORDER_QUEUE"
	TypeAlive        = "ALIVE"
)

// server -> client
const (
	TypeSnapshot          = "SNAPSHOT"
	TypePositionUpdated   = "POSITION_UPDATED"
	TypeTrackChanged      = "TRACK_CHANGED"
	TypeQueueUpdated      = "QUEUE_UPDATED"
	TypeQueueEmpty        = "QUEUE_EMPTY"
	TypeMembershipUpdated = "MEMBERSHIP_UPDATED"
)

type Message[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type Track struct {
	ID           string `json:"id" validate:"required,max=64"`
	Title        string `json:"title" validate:"max=256"`
	ThumbnailURL string `json:"thumbnail_url" validate:"max=1024"`
}

func (t Track) Domain() domain.Track {
	return domain.Track{ID: t.ID, Title: t.Title, ThumbnailURL: t.ThumbnailURL}
}

func FromDomain(t domain.Track) Track {
	return Track{ID: t.ID, Title: t.Title, ThumbnailURL: t.ThumbnailURL}
}

type EmptyPayload struct{}

type JoinPayload struct {
	RoomKey     string `json:"room_key" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

type VideoActionPayload struct {
	Kind  string  `json:"kind" validate:"required,oneof=play pause seek heartbeat"`
	Value float64 `json:"value" validate:"gte=0"`
}

type TrackPayload struct {
	Track Track `json:"track" validate:"required"`
}

type DequeuePayload struct {
	Index int `json:"index" validate:"gte=0"`
}

type ReorderQueuePayload struct {
	Queue []Track `json:"queue" validate:"dive"`
}

type PositionUpdatedPayload struct {
	Value float64 `json:"value"`
}

type TrackChangedPayload struct {
	TrackID string `json:"track_id"`
}

type QueueUpdatedPayload struct {
	Queue       []domain.Track `json:"queue"`
	CanPlayNext bool           `json:"can_play_next"`
}

type MembershipUpdatedPayload struct {
	MemberCount int    `json:"member_count"`
	DisplayName string `json:"display_name"`
	Joined      bool   `json:"joined"`
}
