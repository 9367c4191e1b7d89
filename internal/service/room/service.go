package room

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotInRoom           = errors.New("participant is not in a room")
)

const (
	DefaultPlayLagTolerance        = 2.0
	DefaultHeartbeatDeadband       = 1.0
	DefaultHeartbeatRogueThreshold = 6.0
)

type iConnRepo interface {
	Add(conn *websocket.Conn, participantID string) error
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetConn(participantID string) (*websocket.Conn, error)
	GetConns(participantIDs []string) []*websocket.Conn
}

type iMetrics interface {
	VideoAction(kind, outcome string)
	Navigation(op, result string)
	SetRooms(n int)
	SetParticipants(n int)
	RoomsEvicted(n int)
}

type Config struct {
	// PlayLagTolerance is how far, in seconds, a play report may trail the
	// room position while the room is already playing.
	PlayLagTolerance float64
	// HeartbeatDeadband: heartbeats ahead of the room by at most this are ignored.
	HeartbeatDeadband float64
	// HeartbeatRogueThreshold: heartbeats ahead of the room by this much or more
	// are rejected. 0 accepts any heartbeat past the deadband.
	HeartbeatRogueThreshold float64
	// QueueLimit caps the queue length; 0 disables the cap.
	QueueLimit int
	// RoomIdleTTL is how long an empty room survives; 0 keeps rooms forever.
	RoomIdleTTL time.Duration
	Now         func() time.Time
}

// DefaultConfig holds the stock reconciliation thresholds. Zero values in a
// Config are taken literally.
func DefaultConfig() Config {
	return Config{
		PlayLagTolerance:        DefaultPlayLagTolerance,
		HeartbeatDeadband:       DefaultHeartbeatDeadband,
		HeartbeatRogueThreshold: DefaultHeartbeatRogueThreshold,
	}
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

type service struct {
	rooms    *registry
	connRepo iConnRepo
	metrics  iMetrics
	cfg      Config
	logger   *slog.Logger
}

func NewService(connRepo iConnRepo, metrics iMetrics, cfg *Config, logger *slog.Logger) *service {
	return &service{
		rooms:    newRegistry(),
		connRepo: connRepo,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

func (s service) now() time.Time {
	return s.cfg.Now()
}

func (s service) reportSize() {
	rooms, participants := s.rooms.size()
	s.metrics.SetRooms(rooms)
	s.metrics.SetParticipants(participants)
}
