package room

import (
	"github.com/gorilla/websocket"
)

// lockParticipantRoom returns the locked room the participant is in.
// The caller must unlock it and must not block while holding it. Registry
// locks are taken before room locks, never the other way round.
func (s service) lockParticipantRoom(participantID string) (*roomEntry, error) {
	key, ok := s.rooms.roomOf(participantID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	e, ok := s.rooms.get(key)
	if !ok {
		return nil, ErrRoomNotFound
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrRoomNotFound
	}

	return e, nil
}

func (s service) getConn(participantID string) *websocket.Conn {
	conn, err := s.connRepo.GetConn(participantID)
	if err != nil {
		s.logger.Debug("room.getConn", "participant_id", participantID, "error", err)
		return nil
	}

	return conn
}
