package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/repository/connection"
)

type repo struct {
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, participantID string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "participant_id", participantID)
	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.idList[participantID]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = participantID
	r.idList[participantID] = conn

	return nil
}

// RemoveByConn forgets conn and returns the participant it belonged to.
func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	participantID, ok := r.connList[conn]
	if !ok {
		r.logger.Debug(funcName, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, participantID)

	r.logger.Debug(funcName, "participant_id", participantID)
	return participantID, nil
}

func (r *repo) GetParticipantID(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participantID, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return participantID, nil
}

func (r *repo) GetConn(participantID string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[participantID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// GetConns resolves the connections of participantIDs, skipping the ones
// that are already gone.
func (r *repo) GetConns(participantIDs []string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(participantIDs))
	for _, id := range participantIDs {
		if conn, ok := r.idList[id]; ok {
			conns = append(conns, conn)
		}
	}

	return conns
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connList)
}
