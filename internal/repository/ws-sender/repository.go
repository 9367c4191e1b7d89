package wssender

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrBufferFull    = errors.New("send buffer full")
)

type iMetrics interface {
	MessageDropped()
}

type outbox struct {
	ch   chan []byte
	done chan struct{}
}

// Repo owns the write side of every registered connection. Each connection
// gets a single writer goroutine, so callers never block on a slow client.
type Repo struct {
	mu           sync.Mutex
	outboxes     map[*websocket.Conn]*outbox
	bufferSize   int
	writeTimeout time.Duration
	metrics      iMetrics
	logger       *slog.Logger
}

func NewRepo(bufferSize int, writeTimeout time.Duration, metrics iMetrics, logger *slog.Logger) *Repo {
	return &Repo{
		outboxes:     make(map[*websocket.Conn]*outbox),
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

func (r *Repo) Add(conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.outboxes[conn]; ok {
		return ErrAlreadyExists
	}

	ob := &outbox{
		ch:   make(chan []byte, r.bufferSize),
		done: make(chan struct{}),
	}
	r.outboxes[conn] = ob
	go r.pump(conn, ob)

	return nil
}

// Remove stops the writer of conn after it has flushed what is already queued.
func (r *Repo) Remove(conn *websocket.Conn) error {
	r.mu.Lock()
	ob, ok := r.outboxes[conn]
	if ok {
		delete(r.outboxes, conn)
		close(ob.ch)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	<-ob.done
	return nil
}

// Send queues v for conn without waiting for the network.
func (r *Repo) Send(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ob, ok := r.outboxes[conn]
	if !ok {
		return ErrNotFound
	}

	select {
	case ob.ch <- data:
		return nil
	default:
		if r.metrics != nil {
			r.metrics.MessageDropped()
		}
		return ErrBufferFull
	}
}

func (r *Repo) pump(conn *websocket.Conn, ob *outbox) {
	defer close(ob.done)

	for data := range ob.ch {
		if r.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
		}

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			r.logger.Debug("wssender.pump", "error", err)
			// discard the rest until Remove closes the outbox
			for range ob.ch {
			}
			return
		}
	}
}
