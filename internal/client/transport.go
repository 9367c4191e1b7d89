package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/protocol"
)

var ErrUnknownUpdate = errors.New("unknown update type")

const writeWait = 10 * time.Second

// Conn is the participant's websocket to the room server. Writes are
// serialized; reads belong to ReadInputs.
type Conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	logger *slog.Logger
}

func Dial(ctx context.Context, url string, logger *slog.Logger) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &Conn{ws: ws, logger: logger}, nil
}

func (c *Conn) send(msgType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	if err := c.ws.WriteJSON(protocol.Message[any]{Type: msgType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return nil
}

func (c *Conn) Join(_ context.Context, roomKey, displayName string) error {
	return c.send(protocol.TypeJoin, protocol.JoinPayload{RoomKey: roomKey, DisplayName: displayName})
}

func (c *Conn) VideoAction(_ context.Context, kind domain.EventKind, value float64) error {
	return c.send(protocol.TypeVideoAction, protocol.VideoActionPayload{Kind: string(kind), Value: value})
}

func (c *Conn) ChangeTrack(_ context.Context, track domain.Track) error {
	return c.send(protocol.TypeChangeTrack, protocol.TrackPayload{Track: protocol.FromDomain(track)})
}

func (c *Conn) PlayNext(_ context.Context) error {
	return c.send(protocol.TypePlayNext, nil)
}

func (c *Conn) PlayPrevious(_ context.Context) error {
	return c.send(protocol.TypePlayPrevious, nil)
}

func (c *Conn) Enqueue(_ context.Context, track domain.Track) error {
	return c.send(protocol.TypeEnqueue, protocol.TrackPayload{Track: protocol.FromDomain(track)})
}

func (c *Conn) Dequeue(_ context.Context, index int) error {
	return c.send(protocol.TypeDequeue, protocol.DequeuePayload{Index: index})
}

func (c *Conn) ReorderQueue(_ context.Context, queue []domain.Track) error {
	tracks := make([]protocol.Track, 0, len(queue))
	for _, t := range queue {
		tracks = append(tracks, protocol.FromDomain(t))
	}

	return c.send(protocol.TypeReorderQueue, protocol.ReorderQueuePayload{Queue: tracks})
}

// ReadInputs forwards server messages to out until the connection fails or
// ctx is done. Unknown or malformed messages are skipped.
func (c *Conn) ReadInputs(ctx context.Context, out chan<- Input) error {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}

		in, err := decodeInput(data)
		if err != nil {
			c.logger.DebugContext(ctx, "skipping server message", "error", err)
			continue
		}

		select {
		case out <- in:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.mu.Unlock()

	return c.ws.Close()
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func decodeInput(data []byte) (Input, error) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case protocol.TypeSnapshot:
		var s domain.Snapshot
		if err := json.Unmarshal(msg.Payload, &s); err != nil {
			return nil, err
		}
		return SnapshotInput{Snapshot: s}, nil
	case protocol.TypeVideoAction:
		var p protocol.VideoActionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		e, err := domain.NewEvent(p.Kind, p.Value)
		if err != nil {
			return nil, err
		}
		return ActionInput{Event: e}, nil
	case protocol.TypePositionUpdated:
		var p protocol.PositionUpdatedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		return PositionInput{Value: p.Value}, nil
	case protocol.TypeTrackChanged:
		var p protocol.TrackChangedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		return TrackChangedInput{TrackID: p.TrackID}, nil
	case protocol.TypeQueueUpdated:
		var p protocol.QueueUpdatedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		return QueueInput{Queue: p.Queue, CanPlayNext: p.CanPlayNext}, nil
	case protocol.TypeQueueEmpty:
		return QueueEmptyInput{}, nil
	case protocol.TypeMembershipUpdated:
		var p protocol.MembershipUpdatedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, err
		}
		return MembershipInput{MemberCount: p.MemberCount, DisplayName: p.DisplayName, Joined: p.Joined}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownUpdate, msg.Type)
	}
}
