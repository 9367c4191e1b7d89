package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/pkg/validator"
)

var (
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrUnknownMessageType = errors.New("unknown message type")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type route struct {
	decode  func(json.RawMessage) (any, error)
	handler HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	validate    *validator.Validator
	logger      *slog.Logger
}

func New(validate *validator.Validator, logger *slog.Logger) *WSRouter {
	return &WSRouter{
		routes:   make(map[string]route),
		validate: validate,
		logger:   logger,
	}
}

// Use appends middlewares; they wrap every handler registered afterwards too.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// Handle registers handler for messageType. The payload is decoded into T and
// validated before the middleware chain runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var payload T
			if len(raw) > 0 && string(raw) != "null" {
				if err := json.Unmarshal(raw, &payload); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
				}
			}

			if r.validate != nil {
				if err := r.validate.Struct(payload); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
				}
			}

			return payload, nil
		},
		handler: func(ctx context.Context, conn *websocket.Conn, payload any) error {
			return handler(ctx, conn, payload.(T))
		},
	}
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// Dispatch routes a single raw frame. Errors are returned to the caller, which
// decides whether the connection survives them.
func (r *WSRouter) Dispatch(ctx context.Context, conn *websocket.Conn, data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	rt, ok := r.routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	payload, err := rt.decode(msg.Payload)
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)
	return r.chain(rt.handler)(ctx, conn, payload)
}

// ServeConn reads frames until the connection fails. Handler errors are logged
// and never close the connection.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := r.Dispatch(ctx, conn, data); err != nil {
			level := slog.LevelInfo
			if errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrUnknownMessageType) {
				level = slog.LevelWarn
			}
			r.logger.Log(ctx, level, "failed to handle websocket message", "error", err)
		}
	}
}
