package wsrouter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	Value float64 `json:"value" validate:"gte=0"`
}

func TestDispatch(t *testing.T) {
	r := New(validator.NewValidator(), slog.Default())

	var calls []string
	r.Use(func(next HandlerFunc[any]) HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			calls = append(calls, "mw:"+GetMessageTypeFromCtx(ctx))
			return next(ctx, conn, payload)
		}
	})

	var got seekInput
	Handle(r, "SEEK", func(_ context.Context, _ *websocket.Conn, input seekInput) error {
		calls = append(calls, "handler")
		got = input
		return nil
	})

	err := r.Dispatch(context.Background(), &websocket.Conn{}, []byte(`{"type":"SEEK","payload":{"value":12.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 12.5, got.Value)
	assert.Equal(t, []string{"mw:SEEK", "handler"}, calls)
}

func TestDispatchRejectsBadFrames(t *testing.T) {
	r := New(validator.NewValidator(), slog.Default())

	called := false
	Handle(r, "SEEK", func(context.Context, *websocket.Conn, seekInput) error {
		called = true
		return nil
	})

	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformedPayload},
		{"bad payload type", `{"type":"SEEK","payload":{"value":"x"}}`, ErrMalformedPayload},
		{"failed validation", `{"type":"SEEK","payload":{"value":-3}}`, ErrMalformedPayload},
		{"unknown type", `{"type":"REWIND","payload":{}}`, ErrUnknownMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Dispatch(context.Background(), &websocket.Conn{}, []byte(tt.data))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.False(t, called)
}

func TestDispatchEmptyPayload(t *testing.T) {
	r := New(validator.NewValidator(), slog.Default())

	type empty struct{}
	called := false
	Handle(r, "PLAY_NEXT", func(context.Context, *websocket.Conn, empty) error {
		called = true
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), &websocket.Conn{}, []byte(`{"type":"PLAY_NEXT"}`)))
	assert.True(t, called)
}

func TestGetMessageTypeFromEmptyCtx(t *testing.T) {
	assert.Equal(t, "", GetMessageTypeFromCtx(context.Background()))
}
