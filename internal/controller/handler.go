package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/protocol"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/ctxlogger"
)

// serveWS upgrades the request and serves the connection until it closes.
// A participant belongs to no room until it sends JOIN.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	if err := c.sender.Add(conn); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register sender", "error", err)
		return
	}
	defer c.sender.Remove(conn)

	participantId, err := c.roomService.Connect(r.Context(), &room.ConnectParams{Conn: conn})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect participant", "error", err)
		return
	}

	ctx := context.WithValue(r.Context(), participantIdCtxKey, participantId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", participantId))
	defer c.disconnect(ctx, conn)

	c.logger.InfoContext(ctx, "participant connected")
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.logger.InfoContext(ctx, "connection closed unexpectedly", "error", err)
			return
		}
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	_, err := c.roomService.Disconnect(ctx, &room.DisconnectParams{
		Conn: conn,
		Publish: func(left *room.LeaveRoomResponse) {
			c.broadcastMembership(ctx, left, false)
		},
	})
	if err != nil && !errors.Is(err, room.ErrParticipantNotFound) {
		c.logger.WarnContext(ctx, "failed to disconnect participant", "error", err)
	}
}

func (c controller) broadcastMembership(ctx context.Context, left *room.LeaveRoomResponse, joined bool) {
	c.broadcast(ctx, left.Conns, &Output{
		Type: protocol.TypeMembershipUpdated,
		Payload: protocol.MembershipUpdatedPayload{
			MemberCount: left.MemberCount,
			DisplayName: left.Participant.DisplayName,
			Joined:      joined,
		},
	})
}
