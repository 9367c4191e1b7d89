package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/protocol"
	"github.com/sharetube/jam/internal/service/room"
	"github.com/sharetube/jam/pkg/wsrouter"
)

// ignoreUnknownRoom turns actions sent outside a room into no-ops.
func (c controller) ignoreUnknownRoom(ctx context.Context, err error) error {
	if errors.Is(err, room.ErrRoomNotFound) {
		c.logger.DebugContext(ctx, "ignoring action outside of a room")
		return nil
	}

	return err
}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ protocol.EmptyPayload) error {
	return nil
}

func (c controller) handleJoin(ctx context.Context, conn *websocket.Conn, input protocol.JoinPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ParticipantID: participantId,
		DisplayName:   input.DisplayName,
		RoomKey:       input.RoomKey,
		Publish: func(resp *room.JoinRoomResponse) {
			c.writeToConn(ctx, conn, &Output{
				Type:    protocol.TypeSnapshot,
				Payload: resp.Snapshot,
			})

			c.broadcast(ctx, resp.Conns, &Output{
				Type: protocol.TypeMembershipUpdated,
				Payload: protocol.MembershipUpdatedPayload{
					MemberCount: resp.MemberCount,
					DisplayName: resp.Participant.DisplayName,
					Joined:      true,
				},
			})
		},
		PublishLeft: func(left *room.LeaveRoomResponse) {
			c.broadcastMembership(ctx, left, false)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return nil
}

func (c controller) handleVideoAction(ctx context.Context, conn *websocket.Conn, input protocol.VideoActionPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	event, err := domain.NewEvent(input.Kind, input.Value)
	if err != nil {
		return fmt.Errorf("%w: %w", wsrouter.ErrMalformedPayload, err)
	}

	videoActionResp, err := c.roomService.VideoAction(ctx, &room.VideoActionParams{
		ParticipantID: participantId,
		Event:         event,
		Publish: func(resp *room.VideoActionResponse) {
			switch resp.Outcome {
			case room.OutcomeApplied:
				c.broadcast(ctx, resp.Conns, &Output{
					Type:    protocol.TypeVideoAction,
					Payload: resp.Event,
				})
			case room.OutcomeDragged:
				c.broadcast(ctx, resp.Conns, &Output{
					Type:    protocol.TypePositionUpdated,
					Payload: protocol.PositionUpdatedPayload{Value: resp.Event.Value},
				})
			case room.OutcomeResync:
				c.writeToConn(ctx, conn, &Output{
					Type:    protocol.TypeSnapshot,
					Payload: resp.Snapshot,
				})
			}
		},
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	if videoActionResp.Outcome == room.OutcomeResync {
		c.logger.InfoContext(ctx, "rejected video action", "kind", event.Kind, "value", event.Value)
	}

	return nil
}

func (c controller) broadcastTrackChanged(ctx context.Context, resp *room.NavigationResponse) {
	c.broadcast(ctx, resp.Conns, &Output{
		Type:    protocol.TypeSnapshot,
		Payload: resp.Snapshot,
	})
	c.broadcast(ctx, resp.Conns, &Output{
		Type:    protocol.TypeTrackChanged,
		Payload: protocol.TrackChangedPayload{TrackID: resp.TrackID},
	})
}

func (c controller) handleChangeTrack(ctx context.Context, _ *websocket.Conn, input protocol.TrackPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.ChangeTrack(ctx, &room.ChangeTrackParams{
		ParticipantID: participantId,
		Track:         c.enrichTrack(ctx, input.Track.Domain()),
		Publish: func(resp *room.NavigationResponse) {
			c.broadcastTrackChanged(ctx, resp)
		},
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

func (c controller) handlePlayNext(ctx context.Context, conn *websocket.Conn, _ protocol.EmptyPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.PlayNext(ctx, &room.PlayNextParams{
		ParticipantID: participantId,
		Publish: func(resp *room.NavigationResponse) {
			if !resp.Changed {
				c.writeToConn(ctx, conn, &Output{Type: protocol.TypeQueueEmpty})
				return
			}
			c.broadcastTrackChanged(ctx, resp)
		},
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

func (c controller) handlePlayPrevious(ctx context.Context, _ *websocket.Conn, _ protocol.EmptyPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.PlayPrevious(ctx, &room.PlayPreviousParams{
		ParticipantID: participantId,
		Publish: func(resp *room.NavigationResponse) {
			if resp.Changed {
				c.broadcastTrackChanged(ctx, resp)
			}
		},
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

func (c controller) publishQueue(ctx context.Context) func(*room.QueueResponse) {
	return func(resp *room.QueueResponse) {
		c.broadcast(ctx, resp.Conns, &Output{
			Type: protocol.TypeQueueUpdated,
			Payload: protocol.QueueUpdatedPayload{
				Queue:       resp.Queue,
				CanPlayNext: resp.CanPlayNext,
			},
		})
	}
}

func (c controller) handleEnqueue(ctx context.Context, _ *websocket.Conn, input protocol.TrackPayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.Enqueue(ctx, &room.EnqueueParams{
		ParticipantID: participantId,
		Track:         c.enrichTrack(ctx, input.Track.Domain()),
		Publish:       c.publishQueue(ctx),
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

func (c controller) handleDequeue(ctx context.Context, _ *websocket.Conn, input protocol.DequeuePayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	_, err := c.roomService.Dequeue(ctx, &room.DequeueParams{
		ParticipantID: participantId,
		Index:         input.Index,
		Publish:       c.publishQueue(ctx),
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

func (c controller) handleReorderQueue(ctx context.Context, _ *websocket.Conn, input protocol.ReorderQueuePayload) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	queue := make([]domain.Track, 0, len(input.Queue))
	for _, t := range input.Queue {
		queue = append(queue, t.Domain())
	}

	_, err := c.roomService.ReorderQueue(ctx, &room.ReorderQueueParams{
		ParticipantID: participantId,
		Queue:         queue,
		Publish:       c.publishQueue(ctx),
	})
	if err != nil {
		return c.ignoreUnknownRoom(ctx, err)
	}

	return nil
}

// enrichTrack fills in missing metadata. Lookup failures keep the bare track.
func (c controller) enrichTrack(ctx context.Context, track domain.Track) domain.Track {
	if c.trackResolver == nil || track.Title != "" {
		return track
	}

	lookupCtx := ctx
	if c.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, c.cfg.LookupTimeout)
		defer cancel()
	}

	info, err := c.trackResolver.Lookup(lookupCtx, track.ID)
	if err != nil {
		c.logger.DebugContext(ctx, "failed to look up track", "track_id", track.ID, "error", err)
		return track
	}

	track.Title = info.Title
	if track.ThumbnailURL == "" {
		track.ThumbnailURL = info.ThumbnailURL
	}

	return track
}
