package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sharetube/jam/internal/domain"
	"github.com/sharetube/jam/internal/repository/connection"
)

// Connect registers a fresh connection and returns the participant id assigned to it.
func (s service) Connect(ctx context.Context, params *ConnectParams) (string, error) {
	participantID := uuid.NewString()
	if err := s.connRepo.Add(params.Conn, participantID); err != nil {
		return "", fmt.Errorf("failed to add conn: %w", err)
	}

	s.logger.DebugContext(ctx, "room.Connect", "participant_id", participantID)
	return participantID, nil
}

// Disconnect forgets the connection and takes its participant out of its room.
func (s service) Disconnect(ctx context.Context, params *DisconnectParams) (DisconnectResponse, error) {
	participantID, err := s.connRepo.RemoveByConn(params.Conn)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return DisconnectResponse{}, ErrParticipantNotFound
		}
		return DisconnectResponse{}, fmt.Errorf("failed to remove conn: %w", err)
	}

	resp := DisconnectResponse{ParticipantID: participantID}
	left, err := s.LeaveRoom(ctx, &LeaveRoomParams{ParticipantID: participantID, Publish: params.Publish})
	switch {
	case err == nil:
		resp.Left = &left
	case errors.Is(err, ErrNotInRoom):
	default:
		return resp, fmt.Errorf("failed to leave room: %w", err)
	}

	return resp, nil
}

// JoinRoom puts the participant into the room, creating it on first use.
// Joining while in another room leaves that room first; joining the same
// room again only refreshes the display name and snapshot.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	funcName := "room.JoinRoom"
	s.logger.DebugContext(ctx, funcName, "participant_id", params.ParticipantID, "room_key", params.RoomKey)

	var resp JoinRoomResponse
	prev, hadPrev := s.rooms.roomOf(params.ParticipantID)
	if hadPrev && prev != params.RoomKey {
		left, err := s.LeaveRoom(ctx, &LeaveRoomParams{ParticipantID: params.ParticipantID, Publish: params.PublishLeft})
		if err != nil && !errors.Is(err, ErrNotInRoom) {
			return JoinRoomResponse{}, fmt.Errorf("failed to leave previous room: %w", err)
		}
		if err == nil {
			resp.Left = &left
		}
	}

	participant := domain.Participant{
		ID:          params.ParticipantID,
		DisplayName: params.DisplayName,
		RoomKey:     params.RoomKey,
	}

	for {
		now := s.now()
		e, created := s.rooms.getOrCreate(params.RoomKey, now, s.cfg.QueueLimit)

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			continue
		}

		e.members[participant.ID] = participant
		e.lastActive = now
		resp.Created = created
		resp.Snapshot = e.state.Snapshot(now)
		resp.MemberCount = len(e.members)
		resp.Participant = participant
		resp.Conns = s.connRepo.GetConns(e.memberIDs(""))
		resp.SenderConn = s.getConn(participant.ID)
		if params.Publish != nil {
			params.Publish(&resp)
		}
		e.mu.Unlock()
		break
	}
	s.rooms.bind(participant.ID, params.RoomKey)
	s.reportSize()

	s.logger.InfoContext(ctx, "participant joined room",
		"room_key", params.RoomKey,
		"participant_id", participant.ID,
		"member_count", resp.MemberCount,
		"created", resp.Created,
	)
	return resp, nil
}

func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	key, ok := s.rooms.unbind(params.ParticipantID)
	if !ok {
		return LeaveRoomResponse{}, ErrNotInRoom
	}

	resp := LeaveRoomResponse{RoomKey: key}
	if e, ok := s.rooms.get(key); ok {
		e.mu.Lock()
		if !e.closed {
			resp.Participant = e.members[params.ParticipantID]
			delete(e.members, params.ParticipantID)
			e.lastActive = s.now()
			resp.MemberCount = len(e.members)
			resp.Conns = s.connRepo.GetConns(e.memberIDs(""))
			if params.Publish != nil {
				params.Publish(&resp)
			}
		}
		e.mu.Unlock()
	}

	s.reportSize()

	s.logger.InfoContext(ctx, "participant left room",
		"room_key", key,
		"participant_id", params.ParticipantID,
		"member_count", resp.MemberCount,
	)
	return resp, nil
}
