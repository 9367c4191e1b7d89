package room

import (
	"context"
	"fmt"

	"github.com/sharetube/jam/internal/domain"
)

// navigate runs move on the participant's room and, when the current track
// changed, restarts the timeline and addresses the result to the whole room.
func (s service) navigate(ctx context.Context, op, participantID string, move func(*domain.Navigation) bool, publish func(*NavigationResponse)) (NavigationResponse, error) {
	s.logger.DebugContext(ctx, "room."+op, "participant_id", participantID)

	e, err := s.lockParticipantRoom(participantID)
	if err != nil {
		return NavigationResponse{}, err
	}

	now := s.now()
	var resp NavigationResponse
	var recipients []string
	if move(e.state.Nav) {
		e.state.Timeline.Reset(now)
		e.lastActive = now
		resp.Changed = true
		resp.Snapshot = e.state.Snapshot(now)
		if resp.Snapshot.CurrentTrack != nil {
			resp.TrackID = resp.Snapshot.CurrentTrack.ID
		}
		recipients = e.memberIDs("")
	}

	resp.Conns = s.connRepo.GetConns(recipients)
	resp.SenderConn = s.getConn(participantID)
	if publish != nil {
		publish(&resp)
	}
	e.mu.Unlock()

	result := "changed"
	if !resp.Changed {
		result = "noop"
	}
	s.metrics.Navigation(op, result)

	return resp, nil
}

func (s service) ChangeTrack(ctx context.Context, params *ChangeTrackParams) (NavigationResponse, error) {
	return s.navigate(ctx, "change_track", params.ParticipantID, func(n *domain.Navigation) bool {
		n.Change(params.Track)
		return true
	}, params.Publish)
}

// PlayNext moves forward. An unchanged response means the queue was empty;
// only the sender should be told.
func (s service) PlayNext(ctx context.Context, params *PlayNextParams) (NavigationResponse, error) {
	return s.navigate(ctx, "play_next", params.ParticipantID, func(n *domain.Navigation) bool {
		_, ok := n.Next()
		return ok
	}, params.Publish)
}

func (s service) PlayPrevious(ctx context.Context, params *PlayPreviousParams) (NavigationResponse, error) {
	return s.navigate(ctx, "play_previous", params.ParticipantID, func(n *domain.Navigation) bool {
		_, ok := n.Previous()
		return ok
	}, params.Publish)
}

func (s service) mutateQueue(ctx context.Context, op, participantID string, mutate func(*domain.Navigation) error, publish func(*QueueResponse)) (QueueResponse, error) {
	s.logger.DebugContext(ctx, "room."+op, "participant_id", participantID)

	e, err := s.lockParticipantRoom(participantID)
	if err != nil {
		return QueueResponse{}, err
	}

	if err := mutate(e.state.Nav); err != nil {
		e.mu.Unlock()
		s.metrics.Navigation(op, "rejected")
		return QueueResponse{}, fmt.Errorf("failed to %s: %w", op, err)
	}

	e.lastActive = s.now()
	resp := QueueResponse{
		Queue:       e.state.Nav.Queue(),
		CanPlayNext: e.state.Nav.CanNext(),
	}
	resp.Conns = s.connRepo.GetConns(e.memberIDs(""))
	if publish != nil {
		publish(&resp)
	}
	e.mu.Unlock()
	s.metrics.Navigation(op, "changed")

	return resp, nil
}

func (s service) Enqueue(ctx context.Context, params *EnqueueParams) (QueueResponse, error) {
	return s.mutateQueue(ctx, "enqueue", params.ParticipantID, func(n *domain.Navigation) error {
		return n.Enqueue(params.Track)
	}, params.Publish)
}

func (s service) Dequeue(ctx context.Context, params *DequeueParams) (QueueResponse, error) {
	return s.mutateQueue(ctx, "dequeue", params.ParticipantID, func(n *domain.Navigation) error {
		_, err := n.DequeueAt(params.Index)
		return err
	}, params.Publish)
}

func (s service) ReorderQueue(ctx context.Context, params *ReorderQueueParams) (QueueResponse, error) {
	return s.mutateQueue(ctx, "reorder_queue", params.ParticipantID, func(n *domain.Navigation) error {
		return n.Reorder(params.Queue)
	}, params.Publish)
}
