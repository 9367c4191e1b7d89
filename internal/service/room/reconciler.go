package room

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/jam/internal/domain"
)

type Outcome int

const (
	// OutcomeApplied: the event mutated the timeline and is relayed to the other members.
	OutcomeApplied Outcome = iota
	// OutcomeDragged: a heartbeat pulled the timeline forward; peers get a silent position update.
	OutcomeDragged
	// OutcomeIgnored: nothing changes and nobody is told.
	OutcomeIgnored
	// OutcomeResync: the event was rejected and only the sender gets a fresh snapshot.
	OutcomeResync
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDragged:
		return "dragged"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeResync:
		return "resync"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// reconcile decides what an inbound event does to tl at now. It does not mutate tl.
func (c Config) reconcile(tl domain.Timeline, e domain.Event, now time.Time) Outcome {
	serverTime := tl.Position(now)

	switch e.Kind {
	case domain.EventPlay:
		if tl.IsPlaying && serverTime-e.Value > c.PlayLagTolerance {
			return OutcomeResync
		}
		return OutcomeApplied
	case domain.EventPause, domain.EventSeek:
		return OutcomeApplied
	case domain.EventHeartbeat:
		if !tl.IsPlaying {
			return OutcomeResync
		}

		ahead := e.Value - serverTime
		switch {
		case ahead <= c.HeartbeatDeadband:
			return OutcomeIgnored
		case c.HeartbeatRogueThreshold <= 0 || ahead < c.HeartbeatRogueThreshold:
			return OutcomeDragged
		default:
			return OutcomeResync
		}
	default:
		return OutcomeIgnored
	}
}

// VideoAction reconciles a playback event from a participant against its room timeline.
func (s service) VideoAction(ctx context.Context, params *VideoActionParams) (VideoActionResponse, error) {
	funcName := "room.VideoAction"
	s.logger.DebugContext(ctx, funcName, "participant_id", params.ParticipantID, "event", params.Event)

	e, err := s.lockParticipantRoom(params.ParticipantID)
	if err != nil {
		return VideoActionResponse{}, err
	}

	now := s.now()
	resp := VideoActionResponse{
		Outcome: s.cfg.reconcile(e.state.Timeline, params.Event, now),
		Event:   params.Event,
	}

	var recipients []string
	switch resp.Outcome {
	case OutcomeApplied, OutcomeDragged:
		e.state.Timeline.Apply(params.Event, now)
		e.lastActive = now
		recipients = e.memberIDs(params.ParticipantID)
	case OutcomeResync:
		resp.Snapshot = e.state.Snapshot(now)
	}

	resp.Conns = s.connRepo.GetConns(recipients)
	resp.SenderConn = s.getConn(params.ParticipantID)
	if params.Publish != nil {
		params.Publish(&resp)
	}
	e.mu.Unlock()
	s.metrics.VideoAction(string(params.Event.Kind), resp.Outcome.String())

	s.logger.DebugContext(ctx, funcName, "outcome", resp.Outcome.String())
	return resp, nil
}
