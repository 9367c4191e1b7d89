package client

import (
	"context"

	"github.com/sharetube/jam/internal/domain"
)

// Input is anything the loop consumes between ticks: room broadcasts and the
// user's own controls.
type Input interface {
	apply(ctx context.Context, l *Loop)
}

type SnapshotInput struct {
	Snapshot domain.Snapshot
}

func (in SnapshotInput) apply(ctx context.Context, l *Loop) {
	l.applySnapshot(ctx, in.Snapshot)
}

type ActionInput struct {
	Event domain.Event
}

func (in ActionInput) apply(ctx context.Context, l *Loop) {
	l.applyAction(ctx, in.Event)
}

type PositionInput struct {
	Value float64
}

func (in PositionInput) apply(_ context.Context, l *Loop) {
	l.applyPosition(in.Value)
}

type TrackChangedInput struct {
	TrackID string
}

func (in TrackChangedInput) apply(ctx context.Context, l *Loop) {
	l.applyTrackChanged(ctx, in.TrackID)
}

type QueueInput struct {
	Queue       []domain.Track
	CanPlayNext bool
}

func (in QueueInput) apply(_ context.Context, l *Loop) {
	l.queue = in.Queue
	l.canPlayNext = in.CanPlayNext
}

type QueueEmptyInput struct{}

func (QueueEmptyInput) apply(ctx context.Context, l *Loop) {
	l.logger.InfoContext(ctx, "queue is empty")
	l.canPlayNext = false
}

type MembershipInput struct {
	MemberCount int
	DisplayName string
	Joined      bool
}

func (in MembershipInput) apply(ctx context.Context, l *Loop) {
	l.members = in.MemberCount
	l.logger.InfoContext(ctx, "membership updated", "display_name", in.DisplayName, "joined", in.Joined, "member_count", in.MemberCount)
}

type UserPlay struct{}

func (UserPlay) apply(ctx context.Context, l *Loop) {
	l.userPlay(ctx)
}

type UserPause struct{}

func (UserPause) apply(ctx context.Context, l *Loop) {
	l.userPause(ctx)
}

type UserSeek struct {
	To float64
}

func (in UserSeek) apply(ctx context.Context, l *Loop) {
	l.userSeek(ctx, in.To)
}

// StatusRequest answers on Reply with the loop status. Reply must be buffered.
type StatusRequest struct {
	Reply chan<- Status
}

func (in StatusRequest) apply(ctx context.Context, l *Loop) {
	select {
	case in.Reply <- l.Status(ctx):
	default:
	}
}
