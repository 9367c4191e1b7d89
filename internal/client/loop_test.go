package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sharetube/jam/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	pos    float64
	state  PlayState
	rate   float64
	fail   map[string]error
	calls  []string
	seeks  []float64
	loaded []string
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{rate: 1.0, fail: make(map[string]error)}
}

func (p *fakePlayer) record(op string) error {
	p.calls = append(p.calls, op)
	return p.fail[op]
}

func (p *fakePlayer) count(op string) int {
	n := 0
	for _, c := range p.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (p *fakePlayer) Load(_ context.Context, track domain.Track) error {
	if err := p.record("load"); err != nil {
		return err
	}
	p.loaded = append(p.loaded, track.ID)
	p.pos = 0
	p.state = PlayStatePaused
	return nil
}

func (p *fakePlayer) Play(_ context.Context) error {
	if err := p.record("play"); err != nil {
		return err
	}
	p.state = PlayStatePlaying
	return nil
}

func (p *fakePlayer) Pause(_ context.Context) error {
	if err := p.record("pause"); err != nil {
		return err
	}
	p.state = PlayStatePaused
	return nil
}

func (p *fakePlayer) SeekTo(_ context.Context, position float64) error {
	if err := p.record("seek"); err != nil {
		return err
	}
	p.pos = position
	p.seeks = append(p.seeks, position)
	return nil
}

func (p *fakePlayer) SetRate(_ context.Context, rate float64) error {
	if err := p.record("set_rate"); err != nil {
		return err
	}
	p.rate = rate
	return nil
}

func (p *fakePlayer) Position(_ context.Context) (float64, error) {
	return p.pos, p.fail["position"]
}

func (p *fakePlayer) Duration(_ context.Context) (float64, error) {
	return 300, nil
}

func (p *fakePlayer) State(_ context.Context) (PlayState, error) {
	return p.state, p.fail["state"]
}

type fakeEmitter struct {
	actions []domain.Event
	nexts   int
}

func (e *fakeEmitter) VideoAction(_ context.Context, kind domain.EventKind, value float64) error {
	e.actions = append(e.actions, domain.Event{Kind: kind, Value: value})
	return nil
}

func (e *fakeEmitter) PlayNext(_ context.Context) error {
	e.nexts++
	return nil
}

func (e *fakeEmitter) kinds() []domain.EventKind {
	kinds := make([]domain.EventKind, 0, len(e.actions))
	for _, a := range e.actions {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

type testLoop struct {
	*Loop
	player  *fakePlayer
	emitter *fakeEmitter
	now     time.Time
}

const tick = 500 * time.Millisecond

func newTestLoop(t *testing.T) *testLoop {
	t.Helper()
	tl := &testLoop{
		player:  newFakePlayer(),
		emitter: &fakeEmitter{},
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return tl.now }
	tl.Loop = NewLoop(tl.player, tl.emitter, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return tl
}

var (
	trackOne = domain.Track{ID: "t1", Title: "one"}
	trackTwo = domain.Track{ID: "t2", Title: "two"}
)

func (tl *testLoop) join(track domain.Track, videoTime float64, playing bool) {
	tl.applySnapshot(context.Background(), domain.Snapshot{
		CurrentTrack: &track,
		VideoTime:    videoTime,
		IsPlaying:    playing,
		CanPlayNext:  true,
	})
}

// play advances the clock and a well behaved player by n ticks.
func (tl *testLoop) play(n int) {
	for i := 0; i < n; i++ {
		tl.now = tl.now.Add(tick)
		if tl.player.state == PlayStatePlaying {
			tl.player.pos += tick.Seconds() * tl.player.rate
		}
		tl.Tick(context.Background())
	}
}

// step advances one tick and places the player delta seconds off the room.
func (tl *testLoop) step(delta float64) {
	tl.now = tl.now.Add(tick)
	tl.player.pos = tl.authority.position(tl.now) + delta
	tl.Tick(context.Background())
}

func TestJoinSnapshotLoadsTrack(t *testing.T) {
	tl := newTestLoop(t)

	tl.join(trackOne, 30, true)

	assert.Equal(t, []string{"t1"}, tl.player.loaded)
	assert.Equal(t, []float64{30}, tl.player.seeks)
	assert.Equal(t, PlayStatePlaying, tl.player.state)
	assert.Equal(t, SyncSuppressed, tl.State())
	assert.Equal(t, 2500*time.Millisecond, tl.lease.Remaining(tl.now))
}

func TestSnapshotSameTrackSeeksOnlyWhenFarOff(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(10)
	tl.player.seeks = nil

	tl.join(trackOne, tl.player.pos+1.5, true)
	assert.Empty(t, tl.player.seeks)
	assert.Equal(t, time.Second, tl.lease.Remaining(tl.now))

	tl.join(trackOne, tl.player.pos+5, true)
	require.Len(t, tl.player.seeks, 1)
	assert.Len(t, tl.player.loaded, 1)
}

func TestSnapshotForPausedRoom(t *testing.T) {
	tl := newTestLoop(t)

	tl.join(trackOne, 42, false)

	assert.Equal(t, PlayStatePaused, tl.player.state)
	assert.Equal(t, 42.0, tl.player.pos)
}

func TestSnapshotWithoutTrack(t *testing.T) {
	tl := newTestLoop(t)

	tl.applySnapshot(context.Background(), domain.Snapshot{})
	tl.play(10)

	assert.Empty(t, tl.player.calls)
	assert.Empty(t, tl.emitter.actions)
}

func TestHeartbeatEveryFourTicksOutsideLease(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)

	// ticks 1-4 fall inside the join lease
	tl.play(12)

	require.Len(t, tl.emitter.actions, 2)
	for _, a := range tl.emitter.actions {
		assert.Equal(t, domain.EventHeartbeat, a.Kind)
	}
	assert.Equal(t, 36.0, tl.emitter.actions[1].Value)
	assert.Equal(t, 0, tl.player.count("set_rate"))
	assert.Equal(t, SyncNormal, tl.State())
}

func TestManualSeekEmitsSeekAndPlay(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)
	seeks := len(tl.player.seeks)

	tl.now = tl.now.Add(tick)
	tl.player.pos = 80
	tl.Tick(context.Background())

	require.Equal(t, []domain.Event{
		{Kind: domain.EventSeek, Value: 80},
		{Kind: domain.EventPlay, Value: 80},
	}, tl.emitter.actions)

	// the model follows the user, so no hard sync snaps it back
	tl.play(3)
	assert.Len(t, tl.player.seeks, seeks)
	assert.InDelta(t, 81.5, tl.player.pos, 1e-9)
}

func TestManualSeekOnHeartbeatTick(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(7)
	require.Empty(t, tl.emitter.actions)

	// tick 8 is a heartbeat tick
	tl.now = tl.now.Add(tick)
	tl.player.pos = 80
	tl.Tick(context.Background())

	require.Equal(t, []domain.Event{
		{Kind: domain.EventSeek, Value: 80},
		{Kind: domain.EventPlay, Value: 80},
	}, tl.emitter.actions)

	tl.play(4)
	require.Len(t, tl.emitter.actions, 3)
	assert.Equal(t, domain.Event{Kind: domain.EventHeartbeat, Value: 82}, tl.emitter.actions[2])
}

func TestManualSeekWhilePausedOnlyEmitsSeek(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, false)
	tl.play(6)

	tl.now = tl.now.Add(tick)
	tl.player.pos = 70
	tl.Tick(context.Background())

	assert.Equal(t, []domain.Event{{Kind: domain.EventSeek, Value: 70}}, tl.emitter.actions)
	assert.Equal(t, 70.0, tl.authority.timeline.VideoTime)
	assert.False(t, tl.authority.timeline.IsPlaying)
}

func TestJumpToStartIsNotReported(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	tl.now = tl.now.Add(tick)
	tl.player.pos = 0.5
	tl.Tick(context.Background())

	assert.Empty(t, tl.emitter.actions)
	// drift correction takes it back instead
	assert.Equal(t, SyncHardSyncing, tl.State())
}

func TestSeekNotReportedUnderLease(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)

	tl.now = tl.now.Add(tick)
	tl.player.pos = 90
	tl.Tick(context.Background())

	assert.Empty(t, tl.emitter.actions)
}

func TestHardSyncAfterStall(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	tl.player.state = PlayStateBuffering
	for i := 0; i < 6 && tl.State() != SyncHardSyncing; i++ {
		tl.play(1)
	}

	require.Equal(t, SyncHardSyncing, tl.State())
	assert.InDelta(t, tl.authority.position(tl.now), tl.player.pos, 1e-9)
	assert.Equal(t, 1.0, tl.player.rate)
	assert.Equal(t, time.Second, tl.lease.Remaining(tl.now))
	assert.Empty(t, tl.emitter.actions)

	tl.player.state = PlayStatePlaying
	tl.play(2)
	assert.Equal(t, SyncNormal, tl.State())
}

func TestMicroCorrection(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	tl.step(-0.5)
	assert.Equal(t, 1.05, tl.player.rate)
	assert.Equal(t, SyncMicroCorrecting, tl.State())

	tl.step(0.3)
	assert.Equal(t, 0.95, tl.player.rate)

	tl.step(0.1)
	assert.Equal(t, 1.0, tl.player.rate)
	assert.Equal(t, SyncNormal, tl.State())

	assert.Len(t, tl.player.seeks, 1)
	assert.NotContains(t, tl.emitter.kinds(), domain.EventSeek)
}

func TestPausedRoomIsEnforced(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 42, false)
	tl.play(6)

	tl.player.state = PlayStatePlaying
	tl.player.pos = 42.3
	tl.now = tl.now.Add(tick)
	tl.Tick(context.Background())
	assert.Equal(t, PlayStatePaused, tl.player.state)
	assert.Equal(t, 42.3, tl.player.pos)

	tl.player.pos = 43
	tl.now = tl.now.Add(tick)
	tl.Tick(context.Background())
	assert.Equal(t, 42.0, tl.player.pos)
	assert.Empty(t, tl.emitter.actions)
}

func TestRemoteActions(t *testing.T) {
	ctx := context.Background()
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	tl.applyAction(ctx, domain.Event{Kind: domain.EventPause, Value: 50})
	assert.Equal(t, SyncSuppressed, tl.State())
	assert.Equal(t, PlayStatePaused, tl.player.state)
	assert.Equal(t, 50.0, tl.player.pos)
	assert.Equal(t, time.Second, tl.lease.Remaining(tl.now))

	tl.play(4)
	assert.Empty(t, tl.emitter.actions)
	assert.Equal(t, SyncNormal, tl.State())

	tl.applyAction(ctx, domain.Event{Kind: domain.EventSeek, Value: 60})
	assert.Equal(t, PlayStatePaused, tl.player.state)
	assert.Equal(t, 60.0, tl.player.pos)

	seeks := len(tl.player.seeks)
	tl.player.pos = 60.3
	tl.applyAction(ctx, domain.Event{Kind: domain.EventPlay, Value: 60})
	assert.Len(t, tl.player.seeks, seeks)
	assert.Equal(t, PlayStatePlaying, tl.player.state)

	tl.applyAction(ctx, domain.Event{Kind: domain.EventSeek, Value: 100})
	assert.Equal(t, PlayStatePlaying, tl.player.state)
	assert.Equal(t, 100.0, tl.player.pos)

	// only heartbeats once the lease is over, never echoes
	tl.play(4)
	for _, a := range tl.emitter.actions {
		assert.Equal(t, domain.EventHeartbeat, a.Kind)
	}
	assert.InDelta(t, 102.0, tl.player.pos, 1e-9)
}

func TestPositionUpdateMovesModelOnly(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)
	calls := len(tl.player.calls)

	tl.applyPosition(40)
	assert.Len(t, tl.player.calls, calls)
	assert.False(t, tl.lease.Active(tl.now))
	assert.Equal(t, SyncNormal, tl.State())

	tl.play(1)
	assert.Equal(t, SyncHardSyncing, tl.State())
	assert.InDelta(t, 40.5, tl.player.pos, 1e-9)
}

func TestTrackChangedExtendsLease(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	tl.applyTrackChanged(context.Background(), "t1")
	assert.Equal(t, 2500*time.Millisecond, tl.lease.Remaining(tl.now))
	assert.Equal(t, SyncSuppressed, tl.State())
}

func TestPlayerFailuresRetriedNextTick(t *testing.T) {
	tl := newTestLoop(t)
	tl.player.fail["play"] = errors.New("autoplay blocked")

	tl.join(trackOne, 0, true)
	assert.Equal(t, PlayStatePaused, tl.player.state)

	tl.play(1)
	assert.Equal(t, PlayStatePaused, tl.player.state)

	delete(tl.player.fail, "play")
	tl.play(1)
	assert.Equal(t, PlayStatePlaying, tl.player.state)
	assert.Equal(t, 3, tl.player.count("play"))

	tl.player.fail["position"] = errors.New("detached")
	assert.NotPanics(t, func() { tl.play(3) })
}

func TestAutoAdvanceOncePerTrack(t *testing.T) {
	tl := newTestLoop(t)
	tl.join(trackOne, 290, true)

	tl.player.state = PlayStateEnded
	tl.play(3)
	assert.Equal(t, 1, tl.emitter.nexts)

	tl.join(trackTwo, 0, true)
	tl.player.state = PlayStateEnded
	tl.play(3)
	assert.Equal(t, 2, tl.emitter.nexts)
}

func TestQueueEmptyStopsAutoAdvance(t *testing.T) {
	ctx := context.Background()
	tl := newTestLoop(t)
	tl.join(trackOne, 290, true)

	QueueEmptyInput{}.apply(ctx, tl.Loop)
	tl.player.state = PlayStateEnded
	tl.play(2)
	assert.Equal(t, 0, tl.emitter.nexts)

	QueueInput{Queue: []domain.Track{trackTwo}, CanPlayNext: true}.apply(ctx, tl.Loop)
	tl.play(2)
	assert.Equal(t, 1, tl.emitter.nexts)
}

func TestUserIntentsUpdateModel(t *testing.T) {
	ctx := context.Background()
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	tl.play(6)

	UserPause{}.apply(ctx, tl.Loop)
	assert.Equal(t, []domain.EventKind{domain.EventPause}, tl.emitter.kinds())
	assert.False(t, tl.authority.timeline.IsPlaying)
	assert.Equal(t, PlayStatePaused, tl.player.state)

	tl.play(2)
	assert.Equal(t, PlayStatePaused, tl.player.state)

	UserSeek{To: 90}.apply(ctx, tl.Loop)
	assert.Equal(t, []domain.EventKind{domain.EventPause, domain.EventSeek}, tl.emitter.kinds())

	UserPlay{}.apply(ctx, tl.Loop)
	assert.Equal(t, domain.Event{Kind: domain.EventPlay, Value: 90}, tl.emitter.actions[2])
	assert.True(t, tl.authority.timeline.IsPlaying)

	UserSeek{To: 120}.apply(ctx, tl.Loop)
	assert.Equal(t, []domain.EventKind{
		domain.EventPause, domain.EventSeek, domain.EventPlay, domain.EventSeek, domain.EventPlay,
	}, tl.emitter.kinds())

	tl.play(3)
	assert.InDelta(t, 121.5, tl.player.pos, 1e-9)
}

func TestUserIntentEndsLease(t *testing.T) {
	ctx := context.Background()
	tl := newTestLoop(t)
	tl.join(trackOne, 30, true)
	require.True(t, tl.lease.Active(tl.now))

	UserPause{}.apply(ctx, tl.Loop)
	assert.False(t, tl.lease.Active(tl.now))
	assert.Equal(t, SyncNormal, tl.State())

	// a player seek right after is the user's and gets reported
	tl.now = tl.now.Add(tick)
	tl.player.pos = 80
	tl.Tick(ctx)

	assert.Equal(t, []domain.Event{
		{Kind: domain.EventPause, Value: 30},
		{Kind: domain.EventSeek, Value: 80},
	}, tl.emitter.actions)
}

func TestRunAppliesInputsInOrder(t *testing.T) {
	tl := newTestLoop(t)
	tl.cfg.TickInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	inputs := make(chan Input)
	done := make(chan error, 1)
	go func() { done <- tl.Run(ctx, inputs) }()

	inputs <- SnapshotInput{Snapshot: domain.Snapshot{CurrentTrack: &trackOne, VideoTime: 12}}
	inputs <- MembershipInput{MemberCount: 3, DisplayName: "bob", Joined: true}

	reply := make(chan Status, 1)
	inputs <- StatusRequest{Reply: reply}
	status := <-reply

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	require.NotNil(t, status.Track)
	assert.Equal(t, "t1", status.Track.ID)
	assert.Equal(t, 12.0, status.Authority)
	assert.Equal(t, 3, status.Members)
	assert.Equal(t, SyncSuppressed, status.State)
}

func TestSyncStateString(t *testing.T) {
	assert.Equal(t, "normal", SyncNormal.String())
	assert.Equal(t, "micro_correcting", SyncMicroCorrecting.String())
	assert.Equal(t, "hard_syncing", SyncHardSyncing.String())
	assert.Equal(t, "suppressed", SyncSuppressed.String())
	assert.Equal(t, "ended", PlayStateEnded.String())
}
