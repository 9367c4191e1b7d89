package client

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/sharetube/jam/internal/domain"
)

type SyncState int

const (
	SyncNormal SyncState = iota
	SyncMicroCorrecting
	SyncHardSyncing
	SyncSuppressed
)

func (s SyncState) String() string {
	switch s {
	case SyncNormal:
		return "normal"
	case SyncMicroCorrecting:
		return "micro_correcting"
	case SyncHardSyncing:
		return "hard_syncing"
	case SyncSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

type Config struct {
	TickInterval time.Duration
	// HeartbeatEvery is the number of ticks between heartbeats.
	HeartbeatEvery int
	// SeekThreshold: a position jump between ticks larger than this is a manual seek.
	SeekThreshold float64
	// SeekFloor: jumps landing at or below this are track restarts, not seeks.
	SeekFloor float64
	// HardSyncThreshold: drift beyond this is corrected by seeking.
	HardSyncThreshold float64
	// DriftDeadband: drift within this plays at the normal rate.
	DriftDeadband float64
	CatchUpRate   float64
	SlowDownRate  float64
	// PausedTolerance: how far the player may sit from a paused room.
	PausedTolerance float64
	// SnapshotSeekThreshold: a snapshot for a playing room seeks only beyond this.
	SnapshotSeekThreshold float64
	// RemotePlaySeekThreshold: a remote play seeks only beyond this.
	RemotePlaySeekThreshold float64
	Lease                   time.Duration
	HardSyncLease           time.Duration
	TrackChangeLease        time.Duration
	Now                     func() time.Time
}

func DefaultConfig() Config {
	return Config{
		TickInterval:            500 * time.Millisecond,
		HeartbeatEvery:          4,
		SeekThreshold:           1.5,
		SeekFloor:               1.0,
		HardSyncThreshold:       2.5,
		DriftDeadband:           0.15,
		CatchUpRate:             1.05,
		SlowDownRate:            0.95,
		PausedTolerance:         0.5,
		SnapshotSeekThreshold:   2.0,
		RemotePlaySeekThreshold: 0.5,
		Lease:                   time.Second,
		HardSyncLease:           time.Second,
		TrackChangeLease:        2500 * time.Millisecond,
		Now:                     time.Now,
	}
}

// Status is a read-only view of the loop for display.
type Status struct {
	State       SyncState
	Track       *domain.Track
	Position    float64
	Duration    float64
	Authority   float64
	IsPlaying   bool
	Rate        float64
	Queue       []domain.Track
	CanPlayNext bool
	Members     int
}

// Loop keeps one participant's player converged on the room timeline. All
// methods must be called from the goroutine running Run.
type Loop struct {
	player  Player
	emitter Emitter
	cfg     Config
	logger  *slog.Logger

	authority   authority
	lease       Lease
	state       SyncState
	rate        float64
	ticks       int
	lastPos     float64
	hasLastPos  bool
	advancedFor string
	queue       []domain.Track
	canPlayNext bool
	members     int
}

func NewLoop(player Player, emitter Emitter, cfg Config, logger *slog.Logger) *Loop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = 1
	}

	return &Loop{
		player:  player,
		emitter: emitter,
		cfg:     cfg,
		logger:  logger,
		rate:    1.0,
	}
}

// Run ticks the loop and applies inputs in delivery order until ctx is done.
func (l *Loop) Run(ctx context.Context, inputs <-chan Input) error {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-inputs:
			if !ok {
				return nil
			}
			in.apply(ctx, l)
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

func (l *Loop) State() SyncState {
	return l.state
}

func (l *Loop) Status(ctx context.Context) Status {
	now := l.cfg.Now()
	pos, _ := l.player.Position(ctx)
	dur, _ := l.player.Duration(ctx)

	return Status{
		State:       l.state,
		Track:       l.authority.track,
		Position:    pos,
		Duration:    dur,
		Authority:   l.authority.position(now),
		IsPlaying:   l.authority.timeline.IsPlaying,
		Rate:        l.rate,
		Queue:       l.queue,
		CanPlayNext: l.canPlayNext,
		Members:     l.members,
	}
}

func (l *Loop) suppress(now time.Time, d time.Duration) {
	l.lease.Acquire(now, d)
	l.state = SyncSuppressed
}

// takeControl ends any lease: what the player does next is the user's doing.
func (l *Loop) takeControl() {
	l.lease.Release()
	l.state = SyncNormal
}

func (l *Loop) emit(ctx context.Context, kind domain.EventKind, value float64) {
	if err := l.emitter.VideoAction(ctx, kind, value); err != nil {
		l.logger.InfoContext(ctx, "failed to emit video action", "kind", kind, "value", value, "error", err)
	}
}

// call runs a player control; failures are left for the next tick to retry.
func (l *Loop) call(ctx context.Context, op string, err error) bool {
	if err != nil {
		l.logger.DebugContext(ctx, "player call failed", "op", op, "error", err)
		return false
	}
	return true
}

func (l *Loop) setRate(ctx context.Context, rate float64) {
	if l.rate == rate {
		return
	}
	if l.call(ctx, "set_rate", l.player.SetRate(ctx, rate)) {
		l.rate = rate
	}
}

// Tick samples the player once and corrects it toward the room.
func (l *Loop) Tick(ctx context.Context) {
	now := l.cfg.Now()

	pos, err := l.player.Position(ctx)
	if !l.call(ctx, "position", err) {
		return
	}
	ps, err := l.player.State(ctx)
	if !l.call(ctx, "state", err) {
		return
	}

	l.ticks++
	suppressed := l.lease.Active(now)
	if !suppressed && (l.state == SyncSuppressed || l.state == SyncHardSyncing) {
		l.state = SyncNormal
	}

	if ps == PlayStateEnded {
		l.autoAdvance(ctx)
		l.lastPos, l.hasLastPos = pos, true
		return
	}

	// a seek must reach the room before any heartbeat carrying its position
	if l.detectSeek(ctx, now, pos, ps, suppressed) {
		return
	}
	l.lastPos, l.hasLastPos = pos, true

	if !suppressed && ps == PlayStatePlaying && l.authority.timeline.IsPlaying && l.ticks%l.cfg.HeartbeatEvery == 0 {
		l.emit(ctx, domain.EventHeartbeat, pos)
	}

	if !l.authority.known || l.authority.track == nil {
		return
	}

	if l.authority.timeline.IsPlaying {
		l.correctPlaying(ctx, now, pos, ps, suppressed)
	} else {
		l.correctPaused(ctx, pos, ps, suppressed)
	}
}

// detectSeek reports a user seek made directly on the player.
func (l *Loop) detectSeek(ctx context.Context, now time.Time, pos float64, ps PlayState, suppressed bool) bool {
	if !l.hasLastPos || suppressed {
		return false
	}
	if math.Abs(pos-l.lastPos) <= l.cfg.SeekThreshold || pos <= l.cfg.SeekFloor {
		return false
	}

	l.logger.DebugContext(ctx, "seek detected", "from", l.lastPos, "to", pos)
	playing := ps == PlayStatePlaying
	l.emit(ctx, domain.EventSeek, pos)
	if playing {
		l.emit(ctx, domain.EventPlay, pos)
	}

	l.authority.set(pos, l.authority.timeline.IsPlaying || playing, now)
	l.lastPos, l.hasLastPos = pos, true

	return true
}

func (l *Loop) correctPlaying(ctx context.Context, now time.Time, pos float64, ps PlayState, suppressed bool) {
	if ps == PlayStatePaused || ps == PlayStateUnstarted {
		l.call(ctx, "play", l.player.Play(ctx))
	}
	if suppressed {
		return
	}

	target := l.authority.position(now)
	drift := pos - target

	switch {
	case math.Abs(drift) > l.cfg.HardSyncThreshold:
		l.logger.DebugContext(ctx, "hard sync", "drift", drift, "target", target)
		l.setRate(ctx, 1.0)
		if l.call(ctx, "seek", l.player.SeekTo(ctx, target)) {
			l.lease.Acquire(now, l.cfg.HardSyncLease)
			l.state = SyncHardSyncing
			l.lastPos = target
		}
	case math.Abs(drift) > l.cfg.DriftDeadband:
		rate := l.cfg.CatchUpRate
		if drift > 0 {
			rate = l.cfg.SlowDownRate
		}
		l.setRate(ctx, rate)
		l.state = SyncMicroCorrecting
	default:
		l.setRate(ctx, 1.0)
		l.state = SyncNormal
	}
}

func (l *Loop) correctPaused(ctx context.Context, pos float64, ps PlayState, suppressed bool) {
	if ps == PlayStatePlaying {
		l.call(ctx, "pause", l.player.Pause(ctx))
	}
	l.setRate(ctx, 1.0)

	target := l.authority.timeline.VideoTime
	if math.Abs(pos-target) > l.cfg.PausedTolerance {
		if l.call(ctx, "seek", l.player.SeekTo(ctx, target)) {
			l.lastPos = target
		}
	}

	if !suppressed {
		l.state = SyncNormal
	}
}

// autoAdvance asks for the next track once per ended track.
func (l *Loop) autoAdvance(ctx context.Context) {
	trackID := l.authority.trackID()
	if trackID == "" || !l.canPlayNext || l.advancedFor == trackID {
		return
	}

	if err := l.emitter.PlayNext(ctx); err != nil {
		l.logger.InfoContext(ctx, "failed to request next track", "error", err)
		return
	}
	l.advancedFor = trackID
}

func (l *Loop) applySnapshot(ctx context.Context, s domain.Snapshot) {
	now := l.cfg.Now()

	var trackID string
	if s.CurrentTrack != nil {
		trackID = s.CurrentTrack.ID
	}
	trackChanged := !l.authority.known || trackID != l.authority.trackID()

	l.authority.set(s.VideoTime, s.IsPlaying, now)
	l.authority.track = s.CurrentTrack
	l.queue = s.Queue
	l.canPlayNext = s.CanPlayNext

	lease := l.cfg.Lease
	if trackChanged {
		lease = l.cfg.TrackChangeLease
		l.advancedFor = ""
		if s.CurrentTrack != nil {
			l.call(ctx, "load", l.player.Load(ctx, *s.CurrentTrack))
		}
	}
	l.suppress(now, lease)
	l.lastPos, l.hasLastPos = s.VideoTime, true

	if s.CurrentTrack == nil {
		return
	}

	if !s.IsPlaying {
		l.call(ctx, "seek", l.player.SeekTo(ctx, s.VideoTime))
		l.call(ctx, "pause", l.player.Pause(ctx))
		return
	}

	pos, err := l.player.Position(ctx)
	if err != nil || trackChanged || math.Abs(pos-s.VideoTime) > l.cfg.SnapshotSeekThreshold {
		l.call(ctx, "seek", l.player.SeekTo(ctx, s.VideoTime))
	}
	l.call(ctx, "play", l.player.Play(ctx))
}

func (l *Loop) applyAction(ctx context.Context, e domain.Event) {
	now := l.cfg.Now()
	l.suppress(now, l.cfg.Lease)
	l.lastPos, l.hasLastPos = e.Value, true

	switch e.Kind {
	case domain.EventPlay:
		l.authority.set(e.Value, true, now)
		if pos, err := l.player.Position(ctx); err != nil || math.Abs(pos-e.Value) > l.cfg.RemotePlaySeekThreshold {
			l.call(ctx, "seek", l.player.SeekTo(ctx, e.Value))
		}
		l.call(ctx, "play", l.player.Play(ctx))
	case domain.EventPause:
		l.authority.set(e.Value, false, now)
		l.call(ctx, "seek", l.player.SeekTo(ctx, e.Value))
		l.call(ctx, "pause", l.player.Pause(ctx))
	case domain.EventSeek:
		l.authority.set(e.Value, l.authority.timeline.IsPlaying, now)
		l.call(ctx, "seek", l.player.SeekTo(ctx, e.Value))
		if l.authority.timeline.IsPlaying {
			l.call(ctx, "play", l.player.Play(ctx))
		} else {
			l.call(ctx, "pause", l.player.Pause(ctx))
		}
	}
}

// applyPosition moves the model only; the next ticks drift the player there.
func (l *Loop) applyPosition(value float64) {
	now := l.cfg.Now()
	l.authority.timeline.VideoTime = value
	l.authority.timeline.LastUpdate = now
}

func (l *Loop) applyTrackChanged(ctx context.Context, trackID string) {
	l.logger.InfoContext(ctx, "track changed", "track_id", trackID)
	l.suppress(l.cfg.Now(), l.cfg.TrackChangeLease)
}

func (l *Loop) userPlay(ctx context.Context) {
	now := l.cfg.Now()
	pos, err := l.player.Position(ctx)
	if err != nil {
		pos = l.authority.position(now)
	}

	l.takeControl()
	l.authority.set(pos, true, now)
	l.lastPos, l.hasLastPos = pos, true
	l.call(ctx, "play", l.player.Play(ctx))
	l.emit(ctx, domain.EventPlay, pos)
}

func (l *Loop) userPause(ctx context.Context) {
	now := l.cfg.Now()
	pos, err := l.player.Position(ctx)
	if err != nil {
		pos = l.authority.position(now)
	}

	l.takeControl()
	l.authority.set(pos, false, now)
	l.lastPos, l.hasLastPos = pos, true
	l.call(ctx, "pause", l.player.Pause(ctx))
	l.emit(ctx, domain.EventPause, pos)
}

func (l *Loop) userSeek(ctx context.Context, to float64) {
	now := l.cfg.Now()
	playing := l.authority.timeline.IsPlaying

	l.takeControl()
	l.authority.set(to, playing, now)
	l.lastPos, l.hasLastPos = to, true
	l.call(ctx, "seek", l.player.SeekTo(ctx, to))
	l.emit(ctx, domain.EventSeek, to)
	if playing {
		l.emit(ctx, domain.EventPlay, to)
	}
}
