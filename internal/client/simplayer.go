package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sharetube/jam/internal/domain"
)

var ErrNoTrack = errors.New("no track loaded")

// SimPlayer is a clock-driven stand-in for a video element, used by the
// headless client. Every loaded track lasts Length seconds.
type SimPlayer struct {
	mu       sync.Mutex
	track    *domain.Track
	state    PlayState
	position float64
	anchor   time.Time
	rate     float64
	length   float64
	now      func() time.Time
}

func NewSimPlayer(length float64, now func() time.Time) *SimPlayer {
	if now == nil {
		now = time.Now
	}

	return &SimPlayer{
		state:  PlayStateUnstarted,
		rate:   1.0,
		length: length,
		now:    now,
	}
}

// settle folds elapsed playback into position. Caller holds mu.
func (p *SimPlayer) settle() {
	now := p.now()
	if p.state == PlayStatePlaying {
		p.position += now.Sub(p.anchor).Seconds() * p.rate
		if p.length > 0 && p.position >= p.length {
			p.position = p.length
			p.state = PlayStateEnded
		}
	}
	p.anchor = now
}

func (p *SimPlayer) Load(_ context.Context, track domain.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.track = &track
	p.state = PlayStatePaused
	p.position = 0
	p.anchor = p.now()
	return nil
}

func (p *SimPlayer) Play(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return ErrNoTrack
	}
	p.settle()
	if p.state != PlayStateEnded {
		p.state = PlayStatePlaying
	}
	return nil
}

func (p *SimPlayer) Pause(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return ErrNoTrack
	}
	p.settle()
	if p.state == PlayStatePlaying {
		p.state = PlayStatePaused
	}
	return nil
}

func (p *SimPlayer) SeekTo(_ context.Context, position float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return ErrNoTrack
	}
	p.settle()
	if position < 0 {
		position = 0
	}
	if p.length > 0 && position >= p.length {
		position = p.length
		p.state = PlayStateEnded
	} else if p.state == PlayStateEnded {
		p.state = PlayStatePaused
	}
	p.position = position
	return nil
}

func (p *SimPlayer) SetRate(_ context.Context, rate float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.settle()
	p.rate = rate
	return nil
}

func (p *SimPlayer) Position(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.settle()
	return p.position, nil
}

func (p *SimPlayer) Duration(_ context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.track == nil {
		return 0, nil
	}
	return p.length, nil
}

func (p *SimPlayer) State(_ context.Context) (PlayState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.settle()
	return p.state, nil
}

// Track is the loaded track, nil before the first load.
func (p *SimPlayer) Track() *domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.track
}
