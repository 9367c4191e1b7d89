package room

import (
	"context"

	"github.com/sharetube/jam/internal/domain"
)

// GetSnapshot returns the extrapolated state of an existing room without creating it.
func (s service) GetSnapshot(_ context.Context, roomKey string) (domain.Snapshot, error) {
	e, ok := s.rooms.get(roomKey)
	if !ok {
		return domain.Snapshot{}, ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.Snapshot{}, ErrRoomNotFound
	}

	return e.state.Snapshot(s.now()), nil
}

func (s service) ListRooms(_ context.Context) []RoomSummary {
	keys := s.rooms.keys()

	summaries := make([]RoomSummary, 0, len(keys))
	for _, key := range keys {
		e, ok := s.rooms.get(key)
		if !ok {
			continue
		}

		e.mu.Lock()
		if !e.closed {
			summaries = append(summaries, RoomSummary{
				Key:          key,
				MemberCount:  len(e.members),
				IsPlaying:    e.state.Timeline.IsPlaying,
				CurrentTrack: e.state.Nav.Current(),
			})
		}
		e.mu.Unlock()
	}

	return summaries
}

// EvictIdleRooms drops rooms that have been empty for longer than the configured TTL.
func (s service) EvictIdleRooms(ctx context.Context) int {
	if s.cfg.RoomIdleTTL <= 0 {
		return 0
	}

	evicted := s.rooms.evictIdle(s.now(), s.cfg.RoomIdleTTL)
	if len(evicted) == 0 {
		return 0
	}

	s.metrics.RoomsEvicted(len(evicted))
	s.reportSize()
	s.logger.InfoContext(ctx, "evicted idle rooms", "rooms", evicted)

	return len(evicted)
}
