package room

import (
	"slices"
	"sync"
	"time"

	"github.com/sharetube/jam/internal/domain"
	"golang.org/x/exp/maps"
)

// roomEntry serializes every mutation of one room. Lock order is
// registry.mu before roomEntry.mu; nothing takes them the other way round.
type roomEntry struct {
	mu         sync.Mutex
	key        string
	state      *domain.Room
	members    map[string]domain.Participant
	lastActive time.Time
	// closed is set when the entry is evicted; holders must look the room up again.
	closed bool
}

func (e *roomEntry) memberIDs(except string) []string {
	ids := make([]string, 0, len(e.members))
	for id := range e.members {
		if id != except {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

type registry struct {
	mu           sync.RWMutex
	rooms        map[string]*roomEntry
	participants map[string]string
}

func newRegistry() *registry {
	return &registry{
		rooms:        make(map[string]*roomEntry),
		participants: make(map[string]string),
	}
}

func (r *registry) get(key string) (*roomEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rooms[key]
	return e, ok
}

// getOrCreate returns the room for key, creating it in the initial state.
func (r *registry) getOrCreate(key string, now time.Time, queueLimit int) (*roomEntry, bool) {
	if e, ok := r.get(key); ok {
		return e, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.rooms[key]; ok {
		return e, false
	}

	e := &roomEntry{
		key:        key,
		state:      domain.NewRoom(now, queueLimit),
		members:    make(map[string]domain.Participant),
		lastActive: now,
	}
	r.rooms[key] = e
	return e, true
}

// bind records participantID as a member of key and returns the room it was in before.
func (r *registry) bind(participantID, key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.participants[participantID]
	r.participants[participantID] = key
	return prev, ok
}

func (r *registry) unbind(participantID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.participants[participantID]
	delete(r.participants, participantID)
	return key, ok
}

func (r *registry) roomOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.participants[participantID]
	return key, ok
}

func (r *registry) keys() []string {
	r.mu.RLock()
	keys := maps.Keys(r.rooms)
	r.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

func (r *registry) size() (rooms, participants int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), len(r.participants)
}

// evictIdle removes rooms that have had no members for at least ttl.
func (r *registry) evictIdle(now time.Time, ttl time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for key, e := range r.rooms {
		e.mu.Lock()
		if len(e.members) == 0 && now.Sub(e.lastActive) >= ttl {
			e.closed = true
			delete(r.rooms, key)
			evicted = append(evicted, key)
		}
		e.mu.Unlock()
	}

	slices.Sort(evicted)
	return evicted
}
