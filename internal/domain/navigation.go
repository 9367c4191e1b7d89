package domain

import (
	"errors"
	"slices"
)

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrNotPermutation    = errors.New("new order is not a permutation of the queue")
	ErrQueueLimitReached = errors.New("queue limit reached")
)

// Navigation holds the current track, the upcoming queue and the two
// stacks used for previous/next. Stacks may contain nil entries: changing
// away from "no track" records that state.
type Navigation struct {
	current *Track
	queue   []Track
	// top of both stacks is the last element
	history []*Track
	forward []*Track
	limit   int
}

// NewNavigation returns an empty navigation; limit <= 0 means an unbounded queue.
func NewNavigation(limit int) *Navigation {
	return &Navigation{limit: limit}
}

func (n *Navigation) Current() *Track {
	if n.current == nil {
		return nil
	}
	t := *n.current
	return &t
}

func (n *Navigation) Queue() []Track {
	out := make([]Track, len(n.queue))
	copy(out, n.queue)
	return out
}

// History returns the history stack, most recent first.
func (n *Navigation) History() []*Track {
	return reversed(n.history)
}

// Forward returns the forward stack, most recent first.
func (n *Navigation) Forward() []*Track {
	return reversed(n.forward)
}

func (n *Navigation) CanNext() bool {
	return len(n.forward) > 0 || len(n.queue) > 0
}

func (n *Navigation) CanPrevious() bool {
	return len(n.history) > 0
}

// Next advances to the next track: redo from the forward stack first, then the
// queue head. It reports false and changes nothing when both are empty.
func (n *Navigation) Next() (*Track, bool) {
	var next *Track
	switch {
	case len(n.forward) > 0:
		next = pop(&n.forward)
	case len(n.queue) > 0:
		head := n.queue[0]
		n.queue = slices.Delete(n.queue, 0, 1)
		next = &head
	default:
		return nil, false
	}

	n.history = append(n.history, n.current)
	n.current = next
	return n.Current(), true
}

// Previous steps back through history, pushing the current track onto the forward stack.
func (n *Navigation) Previous() (*Track, bool) {
	if len(n.history) == 0 {
		return nil, false
	}

	prev := pop(&n.history)
	n.forward = append(n.forward, n.current)
	n.current = prev
	return n.Current(), true
}

// Change jumps to track directly. It starts a new branch, so the forward stack is dropped.
func (n *Navigation) Change(track Track) {
	n.history = append(n.history, n.current)
	n.forward = nil
	n.current = &track
}

func (n *Navigation) Enqueue(track Track) error {
	if n.limit > 0 && len(n.queue) >= n.limit {
		return ErrQueueLimitReached
	}

	n.queue = append(n.queue, track)
	return nil
}

func (n *Navigation) DequeueAt(index int) (Track, error) {
	if index < 0 || index >= len(n.queue) {
		return Track{}, ErrIndexOutOfRange
	}

	removed := n.queue[index]
	n.queue = slices.Delete(n.queue, index, index+1)
	return removed, nil
}

// Reorder replaces the queue with newOrder if it holds exactly the same tracks.
func (n *Navigation) Reorder(newOrder []Track) error {
	if len(newOrder) != len(n.queue) {
		return ErrNotPermutation
	}

	counts := make(map[string]int, len(n.queue))
	for _, t := range n.queue {
		counts[t.ID]++
	}
	for _, t := range newOrder {
		counts[t.ID]--
		if counts[t.ID] < 0 {
			return ErrNotPermutation
		}
	}

	byID := make(map[string]Track, len(n.queue))
	for _, t := range n.queue {
		byID[t.ID] = t
	}

	reordered := make([]Track, 0, len(newOrder))
	for _, t := range newOrder {
		reordered = append(reordered, byID[t.ID])
	}
	n.queue = reordered
	return nil
}

func pop(stack *[]*Track) *Track {
	s := *stack
	top := s[len(s)-1]
	*stack = s[:len(s)-1]
	return top
}

func reversed(stack []*Track) []*Track {
	out := make([]*Track, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == nil {
			out = append(out, nil)
			continue
		}
		t := *stack[i]
		out = append(out, &t)
	}
	return out
}
