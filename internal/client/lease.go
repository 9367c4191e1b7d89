package client

import "time"

// Lease marks a window in which the participant must not report its player
// changes, because they were caused by the room rather than by the user.
// The zero value is an expired lease.
type Lease struct {
	until time.Time
}

// Acquire holds the lease until now+d. An already longer lease is kept.
func (l *Lease) Acquire(now time.Time, d time.Duration) {
	if until := now.Add(d); until.After(l.until) {
		l.until = until
	}
}

func (l *Lease) Active(now time.Time) bool {
	return now.Before(l.until)
}

// Remaining is zero once the lease expired.
func (l *Lease) Remaining(now time.Time) time.Duration {
	if !l.Active(now) {
		return 0
	}
	return l.until.Sub(now)
}

func (l *Lease) Release() {
	l.until = time.Time{}
}
