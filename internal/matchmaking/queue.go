package matchmaking

import (
	"sync"
	"time"
)

// QueuedPlayer is one waiting entry in the matchmaking queue.
type QueuedPlayer struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	JoinedAt time.Time `json:"joinedAt"`
}

type entry struct {
	player QueuedPlayer
	timer  *time.Timer
	// seq guards the deadline callback: a fired timer only evicts the
	// entry it was scheduled for, never a replacement added later.
	seq uint64
}

// Queue holds at most one entry per userId. Safe for concurrent use.
type Queue struct {
	mu      sync.RWMutex
	entries map[string]*entry
	window  int
	nextSeq uint64
}

// NewQueue creates a queue that pairs players whose ratings differ by at
// most window points.
func NewQueue(window int) *Queue {
	return &Queue{
		entries: make(map[string]*entry),
		window:  window,
	}
}

// Add inserts p, replacing any existing entry for the same userId and
// cancelling its deadline. When deadline > 0 and the player is still
// queued once it elapses, the entry is evicted and onExpire is called
// outside the queue lock.
func (q *Queue) Add(p QueuedPlayer, deadline time.Duration, onExpire func(QueuedPlayer)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.entries[p.UserID]; ok && old.timer != nil {
		old.timer.Stop()
	}

	q.nextSeq++
	e := &entry{player: p, seq: q.nextSeq}
	if deadline > 0 {
		seq := e.seq
		e.timer = time.AfterFunc(deadline, func() {
			q.expire(p.UserID, seq, onExpire)
		})
	}
	q.entries[p.UserID] = e
}

// expire evicts the entry for userID if it still carries seq, then
// notifies. A stale timer firing after a replace or remove is a no-op.
func (q *Queue) expire(userID string, seq uint64, onExpire func(QueuedPlayer)) {
	q.mu.Lock()
	e, ok := q.entries[userID]
	if !ok || e.seq != seq {
		q.mu.Unlock()
		return
	}
	delete(q.entries, userID)
	player := e.player
	q.mu.Unlock()

	if onExpire != nil {
		onExpire(player)
	}
}

// Remove cancels the entry's deadline and returns the entry if present.
func (q *Queue) Remove(userID string) (QueuedPlayer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[userID]
	if !ok {
		return QueuedPlayer{}, false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(q.entries, userID)
	return e.player, true
}

// FindMatch scans the queue for the best opponent for p: any other entry
// within the rating window, preferring the smallest rating difference and
// breaking ties by earliest join time. The returned entry is NOT removed;
// the caller removes both sides. Returns nil if no candidate qualifies.
func (q *Queue) FindMatch(p QueuedPlayer) *QueuedPlayer {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var best *entry
	var bestDiff int
	for _, e := range q.entries {
		if e.player.UserID == p.UserID {
			continue
		}
		diff := e.player.Rating - p.Rating
		if diff < 0 {
			diff = -diff
		}
		if diff > q.window {
			continue
		}
		if best == nil || diff < bestDiff ||
			(diff == bestDiff && e.player.JoinedAt.Before(best.player.JoinedAt)) {
			best = e
			bestDiff = diff
		}
	}
	if best == nil {
		return nil
	}
	player := best.player
	return &player
}

// Size returns the number of queued players.
func (q *Queue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Has reports whether userID is queued.
func (q *Queue) Has(userID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.entries[userID]
	return ok
}

// Get returns the queued entry for userID.
func (q *Queue) Get(userID string) (QueuedPlayer, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	e, ok := q.entries[userID]
	if !ok {
		return QueuedPlayer{}, false
	}
	return e.player, true
}

// Shutdown cancels every pending deadline and empties the queue.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(q.entries, id)
	}
}
