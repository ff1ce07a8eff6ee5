package recs

import (
	"sync"
	"time"
)

// CacheState is the lifecycle position of an EventCache.
type CacheState int

const (
	// StateEmpty: never loaded.
	StateEmpty CacheState = iota
	// StateLoading: a reload from storage is in flight.
	StateLoading
	// StateFresh: loaded less than ttl ago.
	StateFresh
	// StateStale: loaded ttl or more ago.
	StateStale
)

func (s CacheState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// EventCache keeps a session's most recent events, newest first, bounded
// to limit entries. All access goes through mu.
//
// Events prepended while a reload is in flight are remembered in pending
// and laid on top of the reloaded window, so an optimistic append never
// gets lost to a concurrent reload.
type EventCache struct {
	mu       sync.Mutex
	events   []Event
	pending  []Event
	loadedAt time.Time
	loaded   bool
	loading  bool

	ttl   time.Duration
	limit int
	now   func() time.Time
}

func NewEventCache(ttl time.Duration, limit int) *EventCache {
	if limit <= 0 {
		limit = 50
	}
	return &EventCache{ttl: ttl, limit: limit, now: time.Now}
}

func (c *EventCache) State() CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.loading:
		return StateLoading
	case !c.loaded:
		return StateEmpty
	case c.now().Sub(c.loadedAt) >= c.ttl:
		return StateStale
	default:
		return StateFresh
	}
}

// needsReload is true when the cache is empty or its window has expired.
func (c *EventCache) needsReload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return true
	}
	return c.now().Sub(c.loadedAt) >= c.ttl
}

func (c *EventCache) beginLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = true
	c.pending = nil
}

// abortLoad leaves contents and loadedAt as they were.
func (c *EventCache) abortLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.pending = nil
}

// finishLoad replaces the contents wholesale with loaded (newest first).
func (c *EventCache) finishLoad(loaded []Event, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make([]Event, 0, len(c.pending)+len(loaded))
	merged = append(merged, c.pending...)
	for _, e := range loaded {
		if !containsEvent(c.pending, e) {
			merged = append(merged, e)
		}
	}
	if len(merged) > c.limit {
		merged = merged[:c.limit]
	}

	c.events = merged
	c.pending = nil
	c.loadedAt = at
	c.loaded = true
	c.loading = false
}

// Prepend puts e at the front, dropping the oldest entries beyond limit.
// It ignores the TTL gate.
func (c *EventCache) Prepend(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = prependBounded(c.events, e, c.limit)
	if c.loading {
		c.pending = prependBounded(c.pending, e, c.limit)
	}
}

// Window returns a copy of up to n events from the front.
func (c *EventCache) Window(n int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n > len(c.events) {
		n = len(c.events)
	}
	out := make([]Event, n)
	copy(out, c.events[:n])
	return out
}

func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *EventCache) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

func prependBounded(events []Event, e Event, limit int) []Event {
	n := len(events) + 1
	if n > limit {
		n = limit
	}
	out := make([]Event, n)
	out[0] = e
	copy(out[1:], events)
	return out
}

func containsEvent(events []Event, e Event) bool {
	for _, x := range events {
		if sameEvent(x, e) {
			return true
		}
	}
	return false
}
