package recs

import (
	"sync"
	"time"

	"storefront/internal/config"
)

// Registry hands out one Session per session token. Sessions are dropped
// explicitly on sign-out or evicted after sitting idle.
type Registry struct {
	cfg        config.Recs
	principals Principals
	profiles   ProfileStore
	events     EventStore

	mu       sync.Mutex
	sessions map[string]*registryEntry
	now      func() time.Time
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

func NewRegistry(cfg config.Recs, principals Principals, profiles ProfileStore, events EventStore) *Registry {
	return &Registry{
		cfg:        cfg,
		principals: principals,
		profiles:   profiles,
		events:     events,
		sessions:   make(map[string]*registryEntry),
		now:        time.Now,
	}
}

// Get returns the session for token, creating it on first use.
func (r *Registry) Get(token string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.sessions[token]; ok {
		e.lastSeen = now
		return e.session
	}
	s := NewSession(r.cfg, r.principals, r.profiles, r.events)
	r.sessions[token] = &registryEntry{session: s, lastSeen: now}
	activeSessions.Set(float64(len(r.sessions)))
	return s
}

func (r *Registry) Drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	activeSessions.Set(float64(len(r.sessions)))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for SessionIdle or longer and returns how
// many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.cfg.SessionIdle)
	removed := 0
	for token, e := range r.sessions {
		if !e.lastSeen.After(cutoff) {
			delete(r.sessions, token)
			removed++
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	return removed
}

// StartSweeper runs Sweep every interval until the returned stop is called.
func (r *Registry) StartSweeper(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
