package recs

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"storefront/internal/config"
	"storefront/internal/logging"
)

// EventStore is the durable event log.
type EventStore interface {
	// LatestEvents returns up to limit events of userID, newest first.
	LatestEvents(ctx context.Context, userID int64, limit int) ([]RawEvent, error)
	InsertEvent(ctx context.Context, row EventRow) error
	NextTransactionID(ctx context.Context) (int64, error)
}

// Session owns the identity and event cache of one browser session.
type Session struct {
	resolver *Resolver
	cache    *EventCache
	events   EventStore

	reloads singleflight.Group
}

func NewSession(cfg config.Recs, principals Principals, profiles ProfileStore, events EventStore) *Session {
	return &Session{
		resolver: NewResolver(principals, profiles),
		cache:    NewEventCache(cfg.EventTTL, cfg.CacheLimit),
		events:   events,
	}
}

func (s *Session) Cache() *EventCache { return s.cache }

func (s *Session) Resolver() *Resolver { return s.resolver }

// EnsureFresh reloads the cache from storage when it is empty or older
// than its ttl. Concurrent callers share one reload. A failed fetch leaves
// the previous contents in place.
func (s *Session) EnsureFresh(ctx context.Context, limit int) error {
	if !s.cache.needsReload() {
		cacheHits.Inc()
		return nil
	}
	_, err, _ := s.reloads.Do("reload", func() (any, error) {
		if !s.cache.needsReload() {
			return nil, nil
		}
		return nil, s.reload(ctx, limit)
	})
	return err
}

func (s *Session) reload(ctx context.Context, limit int) error {
	now := s.cache.now()
	s.cache.beginLoad()

	userID, ok, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.cache.abortLoad()
		cacheReloads.WithLabelValues("error").Inc()
		return err
	}
	if !ok {
		s.cache.finishLoad(nil, now)
		cacheReloads.WithLabelValues("anonymous").Inc()
		logging.Debug().Msg("recs: no identity, cache cleared")
		return nil
	}

	raws, err := s.events.LatestEvents(ctx, userID, limit)
	if err != nil {
		s.cache.abortLoad()
		cacheReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("load latest events for user %d: %w", userID, err)
	}

	if limit > 0 && len(raws) > limit {
		raws = raws[:limit]
	}
	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		events = append(events, Normalize(raw, userID))
	}
	s.cache.finishLoad(events, now)
	cacheReloads.WithLabelValues("ok").Inc()

	logging.Debug().
		Int64("user_id", userID).
		Int("events", len(events)).
		Msg("recs: event cache reloaded")
	return nil
}
