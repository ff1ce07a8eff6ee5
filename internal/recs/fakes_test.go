package recs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/config"
)

var errStorage = errors.New("storage unavailable")

type fakePrincipals struct {
	mu     sync.Mutex
	authID string
}

func (f *fakePrincipals) Principal(context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authID, f.authID != ""
}

func (f *fakePrincipals) set(authID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authID = authID
}

// fakeStore implements ProfileStore, EventStore and ItemStore in memory.
type fakeStore struct {
	mu sync.Mutex

	profiles     map[string]int64
	profileErr   error
	profileCalls int

	events      []RawEvent
	latestErr   error
	latestCalls int
	latestBlock chan struct{}
	latestLimit int

	insertErr error
	inserted  []EventRow
	nextTx    int64

	items     map[int64]Product
	itemsErr  error
	itemCalls int
	itemIDs   []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]int64{"auth-1": 42},
		items:    map[int64]Product{},
		nextTx:   1000,
	}
}

func (f *fakeStore) ProfileIDByAuthID(_ context.Context, authID string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return 0, false, f.profileErr
	}
	id, ok := f.profiles[authID]
	return id, ok, nil
}

func (f *fakeStore) LatestEvents(_ context.Context, _ int64, limit int) ([]RawEvent, error) {
	f.mu.Lock()
	f.latestCalls++
	f.latestLimit = limit
	block := f.latestBlock
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	n := len(f.events)
	if limit < n {
		n = limit
	}
	out := make([]RawEvent, n)
	copy(out, f.events[:n])
	return out, nil
}

func (f *fakeStore) InsertEvent(_ context.Context, row EventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, row)
	return nil
}

func (f *fakeStore) NextTransactionID(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTx++
	return f.nextTx, nil
}

func (f *fakeStore) ItemsByIDs(_ context.Context, ids []int64) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls++
	f.itemIDs = append([]int64(nil), ids...)
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	var out []Product
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) calls() (profile, latest int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.latestCalls
}

// fakeScorer records calls and returns a canned answer.
type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	last     ScoreRequest
	response []RankedItem
	err      error
}

func (f *fakeScorer) Score(_ context.Context, req ScoreRequest) ([]RankedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testRecsConfig() config.Recs {
	cfg := config.DefaultRecs()
	cfg.CacheLimit = 5
	return cfg
}

func newTestSession(t *testing.T, store *fakeStore, principals *fakePrincipals, clock *fakeClock) *Session {
	t.Helper()
	s := NewSession(testRecsConfig(), principals, store, store)
	s.cache.now = clock.Now
	return s
}

func rawView(ts, itemID int64) RawEvent {
	visitor := int64(42)
	item := itemID
	return RawEvent{Timestamp: ts, VisitorID: &visitor, Event: string(EventView), ItemID: &item}
}

func ptr[T any](v T) *T { return &v }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
