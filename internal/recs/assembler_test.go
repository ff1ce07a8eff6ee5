package recs

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

func newTestAssembler(scorer Scorer, store *fakeStore) *Assembler {
	return NewAssembler(testRecsConfig(), scorer, store)
}

func TestRecommendNoEventsSkipsScorer(t *testing.T) {
	store := newFakeStore()
	scorer := &fakeScorer{}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	got, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
	if scorer.calls != 0 {
		t.Errorf("scorer calls = %d, want 0", scorer.calls)
	}
}

func TestRecommendOrdersByRank(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(2, 1), rawView(1, 2)}
	store.items = map[int64]Product{
		5: {ID: 5, Category: 1338, Price: 19.99, ImageRef: "/items/item5.png", Available: true},
		7: {ID: 7, Category: 491, Price: 5, ImageRef: "/items/item7.png", Available: false},
	}
	scorer := &fakeScorer{response: []RankedItem{
		{ItemID: 5, Rank: ptr(2.0)},
		{ItemID: 7, Rank: ptr(1.0)},
	}}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	got, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{K: 4})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []Recommendation{
		{ID: "7", Price: 5, Image: "/items/item7.png", Available: false, CategoryID: "491"},
		{ID: "5", Price: 19.99, Image: "/items/item5.png", Available: true, CategoryID: "1338"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}

	if scorer.last.K != 4 || !scorer.last.FilterViewed {
		t.Errorf("score request k=%d filter_viewed=%v", scorer.last.K, scorer.last.FilterViewed)
	}
	if len(scorer.last.Events) != 2 || *scorer.last.Events[0].ItemID != 1 {
		t.Errorf("score request events = %+v, want newest first", scorer.last.Events)
	}
	if store.itemCalls != 1 {
		t.Errorf("item lookups = %d, want one batch", store.itemCalls)
	}
}

func TestRecommendDefaultsAndWindow(t *testing.T) {
	store := newFakeStore()
	for i := int64(5); i > 0; i-- {
		store.events = append(store.events, rawView(i, i))
	}
	scorer := &fakeScorer{}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	if _, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{Limit: 3}); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if scorer.last.K != 10 {
		t.Errorf("default k = %d, want 10", scorer.last.K)
	}
	if len(scorer.last.Events) != 3 {
		t.Errorf("window = %d events, want 3", len(scorer.last.Events))
	}
}

func TestRecommendDropsMissingAndSortsUnrankedLast(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(1, 1)}
	store.items = map[int64]Product{
		1: {ID: 1, Category: 10, ImageRef: "/items/item1.png", Available: true},
		2: {ID: 2, Category: 20, ImageRef: "/items/item2.png", Available: true},
	}
	scorer := &fakeScorer{response: []RankedItem{
		{ItemID: 2},
		{ItemID: 404, Rank: ptr(0.0)},
		{ItemID: 1, Rank: ptr(3.0)},
	}}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	got, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("got %+v, want ids [1 2]", got)
	}
}

func TestRecommendScorerErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(1, 1)}
	scorer := &fakeScorer{err: &ScorerError{Status: 503, Body: "Service Unavailable"}}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	_, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{})
	var se *ScorerError
	if !errors.As(err, &se) || se.Status != 503 {
		t.Fatalf("err = %v, want ScorerError 503", err)
	}
	if store.itemCalls != 0 {
		t.Errorf("item lookups after scorer failure = %d", store.itemCalls)
	}
}

func TestRecommendItemLookupErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(1, 1)}
	store.itemsErr = errStorage
	scorer := &fakeScorer{response: []RankedItem{{ItemID: 1}}}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	got, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{})
	if !errors.Is(err, errStorage) || got != nil {
		t.Fatalf("got %v, %v; want nil, storage error", got, err)
	}
}

func TestRecommendDistinctItemLookup(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(1, 1)}
	scorer := &fakeScorer{response: []RankedItem{{ItemID: 3}, {ItemID: 3}, {ItemID: 4}}}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	if _, err := newTestAssembler(scorer, store).Recommend(context.Background(), s, Options{}); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(store.itemIDs, []int64{3, 4}) {
		t.Errorf("lookup ids = %v, want [3 4]", store.itemIDs)
	}
}

type countingDoer struct{ calls int }

func (d *countingDoer) Do(*fasthttp.Request, *fasthttp.Response) error {
	d.calls++
	return nil
}

func (d *countingDoer) DoTimeout(*fasthttp.Request, *fasthttp.Response, time.Duration) error {
	d.calls++
	return nil
}

func TestRecommendUnconfiguredScorer(t *testing.T) {
	store := newFakeStore()
	store.events = []RawEvent{rawView(1, 1)}
	doer := &countingDoer{}
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	_, err := newTestAssembler(NewHTTPScorer("", time.Second, doer), store).Recommend(context.Background(), s, Options{})
	if !errors.Is(err, ErrScorerNotConfigured) {
		t.Fatalf("err = %v, want ErrScorerNotConfigured", err)
	}
	if doer.calls != 0 {
		t.Errorf("network calls = %d, want 0", doer.calls)
	}
}

func TestRecommendUnconfiguredScorerWithoutEvents(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &fakePrincipals{authID: "auth-1"}, newFakeClock())

	got, err := newTestAssembler(NewHTTPScorer("", 0, &countingDoer{}), store).Recommend(context.Background(), s, Options{})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty, nil", got, err)
	}
}
