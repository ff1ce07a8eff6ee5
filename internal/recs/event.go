// Package recs assembles recommendation context for a shopper: it caches
// the shopper's recent events per session, records new ones, asks the
// external scorer for ranked item ids and hydrates them into products.
package recs

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EventKind names a recorded shopper interaction.
type EventKind string

const (
	EventView        EventKind = "view"
	EventAddToCart   EventKind = "addtocart"
	EventTransaction EventKind = "transaction"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventView, EventAddToCart, EventTransaction:
		return true
	}
	return false
}

// Event is the canonical form of a shopper interaction. It is also the
// wire shape sent to the scorer.
type Event struct {
	// Timestamp is epoch milliseconds.
	Timestamp int64 `json:"timestamp"`

	UserID int64  `json:"user_id"`
	Event  string `json:"event"`

	// ItemID is nil only for transaction events not tied to one item.
	ItemID *int64 `json:"item_id"`

	TransactionID *int64 `json:"transaction_id"`

	Available bool `json:"available"`

	CategoryID *string `json:"category_id,omitempty"`
}

// RawEvent is an event as it comes out of storage or a live write, before
// normalization. Storage rows use VisitorID, live rows may set UserID.
type RawEvent struct {
	Timestamp     int64
	UserID        *int64
	VisitorID     *int64
	Event         string
	ItemID        *int64
	TransactionID *int64
	Available     *bool

	// CategoryID may be a string, an integer, a float or a json.Number.
	CategoryID any
}

// Normalize converts raw into the canonical Event. fallback is used as the
// user id when the row carries neither UserID nor VisitorID. Normalize is
// total and has no side effects; the result shares no memory with raw.
func Normalize(raw RawEvent, fallback int64) Event {
	userID := fallback
	switch {
	case raw.UserID != nil:
		userID = *raw.UserID
	case raw.VisitorID != nil:
		userID = *raw.VisitorID
	}

	available := true
	if raw.Available != nil {
		available = *raw.Available
	}

	return Event{
		Timestamp:     raw.Timestamp,
		UserID:        userID,
		Event:         raw.Event,
		ItemID:        copyInt64(raw.ItemID),
		TransactionID: copyInt64(raw.TransactionID),
		Available:     available,
		CategoryID:    categoryString(raw.CategoryID),
	}
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// categoryString returns nil for absent, empty and zero categories.
func categoryString(v any) *string {
	var s string
	switch c := v.(type) {
	case nil:
		return nil
	case string:
		s = c
	case *string:
		if c == nil {
			return nil
		}
		s = *c
	case json.Number:
		if f, err := c.Float64(); err == nil && f == 0 {
			return nil
		}
		s = c.String()
	case int:
		if c == 0 {
			return nil
		}
		s = strconv.Itoa(c)
	case int32:
		if c == 0 {
			return nil
		}
		s = strconv.FormatInt(int64(c), 10)
	case int64:
		if c == 0 {
			return nil
		}
		s = strconv.FormatInt(c, 10)
	case float64:
		if c == 0 {
			return nil
		}
		s = strconv.FormatFloat(c, 'f', -1, 64)
	default:
		s = fmt.Sprint(c)
	}
	if s == "" {
		return nil
	}
	return &s
}

// sameEvent reports whether a and b describe the same recorded interaction.
func sameEvent(a, b Event) bool {
	return a.Timestamp == b.Timestamp &&
		a.UserID == b.UserID &&
		a.Event == b.Event &&
		equalInt64(a.ItemID, b.ItemID) &&
		equalInt64(a.TransactionID, b.TransactionID)
}

func equalInt64(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
