package recs

import (
	"context"
	"fmt"

	"storefront/internal/logging"
)

// EventInput describes an interaction to record.
type EventInput struct {
	Kind          EventKind
	ItemID        *int64
	TransactionID *int64
}

// EventRow is the row written to the event log.
type EventRow struct {
	Timestamp     int64
	VisitorID     int64
	ItemID        *int64
	TransactionID *int64
	Event         string
}

func (r EventRow) raw() RawEvent {
	visitor := r.VisitorID
	return RawEvent{
		Timestamp:     r.Timestamp,
		UserID:        &visitor,
		VisitorID:     &visitor,
		Event:         r.Event,
		ItemID:        r.ItemID,
		TransactionID: r.TransactionID,
	}
}

// Record appends an event to the log and mirrors it at the front of the
// session cache. Without an identity it does nothing. There is exactly one
// insert attempt; its error is returned unchanged in meaning.
func (s *Session) Record(ctx context.Context, in EventInput) error {
	userID, ok, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if !ok {
		logging.Debug().Str("event", string(in.Kind)).Msg("recs: no identity, event skipped")
		return nil
	}

	row := EventRow{
		Timestamp:     s.cache.now().UnixMilli(),
		VisitorID:     userID,
		ItemID:        in.ItemID,
		TransactionID: in.TransactionID,
		Event:         string(in.Kind),
	}
	if err := s.events.InsertEvent(ctx, row); err != nil {
		return fmt.Errorf("insert %s event: %w", in.Kind, err)
	}

	s.cache.Prepend(Normalize(row.raw(), userID))
	eventsRecorded.WithLabelValues(string(in.Kind)).Inc()
	return nil
}

func (s *Session) RecordView(ctx context.Context, itemID int64) error {
	return s.Record(ctx, EventInput{Kind: EventView, ItemID: &itemID})
}

func (s *Session) RecordAddToCart(ctx context.Context, itemID int64) error {
	return s.Record(ctx, EventInput{Kind: EventAddToCart, ItemID: &itemID})
}

// RecordTransaction allocates a transaction id and records a transaction
// event that is not tied to an item.
func (s *Session) RecordTransaction(ctx context.Context) (int64, error) {
	txID, err := s.events.NextTransactionID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}
	if err := s.Record(ctx, EventInput{Kind: EventTransaction, TransactionID: &txID}); err != nil {
		return 0, err
	}
	return txID, nil
}

// RecordCheckout records one transaction event per item, all sharing a
// freshly allocated transaction id. It stops at the first failure.
func (s *Session) RecordCheckout(ctx context.Context, itemIDs []int64) (int64, error) {
	txID, err := s.events.NextTransactionID(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate transaction id: %w", err)
	}
	for _, id := range itemIDs {
		itemID := id
		if err := s.Record(ctx, EventInput{Kind: EventTransaction, ItemID: &itemID, TransactionID: &txID}); err != nil {
			return txID, err
		}
	}
	return txID, nil
}
