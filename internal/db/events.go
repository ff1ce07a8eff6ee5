package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"storefront/internal/recs"
)

// ProfileIDByAuthID maps an auth principal to the internal user id.
func (s *Store) ProfileIDByAuthID(ctx context.Context, authID string) (int64, bool, error) {
	var u User
	err := s.db.WithContext(ctx).Select("id").Where("auth_id = ?", authID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return u.ID, true, nil
}

// LatestEvents returns up to limit events of userID, newest first.
func (s *Store) LatestEvents(ctx context.Context, userID int64, limit int) ([]recs.RawEvent, error) {
	var rows []Event
	if err := s.db.WithContext(ctx).
		Where("visitor_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]recs.RawEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.raw())
	}
	return out, nil
}

func (e Event) raw() recs.RawEvent {
	visitor := e.VisitorID
	raw := recs.RawEvent{
		Timestamp:     e.Timestamp,
		VisitorID:     &visitor,
		Event:         e.Event,
		ItemID:        e.ItemID,
		TransactionID: e.TransactionID,
	}
	if v, ok := e.Attributes["available"].(bool); ok {
		raw.Available = &v
	}
	if v, ok := e.Attributes["category_id"]; ok {
		raw.CategoryID = v
	}
	return raw
}

func (s *Store) InsertEvent(ctx context.Context, row recs.EventRow) error {
	e := Event{
		Timestamp:     row.Timestamp,
		VisitorID:     row.VisitorID,
		Event:         row.Event,
		ItemID:        row.ItemID,
		TransactionID: row.TransactionID,
	}
	return s.db.WithContext(ctx).Create(&e).Error
}

// NextTransactionID draws the next checkout transaction id.
func (s *Store) NextTransactionID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.WithContext(ctx).Raw("SELECT nextval(?)", TransactionSeq).Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("nextval %s: %w", TransactionSeq, err)
	}
	return id, nil
}
