package db

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/logging"
)

// tallyItemStats counts views, add-to-carts and transactions per item for
// one hour bucket. Events without an item are ignored. Rows come back
// ordered by item id.
func tallyItemStats(events []Event, bucketStart time.Time) []ItemStat {
	byItem := make(map[int64]*ItemStat)
	for _, e := range events {
		if e.ItemID == nil {
			continue
		}
		st, ok := byItem[*e.ItemID]
		if !ok {
			st = &ItemStat{ItemID: *e.ItemID, BucketStart: bucketStart}
			byItem[*e.ItemID] = st
		}
		switch e.Event {
		case "view":
			st.Views++
		case "addtocart":
			st.AddToCarts++
		case "transaction":
			st.Transactions++
		}
	}

	out := make([]ItemStat, 0, len(byItem))
	for _, st := range byItem {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// runAggregationOnce aggregates events for the given hour (bucketStart to bucketStart+1h)
// into ItemStat rows. Call with bucketStart = time in UTC truncated to hour.
func runAggregationOnce(db *gorm.DB, bucketStart time.Time) error {
	bucketEnd := bucketStart.Add(time.Hour)

	var events []Event
	if err := db.Where("timestamp >= ? AND timestamp < ?", bucketStart.UnixMilli(), bucketEnd.UnixMilli()).
		Select("item_id", "event").
		Find(&events).Error; err != nil {
		return err
	}

	rows := tallyItemStats(events, bucketStart)
	if len(rows) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "bucket_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"views", "add_to_carts", "transactions"}),
	}).Create(&rows).Error
}

// StartAggregationWorker runs aggregation for the last 24 completed hours at
// startup, then every hour. Buckets are in UTC.
func StartAggregationWorker(db *gorm.DB) {
	go func() {
		now := time.Now().UTC()
		for i := 1; i <= 24; i++ {
			bucketStart := now.Truncate(time.Hour).Add(-time.Duration(i) * time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				logging.Error().Err(err).Time("bucket", bucketStart).Msg("aggregation error (startup)")
			}
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			bucketStart := t.UTC().Truncate(time.Hour).Add(-time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				logging.Error().Err(err).Time("bucket", bucketStart).Msg("aggregation error")
			}
		}
	}()
}

// TrendingItem is an item's interaction totals over a window.
type TrendingItem struct {
	ItemID       int64 `json:"item_id"`
	Views        int64 `json:"views"`
	AddToCarts   int64 `json:"add_to_carts"`
	Transactions int64 `json:"transactions"`
}

// Trending returns the items with the most transactions, then add-to-carts,
// then views, in buckets starting at or after since.
func (s *Store) Trending(ctx context.Context, since time.Time, limit int) ([]TrendingItem, error) {
	var out []TrendingItem
	err := s.db.WithContext(ctx).
		Model(&ItemStat{}).
		Select("item_id, SUM(views) AS views, SUM(add_to_carts) AS add_to_carts, SUM(transactions) AS transactions").
		Where("bucket_start >= ?", since.UTC().Truncate(time.Hour)).
		Group("item_id").
		Order("transactions DESC, add_to_carts DESC, views DESC, item_id").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
