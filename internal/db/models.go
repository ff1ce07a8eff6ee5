package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one shopper interaction in the event log. Timestamp is epoch
// milliseconds and VisitorID is the internal user id.
type Event struct {
	ID uint `gorm:"primaryKey"`

	Timestamp int64  `gorm:"index:idx_events_visitor_ts,priority:2;not null"`
	VisitorID int64  `gorm:"index:idx_events_visitor_ts,priority:1;not null"`
	Event     string `gorm:"size:32;index;not null"`

	// ItemID is nil for transaction events not tied to an item.
	ItemID        *int64 `gorm:"index"`
	TransactionID *int64 `gorm:"index"`

	// Attributes carries optional enrichment such as "available" and
	// "category_id" without schema changes.
	Attributes datatypes.JSONMap `gorm:"type:jsonb"`
}

// Item is a catalog record. Img is the number of the item's image under
// /items.
type Item struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Category  int64 `gorm:"index;not null"`
	Price     float64
	Img       int64
	Available bool `gorm:"default:true"`

	Attributes datatypes.JSONMap `gorm:"type:jsonb"`
}

// CartLine is a quantity of one item in a user's cart.
type CartLine struct {
	ID uint `gorm:"primaryKey"`

	UserID   int64 `gorm:"uniqueIndex:idx_cart_user_item,priority:1;not null"`
	ItemID   int64 `gorm:"uniqueIndex:idx_cart_user_item,priority:2;not null"`
	Quantity int   `gorm:"not null;default:1"`

	Item Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (CartLine) TableName() string { return "cart" }

// ItemStat stores hourly per-item interaction counts for the trending
// view. Filled by the aggregation worker.
type ItemStat struct {
	ID uint `gorm:"primaryKey"`

	ItemID      int64     `gorm:"uniqueIndex:idx_item_stat_unique,priority:1;not null"`
	BucketStart time.Time `gorm:"uniqueIndex:idx_item_stat_unique,priority:2;not null"` // start of the hour (UTC)

	Views        int64 `gorm:"not null"`
	AddToCarts   int64 `gorm:"not null"`
	Transactions int64 `gorm:"not null"`
}
