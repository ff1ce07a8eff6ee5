package db

import (
	"time"
)

// User is a shopper account. AuthID is the stable principal handed to the
// recommendation pipeline; ID is the internal numeric identity recorded on
// events.
type User struct {
	ID int64 `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	AuthID       string `gorm:"uniqueIndex;size:36;not null"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
}

// Session is a signed-in browser session. Token is the session cookie
// value.
type Session struct {
	Token     string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time

	UserID    int64     `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
