package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateUser stores a new account with a fresh AuthID.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	u := &User{
		AuthID:       uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// UserByUsername returns gorm.ErrRecordNotFound for unknown names.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes the account with its sessions and cart. Recorded
// events stay until retention removes them.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&CartLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}

// CreateSession signs userID in for ttl and returns the session token.
func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionUser returns the user of an unexpired session, or
// gorm.ErrRecordNotFound.
func (s *Store) SessionUser(ctx context.Context, token string) (*User, error) {
	var sess Session
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND expires_at > ?", token, time.Now()).
		First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess.User, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&Session{}).Error
}
