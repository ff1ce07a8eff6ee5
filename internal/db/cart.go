package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddToCart adds quantity of itemID to the user's cart, creating the line
// when it does not exist.
func (s *Store) AddToCart(ctx context.Context, userID, itemID int64, quantity int) error {
	line := CartLine{UserID: userID, ItemID: itemID, Quantity: quantity}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart.quantity + EXCLUDED.quantity"),
		}),
	}).Create(&line).Error
}

// ChangeQuantity adjusts a cart line by delta. A line that reaches zero or
// less is removed.
func (s *Store) ChangeQuantity(ctx context.Context, userID, itemID int64, delta int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line CartLine
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND item_id = ?", userID, itemID).
			First(&line).Error
		if err != nil {
			return err
		}
		if line.Quantity+delta <= 0 {
			return tx.Delete(&line).Error
		}
		return tx.Model(&line).Update("quantity", line.Quantity+delta).Error
	})
}

func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CartLine{}).Error
}

// CartLines returns the user's cart with items loaded, oldest line first.
func (s *Store) CartLines(ctx context.Context, userID int64) ([]CartLine, error) {
	var lines []CartLine
	if err := s.db.WithContext(ctx).
		Preload("Item").
		Where("user_id = ?", userID).
		Order("id").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
