package db

import (
	"context"
	"sort"
	"strconv"

	"storefront/internal/recs"
)

// ImageRef is the public path of an item's picture.
func (i Item) ImageRef() string {
	return "/items/item" + strconv.FormatInt(i.Img, 10) + ".png"
}

func (i Item) Product() recs.Product {
	return recs.Product{
		ID:        i.ID,
		Category:  i.Category,
		Price:     i.Price,
		ImageRef:  i.ImageRef(),
		Available: i.Available,
	}
}

// ItemsByIDs loads the items among ids in one query.
func (s *Store) ItemsByIDs(ctx context.Context, ids []int64) ([]recs.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []Item
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]recs.Product, 0, len(items))
	for _, it := range items {
		out = append(out, it.Product())
	}
	return out, nil
}

// ItemByID returns gorm.ErrRecordNotFound when the item does not exist.
func (s *Store) ItemByID(ctx context.Context, id int64) (*Item, error) {
	var it Item
	if err := s.db.WithContext(ctx).First(&it, id).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) ItemsByCategory(ctx context.Context, category int64, limit int) ([]Item, error) {
	var items []Item
	q := s.db.WithContext(ctx).Where("category = ?", category).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CategoryItems is a category and a sample of its items.
type CategoryItems struct {
	Category int64
	Items    []Item
}

// RandomCategoryItems samples up to perCategory available items from every
// category, grouped by category in ascending order.
func (s *Store) RandomCategoryItems(ctx context.Context, perCategory int) ([]CategoryItems, error) {
	var items []Item
	err := s.db.WithContext(ctx).Raw(`
		SELECT id, category, price, img, available, attributes FROM (
			SELECT items.*, row_number() OVER (PARTITION BY category ORDER BY random()) AS rn
			FROM items WHERE available
		) sampled
		WHERE rn <= ?`, perCategory).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return groupByCategory(items), nil
}

func groupByCategory(items []Item) []CategoryItems {
	index := make(map[int64]int)
	var out []CategoryItems
	for _, it := range items {
		i, ok := index[it.Category]
		if !ok {
			i = len(out)
			index[it.Category] = i
			out = append(out, CategoryItems{Category: it.Category})
		}
		out[i].Items = append(out[i].Items, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
