package recs

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/logging"
)

// Product is the catalog record a ranked item id is hydrated from.
type Product struct {
	ID        int64
	Category  int64
	Price     float64
	ImageRef  string
	Available bool
}

// ItemStore looks up catalog records.
type ItemStore interface {
	// ItemsByIDs returns the products that exist among ids, in any order.
	ItemsByIDs(ctx context.Context, ids []int64) ([]Product, error)
}

// Recommendation is a hydrated scorer suggestion.
type Recommendation struct {
	ID         string  `json:"id"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	Available  bool    `json:"available"`
	CategoryID string  `json:"category_id"`
}

// Options select how many suggestions to ask for (K) and how many recent
// events to send (Limit). Zero values fall back to the configured defaults.
type Options struct {
	K     int
	Limit int
}

// Assembler turns a session's recent events into hydrated recommendations.
type Assembler struct {
	scorer   Scorer
	items    ItemStore
	defaults Options
}

func NewAssembler(cfg config.Recs, scorer Scorer, items ItemStore) *Assembler {
	return &Assembler{
		scorer:   scorer,
		items:    items,
		defaults: Options{K: cfg.DefaultK, Limit: cfg.WindowLimit},
	}
}

// Recommend runs the pipeline once: refresh the cache if needed, send the
// newest events to the scorer and hydrate the ranked ids in rank order.
// Ids without a product are dropped. Any storage or scorer failure aborts
// the call with no partial result.
func (a *Assembler) Recommend(ctx context.Context, sess *Session, opts Options) ([]Recommendation, error) {
	k, limit := opts.K, opts.Limit
	if k <= 0 {
		k = a.defaults.K
	}
	if limit <= 0 {
		limit = a.defaults.Limit
	}

	if err := sess.EnsureFresh(ctx, limit); err != nil {
		return nil, err
	}

	events := sess.cache.Window(limit)
	if len(events) == 0 {
		return []Recommendation{}, nil
	}

	ranked, err := a.scorer.Score(ctx, ScoreRequest{Events: events, K: k, FilterViewed: true})
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []Recommendation{}, nil
	}

	products, err := a.items.ItemsByIDs(ctx, distinctItemIDs(ranked))
	if err != nil {
		return nil, fmt.Errorf("load recommended items: %w", err)
	}
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]RankedItem, len(ranked))
	copy(ordered, ranked)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankKey(ordered[i]) < rankKey(ordered[j])
	})

	out := make([]Recommendation, 0, len(ordered))
	for _, r := range ordered {
		p, ok := byID[r.ItemID]
		if !ok {
			hydrationDropped.Inc()
			logging.Debug().Int64("item_id", r.ItemID).Msg("recs: missing item for recommendation")
			continue
		}
		out = append(out, Recommendation{
			ID:         strconv.FormatInt(p.ID, 10),
			Price:      p.Price,
			Image:      p.ImageRef,
			Available:  p.Available,
			CategoryID: strconv.FormatInt(p.Category, 10),
		})
	}
	return out, nil
}

func rankKey(r RankedItem) float64 {
	if r.Rank == nil {
		return math.Inf(1)
	}
	return *r.Rank
}

func distinctItemIDs(ranked []RankedItem) []int64 {
	seen := make(map[int64]struct{}, len(ranked))
	ids := make([]int64, 0, len(ranked))
	for _, r := range ranked {
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		ids = append(ids, r.ItemID)
	}
	return ids
}
