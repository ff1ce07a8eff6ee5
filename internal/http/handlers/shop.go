package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	httpctx "storefront/internal/http/ctx"
	"storefront/internal/logging"
	"storefront/internal/recs"
)

// recommendationCards returns the shopper's recommendations for a page.
// Failures are logged and the section is left out.
func recommendationCards(ctx *fasthttp.RequestCtx, shop *Shop) []Card {
	sess, ok := shop.session(ctx)
	if !ok {
		return nil
	}
	list, err := shop.Recs.Recommend(ctx, sess, recs.Options{})
	if err != nil {
		ev := logging.Warn()
		if errors.Is(err, recs.ErrScorerNotConfigured) {
			ev = logging.Debug()
		}
		ev.Err(err).Str("path", string(ctx.Path())).Msg("recommendations unavailable")
		return nil
	}
	out := make([]Card, 0, len(list))
	for _, r := range list {
		out = append(out, cardFromRec(r))
	}
	return out
}

func Home(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data := newPageData(ctx, shop.Cfg, "home", "Home")
		data.Recs = recommendationCards(ctx, shop)

		groups, err := shop.Store.RandomCategoryItems(ctx, shop.Cfg.Recs.CategorySample)
		if err != nil {
			logging.Error().Err(err).Msg("home: load category items failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load items")
			return
		}
		for _, g := range groups {
			data.Categories = append(data.Categories, CategoryCards{Category: g.Category, Cards: cards(g.Items)})
		}
		renderLayout(ctx, data)
	}
}

func ProductPage(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx, "id")
		if !ok {
			errResponse(ctx, fasthttp.StatusNotFound, "item not found")
			return
		}
		item, err := shop.Store.ItemByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "item not found")
				return
			}
			logging.Error().Err(err).Int64("item_id", id).Msg("product: load item failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load item")
			return
		}

		if sess, ok := shop.session(ctx); ok {
			recs.Detach(httpctx.Detached(ctx), "record-view", func(c context.Context) error {
				return sess.RecordView(c, id)
			})
		}

		card := cardFromItem(*item)
		data := newPageData(ctx, shop.Cfg, "product", "Item "+card.ID)
		data.Product = &card
		data.Recs = recommendationCards(ctx, shop)
		renderLayout(ctx, data)
	}
}

// Search looks an item up by id, or lists a category.
func Search(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		args := ctx.QueryArgs()
		data := newPageData(ctx, shop.Cfg, "search", "Search")

		if idParam := string(args.Peek("id")); idParam != "" {
			data.SearchID = idParam
			id, err := strconv.ParseInt(idParam, 10, 64)
			if err != nil {
				data.NotFound = true
				renderLayout(ctx, data)
				return
			}
			item, err := shop.Store.ItemByID(ctx, id)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				data.NotFound = true
			case err != nil:
				logging.Error().Err(err).Int64("item_id", id).Msg("search: load item failed")
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load item")
				return
			default:
				card := cardFromItem(*item)
				data.Page = "product"
				data.Product = &card
			}
			renderLayout(ctx, data)
			return
		}

		if catParam := string(args.Peek("category")); catParam != "" {
			category, err := strconv.ParseInt(catParam, 10, 64)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid category")
				return
			}
			items, err := shop.Store.ItemsByCategory(ctx, category, 0)
			if err != nil {
				logging.Error().Err(err).Int64("category", category).Msg("search: load category failed")
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load items")
				return
			}
			data.Category = strconv.FormatInt(category, 10)
			data.Cards = cards(items)
		}
		renderLayout(ctx, data)
	}
}
