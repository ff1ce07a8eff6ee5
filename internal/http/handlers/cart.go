package handlers

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "storefront/internal/db"
	httpctx "storefront/internal/http/ctx"
	"storefront/internal/logging"
	"storefront/internal/recs"
)

// CartRow is one rendered cart line.
type CartRow struct {
	Card      Card
	Quantity  int
	LineTotal float64
}

// CartTotals sums a cart. Shipping, discount and tax are not charged yet.
type CartTotals struct {
	Subtotal float64
	Shipping float64
	Discount float64
	Tax      float64
	Total    float64
}

func cartRows(lines []dbpkg.CartLine) ([]CartRow, CartTotals) {
	rows := make([]CartRow, 0, len(lines))
	var t CartTotals
	for _, l := range lines {
		line := l.Item.Price * float64(l.Quantity)
		rows = append(rows, CartRow{Card: cardFromItem(l.Item), Quantity: l.Quantity, LineTotal: line})
		t.Subtotal += line
	}
	t.Total = t.Subtotal + t.Tax - t.Discount + t.Shipping
	return rows, t
}

func CartPage(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		lines, err := shop.Store.CartLines(ctx, user.ID)
		if err != nil {
			logging.Error().Err(err).Int64("user_id", user.ID).Msg("cart: load failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load cart")
			return
		}
		data := newPageData(ctx, shop.Cfg, "cart", "Cart")
		data.Cart, data.Totals = cartRows(lines)
		renderLayout(ctx, data)
	}
}

func CartAdd(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		args := ctx.PostArgs()
		itemID, ok := intArg(args, "item_id", 0)
		if !ok || itemID <= 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid item_id")
			return
		}
		quantity, ok := intArg(args, "quantity", 1)
		if !ok || quantity < 1 {
			errResponse(ctx, fasthttp.StatusBadRequest, "quantity must be at least 1")
			return
		}

		id := int64(itemID)
		if _, err := shop.Store.ItemByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "item not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load item")
			return
		}
		if err := shop.Store.AddToCart(ctx, user.ID, id, quantity); err != nil {
			logging.Error().Err(err).Int64("item_id", id).Msg("cart: add failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update cart")
			return
		}

		if sess, ok := shop.session(ctx); ok {
			recs.Detach(httpctx.Detached(ctx), "record-addtocart", func(c context.Context) error {
				return sess.RecordAddToCart(c, id)
			})
		}
		ctx.Redirect("/cart", fasthttp.StatusSeeOther)
	}
}

func CartChange(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		args := ctx.PostArgs()
		itemID, ok := intArg(args, "item_id", 0)
		if !ok || itemID <= 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid item_id")
			return
		}
		delta, ok := intArg(args, "delta", 0)
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid delta")
			return
		}

		err := shop.Store.ChangeQuantity(ctx, user.ID, int64(itemID), delta)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logging.Error().Err(err).Int("item_id", itemID).Msg("cart: change failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update cart")
			return
		}
		ctx.Redirect("/cart", fasthttp.StatusSeeOther)
	}
}

// Checkout records one transaction event per cart line under a shared
// transaction id, then empties the cart.
func Checkout(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		sess, ok := shop.session(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
		lines, err := shop.Store.CartLines(ctx, user.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load cart")
			return
		}
		if len(lines) == 0 {
			ctx.Redirect("/cart", fasthttp.StatusSeeOther)
			return
		}

		itemIDs := make([]int64, 0, len(lines))
		for _, l := range lines {
			itemIDs = append(itemIDs, l.ItemID)
		}
		txID, err := sess.RecordCheckout(ctx, itemIDs)
		if err != nil {
			logging.Error().Err(err).Int64("user_id", user.ID).Msg("checkout failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "checkout failed")
			return
		}
		if err := shop.Store.ClearCart(ctx, user.ID); err != nil {
			logging.Warn().Err(err).Int64("user_id", user.ID).Msg("checkout: clear cart failed")
		}
		logging.Info().Int64("user_id", user.ID).Int64("transaction_id", txID).Int("items", len(itemIDs)).Msg("checkout recorded")
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}
