package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"storefront/internal/logging"
	"storefront/internal/recs"
)

type recsQuery struct {
	K     int `validate:"gte=0,lte=100"`
	Limit int `validate:"gte=0,lte=500"`
}

// Recommendations serves GET /api/recommendations?k=&limit=.
func Recommendations(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sess, ok := shop.session(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
		args := ctx.QueryArgs()
		k, okK := intArg(args, "k", 0)
		limit, okL := intArg(args, "limit", 0)
		q := recsQuery{K: k, Limit: limit}
		if !okK || !okL || validate.Struct(q) != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "k must be 0-100 and limit 0-500")
			return
		}

		list, err := shop.Recs.Recommend(ctx, sess, recs.Options{K: q.K, Limit: q.Limit})
		if err != nil {
			code, msg := recsErrorStatus(err)
			logging.Warn().Err(err).Int("status", code).Msg("api: recommendations failed")
			errResponse(ctx, code, msg)
			return
		}
		jsonResponse(ctx, map[string]any{"recommendations": list})
	}
}

// recsErrorStatus maps pipeline errors to HTTP responses.
func recsErrorStatus(err error) (int, string) {
	var se *recs.ScorerError
	switch {
	case errors.Is(err, recs.ErrScorerNotConfigured):
		return fasthttp.StatusServiceUnavailable, "recommendations are not configured"
	case errors.As(err, &se):
		return fasthttp.StatusBadGateway, se.Error()
	default:
		return fasthttp.StatusInternalServerError, "failed to load recommendations"
	}
}

type eventRequest struct {
	Event  string `json:"event" validate:"required,oneof=view addtocart"`
	ItemID int64  `json:"item_id" validate:"gt=0"`
}

// RecordEvent serves POST /api/events for client-side telemetry.
func RecordEvent(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sess, ok := shop.session(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusUnauthorized, "unauthorized")
			return
		}
		var req eventRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := validate.Struct(req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "event must be view or addtocart with a positive item_id")
			return
		}

		in := recs.EventInput{Kind: recs.EventKind(req.Event), ItemID: &req.ItemID}
		if err := sess.Record(ctx, in); err != nil {
			logging.Error().Err(err).Str("event", req.Event).Msg("api: record event failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to record event")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

// Trending serves GET /api/trending?hours=&limit= from the hourly item stats.
func Trending(shop *Shop) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		since := parseSince(ctx, 24*time.Hour)
		limit, ok := intArg(ctx.QueryArgs(), "limit", 10)
		if !ok || limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		items, err := shop.Store.Trending(ctx, since, limit)
		if err != nil {
			logging.Error().Err(err).Msg("api: trending query failed")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query trending items")
			return
		}
		jsonResponse(ctx, map[string]any{"items": items, "since": since.UTC().Format(time.RFC3339)})
	}
}
