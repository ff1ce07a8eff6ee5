package handlers

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"storefront/internal/logging"
)

// parseSince reads "hours" (float, e.g. 0.5 or 1) or "days" (int) from the
// query and returns the start of the window. def applies when neither is set.
func parseSince(ctx *fasthttp.RequestCtx, def time.Duration) time.Time {
	now := time.Now()
	if h := string(ctx.QueryArgs().Peek("hours")); h != "" {
		if f, err := strconv.ParseFloat(h, 64); err == nil && f > 0 {
			return now.Add(-time.Duration(f * float64(time.Hour)))
		}
	}
	if d := string(ctx.QueryArgs().Peek("days")); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			return now.Add(-time.Duration(n) * 24 * time.Hour)
		}
	}
	return now.Add(-def)
}

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		logging.Info().
			Bytes("method", ctx.Method()).
			Bytes("path", ctx.Path()).
			Int("status", ctx.Response.StatusCode()).
			Dur("duration", time.Since(start)).
			Str("ip", ctx.RemoteIP().String()).
			Msg("request")
	}
}

// Metrics exposes every registered collector in the Prometheus text format.
func Metrics(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := gatherer.Gather()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to gather metrics")
			return
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range metricFamilies {
			if err := encoder.Encode(mf); err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

func Healthz(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("ok")
}
