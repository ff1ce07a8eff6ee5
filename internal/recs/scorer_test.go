package recs

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// startScorer serves handler on an in-memory listener and returns a client
// wired to it.
func startScorer(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})
	return &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
}

func TestHTTPScorerPostsEvents(t *testing.T) {
	var gotMethod, gotCacheControl string
	var gotBody ScoreRequest
	client := startScorer(t, func(ctx *fasthttp.RequestCtx) {
		gotMethod = string(ctx.Method())
		gotCacheControl = string(ctx.Request.Header.Peek("Cache-Control"))
		_ = json.Unmarshal(ctx.PostBody(), &gotBody)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"recommendations":[{"item_id":7,"rank":1,"score":0.9},{"item_id":5}]}`)
	})

	scorer := NewHTTPScorer("http://scorer.test/recommend", time.Second, client)
	item := int64(3)
	got, err := scorer.Score(context.Background(), ScoreRequest{
		Events:       []Event{{Timestamp: 1, UserID: 42, Event: "view", ItemID: &item, Available: true}},
		K:            10,
		FilterViewed: true,
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if gotMethod != fasthttp.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotCacheControl != "no-store" {
		t.Errorf("Cache-Control = %q", gotCacheControl)
	}
	if gotBody.K != 10 || !gotBody.FilterViewed || len(gotBody.Events) != 1 || gotBody.Events[0].UserID != 42 {
		t.Errorf("request body = %+v", gotBody)
	}
	if len(got) != 2 || got[0].ItemID != 7 || got[0].Rank == nil || *got[0].Rank != 1 || got[1].Rank != nil {
		t.Errorf("ranked = %+v", got)
	}
}

func TestHTTPScorerNon2xx(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantBody string
	}{
		{name: "body used as message", status: fasthttp.StatusBadGateway, body: "model offline", wantBody: "model offline"},
		{name: "status text when body empty", status: fasthttp.StatusServiceUnavailable, wantBody: "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startScorer(t, func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(tt.status)
				ctx.SetBodyString(tt.body)
			})
			_, err := NewHTTPScorer("http://scorer.test/recommend", time.Second, client).Score(context.Background(), ScoreRequest{K: 1})

			var se *ScorerError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *ScorerError", err)
			}
			if se.Status != tt.status || se.Body != tt.wantBody {
				t.Errorf("ScorerError = %d %q, want %d %q", se.Status, se.Body, tt.status, tt.wantBody)
			}
		})
	}
}

func TestHTTPScorerBadJSON(t *testing.T) {
	client := startScorer(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("not json")
	})
	_, err := NewHTTPScorer("http://scorer.test/recommend", time.Second, client).Score(context.Background(), ScoreRequest{})
	if err == nil {
		t.Fatal("expected decode error")
	}
	var se *ScorerError
	if errors.As(err, &se) {
		t.Errorf("decode failure reported as ScorerError: %v", err)
	}
}

func TestHTTPScorerNotConfigured(t *testing.T) {
	doer := &countingDoer{}
	s := NewHTTPScorer("", 0, doer)
	if s.Configured() {
		t.Error("Configured() = true for empty endpoint")
	}
	if _, err := s.Score(context.Background(), ScoreRequest{}); !errors.Is(err, ErrScorerNotConfigured) {
		t.Fatalf("err = %v", err)
	}
	if doer.calls != 0 {
		t.Errorf("network calls = %d", doer.calls)
	}
}
