package recs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrScorerNotConfigured means the scorer endpoint is unset. It is a
// configuration problem, not an empty result.
var ErrScorerNotConfigured = errors.New("recs: scorer endpoint not configured")

// ScorerError is a non-2xx answer from the scorer.
type ScorerError struct {
	Status int
	Body   string
}

func (e *ScorerError) Error() string {
	return fmt.Sprintf("recs api error: %d %s", e.Status, e.Body)
}

// ScoreRequest is the body POSTed to the scorer.
type ScoreRequest struct {
	Events       []Event `json:"events"`
	K            int     `json:"k"`
	FilterViewed bool    `json:"filter_viewed"`
}

// RankedItem is one scorer suggestion. Rank and Score may be missing.
type RankedItem struct {
	ItemID int64    `json:"item_id"`
	Rank   *float64 `json:"rank,omitempty"`
	Score  *float64 `json:"score,omitempty"`
}

type scoreResponse struct {
	Recommendations []RankedItem `json:"recommendations"`
}

// Scorer ranks item ids for a window of events.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) ([]RankedItem, error)
}

// Doer is the part of *fasthttp.Client used by HTTPScorer.
type Doer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// HTTPScorer calls the scorer over HTTP. One attempt per call, no retries.
type HTTPScorer struct {
	endpoint string
	timeout  time.Duration
	client   Doer
}

// NewHTTPScorer builds a scorer for endpoint. A nil client uses a default
// fasthttp.Client. timeout 0 means no timeout.
func NewHTTPScorer(endpoint string, timeout time.Duration, client Doer) *HTTPScorer {
	if client == nil {
		client = &fasthttp.Client{Name: "storefront-recs"}
	}
	return &HTTPScorer{endpoint: endpoint, timeout: timeout, client: client}
}

func (s *HTTPScorer) Configured() bool { return s.endpoint != "" }

func (s *HTTPScorer) Score(ctx context.Context, in ScoreRequest) ([]RankedItem, error) {
	if s.endpoint == "" {
		scorerRequests.WithLabelValues("unconfigured").Inc()
		return nil, ErrScorerNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode score request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.SetBodyRaw(body)

	start := time.Now()
	if s.timeout > 0 {
		err = s.client.DoTimeout(req, resp, s.timeout)
	} else {
		err = s.client.Do(req, resp)
	}
	scorerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		scorerRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("recs api request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		scorerRequests.WithLabelValues("error").Inc()
		msg := string(resp.Body())
		if msg == "" {
			msg = fasthttp.StatusMessage(status)
		}
		return nil, &ScorerError{Status: status, Body: msg}
	}

	var out scoreResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		scorerRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode recs api response: %w", err)
	}
	scorerRequests.WithLabelValues("ok").Inc()
	return out.Recommendations, nil
}
