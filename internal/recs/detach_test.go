package recs

import (
	"context"
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, task string) float64 {
	t.Helper()
	var m dto.Metric
	if err := detachedFailures.WithLabelValues(task).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

type ctxKey struct{}

func TestDetachOutlivesCaller(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "principal"))
	done := make(chan error, 1)
	release := make(chan struct{})

	Detach(parent, "test-outlive", func(ctx context.Context) error {
		<-release
		if ctx.Value(ctxKey{}) != "principal" {
			done <- errors.New("value lost")
			return nil
		}
		done <- ctx.Err()
		return nil
	})
	cancel()
	close(release)

	if err := <-done; err != nil {
		t.Errorf("detached context: %v", err)
	}
}

func TestDetachCountsFailures(t *testing.T) {
	before := counterValue(t, "test-fail")
	Detach(context.Background(), "test-fail", func(context.Context) error {
		return errStorage
	})
	waitFor(t, func() bool { return counterValue(t, "test-fail") == before+1 })
}

func TestDetachRecoversPanics(t *testing.T) {
	before := counterValue(t, "test-panic")
	Detach(context.Background(), "test-panic", func(context.Context) error {
		panic("boom")
	})
	waitFor(t, func() bool { return counterValue(t, "test-panic") == before+1 })
}
