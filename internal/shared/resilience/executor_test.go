package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	exec := NewExecutor(fastPolicy())
	errTransient := errors.New("transient")

	attempts := 0
	err := exec.Do(context.Background(), "summarize", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, func(err error) Verdict {
		return Verdict{Retry: errors.Is(err, errTransient), CountsAsFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastPolicy())
	errBad := errors.New("bad request")

	attempts := 0
	err := exec.Do(context.Background(), "chat", func(context.Context) error {
		attempts++
		return errBad
	}, nil)
	if !errors.Is(err, errBad) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoOpensBreaker(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 1
	p.BreakerEnabled = true
	p.BreakerMinRequests = 2
	p.BreakerFailureRatio = 0.5
	p.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(p)

	failing := func(context.Context) error { return errors.New("upstream 503") }
	for i := 0; i < 2; i++ {
		_ = exec.Do(context.Background(), "summarize", failing, nil)
	}

	called := false
	err := exec.Do(context.Background(), "summarize", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !IsOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if called {
		t.Fatalf("operation must not run while breaker is open")
	}
	if Describe(err) != "circuit_open" {
		t.Fatalf("unexpected describe: %s", Describe(err))
	}
}
