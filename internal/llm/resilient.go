package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/resilience"
)

// Resilient wraps a Client with per-attempt timeouts, retries and a circuit
// breaker per operation.
type Resilient struct {
	Base    Client
	Exec    *resilience.Executor
	Timeout time.Duration
}

// NewResilient builds a Resilient client with the given policy.
func NewResilient(base Client, policy resilience.Policy, timeout time.Duration) *Resilient {
	return &Resilient{
		Base:    base,
		Exec:    resilience.NewExecutor(policy),
		Timeout: timeout,
	}
}

func (r *Resilient) Provider() string {
	if r == nil || r.Base == nil {
		return "none"
	}
	return r.Base.Provider()
}

func (r *Resilient) Complete(ctx context.Context, messages []Message) (string, error) {
	if r == nil || r.Base == nil {
		return "", ErrNotConfigured
	}
	op := OperationFromContext(ctx)
	var out string
	err := r.Exec.Do(ctx, r.Base.Provider()+"."+op, func(ctx context.Context) error {
		attemptCtx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}
		resp, err := r.Base.Complete(attemptCtx, messages)
		if err != nil {
			return err
		}
		out = resp
		return nil
	}, Classify)
	metrics.IncLLMCall(r.Base.Provider(), op, err)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Classify decides whether a provider error is worth another attempt.
// Timeouts, rate limits, 5xx responses and dropped connections are retried.
// Cancellation and request errors are not; only transient failures count
// toward opening the breaker.
func Classify(err error) resilience.Verdict {
	if ShouldRetry(err) {
		return resilience.Verdict{Retry: true, CountsAsFailure: true}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotConfigured) {
		return resilience.Verdict{}
	}
	return resilience.Verdict{Retry: false, CountsAsFailure: false}
}

func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "http status 429") || strings.Contains(msg, "http status 408") ||
		strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource_exhausted") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "unexpected eof") {
		return true
	}
	return false
}
