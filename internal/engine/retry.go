package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/your-org/mallid/internal/errs"
)

// newSinkBreaker returns a circuit breaker tuned for an output repository:
// it opens after 3 consecutive failures and probes again after 10s.
func newSinkBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// writeWithRetry runs write through a circuit breaker with up to 3
// attempts and a short bounded backoff between them, surfacing a
// TransientSinkFailure once attempts are exhausted or the breaker is open.
func writeWithRetry(ctx context.Context, cb *gobreaker.CircuitBreaker[struct{}], context_ string, write func(context.Context) error) error {
	const maxAttempts = 3
	backoff := 100 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		_, err := cb.Execute(func() (struct{}, error) {
			return struct{}{}, write(ctx)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return errs.Cancelled(context_)
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return errs.TransientSinkFailure(context_, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr))
}
