package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// httpBase is the shared transport/resilience plumbing every concrete
// adapter embeds: a breaker that trips after repeated failures and an
// exponential backoff retry for transient errors, grounded on the
// same pattern the teacher uses around its Dolt server reconnects.
type httpBase struct {
	name     string
	priority int
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

func newHTTPBase(name string, priority int, timeoutSeconds int) httpBase {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return httpBase{
		name:     name,
		priority: priority,
		client:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
		}),
	}
}

func (b httpBase) Name() string { return b.name }

func (b httpBase) Priority() int { return b.priority }

// do runs fn through the breaker with an exponential-backoff retry
// around transient (non-permanent) failures. A 4xx response should be
// wrapped in backoff.Permanent by the caller so it isn't retried.
func (b httpBase) do(ctx context.Context, fn func() error) error {
	_, err := b.breaker.Execute(func() (any, error) {
		bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
		return nil, backoff.Retry(fn, bo)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

func (b httpBase) HealthCheck(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false, nil //nolint:nilerr
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500, nil
}
