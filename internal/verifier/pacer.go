package verifier

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum spacing between successive calls.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing one call per spacing. A non-positive
// spacing disables pacing.
func NewPacer(spacing time.Duration) *Pacer {
	if spacing <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(spacing), 1)}
}

// Wait blocks until the next call may proceed.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return nil
}

// Each calls fn for every item in order, one at a time, waiting on the pacer
// before each call. It stops early only when ctx is done.
func Each[T any](ctx context.Context, p *Pacer, items []T, fn func(context.Context, T)) error {
	for _, item := range items {
		if err := p.Wait(ctx); err != nil {
			return err
		}
		fn(ctx, item)
	}
	return nil
}
