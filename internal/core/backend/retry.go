package backend

import (
	"context"
	"time"
)

// RetryPolicy configures caller-side retries. The gateway itself never
// retries.
type RetryPolicy struct {
	Attempts int           // extra attempts after the first call; 0 disables retries
	Backoff  time.Duration // wait before the first retry, doubled after each attempt
}

// WithRetry wraps gw so that retryable failures are repeated according to p.
// A policy with no attempts returns gw unchanged.
func WithRetry(gw Gateway, p RetryPolicy) Gateway {
	if p.Attempts <= 0 {
		return gw
	}
	return &retryGateway{next: gw, policy: p}
}

type retryGateway struct {
	next   Gateway
	policy RetryPolicy
}

func (r *retryGateway) Review(ctx context.Context, req ReviewRequest) Outcome[string] {
	return retry(ctx, r.policy, func() Outcome[string] { return r.next.Review(ctx, req) })
}

func (r *retryGateway) FollowUp(ctx context.Context, req FollowUpRequest) Outcome[string] {
	return retry(ctx, r.policy, func() Outcome[string] { return r.next.FollowUp(ctx, req) })
}

func (r *retryGateway) Fix(ctx context.Context, req FixRequest) Outcome[string] {
	return retry(ctx, r.policy, func() Outcome[string] { return r.next.Fix(ctx, req) })
}

func (r *retryGateway) GenerateTests(ctx context.Context, req TestsRequest) Outcome[string] {
	return retry(ctx, r.policy, func() Outcome[string] { return r.next.GenerateTests(ctx, req) })
}

func (r *retryGateway) Format(ctx context.Context, req FormatRequest) Outcome[string] {
	return retry(ctx, r.policy, func() Outcome[string] { return r.next.Format(ctx, req) })
}

func retry[T any](ctx context.Context, p RetryPolicy, fn func() Outcome[T]) Outcome[T] {
	var last Outcome[T]
	backoff := p.Backoff
	for attempt := 0; attempt <= p.Attempts; attempt++ {
		last = fn()
		if last.OK() || !last.Failure.Retryable() || ctx.Err() != nil {
			return last
		}

		if attempt < p.Attempts {
			select {
			case <-ctx.Done():
				return last
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return last
}
