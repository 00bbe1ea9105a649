package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationWireShape(t *testing.T) {
	tests := []struct {
		op    Operation
		path  string
		field string
	}{
		{OpReview, "/api/review-code", "review"},
		{OpFollowUp, "/api/follow-up", "response"},
		{OpFix, "/api/fix-code", "result"},
		{OpGenerateTests, "/api/generate-tests", "result"},
		{OpFormat, "/api/format-code", "formattedCode"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.path, tt.op.Path())
			assert.Equal(t, tt.field, tt.op.ResponseField())
		})
	}
}

func TestFailureTaxonomy(t *testing.T) {
	netErr := NetworkFailure(OpReview, errors.New("connection refused"))
	assert.ErrorIs(t, netErr, review.ErrNetwork)
	assert.NotErrorIs(t, netErr, review.ErrService)
	assert.Contains(t, netErr.Error(), "connection refused")
	assert.Equal(t, 0, netErr.Status)

	svcErr := ServiceFailure(OpFix, 500, "model offline")
	assert.ErrorIs(t, svcErr, review.ErrService)
	assert.Equal(t, "HTTP error! status: 500: model offline", svcErr.Error())

	canceled := NetworkFailure(OpFollowUp, context.Canceled)
	assert.Equal(t, "request canceled", canceled.Detail)
}

func TestFailureRetryable(t *testing.T) {
	assert.True(t, NetworkFailure(OpReview, errors.New("x")).Retryable())
	assert.True(t, ServiceFailure(OpReview, 503, "").Retryable())
	assert.True(t, ServiceFailure(OpReview, 429, "").Retryable())
	assert.False(t, ServiceFailure(OpReview, 400, "No code provided").Retryable())
}

func TestOutcome(t *testing.T) {
	ok := Success("fine")
	assert.True(t, ok.OK())
	v, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "fine", v)

	bad := Fail[string](ServiceFailure(OpReview, 502, ""))
	assert.False(t, bad.OK())
	v, err = bad.Unwrap()
	assert.Empty(t, v)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, 502, f.Status)
}

// countingGateway fails with the queued outcomes, then succeeds.
type countingGateway struct {
	calls    atomic.Int32
	failures []*Failure
}

func (g *countingGateway) next() Outcome[string] {
	n := int(g.calls.Add(1)) - 1
	if n < len(g.failures) {
		return Fail[string](g.failures[n])
	}
	return Success("done")
}

func (g *countingGateway) Review(context.Context, ReviewRequest) Outcome[string]     { return g.next() }
func (g *countingGateway) FollowUp(context.Context, FollowUpRequest) Outcome[string] { return g.next() }
func (g *countingGateway) Fix(context.Context, FixRequest) Outcome[string]           { return g.next() }
func (g *countingGateway) GenerateTests(context.Context, TestsRequest) Outcome[string] {
	return g.next()
}
func (g *countingGateway) Format(context.Context, FormatRequest) Outcome[string] { return g.next() }

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{Attempts: 2, Backoff: time.Millisecond}

	t.Run("disabled policy returns the gateway", func(t *testing.T) {
		gw := &countingGateway{}
		assert.Same(t, gw, WithRetry(gw, RetryPolicy{}))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		gw := &countingGateway{failures: []*Failure{
			NetworkFailure(OpReview, errors.New("reset")),
			ServiceFailure(OpReview, 503, ""),
		}}

		out := WithRetry(gw, policy).Review(ctx, ReviewRequest{})
		require.True(t, out.OK())
		assert.Equal(t, "done", out.Value)
		assert.Equal(t, int32(3), gw.calls.Load())
	})

	t.Run("stops on client errors", func(t *testing.T) {
		gw := &countingGateway{failures: []*Failure{ServiceFailure(OpFix, 400, "bad")}}

		out := WithRetry(gw, policy).Fix(ctx, FixRequest{})
		require.False(t, out.OK())
		assert.Equal(t, 400, out.Failure.Status)
		assert.Equal(t, int32(1), gw.calls.Load())
	})

	t.Run("gives up after the attempts", func(t *testing.T) {
		fail := ServiceFailure(OpGenerateTests, 500, "")
		gw := &countingGateway{failures: []*Failure{fail, fail, fail, fail}}

		out := WithRetry(gw, policy).GenerateTests(ctx, TestsRequest{})
		require.False(t, out.OK())
		assert.Equal(t, int32(3), gw.calls.Load())
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		gw := &countingGateway{failures: []*Failure{NetworkFailure(OpFollowUp, context.Canceled)}}

		out := WithRetry(gw, policy).FollowUp(cctx, FollowUpRequest{})
		require.False(t, out.OK())
		assert.Equal(t, int32(1), gw.calls.Load())
	})
}
