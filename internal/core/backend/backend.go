// Package backend defines the request gateway to the remote analysis service:
// the operations it exposes, their payloads, and the Outcome every call
// resolves to.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/lens/internal/core/review"
)

// Operation is a backend endpoint.
type Operation string

const (
	OpReview        Operation = "review-code"
	OpFollowUp      Operation = "follow-up"
	OpFix           Operation = "fix-code"
	OpGenerateTests Operation = "generate-tests"
	OpFormat        Operation = "format-code"
)

// Path returns the HTTP path of the operation.
func (op Operation) Path() string {
	return "/api/" + string(op)
}

// ResponseField returns the JSON field carrying the operation's result.
func (op Operation) ResponseField() string {
	switch op {
	case OpReview:
		return "review"
	case OpFollowUp:
		return "response"
	case OpFormat:
		return "formattedCode"
	default:
		return "result"
	}
}

// ReviewRequest is the payload of review-code.
type ReviewRequest struct {
	Code     string          `json:"code"`
	Language review.Language `json:"language"`
	Persona  review.Persona  `json:"persona"`
}

// FollowUpRequest is the payload of follow-up. The backend keeps no state
// between calls, so the whole conversation is sent every time.
type FollowUpRequest struct {
	Code         string           `json:"code"`
	Language     review.Language  `json:"language"`
	Review       string           `json:"review"`
	Conversation []review.Message `json:"conversation"`
}

// FixRequest is the payload of fix-code.
type FixRequest struct {
	Code     string          `json:"code"`
	Language review.Language `json:"language"`
	Review   string          `json:"review"`
}

// TestsRequest is the payload of generate-tests.
type TestsRequest struct {
	Code     string          `json:"code"`
	Language review.Language `json:"language"`
}

// FormatRequest is the payload of format-code.
type FormatRequest struct {
	Code     string          `json:"code"`
	Language review.Language `json:"language"`
}

// Gateway performs backend calls. Implementations make exactly one round
// trip per call, impose no timeout of their own and report every failure
// through the returned Outcome.
type Gateway interface {
	Review(ctx context.Context, req ReviewRequest) Outcome[string]
	FollowUp(ctx context.Context, req FollowUpRequest) Outcome[string]
	Fix(ctx context.Context, req FixRequest) Outcome[string]
	GenerateTests(ctx context.Context, req TestsRequest) Outcome[string]
	Format(ctx context.Context, req FormatRequest) Outcome[string]
}

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindService means the backend answered with a non-success status or
	// an unusable body.
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Failure describes a failed backend call.
type Failure struct {
	Op     Operation
	Kind   Kind
	Status int    // HTTP status, 0 when no response was received
	Detail string // human readable
}

func (f *Failure) Error() string {
	return f.Detail
}

// Is lets Failure match the shared error taxonomy.
func (f *Failure) Is(target error) bool {
	switch f.Kind {
	case KindNetwork:
		return target == review.ErrNetwork
	case KindService:
		return target == review.ErrService
	default:
		return false
	}
}

// Retryable reports whether repeating the call could succeed: transport
// failures, rate limiting and server-side errors.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindNetwork:
		return true
	case KindService:
		return f.Status == 429 || f.Status >= 500
	default:
		return false
	}
}

// NetworkFailure builds a Failure for a call that received no response.
func NetworkFailure(op Operation, err error) *Failure {
	detail := fmt.Sprintf("could not reach the review service: %v", err)
	if errors.Is(err, context.Canceled) {
		detail = "request canceled"
	}
	return &Failure{Op: op, Kind: KindNetwork, Detail: detail}
}

// ServiceFailure builds a Failure for a non-success response. msg is the
// backend's own error message, if it sent one.
func ServiceFailure(op Operation, status int, msg string) *Failure {
	detail := fmt.Sprintf("HTTP error! status: %d", status)
	if msg != "" {
		detail += ": " + msg
	}
	return &Failure{Op: op, Kind: KindService, Status: status, Detail: detail}
}

// Outcome is the tagged result of a backend call: either a Value or a
// Failure, never both.
type Outcome[T any] struct {
	Value   T
	Failure *Failure
}

// Success wraps a successful result.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fail wraps a failure.
func Fail[T any](f *Failure) Outcome[T] {
	return Outcome[T]{Failure: f}
}

// OK reports whether the call succeeded.
func (o Outcome[T]) OK() bool {
	return o.Failure == nil
}

// Unwrap converts the outcome to Go's value/error pair.
func (o Outcome[T]) Unwrap() (T, error) {
	if o.Failure != nil {
		var zero T
		return zero, o.Failure
	}
	return o.Value, nil
}
