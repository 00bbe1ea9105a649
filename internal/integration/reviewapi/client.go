// Package reviewapi implements backend.Gateway over the review service's
// JSON HTTP API.
package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/logging"
	"github.com/rs/zerolog"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Client talks to the review service. It performs exactly one round trip per
// call and sets no timeout; cancellation comes from the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

var _ backend.Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     logging.Component(log, "reviewapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Review(ctx context.Context, req backend.ReviewRequest) backend.Outcome[string] {
	return c.Send(ctx, backend.OpReview, req)
}

func (c *Client) FollowUp(ctx context.Context, req backend.FollowUpRequest) backend.Outcome[string] {
	return c.Send(ctx, backend.OpFollowUp, req)
}

func (c *Client) Fix(ctx context.Context, req backend.FixRequest) backend.Outcome[string] {
	return c.Send(ctx, backend.OpFix, req)
}

func (c *Client) GenerateTests(ctx context.Context, req backend.TestsRequest) backend.Outcome[string] {
	return c.Send(ctx, backend.OpGenerateTests, req)
}

func (c *Client) Format(ctx context.Context, req backend.FormatRequest) backend.Outcome[string] {
	return c.Send(ctx, backend.OpFormat, req)
}

// Send posts payload to the operation's endpoint and extracts the
// operation's result field from the response.
func (c *Client) Send(ctx context.Context, op backend.Operation, payload any) backend.Outcome[string] {
	body, err := json.Marshal(payload)
	if err != nil {
		// Only reachable with invalid enums; the request never left, so it
		// is not a transport failure.
		return backend.Fail[string](&backend.Failure{
			Op:     op,
			Kind:   backend.KindService,
			Detail: fmt.Sprintf("encoding request: %v", err),
		})
	}

	url := c.baseURL + op.Path()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backend.Fail[string](backend.NetworkFailure(op, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.log.Debug().Ctx(ctx).Str("op", string(op)).Int("bytes", len(body)).Msg("sending request")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		c.log.Debug().Ctx(ctx).Err(err).Str("op", string(op)).Msg("request failed")
		return backend.Fail[string](backend.NetworkFailure(op, err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			err = ctx.Err()
		}
		return backend.Fail[string](backend.NetworkFailure(op, fmt.Errorf("reading response: %w", err)))
	}

	c.log.Debug().
		Ctx(ctx).
		Str("op", string(op)).
		Int("status", resp.StatusCode).
		Int("bytes", len(respBody)).
		Msg("received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backend.Fail[string](backend.ServiceFailure(op, resp.StatusCode, errorMessage(respBody)))
	}

	return extract(op, resp.StatusCode, respBody)
}

// errorMessage pulls the backend's {"error": "..."} message out of a failed
// response, if present.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func extract(op backend.Operation, status int, body []byte) backend.Outcome[string] {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return backend.Fail[string](&backend.Failure{
			Op:     op,
			Kind:   backend.KindService,
			Status: status,
			Detail: fmt.Sprintf("invalid response body: %v", err),
		})
	}

	raw, ok := fields[op.ResponseField()]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return backend.Fail[string](&backend.Failure{
			Op:     op,
			Kind:   backend.KindService,
			Status: status,
			Detail: fmt.Sprintf("response is missing %q", op.ResponseField()),
		})
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return backend.Fail[string](&backend.Failure{
			Op:     op,
			Kind:   backend.KindService,
			Status: status,
			Detail: fmt.Sprintf("response field %q is not a string", op.ResponseField()),
		})
	}

	// A session is only created from review text.
	if op == backend.OpReview && strings.TrimSpace(value) == "" {
		return backend.Fail[string](&backend.Failure{
			Op:     op,
			Kind:   backend.KindService,
			Status: status,
			Detail: fmt.Sprintf("response field %q is empty", op.ResponseField()),
		})
	}

	return backend.Success(value)
}
