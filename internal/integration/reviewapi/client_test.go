package reviewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/logging"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", zerolog.New(io.Discard))
}

func TestClient_Review(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/review-code", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"review":"## Looks fine"}`))
	})

	out := c.Review(context.Background(), backend.ReviewRequest{
		Code:     "print(1)",
		Language: review.LanguagePython,
		Persona:  review.PersonaSecurity,
	})

	require.True(t, out.OK(), "failure: %v", out.Failure)
	assert.Equal(t, "## Looks fine", out.Value)
	assert.Equal(t, map[string]any{"code": "print(1)", "language": "python", "persona": "Security"}, got)
}

func TestClient_FollowUpSendsConversation(t *testing.T) {
	var got backend.FollowUpRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/follow-up", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"Because of the loop."}`))
	})

	conv := []review.Message{review.UserMessage("why?")}
	out := c.FollowUp(context.Background(), backend.FollowUpRequest{
		Code:         "x",
		Language:     review.LanguageSQL,
		Review:       "r",
		Conversation: conv,
	})

	require.True(t, out.OK())
	assert.Equal(t, "Because of the loop.", out.Value)
	assert.Equal(t, conv, got.Conversation)
}

func TestClient_ResultFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/fix-code":
			_, _ = w.Write([]byte(`{"result":"fixed"}`))
		case "/api/generate-tests":
			_, _ = w.Write([]byte(`{"result":"tests"}`))
		case "/api/format-code":
			_, _ = w.Write([]byte(`{"formattedCode":"formatted"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	v, err := c.Fix(ctx, backend.FixRequest{Code: "x", Language: review.LanguagePython}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "fixed", v)

	v, err = c.GenerateTests(ctx, backend.TestsRequest{Code: "x", Language: review.LanguagePython}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "tests", v)

	v, err = c.Format(ctx, backend.FormatRequest{Code: "x", Language: review.LanguagePython}).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "formatted", v)
}

func TestClient_ServiceFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "error with message",
			status:     http.StatusBadRequest,
			body:       `{"error":"No code provided"}`,
			wantStatus: 400,
			wantDetail: "HTTP error! status: 400: No code provided",
		},
		{
			name:       "error without body",
			status:     http.StatusInternalServerError,
			body:       ``,
			wantStatus: 500,
			wantDetail: "HTTP error! status: 500",
		},
		{
			name:       "success missing field",
			status:     http.StatusOK,
			body:       `{"something":"else"}`,
			wantStatus: 200,
			wantDetail: `response is missing "review"`,
		},
		{
			name:       "success with null field",
			status:     http.StatusOK,
			body:       `{"review":null}`,
			wantStatus: 200,
			wantDetail: `response is missing "review"`,
		},
		{
			name:       "success with empty review",
			status:     http.StatusOK,
			body:       `{"review":"  "}`,
			wantStatus: 200,
			wantDetail: `response field "review" is empty`,
		},
		{
			name:       "success with garbage",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: 200,
		},
		{
			name:       "success with wrong type",
			status:     http.StatusOK,
			body:       `{"review":42}`,
			wantStatus: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			out := c.Review(context.Background(), backend.ReviewRequest{Language: review.LanguagePython, Persona: review.PersonaStandard})
			require.False(t, out.OK())
			assert.Equal(t, backend.KindService, out.Failure.Kind)
			assert.Equal(t, tt.wantStatus, out.Failure.Status)
			assert.ErrorIs(t, out.Failure, review.ErrService)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, out.Failure.Detail)
			}
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, zerolog.New(io.Discard))
	out := c.Review(context.Background(), backend.ReviewRequest{Language: review.LanguagePython, Persona: review.PersonaStandard})

	require.False(t, out.OK())
	assert.Equal(t, backend.KindNetwork, out.Failure.Kind)
	assert.Equal(t, 0, out.Failure.Status)
	assert.ErrorIs(t, out.Failure, review.ErrNetwork)
}

func TestClient_EncodingFailure(t *testing.T) {
	called := false
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		called = true
	})

	out := c.Review(context.Background(), backend.ReviewRequest{Language: review.Language("cobol"), Persona: review.PersonaStandard})

	require.False(t, out.OK())
	assert.False(t, called, "nothing is sent when the payload cannot be encoded")
	assert.Equal(t, backend.KindService, out.Failure.Kind)
	assert.NotErrorIs(t, out.Failure, review.ErrNetwork)
	assert.Contains(t, out.Failure.Detail, "encoding request")
}

func TestClient_Canceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Review(ctx, backend.ReviewRequest{Language: review.LanguagePython, Persona: review.PersonaStandard})
	require.False(t, out.OK())
	assert.Equal(t, backend.KindNetwork, out.Failure.Kind)
	assert.Equal(t, "request canceled", out.Failure.Detail)
}

func TestClient_EmptyCodeIsSent(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"No code provided"}`))
	})

	out := c.Review(context.Background(), backend.ReviewRequest{Language: review.LanguagePython, Persona: review.PersonaStandard})
	require.False(t, out.OK())
	assert.Equal(t, "", got["code"])
}

func TestClient_LogsRequestFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"x = 1"}`))
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	c := New(srv.URL, zerolog.New(&buf).Level(zerolog.DebugLevel))

	ctx := logging.WithSlot(logging.WithSessionID(context.Background(), "s1"), "fix")
	out := c.Fix(ctx, backend.FixRequest{Code: "x=1", Language: review.LanguagePython, Review: "r"})
	require.True(t, out.OK())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "reviewapi", entry["component"])
		assert.Equal(t, "s1", entry["session_id"])
		assert.Equal(t, "fix", entry["slot"])
	}
}
