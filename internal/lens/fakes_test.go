package lens

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/lens/internal/core/backend"
	"github.com/colonyops/lens/internal/core/eventbus/testbus"
	"github.com/colonyops/lens/internal/core/review"
	"github.com/colonyops/lens/internal/data/memory"
	"github.com/rs/zerolog"
)

const (
	testWait = time.Second
	testTick = 5 * time.Millisecond
)

type handler func(ctx context.Context, req any) backend.Outcome[string]

type call struct {
	op  backend.Operation
	req any
}

// fakeGateway records every call and answers with per-operation handlers.
// Operations without a handler succeed with "ok".
type fakeGateway struct {
	mu       sync.Mutex
	calls    []call
	handlers map[backend.Operation]handler
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{handlers: make(map[backend.Operation]handler)}
}

func (g *fakeGateway) on(op backend.Operation, h handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[op] = h
}

func (g *fakeGateway) reply(op backend.Operation, text string) {
	g.on(op, func(context.Context, any) backend.Outcome[string] { return backend.Success(text) })
}

func (g *fakeGateway) fail(op backend.Operation, f *backend.Failure) {
	g.on(op, func(context.Context, any) backend.Outcome[string] { return backend.Fail[string](f) })
}

func (g *fakeGateway) callsFor(op backend.Operation) []any {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []any
	for _, c := range g.calls {
		if c.op == op {
			out = append(out, c.req)
		}
	}
	return out
}

func (g *fakeGateway) do(ctx context.Context, op backend.Operation, req any) backend.Outcome[string] {
	g.mu.Lock()
	g.calls = append(g.calls, call{op: op, req: req})
	h := g.handlers[op]
	g.mu.Unlock()

	if h == nil {
		return backend.Success("ok")
	}
	return h(ctx, req)
}

func (g *fakeGateway) Review(ctx context.Context, req backend.ReviewRequest) backend.Outcome[string] {
	return g.do(ctx, backend.OpReview, req)
}

func (g *fakeGateway) FollowUp(ctx context.Context, req backend.FollowUpRequest) backend.Outcome[string] {
	return g.do(ctx, backend.OpFollowUp, req)
}

func (g *fakeGateway) Fix(ctx context.Context, req backend.FixRequest) backend.Outcome[string] {
	return g.do(ctx, backend.OpFix, req)
}

func (g *fakeGateway) GenerateTests(ctx context.Context, req backend.TestsRequest) backend.Outcome[string] {
	return g.do(ctx, backend.OpGenerateTests, req)
}

func (g *fakeGateway) Format(ctx context.Context, req backend.FormatRequest) backend.Outcome[string] {
	return g.do(ctx, backend.OpFormat, req)
}

// gate blocks a handler until the test releases it. It ignores cancellation
// so tests can deliver a response after the orchestrator abandoned it.
type gate struct {
	started chan struct{}
	release chan backend.Outcome[string]
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}, 1),
		release: make(chan backend.Outcome[string], 1),
	}
}

func (g *gate) handler(context.Context, any) backend.Outcome[string] {
	g.started <- struct{}{}
	return <-g.release
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the gateway")
	}
}

type result struct {
	value string
	err   error
}

// async runs fn in a goroutine and returns a channel with its result.
func async(fn func() (string, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{value: v, err: err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not return")
		return result{}
	}
}

type fixture struct {
	o     *Orchestrator
	gw    *fakeGateway
	store *memory.HistoryStore
	bus   *testbus.Bus
}

func newFixture(t *testing.T, opts Options, seed ...review.Session) fixture {
	t.Helper()

	gw := newFakeGateway()
	store := memory.NewHistoryStore(seed...)
	bus := testbus.New(t)

	if opts.NewID == nil {
		var mu sync.Mutex
		n := 0
		opts.NewID = func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("s%d", n)
		}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }
	}

	o := NewOrchestrator(context.Background(), gw, store, bus.EventBus, zerolog.New(io.Discard), opts)
	return fixture{o: o, gw: gw, store: store, bus: bus}
}

func storedSession(id, code string) review.Session {
	return review.NewSession(id, review.Draft{
		Code:     code,
		Language: review.LanguagePython,
		Persona:  review.PersonaStandard,
	}, "## Review of "+id, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
}

func pythonDraft(code string) review.Draft {
	return review.Draft{Code: code, Language: review.LanguagePython, Persona: review.PersonaStandard}
}
