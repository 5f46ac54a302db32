package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/decision"
	"go.uber.org/zap"
)

type stubDecider struct {
	calls int
	fail  int // fail the first n calls
	src   string
}

func (d *stubDecider) Decide(_ context.Context, agentID, _ string, _ time.Time) (*decision.Decision, error) {
	d.calls++
	if d.calls <= d.fail {
		return nil, errors.New("provider down")
	}
	dec := decision.IdleDecision(d.src, "stub")
	return dec, nil
}

func newTestScheduler(t *testing.T, local, external Decider) (*Scheduler, *agent.Roster) {
	t.Helper()
	roster := agent.NewRoster(zap.NewNop())
	opts := []Option{}
	if external != nil {
		opts = append(opts, WithExternal(external))
	}
	s := NewScheduler(local, roster, NewMemoryCache(), zap.NewNop(), opts...)
	return s, roster
}

func TestQueuePriorityOrder(t *testing.T) {
	s, _ := newTestScheduler(t, &stubDecider{src: decision.SourceLocal}, nil)

	var order []string
	cb := func(name string) func(Response, error) {
		return func(Response, error) { order = append(order, name) }
	}
	s.Submit(&Request{AgentID: "a", Prompt: "p1", Priority: 5, Callback: cb("p5")})
	s.Submit(&Request{AgentID: "b", Prompt: "p2", Priority: 9, Callback: cb("p9-first")})
	s.Submit(&Request{AgentID: "c", Prompt: "p3", Priority: 1, Callback: cb("p1")})
	s.Submit(&Request{AgentID: "d", Prompt: "p4", Priority: 9, Callback: cb("p9-second")})

	now := time.Now()
	for s.ProcessOne(context.Background(), now) {
	}

	want := []string{"p9-first", "p9-second", "p5", "p1"}
	if len(order) != len(want) {
		t.Fatalf("processed %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestOneRequestPerTick(t *testing.T) {
	s, _ := newTestScheduler(t, &stubDecider{src: decision.SourceLocal}, nil)
	s.Submit(&Request{AgentID: "a", Prompt: "x"})
	s.Submit(&Request{AgentID: "b", Prompt: "y"})

	s.ProcessOne(context.Background(), time.Now())
	if s.Pending() != 1 {
		t.Errorf("one tick should process one request, pending = %d", s.Pending())
	}
}

func TestCacheHitWithinTTL(t *testing.T) {
	local := &stubDecider{src: decision.SourceLocal}
	s, _ := newTestScheduler(t, local, nil)
	ctx := context.Background()

	var sources []string
	cb := func(r Response, _ error) { sources = append(sources, r.Source) }

	s.Submit(&Request{AgentID: "a", Prompt: "same", Callback: cb})
	s.ProcessOne(ctx, time.Now())
	s.Submit(&Request{AgentID: "a", Prompt: "same", Callback: cb})
	s.ProcessOne(ctx, time.Now())

	if local.calls != 1 {
		t.Errorf("second identical request should hit cache, local calls = %d", local.calls)
	}
	if len(sources) != 2 || sources[1] != decision.SourceCache {
		t.Errorf("sources = %v, want second from cache", sources)
	}
}

func TestDifferentPromptsMissCache(t *testing.T) {
	local := &stubDecider{src: decision.SourceLocal}
	s, _ := newTestScheduler(t, local, nil)
	ctx := context.Background()

	s.Submit(&Request{AgentID: "a", Prompt: "one"})
	s.Submit(&Request{AgentID: "a", Prompt: "two"})
	now := time.Now()
	for s.ProcessOne(ctx, now) {
	}
	if local.calls != 2 {
		t.Errorf("different prompts must not share cache, calls = %d", local.calls)
	}
}

func TestExternalProviderArbitration(t *testing.T) {
	local := &stubDecider{src: decision.SourceLocal}
	external := &stubDecider{src: decision.SourceExternal}
	s, roster := newTestScheduler(t, local, external)
	ctx := context.Background()

	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "ext", Name: "E"}, ProviderID: "sim-server"})
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "loc", Name: "L"}})

	var sources []string
	cb := func(r Response, _ error) { sources = append(sources, r.Source) }
	s.Submit(&Request{AgentID: "ext", Prompt: "a", Callback: cb})
	s.Submit(&Request{AgentID: "loc", Prompt: "b", Callback: cb})
	now := time.Now()
	for s.ProcessOne(ctx, now) {
	}

	if external.calls != 1 || local.calls != 1 {
		t.Errorf("arbitration wrong: external=%d local=%d", external.calls, local.calls)
	}
}

func TestRetryBackoffThenSuccess(t *testing.T) {
	external := &stubDecider{src: decision.SourceExternal, fail: 1}
	s, roster := newTestScheduler(t, &stubDecider{src: decision.SourceLocal}, external)
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "ext", Name: "E"}, ProviderID: "sim"})
	ctx := context.Background()

	var got *Response
	var gotErr error
	s.Submit(&Request{AgentID: "ext", Prompt: "x", Priority: 5, Callback: func(r Response, err error) {
		got = &r
		gotErr = err
	}})

	now := time.Now()
	s.ProcessOne(ctx, now)
	if got != nil {
		t.Fatal("first attempt failed, nothing should be delivered yet")
	}

	// Not ready before the backoff elapses.
	if s.ProcessOne(ctx, now.Add(time.Second)) {
		t.Error("request must wait out its backoff")
	}
	if !s.ProcessOne(ctx, now.Add(3*time.Second)) {
		t.Fatal("request should be ready after backoff")
	}
	if got == nil || got.Source != decision.SourceExternal {
		t.Errorf("retry should succeed via external, got %+v", got)
	}
	if gotErr != nil {
		t.Errorf("successful retry must not carry an error, got %v", gotErr)
	}
}

func TestFallbackAfterMaxAttempts(t *testing.T) {
	external := &stubDecider{src: decision.SourceExternal, fail: maxAttempts}
	s, roster := newTestScheduler(t, &stubDecider{src: decision.SourceLocal}, external)
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "ext", Name: "E"}, ProviderID: "sim"})
	ctx := context.Background()

	var got *Response
	var gotErr error
	s.Submit(&Request{AgentID: "ext", Prompt: "x", Priority: 9, Callback: func(r Response, err error) {
		got = &r
		gotErr = err
	}})

	now := time.Now()
	for i := 0; i < maxAttempts; i++ {
		// Jump far enough ahead that any backoff has elapsed.
		s.ProcessOne(ctx, now.Add(time.Duration(i)*time.Minute))
	}
	if got == nil {
		t.Fatal("exhausted request must still deliver a response")
	}
	if got.Source != decision.SourceFallback {
		t.Errorf("source = %s, want %s", got.Source, decision.SourceFallback)
	}
	if got.ResponseType != "idle" {
		t.Errorf("fallback must be idle, got %s", got.ResponseType)
	}
	if gotErr == nil {
		t.Fatal("exhausted request must surface the failure alongside the fallback")
	}
	if !strings.Contains(gotErr.Error(), "provider down") {
		t.Errorf("error should carry the final cause, got %v", gotErr)
	}
}

func TestResponseShape(t *testing.T) {
	d := &decision.Decision{
		Type:            decision.TypeDialogue,
		Action:          agent.Action{Type: agent.ActionConversation, Target: "b", Duration: time.Minute},
		Priority:        decision.PriorityNormal,
		Source:          decision.SourceSocial,
		TargetAgentID:   "b",
		IncludeDialogue: true,
	}
	d.Explain("step one")
	d.Explain("step two")

	now := time.Now()
	r := FromDecision("a", d, now)
	if r.ResponseType != "dialogue" {
		t.Errorf("type = %s, want dialogue", r.ResponseType)
	}
	if r.CharacterID != "a" || !r.Timestamp.Equal(now) {
		t.Errorf("identity fields wrong: %+v", r)
	}
	if r.Thought != "step one; step two" {
		t.Errorf("thought = %q", r.Thought)
	}
	if r.Action == nil || r.Action.Target != "b" {
		t.Errorf("action = %+v", r.Action)
	}
	if r.DialogueWith != "b" {
		t.Errorf("dialogueWith = %q, want b", r.DialogueWith)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.Set(ctx, "k", Response{CharacterID: "a"}, 10*time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("fresh entry should hit")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
}
