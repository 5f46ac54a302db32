package world

import (
	"context"
	"testing"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/apply"
	"github.com/nidhogg/pixeltown/internal/decision"
	"github.com/nidhogg/pixeltown/internal/dialogue"
	"github.com/nidhogg/pixeltown/internal/dispatch"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/social"
	"go.uber.org/zap"
)

type idleDecider struct {
	calls int
	order []string
}

func (d *idleDecider) Decide(_ context.Context, agentID, _ string, _ time.Time) (*decision.Decision, error) {
	d.calls++
	d.order = append(d.order, agentID)
	return decision.IdleDecision(decision.SourceIdle, "test"), nil
}

func newTestWorld(t *testing.T) (*World, *agent.Roster, *idleDecider) {
	t.Helper()
	logger := zap.NewNop()
	roster := agent.NewRoster(logger)
	memories := memory.NewManager(0, logger)
	history := social.NewMemoryHistory()
	applier := apply.NewApplier(roster, memories, history, logger)
	local := &idleDecider{}
	scheduler := dispatch.NewScheduler(local, roster, dispatch.NewMemoryCache(), logger)
	router := dialogue.NewRouter(1, logger)
	w := New(roster, applier, scheduler, router, nil, history, DefaultHeartbeat, logger)
	return w, roster, local
}

func TestClockAdvancesWorldTime(t *testing.T) {
	c := NewClock(time.Second, 60, zap.NewNop())
	start := c.WorldTime()
	c.Tick()
	c.Tick()
	if got := c.WorldTime().Sub(start); got != 2*time.Minute {
		t.Errorf("2 ticks at 60x should advance 2m of world time, got %v", got)
	}
	if c.Ticks() != 2 {
		t.Errorf("ticks = %d, want 2", c.Ticks())
	}
}

func TestTickDecaysNeeds(t *testing.T) {
	w, roster, _ := newTestWorld(t)
	a := &agent.Agent{Persona: agent.Persona{ID: "a", Name: "Ada"}}
	roster.Register(a)
	before := a.Needs.Energy

	w.OnTick(time.Now())
	if a.Needs.Energy >= before {
		t.Errorf("energy should decay each tick: %v -> %v", before, a.Needs.Energy)
	}
}

func TestHeartbeatRequestsDecisions(t *testing.T) {
	w, roster, local := newTestWorld(t)
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "a", Name: "Ada"}})
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "b", Name: "Bo"}})

	now := time.Now()
	w.OnTick(now) // arms the cadence
	w.OnTick(now.Add(DefaultHeartbeat + time.Second))

	// Two requests queued; ticks drain one each.
	w.OnTick(now.Add(DefaultHeartbeat + 2*time.Second))
	w.OnTick(now.Add(DefaultHeartbeat + 3*time.Second))
	if local.calls != 2 {
		t.Errorf("both agents should get a decision, calls = %d", local.calls)
	}
}

func TestHeartbeatSkipsBusyAgents(t *testing.T) {
	w, roster, _ := newTestWorld(t)
	a := &agent.Agent{Persona: agent.Persona{ID: "a", Name: "Ada"}}
	roster.Register(a)
	a.Busy = true
	a.CurrentAction = &agent.Action{Type: agent.ActionWork, Duration: time.Hour}
	a.ActionEndsAt = time.Now().Add(time.Hour)

	now := time.Now()
	w.OnTick(now)
	w.OnTick(now.Add(DefaultHeartbeat + time.Second))
	if w.scheduler.Pending() != 0 {
		t.Errorf("busy agents get no heartbeat request, pending = %d", w.scheduler.Pending())
	}
}

func TestCriticalAgentsJumpTheQueue(t *testing.T) {
	w, roster, local := newTestWorld(t)
	fine := &agent.Agent{Persona: agent.Persona{ID: "fine", Name: "F"}}
	roster.Register(fine)
	starving := &agent.Agent{Persona: agent.Persona{ID: "starving", Name: "S"}}
	roster.Register(starving)
	starving.Needs.Hunger = 1

	now := time.Now()
	w.OnTick(now) // arms the cadence
	w.OnTick(now.Add(DefaultHeartbeat + time.Second))
	w.OnTick(now.Add(DefaultHeartbeat + 2*time.Second))

	if len(local.order) == 0 || local.order[0] != "starving" {
		t.Errorf("critical agent should be decided first, order = %v", local.order)
	}
}

func TestResponseDecisionShapes(t *testing.T) {
	act := agent.Action{Type: agent.ActionRest, Duration: time.Minute}
	d := responseDecision(dispatch.Response{ResponseType: "action", Action: &act, Source: decision.SourceRoutine})
	if d.Type != decision.TypeAction || d.Action.Type != agent.ActionRest {
		t.Errorf("action response mapped wrong: %+v", d)
	}

	conv := agent.Action{Type: agent.ActionConversation, Target: "b", Duration: time.Minute}
	d = responseDecision(dispatch.Response{ResponseType: "dialogue", Action: &conv, Source: decision.SourceSocial})
	if d.Type != decision.TypeDialogue || d.TargetAgentID != "b" {
		t.Errorf("dialogue response mapped wrong: %+v", d)
	}

	d = responseDecision(dispatch.Response{ResponseType: "idle", Source: decision.SourceFallback})
	if d.Type != decision.TypeIdle {
		t.Errorf("idle response mapped wrong: %+v", d)
	}

	// Small talk attached to an ordinary action keeps the action type
	// but carries the partner through.
	work := agent.Action{Type: agent.ActionWork, Duration: time.Hour}
	d = responseDecision(dispatch.Response{ResponseType: "action", Action: &work,
		Source: decision.SourceTask, DialogueWith: "b"})
	if d.Type != decision.TypeAction || !d.IncludeDialogue || d.TargetAgentID != "b" {
		t.Errorf("attached chatter mapped wrong: %+v", d)
	}
}

func TestStatusSnapshot(t *testing.T) {
	w, roster, _ := newTestWorld(t)
	roster.Register(&agent.Agent{Persona: agent.Persona{ID: "a", Name: "Ada"}})
	c := NewClock(time.Second, 60, zap.NewNop())
	c.Tick()

	st := w.StatusOf(c)
	if st.Agents != 1 {
		t.Errorf("agents = %d, want 1", st.Agents)
	}
	if st.Ticks != 1 || st.Speed != 60 {
		t.Errorf("clock fields wrong: %+v", st)
	}
}
