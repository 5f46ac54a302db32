package decision

import (
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/routine"
	"github.com/nidhogg/pixeltown/internal/scene"
	"go.uber.org/zap"
)

// monday anchors tests on a known weekday: 2025-06-02 is a Monday.
func monday(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func testAgent(traits ...agent.Trait) *agent.Agent {
	return &agent.Agent{
		Persona:  agent.Persona{ID: "a1", Name: "Ada", Role: "developer", Traits: traits},
		Needs:    agent.NeedsVector{Energy: 8, Hunger: 8, Social: 8, Stress: 2, Comfort: 8},
		Location: "office desk",
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(routine.NewScheduler(nil, 1), 1, zap.NewNop())
}

func testContext(a *agent.Agent, now time.Time, prompt string, resources []string, nearby ...scene.Nearby) *Context {
	sched := routine.NewScheduler(nil, 1)
	sc := scene.Analyze(scene.RawContext{
		Location:  a.Location,
		Now:       now,
		Nearby:    nearby,
		Resources: resources,
	})
	return &Context{
		Agent:    a,
		Needs:    agent.EvaluateNeeds(a.Needs, a.Persona.Traits, now),
		Weights:  agent.Weights(a.Persona.Traits),
		Scene:    sc,
		Patterns: &memory.Patterns{},
		Routine:  sched.Current(a, now),
		Prompt:   prompt,
		Now:      now,
	}
}

func TestCriticalNeedPreemptsEverything(t *testing.T) {
	e := testEngine(t)

	// Even the laziest agent drinks coffee when running on fumes.
	a := testAgent(agent.TraitLazy)
	a.Needs.Energy = 1
	dc := testContext(a, monday(10), "", []string{"coffee machine"})

	d := e.Evaluate(dc)
	if d.Source != SourceCriticalNeeds {
		t.Fatalf("source = %s, want %s", d.Source, SourceCriticalNeeds)
	}
	if d.Action.Type != agent.ActionDrinkCoffee {
		t.Errorf("action = %s, want %s", d.Action.Type, agent.ActionDrinkCoffee)
	}
	if d.Priority != PriorityCritical {
		t.Errorf("priority = %s, want critical", d.Priority)
	}
}

func TestCriticalNeedWithoutResourceMoves(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Energy = 1
	dc := testContext(a, monday(10), "", nil)

	d := e.Evaluate(dc)
	if d.Action.Type != agent.ActionMove {
		t.Fatalf("no coffee here should move, got %s", d.Action.Type)
	}
	if d.Action.Target == "" {
		t.Error("move action needs a destination")
	}
}

func TestLazyAvoidsWorkAtLowEnergy(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitLazy)
	a.Needs.Energy = 5
	dc := testContext(a, monday(10), "", nil)

	d := e.Evaluate(dc)
	if d.Source == SourceTask {
		t.Errorf("lazy agent at energy 5 should skip the task tier, got %+v", d)
	}
}

func TestAmbitiousLazyResolvedByEnergy(t *testing.T) {
	e := testEngine(t)

	// High energy: the ambitious side wins and work happens.
	a := testAgent(agent.TraitAmbitious, agent.TraitLazy)
	a.Needs.Energy = 9
	d := e.Evaluate(testContext(a, monday(10), "", nil))
	if d.Source != SourceTask {
		t.Errorf("energetic ambitious/lazy agent should work, got source %s", d.Source)
	}

	// Low energy: the lazy side wins.
	a2 := testAgent(agent.TraitAmbitious, agent.TraitLazy)
	a2.Needs.Energy = 4
	d2 := e.Evaluate(testContext(a2, monday(10), "", nil))
	if d2.Source == SourceTask {
		t.Errorf("tired ambitious/lazy agent should not work, got %+v", d2)
	}
}

func TestOrganizedPrefersOrganizing(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitOrganized)
	d := e.Evaluate(testContext(a, monday(10), "", nil))
	if d.Action.Type != agent.ActionOrganize {
		t.Errorf("organized agent should organize first, got %s", d.Action.Type)
	}
}

func TestSocialTierTargetsNearbyAgent(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Social = 3
	dc := testContext(a, monday(20), "", nil,
		scene.Nearby{ID: "b1", Name: "Bo", Distance: 1, Mood: 0.5})

	d := e.Evaluate(dc)
	if d.Type != TypeDialogue {
		t.Fatalf("type = %s, want DIALOGUE", d.Type)
	}
	if d.Source != SourceSocial {
		t.Errorf("source = %s, want %s", d.Source, SourceSocial)
	}
	if d.TargetAgentID != "b1" {
		t.Errorf("target = %q, want b1", d.TargetAgentID)
	}
	if !d.IncludeDialogue {
		t.Error("dialogue decisions must request a line")
	}
}

func TestIntrovertedSkipsCrowds(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitIntroverted)
	a.Needs.Social = 3

	var crowd []scene.Nearby
	for i := 0; i < 7; i++ {
		crowd = append(crowd, scene.Nearby{ID: string(rune('b' + i)), Name: "X", Distance: 1})
	}
	d := e.Evaluate(testContext(a, monday(20), "", nil, crowd...))
	if d.Source == SourceSocial {
		t.Errorf("introverted agent in a packed room should not initiate, got %+v", d)
	}
}

func TestExtrovertedMovesWhenAlone(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitExtroverted)
	a.Needs.Social = 3
	d := e.Evaluate(testContext(a, monday(20), "", nil))
	if d.Source != SourceSocial || d.Action.Type != agent.ActionMove {
		t.Errorf("lonely extrovert should seek company, got %+v", d)
	}
}

func TestRoutineTierDelegates(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitIntroverted)
	a.Needs.Social = 3

	// Packed room blocks the social tier; evening winddown takes over.
	var crowd []scene.Nearby
	for i := 0; i < 7; i++ {
		crowd = append(crowd, scene.Nearby{ID: string(rune('b' + i)), Name: "X", Distance: 1})
	}
	d := e.Evaluate(testContext(a, monday(20), "", nil, crowd...))
	if d.Source != SourceRoutine {
		t.Fatalf("source = %s, want %s", d.Source, SourceRoutine)
	}
	if d.Action.Type != agent.ActionRest {
		t.Errorf("introverted winddown should rest, got %s", d.Action.Type)
	}
}

func TestIdleFallbackNeverFails(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	d := e.Evaluate(testContext(a, monday(3), "", nil))
	if d.Type != TypeIdle {
		t.Fatalf("3am with satisfied needs should idle, got %s", d.Type)
	}
	if d.Source != SourceIdle {
		t.Errorf("source = %s, want %s", d.Source, SourceIdle)
	}
	if len(d.Reasoning) == 0 {
		t.Error("every decision carries a reasoning trail")
	}
}

func TestExactlyOneOutcomeType(t *testing.T) {
	e := testEngine(t)
	agents := []*agent.Agent{
		testAgent(),
		testAgent(agent.TraitLazy),
		testAgent(agent.TraitExtroverted, agent.TraitGossip),
		testAgent(agent.TraitChaotic),
	}
	for hour := 0; hour < 24; hour++ {
		for _, a := range agents {
			d := e.Evaluate(testContext(a, monday(hour), "", nil))
			switch d.Type {
			case TypeAction, TypeDialogue, TypeIdle:
			default:
				t.Fatalf("unknown decision type %q at hour %d", d.Type, hour)
			}
		}
	}
}

func TestChaoticDecisionsCarryAbandonChance(t *testing.T) {
	e := testEngine(t)
	a := testAgent(agent.TraitChaotic)
	d := e.Evaluate(testContext(a, monday(20), "", nil))
	if d.AbandonChance != chaoticAbandonChance {
		t.Errorf("abandon chance = %v, want %v", d.AbandonChance, chaoticAbandonChance)
	}
}

func TestWorkPressureTriggerRaisesPriority(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	d := e.Evaluate(testContext(a, monday(10), "big deadline today", nil))
	if d.Source != SourceTask {
		t.Fatalf("source = %s, want %s", d.Source, SourceTask)
	}
	if d.Priority != PriorityHigh {
		t.Errorf("priority = %s, want high under deadline pressure", d.Priority)
	}
}

func TestBreakCueRedirectsStressedWorker(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Stress = 6
	d := e.Evaluate(testContext(a, monday(10), "hey, take a break", nil))
	if d.Action.Type != agent.ActionRest {
		t.Errorf("stressed worker told to take a break should rest, got %s", d.Action.Type)
	}
}

func TestTriggerCategoriesStack(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Stress = 6

	// Work pressure and a break cue in the same prompt: the first raises
	// the priority, the second still redirects the stressed worker.
	d := e.Evaluate(testContext(a, monday(10), "urgent deadline, but take a break first", nil))
	if d.Priority != PriorityHigh {
		t.Errorf("priority = %s, want high from the pressure cue", d.Priority)
	}
	if d.Action.Type != agent.ActionRest {
		t.Errorf("action = %s, want REST from the break cue", d.Action.Type)
	}
}

func TestFestiveHumorStacksOnDialogue(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Social = 3
	d := e.Evaluate(testContext(a, monday(20), "birthday party, heard a hilarious joke", nil,
		scene.Nearby{ID: "b1", Name: "Bo", Distance: 1, Mood: 0.5}))
	if d.Type != TypeDialogue {
		t.Fatalf("type = %s, want DIALOGUE", d.Type)
	}
	if d.Action.Duration != 26*time.Minute {
		t.Errorf("duration = %v, want the festive 1.3x stretch", d.Action.Duration)
	}
	joined := strings.Join(d.Reasoning, " | ")
	if !strings.Contains(joined, "festive") || !strings.Contains(joined, "joke") {
		t.Errorf("both cues should land, reasoning = %v", d.Reasoning)
	}
}

func TestMundaneActionsSometimesChat(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	nearby := scene.Nearby{ID: "b1", Name: "Bo", Distance: 1, Mood: 0.5}

	attached := 0
	const rounds = 400
	for i := 0; i < rounds; i++ {
		d := e.Evaluate(testContext(a, monday(10), "", nil, nearby))
		if d.Type != TypeAction {
			t.Fatalf("working hours should yield an action, got %s", d.Type)
		}
		if d.IncludeDialogue {
			if d.TargetAgentID != "b1" {
				t.Fatalf("chatter target = %q, want b1", d.TargetAgentID)
			}
			attached++
		}
	}
	if attached == 0 {
		t.Error("small talk should attach to some mundane actions")
	}
	if attached == rounds {
		t.Error("small talk must stay occasional, not constant")
	}
}

func TestMundaneChatterNeedsCompany(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	for i := 0; i < 200; i++ {
		if d := e.Evaluate(testContext(a, monday(10), "", nil)); d.IncludeDialogue {
			t.Fatal("nobody in range, nothing to chat with")
		}
	}
}

func TestCriticalNeverChatters(t *testing.T) {
	e := testEngine(t)
	for i := 0; i < 200; i++ {
		a := testAgent()
		a.Needs.Energy = 1
		d := e.Evaluate(testContext(a, monday(10), "", []string{"coffee machine"},
			scene.Nearby{ID: "b1", Name: "Bo", Distance: 1, Mood: 0.5}))
		if d.IncludeDialogue {
			t.Fatal("critical decisions must not pick up small talk")
		}
	}
}

func TestCriticalIgnoresTriggers(t *testing.T) {
	e := testEngine(t)
	a := testAgent()
	a.Needs.Energy = 1
	d := e.Evaluate(testContext(a, monday(10), "big deadline today", []string{"coffee machine"}))
	if d.Source != SourceCriticalNeeds {
		t.Errorf("triggers must not override critical needs, got %s", d.Source)
	}
}
