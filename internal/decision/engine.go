package decision

import (
	"math/rand"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/routine"
	"github.com/nidhogg/pixeltown/internal/scene"
	"go.uber.org/zap"
)

// Working hours gate the task tier.
const (
	workStartHour = 9
	workEndHour   = 18
)

// baseDurations for tier-produced actions, before personality scaling.
const (
	workDuration   = 60 * time.Minute
	socialDuration = 20 * time.Minute
	moveDuration   = 5 * time.Minute
	needDuration   = 10 * time.Minute
)

// Engine evaluates decision contexts through the priority tiers.
type Engine struct {
	routines *routine.Scheduler
	rand     *rand.Rand
	logger   *zap.Logger
}

// NewEngine creates a decision engine. The routine scheduler resolves
// tier-4 routine actions.
func NewEngine(routines *routine.Scheduler, seed int64, logger *zap.Logger) *Engine {
	return &Engine{
		routines: routines,
		rand:     rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

// Evaluate runs the strictly ordered tiers over a context. The first
// tier that produces a decision wins; idle always terminates. The result
// then passes the personality pass and the prompt-trigger pass.
func (e *Engine) Evaluate(dc *Context) *Decision {
	d := e.criticalNeeds(dc)
	if d == nil {
		d = e.taskAssignment(dc)
	}
	if d == nil {
		d = e.socialNeeds(dc)
	}
	if d == nil {
		d = e.routineBehavior(dc)
	}
	if d == nil {
		d = IdleDecision(SourceIdle, "nothing pressing, idling")
	}

	e.modifyByPersonality(d, dc)
	applyTriggers(d, dc)
	e.maybeAttachChatter(d, dc)

	e.logger.Debug("decision evaluated",
		zap.String("agent", dc.Agent.Persona.ID),
		zap.String("type", string(d.Type)),
		zap.String("action", string(d.Action.Type)),
		zap.String("source", d.Source))
	return d
}

// criticalNeeds is tier 1: any need in the critical band resolves to the
// action that most directly satisfies it, if available here.
func (e *Engine) criticalNeeds(dc *Context) *Decision {
	if len(dc.Needs.Critical) == 0 {
		return nil
	}
	need := dc.Needs.Critical[0]

	var action agent.Action
	var why string
	switch need {
	case agent.NeedEnergy:
		if hasResource(dc.Scene, "coffee") {
			action = agent.Action{Type: agent.ActionDrinkCoffee, Duration: needDuration}
			why = "energy critical, coffee available"
		} else {
			action = agent.Action{Type: agent.ActionMove, Target: "break room", Duration: moveDuration}
			why = "energy critical, heading for the break room"
		}
	case agent.NeedHunger:
		if hasResource(dc.Scene, "food") || hasResource(dc.Scene, "snack") {
			action = agent.Action{Type: agent.ActionEatSnack, Duration: needDuration}
			why = "hunger critical, grabbing a snack"
		} else {
			action = agent.Action{Type: agent.ActionMove, Target: "cafeteria", Duration: moveDuration}
			why = "hunger critical, heading for the cafeteria"
		}
	case agent.NeedStress:
		action = agent.Action{Type: agent.ActionRest, Duration: 2 * needDuration}
		why = "stress critical, taking an extended break"
	case agent.NeedSocial:
		target := closestOpportunity(dc.Scene)
		if target == nil {
			return nil // nobody to talk to; let lower tiers handle it
		}
		action = agent.Action{Type: agent.ActionConversation, Target: target.AgentID, Duration: socialDuration}
		why = "social need critical, approaching " + target.Name
	case agent.NeedComfort:
		action = agent.Action{Type: agent.ActionRest, Duration: needDuration}
		why = "comfort critical, settling down to rest"
	default:
		return nil
	}

	d := &Decision{
		Type:     TypeAction,
		Action:   action,
		Priority: PriorityCritical,
		Source:   SourceCriticalNeeds,
	}
	if action.Type == agent.ActionConversation {
		d.Type = TypeDialogue
		d.TargetAgentID = action.Target
		d.IncludeDialogue = true
	}
	d.Explain(why)
	return d
}

// taskAssignment is tier 2: pick up work during working hours.
func (e *Engine) taskAssignment(dc *Context) *Decision {
	urgent := hasTrigger(dc.Prompt, workPressureWords)
	hour := dc.Now.Hour()
	weekday := dc.Now.Weekday() != time.Saturday && dc.Now.Weekday() != time.Sunday
	workingHours := weekday && hour >= workStartHour && hour < workEndHour
	if !workingHours && !urgent {
		return nil
	}

	// The lazy avoidance rule: skip this tier entirely at low energy.
	if agent.ResolveDrive(dc.Agent.Persona.Traits, dc.Agent.Needs.Energy) == agent.TraitLazy &&
		dc.Agent.Needs.Energy < agent.ThresholdModerate {
		return nil
	}

	chosen := agent.ActionWork
	why := "working hours, picking up a task"
	if agent.ResolveOrder(dc.Agent.Persona.Traits, dc.Agent.Needs.Stress) == agent.TraitOrganized {
		chosen = agent.ActionOrganize
		why = "working hours, organizing the task list first"
	}

	dur := time.Duration(float64(workDuration) * dc.Weights[agent.WeightDuration])
	mod := dc.Patterns.Modifier(chosen)

	d := &Decision{
		Type:     TypeAction,
		Action:   agent.Action{Type: chosen, Duration: dur},
		Priority: PriorityNormal,
		Source:   SourceTask,
	}
	if urgent {
		d.Priority = PriorityHigh
		d.Explain("urgent work pressure detected")
	}
	d.Explain(why)
	if mod != 1.0 {
		d.Action.Duration = time.Duration(float64(d.Action.Duration) * mod)
		d.Explain("past outcomes adjusted task appetite")
	}
	return d
}

// socialNeeds is tier 3: seek conversation when the social need is low.
func (e *Engine) socialNeeds(dc *Context) *Decision {
	if dc.Agent.Needs.Social > agent.ThresholdLow {
		return nil
	}

	crowded := dc.Scene.Crowdedness == scene.CrowdBusy || dc.Scene.Crowdedness == scene.CrowdPacked
	if agent.ResolveSociability(dc.Agent.Persona.Traits, dc.Scene.NearbyCount) == agent.TraitIntroverted && crowded {
		return nil
	}

	partner := e.choosePartner(dc)
	if partner == nil {
		if agent.HasTrait(dc.Agent.Persona.Traits, agent.TraitExtroverted) {
			d := &Decision{
				Type:     TypeAction,
				Action:   agent.Action{Type: agent.ActionMove, Target: "break room", Duration: moveDuration},
				Priority: PriorityNormal,
				Source:   SourceSocial,
			}
			d.Explain("feeling lonely, moving somewhere social")
			return d
		}
		return nil
	}

	d := &Decision{
		Type:            TypeDialogue,
		Action:          agent.Action{Type: agent.ActionConversation, Target: partner.AgentID, Duration: socialDuration},
		Priority:        PriorityNormal,
		Source:          SourceSocial,
		TargetAgentID:   partner.AgentID,
		IncludeDialogue: true,
	}
	d.Explain("social need low, approaching " + partner.Name)
	return d
}

// choosePartner picks the best conversation partner in range. Gossip
// agents prefer people they already know from memory.
func (e *Engine) choosePartner(dc *Context) *scene.Opportunity {
	opps := dc.Scene.Opportunities
	if len(opps) == 0 {
		return nil
	}
	if agent.HasTrait(dc.Agent.Persona.Traits, agent.TraitGossip) {
		for i := range opps {
			for _, known := range dc.Patterns.KnownPeople {
				if opps[i].Name == known {
					return &opps[i]
				}
			}
		}
	}
	return &opps[0]
}

// routineBehavior is tier 4: delegate to the routine scheduler.
func (e *Engine) routineBehavior(dc *Context) *Decision {
	if dc.Routine.Active == nil {
		return nil
	}
	if e.routines.ShouldBreak(dc.Agent) {
		return nil
	}
	action := e.routines.ResolveAction(dc.Routine.Active, dc.Agent)
	d := &Decision{
		Type:     TypeAction,
		Action:   action,
		Priority: PriorityNormal,
		Source:   SourceRoutine,
	}
	if action.Type == agent.ActionConversation {
		if target := closestOpportunity(dc.Scene); target != nil {
			d.Type = TypeDialogue
			d.Action.Target = target.AgentID
			d.TargetAgentID = target.AgentID
			d.IncludeDialogue = true
		} else {
			// Routine wanted company but nobody is around; eat alone.
			d.Action.Type = agent.ActionEatMeal
		}
	}
	d.Explain("following routine " + dc.Routine.Active.Definition.Name)
	return d
}

// mundaneChatterChance attaches small talk to an ordinary action when
// someone is close enough to hear it.
const mundaneChatterChance = 0.05

// maybeAttachChatter gives mundane actions a small fixed chance of
// carrying a conversation line. Critical decisions and decisions that
// already talk are left alone.
func (e *Engine) maybeAttachChatter(d *Decision, dc *Context) {
	if d.Type != TypeAction || d.Priority == PriorityCritical || d.IncludeDialogue {
		return
	}
	partner := closestOpportunity(dc.Scene)
	if partner == nil {
		return
	}
	if e.rand.Float64() >= mundaneChatterChance {
		return
	}
	d.IncludeDialogue = true
	d.TargetAgentID = partner.AgentID
	d.Explain("making small talk with " + partner.Name + " meanwhile")
}

func closestOpportunity(sc *scene.Scene) *scene.Opportunity {
	if len(sc.Opportunities) == 0 {
		return nil
	}
	return &sc.Opportunities[0]
}

func hasResource(sc *scene.Scene, want string) bool {
	for _, r := range sc.Resources {
		if containsFold(r, want) {
			return true
		}
	}
	return false
}
