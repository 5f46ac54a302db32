// Package apply executes decisions against agent state: it validates the
// decision, applies need deltas, manages the busy flag and action queue,
// and turns completed actions into memories and social history.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/decision"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/social"
	"go.uber.org/zap"
)

// maxQueuedActions bounds an agent's pending action queue.
const maxQueuedActions = 5

// ErrQueueFull is returned when a busy agent's queue cannot take more.
var ErrQueueFull = errors.New("action queue full")

// ErrInvalidDecision wraps validation failures. The agent still idles
// as a fallback; the error reports why the decision was rejected.
var ErrInvalidDecision = errors.New("invalid decision")

// Applier executes decisions for agents.
type Applier struct {
	roster   *agent.Roster
	memories *memory.Manager
	history  social.HistoryStore
	logger   *zap.Logger
}

// NewApplier wires an applier. history may be nil to skip social
// bookkeeping.
func NewApplier(roster *agent.Roster, memories *memory.Manager,
	history social.HistoryStore, logger *zap.Logger) *Applier {
	return &Applier{
		roster:   roster,
		memories: memories,
		history:  history,
		logger:   logger,
	}
}

// Apply executes a decision for an agent. Invalid decisions degrade to
// idle so the cycle keeps moving, and the rejection comes back as an
// ErrInvalidDecision so callers can report the request unsuccessful.
// Busy agents queue non-critical work; critical decisions interrupt the
// current action.
func (ap *Applier) Apply(ctx context.Context, agentID string, d *decision.Decision, now time.Time) error {
	a, ok := ap.roster.Get(agentID)
	if !ok {
		return agent.ErrAgentNotFound
	}

	var rejected error
	if err := ap.validate(d); err != nil {
		ap.logger.Warn("invalid decision degraded to idle",
			zap.String("agent", agentID),
			zap.Error(err))
		rejected = fmt.Errorf("%w: %v", ErrInvalidDecision, err)
		d = decision.IdleDecision(decision.SourceFallback, "invalid decision, idling instead")
	}

	if a.Busy {
		if d.Priority != decision.PriorityCritical {
			if len(a.Queue) >= maxQueuedActions {
				return ErrQueueFull
			}
			a.Queue = append(a.Queue, d.Action)
			ap.roster.Touch(a)
			ap.logger.Debug("queued action",
				zap.String("agent", agentID),
				zap.String("action", string(d.Action.Type)),
				zap.Int("queue_len", len(a.Queue)))
			return rejected
		}
		// Critical work interrupts: the current action is abandoned
		// without its completion deltas.
		ap.logger.Info("interrupting current action",
			zap.String("agent", agentID),
			zap.String("interrupted", string(a.CurrentAction.Type)),
			zap.String("replacement", string(d.Action.Type)))
	}

	ap.start(ctx, a, d.Action, now)
	return rejected
}

// validate runs the per-type decision checks.
func (ap *Applier) validate(d *decision.Decision) error {
	switch d.Type {
	case decision.TypeAction:
		if !agent.KnownAction(d.Action.Type) {
			return fmt.Errorf("unknown action type %q", d.Action.Type)
		}
		if d.Action.Duration <= 0 {
			return fmt.Errorf("action %s has no duration", d.Action.Type)
		}
		if d.Action.Type == agent.ActionMove && d.Action.Target == "" {
			return errors.New("move action has no destination")
		}
	case decision.TypeDialogue:
		if d.TargetAgentID == "" {
			return errors.New("dialogue decision has no target")
		}
		if _, ok := ap.roster.Get(d.TargetAgentID); !ok {
			return fmt.Errorf("dialogue target %s not registered", d.TargetAgentID)
		}
	case decision.TypeIdle:
		// Always valid.
	default:
		return fmt.Errorf("unknown decision type %q", d.Type)
	}
	return nil
}

// start begins executing an action: start deltas apply immediately, the
// rest lands at the deadline.
func (ap *Applier) start(_ context.Context, a *agent.Agent, action agent.Action, now time.Time) {
	a.Needs.Apply(agent.DeltasFor(action.Type))
	act := action
	a.CurrentAction = &act
	a.ActionEndsAt = now.Add(action.Duration)
	a.Busy = action.Type != agent.ActionIdle

	ap.memories.Append(a.Persona.ID, ap.startText(action), now)
	ap.roster.Touch(a)

	ap.logger.Debug("action started",
		zap.String("agent", a.Persona.ID),
		zap.String("action", string(action.Type)),
		zap.Duration("duration", action.Duration))
}

// Completion reports one finished action from an Advance pass.
type Completion struct {
	AgentID string
	Action  agent.Action
}

// Advance fires completions for every agent whose action deadline has
// passed, then starts the next queued action if any.
func (ap *Applier) Advance(ctx context.Context, now time.Time) []Completion {
	var done []Completion
	for _, a := range ap.roster.List() {
		if a.CurrentAction == nil || a.ActionEndsAt.After(now) {
			continue
		}
		finished := *a.CurrentAction
		ap.complete(ctx, a, finished, now)
		done = append(done, Completion{AgentID: a.Persona.ID, Action: finished})

		if len(a.Queue) > 0 {
			next := a.Queue[0]
			a.Queue = a.Queue[1:]
			ap.start(ctx, a, next, now)
		}
	}
	return done
}

// complete applies completion deltas and side effects for one action.
func (ap *Applier) complete(ctx context.Context, a *agent.Agent, finished agent.Action, now time.Time) {
	a.Needs.Apply(agent.CompletionDeltasFor(finished.Type))
	a.CurrentAction = nil
	a.Busy = false

	switch finished.Type {
	case agent.ActionMove:
		if finished.Target != "" {
			a.Location = finished.Target
		}
	case agent.ActionConversation:
		a.Mood = clampMood(a.Mood + 0.1)
		if ap.history != nil && finished.Target != "" {
			err := ap.history.Record(ctx, social.Interaction{
				FromID:  a.Persona.ID,
				ToID:    finished.Target,
				Quality: conversationQuality(a),
				At:      now,
			})
			if err != nil {
				ap.logger.Warn("record interaction failed",
					zap.String("agent", a.Persona.ID),
					zap.Error(err))
			}
		}
	case agent.ActionRest:
		a.Mood = clampMood(a.Mood + 0.05)
	case agent.ActionWork:
		a.Mood = clampMood(a.Mood - 0.05)
	}

	ap.memories.Append(a.Persona.ID, ap.completionText(finished), now)
	ap.roster.Touch(a)

	ap.logger.Debug("action completed",
		zap.String("agent", a.Persona.ID),
		zap.String("action", string(finished.Type)))
}

// conversationQuality derives interaction quality from the speaker's
// state after the chat. Low stress and decent mood read as a good talk.
func conversationQuality(a *agent.Agent) float64 {
	q := 0.3 + a.Mood*0.4
	if a.Needs.Stress <= agent.ThresholdLow {
		q += 0.2
	}
	if q < -1 {
		return -1
	}
	if q > 1 {
		return 1
	}
	return q
}

func clampMood(m float64) float64 {
	if m < -1 {
		return -1
	}
	if m > 1 {
		return 1
	}
	return m
}

// startText phrases an action start as a first-person memory. The wording
// matters: the memory classifier keys off these verbs.
func (ap *Applier) startText(action agent.Action) string {
	switch action.Type {
	case agent.ActionWork:
		return "started working on the current project"
	case agent.ActionOrganize:
		return "began to organize the task list"
	case agent.ActionDrinkCoffee:
		return "went to drink a coffee"
	case agent.ActionEatSnack:
		return "grabbed a snack"
	case agent.ActionEatMeal:
		return "sat down to eat lunch"
	case agent.ActionConversation:
		return "started a conversation with " + ap.targetName(action.Target)
	case agent.ActionMove:
		return "walked over to " + action.Target
	case agent.ActionRest:
		return "took a break to rest"
	default:
		return "spent some time idle"
	}
}

func (ap *Applier) completionText(action agent.Action) string {
	switch action.Type {
	case agent.ActionWork:
		return "finished a work session successfully"
	case agent.ActionOrganize:
		return "finished organizing tasks, feeling on top of things"
	case agent.ActionConversation:
		return "had a good talk with " + ap.targetName(action.Target)
	case agent.ActionRest:
		return "finished resting, feeling calm"
	case agent.ActionEatMeal:
		return "finished lunch, satisfied"
	default:
		return "finished " + string(action.Type)
	}
}

// targetName resolves an agent ID to a display name, falling back to the
// raw target for locations and unknown IDs.
func (ap *Applier) targetName(target string) string {
	if other, ok := ap.roster.Get(target); ok {
		return other.Persona.Name
	}
	return target
}
