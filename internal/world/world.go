package world

import (
	"context"
	"errors"
	"sync"
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

// Cadences in world time.
const (
	DefaultHeartbeat    = 30 * time.Second
	maintenanceInterval = 10 * time.Minute
	historyDecayRate    = 0.02
)

// heartbeatPriorities by need state: agents in trouble jump the queue.
const (
	priorityCriticalBeat = 9
	priorityNormalBeat   = 5
)

// World wires the component stack to the clock. Each tick decays needs,
// fires due action completions, processes one queued decision request
// and, on the heartbeat cadence, requests fresh decisions for every
// available agent.
type World struct {
	roster    *agent.Roster
	applier   *apply.Applier
	scheduler *dispatch.Scheduler
	dialogues *dialogue.Router
	consol    *memory.Consolidator
	history   social.HistoryStore

	heartbeat time.Duration

	mu       sync.Mutex
	lastBeat time.Time
	lastMtn  time.Time

	logger *zap.Logger
}

// New wires a world. consolidator and history may be nil to disable the
// corresponding maintenance passes.
func New(roster *agent.Roster, applier *apply.Applier, scheduler *dispatch.Scheduler,
	dialogues *dialogue.Router, consol *memory.Consolidator, history social.HistoryStore,
	heartbeat time.Duration, logger *zap.Logger) *World {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &World{
		roster:    roster,
		applier:   applier,
		scheduler: scheduler,
		dialogues: dialogues,
		consol:    consol,
		history:   history,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// OnTick implements ClockListener.
func (w *World) OnTick(worldTime time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w.roster.DecayNeeds()

	for _, done := range w.applier.Advance(ctx, worldTime) {
		w.logger.Debug("action finished",
			zap.String("agent", done.AgentID),
			zap.String("action", string(done.Action.Type)))
	}

	w.scheduler.ProcessOne(ctx, worldTime)

	if w.due(&w.lastBeat, worldTime, w.heartbeat) {
		w.requestDecisions(worldTime)
	}
	if w.due(&w.lastMtn, worldTime, maintenanceInterval) {
		w.maintain(ctx, worldTime)
	}
}

// due advances last to worldTime when the interval has elapsed.
func (w *World) due(last *time.Time, worldTime time.Time, interval time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if last.IsZero() {
		*last = worldTime
		return false
	}
	if worldTime.Sub(*last) < interval {
		return false
	}
	*last = worldTime
	return true
}

// requestDecisions submits one decision request per available agent.
func (w *World) requestDecisions(worldTime time.Time) {
	for _, a := range w.roster.List() {
		if a.Busy {
			continue
		}
		id := a.Persona.ID
		prio := priorityNormalBeat
		report := agent.EvaluateNeeds(a.Needs, a.Persona.Traits, worldTime)
		if len(report.Critical) > 0 {
			prio = priorityCriticalBeat
		}
		w.scheduler.Submit(&dispatch.Request{
			AgentID:  id,
			Priority: prio,
			Callback: func(resp dispatch.Response, err error) {
				w.applyResponse(id, resp, err)
			},
		})
	}
}

// applyResponse turns a scheduler response back into agent state. cause
// is non-nil when the scheduler exhausted its retries; the response is
// then the idle fallback and still gets applied.
func (w *World) applyResponse(agentID string, resp dispatch.Response, cause error) {
	if cause != nil {
		w.logger.Warn("decision request failed, applying fallback",
			zap.String("agent", agentID),
			zap.Error(cause))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d := responseDecision(resp)
	if err := w.applier.Apply(ctx, agentID, d, resp.Timestamp); err != nil {
		if errors.Is(err, apply.ErrInvalidDecision) {
			w.logger.Warn("decision rejected, agent idling",
				zap.String("agent", agentID),
				zap.Error(err))
		} else {
			w.logger.Warn("apply decision failed",
				zap.String("agent", agentID),
				zap.Error(err))
		}
		return
	}

	if d.IncludeDialogue && d.TargetAgentID != "" {
		w.openConversation(agentID, d.TargetAgentID, resp.Timestamp)
	}
}

// openConversation generates the initiating line and logs it so attached
// frontends can render the exchange.
func (w *World) openConversation(agentID, targetID string, now time.Time) {
	speaker, ok := w.roster.Get(agentID)
	if !ok {
		return
	}
	partner, ok := w.roster.Get(targetID)
	if !ok {
		return
	}
	line := w.dialogues.Opener(speaker, partner, 0.5, now)
	w.logger.Info("conversation opened",
		zap.String("from", speaker.Persona.Name),
		zap.String("to", partner.Persona.Name),
		zap.String("category", string(line.Category)),
		zap.String("line", line.Text))
}

// responseDecision rebuilds a decision from the standardized response.
func responseDecision(resp dispatch.Response) *decision.Decision {
	d := &decision.Decision{
		Priority: decision.PriorityNormal,
		Source:   resp.Source,
	}
	if resp.Source == decision.SourceCriticalNeeds {
		d.Priority = decision.PriorityCritical
	}
	if resp.Thought != "" {
		d.Explain(resp.Thought)
	}
	switch resp.ResponseType {
	case "action":
		d.Type = decision.TypeAction
		if resp.Action != nil {
			d.Action = *resp.Action
		}
	case "dialogue":
		d.Type = decision.TypeDialogue
		if resp.Action != nil {
			d.Action = *resp.Action
			d.TargetAgentID = resp.Action.Target
		}
		d.IncludeDialogue = true
	default:
		d.Type = decision.TypeIdle
		d.Action = agent.Action{Type: agent.ActionIdle, Duration: 5 * time.Minute}
	}
	if resp.DialogueWith != "" {
		d.IncludeDialogue = true
		d.TargetAgentID = resp.DialogueWith
	}
	return d
}

// maintain runs the slow passes: memory consolidation, relationship
// decay and stale conversation pruning.
func (w *World) maintain(ctx context.Context, worldTime time.Time) {
	if w.consol != nil {
		w.consol.RunAll(ctx, w.roster.List())
	}
	if w.history != nil {
		if err := w.history.Decay(ctx, historyDecayRate); err != nil {
			w.logger.Warn("history decay failed", zap.Error(err))
		}
	}
	if pruned := w.dialogues.Threads().Prune(worldTime); pruned > 0 {
		w.logger.Debug("pruned stale threads", zap.Int("count", pruned))
	}
}

// Status is the world snapshot served by the API.
type Status struct {
	WorldTime   time.Time `json:"world_time"`
	Ticks       uint64    `json:"ticks"`
	Speed       float64   `json:"speed"`
	Running     bool      `json:"running"`
	Agents      int       `json:"agents"`
	Pending     int       `json:"pending_requests"`
	OpenThreads int       `json:"open_threads"`
}

// StatusOf builds a status snapshot from the clock and the world.
func (w *World) StatusOf(c *Clock) Status {
	return Status{
		WorldTime:   c.WorldTime(),
		Ticks:       c.Ticks(),
		Speed:       c.Speed(),
		Running:     c.Running(),
		Agents:      w.roster.Count(),
		Pending:     w.scheduler.Pending(),
		OpenThreads: w.dialogues.Threads().Len(),
	}
}
