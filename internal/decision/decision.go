// Package decision turns an assembled situational context into exactly
// one Decision through a strictly ordered tier evaluation. Evaluation
// never fails: idle is the terminal fallback.
package decision

import (
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// Type is the decision outcome class. Exactly one applies per decision.
type Type string

const (
	TypeAction   Type = "ACTION"
	TypeDialogue Type = "DIALOGUE"
	TypeIdle     Type = "IDLE"
)

// Priority is the tier a decision was produced at.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Decision sources, for auditing which tier or path produced a result.
const (
	SourceCriticalNeeds = "critical_needs"
	SourceTask          = "task_assignment"
	SourceSocial        = "social_needs"
	SourceRoutine       = "routine"
	SourceIdle          = "idle_fallback"
	SourceLocal         = "local_engine"
	SourceExternal      = "external_provider"
	SourceCache         = "cache"
	SourceFallback      = "fallback"
)

// Decision is the engine's output for one evaluation cycle.
type Decision struct {
	Type     Type         `json:"type"`
	Action   agent.Action `json:"action"`
	Priority Priority     `json:"priority"`
	Source   string       `json:"source"`

	// TargetAgentID is set for social actions.
	TargetAgentID string `json:"target_agent_id,omitempty"`

	// IncludeDialogue asks the dialogue router to attach a line.
	IncludeDialogue bool `json:"include_dialogue,omitempty"`

	// AbandonChance tags actions a Chaotic agent may walk away from.
	AbandonChance float64 `json:"abandon_chance,omitempty"`

	// Reasoning is the accumulated human-readable trail of every rule
	// that contributed to this decision.
	Reasoning []string `json:"reasoning"`
}

// Explain appends one reasoning step.
func (d *Decision) Explain(step string) {
	d.Reasoning = append(d.Reasoning, step)
}

// IdleDecision builds the terminal fallback.
func IdleDecision(source, why string) *Decision {
	d := &Decision{
		Type:     TypeIdle,
		Action:   agent.Action{Type: agent.ActionIdle, Duration: idleDuration},
		Priority: PriorityLow,
		Source:   source,
	}
	d.Explain(why)
	return d
}

// idleDuration is the fixed, personality-independent idle span.
const idleDuration = 5 * time.Minute
