package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/decision"
)

// Decider adapts the router to the dispatch scheduler's decider shape:
// it snapshots the agent, routes the request and converts the answer
// back into an engine decision.
type Decider struct {
	router *Router
	roster *agent.Roster
}

// NewDecider wires a decider over a router and roster.
func NewDecider(router *Router, roster *agent.Roster) *Decider {
	return &Decider{router: router, roster: roster}
}

// Decide implements the dispatch decider contract.
func (d *Decider) Decide(ctx context.Context, agentID, prompt string, now time.Time) (*decision.Decision, error) {
	a, ok := d.roster.Get(agentID)
	if !ok {
		return nil, agent.ErrAgentNotFound
	}

	traits := make([]string, len(a.Persona.Traits))
	for i, t := range a.Persona.Traits {
		traits[i] = string(t)
	}
	req := &DecideRequest{
		CharacterID: a.Persona.ID,
		Name:        a.Persona.Name,
		Role:        a.Persona.Role,
		Traits:      traits,
		Needs: map[string]float64{
			string(agent.NeedEnergy):  a.Needs.Energy,
			string(agent.NeedHunger):  a.Needs.Hunger,
			string(agent.NeedSocial):  a.Needs.Social,
			string(agent.NeedStress):  a.Needs.Stress,
			string(agent.NeedComfort): a.Needs.Comfort,
		},
		Location:  a.Location,
		Prompt:    prompt,
		Timestamp: now,
	}

	resp, err := d.router.Route(ctx, agentID, req)
	if err != nil {
		return nil, err
	}
	return fromResponse(resp)
}

// fromResponse validates and converts a provider answer. Unknown action
// types are rejected so a misbehaving provider cannot inject arbitrary
// behavior.
func fromResponse(resp *DecideResponse) (*decision.Decision, error) {
	dec := &decision.Decision{
		Priority: decision.PriorityNormal,
		Source:   decision.SourceExternal,
	}
	if resp.Thought != "" {
		dec.Explain(resp.Thought)
	}

	dur := time.Duration(resp.DurationSec) * time.Second
	if dur <= 0 {
		dur = 5 * time.Minute
	}

	switch resp.ResponseType {
	case "action":
		t := agent.ActionType(resp.ActionType)
		if !agent.KnownAction(t) {
			return nil, fmt.Errorf("provider returned unknown action %q", resp.ActionType)
		}
		dec.Type = decision.TypeAction
		dec.Action = agent.Action{Type: t, Target: resp.Target, Duration: dur}
	case "dialogue":
		if resp.Target == "" {
			return nil, fmt.Errorf("provider dialogue without target")
		}
		dec.Type = decision.TypeDialogue
		dec.Action = agent.Action{Type: agent.ActionConversation, Target: resp.Target, Duration: dur}
		dec.TargetAgentID = resp.Target
		dec.IncludeDialogue = true
	case "idle":
		dec.Type = decision.TypeIdle
		dec.Action = agent.Action{Type: agent.ActionIdle, Duration: dur}
	default:
		return nil, fmt.Errorf("provider returned unknown response type %q", resp.ResponseType)
	}
	return dec, nil
}
