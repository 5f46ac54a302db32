package decision

import (
	"context"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/routine"
	"github.com/nidhogg/pixeltown/internal/scene"
	"github.com/nidhogg/pixeltown/internal/social"
	"go.uber.org/zap"
)

// PerceptionDistance bounds which other agents enter the context.
const PerceptionDistance = 10.0

// Context is the immutable situational snapshot one evaluation runs on.
// Built once per evaluation by the Assembler and shared by every tier.
type Context struct {
	Agent    *agent.Agent
	Nearby   []*agent.Agent
	Needs    *agent.NeedsReport
	Weights  map[agent.WeightKey]float64
	Scene    *scene.Scene
	Patterns *memory.Patterns
	Social   *social.Analysis
	Routine  routine.Result
	Prompt   string
	Now      time.Time
}

// locationResources maps location types to what an agent can use there.
var locationResources = map[scene.LocationType][]string{
	scene.LocationBreakRoom: {"coffee machine", "snacks", "sofa"},
	scene.LocationCafeteria: {"food counter", "coffee machine", "tables"},
	scene.LocationLounge:    {"sofa", "snacks"},
	scene.LocationOffice:    {"desk", "whiteboard"},
	scene.LocationMeeting:   {"whiteboard", "projector"},
}

// Assembler builds decision contexts from the live component stack.
type Assembler struct {
	roster   *agent.Roster
	memories *memory.Manager
	social   *social.Analyzer
	routines *routine.Scheduler
	logger   *zap.Logger
}

// NewAssembler wires an assembler.
func NewAssembler(roster *agent.Roster, memories *memory.Manager,
	socialAn *social.Analyzer, routines *routine.Scheduler, logger *zap.Logger) *Assembler {
	return &Assembler{
		roster:   roster,
		memories: memories,
		social:   socialAn,
		routines: routines,
		logger:   logger,
	}
}

// Assemble builds the evaluation context for one agent.
func (as *Assembler) Assemble(ctx context.Context, agentID, prompt string, now time.Time) (*Context, error) {
	a, ok := as.roster.Get(agentID)
	if !ok {
		return nil, agent.ErrAgentNotFound
	}

	var nearby []*agent.Agent
	var rawNearby []scene.Nearby
	for _, other := range as.roster.List() {
		if other.Persona.ID == a.Persona.ID {
			continue
		}
		dist := a.Position.DistanceTo(other.Position)
		if dist > PerceptionDistance {
			continue
		}
		nearby = append(nearby, other)
		rawNearby = append(rawNearby, scene.Nearby{
			ID:       other.Persona.ID,
			Name:     other.Persona.Name,
			Distance: dist,
			Mood:     other.Mood,
		})
	}

	locType := scene.ClassifyLocation(a.Location)
	sc := scene.Analyze(scene.RawContext{
		Location:  a.Location,
		Now:       now,
		Nearby:    rawNearby,
		Resources: locationResources[locType],
	})

	dc := &Context{
		Agent:    a,
		Nearby:   nearby,
		Needs:    agent.EvaluateNeeds(a.Needs, a.Persona.Traits, now),
		Weights:  agent.Weights(a.Persona.Traits),
		Scene:    sc,
		Patterns: as.memories.ExtractPatterns(agentID),
		Social:   as.social.AnalyzeSituation(ctx, a, nearby),
		Routine:  as.routines.Current(a, now),
		Prompt:   prompt,
		Now:      now,
	}
	return dc, nil
}

// NearbyWithin returns context agents inside the given distance.
func (dc *Context) NearbyWithin(maxDistance float64) []*agent.Agent {
	var out []*agent.Agent
	for _, o := range dc.Nearby {
		if dc.Agent.Position.DistanceTo(o.Position) <= maxDistance {
			out = append(out, o)
		}
	}
	return out
}
