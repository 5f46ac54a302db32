package agent

import (
	"math"
	"time"
)

// Persona is a character's stable identity.
type Persona struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"` // e.g. "developer", "manager"
	Traits    []Trait `json:"traits"`
	Goal      string  `json:"goal,omitempty"` // long-term goal, matched during memory consolidation
	Backstory string  `json:"backstory,omitempty"`
}

// Position is a 2D world coordinate in abstract distance units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the euclidean distance between two positions.
func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Agent is a simulated resident of Pixeltown.
type Agent struct {
	Persona  Persona     `json:"persona"`
	Needs    NeedsVector `json:"needs"`
	Location string      `json:"location"`
	Position Position    `json:"position"`
	Mood     float64     `json:"mood"` // -1 (miserable) to 1 (great)

	// Execution state. At most one action is active at a time; extra
	// actions wait in Queue until the deadline passes.
	Busy          bool      `json:"busy"`
	CurrentAction *Action   `json:"current_action,omitempty"`
	ActionEndsAt  time.Time `json:"action_ends_at,omitempty"`
	Queue         []Action  `json:"queue,omitempty"`

	// ProviderID selects an external decision provider. Empty means the
	// local rule engine decides for this agent.
	ProviderID string `json:"provider_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NearbyIDs returns the IDs of other agents within the given distance.
func NearbyIDs(self *Agent, others []*Agent, maxDistance float64) []string {
	var ids []string
	for _, o := range others {
		if o.Persona.ID == self.Persona.ID {
			continue
		}
		if self.Position.DistanceTo(o.Position) <= maxDistance {
			ids = append(ids, o.Persona.ID)
		}
	}
	return ids
}
