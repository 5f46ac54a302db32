package agent

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAgentNotFound is returned when an agent ID is not registered.
var ErrAgentNotFound = errors.New("agent not found")

// Persister saves agent state to durable storage. Implemented by the
// postgres store; nil disables persistence.
type Persister interface {
	SaveAgent(a *Agent) error
	DeleteAgent(id string) error
}

// Roster manages all live agents.
type Roster struct {
	agents    map[string]*Agent
	persister Persister
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRoster creates an empty roster.
func NewRoster(logger *zap.Logger) *Roster {
	return &Roster{
		agents: make(map[string]*Agent),
		logger: logger,
	}
}

// SetPersister attaches durable storage for agent snapshots.
func (r *Roster) SetPersister(p Persister) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persister = p
}

// Register adds an agent, assigning an ID and default needs if missing.
func (r *Roster) Register(a *Agent) {
	r.mu.Lock()
	if a.Persona.ID == "" {
		a.Persona.ID = uuid.New().String()
	}
	zero := NeedsVector{}
	if a.Needs == zero {
		a.Needs = DefaultNeeds()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.agents[a.Persona.ID] = a
	p := r.persister
	r.mu.Unlock()

	r.logger.Info("registered agent",
		zap.String("id", a.Persona.ID),
		zap.String("name", a.Persona.Name))

	if p != nil {
		if err := p.SaveAgent(a); err != nil {
			r.logger.Warn("persist agent failed", zap.String("id", a.Persona.ID), zap.Error(err))
		}
	}
}

// Get returns an agent by ID.
func (r *Roster) Get(id string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns all registered agents.
func (r *Roster) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Remove deletes an agent from the roster.
func (r *Roster) Remove(id string) error {
	r.mu.Lock()
	_, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
	}
	p := r.persister
	r.mu.Unlock()

	if !ok {
		return ErrAgentNotFound
	}
	r.logger.Info("removed agent", zap.String("id", id))
	if p != nil {
		if err := p.DeleteAgent(id); err != nil {
			r.logger.Warn("delete persisted agent failed", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// Count returns the number of registered agents.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Touch persists an agent's current state after a mutation.
func (r *Roster) Touch(a *Agent) {
	a.UpdatedAt = time.Now()
	r.mu.RLock()
	p := r.persister
	r.mu.RUnlock()
	if p != nil {
		if err := p.SaveAgent(a); err != nil {
			r.logger.Warn("persist agent failed", zap.String("id", a.Persona.ID), zap.Error(err))
		}
	}
}

// decayPerTick is the baseline per-tick drift of each need toward urgency.
var decayPerTick = NeedDeltas{
	NeedEnergy:  -0.05,
	NeedHunger:  -0.08,
	NeedSocial:  -0.04,
	NeedStress:  0.03,
	NeedComfort: -0.03,
}

// DecayNeeds drifts every agent's needs one tick toward urgency. Resting
// agents skip energy decay.
func (r *Roster) DecayNeeds() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		for need, d := range decayPerTick {
			if need == NeedEnergy && a.CurrentAction != nil && a.CurrentAction.Type == ActionRest {
				continue
			}
			a.Needs.Set(need, a.Needs.Get(need)+d)
		}
	}
}
