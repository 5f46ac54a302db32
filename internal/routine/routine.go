// Package routine provides time- and condition-gated behavior templates.
// A routine becomes active when its time window contains the current time
// and at least one trigger predicate holds; active routines are ranked by
// personality- and weekday-scaled priority.
package routine

import (
	"math/rand"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// Predicate is a typed trigger condition. The closed set replaces the
// textual condition expressions the behavior templates used to carry.
type Predicate interface {
	Holds(a *agent.Agent, now time.Time) bool
}

// HourInRange holds when the current hour is within [Start, End).
type HourInRange struct {
	Start int
	End   int
}

// Holds implements Predicate.
func (p HourInRange) Holds(_ *agent.Agent, now time.Time) bool {
	h := now.Hour()
	if p.Start <= p.End {
		return h >= p.Start && h < p.End
	}
	// Overnight window, e.g. 22-6.
	return h >= p.Start || h < p.End
}

// NeedBelow holds when a need's value is at or below Value.
type NeedBelow struct {
	Need  agent.Need
	Value float64
}

// Holds implements Predicate.
func (p NeedBelow) Holds(a *agent.Agent, _ time.Time) bool {
	return a.Needs.Get(p.Need) <= p.Value
}

// NeedAbove holds when a need's value is at or above Value.
type NeedAbove struct {
	Need  agent.Need
	Value float64
}

// Holds implements Predicate.
func (p NeedAbove) Holds(a *agent.Agent, _ time.Time) bool {
	return a.Needs.Get(p.Need) >= p.Value
}

// Always holds unconditionally, for purely time-gated routines.
type Always struct{}

// Holds implements Predicate.
func (Always) Holds(*agent.Agent, time.Time) bool { return true }

// Definition is a scheduled behavior template.
type Definition struct {
	Name         string
	Window       HourInRange
	Triggers     []Predicate
	Actions      []agent.ActionType // ordered candidates, resolved per agent
	BasePriority float64
	Duration     time.Duration
}

// active reports whether the routine's window contains now and at least
// one trigger predicate holds.
func (d *Definition) active(a *agent.Agent, now time.Time) bool {
	if !d.Window.Holds(a, now) {
		return false
	}
	for _, t := range d.Triggers {
		if t.Holds(a, now) {
			return true
		}
	}
	return false
}

// traitPriorityMod scales routine priority by personality. Combined
// multiplicatively with the base priority, never replacing it.
func traitPriorityMod(traits []agent.Trait, name string) float64 {
	m := 1.0
	for _, t := range traits {
		switch t {
		case agent.TraitOrganized:
			m *= 1.3
		case agent.TraitChaotic:
			m *= 0.7
		case agent.TraitProfessional:
			if name == "morning_work" || name == "afternoon_work" {
				m *= 1.2
			}
		case agent.TraitLazy:
			if name == "morning_work" || name == "afternoon_work" {
				m *= 0.8
			}
		}
	}
	return m
}

// weekdayPriorityMod scales priority by day of week: weekends suppress
// work routines and boost leisure.
func weekdayPriorityMod(day time.Weekday, name string) float64 {
	weekend := day == time.Saturday || day == time.Sunday
	switch name {
	case "morning_work", "afternoon_work":
		if weekend {
			return 0.3
		}
		if day == time.Monday {
			return 1.1
		}
	case "evening_winddown", "lunch":
		if weekend {
			return 1.2
		}
	}
	return 1.0
}

// Ranked is an active routine with its computed priority.
type Ranked struct {
	Definition *Definition
	Priority   float64
	Duration   time.Duration
}

// Result is the routine scheduler's answer for one agent.
type Result struct {
	Active       *Ranked
	Alternatives []Ranked
}

// Scheduler evaluates a fixed routine catalog against agents.
type Scheduler struct {
	routines []*Definition
	rand     *rand.Rand
}

// NewScheduler creates a scheduler over the given catalog. A nil catalog
// gets the default one.
func NewScheduler(routines []*Definition, seed int64) *Scheduler {
	if routines == nil {
		routines = DefaultRoutines()
	}
	return &Scheduler{
		routines: routines,
		rand:     rand.New(rand.NewSource(seed)),
	}
}

// Current returns the top-ranked active routine and the remaining
// alternatives, or an empty result when nothing is active.
func (s *Scheduler) Current(a *agent.Agent, now time.Time) Result {
	var ranked []Ranked
	for _, d := range s.routines {
		if !d.active(a, now) {
			continue
		}
		prio := d.BasePriority
		prio *= traitPriorityMod(a.Persona.Traits, d.Name)
		prio *= weekdayPriorityMod(now.Weekday(), d.Name)

		dur := d.Duration
		if agent.HasTrait(a.Persona.Traits, agent.TraitAmbitious) {
			dur = dur * 12 / 10
		}
		if agent.HasTrait(a.Persona.Traits, agent.TraitLazy) {
			dur = dur * 8 / 10
		}
		ranked = append(ranked, Ranked{Definition: d, Priority: prio, Duration: dur})
	}
	if len(ranked) == 0 {
		return Result{}
	}

	best := 0
	for i := range ranked {
		if ranked[i].Priority > ranked[best].Priority {
			best = i
		}
	}
	res := Result{Active: &ranked[best]}
	for i := range ranked {
		if i != best {
			res.Alternatives = append(res.Alternatives, ranked[i])
		}
	}
	return res
}

// ResolveAction turns a routine's candidate list into one concrete action
// using small per-routine heuristics.
func (s *Scheduler) ResolveAction(r *Ranked, a *agent.Agent) agent.Action {
	d := r.Definition
	chosen := d.Actions[0]

	switch d.Name {
	case "lunch":
		// Eat when hungry, otherwise socialize over the meal — unless
		// the agent would rather not.
		if a.Needs.Hunger <= agent.ThresholdLow {
			chosen = agent.ActionEatMeal
		} else if !agent.HasTrait(a.Persona.Traits, agent.TraitIntroverted) {
			chosen = agent.ActionConversation
		} else {
			chosen = agent.ActionEatMeal
		}
	case "morning_work", "afternoon_work":
		if agent.ResolveOrder(a.Persona.Traits, a.Needs.Stress) == agent.TraitOrganized &&
			containsAction(d.Actions, agent.ActionOrganize) {
			chosen = agent.ActionOrganize
		}
	case "morning_coffee":
		chosen = agent.ActionDrinkCoffee
	case "evening_winddown":
		if a.Needs.Social <= agent.ThresholdLow &&
			!agent.HasTrait(a.Persona.Traits, agent.TraitIntroverted) {
			chosen = agent.ActionConversation
		} else {
			chosen = agent.ActionRest
		}
	}

	return agent.Action{Type: chosen, Duration: r.Duration}
}

func containsAction(list []agent.ActionType, t agent.ActionType) bool {
	for _, a := range list {
		if a == t {
			return true
		}
	}
	return false
}

// chaoticBreakChance is the per-check probability that a Chaotic agent
// abandons the current routine for no reason.
const chaoticBreakChance = 0.05

// ShouldBreak reports whether the agent should interrupt its current
// routine: any critical need, high stress, or Chaotic whim.
func (s *Scheduler) ShouldBreak(a *agent.Agent) bool {
	for _, need := range agent.AllNeeds {
		if agent.UrgencyLevel(need, a.Needs.Get(need)) <= agent.ThresholdCritical {
			return true
		}
	}
	if a.Needs.Stress >= 8 {
		return true
	}
	if agent.HasTrait(a.Persona.Traits, agent.TraitChaotic) &&
		s.rand.Float64() < chaoticBreakChance {
		return true
	}
	return false
}

// DefaultRoutines is the built-in weekday rhythm.
func DefaultRoutines() []*Definition {
	return []*Definition{
		{
			Name:         "morning_coffee",
			Window:       HourInRange{Start: 7, End: 10},
			Triggers:     []Predicate{NeedBelow{Need: agent.NeedEnergy, Value: 7}},
			Actions:      []agent.ActionType{agent.ActionDrinkCoffee},
			BasePriority: 5,
			Duration:     10 * time.Minute,
		},
		{
			Name:         "morning_work",
			Window:       HourInRange{Start: 9, End: 13},
			Triggers:     []Predicate{Always{}},
			Actions:      []agent.ActionType{agent.ActionWork, agent.ActionOrganize},
			BasePriority: 4,
			Duration:     90 * time.Minute,
		},
		{
			Name:         "lunch",
			Window:       HourInRange{Start: 12, End: 14},
			Triggers:     []Predicate{NeedBelow{Need: agent.NeedHunger, Value: 8}},
			Actions:      []agent.ActionType{agent.ActionEatMeal, agent.ActionConversation},
			BasePriority: 6,
			Duration:     45 * time.Minute,
		},
		{
			Name:         "afternoon_work",
			Window:       HourInRange{Start: 14, End: 18},
			Triggers:     []Predicate{Always{}},
			Actions:      []agent.ActionType{agent.ActionWork, agent.ActionOrganize},
			BasePriority: 4,
			Duration:     90 * time.Minute,
		},
		{
			Name:         "evening_winddown",
			Window:       HourInRange{Start: 18, End: 23},
			Triggers: []Predicate{
				NeedAbove{Need: agent.NeedStress, Value: 5},
				NeedBelow{Need: agent.NeedSocial, Value: 6},
				Always{},
			},
			Actions:      []agent.ActionType{agent.ActionRest, agent.ActionConversation},
			BasePriority: 3,
			Duration:     60 * time.Minute,
		},
	}
}
