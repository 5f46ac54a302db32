package social

import (
	"context"
	"sort"

	"github.com/nidhogg/pixeltown/internal/agent"
	"go.uber.org/zap"
)

// RelationshipType is the closed set of inferred relationship classes.
type RelationshipType string

const (
	RelStranger     RelationshipType = "stranger"
	RelAcquaintance RelationshipType = "acquaintance"
	RelColleague    RelationshipType = "colleague"
	RelFriend       RelationshipType = "friend"
	RelCloseFriend  RelationshipType = "close_friend"
	RelSupervisor   RelationshipType = "supervisor"
	RelSubordinate  RelationshipType = "subordinate"
)

// Relationship is the inferred tie toward one other agent.
type Relationship struct {
	OtherID     string           `json:"other_id"`
	OtherName   string           `json:"other_name"`
	Type        RelationshipType `json:"type"`
	Familiarity float64          `json:"familiarity"` // 0-1
	Sentiment   float64          `json:"sentiment"`   // -1 to 1
}

// compatPairs is the static personality-compatibility table. Symmetric;
// values add onto history-derived sentiment.
var compatPairs = map[[2]agent.Trait]float64{
	{agent.TraitExtroverted, agent.TraitGossip}:      0.4,
	{agent.TraitExtroverted, agent.TraitExtroverted}: 0.3,
	{agent.TraitIntroverted, agent.TraitIntroverted}: 0.2,
	{agent.TraitExtroverted, agent.TraitIntroverted}: -0.2,
	{agent.TraitOrganized, agent.TraitChaotic}:       -0.5,
	{agent.TraitOrganized, agent.TraitOrganized}:     0.3,
	{agent.TraitAmbitious, agent.TraitAmbitious}:     0.2,
	{agent.TraitAmbitious, agent.TraitLazy}:          -0.3,
	{agent.TraitGossip, agent.TraitGossip}:           0.3,
	{agent.TraitProfessional, agent.TraitChaotic}:    -0.3,
	{agent.TraitProfessional, agent.TraitProfessional}: 0.2,
}

// Compatibility sums the pairwise trait affinities between two trait
// sets, clamped to [-1, 1].
func Compatibility(a, b []agent.Trait) float64 {
	var sum float64
	for _, ta := range a {
		for _, tb := range b {
			if v, ok := compatPairs[[2]agent.Trait{ta, tb}]; ok {
				sum += v
			} else if v, ok := compatPairs[[2]agent.Trait{tb, ta}]; ok {
				sum += v
			}
		}
	}
	return clamp(sum, -1, 1)
}

// OpportunityKind categorizes a social opening.
type OpportunityKind string

const (
	OppConversation OpportunityKind = "conversation"
	OppNetworking   OpportunityKind = "networking"
	OppInformation  OpportunityKind = "information_gathering"
	OppMentoring    OpportunityKind = "mentoring"
	OppJoinGroup    OpportunityKind = "join_group"
)

// Opportunity is one actionable social opening.
type Opportunity struct {
	Kind       OpportunityKind `json:"kind"`
	TargetID   string          `json:"target_id,omitempty"`
	TargetName string          `json:"target_name,omitempty"`
	GroupIndex int             `json:"group_index,omitempty"`
	Confidence float64         `json:"confidence"` // 0-1
	Reason     string          `json:"reason"`
}

// BarrierKind categorizes what suppresses social action.
type BarrierKind string

const (
	BarrierOvercrowded BarrierKind = "overcrowded"
	BarrierNegativeTie BarrierKind = "negative_relationship"
	BarrierLowEnergy   BarrierKind = "low_energy"
	BarrierHighStress  BarrierKind = "high_stress"
)

// Barrier flags a suppressed action category.
type Barrier struct {
	Kind       BarrierKind        `json:"kind"`
	Severity   float64            `json:"severity"` // 0-1
	Suppresses []agent.ActionType `json:"suppresses"`
	Detail     string             `json:"detail,omitempty"`
}

// Group is a proximity cluster of nearby agents.
type Group struct {
	MemberIDs       []string `json:"member_ids"`
	Approachability float64  `json:"approachability"`
	Activity        string   `json:"activity"`
}

// Climate is a one-word summary of the social situation.
type Climate string

const (
	ClimateIsolated    Climate = "isolated"
	ClimateTense       Climate = "tense"
	ClimateUnfavorable Climate = "unfavorable"
	ClimateNeutral     Climate = "neutral"
	ClimateFavorable   Climate = "favorable"
	ClimateVibrant     Climate = "vibrant"
)

// Analysis is the full social-situation report for one agent.
type Analysis struct {
	Relationships map[string]Relationship `json:"relationships"`
	Groups        []Group                 `json:"groups"`
	Opportunities []Opportunity           `json:"opportunities"`
	Barriers      []Barrier               `json:"barriers"`
	Recommended   []agent.ActionType      `json:"recommended"`
	Climate       Climate                 `json:"climate"`
}

// groupDistance is the mutual-proximity threshold for group membership.
const groupDistance = 2.0

// overcrowdThreshold is how many nearby agents count as overwhelming.
const overcrowdThreshold = 6

// Analyzer infers relationships and social structure.
type Analyzer struct {
	history HistoryStore
	logger  *zap.Logger
}

// NewAnalyzer creates an analyzer over an interaction history store.
func NewAnalyzer(history HistoryStore, logger *zap.Logger) *Analyzer {
	return &Analyzer{history: history, logger: logger}
}

// History exposes the underlying store for recording interactions.
func (an *Analyzer) History() HistoryStore { return an.history }

// Relate infers the relationship between two agents from interaction
// history and trait compatibility. Roles override the familiarity ladder
// for reporting lines.
func (an *Analyzer) Relate(ctx context.Context, self, other *agent.Agent) Relationship {
	var stats PairStats
	if an.history != nil {
		s, err := an.history.PairStats(ctx, self.Persona.ID, other.Persona.ID)
		if err != nil {
			an.logger.Warn("pair stats lookup failed", zap.Error(err))
		} else {
			stats = s
		}
	}

	familiarity := clamp(float64(stats.Interactions)/20.0, 0, 1)
	compat := Compatibility(self.Persona.Traits, other.Persona.Traits)
	sentiment := clamp(stats.AvgQuality*0.7+compat*0.3, -1, 1)

	rel := Relationship{
		OtherID:     other.Persona.ID,
		OtherName:   other.Persona.Name,
		Familiarity: familiarity,
		Sentiment:   sentiment,
	}

	selfManager := self.Persona.Role == "manager"
	otherManager := other.Persona.Role == "manager"
	switch {
	case otherManager && !selfManager:
		rel.Type = RelSupervisor
	case selfManager && !otherManager:
		rel.Type = RelSubordinate
	case familiarity < 0.1:
		rel.Type = RelStranger
	case familiarity < 0.3:
		rel.Type = RelAcquaintance
	case familiarity < 0.6:
		rel.Type = RelColleague
	case familiarity < 0.85 || sentiment < 0.3:
		rel.Type = RelFriend
	default:
		rel.Type = RelCloseFriend
	}
	return rel
}

// AnalyzeSituation builds the full social report for an agent given the
// other agents in perception range.
func (an *Analyzer) AnalyzeSituation(ctx context.Context, self *agent.Agent, nearby []*agent.Agent) *Analysis {
	a := &Analysis{Relationships: make(map[string]Relationship, len(nearby))}

	for _, other := range nearby {
		a.Relationships[other.Persona.ID] = an.Relate(ctx, self, other)
	}

	a.Groups = formGroups(self, nearby)
	a.Barriers = findBarriers(self, nearby, a.Relationships)
	a.Opportunities = an.findOpportunities(self, nearby, a)
	a.Recommended = recommend(a)
	a.Climate = climateOf(len(nearby), a)
	return a
}

// formGroups clusters nearby agents by mutual proximity and tags each
// group with an inferred activity.
func formGroups(self *agent.Agent, nearby []*agent.Agent) []Group {
	n := len(nearby)
	if n < 2 {
		return nil
	}

	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	var groups [][]int
	for i := 0; i < n; i++ {
		if assigned[i] >= 0 {
			continue
		}
		members := []int{i}
		assigned[i] = len(groups)
		for j := i + 1; j < n; j++ {
			if assigned[j] >= 0 {
				continue
			}
			for _, m := range members {
				if nearby[m].Position.DistanceTo(nearby[j].Position) <= groupDistance {
					assigned[j] = len(groups)
					members = append(members, j)
					break
				}
			}
		}
		if len(members) >= 2 {
			groups = append(groups, members)
		}
	}

	out := make([]Group, 0, len(groups))
	for _, members := range groups {
		ids := make([]string, len(members))
		var mood float64
		activity := map[agent.ActionType]int{}
		for i, m := range members {
			ids[i] = nearby[m].Persona.ID
			mood += nearby[m].Mood
			if nearby[m].CurrentAction != nil {
				activity[nearby[m].CurrentAction.Type]++
			}
		}
		mood /= float64(len(members))

		// Smaller and happier groups are easier to approach.
		score := 0.7 - float64(len(members)-2)*0.15 + mood*0.3
		out = append(out, Group{
			MemberIDs:       ids,
			Approachability: clamp(score, 0, 1),
			Activity:        dominantActivity(activity),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Approachability > out[j].Approachability })
	return out
}

func dominantActivity(counts map[agent.ActionType]int) string {
	best, bestN := "hanging out", 0
	for t, c := range counts {
		if c > bestN {
			bestN = c
			switch t {
			case agent.ActionWork, agent.ActionOrganize:
				best = "working"
			case agent.ActionConversation:
				best = "chatting"
			case agent.ActionEatMeal, agent.ActionEatSnack, agent.ActionDrinkCoffee:
				best = "eating"
			default:
				best = "hanging out"
			}
		}
	}
	return best
}

// findOpportunities derives per-person and per-group openings.
func (an *Analyzer) findOpportunities(self *agent.Agent, nearby []*agent.Agent, a *Analysis) []Opportunity {
	var opps []Opportunity
	traits := self.Persona.Traits

	for _, other := range nearby {
		rel := a.Relationships[other.Persona.ID]

		conf := 0.4
		conf += rel.Familiarity * 0.2
		conf += rel.Sentiment * 0.2
		conf += other.Mood * 0.2
		if agent.HasTrait(traits, agent.TraitExtroverted) {
			conf += 0.1
		}
		if agent.HasTrait(traits, agent.TraitIntroverted) {
			conf -= 0.1
		}
		if conf > 0.2 {
			opps = append(opps, Opportunity{
				Kind:       OppConversation,
				TargetID:   other.Persona.ID,
				TargetName: other.Persona.Name,
				Confidence: clamp(conf, 0, 1),
				Reason:     "approachable " + string(rel.Type),
			})
		}

		if agent.HasTrait(traits, agent.TraitAmbitious) && rel.Type == RelSupervisor {
			opps = append(opps, Opportunity{
				Kind:       OppNetworking,
				TargetID:   other.Persona.ID,
				TargetName: other.Persona.Name,
				Confidence: 0.7,
				Reason:     "supervisor present",
			})
		}
		if agent.HasTrait(traits, agent.TraitGossip) && rel.Familiarity < 0.3 {
			opps = append(opps, Opportunity{
				Kind:       OppInformation,
				TargetID:   other.Persona.ID,
				TargetName: other.Persona.Name,
				Confidence: 0.6,
				Reason:     "unfamiliar face",
			})
		}
		if rel.Type == RelSubordinate {
			opps = append(opps, Opportunity{
				Kind:       OppMentoring,
				TargetID:   other.Persona.ID,
				TargetName: other.Persona.Name,
				Confidence: 0.5,
				Reason:     "direct report nearby",
			})
		}
	}

	for i, g := range a.Groups {
		if g.Approachability >= 0.5 {
			opps = append(opps, Opportunity{
				Kind:       OppJoinGroup,
				GroupIndex: i,
				Confidence: g.Approachability,
				Reason:     "open group " + g.Activity,
			})
		}
	}

	sort.Slice(opps, func(i, j int) bool { return opps[i].Confidence > opps[j].Confidence })
	return opps
}

// findBarriers flags conditions suppressing social action.
func findBarriers(self *agent.Agent, nearby []*agent.Agent, rels map[string]Relationship) []Barrier {
	var barriers []Barrier

	if len(nearby) > overcrowdThreshold {
		barriers = append(barriers, Barrier{
			Kind:       BarrierOvercrowded,
			Severity:   0.6,
			Suppresses: []agent.ActionType{agent.ActionConversation, agent.ActionRest},
			Detail:     "too many people around",
		})
	}
	for _, rel := range rels {
		if rel.Sentiment <= -0.5 {
			barriers = append(barriers, Barrier{
				Kind:       BarrierNegativeTie,
				Severity:   0.5,
				Suppresses: []agent.ActionType{agent.ActionConversation},
				Detail:     "strained relationship with " + rel.OtherName,
			})
		}
	}
	if self.Needs.Energy <= agent.ThresholdLow {
		barriers = append(barriers, Barrier{
			Kind:       BarrierLowEnergy,
			Severity:   0.4,
			Suppresses: []agent.ActionType{agent.ActionConversation, agent.ActionWork},
			Detail:     "running on empty",
		})
	}
	if self.Needs.Stress >= 8 {
		barriers = append(barriers, Barrier{
			Kind:       BarrierHighStress,
			Severity:   0.7,
			Suppresses: []agent.ActionType{agent.ActionConversation, agent.ActionWork},
			Detail:     "visibly stressed",
		})
	}
	return barriers
}

func recommend(a *Analysis) []agent.ActionType {
	suppressed := map[agent.ActionType]bool{}
	for _, b := range a.Barriers {
		for _, t := range b.Suppresses {
			suppressed[t] = true
		}
	}
	var rec []agent.ActionType
	if len(a.Opportunities) > 0 && !suppressed[agent.ActionConversation] {
		rec = append(rec, agent.ActionConversation)
	}
	if suppressed[agent.ActionConversation] {
		rec = append(rec, agent.ActionRest)
	}
	if len(rec) == 0 {
		rec = append(rec, agent.ActionIdle)
	}
	return rec
}

// climateOf summarizes people count, opportunity count and aggregate
// barrier severity into one categorical value.
func climateOf(peopleCount int, a *Analysis) Climate {
	if peopleCount == 0 {
		return ClimateIsolated
	}
	var severity float64
	for _, b := range a.Barriers {
		severity += b.Severity
	}
	switch {
	case severity >= 1.0:
		return ClimateTense
	case len(a.Opportunities) == 0:
		return ClimateUnfavorable
	case len(a.Opportunities) >= 4 && severity == 0:
		return ClimateVibrant
	case len(a.Opportunities) >= 2 && severity < 0.5:
		return ClimateFavorable
	default:
		return ClimateNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
