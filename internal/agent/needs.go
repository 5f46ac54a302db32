package agent

import (
	"time"
)

// Need identifies one of the five scalar drives.
type Need string

const (
	NeedEnergy  Need = "energy"
	NeedHunger  Need = "hunger"
	NeedSocial  Need = "social"
	NeedStress  Need = "stress"
	NeedComfort Need = "comfort"
)

// AllNeeds lists every need in evaluation order.
var AllNeeds = []Need{NeedEnergy, NeedHunger, NeedSocial, NeedStress, NeedComfort}

// Need values range 0-10. Lower is more urgent, except stress where higher
// is more urgent; UrgencyLevel normalizes the two.
const (
	NeedMin = 0.0
	NeedMax = 10.0

	ThresholdCritical  = 2.0
	ThresholdLow       = 4.0
	ThresholdModerate  = 6.0
	ThresholdSatisfied = 8.0
)

// NeedsVector holds a character's current drive levels.
type NeedsVector struct {
	Energy  float64 `json:"energy"`
	Hunger  float64 `json:"hunger"`
	Social  float64 `json:"social"`
	Stress  float64 `json:"stress"`
	Comfort float64 `json:"comfort"`
}

// DefaultNeeds returns a comfortable mid-range starting vector.
func DefaultNeeds() NeedsVector {
	return NeedsVector{Energy: 7, Hunger: 7, Social: 6, Stress: 3, Comfort: 6}
}

// Get returns the value for a need.
func (n NeedsVector) Get(need Need) float64 {
	switch need {
	case NeedEnergy:
		return n.Energy
	case NeedHunger:
		return n.Hunger
	case NeedSocial:
		return n.Social
	case NeedStress:
		return n.Stress
	case NeedComfort:
		return n.Comfort
	}
	return NeedMax
}

// Set stores a clamped value for a need.
func (n *NeedsVector) Set(need Need, value float64) {
	value = clampNeed(value)
	switch need {
	case NeedEnergy:
		n.Energy = value
	case NeedHunger:
		n.Hunger = value
	case NeedSocial:
		n.Social = value
	case NeedStress:
		n.Stress = value
	case NeedComfort:
		n.Comfort = value
	}
}

// Apply adds a delta set onto the vector, clamping every field.
func (n *NeedsVector) Apply(deltas NeedDeltas) {
	for need, d := range deltas {
		n.Set(need, n.Get(need)+d)
	}
}

func clampNeed(v float64) float64 {
	if v < NeedMin {
		return NeedMin
	}
	if v > NeedMax {
		return NeedMax
	}
	return v
}

// UrgencyLevel converts a raw need value to an urgency scale where low
// values mean urgent, folding stress's inverted direction.
func UrgencyLevel(need Need, value float64) float64 {
	if need == NeedStress {
		return NeedMax - value
	}
	return value
}

// Bucket names the urgency band a need currently sits in.
type Bucket string

const (
	BucketCritical  Bucket = "critical"
	BucketLow       Bucket = "low"
	BucketModerate  Bucket = "moderate"
	BucketSatisfied Bucket = "satisfied"
	BucketHigh      Bucket = "high"
)

// BucketFor classifies an urgency level against the fixed thresholds.
func BucketFor(level float64) Bucket {
	switch {
	case level <= ThresholdCritical:
		return BucketCritical
	case level <= ThresholdLow:
		return BucketLow
	case level <= ThresholdModerate:
		return BucketModerate
	case level <= ThresholdSatisfied:
		return BucketSatisfied
	default:
		return BucketHigh
	}
}

// NeedDeltas maps needs to additive changes.
type NeedDeltas map[Need]float64

// NeedsReport is the output of the needs priority evaluation.
type NeedsReport struct {
	Critical     []Need           `json:"critical"`
	Low          []Need           `json:"low"`
	Moderate     []Need           `json:"moderate"`
	Satisfied    []Need           `json:"satisfied"`
	UrgencyScore float64          `json:"urgency_score"` // 0-100
	Weightings   map[Need]float64 `json:"weightings"`
}

// MostUrgent returns the single most pressing need from the report, or
// false when nothing is below the satisfied band.
func (r *NeedsReport) MostUrgent() (Need, bool) {
	if len(r.Critical) > 0 {
		return r.Critical[0], true
	}
	if len(r.Low) > 0 {
		return r.Low[0], true
	}
	if len(r.Moderate) > 0 {
		return r.Moderate[0], true
	}
	return "", false
}

const (
	weightFloor = 0.1
	weightCeil  = 5.0
)

// baseWeight maps an urgency level to a base priority weight.
func baseWeight(level float64) float64 {
	switch BucketFor(level) {
	case BucketCritical:
		return 3.0
	case BucketLow:
		return 2.0
	case BucketModerate:
		return 1.5
	case BucketSatisfied:
		return 1.0
	default:
		return 0.8
	}
}

// traitNeedMultiplier biases need weights by personality. Values are
// deliberately mild; the decision tiers do the heavy lifting.
func traitNeedMultiplier(traits []Trait, need Need) float64 {
	m := 1.0
	for _, t := range traits {
		switch {
		case t == TraitLazy && need == NeedEnergy:
			m *= 1.3
		case t == TraitAmbitious && need == NeedEnergy:
			m *= 0.9
		case t == TraitExtroverted && need == NeedSocial:
			m *= 1.3
		case t == TraitIntroverted && need == NeedSocial:
			m *= 0.7
		case t == TraitProfessional && need == NeedStress:
			m *= 1.2
		case t == TraitChaotic && need == NeedComfort:
			m *= 0.8
		}
	}
	return m
}

// interactionMultiplier applies the fixed pairwise coupling rules between
// needs: high stress makes fatigue matter more, widespread deficits make
// stress matter more, exhaustion suppresses the social drive.
func interactionMultiplier(n NeedsVector, need Need) float64 {
	m := 1.0
	if need == NeedEnergy && n.Stress >= 7 {
		m *= 1.3
	}
	if need == NeedStress {
		low := 0
		for _, other := range AllNeeds {
			if other == NeedStress {
				continue
			}
			if UrgencyLevel(other, n.Get(other)) <= ThresholdLow {
				low++
			}
		}
		if low >= 2 {
			m *= 1.4
		}
	}
	if need == NeedSocial && n.Energy <= ThresholdLow {
		m *= 0.8
	}
	return m
}

// timeOfDayMultiplier nudges need weights by the hour: coffee hours boost
// energy, midday boosts hunger, evenings boost social and comfort.
func timeOfDayMultiplier(hour int, need Need) float64 {
	switch need {
	case NeedEnergy:
		if hour >= 7 && hour <= 10 {
			return 1.2
		}
	case NeedHunger:
		if hour >= 11 && hour <= 14 {
			return 1.3
		}
	case NeedSocial:
		if hour >= 17 && hour <= 21 {
			return 1.2
		}
	case NeedComfort:
		if hour >= 19 {
			return 1.2
		}
	}
	return 1.0
}

func clampWeight(w float64) float64 {
	if w < weightFloor {
		return weightFloor
	}
	if w > weightCeil {
		return weightCeil
	}
	return w
}

// EvaluateNeeds buckets every need, computes its combined weight, and
// aggregates the weighted deficits into a 0-100 urgency score.
func EvaluateNeeds(n NeedsVector, traits []Trait, now time.Time) *NeedsReport {
	report := &NeedsReport{Weightings: make(map[Need]float64, len(AllNeeds))}
	hour := now.Hour()

	var weightedDeficit, weightSum float64
	for _, need := range AllNeeds {
		level := UrgencyLevel(need, n.Get(need))
		switch BucketFor(level) {
		case BucketCritical:
			report.Critical = append(report.Critical, need)
		case BucketLow:
			report.Low = append(report.Low, need)
		case BucketModerate:
			report.Moderate = append(report.Moderate, need)
		case BucketSatisfied:
			report.Satisfied = append(report.Satisfied, need)
		}

		w := baseWeight(level)
		w *= traitNeedMultiplier(traits, need)
		w *= interactionMultiplier(n, need)
		w *= timeOfDayMultiplier(hour, need)
		w = clampWeight(w)
		report.Weightings[need] = w

		weightedDeficit += w * (NeedMax - level)
		weightSum += w
	}

	if weightSum > 0 {
		report.UrgencyScore = weightedDeficit / (weightSum * NeedMax) * 100
	}
	if report.UrgencyScore > 100 {
		report.UrgencyScore = 100
	}
	return report
}
