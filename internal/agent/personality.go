package agent

// Trait is a named personality tag. Traits are not mutually exclusive;
// conflicting pairs are resolved per-evaluation from live context and
// never stored resolved.
type Trait string

const (
	TraitAmbitious    Trait = "ambitious"
	TraitLazy         Trait = "lazy"
	TraitExtroverted  Trait = "extroverted"
	TraitIntroverted  Trait = "introverted"
	TraitOrganized    Trait = "organized"
	TraitChaotic      Trait = "chaotic"
	TraitGossip       Trait = "gossip"
	TraitProfessional Trait = "professional"
)

// KnownTrait reports whether t is part of the closed trait set.
func KnownTrait(t Trait) bool {
	switch t {
	case TraitAmbitious, TraitLazy, TraitExtroverted, TraitIntroverted,
		TraitOrganized, TraitChaotic, TraitGossip, TraitProfessional:
		return true
	}
	return false
}

// HasTrait reports whether the trait list contains t.
func HasTrait(traits []Trait, t Trait) bool {
	for _, tt := range traits {
		if tt == t {
			return true
		}
	}
	return false
}

// WeightKey names a behavior dimension scaled by personality.
type WeightKey string

const (
	WeightWork           WeightKey = "work"
	WeightSocial         WeightKey = "social"
	WeightRest           WeightKey = "rest"
	WeightDuration       WeightKey = "duration"
	WeightRoutine        WeightKey = "routine"
	WeightCompletion     WeightKey = "completion"
	WeightCrowdTolerance WeightKey = "crowd_tolerance"
	WeightInitiative     WeightKey = "initiative"
)

var allWeightKeys = []WeightKey{
	WeightWork, WeightSocial, WeightRest, WeightDuration,
	WeightRoutine, WeightCompletion, WeightCrowdTolerance, WeightInitiative,
}

// traitWeights holds each trait's static multiplier table. Absent keys
// mean 1.0.
var traitWeights = map[Trait]map[WeightKey]float64{
	TraitAmbitious: {
		WeightWork: 1.5, WeightDuration: 1.3, WeightRest: 0.8, WeightInitiative: 1.3,
	},
	TraitLazy: {
		WeightWork: 0.6, WeightDuration: 0.7, WeightRest: 1.5, WeightInitiative: 0.7,
	},
	TraitExtroverted: {
		WeightSocial: 1.5, WeightCrowdTolerance: 1.5, WeightInitiative: 1.2,
	},
	TraitIntroverted: {
		WeightSocial: 0.6, WeightCrowdTolerance: 0.5, WeightRest: 1.2,
	},
	TraitOrganized: {
		WeightRoutine: 1.4, WeightCompletion: 1.5, WeightWork: 1.1,
	},
	TraitChaotic: {
		WeightRoutine: 0.6, WeightCompletion: 0.6, WeightInitiative: 1.2,
	},
	TraitGossip: {
		WeightSocial: 1.3, WeightInitiative: 1.1,
	},
	TraitProfessional: {
		WeightWork: 1.2, WeightRoutine: 1.2, WeightSocial: 0.9,
	},
}

const (
	traitWeightFloor = 0.1
	traitWeightCeil  = 3.0
)

// Weights multiplies every trait's static table together, clamping each
// key to [0.1, 3.0].
func Weights(traits []Trait) map[WeightKey]float64 {
	out := make(map[WeightKey]float64, len(allWeightKeys))
	for _, k := range allWeightKeys {
		out[k] = 1.0
	}
	for _, t := range traits {
		for k, w := range traitWeights[t] {
			out[k] *= w
		}
	}
	for k, w := range out {
		if w < traitWeightFloor {
			out[k] = traitWeightFloor
		} else if w > traitWeightCeil {
			out[k] = traitWeightCeil
		}
	}
	return out
}

// The three conflicting trait pairs. Resolution happens at evaluation
// time against live context: energy for drive, nearby count for
// sociability, stress for orderliness.

// ResolveDrive picks between Ambitious and Lazy given current energy.
// Returns the winning trait, or "" when the agent carries neither.
func ResolveDrive(traits []Trait, energy float64) Trait {
	ambitious := HasTrait(traits, TraitAmbitious)
	lazy := HasTrait(traits, TraitLazy)
	switch {
	case ambitious && lazy:
		if energy >= ThresholdModerate {
			return TraitAmbitious
		}
		return TraitLazy
	case ambitious:
		return TraitAmbitious
	case lazy:
		return TraitLazy
	}
	return ""
}

// ResolveSociability picks between Extroverted and Introverted given how
// many people are nearby.
func ResolveSociability(traits []Trait, nearbyCount int) Trait {
	extro := HasTrait(traits, TraitExtroverted)
	intro := HasTrait(traits, TraitIntroverted)
	switch {
	case extro && intro:
		if nearbyCount <= 3 {
			return TraitExtroverted
		}
		return TraitIntroverted
	case extro:
		return TraitExtroverted
	case intro:
		return TraitIntroverted
	}
	return ""
}

// ResolveOrder picks between Organized and Chaotic given current stress.
// Pressure pushes a conflicted agent toward structure.
func ResolveOrder(traits []Trait, stress float64) Trait {
	organized := HasTrait(traits, TraitOrganized)
	chaotic := HasTrait(traits, TraitChaotic)
	switch {
	case organized && chaotic:
		if stress >= ThresholdModerate {
			return TraitOrganized
		}
		return TraitChaotic
	case organized:
		return TraitOrganized
	case chaotic:
		return TraitChaotic
	}
	return ""
}
