package agent

import "time"

// ActionType is the closed set of things a character can do.
type ActionType string

const (
	ActionWork         ActionType = "WORK"
	ActionOrganize     ActionType = "ORGANIZE_TASKS"
	ActionDrinkCoffee  ActionType = "DRINK_COFFEE"
	ActionEatSnack     ActionType = "EAT_SNACK"
	ActionEatMeal      ActionType = "EAT_MEAL"
	ActionConversation ActionType = "CONVERSATION"
	ActionMove         ActionType = "MOVE"
	ActionRest         ActionType = "REST"
	ActionIdle         ActionType = "IDLE"
)

// KnownAction reports whether t is part of the closed action set.
func KnownAction(t ActionType) bool {
	switch t {
	case ActionWork, ActionOrganize, ActionDrinkCoffee, ActionEatSnack,
		ActionEatMeal, ActionConversation, ActionMove, ActionRest, ActionIdle:
		return true
	}
	return false
}

// Action is a concrete activity with an optional target and a duration.
type Action struct {
	Type     ActionType    `json:"type"`
	Target   string        `json:"target,omitempty"` // location or agent ID
	Duration time.Duration `json:"duration"`
}

// actionDeltas is the static action -> need-delta table applied when an
// action starts executing.
var actionDeltas = map[ActionType]NeedDeltas{
	ActionWork:         {NeedEnergy: -2.0, NeedStress: 1.5, NeedComfort: -0.5},
	ActionOrganize:     {NeedEnergy: -1.0, NeedStress: -1.0},
	ActionDrinkCoffee:  {NeedEnergy: 3.0, NeedStress: -1.0, NeedComfort: 0.5},
	ActionEatSnack:     {NeedHunger: 2.5, NeedComfort: 0.5},
	ActionEatMeal:      {NeedHunger: 4.0, NeedEnergy: 1.0, NeedComfort: 1.0},
	ActionConversation: {NeedSocial: 3.0, NeedStress: -1.0, NeedEnergy: -0.5},
	ActionMove:         {NeedEnergy: -0.5},
	ActionRest:         {NeedEnergy: 2.0, NeedStress: -2.0, NeedComfort: 1.0},
	ActionIdle:         {NeedEnergy: 0.5, NeedStress: -0.5},
}

// completionDeltas is applied when an action finishes, on top of the
// start-time deltas. Kept small; most of the effect lands up front.
var completionDeltas = map[ActionType]NeedDeltas{
	ActionWork:         {NeedStress: -0.5, NeedComfort: 0.5},
	ActionConversation: {NeedSocial: 0.5},
	ActionRest:         {NeedEnergy: 1.0},
}

// DeltasFor returns the start-time need deltas for an action type.
// Unknown types get the idle deltas.
func DeltasFor(t ActionType) NeedDeltas {
	if d, ok := actionDeltas[t]; ok {
		return d
	}
	return actionDeltas[ActionIdle]
}

// CompletionDeltasFor returns the finish-time need deltas for an action
// type, which may be empty.
func CompletionDeltasFor(t ActionType) NeedDeltas {
	return completionDeltas[t]
}

// Prediction is the estimated effect of taking an action.
type Prediction struct {
	Predicted NeedsVector `json:"predicted"`
	Benefit   float64     `json:"benefit"`
}

// PredictOutcome applies an action's delta table to a copy of the needs
// vector and scores how much weighted urgency it relieves. Used by the
// decision tiers to rank candidate need-satisfying actions.
func PredictOutcome(t ActionType, n NeedsVector, weightings map[Need]float64) Prediction {
	predicted := n
	predicted.Apply(DeltasFor(t))

	var benefit float64
	for _, need := range AllNeeds {
		before := UrgencyLevel(need, n.Get(need))
		after := UrgencyLevel(need, predicted.Get(need))
		w := 1.0
		if weightings != nil {
			if ww, ok := weightings[need]; ok {
				w = ww
			}
		}
		benefit += (after - before) * w
	}
	return Prediction{Predicted: predicted, Benefit: benefit}
}

// SatisfyingAction maps a need to the action that most directly relieves
// it, used by the critical tier.
func SatisfyingAction(need Need) ActionType {
	switch need {
	case NeedEnergy:
		return ActionDrinkCoffee
	case NeedHunger:
		return ActionEatSnack
	case NeedSocial:
		return ActionConversation
	case NeedStress:
		return ActionRest
	case NeedComfort:
		return ActionRest
	}
	return ActionIdle
}
