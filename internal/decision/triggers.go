package decision

import (
	"strings"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// Prompt trigger vocabularies. A prompt is optional free text attached to
// a decision request; matching words nudge the tier result without ever
// replacing a critical one.
var (
	workPressureWords = []string{"deadline", "urgent", "asap", "boss wants", "due today", "overdue"}
	socialCueWords    = []string{"party", "celebrat", "birthday", "welcome", "team event"}
	humorWords        = []string{"joke", "funny", "laugh", "hilarious"}
	breakCueWords     = []string{"take a break", "relax", "slow down", "breathe"}
	interestWords     = []string{"interesting", "curious", "did you hear", "news"}
	funWords          = []string{"game", "music", "movie", "fun"}
)

// hasTrigger reports whether any vocabulary entry occurs in the prompt.
func hasTrigger(prompt string, words []string) bool {
	if prompt == "" {
		return false
	}
	lower := strings.ToLower(prompt)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

// applyTriggers is the final modifier pass over a tier result. Triggers
// reshape normal and low priority decisions only. Every matching
// category applies in turn, so a prompt carrying several cues stacks
// its nudges, each seeing the decision as the previous one left it.
func applyTriggers(d *Decision, dc *Context) {
	if dc.Prompt == "" || d.Priority == PriorityCritical {
		return
	}

	if hasTrigger(dc.Prompt, workPressureWords) &&
		isWorkAction(d.Action.Type) && d.Priority == PriorityNormal {
		d.Priority = PriorityHigh
		d.Explain("work pressure in the air, focusing")
	}
	if hasTrigger(dc.Prompt, breakCueWords) &&
		isWorkAction(d.Action.Type) && dc.Agent.Needs.Stress >= agent.ThresholdModerate {
		d.Type = TypeAction
		d.Action = agent.Action{Type: agent.ActionRest, Duration: needDuration}
		d.Source = SourceIdle
		d.Explain("took the hint and stepped away")
	}
	if hasTrigger(dc.Prompt, socialCueWords) {
		if d.Type == TypeDialogue {
			d.Action.Duration = scale(d.Action.Duration, 1.3)
			d.Explain("festive mood, lingering in conversation")
		} else if d.Type == TypeIdle && len(dc.Scene.Opportunities) > 0 {
			opp := dc.Scene.Opportunities[0]
			d.Type = TypeDialogue
			d.Action = agent.Action{Type: agent.ActionConversation, Target: opp.AgentID, Duration: socialDuration}
			d.TargetAgentID = opp.AgentID
			d.IncludeDialogue = true
			d.Source = SourceSocial
			d.Explain("something to celebrate, joining in")
		}
	}
	if hasTrigger(dc.Prompt, humorWords) && d.Type == TypeDialogue {
		d.IncludeDialogue = true
		d.Explain("good mood, cracking a joke")
	}
	if (hasTrigger(dc.Prompt, interestWords) || hasTrigger(dc.Prompt, funWords)) &&
		d.Type == TypeIdle {
		d.Action.Duration = scale(d.Action.Duration, 1.5)
		d.Explain("something caught their attention")
	}
}
