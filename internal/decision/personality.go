package decision

import (
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// chaoticSwapChance is the probability a Chaotic agent replaces a normal
// priority decision with something unrelated.
const chaoticSwapChance = 0.1

// chaoticAbandonChance tags every Chaotic action as abandonable.
const chaoticAbandonChance = 0.15

// chaoticWhims are the replacement actions a Chaotic swap picks from.
var chaoticWhims = []agent.ActionType{
	agent.ActionDrinkCoffee,
	agent.ActionMove,
	agent.ActionRest,
	agent.ActionConversation,
}

// modifyByPersonality adjusts a tier result in place. Critical decisions
// pass through untouched; personality never overrides survival.
func (e *Engine) modifyByPersonality(d *Decision, dc *Context) {
	if d.Priority == PriorityCritical {
		return
	}
	traits := dc.Agent.Persona.Traits

	if agent.HasTrait(traits, agent.TraitAmbitious) && isWorkAction(d.Action.Type) {
		d.Action.Duration = scale(d.Action.Duration, 1.2)
		d.Explain("ambitious streak, staying on it longer")
	}
	if agent.HasTrait(traits, agent.TraitLazy) && isWorkAction(d.Action.Type) {
		d.Action.Duration = scale(d.Action.Duration, 0.8)
		d.Explain("not in the mood to overdo it")
	}
	if agent.HasTrait(traits, agent.TraitExtroverted) && d.Type == TypeDialogue {
		d.Action.Duration = scale(d.Action.Duration, 1.2)
		d.Explain("happy to talk, taking time for it")
	}
	if agent.HasTrait(traits, agent.TraitIntroverted) && d.Type == TypeDialogue {
		d.Action.Duration = scale(d.Action.Duration, 0.7)
		d.Explain("keeping the chat short")
	}
	if agent.HasTrait(traits, agent.TraitProfessional) && d.Type == TypeDialogue &&
		dc.Scene.Formality >= 0.7 {
		d.IncludeDialogue = true
		d.Explain("formal setting, keeping it professional")
	}

	if agent.HasTrait(traits, agent.TraitChaotic) {
		d.AbandonChance = chaoticAbandonChance
		if d.Priority == PriorityNormal && e.rand.Float64() < chaoticSwapChance {
			whim := chaoticWhims[e.rand.Intn(len(chaoticWhims))]
			d.Type = TypeAction
			d.Action = agent.Action{Type: whim, Duration: needDuration}
			d.TargetAgentID = ""
			d.IncludeDialogue = false
			if whim == agent.ActionMove {
				d.Action.Target = "corridor"
			}
			d.Explain("acted on a whim instead")
		}
	}
}

func isWorkAction(t agent.ActionType) bool {
	return t == agent.ActionWork || t == agent.ActionOrganize
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}
