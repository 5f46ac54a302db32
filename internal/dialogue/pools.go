package dialogue

import (
	"math/rand"
	"strings"
)

// Pool produces one response line for a classified message.
type Pool interface {
	Generate(r *rand.Rand, req Request, th *Thread, tone Tone) string
}

// templatePool picks a random template for the requested tone, falling
// back to the casual set. Placeholders: {partner}, {speaker}, {location}.
type templatePool struct {
	templates map[Tone][]string
}

func (p *templatePool) Generate(r *rand.Rand, req Request, _ *Thread, tone Tone) string {
	set := p.templates[tone]
	if len(set) == 0 {
		set = p.templates[ToneCasual]
	}
	line := set[r.Intn(len(set))]
	return fill(line, req)
}

func fill(line string, req Request) string {
	if req.Partner != nil {
		line = strings.ReplaceAll(line, "{partner}", req.Partner.Persona.Name)
	}
	if req.Speaker != nil {
		line = strings.ReplaceAll(line, "{speaker}", req.Speaker.Persona.Name)
		line = strings.ReplaceAll(line, "{location}", req.Speaker.Location)
	}
	return line
}

func defaultPools() map[Category]Pool {
	return map[Category]Pool{
		CategoryWork: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"I have reviewed the latest status. We should align on next steps.",
				"The timeline is tight, but manageable if we prioritize.",
				"Let me check the task board and get back to you, {partner}.",
			},
			ToneCasual: {
				"Yeah, that project again. I'll take a look after this.",
				"Tell me about it. The task list keeps growing.",
				"I can pick that up once I finish what's on my desk.",
			},
			TonePlayful: {
				"Work, work, work. Someone should invent a second Friday.",
				"If deadlines could talk, ours would be screaming.",
			},
			ToneReserved: {
				"I'll look into it.",
				"Noted. I'll handle my part.",
			},
		}},
		CategoryStress: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"It has been a demanding week. A short break might help.",
				"I understand. Let us not overcommit this sprint.",
			},
			ToneCasual: {
				"Rough day, huh? Grab a coffee with me, it helps.",
				"I know the feeling. It gets better after lunch, usually.",
			},
			TonePlayful: {
				"Deep breaths, {partner}. The building is not actually on fire.",
				"Stress is just excitement with bad marketing.",
			},
			ToneReserved: {
				"Yeah. Hang in there.",
				"Take it easy.",
			},
		}},
		CategoryHumor: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"That is genuinely amusing.",
				"Good one. Back to business though.",
			},
			ToneCasual: {
				"Haha, that's a good one.",
				"Okay, that actually made me laugh.",
			},
			TonePlayful: {
				"Haha! Wait till you hear the one about the coffee machine.",
				"You should do stand-up at the next all-hands.",
			},
			ToneReserved: {
				"Heh. Not bad.",
			},
		}},
		CategoryFood: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"I was about to head to the cafeteria myself. Shall we?",
				"A proper lunch does improve the afternoon.",
			},
			ToneCasual: {
				"Now you're talking. I'm starving too.",
				"Lunch sounds great. The cafeteria had soup earlier.",
				"Coffee first, then food. Priorities.",
			},
			TonePlayful: {
				"Say 'snack' one more time and I'm raiding the break room.",
				"I run on coffee and optimism, mostly coffee.",
			},
			ToneReserved: {
				"I could eat.",
				"Sure, lunch works.",
			},
		}},
		CategoryGossip: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"I prefer not to speculate, but do go on.",
				"Interesting. I had not heard that.",
			},
			ToneCasual: {
				"No way. Where did you hear that?",
				"Really? Tell me everything.",
			},
			TonePlayful: {
				"Ooh, gather round. This stays between us, obviously.",
				"You always know things before anyone else, {partner}.",
			},
			ToneReserved: {
				"Hm. If you say so.",
			},
		}},
		CategoryCompliment: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"Thank you. The whole team contributed to that.",
				"I appreciate that. It took some effort.",
			},
			ToneCasual: {
				"Thanks, {partner}! That means a lot.",
				"Appreciate it. Couldn't have done it without the coffee.",
			},
			TonePlayful: {
				"Flattery will get you everywhere.",
				"Keep talking, I'm listening.",
			},
			ToneReserved: {
				"Thanks.",
			},
		}},
		CategoryComplaint: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"That is unfortunate. Perhaps we should raise it properly.",
				"I see the problem. Let us find a workaround.",
			},
			ToneCasual: {
				"Ugh, again? That thing breaks every week.",
				"Yeah, that's been bugging me too.",
			},
			TonePlayful: {
				"Add it to the wall of broken dreams by the printer.",
			},
			ToneReserved: {
				"Annoying, yes.",
			},
		}},
		CategoryQuestion: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"Good question. Let me find out and follow up.",
				"I believe so, but I would verify first.",
			},
			ToneCasual: {
				"Hmm, good question. I think so?",
				"Not sure, honestly. Ask {partner}... oh wait, that's you.",
				"Let me think about that one.",
			},
			ToneReserved: {
				"I don't know.",
				"Maybe.",
			},
		}},
		CategoryGreeting: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"Good day, {partner}. I trust things are going well.",
				"Hello, {partner}. How is the project treating you?",
			},
			ToneCasual: {
				"Hey {partner}! How's it going?",
				"Oh hi, {partner}. Didn't see you there.",
			},
			TonePlayful: {
				"Well well, look who it is. Hi {partner}!",
				"{partner}! Just the person I wanted to see.",
			},
			ToneReserved: {
				"Hi.",
				"Hey.",
			},
		}},
		CategoryFarewell: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"Of course. Talk soon, {partner}.",
				"Until next time.",
			},
			ToneCasual: {
				"See you around, {partner}!",
				"Catch you later.",
			},
			ToneReserved: {
				"Bye.",
			},
		}},
		CategoryGeneral: &templatePool{templates: map[Tone][]string{
			ToneFormal: {
				"Indeed. These things happen.",
				"That is a fair point.",
			},
			ToneCasual: {
				"Yeah, I hear you.",
				"True, true.",
				"Huh, interesting.",
			},
			TonePlayful: {
				"You don't say. This office keeps surprising me.",
			},
			ToneReserved: {
				"Mm.",
				"Right.",
			},
		}},
	}
}
