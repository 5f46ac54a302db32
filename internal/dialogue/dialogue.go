// Package dialogue routes incoming messages to rule-based response pools
// and tracks per-pair conversation threads. No language model is involved:
// classification is keyword-driven and responses come from weighted
// template pools.
package dialogue

import (
	"math/rand"
	"strings"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"go.uber.org/zap"
)

// Category is a recognized message class. Every message resolves to
// exactly one category; CategoryGeneral is the fallback.
type Category string

const (
	CategoryWork       Category = "work"
	CategoryStress     Category = "stress"
	CategoryHumor      Category = "humor"
	CategoryFood       Category = "food"
	CategoryGossip     Category = "gossip"
	CategoryCompliment Category = "compliment"
	CategoryComplaint  Category = "complaint"
	CategoryQuestion   Category = "question"
	CategoryGreeting   Category = "greeting"
	CategoryFarewell   Category = "farewell"
	CategoryGeneral    Category = "general"
)

// categoryKeywords classifies messages by containment, first match wins.
// Order matters: specific categories come before broad ones.
var categoryKeywords = []struct {
	cat   Category
	words []string
}{
	{CategoryFarewell, []string{"goodbye", "bye", "see you", "good night", "gotta go", "heading out"}},
	{CategoryGreeting, []string{"hello", "hi there", "good morning", "good afternoon", "good evening", "hey"}},
	{CategoryFood, []string{"lunch", "hungry", "coffee", "snack", "eat", "dinner", "breakfast", "food"}},
	{CategoryStress, []string{"stress", "overwhelm", "exhausted", "tired", "burn out", "too much", "pressure"}},
	{CategoryHumor, []string{"joke", "funny", "laugh", "hilarious", "haha"}},
	{CategoryGossip, []string{"did you hear", "rumor", "secret", "guess what", "between us"}},
	{CategoryCompliment, []string{"great job", "well done", "impressive", "amazing work", "nice work", "brilliant"}},
	{CategoryComplaint, []string{"annoying", "terrible", "broken", "fed up", "hate", "worst"}},
	{CategoryWork, []string{"deadline", "project", "meeting", "task", "report", "work", "client", "bug"}},
}

// Classify maps a message to its category. Questions are recognized last
// so that "did you hear about X?" stays gossip.
func Classify(message string) Category {
	lower := strings.ToLower(message)
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if matchKeyword(lower, tokens, w) {
				return entry.cat
			}
		}
	}
	if strings.HasSuffix(strings.TrimSpace(message), "?") {
		return CategoryQuestion
	}
	return CategoryGeneral
}

// matchKeyword matches phrases by containment and single words by token
// prefix, so "eat" matches "eating" but never "weather".
func matchKeyword(lower string, tokens []string, w string) bool {
	if strings.ContainsRune(w, ' ') {
		return strings.Contains(lower, w)
	}
	for _, tok := range tokens {
		if strings.HasPrefix(tok, w) {
			return true
		}
	}
	return false
}

// Tone shapes template selection within a pool.
type Tone string

const (
	ToneFormal   Tone = "formal"
	ToneCasual   Tone = "casual"
	TonePlayful  Tone = "playful"
	ToneReserved Tone = "reserved"
)

// ToneFor derives a speaking tone from traits and setting formality.
// Professional agents stay formal in formal settings; gossips and
// extroverts play; introverts hold back.
func ToneFor(traits []agent.Trait, formality float64) Tone {
	if agent.HasTrait(traits, agent.TraitProfessional) && formality >= 0.5 {
		return ToneFormal
	}
	if agent.HasTrait(traits, agent.TraitGossip) || agent.HasTrait(traits, agent.TraitExtroverted) {
		return TonePlayful
	}
	if agent.HasTrait(traits, agent.TraitIntroverted) {
		return ToneReserved
	}
	return ToneCasual
}

// Reply is a routed response.
type Reply struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
	Tone     Tone     `json:"tone"`
	ThreadID string   `json:"thread_id"`

	// Ending reports that the speaker wants to wrap the conversation up.
	Ending bool `json:"ending"`
}

// Request carries everything the router needs for one exchange.
type Request struct {
	Speaker   *agent.Agent // who is answering
	Partner   *agent.Agent // who spoke
	Message   string
	Formality float64 // from the scene, 0 casual .. 1 formal
	Now       time.Time
}

// Router dispatches messages to pools and maintains threads.
type Router struct {
	pools   map[Category]Pool
	threads *ThreadStore
	rand    *rand.Rand
	logger  *zap.Logger
}

// NewRouter builds a router over the default pools.
func NewRouter(seed int64, logger *zap.Logger) *Router {
	return &Router{
		pools:   defaultPools(),
		threads: NewThreadStore(),
		rand:    rand.New(rand.NewSource(seed)),
		logger:  logger,
	}
}

// Threads exposes the thread store for inspection and pruning.
func (r *Router) Threads() *ThreadStore { return r.threads }

// Respond classifies the message, updates the pair's thread and produces
// a reply from the matching pool.
func (r *Router) Respond(req Request) Reply {
	cat := Classify(req.Message)
	tone := ToneFor(req.Speaker.Persona.Traits, req.Formality)

	th := r.threads.Touch(req.Speaker.Persona.ID, req.Partner.Persona.ID, req.Now)
	th.AddTurn(Turn{
		SpeakerID: req.Partner.Persona.ID,
		Text:      req.Message,
		Category:  cat,
		At:        req.Now,
	})

	pool, ok := r.pools[cat]
	if !ok {
		pool = r.pools[CategoryGeneral]
	}
	text := pool.Generate(r.rand, req, th, tone)

	ending := cat == CategoryFarewell || r.rand.Float64() < th.EndChance()
	reply := Reply{
		Text:     text,
		Category: cat,
		Tone:     tone,
		ThreadID: th.ID,
		Ending:   ending,
	}
	th.AddTurn(Turn{
		SpeakerID: req.Speaker.Persona.ID,
		Text:      text,
		Category:  cat,
		At:        req.Now,
	})
	if ending {
		r.threads.Close(th.Key)
	}

	r.logger.Debug("dialogue routed",
		zap.String("speaker", req.Speaker.Persona.ID),
		zap.String("category", string(cat)),
		zap.String("tone", string(tone)),
		zap.Bool("ending", ending))
	return reply
}

// Opener produces a conversation-starting line for an agent initiating
// contact, themed by time of day and need state.
func (r *Router) Opener(speaker *agent.Agent, partner *agent.Agent, formality float64, now time.Time) Reply {
	tone := ToneFor(speaker.Persona.Traits, formality)
	cat := CategoryGreeting
	switch {
	case speaker.Needs.Hunger <= agent.ThresholdLow && now.Hour() >= 11 && now.Hour() <= 14:
		cat = CategoryFood
	case speaker.Needs.Stress >= agent.ThresholdModerate:
		cat = CategoryStress
	case agent.HasTrait(speaker.Persona.Traits, agent.TraitGossip):
		cat = CategoryGossip
	}

	th := r.threads.Touch(speaker.Persona.ID, partner.Persona.ID, now)
	text := r.pools[cat].Generate(r.rand, Request{
		Speaker:   speaker,
		Partner:   partner,
		Formality: formality,
		Now:       now,
	}, th, tone)
	th.AddTurn(Turn{SpeakerID: speaker.Persona.ID, Text: text, Category: cat, At: now})

	return Reply{Text: text, Category: cat, Tone: tone, ThreadID: th.ID}
}
