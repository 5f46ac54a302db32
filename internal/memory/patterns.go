package memory

import (
	"strings"
	"unicode"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// Keyword tables for text classification. Matching is containment on the
// lowercased text, not semantic parsing.

// Keywords are word stems matched by prefix against whole words; entries
// containing a space or apostrophe are matched by plain containment.
var actionKeywords = []struct {
	word string
	typ  agent.ActionType
}{
	{"coffee", agent.ActionDrinkCoffee},
	{"snack", agent.ActionEatSnack},
	{"lunch", agent.ActionEatMeal},
	{"dinner", agent.ActionEatMeal},
	{"ate", agent.ActionEatMeal},
	{"meal", agent.ActionEatMeal},
	{"talk", agent.ActionConversation},
	{"chat", agent.ActionConversation},
	{"conversation", agent.ActionConversation},
	{"spoke", agent.ActionConversation},
	{"gossip", agent.ActionConversation},
	{"organiz", agent.ActionOrganize},
	{"plann", agent.ActionOrganize},
	{"sorted", agent.ActionOrganize},
	{"work", agent.ActionWork},
	{"report", agent.ActionWork},
	{"task", agent.ActionWork},
	{"project", agent.ActionWork},
	{"meeting", agent.ActionWork},
	{"walk", agent.ActionMove},
	{"went to", agent.ActionMove},
	{"moved", agent.ActionMove},
	{"rested", agent.ActionRest},
	{"nap", agent.ActionRest},
	{"break", agent.ActionRest},
	{"relax", agent.ActionRest},
}

var successKeywords = []string{
	"finish", "complet", "succe", "accomplish", "solved", "done", "wrapped up",
}

var failureKeywords = []string{
	"fail", "mistake", "error", "gave up", "couldn't", "could not", "broke", "forgot", "missed",
}

var partialKeywords = []string{
	"tried", "attempt", "halfway", "partial", "almost", "started",
}

var positiveKeywords = []string{
	"happy", "enjoy", "fun", "glad", "laugh", "great", "pleasant", "relax", "nice",
}

var negativeKeywords = []string{
	"angry", "sad", "exhaust", "stress", "annoy", "upset", "frustrat", "awkward", "terrible",
}

var topicTags = map[string][]string{
	"work":    {"work", "task", "project", "report", "deadline", "meeting"},
	"food":    {"lunch", "snack", "coffee", "meal", "hungry", "cafeteria"},
	"social":  {"talk", "chat", "friend", "gossip", "party"},
	"rest":    {"break", "nap", "rested", "tired"},
	"morning": {"morning", "breakfast"},
	"evening": {"evening", "night"},
}

// classify fills an entry's derived fields from its text.
func classify(e *Entry) {
	lower := strings.ToLower(e.Text)

	words := splitWords(lower)

	e.ActionType = agent.ActionIdle
	for _, kw := range actionKeywords {
		if matchKeyword(lower, words, kw.word) {
			e.ActionType = kw.typ
			break
		}
	}

	switch {
	case matchAny(lower, words, failureKeywords):
		e.Outcome = OutcomeFailure
	case matchAny(lower, words, successKeywords):
		e.Outcome = OutcomeSuccess
	case matchAny(lower, words, partialKeywords):
		e.Outcome = OutcomePartial
	default:
		e.Outcome = OutcomeSuccess // uneventful is a quiet success
	}

	e.Emotion = EmotionNeutral
	if matchAny(lower, words, negativeKeywords) {
		e.Emotion = EmotionNegative
	} else if matchAny(lower, words, positiveKeywords) {
		e.Emotion = EmotionPositive
	}

	e.Magnitude = magnitudeOf(e.Outcome, e.Emotion)
	e.People = extractNames(e.Text)

	for tag, tagWords := range topicTags {
		if matchAny(lower, words, tagWords) {
			e.Tags = append(e.Tags, tag)
		}
	}
}

func splitWords(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// matchKeyword matches a stem by word-prefix, or by containment for
// multi-word and apostrophe keywords.
func matchKeyword(text string, words []string, kw string) bool {
	if strings.ContainsAny(kw, " '") {
		return strings.Contains(text, kw)
	}
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
	}
	return false
}

func matchAny(text string, words []string, kws []string) bool {
	for _, kw := range kws {
		if matchKeyword(text, words, kw) {
			return true
		}
	}
	return false
}

func magnitudeOf(o Outcome, em Emotion) float64 {
	var m float64
	switch o {
	case OutcomeSuccess:
		m = 0.3
	case OutcomeFailure:
		m = -0.4
	}
	switch em {
	case EmotionPositive:
		m += 0.4
	case EmotionNegative:
		m -= 0.4
	}
	if m > 1 {
		m = 1
	}
	if m < -1 {
		m = -1
	}
	return m
}

// nameStopwords are capitalized words that are not people.
var nameStopwords = map[string]bool{
	"I": true, "The": true, "A": true, "An": true, "It": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// extractNames pulls probable person names: capitalized words that are
// neither sentence-initial nor stopwords.
func extractNames(text string) []string {
	words := strings.Fields(text)
	var names []string
	seen := map[string]bool{}
	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if trimmed == "" || i == 0 {
			continue
		}
		if prev := words[i-1]; strings.HasSuffix(prev, ".") {
			continue // sentence start
		}
		r := []rune(trimmed)
		if !unicode.IsUpper(r[0]) || nameStopwords[trimmed] {
			continue
		}
		if !seen[trimmed] {
			seen[trimmed] = true
			names = append(names, trimmed)
		}
	}
	return names
}

// ActionStats aggregates outcomes for one action type.
type ActionStats struct {
	Attempts  int     `json:"attempts"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	Rate      float64 `json:"rate"` // successes / attempts
}

// Patterns is the behavioral summary derived from an agent's memories,
// consumed by the decision tiers and dialogue routing.
type Patterns struct {
	Frequency   map[agent.ActionType]int          `json:"frequency"`
	Stats       map[agent.ActionType]*ActionStats `json:"stats"`
	KnownPeople []string                          `json:"known_people,omitempty"`
	Avoid       []agent.ActionType                `json:"avoid,omitempty"`
	AvoidPeople []string                          `json:"avoid_people,omitempty"`
	Preferred   []agent.ActionType                `json:"preferred,omitempty"`
	RecentTags  []string                          `json:"recent_tags,omitempty"`
}

const (
	// preferenceMinAttempts and preferenceRate gate the preferred list.
	preferenceMinAttempts = 3
	preferenceRate        = 0.6

	// recentWindow is how many newest entries feed the avoidance lists.
	recentWindow = 10
)

// Modifier returns the success-rate-derived multiplier for an action:
// 0.8 for frequent failure, 1.2 for frequent success, 1.0 otherwise.
func (p *Patterns) Modifier(t agent.ActionType) float64 {
	s, ok := p.Stats[t]
	if !ok || s.Attempts < preferenceMinAttempts {
		return 1.0
	}
	if s.Rate >= preferenceRate {
		return 1.2
	}
	if s.Rate <= 1-preferenceRate {
		return 0.8
	}
	return 1.0
}

// ExtractPatterns derives frequency tables, success rates, avoidance and
// preference lists from an agent's short-term memory.
func (m *Manager) ExtractPatterns(agentID string) *Patterns {
	entries := m.Recent(agentID, 0)
	p := &Patterns{
		Frequency: make(map[agent.ActionType]int),
		Stats:     make(map[agent.ActionType]*ActionStats),
	}

	seenPeople := map[string]bool{}
	avoidPeople := map[string]bool{}
	avoidActions := map[agent.ActionType]bool{}
	seenTags := map[string]bool{}

	for i, e := range entries {
		p.Frequency[e.ActionType]++
		s, ok := p.Stats[e.ActionType]
		if !ok {
			s = &ActionStats{}
			p.Stats[e.ActionType] = s
		}
		s.Attempts++
		switch e.Outcome {
		case OutcomeSuccess:
			s.Successes++
		case OutcomeFailure:
			s.Failures++
		}

		for _, name := range e.People {
			if !seenPeople[name] {
				seenPeople[name] = true
				p.KnownPeople = append(p.KnownPeople, name)
			}
			if i < recentWindow && e.Emotion == EmotionNegative {
				avoidPeople[name] = true
			}
		}
		if i < recentWindow {
			if e.Outcome == OutcomeFailure {
				avoidActions[e.ActionType] = true
			}
			for _, tag := range e.Tags {
				if !seenTags[tag] {
					seenTags[tag] = true
					p.RecentTags = append(p.RecentTags, tag)
				}
			}
		}
	}

	for t, s := range p.Stats {
		if s.Attempts > 0 {
			s.Rate = float64(s.Successes) / float64(s.Attempts)
		}
		if s.Attempts >= preferenceMinAttempts && s.Rate >= preferenceRate {
			p.Preferred = append(p.Preferred, t)
		}
	}
	for t := range avoidActions {
		p.Avoid = append(p.Avoid, t)
	}
	for name := range avoidPeople {
		p.AvoidPeople = append(p.AvoidPeople, name)
	}
	return p
}
