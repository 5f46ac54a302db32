package memory

import (
	"context"
	"strings"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
	"go.uber.org/zap"
)

// Summary is the summarizer collaborator's verdict on a batch of events.
type Summary struct {
	IsSignificant bool   `json:"is_significant"`
	Summary       string `json:"summary"`
}

// Summarizer condenses significant events into one sentence. May be
// backed by an external text service.
type Summarizer interface {
	Summarize(ctx context.Context, a *agent.Agent, events []Entry) (Summary, error)
}

// SentimentLookup resolves a person's name to the agent's current
// sentiment toward them, in [-1, 1]. Supplied by the social graph.
type SentimentLookup func(agentID, personName string) float64

// significanceThreshold is the absolute magnitude above which an event
// qualifies for consolidation on its own.
const significanceThreshold = 0.5

// strongSentiment marks a relationship strong enough to make any shared
// event significant.
const strongSentiment = 0.6

// Consolidator periodically promotes significant short-term events into
// long-term memory via the summarizer collaborator.
type Consolidator struct {
	manager    *Manager
	summarizer Summarizer
	sentiment  SentimentLookup
	archive    Archive
	window     int // how many recent entries to examine per run
	logger     *zap.Logger
}

// NewConsolidator wires a consolidator. sentiment and archive may be nil.
func NewConsolidator(m *Manager, s Summarizer, sentiment SentimentLookup, archive Archive, logger *zap.Logger) *Consolidator {
	return &Consolidator{
		manager:    m,
		summarizer: s,
		sentiment:  sentiment,
		archive:    archive,
		window:     15,
		logger:     logger,
	}
}

// significant applies the consolidation filter: magnitude, strong
// relationships, or long-term-goal relevance.
func (c *Consolidator) significant(a *agent.Agent, e Entry) bool {
	if e.Magnitude >= significanceThreshold || e.Magnitude <= -significanceThreshold {
		return true
	}
	if c.sentiment != nil {
		for _, name := range e.People {
			s := c.sentiment(a.Persona.ID, name)
			if s >= strongSentiment || s <= -strongSentiment {
				return true
			}
		}
	}
	if a.Persona.Goal != "" {
		goal := strings.ToLower(a.Persona.Goal)
		text := strings.ToLower(e.Text)
		for _, word := range strings.Fields(goal) {
			if len(word) >= 4 && strings.Contains(text, word) {
				return true
			}
		}
	}
	return false
}

// Run consolidates one agent's recent events. Summarizer failures are
// logged and skipped; consolidation never errors the caller.
func (c *Consolidator) Run(ctx context.Context, a *agent.Agent) {
	recent := c.manager.Recent(a.Persona.ID, c.window)
	var significant []Entry
	for _, e := range recent {
		if c.significant(a, e) {
			significant = append(significant, e)
		}
	}
	if len(significant) == 0 || c.summarizer == nil {
		return
	}

	summary, err := c.summarizer.Summarize(ctx, a, significant)
	if err != nil {
		c.logger.Warn("memory summarize failed",
			zap.String("agent", a.Persona.ID), zap.Error(err))
		return
	}
	if !summary.IsSignificant {
		return
	}

	entry := c.manager.AppendLongTerm(a.Persona.ID, summary.Summary, time.Now())
	c.logger.Debug("consolidated memory",
		zap.String("agent", a.Persona.ID),
		zap.Int("events", len(significant)))

	if c.archive != nil {
		if err := c.archive.SaveSummary(ctx, entry); err != nil {
			c.logger.Warn("archive summary failed",
				zap.String("agent", a.Persona.ID), zap.Error(err))
		}
	}
}

// RunAll consolidates every agent in the list.
func (c *Consolidator) RunAll(ctx context.Context, agents []*agent.Agent) {
	for _, a := range agents {
		c.Run(ctx, a)
	}
}

// HeuristicSummarizer is the built-in fallback summarizer: it stitches a
// one-sentence summary from the dominant tone of the events. Used when no
// external text service is configured.
type HeuristicSummarizer struct{}

// Summarize implements Summarizer.
func (HeuristicSummarizer) Summarize(_ context.Context, a *agent.Agent, events []Entry) (Summary, error) {
	if len(events) == 0 {
		return Summary{}, nil
	}
	var pos, neg int
	for _, e := range events {
		switch e.Emotion {
		case EmotionPositive:
			pos++
		case EmotionNegative:
			neg++
		}
	}
	tone := "an ordinary"
	switch {
	case pos > neg:
		tone = "a good"
	case neg > pos:
		tone = "a rough"
	}
	return Summary{
		IsSignificant: true,
		Summary:       a.Persona.Name + " had " + tone + " stretch: " + events[0].Text,
	}, nil
}
