// Package memory keeps each agent's short-term event buffer and long-term
// consolidated summaries, and derives behavioral patterns from them.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/pixeltown/internal/agent"
	"go.uber.org/zap"
)

// DefaultShortTermCapacity bounds the per-agent event buffer.
const DefaultShortTermCapacity = 50

// Outcome classifies how an event went.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Emotion classifies the emotional tone of an event.
type Emotion string

const (
	EmotionPositive Emotion = "positive"
	EmotionNegative Emotion = "negative"
	EmotionNeutral  Emotion = "neutral"
)

// Entry is one observed event. The derived fields are extracted from the
// text at append time.
type Entry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	ActionType agent.ActionType `json:"action_type"`
	Outcome    Outcome          `json:"outcome"`
	Emotion    Emotion          `json:"emotion"`
	Magnitude  float64          `json:"magnitude"` // -1 to 1, signed significance
	People     []string         `json:"people,omitempty"`
	Tags       []string         `json:"tags,omitempty"`
}

// store holds one agent's two memory tiers. Short-term is a bounded FIFO
// kept newest-first; long-term only ever receives consolidated summaries.
type store struct {
	shortTerm []Entry
	longTerm  []Entry
}

// Manager owns the memory stores for every agent.
type Manager struct {
	stores   map[string]*store
	capacity int
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewManager creates a memory manager with the given short-term capacity.
func NewManager(capacity int, logger *zap.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultShortTermCapacity
	}
	return &Manager{
		stores:   make(map[string]*store),
		capacity: capacity,
		logger:   logger,
	}
}

func (m *Manager) storeFor(agentID string) *store {
	s, ok := m.stores[agentID]
	if !ok {
		s = &store{}
		m.stores[agentID] = s
	}
	return s
}

// Append records an event for an agent, deriving classification fields
// from its text. Oldest entries drop once capacity is exceeded.
func (m *Manager) Append(agentID, text string, at time.Time) Entry {
	entry := Entry{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Text:      text,
		Timestamp: at,
	}
	classify(&entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.storeFor(agentID)
	s.shortTerm = append([]Entry{entry}, s.shortTerm...)
	if len(s.shortTerm) > m.capacity {
		s.shortTerm = s.shortTerm[:m.capacity]
	}
	return entry
}

// Recent returns up to n short-term entries, newest first.
func (m *Manager) Recent(agentID string, n int) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[agentID]
	if !ok {
		return nil
	}
	if n <= 0 || n > len(s.shortTerm) {
		n = len(s.shortTerm)
	}
	out := make([]Entry, n)
	copy(out, s.shortTerm[:n])
	return out
}

// LongTerm returns all consolidated summaries for an agent.
func (m *Manager) LongTerm(agentID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[agentID]
	if !ok {
		return nil
	}
	out := make([]Entry, len(s.longTerm))
	copy(out, s.longTerm)
	return out
}

// AppendLongTerm stores a consolidated summary.
func (m *Manager) AppendLongTerm(agentID, summary string, at time.Time) Entry {
	entry := Entry{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Text:      summary,
		Timestamp: at,
	}
	classify(&entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.storeFor(agentID)
	s.longTerm = append(s.longTerm, entry)
	return entry
}

// Forget drops all memory for an agent.
func (m *Manager) Forget(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, agentID)
}
