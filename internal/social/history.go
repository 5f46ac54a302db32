// Package social infers relationships between agents and analyzes the
// social situation around one agent: groups, opportunities, barriers and
// overall climate. Relationships are recomputed from interaction history
// on every analysis, never stored as ground truth.
package social

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Interaction is one recorded contact between two agents.
type Interaction struct {
	FromID  string    `json:"from_id"`
	ToID    string    `json:"to_id"`
	Summary string    `json:"summary"`
	Quality float64   `json:"quality"` // -1 bad .. 1 good
	At      time.Time `json:"at"`
}

// PairStats aggregates the interaction history of an unordered pair.
type PairStats struct {
	Interactions int     `json:"interactions"`
	AvgQuality   float64 `json:"avg_quality"`
	Strength     float64 `json:"strength"` // 0-1, decays over time
}

// HistoryStore records interactions and answers pair queries. The
// in-memory implementation is the default; the graph implementation
// persists across sessions.
type HistoryStore interface {
	Record(ctx context.Context, i Interaction) error
	PairStats(ctx context.Context, aID, bID string) (PairStats, error)
	Decay(ctx context.Context, amount float64) error
}

// pairKey canonicalizes an unordered agent pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// MemoryHistory is the in-process HistoryStore.
type MemoryHistory struct {
	pairs map[string]*PairStats
	mu    sync.RWMutex
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{pairs: make(map[string]*PairStats)}
}

// Record implements HistoryStore.
func (h *MemoryHistory) Record(_ context.Context, i Interaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := pairKey(i.FromID, i.ToID)
	s, ok := h.pairs[key]
	if !ok {
		s = &PairStats{}
		h.pairs[key] = s
	}
	s.AvgQuality = (s.AvgQuality*float64(s.Interactions) + i.Quality) / float64(s.Interactions+1)
	s.Interactions++
	s.Strength += 0.1
	if s.Strength > 1 {
		s.Strength = 1
	}
	return nil
}

// PairStats implements HistoryStore.
func (h *MemoryHistory) PairStats(_ context.Context, aID, bID string) (PairStats, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.pairs[pairKey(aID, bID)]; ok {
		return *s, nil
	}
	return PairStats{}, nil
}

// Decay implements HistoryStore, weakening every pair's strength.
func (h *MemoryHistory) Decay(_ context.Context, amount float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.pairs {
		s.Strength -= amount
		if s.Strength < 0 {
			s.Strength = 0
		}
	}
	return nil
}

// GraphHistory stores interaction history in Neo4j as KNOWS edges
// between Agent nodes.
type GraphHistory struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewGraphHistory creates a Neo4j-backed interaction history.
func NewGraphHistory(uri, user, password string, logger *zap.Logger) (*GraphHistory, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, fmt.Errorf("neo4j connect: %w", err)
	}
	return &GraphHistory{driver: driver, logger: logger}, nil
}

// Close shuts down the driver.
func (g *GraphHistory) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Record implements HistoryStore.
func (g *GraphHistory) Record(ctx context.Context, i Interaction) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	a, b := i.FromID, i.ToID
	if a > b {
		a, b = b, a
	}
	_, err := session.Run(ctx,
		`MERGE (x:Agent {id: $a})
		 MERGE (y:Agent {id: $b})
		 MERGE (x)-[r:KNOWS]->(y)
		 ON CREATE SET r.interactions = 0, r.quality_sum = 0.0, r.strength = 0.0
		 SET r.interactions = r.interactions + 1,
		     r.quality_sum = r.quality_sum + $quality,
		     r.strength = CASE WHEN r.strength + 0.1 > 1.0 THEN 1.0 ELSE r.strength + 0.1 END,
		     r.last_summary = $summary,
		     r.updated_at = datetime()`,
		map[string]interface{}{
			"a": a, "b": b,
			"quality": i.Quality,
			"summary": i.Summary,
		})
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// PairStats implements HistoryStore.
func (g *GraphHistory) PairStats(ctx context.Context, aID, bID string) (PairStats, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	a, b := aID, bID
	if a > b {
		a, b = b, a
	}
	result, err := session.Run(ctx,
		`MATCH (x:Agent {id: $a})-[r:KNOWS]->(y:Agent {id: $b})
		 RETURN r.interactions, r.quality_sum, r.strength`,
		map[string]interface{}{"a": a, "b": b})
	if err != nil {
		return PairStats{}, fmt.Errorf("pair stats: %w", err)
	}
	if !result.Next(ctx) {
		return PairStats{}, nil
	}
	rec := result.Record()
	var stats PairStats
	if v, ok := rec.Get("r.interactions"); ok {
		if n, ok := v.(int64); ok {
			stats.Interactions = int(n)
		}
	}
	var qualitySum float64
	if v, ok := rec.Get("r.quality_sum"); ok {
		if f, ok := v.(float64); ok {
			qualitySum = f
		}
	}
	if v, ok := rec.Get("r.strength"); ok {
		if f, ok := v.(float64); ok {
			stats.Strength = f
		}
	}
	if stats.Interactions > 0 {
		stats.AvgQuality = qualitySum / float64(stats.Interactions)
	}
	return stats, nil
}

// Decay implements HistoryStore.
func (g *GraphHistory) Decay(ctx context.Context, amount float64) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MATCH ()-[r:KNOWS]->()
		 WHERE r.strength > 0
		 SET r.strength = CASE WHEN r.strength - $decay < 0 THEN 0 ELSE r.strength - $decay END`,
		map[string]interface{}{"decay": amount})
	if err != nil {
		return fmt.Errorf("decay history: %w", err)
	}
	return nil
}
