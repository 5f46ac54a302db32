package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Archive persists consolidated long-term memories across sessions.
type Archive interface {
	SaveSummary(ctx context.Context, e Entry) error
	LoadSummaries(ctx context.Context, agentID string) ([]Entry, error)
}

// GraphArchive stores long-term memories as nodes in Neo4j, linked to
// their agent.
type GraphArchive struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewGraphArchive creates a Neo4j-backed memory archive.
func NewGraphArchive(uri, user, password string, logger *zap.Logger) (*GraphArchive, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, fmt.Errorf("neo4j connect: %w", err)
	}
	return &GraphArchive{driver: driver, logger: logger}, nil
}

// Close shuts down the driver.
func (g *GraphArchive) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// SaveSummary implements Archive.
func (g *GraphArchive) SaveSummary(ctx context.Context, e Entry) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (a:Agent {id: $agentId})
		 CREATE (m:Memory {id: $id, text: $text, emotion: $emotion,
		         magnitude: $magnitude, at: $at})
		 MERGE (a)-[:REMEMBERS]->(m)`,
		map[string]interface{}{
			"agentId":   e.AgentID,
			"id":        e.ID,
			"text":      e.Text,
			"emotion":   string(e.Emotion),
			"magnitude": e.Magnitude,
			"at":        e.Timestamp.Format(time.RFC3339),
		})
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LoadSummaries implements Archive, returning entries oldest first.
func (g *GraphArchive) LoadSummaries(ctx context.Context, agentID string) ([]Entry, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Agent {id: $agentId})-[:REMEMBERS]->(m:Memory)
		 RETURN m.id, m.text, m.emotion, m.magnitude, m.at
		 ORDER BY m.at`,
		map[string]interface{}{"agentId": agentID})
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	var entries []Entry
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("m.id")
		text, _ := rec.Get("m.text")
		emotion, _ := rec.Get("m.emotion")
		magnitude, _ := rec.Get("m.magnitude")
		at, _ := rec.Get("m.at")

		e := Entry{AgentID: agentID}
		if s, ok := id.(string); ok {
			e.ID = s
		}
		if s, ok := text.(string); ok {
			e.Text = s
		}
		if s, ok := emotion.(string); ok {
			e.Emotion = Emotion(s)
		}
		if f, ok := magnitude.(float64); ok {
			e.Magnitude = f
		}
		if s, ok := at.(string); ok {
			if ts, perr := time.Parse(time.RFC3339, s); perr == nil {
				e.Timestamp = ts
			}
		}
		entries = append(entries, e)
	}
	return entries, result.Err()
}

// Restore loads archived summaries back into the manager's long-term
// store, typically at session start.
func (m *Manager) Restore(ctx context.Context, archive Archive, agentID string) error {
	entries, err := archive.LoadSummaries(ctx, agentID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.storeFor(agentID)
	s.longTerm = append(s.longTerm, entries...)
	m.logger.Info("restored archived memories",
		zap.String("agent", agentID), zap.Int("count", len(entries)))
	return nil
}
