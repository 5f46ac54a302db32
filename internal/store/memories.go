package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nidhogg/pixeltown/internal/memory"
)

// SaveMemory stores one long-term memory row.
func (s *Store) SaveMemory(ctx context.Context, e memory.Entry) error {
	peopleJSON, err := json.Marshal(e.People)
	if err != nil {
		return fmt.Errorf("marshal people: %w", err)
	}
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO memories (id, agent_id, text, action_type, outcome, emotion,
		                      magnitude, people, tags, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.AgentID, e.Text, string(e.ActionType), string(e.Outcome),
		string(e.Emotion), e.Magnitude, peopleJSON, tagsJSON, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save memory %s: %w", e.ID, err)
	}
	return nil
}

// ListMemories returns an agent's long-term memories, oldest first.
func (s *Store) ListMemories(ctx context.Context, agentID string, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, agent_id, text, action_type, outcome, emotion,
		       magnitude, people, tags, occurred_at
		FROM memories
		WHERE agent_id = $1
		ORDER BY occurred_at ASC
		LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var entries []memory.Entry
	for rows.Next() {
		var e memory.Entry
		var peopleJSON, tagsJSON []byte
		if err := rows.Scan(
			&e.ID, &e.AgentID, &e.Text, &e.ActionType, &e.Outcome, &e.Emotion,
			&e.Magnitude, &peopleJSON, &tagsJSON, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if len(peopleJSON) > 0 {
			json.Unmarshal(peopleJSON, &e.People)
		}
		if len(tagsJSON) > 0 {
			json.Unmarshal(tagsJSON, &e.Tags)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteMemories drops all long-term memories for an agent.
func (s *Store) DeleteMemories(ctx context.Context, agentID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM memories WHERE agent_id = $1`, agentID)
	if err != nil {
		return fmt.Errorf("delete memories for %s: %w", agentID, err)
	}
	return nil
}

// SQLArchive backs the memory archive with the relational store, as an
// alternative to the graph archive when Neo4j is not configured.
type SQLArchive struct {
	store *Store
}

// NewSQLArchive wraps a store.
func NewSQLArchive(s *Store) *SQLArchive {
	return &SQLArchive{store: s}
}

// SaveSummary implements memory.Archive.
func (a *SQLArchive) SaveSummary(ctx context.Context, e memory.Entry) error {
	return a.store.SaveMemory(ctx, e)
}

// LoadSummaries implements memory.Archive.
func (a *SQLArchive) LoadSummaries(ctx context.Context, agentID string) ([]memory.Entry, error) {
	return a.store.ListMemories(ctx, agentID, 0)
}
