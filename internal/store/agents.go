package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nidhogg/pixeltown/internal/agent"
)

// SaveAgent upserts an agent snapshot. Traits and needs travel as jsonb;
// execution state (busy flag, queue) is deliberately not persisted, a
// restarted world begins with everyone available.
func (s *Store) SaveAgent(ctx context.Context, a *agent.Agent) error {
	traitsJSON, err := json.Marshal(a.Persona.Traits)
	if err != nil {
		return fmt.Errorf("marshal traits: %w", err)
	}
	needsJSON, err := json.Marshal(a.Needs)
	if err != nil {
		return fmt.Errorf("marshal needs: %w", err)
	}

	now := time.Now()
	_, err = s.db.Exec(ctx, `
		INSERT INTO agents (id, name, role, traits, goal, backstory, provider_id,
		                    location, pos_x, pos_y, mood, needs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			traits = EXCLUDED.traits,
			goal = EXCLUDED.goal,
			backstory = EXCLUDED.backstory,
			provider_id = EXCLUDED.provider_id,
			location = EXCLUDED.location,
			pos_x = EXCLUDED.pos_x,
			pos_y = EXCLUDED.pos_y,
			mood = EXCLUDED.mood,
			needs = EXCLUDED.needs,
			updated_at = EXCLUDED.updated_at`,
		a.Persona.ID, a.Persona.Name, a.Persona.Role, traitsJSON,
		a.Persona.Goal, a.Persona.Backstory, a.ProviderID,
		a.Location, a.Position.X, a.Position.Y, a.Mood, needsJSON, now,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.Persona.ID, err)
	}
	return nil
}

// GetAgent retrieves a single agent by ID.
func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, role, traits, COALESCE(goal,''), COALESCE(backstory,''),
		       COALESCE(provider_id,''), location, pos_x, pos_y, mood, needs,
		       created_at, updated_at
		FROM agents WHERE id = $1`, id)

	a, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// ListAgents returns every persisted agent.
func (s *Store) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, role, traits, COALESCE(goal,''), COALESCE(backstory,''),
		       COALESCE(provider_id,''), location, pos_x, pos_y, mood, needs,
		       created_at, updated_at
		FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*agent.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// DeleteAgent removes an agent's snapshot.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*agent.Agent, error) {
	var a agent.Agent
	var traitsJSON, needsJSON []byte
	err := row.Scan(
		&a.Persona.ID, &a.Persona.Name, &a.Persona.Role, &traitsJSON,
		&a.Persona.Goal, &a.Persona.Backstory, &a.ProviderID,
		&a.Location, &a.Position.X, &a.Position.Y, &a.Mood, &needsJSON,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(traitsJSON, &a.Persona.Traits); err != nil {
		return nil, fmt.Errorf("unmarshal traits: %w", err)
	}
	if err := json.Unmarshal(needsJSON, &a.Needs); err != nil {
		return nil, fmt.Errorf("unmarshal needs: %w", err)
	}
	return &a, nil
}

// RosterPersister adapts the store to the roster's persister hook, which
// has no context of its own.
type RosterPersister struct {
	store *Store
}

// NewRosterPersister wraps a store.
func NewRosterPersister(s *Store) *RosterPersister {
	return &RosterPersister{store: s}
}

// SaveAgent implements agent.Persister.
func (p *RosterPersister) SaveAgent(a *agent.Agent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.store.SaveAgent(ctx, a)
}

// DeleteAgent implements agent.Persister.
func (p *RosterPersister) DeleteAgent(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.store.DeleteAgent(ctx, id)
}
