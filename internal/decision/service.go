package decision

import (
	"context"
	"time"
)

// Service bundles the assembler and the engine behind the decider shape
// the dispatch scheduler consumes. This is the local decision path.
type Service struct {
	assembler *Assembler
	engine    *Engine
}

// NewService wires the local decision service.
func NewService(assembler *Assembler, engine *Engine) *Service {
	return &Service{assembler: assembler, engine: engine}
}

// Decide assembles the agent's context and evaluates it. The decision
// keeps its tier source; SourceLocal is reserved for callers that do not
// care which tier fired.
func (s *Service) Decide(ctx context.Context, agentID, prompt string, now time.Time) (*Decision, error) {
	dc, err := s.assembler.Assemble(ctx, agentID, prompt, now)
	if err != nil {
		return nil, err
	}
	return s.engine.Evaluate(dc), nil
}
