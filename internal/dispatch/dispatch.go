// Package dispatch schedules decision requests. Requests enter a
// priority queue and are processed one per tick on a fixed interval;
// results are served from cache when fresh, from an external provider
// when the agent has one bound, and from the local rule engine otherwise.
// Failed external calls retry with exponential backoff at reduced
// priority before degrading to an idle fallback.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/decision"
	"go.uber.org/zap"
)

// Scheduling defaults.
const (
	DefaultInterval = 2 * time.Second
	DefaultCacheTTL = 30 * time.Second
	maxAttempts     = 3
	retryBase       = 2 * time.Second
)

// retryPriorityPenalty lowers a retried request below fresh traffic.
const retryPriorityPenalty = 2

// Response is the standardized result delivered for every request,
// regardless of which path produced it.
type Response struct {
	ResponseType string        `json:"responseType"` // "action", "dialogue" or "idle"
	CharacterID  string        `json:"characterId"`
	Timestamp    time.Time     `json:"timestamp"`
	Source       string        `json:"source"`
	Action       *agent.Action `json:"action,omitempty"`
	Content      string        `json:"content,omitempty"`      // dialogue line
	Thought      string        `json:"thought,omitempty"`      // reasoning summary
	DialogueWith string        `json:"dialogueWith,omitempty"` // partner for an attached line
}

// FromDecision converts an engine decision into the wire response shape.
func FromDecision(agentID string, d *decision.Decision, now time.Time) Response {
	r := Response{
		CharacterID: agentID,
		Timestamp:   now,
		Source:      d.Source,
		Thought:     strings.Join(d.Reasoning, "; "),
	}
	switch d.Type {
	case decision.TypeDialogue:
		r.ResponseType = "dialogue"
		act := d.Action
		r.Action = &act
	case decision.TypeAction:
		r.ResponseType = "action"
		act := d.Action
		r.Action = &act
	default:
		r.ResponseType = "idle"
	}
	if d.IncludeDialogue && d.TargetAgentID != "" {
		r.DialogueWith = d.TargetAgentID
	}
	return r
}

// Request is one queued decision request.
type Request struct {
	ID       string
	AgentID  string
	Prompt   string
	Priority int // higher first, ties FIFO

	// Callback receives the standardized response and the error that
	// produced it, if any. A non-nil error is always paired with a
	// usable fallback response.
	Callback func(Response, error)

	attempts   int
	enqueuedAt time.Time
	notBefore  time.Time
}

// Decider produces a decision for a request. The local engine and the
// external provider router both satisfy it.
type Decider interface {
	Decide(ctx context.Context, agentID, prompt string, now time.Time) (*decision.Decision, error)
}

// Scheduler owns the request queue and the processing loop.
type Scheduler struct {
	mu    sync.Mutex
	queue []*Request

	local    Decider
	external Decider // nil when no providers are configured
	roster   *agent.Roster
	cache    Cache
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithExternal attaches an external provider decider.
func WithExternal(d Decider) Option {
	return func(s *Scheduler) { s.external = d }
}

// WithInterval overrides the processing interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithCacheTTL overrides the response cache TTL.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Scheduler) { s.ttl = d }
}

// NewScheduler wires a scheduler over the local engine and a cache.
func NewScheduler(local Decider, roster *agent.Roster, cache Cache, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		local:    local,
		roster:   roster,
		cache:    cache,
		ttl:      DefaultCacheTTL,
		interval: DefaultInterval,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues a request and returns its ID.
func (s *Scheduler) Submit(req *Request) string {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.enqueuedAt = time.Now()
	s.push(req)
	s.logger.Debug("request queued",
		zap.String("id", req.ID),
		zap.String("agent", req.AgentID),
		zap.Int("priority", req.Priority))
	return req.ID
}

// push inserts by priority, keeping FIFO order among equal priorities.
func (s *Scheduler) push(req *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := len(s.queue)
	for i, q := range s.queue {
		if req.Priority > q.Priority {
			pos = i
			break
		}
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[pos+1:], s.queue[pos:])
	s.queue[pos] = req
}

// pop removes the highest-priority request that is ready to run.
func (s *Scheduler) pop(now time.Time) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.queue {
		if q.notBefore.After(now) {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		return q
	}
	return nil
}

// Pending reports the current queue length.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Run processes one request per tick until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.ProcessOne(ctx, now)
		}
	}
}

// ProcessOne handles the next ready request, if any. Exported so the
// world loop and tests can drive the scheduler without the ticker.
func (s *Scheduler) ProcessOne(ctx context.Context, now time.Time) bool {
	req := s.pop(now)
	if req == nil {
		return false
	}
	s.process(ctx, req, now)
	return true
}

func (s *Scheduler) process(ctx context.Context, req *Request, now time.Time) {
	key := cacheKey(req.AgentID, req.Prompt)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("cache read failed", zap.Error(err))
		} else if ok {
			cached.Source = decision.SourceCache
			cached.Timestamp = now
			s.deliver(req, cached, nil)
			return
		}
	}

	d, err := s.decide(ctx, req, now)
	if err != nil {
		s.retryOrFallback(req, now, err)
		return
	}

	resp := FromDecision(req.AgentID, d, now)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	s.deliver(req, resp, nil)
}

// decide arbitrates between the external provider and the local engine.
func (s *Scheduler) decide(ctx context.Context, req *Request, now time.Time) (*decision.Decision, error) {
	if s.external != nil {
		if a, ok := s.roster.Get(req.AgentID); ok && a.ProviderID != "" {
			return s.external.Decide(ctx, req.AgentID, req.Prompt, now)
		}
	}
	return s.local.Decide(ctx, req.AgentID, req.Prompt, now)
}

// retryOrFallback re-enqueues a failed request with exponential backoff
// at reduced priority, or delivers the idle fallback once attempts run out.
func (s *Scheduler) retryOrFallback(req *Request, now time.Time, cause error) {
	req.attempts++
	if req.attempts < maxAttempts {
		backoff := retryBase << (req.attempts - 1)
		req.notBefore = now.Add(backoff)
		if req.Priority > retryPriorityPenalty {
			req.Priority -= retryPriorityPenalty
		} else {
			req.Priority = 0
		}
		s.push(req)
		s.logger.Warn("decision failed, retrying",
			zap.String("id", req.ID),
			zap.Int("attempt", req.attempts),
			zap.Duration("backoff", backoff),
			zap.Error(cause))
		return
	}

	s.logger.Error("decision failed permanently, idling",
		zap.String("id", req.ID),
		zap.String("agent", req.AgentID),
		zap.Error(cause))
	d := decision.IdleDecision(decision.SourceFallback, "provider unavailable, idling")
	err := fmt.Errorf("decision failed after %d attempts: %w", req.attempts, cause)
	s.deliver(req, FromDecision(req.AgentID, d, now), err)
}

func (s *Scheduler) deliver(req *Request, resp Response, err error) {
	if req.Callback != nil {
		req.Callback(resp, err)
	}
}

func cacheKey(agentID, prompt string) string {
	return "decision:" + agentID + ":" + prompt
}
