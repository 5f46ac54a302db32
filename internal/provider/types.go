// Package provider integrates external decision services. A provider is
// a remote endpoint that receives a character snapshot and answers with a
// decision in the standard response shape; the router binds agents to
// providers and walks fallback chains on failure.
package provider

import (
	"context"
	"time"
)

// Provider is one external decision service.
type Provider interface {
	ID() string
	Name() string
	Decide(ctx context.Context, req *DecideRequest) (*DecideResponse, error)
	HealthCheck(ctx context.Context) error
}

// DecideRequest is the character snapshot sent to a provider.
type DecideRequest struct {
	CharacterID string             `json:"characterId"`
	Name        string             `json:"name"`
	Role        string             `json:"role"`
	Traits      []string           `json:"traits,omitempty"`
	Needs       map[string]float64 `json:"needs"`
	Location    string             `json:"location"`
	Prompt      string             `json:"prompt,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// DecideResponse is a provider's answer.
type DecideResponse struct {
	ResponseType string `json:"responseType"` // "action", "dialogue" or "idle"
	ActionType   string `json:"actionType,omitempty"`
	Target       string `json:"target,omitempty"`
	DurationSec  int    `json:"durationSec,omitempty"`
	Content      string `json:"content,omitempty"`
	Thought      string `json:"thought,omitempty"`
}

// Config holds configuration for one provider instance.
type Config struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
}
