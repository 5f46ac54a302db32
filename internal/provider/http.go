package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPProvider talks to a decision service over JSON HTTP. The service
// exposes POST /decide and GET /healthz.
type HTTPProvider struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// NewHTTPProvider creates a provider from config.
func NewHTTPProvider(cfg Config, logger *zap.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *HTTPProvider) ID() string   { return p.config.ID }
func (p *HTTPProvider) Name() string { return p.config.Name }

// Decide posts the character snapshot and parses the decision.
func (p *HTTPProvider) Decide(ctx context.Context, req *DecideRequest) (*DecideResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Endpoint+"/decide", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("provider error %d: %s", resp.StatusCode, string(respBody))
	}

	var out DecideResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.ResponseType == "" {
		return nil, fmt.Errorf("provider %s returned no response type", p.config.ID)
	}
	return &out, nil
}

// HealthCheck verifies the service is reachable.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.Endpoint+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s unhealthy: %d", p.config.ID, resp.StatusCode)
	}
	return nil
}
