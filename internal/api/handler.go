// Package api exposes the REST surface: agent CRUD, decision requests,
// provider management and world control.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/decision"
	"github.com/nidhogg/pixeltown/internal/dispatch"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/provider"
	"github.com/nidhogg/pixeltown/internal/store"
	"github.com/nidhogg/pixeltown/internal/world"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers. db may be nil when
// running without PostgreSQL; provider registration then lives only in
// memory.
type Handler struct {
	roster    *agent.Roster
	decisions *decision.Service
	scheduler *dispatch.Scheduler
	wrld      *world.World
	clock     *world.Clock
	providers *provider.Router
	memories  *memory.Manager
	db        *store.Store
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	roster *agent.Roster,
	decisions *decision.Service,
	scheduler *dispatch.Scheduler,
	wrld *world.World,
	clock *world.Clock,
	providers *provider.Router,
	memories *memory.Manager,
	db *store.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		roster:    roster,
		decisions: decisions,
		scheduler: scheduler,
		wrld:      wrld,
		clock:     clock,
		providers: providers,
		memories:  memories,
		db:        db,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{id}", h.getAgent)
		r.Delete("/agents/{id}", h.deleteAgent)
		r.Get("/agents/{id}/memories", h.getAgentMemories)
		r.Put("/agents/{id}/provider", h.bindAgentProvider)

		r.Post("/decisions", h.requestDecision)

		r.Get("/providers", h.listProviders)
		r.Post("/providers", h.addProvider)
		r.Delete("/providers/{id}", h.removeProvider)

		r.Get("/world/status", h.worldStatus)
		r.Post("/world/start", h.startWorld)
		r.Post("/world/stop", h.stopWorld)
		r.Post("/world/speed", h.setWorldSpeed)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "world": "pixeltown"})
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.roster.List())
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var a agent.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.Persona.Name == "" {
		writeError(w, http.StatusBadRequest, "persona.name is required")
		return
	}
	h.roster.Register(&a)
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.roster.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.roster.Remove(id); err != nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	h.memories.Forget(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) getAgentMemories(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.roster.Get(id); !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent_id":  id,
		"recent":    h.memories.Recent(id, 20),
		"long_term": h.memories.LongTerm(id),
	})
}

type bindProviderRequest struct {
	ProviderID string `json:"provider_id"`
}

// bindAgentProvider routes an agent's decisions to an external provider.
// An empty provider_id returns the agent to the local rule engine.
func (h *Handler) bindAgentProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.roster.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	var req bindProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProviderID != "" {
		if _, ok := h.providers.Get(req.ProviderID); !ok {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		h.providers.Bind(id, req.ProviderID)
	}
	a.ProviderID = req.ProviderID
	h.roster.Touch(a)
	writeJSON(w, http.StatusOK, a)
}

type decisionRequest struct {
	CharacterID string `json:"characterId"`
	Prompt      string `json:"prompt,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Sync        bool   `json:"sync,omitempty"`
}

// requestDecision submits a decision request. Synchronous requests run
// the local engine inline and return the response body; asynchronous
// ones join the scheduler queue and return the request ID.
func (h *Handler) requestDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CharacterID == "" {
		writeError(w, http.StatusBadRequest, "characterId is required")
		return
	}
	if _, ok := h.roster.Get(req.CharacterID); !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	if req.Sync {
		now := h.clock.WorldTime()
		d, err := h.decisions.Decide(r.Context(), req.CharacterID, req.Prompt, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, dispatch.FromDecision(req.CharacterID, d, now))
		return
	}

	id := h.scheduler.Submit(&dispatch.Request{
		AgentID:  req.CharacterID,
		Prompt:   req.Prompt,
		Priority: req.Priority,
	})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"request_id": id,
		"status":     "queued",
		"pending":    h.scheduler.Pending(),
	})
}

// providerView is the API shape for a registered provider. The key is
// never echoed back.
type providerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
}

type providerCreateRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	TimeoutS int    `json:"timeout_s,omitempty"`
	Default  bool   `json:"default,omitempty"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	views := []providerView{}
	for _, p := range h.providers.List() {
		views = append(views, providerView{ID: p.ID(), Name: p.Name()})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) addProvider(w http.ResponseWriter, r *http.Request) {
	var req providerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "name and endpoint are required")
		return
	}
	if req.ID == "" {
		req.ID = req.Name
	}

	cfg := provider.Config{
		ID:       req.ID,
		Name:     req.Name,
		Endpoint: req.Endpoint,
		APIKey:   req.APIKey,
		Timeout:  time.Duration(req.TimeoutS) * time.Second,
	}
	h.providers.Register(provider.NewHTTPProvider(cfg, h.logger))
	if req.Default {
		h.providers.SetDefault(req.ID)
	}

	if h.db != nil {
		row := &store.ProviderRow{
			ID:        req.ID,
			Name:      req.Name,
			Endpoint:  req.Endpoint,
			APIKey:    req.APIKey,
			Timeout:   cfg.Timeout,
			IsDefault: req.Default,
		}
		if err := h.db.SaveProvider(r.Context(), row); err != nil {
			h.logger.Warn("persist provider failed", zap.String("id", req.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, providerView{ID: req.ID, Name: req.Name, Endpoint: req.Endpoint})
}

func (h *Handler) removeProvider(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.providers.Get(id); !ok {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	h.providers.Unregister(id)
	if h.db != nil {
		if err := h.db.DeleteProvider(r.Context(), id); err != nil {
			h.logger.Warn("delete provider failed", zap.String("id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) worldStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wrld.StatusOf(h.clock))
}

func (h *Handler) startWorld(w http.ResponseWriter, r *http.Request) {
	h.clock.Start()
	writeJSON(w, http.StatusOK, h.wrld.StatusOf(h.clock))
}

func (h *Handler) stopWorld(w http.ResponseWriter, r *http.Request) {
	h.clock.Stop()
	writeJSON(w, http.StatusOK, h.wrld.StatusOf(h.clock))
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

func (h *Handler) setWorldSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Speed <= 0 {
		writeError(w, http.StatusBadRequest, "speed must be positive")
		return
	}
	h.clock.SetSpeed(req.Speed)
	writeJSON(w, http.StatusOK, h.wrld.StatusOf(h.clock))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
