//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/apply"
	"github.com/nidhogg/pixeltown/internal/decision"
	"github.com/nidhogg/pixeltown/internal/dialogue"
	"github.com/nidhogg/pixeltown/internal/dispatch"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/routine"
	"github.com/nidhogg/pixeltown/internal/social"
	pgstore "github.com/nidhogg/pixeltown/internal/store"
	"github.com/nidhogg/pixeltown/internal/world"
)

// Package-level shared state set by TestMain and used by all subtests.
var (
	testLogger   *zap.Logger
	testPGStore  *pgstore.Store
	testNeo4jURI string
	testRedisURL string
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	// Provider rows are encrypted at rest; the suite needs a key.
	os.Setenv("PIXELTOWN_ENCRYPT_KEY",
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")

	neo4jURI, neo4jCleanup, err := startNeo4j(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo4j: %v\n", err)
		os.Exit(1)
	}
	defer neo4jCleanup()
	testNeo4jURI = neo4jURI

	pgDSN, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pgCleanup()

	testPGStore, err = pgstore.New(ctx, pgstore.Config{DSN: pgDSN}, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pg store: %v\n", err)
		os.Exit(1)
	}
	defer testPGStore.Close()
	if err := testPGStore.Migrate(ctx, "../../migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer redisCleanup()
	testRedisURL = redisURL

	os.Exit(m.Run())
}

func TestAgentPersistenceRoundtrip(t *testing.T) {
	ctx := context.Background()

	roster := agent.NewRoster(testLogger)
	roster.SetPersister(pgstore.NewRosterPersister(testPGStore))

	a := &agent.Agent{
		Persona: agent.Persona{
			Name:   "Nora",
			Role:   "developer",
			Traits: []agent.Trait{agent.TraitAmbitious, agent.TraitExtroverted},
			Goal:   "ship the big release",
		},
		Location: "office desk",
	}
	roster.Register(a)

	// Persister writes in the background.
	deadline := time.Now().Add(5 * time.Second)
	var got *agent.Agent
	for time.Now().Before(deadline) {
		var err error
		got, err = testPGStore.GetAgent(ctx, a.Persona.ID)
		if err == nil && got != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if got == nil {
		t.Fatal("agent never reached the database")
	}
	if got.Persona.Name != "Nora" || got.Persona.Role != "developer" {
		t.Errorf("persona mangled: %+v", got.Persona)
	}
	if len(got.Persona.Traits) != 2 {
		t.Errorf("traits not persisted: %v", got.Persona.Traits)
	}
	if got.Needs.Energy != a.Needs.Energy {
		t.Errorf("needs mangled: %+v vs %+v", got.Needs, a.Needs)
	}

	// A fresh roster restores the same population.
	restored := agent.NewRoster(testLogger)
	list, err := testPGStore.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	for _, la := range list {
		restored.Register(la)
	}
	if _, ok := restored.Get(a.Persona.ID); !ok {
		t.Error("restored roster is missing the agent")
	}

	if err := testPGStore.DeleteAgent(ctx, a.Persona.ID); err != nil {
		t.Fatalf("delete agent: %v", err)
	}
}

func TestMemoryArchiveSQL(t *testing.T) {
	ctx := context.Background()

	owner := &agent.Agent{Persona: agent.Persona{Name: "Archivist"}}
	agent.NewRoster(testLogger).Register(owner)
	if err := testPGStore.SaveAgent(ctx, owner); err != nil {
		t.Fatalf("save owner: %v", err)
	}

	archive := pgstore.NewSQLArchive(testPGStore)
	manager := memory.NewManager(0, testLogger)
	e := manager.Append(owner.Persona.ID,
		"Finished the quarterly report with Dana, felt great", time.Now())
	if err := archive.SaveSummary(ctx, e); err != nil {
		t.Fatalf("save summary: %v", err)
	}

	loaded, err := archive.LoadSummaries(ctx, owner.Persona.ID)
	if err != nil {
		t.Fatalf("load summaries: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(loaded))
	}
	if loaded[0].Text != e.Text {
		t.Errorf("text mangled: %q", loaded[0].Text)
	}
	if loaded[0].Emotion != e.Emotion || loaded[0].ActionType != e.ActionType {
		t.Errorf("derived fields mangled: %+v", loaded[0])
	}
}

func TestGraphHistory(t *testing.T) {
	ctx := context.Background()

	history, err := social.NewGraphHistory(testNeo4jURI, "", "", testLogger)
	if err != nil {
		t.Fatalf("graph history: %v", err)
	}
	defer history.Close(ctx)

	for i := 0; i < 3; i++ {
		err := history.Record(ctx, social.Interaction{
			FromID:  "ada",
			ToID:    "bo",
			Summary: "coffee chat",
			Quality: 0.8,
			At:      time.Now(),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := history.PairStats(ctx, "ada", "bo")
	if err != nil {
		t.Fatalf("pair stats: %v", err)
	}
	if stats.Interactions != 3 {
		t.Errorf("interactions = %d, want 3", stats.Interactions)
	}
	if stats.AvgQuality < 0.7 || stats.AvgQuality > 0.9 {
		t.Errorf("avg quality = %v, want ~0.8", stats.AvgQuality)
	}

	// Pair order must not matter.
	reversed, err := history.PairStats(ctx, "bo", "ada")
	if err != nil {
		t.Fatalf("reversed pair stats: %v", err)
	}
	if reversed.Interactions != stats.Interactions {
		t.Errorf("pair stats depend on order: %+v vs %+v", stats, reversed)
	}

	before := stats.Strength
	if err := history.Decay(ctx, 0.1); err != nil {
		t.Fatalf("decay: %v", err)
	}
	after, _ := history.PairStats(ctx, "ada", "bo")
	if after.Strength >= before {
		t.Errorf("strength should decay: %v -> %v", before, after.Strength)
	}
}

func TestGraphArchive(t *testing.T) {
	ctx := context.Background()

	archive, err := memory.NewGraphArchive(testNeo4jURI, "", "", testLogger)
	if err != nil {
		t.Fatalf("graph archive: %v", err)
	}
	defer archive.Close(ctx)

	manager := memory.NewManager(0, testLogger)
	e := manager.Append("grapher", "Had a long talk with Mira about the project", time.Now())
	if err := archive.SaveSummary(ctx, e); err != nil {
		t.Fatalf("save summary: %v", err)
	}

	loaded, err := archive.LoadSummaries(ctx, "grapher")
	if err != nil {
		t.Fatalf("load summaries: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatal("expected at least one summary")
	}
	if loaded[0].Text != e.Text {
		t.Errorf("text mangled: %q", loaded[0].Text)
	}
}

func TestProviderConfigRoundtrip(t *testing.T) {
	ctx := context.Background()

	row := &pgstore.ProviderRow{
		ID:       "town-brain",
		Name:     "Town Brain",
		Endpoint: "http://localhost:9999",
		APIKey:   "super-secret",
		Timeout:  15 * time.Second,
	}
	if err := testPGStore.SaveProvider(ctx, row); err != nil {
		t.Fatalf("save provider: %v", err)
	}

	got, err := testPGStore.GetProvider(ctx, "town-brain")
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if got.APIKey != "super-secret" {
		t.Errorf("api key should decrypt back, got %q", got.APIKey)
	}
	if got.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", got.Timeout)
	}

	if err := testPGStore.SetDefaultProvider(ctx, "town-brain"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	got, _ = testPGStore.GetProvider(ctx, "town-brain")
	if !got.IsDefault {
		t.Error("provider should be default")
	}

	if err := testPGStore.DeleteProvider(ctx, "town-brain"); err != nil {
		t.Fatalf("delete provider: %v", err)
	}
}

// TestWorldLoopEndToEnd runs the full stack against real backends: Redis
// response cache, Neo4j interaction history and PostgreSQL persistence,
// with the local rule engine deciding.
func TestWorldLoopEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := testLogger

	history, err := social.NewGraphHistory(testNeo4jURI, "", "", logger)
	if err != nil {
		t.Fatalf("graph history: %v", err)
	}
	defer history.Close(ctx)

	opt, err := redis.ParseURL(testRedisURL)
	if err != nil {
		t.Fatalf("redis url: %v", err)
	}
	cache := dispatch.NewRedisCache(redis.NewClient(opt))

	roster := agent.NewRoster(logger)
	roster.SetPersister(pgstore.NewRosterPersister(testPGStore))
	memories := memory.NewManager(0, logger)
	analyzer := social.NewAnalyzer(history, logger)
	routines := routine.NewScheduler(nil, 1)

	assembler := decision.NewAssembler(roster, memories, analyzer, routines, logger)
	engine := decision.NewEngine(routines, 1, logger)
	decisions := decision.NewService(assembler, engine)

	applier := apply.NewApplier(roster, memories, history, logger)
	scheduler := dispatch.NewScheduler(decisions, roster, cache, logger)
	dialogues := dialogue.NewRouter(1, logger)
	consol := memory.NewConsolidator(memories, memory.HeuristicSummarizer{}, nil,
		pgstore.NewSQLArchive(testPGStore), logger)

	w := world.New(roster, applier, scheduler, dialogues, consol, history,
		world.DefaultHeartbeat, logger)

	exhausted := &agent.Agent{
		Persona:  agent.Persona{Name: "Tired Tim"},
		Location: "office desk",
	}
	roster.Register(exhausted)
	exhausted.Needs.Energy = 1

	now := time.Now()
	w.OnTick(now) // arms the heartbeat
	w.OnTick(now.Add(world.DefaultHeartbeat + time.Second))
	w.OnTick(now.Add(world.DefaultHeartbeat + 2*time.Second))

	if !exhausted.Busy {
		t.Error("critically tired agent should have started an action")
	}
	if exhausted.CurrentAction == nil {
		t.Fatal("expected a current action")
	}
	if len(memories.Recent(exhausted.Persona.ID, 5)) == 0 {
		t.Error("starting an action should leave a memory")
	}
}
