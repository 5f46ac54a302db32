package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/pixeltown/internal/agent"
	"github.com/nidhogg/pixeltown/internal/api"
	"github.com/nidhogg/pixeltown/internal/apply"
	"github.com/nidhogg/pixeltown/internal/config"
	"github.com/nidhogg/pixeltown/internal/decision"
	"github.com/nidhogg/pixeltown/internal/dialogue"
	"github.com/nidhogg/pixeltown/internal/dispatch"
	"github.com/nidhogg/pixeltown/internal/memory"
	"github.com/nidhogg/pixeltown/internal/provider"
	"github.com/nidhogg/pixeltown/internal/routine"
	"github.com/nidhogg/pixeltown/internal/social"
	pgstore "github.com/nidhogg/pixeltown/internal/store"
	"github.com/nidhogg/pixeltown/internal/world"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/pixeltown.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	logger.Info("Starting Pixeltown...", zap.String("config", cfgPath))

	// Initialize PostgreSQL store
	var pgStore *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := pgstore.New(context.Background(),
			pgstore.Config{DSN: cfg.Database.Postgres.DSN}, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			dir := cfg.Database.Postgres.MigrationsDir
			if dir == "" {
				dir = "migrations"
			}
			if mErr := ps.Migrate(context.Background(), dir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
		}
	}

	// Initialize the roster, restoring persisted agents
	roster := agent.NewRoster(logger)
	if pgStore != nil {
		roster.SetPersister(pgstore.NewRosterPersister(pgStore))
		agents, loadErr := pgStore.ListAgents(context.Background())
		if loadErr != nil {
			logger.Warn("failed to load agents from DB", zap.Error(loadErr))
		} else {
			for _, a := range agents {
				roster.Register(a)
			}
			logger.Info("Loaded agents from DB", zap.Int("count", len(agents)))
		}
	}
	if roster.Count() == 0 && cfg.World.AgentsFile != "" {
		if n, seedErr := seedAgents(roster, cfg.World.AgentsFile); seedErr != nil {
			logger.Warn("failed to seed agents", zap.String("file", cfg.World.AgentsFile), zap.Error(seedErr))
		} else {
			logger.Info("Seeded agents from file", zap.Int("count", n))
		}
	}

	// Interaction history: Neo4j if configured, in-memory otherwise
	var history social.HistoryStore
	var graphHistory *social.GraphHistory
	if cfg.Database.Neo4j.URI != "" {
		gh, ghErr := social.NewGraphHistory(cfg.Database.Neo4j.URI,
			cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if ghErr != nil {
			logger.Warn("Neo4j unavailable, using in-memory history", zap.Error(ghErr))
		} else {
			graphHistory = gh
			history = gh
		}
	}
	if history == nil {
		history = social.NewMemoryHistory()
	}

	// Long-term memory archive mirrors the history choice
	var archive memory.Archive
	var graphArchive *memory.GraphArchive
	if graphHistory != nil {
		ga, gaErr := memory.NewGraphArchive(cfg.Database.Neo4j.URI,
			cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gaErr != nil {
			logger.Warn("Neo4j archive unavailable", zap.Error(gaErr))
		} else {
			graphArchive = ga
			archive = ga
		}
	}
	if archive == nil && pgStore != nil {
		archive = pgstore.NewSQLArchive(pgStore)
	}

	memories := memory.NewManager(0, logger)
	analyzer := social.NewAnalyzer(history, logger)
	routines := routine.NewScheduler(nil, cfg.World.RandomSeed)

	// Local rule engine
	assembler := decision.NewAssembler(roster, memories, analyzer, routines, logger)
	engine := decision.NewEngine(routines, cfg.World.RandomSeed, logger)
	decisions := decision.NewService(assembler, engine)

	sentiment := func(agentID, personName string) float64 {
		for _, other := range roster.List() {
			if other.Persona.Name != personName {
				continue
			}
			stats, _ := history.PairStats(context.Background(), agentID, other.Persona.ID)
			return stats.AvgQuality
		}
		return 0
	}
	consol := memory.NewConsolidator(memories, memory.HeuristicSummarizer{}, sentiment, archive, logger)

	// External providers, from config and from the database
	provRouter := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provRouter.Register(provider.NewHTTPProvider(provider.Config{
			ID:       pc.ID,
			Name:     pc.Name,
			Endpoint: pc.Endpoint,
			APIKey:   pc.APIKey,
			Timeout:  time.Duration(pc.TimeoutS) * time.Second,
		}, logger))
	}
	if pgStore != nil {
		rows, provErr := pgStore.ListProviders(context.Background())
		if provErr != nil {
			logger.Warn("failed to load providers from DB", zap.Error(provErr))
		}
		for _, row := range rows {
			provRouter.Register(provider.NewHTTPProvider(provider.Config{
				ID:       row.ID,
				Name:     row.Name,
				Endpoint: row.Endpoint,
				APIKey:   row.APIKey,
				Timeout:  row.Timeout,
			}, logger))
			if row.IsDefault {
				provRouter.SetDefault(row.ID)
			}
		}
	}
	external := provider.NewDecider(provRouter, roster)

	// Response cache: Redis if configured, in-process otherwise
	var cache dispatch.Cache
	if cfg.Database.Redis.URL != "" {
		opt, redisErr := redis.ParseURL(cfg.Database.Redis.URL)
		if redisErr != nil {
			logger.Warn("bad Redis URL, using in-memory cache", zap.Error(redisErr))
		} else {
			cache = dispatch.NewRedisCache(redis.NewClient(opt))
			logger.Info("Redis cache enabled")
		}
	}
	if cache == nil {
		cache = dispatch.NewMemoryCache()
	}

	scheduler := dispatch.NewScheduler(decisions, roster, cache, logger,
		dispatch.WithExternal(external),
		dispatch.WithInterval(cfg.Dispatch.Interval()),
		dispatch.WithCacheTTL(cfg.Dispatch.CacheTTL()),
	)

	dialogues := dialogue.NewRouter(cfg.World.RandomSeed, logger)
	applier := apply.NewApplier(roster, memories, history, logger)

	// World simulation
	wrld := world.New(roster, applier, scheduler, dialogues, consol, history,
		cfg.World.Heartbeat(), logger)
	speed := cfg.World.Speed
	if speed <= 0 {
		speed = 1
	}
	clock := world.NewClock(cfg.World.TickInterval(), speed, logger)
	clock.AddListener(wrld)
	if cfg.World.AutoStart {
		clock.Start()
		logger.Info("World simulation started",
			zap.Duration("tick", cfg.World.TickInterval()),
			zap.Float64("speed", speed))
	}

	// Build HTTP handler
	handler := api.NewHandler(roster, decisions, scheduler, wrld, clock,
		provRouter, memories, pgStore, logger)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Pixeltown listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Pixeltown...")
	clock.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	if graphHistory != nil {
		graphHistory.Close(ctx)
	}
	if graphArchive != nil {
		graphArchive.Close(ctx)
	}
	if pgStore != nil {
		pgStore.Close()
	}
}

// buildLogger creates the development logger at the configured level.
func buildLogger(level string) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if level != "" {
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			zcfg.Level = lvl
		}
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// seedAgents registers agents from a JSON file on first boot.
func seedAgents(roster *agent.Roster, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var seeds []agent.Agent
	if err := json.Unmarshal(data, &seeds); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range seeds {
		roster.Register(&seeds[i])
	}
	return len(seeds), nil
}
