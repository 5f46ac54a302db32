// Package config loads the JSON configuration file with ${VAR} and
// ${VAR:default} environment substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	World     WorldConfig      `json:"world"`
	Dispatch  DispatchConfig   `json:"dispatch"`
	Providers []ProviderConfig `json:"providers"`
	Database  DatabaseConfig   `json:"database"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// WorldConfig tunes the simulation clock and heartbeat. TickMS is the
// real-time tick interval, Speed the world-time multiplier, HeartbeatS
// the decision cadence in world time. A zero RandomSeed means
// time-seeded. AgentsFile optionally seeds the roster on boot.
type WorldConfig struct {
	TickMS     int     `json:"tick_ms"`
	Speed      float64 `json:"speed"`
	HeartbeatS int     `json:"heartbeat_s"`
	RandomSeed int64   `json:"random_seed"`
	AutoStart  bool    `json:"auto_start"`
	AgentsFile string  `json:"agents_file"`
}

// DispatchConfig tunes the request scheduler.
type DispatchConfig struct {
	IntervalMS int `json:"interval_ms"`
	CacheTTLS  int `json:"cache_ttl_s"`
}

// ProviderConfig describes one external decision provider.
type ProviderConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key"`
	TimeoutS int    `json:"timeout_s,omitempty"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Neo4j    Neo4jConfig    `json:"neo4j"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN           string `json:"dsn"`
	MigrationsDir string `json:"migrations_dir"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// TickInterval returns the clock interval with its default.
func (w WorldConfig) TickInterval() time.Duration {
	if w.TickMS <= 0 {
		return time.Second
	}
	return time.Duration(w.TickMS) * time.Millisecond
}

// Heartbeat returns the decision cadence with its default.
func (w WorldConfig) Heartbeat() time.Duration {
	if w.HeartbeatS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.HeartbeatS) * time.Second
}

// Interval returns the scheduler interval with its default.
func (d DispatchConfig) Interval() time.Duration {
	if d.IntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(d.IntervalMS) * time.Millisecond
}

// CacheTTL returns the response cache TTL with its default.
func (d DispatchConfig) CacheTTL() time.Duration {
	if d.CacheTTLS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.CacheTTLS) * time.Second
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable
// references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
