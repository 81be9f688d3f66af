// Package config loads the dashboard configuration from TOML: server
// address, cache backend, resource endpoints with their load tiers and
// default payloads, chart wiring, fallback assets and health-monitor
// policies.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/fetch"
)

// Duration wraps time.Duration for TOML text values like "5s" or "150ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the full dashboard configuration.
type Config struct {
	Server    Server     `toml:"server"`
	Cache     CacheCfg   `toml:"cache"`
	Fetch     FetchCfg   `toml:"fetch"`
	Health    HealthCfg  `toml:"health"`
	Fallback  Fallback   `toml:"fallback"`
	History   History    `toml:"history"`
	Resources []Resource `toml:"resources"`
	Charts    []Chart    `toml:"charts"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// CacheCfg selects and configures the payload cache backend.
type CacheCfg struct {
	// Backend is one of "memory", "file", "redis" or "null".
	Backend string `toml:"backend"`

	// Dir is the cache directory for the file backend.
	Dir string `toml:"dir"`

	// Redis connection settings, used by the redis backend.
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// FetchCfg tunes the data-acquisition service.
type FetchCfg struct {
	Attempts  int      `toml:"attempts"`
	BaseDelay Duration `toml:"base_delay"`
	TTL       Duration `toml:"ttl"`
}

// HealthCfg tunes the health monitor.
type HealthCfg struct {
	Interval          Duration `toml:"interval"`
	EmptyThreshold    int      `toml:"empty_threshold"`
	MaxRecovery       int      `toml:"max_recovery"`
	RecoveryBaseDelay Duration `toml:"recovery_base_delay"`
	DebounceDelay     Duration `toml:"debounce_delay"`
}

// Fallback configures degraded mode.
type Fallback struct {
	AssetRoot         string            `toml:"asset_root"`
	Assets            map[string]string `toml:"assets"`
	MaxReapplications int               `toml:"max_reapplications"`
}

// History selects the monitor-history sink.
type History struct {
	// Backend is one of "none", "memory" or "mongo".
	Backend string `toml:"backend"`

	// Limit bounds the memory sink.
	Limit int `toml:"limit"`

	// Mongo connection settings, used by the mongo backend.
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Resource declares one data endpoint.
type Resource struct {
	Key      string `toml:"key"`
	Endpoint string `toml:"endpoint"`
	Query    string `toml:"query"`

	// Priority is one of "critical", "high", "normal" or "low".
	Priority string `toml:"priority"`

	// Default is the JSON payload substituted when retries are exhausted.
	Default string `toml:"default"`
}

// Chart wires a container to a resource and a chart layout.
type Chart struct {
	// Candidates is the ordered container-id list; the first existing one
	// is drawn into. Legacy ids go last.
	Candidates []string `toml:"candidates"`
	Kind       string   `toml:"kind"`
	Resource   string   `toml:"resource"`
	Width      int      `toml:"width"`
	Height     int      `toml:"height"`
	Title      string   `toml:"title"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		Cache:  CacheCfg{Backend: "memory"},
		Fetch: FetchCfg{
			Attempts:  3,
			BaseDelay: Duration{time.Second},
			TTL:       Duration{5 * time.Minute},
		},
		Health: HealthCfg{
			Interval:          Duration{5 * time.Second},
			EmptyThreshold:    5,
			MaxRecovery:       3,
			RecoveryBaseDelay: Duration{time.Second},
			DebounceDelay:     Duration{time.Second},
		},
		History: History{Backend: "memory", Limit: 256},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeConfiguration, err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "null":
	case "file":
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeConfiguration, "file cache requires cache.dir")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeConfiguration, "redis cache requires cache.redis_addr")
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown cache backend %q", c.Cache.Backend)
	}

	switch c.History.Backend {
	case "", "none", "memory":
	case "mongo":
		if c.History.MongoURI == "" {
			return errors.New(errors.ErrCodeConfiguration, "mongo history requires history.mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown history backend %q", c.History.Backend)
	}

	keys := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		if r.Key == "" || r.Endpoint == "" {
			return errors.New(errors.ErrCodeConfiguration, "resources need key and endpoint")
		}
		if keys[r.Key] {
			return errors.New(errors.ErrCodeConfiguration, "duplicate resource key %q", r.Key)
		}
		keys[r.Key] = true
		if _, err := r.Tier(); err != nil {
			return err
		}
	}

	for _, chart := range c.Charts {
		if len(chart.Candidates) == 0 {
			return errors.New(errors.ErrCodeConfiguration, "charts need at least one candidate container")
		}
		if chart.Resource != "" && !keys[chart.Resource] {
			return errors.New(errors.ErrCodeConfiguration,
				"chart %v references unknown resource %q", chart.Candidates, chart.Resource)
		}
	}
	return nil
}

// Tier maps the declared priority string to a fetch tier.
func (r Resource) Tier() (fetch.Priority, error) {
	switch r.Priority {
	case "critical":
		return fetch.Critical, nil
	case "high":
		return fetch.High, nil
	case "", "normal":
		return fetch.Normal, nil
	case "low":
		return fetch.Low, nil
	default:
		return 0, errors.New(errors.ErrCodeConfiguration,
			"resource %q has unknown priority %q", r.Key, r.Priority)
	}
}
