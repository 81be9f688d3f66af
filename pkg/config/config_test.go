package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panelkit/panelkit/pkg/errors"
	"github.com/panelkit/panelkit/pkg/fetch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panelkit.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Fetch.Attempts != 3 {
		t.Errorf("default attempts should be 3, got %d", cfg.Fetch.Attempts)
	}
	if cfg.Health.EmptyThreshold != 5 {
		t.Errorf("default empty threshold should be 5, got %d", cfg.Health.EmptyThreshold)
	}
	if cfg.Health.Interval.Duration != 5*time.Second {
		t.Errorf("default interval should be 5s, got %v", cfg.Health.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9090"

[cache]
backend = "file"
dir = "/tmp/panelkit-cache"

[fetch]
attempts = 5
base_delay = "250ms"

[health]
interval = "10s"
empty_threshold = 8

[[resources]]
key = "fraud"
endpoint = "https://api.internal/fraud"
priority = "critical"
default = '{"transactions":[],"summary":{"total":0,"fraudulent":0,"legitimate":0}}'

[[charts]]
candidates = ["chart-fraud", "chart-fraud-legacy"]
kind = "line"
resource = "fraud"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr not applied: %s", cfg.Server.Addr)
	}
	if cfg.Fetch.Attempts != 5 || cfg.Fetch.BaseDelay.Duration != 250*time.Millisecond {
		t.Errorf("fetch settings not applied: %+v", cfg.Fetch)
	}
	if cfg.Health.Interval.Duration != 10*time.Second || cfg.Health.EmptyThreshold != 8 {
		t.Errorf("health settings not applied: %+v", cfg.Health)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Health.MaxRecovery != 3 {
		t.Errorf("unset fields should keep defaults, got %d", cfg.Health.MaxRecovery)
	}

	tier, err := cfg.Resources[0].Tier()
	if err != nil || tier != fetch.Critical {
		t.Errorf("priority should map to critical: %v %v", tier, err)
	}
}

func TestValidateRejectsBadBackends(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("unknown cache backend should fail: %v", err)
	}

	cfg = Default()
	cfg.Cache.Backend = "file"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("file backend without dir should fail: %v", err)
	}

	cfg = Default()
	cfg.History.Backend = "mongo"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("mongo history without uri should fail: %v", err)
	}
}

func TestValidateRejectsDuplicateResources(t *testing.T) {
	cfg := Default()
	cfg.Resources = []Resource{
		{Key: "fraud", Endpoint: "https://a"},
		{Key: "fraud", Endpoint: "https://b"},
	}
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("duplicate resource keys should fail: %v", err)
	}
}

func TestValidateRejectsUnknownChartResource(t *testing.T) {
	cfg := Default()
	cfg.Charts = []Chart{{Candidates: []string{"chart-a"}, Resource: "ghost"}}
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("chart with unknown resource should fail: %v", err)
	}
}

func TestValidateRejectsUnknownPriority(t *testing.T) {
	cfg := Default()
	cfg.Resources = []Resource{{Key: "fraud", Endpoint: "https://a", Priority: "urgent"}}
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("unknown priority should fail: %v", err)
	}
}
