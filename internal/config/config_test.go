package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "test-realm"

[network]
tick_rate = "100ms"

[pickup]
one_stack_quota = 16
tap_threshold_ticks = 3
hold_threshold_ticks = 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "test-realm" {
		t.Fatalf("expected name override, got %q", cfg.Server.Name)
	}
	if cfg.Network.TickRate != 100*time.Millisecond {
		t.Fatalf("expected 100ms tick, got %s", cfg.Network.TickRate)
	}
	if cfg.Pickup.OneStackQuota != 16 || cfg.Pickup.HoldThresholdTicks != 10 {
		t.Fatalf("unexpected pickup config: %+v", cfg.Pickup)
	}
	// untouched keys keep their defaults
	if cfg.Pickup.MaxDistanceSq != 64 {
		t.Fatalf("expected default max_distance_sq 64, got %g", cfg.Pickup.MaxDistanceSq)
	}
	if cfg.Client.VisibleRows != 4.5 {
		t.Fatalf("expected default visible rows 4.5, got %g", cfg.Client.VisibleRows)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatalf("expected start time to be stamped")
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
[pickup]
tap_threshold_ticks = 12
hold_threshold_ticks = 4
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for tap >= hold")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateVisibleRows(t *testing.T) {
	cfg := Defaults()
	cfg.Client.VisibleRows = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for visible_rows < 1")
	}
}
