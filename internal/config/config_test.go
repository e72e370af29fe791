package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DBPath != "activityhub.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.BcryptCost != 12 || cfg.PageSize != 9 {
		t.Errorf("BcryptCost=%d PageSize=%d, want 12 and 9", cfg.BcryptCost, cfg.PageSize)
	}
	if !cfg.Dev {
		t.Error("Dev should default to true")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ACTIVITYHUB_ADDR", ":9191")
	t.Setenv("ACTIVITYHUB_PAGE_SIZE", "24")
	t.Setenv("ACTIVITYHUB_DEV", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9191" {
		t.Errorf("Addr = %q, want :9191", cfg.Addr)
	}
	if cfg.PageSize != 24 {
		t.Errorf("PageSize = %d, want 24", cfg.PageSize)
	}
	if cfg.Dev {
		t.Error("Dev should be overridden to false")
	}
}
