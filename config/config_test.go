package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PRESENCE_CONCURRENCY", "")
	t.Setenv("PRESENCE_TIMEOUT_SEC", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Presence.Concurrency != 1 {
		t.Errorf("default presence concurrency = %d, want 1", cfg.Presence.Concurrency)
	}
	if cfg.Presence.TimeoutSec != 10 {
		t.Errorf("default presence timeout = %d, want 10", cfg.Presence.TimeoutSec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("PRESENCE_BASE_URL", "https://conf.example.com/api/")
	t.Setenv("PRESENCE_CONCURRENCY", "4")
	t.Setenv("STATS_UTC_OFFSET_MINUTES", "-300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Presence.BaseURL != "https://conf.example.com/api" {
		t.Errorf("base url trailing slash kept: %q", cfg.Presence.BaseURL)
	}
	if cfg.Presence.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Presence.Concurrency)
	}
	if cfg.Stats.UTCOffsetMinutes != -300 {
		t.Errorf("utc offset = %d, want -300", cfg.Stats.UTCOffsetMinutes)
	}
}

func TestConcurrencyClampedToOne(t *testing.T) {
	t.Setenv("PRESENCE_CONCURRENCY", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Presence.Concurrency != 1 {
		t.Errorf("concurrency = %d, want clamp to 1", cfg.Presence.Concurrency)
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{URL: "postgres://u:p@h:5432/db?sslmode=disable"}
	if d.DSN() != d.URL {
		t.Errorf("DSN must use URL as-is, got %q", d.DSN())
	}
	d = DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "db", SSLMode: "disable"}
	want := "postgres://u:p@h:5432/db?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
