package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	body := `
[server]
name = "TestRealm"

[world]
tick_rate = "100ms"
logout_delay = "5s"
max_sessions = 500

[network]
require_build = 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Name != "TestRealm" {
		t.Fatalf("Name = %q", cfg.Server.Name)
	}
	if cfg.World.TickRate != 100*time.Millisecond {
		t.Fatalf("TickRate = %v, want 100ms", cfg.World.TickRate)
	}
	if cfg.World.LogoutDelay != 5*time.Second {
		t.Fatalf("LogoutDelay = %v, want 5s", cfg.World.LogoutDelay)
	}
	if cfg.World.MaxSessions != 500 {
		t.Fatalf("MaxSessions = %d", cfg.World.MaxSessions)
	}
	if cfg.Network.RequireBuild != 0 {
		t.Fatalf("RequireBuild = %d, want 0 (accept any)", cfg.Network.RequireBuild)
	}

	// Sections the file does not mention keep their defaults.
	if cfg.Character.MaxPerAccount != 10 {
		t.Fatalf("MaxPerAccount = %d, want default 10", cfg.Character.MaxPerAccount)
	}
	if cfg.Database.QueryWorkers != 4 {
		t.Fatalf("QueryWorkers = %d, want default 4", cfg.Database.QueryWorkers)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatal("StartTime not stamped at load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing config accepted")
	}
}
