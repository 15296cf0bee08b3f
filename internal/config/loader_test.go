package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shizuo-kaji/markov-game/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoaderAppliesDefaults(t *testing.T) {
	l, err := config.NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Game.PointsPerRound != 10 || cfg.Game.MaxRounds != 10 {
		t.Errorf("default game config = %+v, want K=10 S=10", cfg.Game)
	}
	if cfg.Game.DefaultPlayers != 2 || cfg.Game.DefaultNeutrals != 2 {
		t.Errorf("default seat counts = %d players, %d neutrals, want 2 and 2",
			cfg.Game.DefaultPlayers, cfg.Game.DefaultNeutrals)
	}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestLoaderReadsFileAndKeepsDefaultsForUnset(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9999"
game:
  points_per_round: 4
  max_rounds: 6
`)
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Game.PointsPerRound != 4 || cfg.Game.MaxRounds != 6 {
		t.Errorf("game config = %+v, want K=4 S=6", cfg.Game)
	}
	// Unset sections still get defaults.
	if cfg.Engine.ArchiveQueueDepth != 1024 {
		t.Errorf("archive queue depth = %d, want default 1024", cfg.Engine.ArchiveQueueDepth)
	}
}

func TestLoaderReload(t *testing.T) {
	path := writeConfig(t, "game:\n  points_per_round: 4\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}

	var observed int
	l.OnChange(func(cfg *config.Config) { observed = cfg.Game.PointsPerRound })

	if err := os.WriteFile(path, []byte("game:\n  points_per_round: 7\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	cfg, err := l.Reload()
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if cfg.Game.PointsPerRound != 7 || observed != 7 {
		t.Errorf("reloaded K = %d (callback saw %d), want 7", cfg.Game.PointsPerRound, observed)
	}
}

func TestValidateRejectsNonsense(t *testing.T) {
	path := writeConfig(t, "game:\n  points_per_round: -1\n  initial_weight: -2\n")
	l, err := config.NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	if err := config.Validate(l.Config()); err == nil {
		t.Fatal("negative K and weight passed validation")
	}
}
