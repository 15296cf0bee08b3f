package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration for values the engine cannot
// run with. Defaults have already been applied, so zero values only appear
// when someone explicitly sets a nonsensical entry.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.ShutdownTimeoutMs < 0 {
		errs = append(errs, "server.shutdown_timeout_ms must not be negative")
	}
	if cfg.Engine.EventBuffer < 1 {
		errs = append(errs, "engine.event_buffer must be at least 1")
	}
	if cfg.Engine.ArchiveWorkers < 1 {
		errs = append(errs, "engine.archive_workers must be at least 1")
	}
	if cfg.Engine.ArchiveQueueDepth < 1 {
		errs = append(errs, "engine.archive_queue_depth must be at least 1")
	}
	if cfg.Game.PointsPerRound < 1 {
		errs = append(errs, "game.points_per_round must be at least 1")
	}
	if cfg.Game.MaxRounds < 1 {
		errs = append(errs, "game.max_rounds must be at least 1")
	}
	if cfg.Game.DefaultPlayers < 1 {
		errs = append(errs, "game.default_players must be at least 1")
	}
	if cfg.Game.DefaultNeutrals < 0 {
		errs = append(errs, "game.default_neutrals must not be negative")
	}
	if cfg.Game.MaxPlayers < 1 {
		errs = append(errs, "game.max_players must be at least 1")
	}
	if cfg.Game.DefaultPlayers > cfg.Game.MaxPlayers {
		errs = append(errs, "game.default_players must not exceed game.max_players")
	}
	if cfg.Game.MaxNeutrals < 0 {
		errs = append(errs, "game.max_neutrals must not be negative")
	}
	if cfg.Game.InitialWeight < 0 {
		errs = append(errs, "game.initial_weight must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
