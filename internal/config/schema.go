package config

// Config is the top-level YAML structure. Env vars override file values
// after the file is read.
type Config struct {
	Server  ServerConf  `yaml:"server"`
	Engine  EngineConf  `yaml:"engine"`
	Game    GameConf    `yaml:"game"`
	History HistoryConf `yaml:"history"`
}

// ServerConf holds HTTP server settings.
type ServerConf struct {
	Addr              string `yaml:"addr" env:"MARKOVGAME_ADDR"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	EventBuffer       int `yaml:"event_buffer"`
	ArchiveWorkers    int `yaml:"archive_workers"`
	ArchiveQueueDepth int `yaml:"archive_queue_depth"`
}

// GameConf holds the defaults applied to newly created rooms. Hot reload
// swaps these; rooms already in play keep the parameters they started with.
type GameConf struct {
	PointsPerRound  int     `yaml:"points_per_round"` // K
	MaxRounds       int     `yaml:"max_rounds"`       // S
	DefaultPlayers  int     `yaml:"default_players"`
	DefaultNeutrals int     `yaml:"default_neutrals"`
	MaxPlayers      int     `yaml:"max_players"`
	MaxNeutrals     int     `yaml:"max_neutrals"`
	InitialWeight   float64 `yaml:"initial_weight"`
}

// HistoryConf configures the optional SQLite round archive.
type HistoryConf struct {
	SQLitePath string `yaml:"sqlite_path" env:"MARKOVGAME_HISTORY_DB"`
}
