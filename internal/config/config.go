// Package config defines service configuration structures and loading hooks.
package config

// Backend names accepted for store_backend.
const (
	BackendJSONFile = "jsonfile"
	BackendSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the durable store: jsonfile or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the store file path (JSON file or SQLite database).
	StorePath string `koanf:"store_path"`

	// MaxRevisions caps how often a voter may revise a vote.
	MaxRevisions int `koanf:"max_revisions"`

	// MaxLeaderboardLimit caps leaderboard query sizes.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// GroupID identifies the group events are opened for.
	GroupID int64 `koanf:"group_id"`

	// Players is the default roster snapshot for newly opened events.
	Players []int64 `koanf:"players"`

	// ModeratorIDs lists callers allowed to open and summarize events.
	ModeratorIDs []int64 `koanf:"moderator_ids"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		StoreBackend:        BackendJSONFile,
		StorePath:           "ratings.json",
		MaxRevisions:        3,
		MaxLeaderboardLimit: 10,
	}
}
