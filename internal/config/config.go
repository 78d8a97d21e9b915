package config

import "fmt"

// Config is the full daemon configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Source       SourceConfig       `koanf:"source"`
	Ranking      RankingConfig      `koanf:"ranking"`
	Validation   ValidationConfig   `koanf:"validation"`
	Aggregation  AggregationConfig  `koanf:"aggregation"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	ShutdownSeconds int    `koanf:"shutdown_seconds"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SourceConfig configures the chat-platform message source.
type SourceConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   Secret `koanf:"token"`
	Timeout int    `koanf:"timeout"`
}

// RankingConfig configures the optional LLM ranking backend.
type RankingConfig struct {
	Enabled bool   `koanf:"enabled"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

// ValidationConfig configures the entry validator.
type ValidationConfig struct {
	MinConfidence float64 `koanf:"min_confidence"`
	MaxRangeHours int     `koanf:"max_range_hours"`
}

// AggregationConfig configures the overlap aggregator.
type AggregationConfig struct {
	MaxWindows              int `koanf:"max_windows"`
	MinOverlapMinutes       int `koanf:"min_overlap_minutes"`
	MinLocationParticipants int `koanf:"min_location_participants"`
}

// OrchestratorConfig configures pipeline timing.
type OrchestratorConfig struct {
	DebounceSeconds int `koanf:"debounce_seconds"`
	PollSeconds     int `koanf:"poll_seconds"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8790
	}
	if cfg.Server.ShutdownSeconds == 0 {
		cfg.Server.ShutdownSeconds = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Validation.MinConfidence == 0 {
		cfg.Validation.MinConfidence = 0.5
	}
	if cfg.Validation.MaxRangeHours == 0 {
		cfg.Validation.MaxRangeHours = 24
	}

	if cfg.Aggregation.MaxWindows == 0 {
		cfg.Aggregation.MaxWindows = 3
	}
	if cfg.Aggregation.MinLocationParticipants == 0 {
		cfg.Aggregation.MinLocationParticipants = 2
	}

	if cfg.Orchestrator.DebounceSeconds == 0 {
		cfg.Orchestrator.DebounceSeconds = 3
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Ranking.Enabled && !c.Ranking.APIKey.IsSet() {
		return fmt.Errorf("ranking.api_key is required when ranking is enabled")
	}
	if c.Validation.MinConfidence < 0 || c.Validation.MinConfidence > 1 {
		return fmt.Errorf("validation.min_confidence must be in [0,1]: %f", c.Validation.MinConfidence)
	}
	if c.Aggregation.MaxWindows < 1 {
		return fmt.Errorf("aggregation.max_windows must be positive: %d", c.Aggregation.MaxWindows)
	}
	return nil
}
