// Package config provides configuration loading for syncd.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// Load reads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SYNC_SERVER_PORT, SYNC_SOURCE_BASE_URL, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables carry the SYNC_ prefix; the first underscore
// after the prefix separates section from field:
//
//	SYNC_SERVER_PORT        -> server.port
//	SYNC_SOURCE_BASE_URL    -> source.base_url
//	SYNC_RANKING_API_KEY    -> ranking.api_key
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		info, err := os.Stat(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("SYNC_", ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, "SYNC_"))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
