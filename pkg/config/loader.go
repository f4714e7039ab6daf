package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MUD_PORT.
const EnvPrefix = "MUD"

// Load builds configuration from defaults, the YAML file at path and MUD_*
// environment variables, in increasing precedence. An empty path skips the
// file. A path that does not exist yet is created with the defaults.
func Load(logger zerolog.Logger, path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("mud_name", cfg.MudName)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("tick_interval", cfg.TickInterval)
	v.SetDefault("probe_interval", cfg.ProbeInterval)
	v.SetDefault("read_chunk", cfg.ReadChunk)
	v.SetDefault("name_prompt", cfg.NamePrompt)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("metrics_addr", cfg.MetricsAddr)
	v.SetDefault("session_db", cfg.SessionDB)
	v.SetDefault("greeting_file", cfg.GreetingFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
			if werr := writeDefault(path, cfg); werr != nil {
				logger.Warn().Err(werr).Str("path", path).Msg("failed to write default config")
			} else {
				logger.Info().Str("path", path).Msg("created default config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(map[string]any{
		"mud_name":       cfg.MudName,
		"host":           cfg.Host,
		"port":           cfg.Port,
		"tick_interval":  cfg.TickInterval.String(),
		"probe_interval": cfg.ProbeInterval.String(),
		"read_chunk":     cfg.ReadChunk,
		"name_prompt":    cfg.NamePrompt,
		"log_level":      cfg.LogLevel,
		"metrics_addr":   cfg.MetricsAddr,
		"session_db":     cfg.SessionDB,
		"greeting_file":  cfg.GreetingFile,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
