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

const (
	envPrefix            = "ROOMSYNC"
	envConfigDefaultPath = "ROOMSYNC_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
	appDirName           = "roomsync"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range defaults(cfg) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefaultConfig(configPath, cfg); err != nil {
			// env vars and flags still apply without a file
			logger.Warn().Err(err).Str("path", configPath).Msg("failed to write default config")
		} else {
			logger.Info().Str("path", configPath).Msg("created default config")
			if err := v.ReadInConfig(); err != nil {
				return cfg, configPath, fmt.Errorf("read default config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// defaults registers every key so AutomaticEnv can see it.
func defaults(cfg Config) map[string]any {
	return map[string]any{
		"server_url":           cfg.ServerURL,
		"username":             cfg.Username,
		"room":                 cfg.Room,
		"token":                cfg.Token,
		"log_level":            cfg.LogLevel,
		"control_addr":         cfg.ControlAddr,
		"transcript_path":      cfg.TranscriptPath,
		"edit_window":          cfg.EditWindow,
		"typing_idle":          cfg.TypingIdle,
		"typing_throttle":      cfg.TypingThrottle,
		"banner_duration":      cfg.BannerDuration,
		"notice_duration":      cfg.NoticeDuration,
		"blink_fast":           cfg.BlinkFast,
		"blink_slow":           cfg.BlinkSlow,
		"blink_fast_threshold": cfg.BlinkFastThreshold,
		"request_timeout":      cfg.RequestTimeout,
		"emit_timeout":         cfg.EmitTimeout,
		"read_header_timeout":  cfg.ReadHeaderTimeout,
		"shutdown_timeout":     cfg.ShutdownTimeout,
	}
}

// resolveConfigPath picks, in order: the explicit path, the directory named by
// ROOMSYNC_CONFIG_DEFAULT_PATH, the user config dir, the working directory.
func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName, defaultConfigName)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
