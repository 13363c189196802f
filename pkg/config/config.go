// Package config loads application settings from the config file,
// environment variables, and flags via viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	WorkspaceRoot  string        `mapstructure:"workspace_root"`
	CatalogRepoURL string        `mapstructure:"catalog_repo_url"`
	CatalogTTL     time.Duration `mapstructure:"catalog_ttl"`
	ClaudeDir      string        `mapstructure:"claude_dir"`
	GitPath        string        `mapstructure:"git_path"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
}

// DefaultWorkspaceRoot is where skills live unless configured otherwise.
func DefaultWorkspaceRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentdeck"
	}
	return filepath.Join(home, ".agentdeck")
}

func defaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// Init wires viper to the AGENTDECK_* environment and the config file under
// ~/.agentdeck. Call once at process start.
func Init() {
	viper.SetEnvPrefix("AGENTDECK")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.agentdeck")
	viper.AddConfigPath(".")

	viper.SetDefault("workspace_root", DefaultWorkspaceRoot())
	viper.SetDefault("catalog_repo_url", "https://github.com/agentdeck/skills")
	viper.SetDefault("catalog_ttl", time.Hour)
	viper.SetDefault("claude_dir", defaultClaudeDir())
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")

	// Missing config file is fine, defaults and env apply.
	_ = viper.ReadInConfig()
}

// Load resolves the current configuration.
func Load() (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create configuration decoder")
	}
	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	return &cfg, nil
}
