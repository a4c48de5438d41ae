// Package config handles configuration loading and management for squad.
// It supports XDG config paths, workspace-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/squad/internal/cost"
	"github.com/ShayCichocki/squad/internal/policy"
)

// Config holds all configuration for squad.
type Config struct {
	Anthropic AnthropicConfig  `mapstructure:"anthropic"`
	Defaults  DefaultsConfig   `mapstructure:"defaults"`
	Rates     cost.RateTable   `mapstructure:"rates"`
	Policy    policy.RuleSpecs `mapstructure:"policy"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseBedrock    bool   `mapstructure:"use_bedrock"`
	BedrockRegion string `mapstructure:"bedrock_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for squad sessions.
type DefaultsConfig struct {
	MaxTurns    int           `mapstructure:"max_turns"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	MaxParallel int           `mapstructure:"max_parallel"`
	Workspace   string        `mapstructure:"workspace"`
}

// Load loads configuration from XDG paths, workspace overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Workspace config (.squad.yaml in current directory or parent)
// 3. User config (~/.config/squad/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	workspaceConfig := findWorkspaceConfig()
	if workspaceConfig != "" {
		workspaceViper := viper.New()
		workspaceViper.SetConfigFile(workspaceConfig)
		if err := workspaceViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(workspaceViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging workspace config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return SaveTo(cfg, filepath.Join(userConfigDir, "config.yaml"))
}

// SaveTo writes the configuration to an arbitrary YAML file.
func SaveTo(cfg *Config, configPath string) error {
	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.bedrock_region", cfg.Anthropic.BedrockRegion)
	v.Set("defaults.max_turns", cfg.Defaults.MaxTurns)
	v.Set("defaults.task_timeout", cfg.Defaults.TaskTimeout.String())
	v.Set("defaults.max_parallel", cfg.Defaults.MaxParallel)
	v.Set("rates.input_per_1k", cfg.Rates.InputPer1K)
	v.Set("rates.output_per_1k", cfg.Rates.OutputPer1K)
	v.Set("rates.cache_creation_per_1k", cfg.Rates.CacheCreationPer1K)
	v.Set("rates.cache_read_per_1k", cfg.Rates.CacheReadPer1K)
	v.Set("policy.allow", cfg.Policy.Allow)
	v.Set("policy.deny", cfg.Policy.Deny)
	v.Set("policy.ask", cfg.Policy.Ask)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetWorkspaceConfigPath returns the path to the workspace config file if it exists.
func GetWorkspaceConfigPath() string {
	return findWorkspaceConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.bedrock_region", "us-east-1")

	v.SetDefault("defaults.max_turns", 30)
	v.SetDefault("defaults.task_timeout", "10m")
	v.SetDefault("defaults.max_parallel", 4)
	v.SetDefault("defaults.workspace", "")

	rates := cost.DefaultRates
	v.SetDefault("rates.input_per_1k", rates.InputPer1K)
	v.SetDefault("rates.output_per_1k", rates.OutputPer1K)
	v.SetDefault("rates.cache_creation_per_1k", rates.CacheCreationPer1K)
	v.SetDefault("rates.cache_read_per_1k", rates.CacheReadPer1K)

	v.SetDefault("policy.allow", []string{})
	v.SetDefault("policy.deny", []string{})
	v.SetDefault("policy.ask", []string{})
}

// getUserConfigDir returns the XDG config directory for squad.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "squad")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "squad")
	}
	return filepath.Join(home, ".config", "squad")
}

// findWorkspaceConfig searches for .squad.yaml in the current directory and parents.
func findWorkspaceConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".squad.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			BedrockRegion: "us-east-1",
		},
		Defaults: DefaultsConfig{
			MaxTurns:    30,
			TaskTimeout: 10 * time.Minute,
			MaxParallel: 4,
		},
		Rates: cost.DefaultRates,
	}
}
