package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify squad configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/squad/config.yaml
Workspace-specific overrides can be placed in .squad.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = config.MaskAPIKey(cfg.Anthropic.APIKey)
	}

	fmt.Printf("anthropic.api_key: %s (source: %s)\n", apiKeyDisplay, config.GetAPIKeySource(cfg))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.bedrock_region: %s\n", cfg.Anthropic.BedrockRegion)
	fmt.Printf("defaults.max_turns: %d\n", cfg.Defaults.MaxTurns)
	fmt.Printf("defaults.task_timeout: %s\n", cfg.Defaults.TaskTimeout)
	fmt.Printf("defaults.max_parallel: %d\n", cfg.Defaults.MaxParallel)
	fmt.Printf("rates.input_per_1k: %g\n", cfg.Rates.InputPer1K)
	fmt.Printf("rates.output_per_1k: %g\n", cfg.Rates.OutputPer1K)
	fmt.Printf("policy.allow: %s\n", strings.Join(cfg.Policy.Allow, ", "))
	fmt.Printf("policy.deny: %s\n", strings.Join(cfg.Policy.Deny, ", "))
	fmt.Printf("policy.ask: %s\n", strings.Join(cfg.Policy.Ask, ", "))
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.bedrock_region":
		return cfg.Anthropic.BedrockRegion, nil
	case "defaults.max_turns":
		return strconv.Itoa(cfg.Defaults.MaxTurns), nil
	case "defaults.task_timeout":
		return cfg.Defaults.TaskTimeout.String(), nil
	case "defaults.max_parallel":
		return strconv.Itoa(cfg.Defaults.MaxParallel), nil
	case "rates.input_per_1k":
		return strconv.FormatFloat(cfg.Rates.InputPer1K, 'g', -1, 64), nil
	case "rates.output_per_1k":
		return strconv.FormatFloat(cfg.Rates.OutputPer1K, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.bedrock_region":
		cfg.Anthropic.BedrockRegion = value
	case "defaults.max_turns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_turns: %w", err)
		}
		cfg.Defaults.MaxTurns = n
	case "defaults.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Defaults.TaskTimeout = d
	case "defaults.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_parallel: %w", err)
		}
		cfg.Defaults.MaxParallel = n
	case "rates.input_per_1k":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for input_per_1k: %w", err)
		}
		cfg.Rates.InputPer1K = f
	case "rates.output_per_1k":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for output_per_1k: %w", err)
		}
		cfg.Rates.OutputPer1K = f
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
