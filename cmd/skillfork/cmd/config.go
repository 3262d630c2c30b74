package cmd

import (
	"errors"
	"fmt"

	"github.com/barysiuk/skillfork/internal/core"
	"github.com/spf13/viper"
)

// initConfig wires environment variables and the optional config file into viper.
func initConfig() error {
	viper.SetEnvPrefix("SKILLFORK")
	viper.AutomaticEnv()
	_ = viper.BindEnv("github_token", "SKILLFORK_GITHUB_TOKEN", "GITHUB_TOKEN")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillfork")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// loadConfig builds a core.Config from defaults overlaid with viper settings.
func loadConfig() (*core.Config, error) {
	cfg, err := core.DefaultConfig()
	if err != nil {
		return nil, err
	}

	overlay := map[string]*string{
		"skills_root":   &cfg.SkillsRoot,
		"manifest":      &cfg.ManifestPath,
		"update_script": &cfg.UpdateScript,
		"identity":      &cfg.Identity,
		"raw_base_url":  &cfg.RawBaseURL,
		"api_base_url":  &cfg.APIBaseURL,
		"github_token":  &cfg.GitHubToken,
	}
	for key, dst := range overlay {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	// An explicit empty value turns the description check off.
	if viper.IsSet("description_script") {
		cfg.DescriptionScript = viper.GetString("description_script")
	}
	if viper.IsSet("command_timeout") {
		cfg.CommandTimeout = viper.GetDuration("command_timeout")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
