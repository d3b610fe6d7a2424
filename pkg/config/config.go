// Package config loads whisper settings from a .whisper file and WHISPER_
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LLM configures the mantra generator.
type LLM struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Config is the resolved configuration. StorePath is the remote entry store
// directory; SharedPath is the directory shared with the widget renderer.
type Config struct {
	StorePath  string
	SharedPath string
	CachePath  string
	LogDir     string
	Debug      bool
	LLM        LLM
}

// Load reads the config file (if any) and environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("path", "~/.whisper/remote")
	v.SetDefault("shared", "~/.whisper/shared")
	v.SetDefault("cache", "~/.whisper/cache")
	v.SetDefault("logs", "~/.whisper")
	v.SetDefault("debug", false)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetConfigName(".whisper") // .yaml is implicit
	v.SetEnvPrefix("WHISPER")
	v.AutomaticEnv()
	// llm.api_key must be reachable as WHISPER_LLM_API_KEY.
	_ = v.BindEnv("llm.api_key", "WHISPER_LLM_API_KEY")
	_ = v.BindEnv("llm.base_url", "WHISPER_LLM_BASE_URL")
	_ = v.BindEnv("llm.model", "WHISPER_LLM_MODEL")

	if override := os.Getenv("WHISPER_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{
		Debug: v.GetBool("debug"),
		LLM: LLM{
			BaseURL: v.GetString("llm.base_url"),
			APIKey:  v.GetString("llm.api_key"),
			Model:   v.GetString("llm.model"),
		},
	}
	for dst, key := range map[*string]string{
		&cfg.StorePath:  "path",
		&cfg.SharedPath: "shared",
		&cfg.CachePath:  "cache",
		&cfg.LogDir:     "logs",
	} {
		p, err := expand(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = p
	}
	return cfg, nil
}

func expand(p string) (string, error) {
	p, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(p), nil
}
