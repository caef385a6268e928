// Package config loads recipeforge's configuration file and exposes the
// defaults that the executor and handlers fall back to.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds default language-model settings.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig holds default repository settings.
type StorageConfig struct {
	Adapter string `yaml:"adapter"` // "file" or "sqlite"
	BaseDir string `yaml:"base_dir"`
}

// ExecutionConfig holds recipe-execution defaults.
type ExecutionConfig struct {
	ConversationHistoryLimit int           `yaml:"conversation_history_limit"`
	HandlerTimeout           time.Duration `yaml:"handler_timeout"`
	Strict                   bool          `yaml:"strict"`
}

// LoggingConfig controls the logging subsystem.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
}

// Config holds all recipeforge configuration.
type Config struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	DatabaseURL  string          `yaml:"database_url"`
	LLM          LLMConfig       `yaml:"llm"`
	Storage      StorageConfig   `yaml:"storage"`
	Execution    ExecutionConfig `yaml:"execution"`
	Logging      LoggingConfig   `yaml:"logging"`
	TemplateDirs TemplateDirs    `yaml:"template_dirs"`
	PluginDir    string          `yaml:"plugin_dir"`
	DomainDir    string          `yaml:"domain_dir"`
}

// TemplateDirs seeds the registry's per-kind template directory lists.
type TemplateDirs struct {
	Text    []string `yaml:"text"`
	Recipes []string `yaml:"recipes"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Name:        "recipeforge",
		Version:     "0.1.0",
		DatabaseURL: "file://./data.db",
		LLM: LLMConfig{
			Provider:    "genai",
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			MaxTokens:   2048,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "file",
			BaseDir: "./data/storage",
		},
		Execution: ExecutionConfig{
			ConversationHistoryLimit: 15,
			HandlerTimeout:           60 * time.Second,
			Strict:                   false,
		},
		Logging: LoggingConfig{
			DebugMode: false,
		},
		TemplateDirs: TemplateDirs{
			Text:    []string{"templates/text"},
			Recipes: []string{"templates/recipes"},
		},
		PluginDir: "./plugins",
		DomainDir: "./domains",
	}
}

// Load reads a YAML configuration file and overlays it onto Default().
// A missing file is not an error; Default() is returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
