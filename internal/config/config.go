// Package config provides configuration loading and structs for the beroea
// server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Language   string           `yaml:"language"`
	Server     ServerConfig     `yaml:"server"`
	Scripture  ScriptureConfig  `yaml:"scripture"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	AI         AIConfig         `yaml:"ai"`
	Storage    StorageConfig    `yaml:"storage"`
	Corpus     CorpusConfig     `yaml:"corpus"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ScriptureConfig holds the scripture chapter API settings.
type ScriptureConfig struct {
	BaseURL        string `yaml:"base_url"`
	DefaultVersion string `yaml:"default_version"`
}

// DictionaryConfig holds the free dictionary backends and cache settings.
type DictionaryConfig struct {
	APIBaseURL    string `yaml:"api_base_url"`
	WikiBaseURL   string `yaml:"wiki_base_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

// AIConfig holds the generation API settings. The API key is read from the
// environment variable named by APIKeyEnv, never from the config file.
type AIConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CorpusConfig holds extra corpus directories watched for user-provided verse
// files.
type CorpusConfig struct {
	ExtraDirs []string `yaml:"extra_dirs"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Corpus.ExtraDirs {
		cfg.Corpus.ExtraDirs[i] = expandPath(cfg.Corpus.ExtraDirs[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting corpus directory
// add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills in defaults for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8480
	}
	if cfg.Scripture.BaseURL == "" {
		cfg.Scripture.BaseURL = "https://bible-api.deno.dev/api"
	}
	if cfg.Scripture.DefaultVersion == "" {
		cfg.Scripture.DefaultVersion = "RVR60"
	}
	if cfg.Dictionary.APIBaseURL == "" {
		cfg.Dictionary.APIBaseURL = "https://api.dictionaryapi.dev"
	}
	if cfg.Dictionary.WikiBaseURL == "" {
		cfg.Dictionary.WikiBaseURL = "https://en.wiktionary.org"
	}
	if cfg.Dictionary.CacheTTLHours == 0 {
		cfg.Dictionary.CacheTTLHours = 24
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "BEROEA_AI_API_KEY"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".beroea/beroea.db"
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
