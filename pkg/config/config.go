/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/marcstream/pkg/extract"
)

// autoKey marks a client API key that should be generated at bootstrap.
const autoKey = "auto"

// Config represents the marcstream configuration
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	Port     int           `yaml:"port"`
	Bind     string        `yaml:"bind"`
	Security Security      `yaml:"security"`
	Logging  Logging       `yaml:"logging"`
	Parse    Parse         `yaml:"parse"`
	Fields   []FieldConfig `yaml:"fields"`
}

// Security contains security-related configuration
type Security struct {
	ClientAPIKey string `yaml:"client_api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Parse contains MARC parsing configuration
type Parse struct {
	ForceUTF8   bool `yaml:"force_utf8"`
	SkipOnError bool `yaml:"skip_on_error"`
}

// FieldConfig defines a named extraction: a pattern plus its options.
type FieldConfig struct {
	Name            string `yaml:"name"`
	Pattern         string `yaml:"pattern"`
	First           bool   `yaml:"first"`
	TrimPunctuation bool   `yaml:"trim_punctuation"`
	AllowDuplicates bool   `yaml:"allow_duplicates"`
	Default         string `yaml:"default"`
	Separator       string `yaml:"separator"`
	AlternateField  string `yaml:"alternate_field"` // include | dont_include | only
}

// Options maps the yaml field definition to extractor options.
func (f FieldConfig) Options() (extract.Options, error) {
	options := extract.Options{
		First:           f.First,
		TrimPunctuation: f.TrimPunctuation,
		AllowDuplicates: f.AllowDuplicates,
		Default:         f.Default,
		Separator:       f.Separator,
	}
	switch f.AlternateField {
	case "", "include":
		options.Alternate = extract.Include
	case "dont_include":
		options.Alternate = extract.DontInclude
	case "only":
		options.Alternate = extract.Only
	default:
		return extract.Options{}, fmt.Errorf("field %s: unknown alternate_field %q", f.Name, f.AlternateField)
	}
	return options, nil
}

// Compile builds the extractor for this field definition.
func (f FieldConfig) Compile() (*extract.Extractor, error) {
	options, err := f.Options()
	if err != nil {
		return nil, err
	}
	plan, err := extract.New(f.Pattern, options)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return plan, nil
}

// Validate checks the parts of the configuration that would otherwise
// fail at serve time: every extraction field needs a distinct name and
// a compilable pattern.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Fields))
	for _, field := range c.Fields {
		if field.Name == "" {
			return fmt.Errorf("field with pattern %q has no name", field.Pattern)
		}
		if seen[field.Name] {
			return fmt.Errorf("duplicate field name %q", field.Name)
		}
		seen[field.Name] = true
		if _, err := field.Compile(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			ClientAPIKey: autoKey,
		},
		Logging: Logging{
			Level: "info",
		},
		Fields: []FieldConfig{
			{Name: "title", Pattern: "245ab", TrimPunctuation: true},
			{Name: "author", Pattern: "100a:110a:111a", TrimPunctuation: true},
			{Name: "isbn", Pattern: "020a"},
		},
	}
}

// LoadConfig loads and validates configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	return &config, nil
}

// SaveConfig writes the configuration with owner-only permissions; the
// file carries the client API key.
func SaveConfig(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// BootstrapConfig writes a fresh configuration to configPath, replacing
// the "auto" client API key placeholder with a generated key.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	if config.Security.ClientAPIKey == "" || config.Security.ClientAPIKey == autoKey {
		key, err := generateClientKey()
		if err != nil {
			return nil, err
		}
		config.Security.ClientAPIKey = key
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}
	return config, nil
}

// generateClientKey produces a 256-bit hex-encoded API key.
func generateClientKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate client API key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// GetDefaultConfigPath returns the configuration path, honoring
// XDG_CONFIG_HOME when it is set.
func GetDefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "marcstream", "config.yaml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./marcstream.yaml"
	}
	return filepath.Join(homeDir, ".config", "marcstream", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}
