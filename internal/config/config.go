// Package config loads migrator.toml (TOML via go-toml/v2) and layers
// per-environment .env.<name> files (godotenv) on top of it, following
// internal/config/config.go's project-root-bounded upward search.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

const configFileName = "migrator.toml"

// EnvironmentConfig describes a single named environment from migrator.toml.
type EnvironmentConfig struct {
	Description       string `toml:"description"`
	DatabaseURL       string `toml:"database_url"`
	ShadowDatabaseURL string `toml:"shadow_database_url"`
	SchemaPath        string `toml:"schema_path"`
}

// Config is the parsed form of migrator.toml. Fields outside Environments
// are defaults shared across every environment that doesn't override them.
type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	DatabaseURL        string                       `toml:"database_url"`
	ShadowDatabaseURL  string                       `toml:"shadow_database_url"`
	SchemaPath         string                       `toml:"schema_path"`
	Dialect            string                       `toml:"dialect"`
	Schemas            []string                     `toml:"schemas"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`
	configDir          string
}

// ConfigDir is the directory migrator.toml was loaded from, or the current
// working directory if no file was found.
func (c *Config) ConfigDir() string {
	if c.configDir != "" {
		return c.configDir
	}
	if c.ConfigFilePath != "" {
		return filepath.Dir(c.ConfigFilePath)
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return ""
}

// ProjectDir is the project root the config search stopped at (the
// directory a .git/go.mod/package.json marker was found in, if any),
// falling back to ConfigDir when no marker exists above the config file.
func (c *Config) ProjectDir() string {
	dir := c.ConfigDir()
	if dir == "" {
		return ""
	}
	start := dir
	for {
		if isProjectRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// PrintLoadConfigErrorDetails surfaces go-toml's rich decode-error
// position information, useful for pointing tests and users at the bad line.
func PrintLoadConfigErrorDetails(err error, t *testing.T) {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		t.Log(derr.String())
		row, col := derr.Position()
		t.Logf("error occurred at row %d, column %d\n", row, col)
	}
}

// LoadConfig finds and parses migrator.toml by walking upward from the
// current directory, stopping at the first project-root marker
// (.git/go.mod/package.json). Returns an empty Config, not an error, when
// no file is found anywhere in that search.
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg.ConfigFilePath = configPath
	cfg.configDir = filepath.Dir(configPath)
	return &cfg, nil
}

func getConfigPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		configPath := filepath.Join(dir, configFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found", configFileName)
}

func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}

// GetSchemaDir returns the schema/ directory next to migrator.toml, if it
// exists.
func GetSchemaDir() (string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return "", err
	}
	schemaDir := filepath.Join(filepath.Dir(configPath), "schema")
	if info, err := os.Stat(schemaDir); err == nil && info.IsDir() {
		return schemaDir, nil
	}
	return "", fmt.Errorf("schema directory not found; try creating schema/ next to %s", configFileName)
}
