package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnvironmentName   = "local"
	defaultDatabaseURL       = "sqlite://./migrator.db"
	defaultShadowDatabaseURL = "sqlite://./migrator_shadow.db"
)

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name              string
	DatabaseURL       string
	ShadowDatabaseURL string
	ShadowSchema      string
	SchemaPath        string
	Dialect           string
	Schemas           []string
	DotenvPath        string
	FromConfig        bool
	FromDotenv        bool
	ResolvedConfigDir string
}

// ResolveEnvironment resolves a named environment into concrete connection
// strings, layering (low to high precedence) built-in defaults, migrator.toml
// globals, the named [environments.<name>] table, and a .env.<name> file
// that sits beside migrator.toml.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}

	resolved := &ResolvedEnvironment{Name: envName}

	var projectDir string
	if config != nil {
		resolved.ResolvedConfigDir = config.ConfigDir()
		resolved.Dialect = config.Dialect
		resolved.Schemas = config.Schemas
		projectDir = config.ProjectDir()

		if config.SchemaPath != "" {
			resolved.SchemaPath = config.SchemaPath
		}
		if config.DatabaseURL != "" && envConfig.DatabaseURL == "" {
			envConfig.DatabaseURL = config.DatabaseURL
		}
		if config.ShadowDatabaseURL != "" && envConfig.ShadowDatabaseURL == "" {
			envConfig.ShadowDatabaseURL = config.ShadowDatabaseURL
		}
	}

	if envConfig.SchemaPath != "" {
		resolved.SchemaPath = envConfig.SchemaPath
	}
	resolved.DatabaseURL = envConfig.DatabaseURL
	resolved.ShadowDatabaseURL = envConfig.ShadowDatabaseURL
	if envExists {
		resolved.FromConfig = true
	}

	baseDir := resolved.ResolvedConfigDir
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}

	dotenvFileName := ".env." + envName
	resolved.DotenvPath = filepath.Join(baseDir, dotenvFileName)
	if _, err := os.Stat(resolved.DotenvPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to access %s: %w", resolved.DotenvPath, err)
		}
		if projectDir != "" && projectDir != baseDir {
			altPath := filepath.Join(projectDir, dotenvFileName)
			if altInfo, altErr := os.Stat(altPath); altErr == nil && !altInfo.IsDir() {
				resolved.DotenvPath = altPath
			}
		}
	}

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true
		applyDotenvValues(resolved, values)
	}

	if resolved.ShadowDatabaseURL == "" && resolved.DatabaseURL != "" {
		resolved.ShadowDatabaseURL = resolved.DatabaseURL
	}
	if resolved.DatabaseURL == "" {
		resolved.DatabaseURL = defaultDatabaseURL
	}
	if resolved.ShadowDatabaseURL == "" {
		resolved.ShadowDatabaseURL = defaultShadowDatabaseURL
	}

	if resolved.SchemaPath != "" {
		resolved.SchemaPath = resolveSchemaPath(resolved.SchemaPath, resolved.ResolvedConfigDir)
	}

	if config != nil && config.Environments != nil && len(config.Environments) > 0 && !envExists {
		if !resolved.FromDotenv {
			return nil, fmt.Errorf("environment %q not defined in migrator.toml and %s not found", envName, resolved.DotenvPath)
		}
	}

	return resolved, nil
}

// applyDotenvValues layers a .env.<name> file's keys onto a resolved
// environment. Dialect-specific key names (SQLITE_*, POSTGRES_*, LIBSQL_*)
// let a single migrator.toml environment block stay dialect-agnostic while
// still letting each deployment target its own connection string shape.
func applyDotenvValues(resolved *ResolvedEnvironment, values map[string]string) {
	if v := values["DATABASE_URL"]; v != "" {
		resolved.DatabaseURL = v
	}
	if v := values["SHADOW_DATABASE_URL"]; v != "" {
		resolved.ShadowDatabaseURL = v
	}
	if v := values["SCHEMA_PATH"]; v != "" {
		resolved.SchemaPath = v
	}

	if v := values["POSTGRES_URL"]; v != "" {
		resolved.DatabaseURL = v
	}
	if v := values["POSTGRES_SHADOW_URL"]; v != "" {
		resolved.ShadowDatabaseURL = v
	}

	if v := values["SQLITE_DB_PATH"]; v != "" {
		resolved.DatabaseURL = v
	}
	if v := values["SQLITE_SHADOW_DB_PATH"]; v != "" {
		resolved.ShadowDatabaseURL = v
	}
	if v := values["SHADOW_SQLITE_DB_PATH"]; v != "" {
		resolved.ShadowDatabaseURL = v
	}

	if v := values["LIBSQL_URL"]; v != "" {
		if token := values["LIBSQL_AUTH_TOKEN"]; token != "" {
			v = v + "?authToken=" + token
		}
		resolved.DatabaseURL = v
	}
	if v := values["LIBSQL_SHADOW_DB_PATH"]; v != "" {
		resolved.ShadowDatabaseURL = v
	}

	if v := values["SHADOW_SCHEMA"]; v != "" {
		resolved.ShadowSchema = v
	}
}

// resolveSchemaPath joins a relative schema path against base (the
// directory migrator.toml lives in); absolute paths pass through untouched.
func resolveSchemaPath(path, base string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
