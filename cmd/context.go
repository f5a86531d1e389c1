package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/lockplane/migrator/internal/config"
	"github.com/lockplane/migrator/internal/dbexec"
	"github.com/lockplane/migrator/internal/dialect"
	"github.com/lockplane/migrator/internal/orchestrator"
	"github.com/lockplane/migrator/internal/resolver"
	"github.com/lockplane/migrator/internal/storage"
	"github.com/lockplane/migrator/internal/tracking"
)

// detectDialect infers the dialect from a connection string's scheme or
// file suffix, grounded on main.go's detectDriver.
func detectDialect(dsn string) dialect.Name {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return dialect.PostgreSQL
	case strings.HasPrefix(lower, "mysql://"):
		return dialect.MySQL
	case strings.HasPrefix(lower, "libsql://"):
		return dialect.SQLite
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"),
		lower == ":memory:":
		return dialect.SQLite
	default:
		return dialect.PostgreSQL
	}
}

// migrationsDir is the directory journal.json/snapshot.json/migration
// files live in, relative to the environment's config directory.
func migrationsDir(env *config.ResolvedEnvironment) string {
	base := env.ResolvedConfigDir
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "migrations")
}

// buildOrchestrator resolves envName (empty means the config default),
// opens a database handle, and wires an Orchestrator ready for
// Generate/Apply/Rollback/Status.
func buildOrchestrator(envName string, resolve resolver.Func) (*orchestrator.Orchestrator, *config.ResolvedEnvironment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrator.toml: %w", err)
	}

	env, err := config.ResolveEnvironment(cfg, envName)
	if err != nil {
		return nil, nil, err
	}

	dialectName := detectDialect(env.DatabaseURL)
	driver, err := dialect.Lookup("", dialectName)
	if err != nil {
		return nil, nil, err
	}

	exec, err := dbexec.Open(dialectName, env.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", env.DatabaseURL, err)
	}

	store := storage.New(migrationsDir(env))
	tracker := tracking.New(driver, exec, tracking.DefaultTableName)

	if resolve == nil {
		resolve = resolver.AlwaysAddAndDrop
	}

	o := &orchestrator.Orchestrator{
		Driver:   driver,
		Exec:     exec,
		Store:    store,
		Tracker:  tracker,
		LockName: "migrator_" + env.Name,
		Resolve:  resolve,
		Warn: func(message string) {
			_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ %s\n", message)
		},
	}
	return o, env, nil
}
