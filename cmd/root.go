// Package cmd implements the migrator CLI: generate/apply/rollback/status
// over the orchestrator, wired to migrator.toml + .env.<name> environment
// resolution. Grounded on cmd/root.go's bare rootCmd-plus-Execute shape.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/lockplane/migrator/internal/dialect/libsql"
	_ "github.com/lockplane/migrator/internal/dialect/mysql"
	_ "github.com/lockplane/migrator/internal/dialect/postgres"
	_ "github.com/lockplane/migrator/internal/dialect/sqlite"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "migrator",
	Short: "migrator manages schema migrations across Postgres, MySQL, SQLite and libSQL.",
	Long:  `migrator diffs a desired schema against a database's live state and generates, applies, and tracks the resulting migrations.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
