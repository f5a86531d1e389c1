package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Untrack the last N applied migrations without executing down-SQL",
	Example: `  migrator rollback --environment local --count 1`,
	RunE: runRollback,
}

var (
	rollbackEnv   string
	rollbackCount int
)

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().StringVar(&rollbackEnv, "environment", "", "Named environment to roll back (defaults to migrator.toml's default)")
	rollbackCmd.Flags().IntVar(&rollbackCount, "count", 1, "Number of tracking rows to remove")
}

func runRollback(cmd *cobra.Command, args []string) error {
	o, env, err := buildOrchestrator(rollbackEnv, nil)
	if err != nil {
		return err
	}

	removed, err := o.Rollback(context.Background(), rollbackCount)
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "nothing to roll back on %s\n", env.Name)
		return nil
	}
	for _, row := range removed {
		_, _ = color.New(color.FgCyan).Fprintf(os.Stderr, "untracked %s\n", row.Name)
	}
	fmt.Fprintf(os.Stderr, "%d migration(s) untracked on %s (schema left untouched)\n", len(removed), env.Name)
	return nil
}
