package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lockplane/migrator/internal/migerr"
	"github.com/lockplane/migrator/internal/orchestrator"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations to an environment",
	Example: `  migrator apply --environment local
  migrator apply --environment prod --to 0003_add_index`,
	RunE: runApply,
}

var (
	applyEnv string
	applyTo  string
)

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&applyEnv, "environment", "", "Named environment to apply against (defaults to migrator.toml's default)")
	applyCmd.Flags().StringVar(&applyTo, "to", "", "Stop after applying this migration, inclusive (defaults to all pending)")
}

func runApply(cmd *cobra.Command, args []string) error {
	o, env, err := buildOrchestrator(applyEnv, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := o.Apply(ctx, orchestrator.ApplyOptions{To: applyTo}, func() int64 { return time.Now().UnixMilli() })
	if err != nil {
		var migErr *migerr.Error
		if errors.As(err, &migErr) && migErr.Kind == migerr.KindJournalDivergence {
			_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", migErr.Error())
			return err
		}
		return err
	}

	if len(result.Applied) == 0 {
		_, _ = color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s is already up to date\n", env.Name)
		return nil
	}

	for _, entry := range result.Applied {
		_, _ = color.New(color.FgCyan).Fprintf(os.Stderr, "✓ applied %04d_%s\n", entry.Idx, entry.Name)
	}
	fmt.Fprintf(os.Stderr, "%d migration(s) applied to %s\n", len(result.Applied), env.Name)
	return nil
}
