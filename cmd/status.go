package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "List pending and applied migrations for an environment",
	Example: `  migrator status --environment local`,
	RunE:    runStatus,
}

var statusEnv string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusEnv, "environment", "", "Named environment to inspect (defaults to migrator.toml's default)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	o, env, err := buildOrchestrator(statusEnv, nil)
	if err != nil {
		return err
	}

	status, err := o.Status(context.Background())
	if err != nil {
		return err
	}

	applied := make(map[string]bool, len(status.Applied))
	for _, row := range status.Applied {
		applied[row.Name] = true
	}

	fmt.Printf("%s (%d migration(s) in journal, %d applied)\n", env.Name, len(status.Journal), len(status.Applied))
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	for _, entry := range status.Journal {
		if applied[entry.Name] {
			_, _ = green.Printf("  ✓ %04d_%s\n", entry.Idx, entry.Name)
		} else {
			_, _ = yellow.Printf("  • %04d_%s (pending)\n", entry.Idx, entry.Name)
		}
	}
	return nil
}
