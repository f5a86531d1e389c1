package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var introspectCmd = &cobra.Command{
	Use:     "introspect",
	Short:   "Print an environment's live schema as JSON",
	Example: `  migrator introspect --environment local`,
	RunE:    runIntrospect,
}

var introspectEnv string

func init() {
	rootCmd.AddCommand(introspectCmd)
	introspectCmd.Flags().StringVar(&introspectEnv, "environment", "", "Named environment to introspect (defaults to migrator.toml's default)")
}

func runIntrospect(cmd *cobra.Command, args []string) error {
	o, _, err := buildOrchestrator(introspectEnv, nil)
	if err != nil {
		return err
	}

	schema, err := o.Driver.Introspect(context.Background(), o.Exec)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
