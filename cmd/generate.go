package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lockplane/migrator/internal/declschema"
	"github.com/lockplane/migrator/internal/resolver"
	"github.com/lockplane/migrator/internal/serializer"
	"github.com/lockplane/migrator/internal/wizard"
)

var generateCmd = &cobra.Command{
	Use:   "generate <schema-path> <name>",
	Short: "Diff a declared schema against an environment and write a new migration",
	Example: `  migrator generate schema/ add_users --environment local
  migrator generate schema/users.json add_email_index`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

var (
	generateEnv         string
	generateInteractive bool
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateEnv, "environment", "", "Named environment to diff against (defaults to migrator.toml's default)")
	generateCmd.Flags().BoolVar(&generateInteractive, "interactive", false, "Prompt for rename-vs-add/drop on ambiguous changes instead of always treating them as add-and-drop")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	schemaPath, name := args[0], args[1]

	resolve := resolver.AlwaysAddAndDrop
	if generateInteractive {
		resolve = wizard.InteractiveResolve
	}

	o, env, err := buildOrchestrator(generateEnv, resolve)
	if err != nil {
		return err
	}

	ctx := context.Background()
	current, err := o.Driver.Introspect(ctx, o.Exec)
	if err != nil {
		return fmt.Errorf("introspecting %s: %w", env.Name, err)
	}

	models, err := loadModels(schemaPath)
	if err != nil {
		return err
	}
	desired, err := serializer.Serialize(models, o.Driver)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", schemaPath, err)
	}

	result, err := o.Generate(ctx, current, desired, name, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	if result.NoOp {
		_, _ = color.New(color.FgGreen).Fprintln(os.Stderr, "✓ no changes detected, nothing to generate")
		return nil
	}

	_, _ = color.New(color.FgCyan).Fprintf(os.Stderr, "✓ wrote migration %04d_%s\n", result.Entry.Idx, result.Entry.Name)
	fmt.Println(result.UpSQL)
	return nil
}

func loadModels(path string) ([]serializer.ModelSpec, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return declschema.LoadDir(path)
	}
	return declschema.Load(path)
}
