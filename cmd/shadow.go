package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockplane/migrator/internal/config"
	"github.com/lockplane/migrator/internal/shadow"
)

var shadowCmd = &cobra.Command{
	Use:   "shadow",
	Short: "Manage the shadow database reservation used to prep migrations without touching the real database",
}

var shadowReserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Record a reservation against an environment's shadow database",
	RunE:  runShadowReserve,
}

var shadowStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the active shadow reservation, if any",
	RunE:  runShadowStatus,
}

var shadowClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the active shadow reservation",
	RunE:  runShadowClear,
}

var shadowEnv string

func init() {
	rootCmd.AddCommand(shadowCmd)
	shadowCmd.AddCommand(shadowReserveCmd, shadowStatusCmd, shadowClearCmd)
	shadowReserveCmd.Flags().StringVar(&shadowEnv, "environment", "", "Named environment whose shadow database to reserve (defaults to migrator.toml's default)")
}

func runShadowReserve(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading migrator.toml: %w", err)
	}
	env, err := config.ResolveEnvironment(cfg, shadowEnv)
	if err != nil {
		return err
	}
	if env.ShadowDatabaseURL == "" {
		return fmt.Errorf("environment %s has no shadow_database_url configured", env.Name)
	}

	existing, err := shadow.LoadReservation()
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("a shadow reservation for %s is already active; run `migrator shadow clear` first", existing.Environment)
	}

	res := &shadow.Reservation{
		Environment:  env.Name,
		ShadowURL:    env.ShadowDatabaseURL,
		ShadowSchema: env.ShadowSchema,
		CreatedAt:    time.Now(),
	}
	if err := shadow.SaveReservation(res); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "reserved shadow database for %s\n", env.Name)
	return nil
}

func runShadowStatus(cmd *cobra.Command, args []string) error {
	res, err := shadow.LoadReservation()
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Println("no active shadow reservation")
		return nil
	}
	fmt.Printf("environment: %s\nshadow_url: %s\n", res.Environment, res.ShadowURL)
	if res.ShadowSchema != "" {
		fmt.Printf("shadow_schema: %s\n", res.ShadowSchema)
	}
	fmt.Printf("created_at: %s\n", res.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}

func runShadowClear(cmd *cobra.Command, args []string) error {
	if err := shadow.ClearReservation(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "cleared shadow reservation")
	return nil
}
