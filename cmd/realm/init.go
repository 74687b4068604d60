package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/infrastructure/config"
	"github.com/ersonp/realmforge/internal/infrastructure/logging"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize realm in the current directory",
		Long:  "Creates .realm/config.yaml with defaults and seeds the owner's first world.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	logger := logging.New(config.Default().Log)
	result, err := handlers.NewInitHandler(logger).Handle(cmd.Context(), cwd)
	if err != nil {
		return err
	}

	fmt.Printf("Initialized realm in %s\n", config.ConfigDir(cwd))
	fmt.Printf("  config: %s\n", result.ConfigPath)
	fmt.Printf("  worlds: %s\n", result.WorldsPath)
	if result.ActiveWorld != "" {
		fmt.Printf("Active world for %s: %s\n", result.Owner, result.ActiveWorld)
	}
	return nil
}
