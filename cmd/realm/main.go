// Package main provides the entry point for the realm CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0-dev"
	globalWorld string
	globalOwner string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:           "realm",
		Short:         "Build worlds: characters, maps, power systems and lore",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalWorld, "world", "w", "", "World id or name to operate on (default: the active world)")
	rootCmd.PersistentFlags().StringVar(&globalOwner, "owner", "", "Owner whose worlds to use (overrides config)")

	rootCmd.AddCommand(
		newInitCmd(),
		newWorldsCmd(),
		newContentCmd(),
		newMapCmd(),
		newServeCmd(),
		newWatchCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
