package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/infrastructure/remote"
)

func newWatchCmd() *cobra.Command {
	var replay int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to the active world and keep collections in sync",
		Long: "Subscribes to the content service's change stream for the active world. " +
			"Every change resyncs the affected collection. Requires the remote backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if replay < 0 || replay > MaxReplayLimit {
				return fmt.Errorf("--replay must be between 0 and %d", MaxReplayLimit)
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				if d.Remote == nil {
					return errors.New("watch requires the remote storage backend")
				}
				world := d.Session.Worlds.Current()
				if world == nil {
					return errors.New("no active world (use 'realm worlds use' or --world)")
				}

				ctx := cmd.Context()
				if replay > 0 {
					events, err := d.Remote.Changes(ctx, world.ID, replay)
					if err != nil {
						return fmt.Errorf("fetching recent changes: %w", err)
					}
					for _, ev := range events {
						printChange(os.Stdout, ev, -1)
					}
				}

				feed, err := remote.NewFeed(d.Config.Remote.BaseURL, world.ID, d.Logger)
				if err != nil {
					return err
				}

				fmt.Printf("Watching %q (Ctrl+C to stop)\n", world.Name)
				err = d.Session.Follow(ctx, feed, func(ev entities.ChangeEvent) {
					printChange(os.Stdout, ev, len(d.Session.Content.Items(ev.Kind)))
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err == nil {
					fmt.Println("Change stream closed.")
				}
				return err
			})
		},
	}

	cmd.Flags().IntVar(&replay, "replay", DefaultReplayLimit, "Print this many recent changes before following")

	return cmd
}

// printChange prints one event. A negative count omits the collection size.
func printChange(w io.Writer, ev entities.ChangeEvent, count int) {
	line := fmt.Sprintf("%s  %-8s %-13s %s", ev.At.Local().Format("15:04:05"), ev.Op, ev.Kind.Singular(), ev.EntityID)
	if count >= 0 {
		line += fmt.Sprintf("  (%d %s)", count, ev.Kind.Plural())
	}
	fmt.Fprintln(w, line)
}
