package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/domain/entities"
)

func newWorldsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "Manage worlds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorldsList(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	cmd.AddCommand(
		newWorldsListCmd(),
		newWorldsCreateCmd(),
		newWorldsUseCmd(),
		newWorldsUpdateCmd(),
		newWorldsDeleteCmd(),
	)

	return cmd
}

func newWorldsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all worlds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorldsList(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runWorldsList(cmd *cobra.Command, asJSON bool) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		worlds := d.Worlds.HandleList()
		if asJSON {
			return writeJSON(os.Stdout, worlds)
		}
		printWorlds(os.Stdout, worlds)
		return nil
	})
}

func printWorlds(w io.Writer, worlds []handlers.WorldSummary) {
	if len(worlds) == 0 {
		fmt.Fprintln(w, "No worlds.")
		fmt.Fprintln(w, "Use 'realm worlds create NAME' to create a world.")
		return
	}

	fmt.Fprintf(w, "  %-38s %-24s %s\n", "ID", "NAME", "DESCRIPTION")
	fmt.Fprintf(w, "  %-38s %-24s %s\n", "--", "----", "-----------")
	for _, ws := range worlds {
		marker := " "
		if ws.Active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-38s %-24s %s\n", marker, ws.ID, ws.Name, truncate(ws.Description, 60))
	}
}

func newWorldsCreateCmd() *cobra.Command {
	var (
		description string
		imageURL    string
		use         bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				w, err := d.Worlds.HandleCreate(cmd.Context(), args[0], description, imageURL, use)
				if err != nil {
					return err
				}
				fmt.Printf("Created world %q (%s)\n", w.Name, w.ID)
				if use {
					fmt.Println("It is now the active world.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "World description")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Cover image URL")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new world active")

	return cmd
}

func newWorldsUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use WORLD",
		Short: "Set the active world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				w, err := d.Worlds.HandleUse(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Active world: %s (%s)\n", w.Name, w.ID)
				return nil
			})
		},
	}
}

func newWorldsUpdateCmd() *cobra.Command {
	var (
		name        string
		description string
		imageURL    string
		public      bool
	)

	cmd := &cobra.Command{
		Use:   "update WORLD",
		Short: "Update a world's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entities.WorldPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("image-url") {
				patch.ImageURL = &imageURL
			}
			if flags.Changed("public") {
				patch.IsPublic = &public
			}
			if patch == (entities.WorldPatch{}) {
				return fmt.Errorf("nothing to update (use --name, --description, --image-url or --public)")
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				w, err := d.Worlds.HandleUpdate(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				fmt.Printf("Updated world %q (%s)\n", w.Name, w.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "New cover image URL")
	cmd.Flags().BoolVar(&public, "public", false, "Mark the world public")

	return cmd
}

func newWorldsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete WORLD",
		Short: "Delete a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				target, err := d.Worlds.Resolve(args[0])
				if err != nil {
					return err
				}
				if !force && !confirmAction(fmt.Sprintf("Delete world %q and forget its selection?", target.Name)) {
					fmt.Println("Cancelled.")
					return nil
				}

				deleted, active, err := d.Worlds.HandleDelete(cmd.Context(), target.ID)
				if err != nil {
					return err
				}
				if d.purgeWorld != nil {
					if err := d.purgeWorld(cmd.Context(), deleted.ID); err != nil {
						d.Logger.WithError(err).Warn("removing local content of deleted world")
					}
				}

				fmt.Printf("Deleted world %q\n", deleted.Name)
				if active != nil {
					fmt.Printf("Active world: %s (%s)\n", active.Name, active.ID)
				} else {
					fmt.Println("No world is active.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
