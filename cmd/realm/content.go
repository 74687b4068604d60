package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/realmforge/internal/application/handlers"
	"github.com/ersonp/realmforge/internal/domain/entities"
)

type payloadFlags struct {
	data string
	set  []string
}

func (f *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "JSON object payload (use - to read stdin)")
	cmd.Flags().StringArrayVar(&f.set, "set", nil, "Field assignment KEY=VALUE; VALUE is parsed as JSON when valid (repeatable)")
}

// payload merges --data and --set, with --set winning.
func (f *payloadFlags) payload(stdin io.Reader) (entities.Payload, error) {
	out := entities.Payload{}
	if f.data != "" {
		raw := []byte(f.data)
		if f.data == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			raw = b
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("parsing --data: %w", err)
		}
		if out == nil {
			return nil, fmt.Errorf("--data must be a JSON object")
		}
	}
	assigned, err := parseAssignments(f.set)
	if err != nil {
		return nil, err
	}
	for k, v := range assigned {
		out[k] = v
	}
	return out, nil
}

// parseAssignments turns KEY=VALUE pairs into a payload.
func parseAssignments(pairs []string) (entities.Payload, error) {
	out := entities.Payload{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q (want KEY=VALUE)", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			out[key] = v
		} else {
			out[key] = raw
		}
	}
	return out, nil
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage characters, maps, power systems and lore of the active world",
		Long: "Manage world content. KIND is one of: characters, maps, powersystems, lore " +
			"(singular forms are accepted).",
	}

	cmd.AddCommand(
		newContentListCmd(),
		newContentGetCmd(),
		newContentCreateCmd(),
		newContentUpdateCmd(),
		newContentDeleteCmd(),
		newContentImportCmd(),
	)

	return cmd
}

func newContentListCmd() *cobra.Command {
	var (
		where  []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list KIND",
		Short: "List a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			match, err := parseAssignments(where)
			if err != nil {
				return err
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Content.HandleList(cmd.Context(), kind, match)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(os.Stdout, result.Items)
				}
				printCollection(os.Stdout, result)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&where, "where", nil, "Only items with field KEY equal to VALUE (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func printCollection(w io.Writer, result *handlers.ContentListResult) {
	if result.Total == 0 {
		fmt.Fprintf(w, "No %s found.\n", result.Kind.Plural())
		return
	}

	fmt.Fprintf(w, "Showing %d %s:\n\n", result.Total, result.Kind.Plural())
	fmt.Fprintf(w, "%-38s %-28s %s\n", "ID", "NAME", "DETAIL")
	for _, e := range result.Items {
		fmt.Fprintf(w, "%-38s %-28s %s\n", e.ID, truncate(e.Name(), 28), truncate(detail(e), 50))
	}
}

// detail picks the most descriptive secondary field of an entity.
func detail(e entities.Entity) string {
	return e.Payload.String("description", "category", "race", "role", "content")
}

func newContentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KIND ID",
		Short: "Show one item as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				e, err := d.Content.HandleGet(cmd.Context(), kind, args[1])
				if err != nil {
					return err
				}
				return writeJSON(os.Stdout, e)
			})
		},
	}
}

func newContentCreateCmd() *cobra.Command {
	var flags payloadFlags

	cmd := &cobra.Command{
		Use:   "create KIND",
		Short: "Add an item to the active world",
		Example: `  realm content create characters --set name=Aria --set race=elf
  realm content create lore --data '{"title":"The Fall","content":"...","category":"history"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			payload, err := flags.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if missing := payload.Missing(kind.RequiredFields()...); len(missing) > 0 {
				return fmt.Errorf("missing required field: %s", strings.Join(missing, ", "))
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				e, err := d.Content.HandleCreate(cmd.Context(), kind, payload)
				if err != nil {
					return err
				}
				fmt.Printf("Added %s %q (%s)\n", kind.Singular(), e.Name(), e.ID)
				return nil
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func newContentUpdateCmd() *cobra.Command {
	var flags payloadFlags

	cmd := &cobra.Command{
		Use:   "update KIND ID",
		Short: "Merge fields into an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			patch, err := flags.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(patch.WithoutReserved()) == 0 {
				return fmt.Errorf("nothing to update (use --data or --set)")
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				e, err := d.Content.HandleUpdate(cmd.Context(), kind, args[1], patch)
				if err != nil {
					return err
				}
				fmt.Printf("Updated %s %q (%s)\n", kind.Singular(), e.Name(), e.ID)
				return nil
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func newContentDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete KIND ID",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			if !force && !confirmAction(fmt.Sprintf("Delete %s %s?", kind.Singular(), args[1])) {
				fmt.Println("Cancelled.")
				return nil
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Content.HandleDelete(cmd.Context(), kind, args[1]); err != nil {
					return err
				}
				fmt.Printf("Deleted %s %s\n", kind.Singular(), args[1])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func newContentImportCmd() *cobra.Command {
	var opts handlers.ImportOptions

	cmd := &cobra.Command{
		Use:   "import KIND FILE",
		Short: "Import items from a JSON or CSV file",
		Long: "Imports a JSON array of objects or a CSV file with a header row. " +
			"Each valid record is created in the active world; invalid records are reported and skipped.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := entities.ParseKind(args[0])
			if err != nil {
				return err
			}
			if !slices.Contains(validImportFormats, opts.Format) {
				return fmt.Errorf("invalid format %q, valid formats: %v", opts.Format, validImportFormats)
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.Import.Handle(cmd.Context(), kind, args[1], opts)
				if result != nil {
					printImportResult(os.Stdout, result, opts.DryRun)
				}
				if err != nil {
					return err
				}
				if len(result.Errors) > 0 && result.Imported == 0 {
					return fmt.Errorf("no %s imported", kind.Plural())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "auto", "File format (auto, json, csv)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate without saving")

	return cmd
}

func printImportResult(w io.Writer, result *handlers.ImportResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Fprintf(w, "%s %d %s", verb, result.Imported, result.Kind.Plural())
	if result.Skipped > 0 || len(result.Errors) > 0 {
		fmt.Fprintf(w, " (%d skipped, %d errors)", result.Skipped, len(result.Errors))
	}
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e.Error())
	}
	for _, e := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", e.Error())
	}
}

func confirmAction(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N]: ", prompt)
	response, _ := reader.ReadString('\n') // Error ignored: EOF/error treated as "no"
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
