// Package cli — delete.go implements the "hcpi delete" command.
//
// The delete command removes objects matching a query from the attached
// bucket. Every match is confirmed individually on a terminal; declining
// skips that object and moves on. The --force flag skips confirmation,
// which is what scheduled cleanup jobs use. Without a terminal and
// without --force the command refuses to delete anything.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// deleteFlags holds the flag values for the delete command.
// These are bound to cobra flags in NewDeleteCommand.
type deleteFlags struct {
	// query is the key substring selecting objects to delete.
	query string

	// force skips the per-object confirmation prompt when true.
	force bool
}

// NewDeleteCommand creates the "delete" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDeleteCommand() *cobra.Command {
	flags := &deleteFlags{}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete objects matching a query",
		Long: `Delete objects from the bucket whose key contains the query string.

Each matching object is confirmed with a y/N prompt; answering no skips
that object only. Use --force to delete without prompting. There is no
undo on the HCP side.

Examples:
  hcpi delete -b ngs-data -q run42/sample123
  hcpi delete -b ngs-data -q run42/ --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Key substring selecting objects to delete")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Delete without confirmation")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// runDelete is the main logic function for the delete command.
func runDelete(ctx context.Context, flags *deleteFlags) error {
	// Prompting is the only guard against a loose query; refusing
	// beats guessing when nobody is there to answer.
	if !flags.force && !stdinIsTerminal() {
		return model.NewCLIError(model.ExitGeneralError,
			"stdin is not a terminal: confirmation is impossible, use --force to delete anyway")
	}

	mgr, err := openManager(ctx, false)
	if err != nil {
		return err
	}

	hits, err := mgr.Search(ctx, flags.query)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Printf("No objects matching %q.\n", flags.query)
		return nil
	}

	deleted := make([]string, 0, len(hits))
	skipped := 0
	for _, obj := range hits {
		if !flags.force {
			ok, err := promptYesNo(fmt.Sprintf("Delete %s?", obj.String()))
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
			}
			if !ok {
				skipped++
				continue
			}
		}

		Logger().Debug("Deleting object", zap.String("key", obj.Key))
		if err := mgr.Delete(ctx, obj.Key); err != nil {
			return err
		}
		deleted = append(deleted, obj.Key)
	}

	printDeleteResult(deleted, skipped)
	return nil
}

// printDeleteResult outputs the delete command result in text or JSON
// format, depending on the global --json flag.
func printDeleteResult(deleted []string, skipped int) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"deleted": deleted,
			"skipped": skipped,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Deleted %d object(s)", len(deleted))
	if skipped > 0 {
		fmt.Printf(", skipped %d", skipped)
	}
	fmt.Println()
	for _, key := range deleted {
		fmt.Printf("  %s\n", key)
	}
}
