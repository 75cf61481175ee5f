// Package cli — read.go implements the "hcpi read" command.
//
// The read command prints the content of a single small object to
// stdout. Objects at or above the size threshold yield empty content
// rather than flooding the terminal; the threshold lives with the
// storage layer.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// readFlags holds the flag values for the read command.
type readFlags struct {
	// key is the exact object key to read.
	key string
}

// NewReadCommand creates the "read" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewReadCommand() *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print a small object's content",
		Long: `Print the content of an object to stdout.

Only objects smaller than 100000 bytes are printed; anything larger
yields empty output. This is meant for tag maps, sample sheets, and
similar small documents, not sequencing data.

Examples:
  hcpi read -b ngs-data -q run42/meta-240311-093012.json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.key, "query", "q", "", "Exact object key to read")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// runRead is the main logic function for the read command.
func runRead(ctx context.Context, flags *readFlags) error {
	mgr, err := openManager(ctx, false)
	if err != nil {
		return err
	}

	content, err := mgr.Read(ctx, flags.key)
	if err != nil {
		return err
	}

	printReadResult(flags.key, content)
	return nil
}

// printReadResult outputs the object content in text or JSON format,
// depending on the global --json flag.
func printReadResult(key, content string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"key":     key,
			"content": content,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	// Raw content, no trailing newline added: the output may be piped
	// straight into a file or another tool.
	fmt.Print(content)
}
