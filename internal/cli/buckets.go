// Package cli — buckets.go implements the "hcpi buckets" command.
//
// The buckets command lists all buckets visible at the configured HCP
// endpoint. It is the one storage command that works without a bucket
// selected, since its whole point is to discover which buckets exist.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewBucketsCommand creates the "buckets" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBucketsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "List buckets at the HCP endpoint",
		Long: `List all buckets visible to the configured credentials.

Examples:
  hcpi buckets
  hcpi buckets --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuckets(cmd.Context())
		},
	}

	return cmd
}

// runBuckets is the main logic function for the buckets command.
func runBuckets(ctx context.Context) error {
	mgr, err := openManager(ctx, true)
	if err != nil {
		return err
	}

	names, err := mgr.ListBuckets(ctx)
	if err != nil {
		return err
	}

	printBucketsResult(names)
	return nil
}

// printBucketsResult outputs the bucket names in text or JSON format,
// depending on the global --json flag.
func printBucketsResult(names []string) {
	if IsJSONOutput() {
		result := struct {
			Buckets []string `json:"buckets"`
		}{
			// Empty slice instead of nil so JSON output shows [] rather
			// than null when the tenant has no buckets.
			Buckets: names,
		}
		if result.Buckets == nil {
			result.Buckets = []string{}
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(names) == 0 {
		fmt.Println("No buckets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}
