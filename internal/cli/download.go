// Package cli — download.go implements the "hcpi download" command.
//
// The download command fetches objects from the attached bucket. By
// default the query is run as a search first: zero hits is reported, a
// single hit downloads directly, and multiple hits are confirmed one by
// one on a terminal. With --fast, the query is treated as an exact key
// and fetched without the listing round-trip, which matters on buckets
// with very large listings.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// downloadFlags holds the flag values for the download command.
// These are bound to cobra flags in NewDownloadCommand.
type downloadFlags struct {
	// query is the key substring to search for, or the exact key with
	// --fast.
	query string

	// destination is the local target: a directory (objects land inside
	// under their base name) or a file path for a single object.
	destination string

	// fast skips the search and treats query as an exact key.
	fast bool

	// force overwrites existing local files.
	force bool
}

// NewDownloadCommand creates the "download" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDownloadCommand() *cobra.Command {
	flags := &downloadFlags{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download objects by query or exact key",
		Long: `Download objects from the bucket.

The query is matched as a key substring. A single match downloads
directly; multiple matches are confirmed per object when run on a
terminal (without one, all matches download). Use --fast when the full
key is known to skip the bucket listing entirely.

Existing local files are never overwritten unless --force is given.

Examples:
  hcpi download -b ngs-data -q sample123 -d ./data/
  hcpi download -b ngs-data -q run42/sample123_R1.fastq.gz --fast
  hcpi download -b ngs-data -q sample123 -d ./data/ --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Key substring (or exact key with --fast)")
	cmd.Flags().StringVarP(&flags.destination, "destination", "d", ".", "Local destination directory or file")
	cmd.Flags().BoolVar(&flags.fast, "fast", false, "Treat the query as an exact key, skip the search")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite existing local files")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// runDownload is the main logic function for the download command.
func runDownload(ctx context.Context, flags *downloadFlags) error {
	mgr, err := openManager(ctx, false)
	if err != nil {
		return err
	}

	// --fast: the query is the key, no listing needed.
	if flags.fast {
		if err := mgr.Download(ctx, flags.query, flags.destination, flags.force); err != nil {
			return err
		}
		printDownloadResult(flags.destination, []string{flags.query})
		return nil
	}

	hits, err := mgr.Search(ctx, flags.query)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Printf("No objects matching %q.\n", flags.query)
		return nil
	}

	// Multiple hits on a terminal get a per-object prompt, so a loose
	// query does not silently pull down half the bucket. A single hit,
	// or a non-interactive run, downloads everything the query matched.
	confirmEach := len(hits) > 1 && stdinIsTerminal()

	downloaded := make([]string, 0, len(hits))
	for _, obj := range hits {
		if confirmEach {
			ok, err := promptYesNo(fmt.Sprintf("Download %s?", obj.String()))
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
			}
			if !ok {
				Logger().Debug("Skipping object", zap.String("key", obj.Key))
				continue
			}
		}
		if err := mgr.Download(ctx, obj.Key, flags.destination, flags.force); err != nil {
			return err
		}
		downloaded = append(downloaded, obj.Key)
	}

	printDownloadResult(flags.destination, downloaded)
	return nil
}

// printDownloadResult outputs the download command result in text or
// JSON format, depending on the global --json flag.
func printDownloadResult(destination string, keys []string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"destination": destination,
			"downloaded":  keys,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Downloaded %d object(s) to %s:\n", len(keys), destination)
	for _, key := range keys {
		fmt.Printf("  %s\n", key)
	}
}
