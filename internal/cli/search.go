// Package cli — search.go implements the "hcpi search" command.
//
// The search command finds objects in the attached bucket whose key
// contains a query string. Queries come from the -q flag or, one per
// line, from a query file given with -f; exactly one of the two must be
// used. Results are presented as a text listing or JSON, depending on
// the --json flag.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// searchFlags holds the flag values for the search command.
// These are bound to cobra flags in NewSearchCommand.
type searchFlags struct {
	// query is a single substring to match against object keys.
	query string

	// queryFile names a file with one query per line.
	queryFile string
}

// NewSearchCommand creates the "search" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewSearchCommand() *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find objects by key substring",
		Long: `Find objects in the bucket whose key contains the query string.

With -f, each non-empty line of the file is run as its own query; this is
how a list of sample names is checked against the bucket in one go.

Examples:
  hcpi search -b ngs-data -q sample123
  hcpi search -b ngs-data -f samples.txt
  hcpi search -b ngs-data -q .fastq.gz --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Substring to match against object keys")
	cmd.Flags().StringVarP(&flags.queryFile, "query-file", "f", "", "File with one query per line")

	return cmd
}

// searchResult pairs a query with its matching objects, for both output
// formats.
type searchResult struct {
	Query   string             `json:"query"`
	Matches []model.ObjectInfo `json:"matches"`
}

// runSearch is the main logic function for the search command.
// It resolves the query list, runs each query against the cached bucket
// listing, and outputs results in the appropriate format.
func runSearch(ctx context.Context, flags *searchFlags) error {
	queries, err := resolveQueries(flags)
	if err != nil {
		return err
	}

	mgr, err := openManager(ctx, false)
	if err != nil {
		return err
	}

	// One bucket listing serves all queries: Search works off the cache
	// after the first call.
	results := make([]searchResult, 0, len(queries))
	for _, query := range queries {
		hits, err := mgr.Search(ctx, query)
		if err != nil {
			return err
		}
		if hits == nil {
			hits = []model.ObjectInfo{}
		}
		results = append(results, searchResult{Query: query, Matches: hits})
	}

	printSearchResult(results)
	return nil
}

// resolveQueries turns the search flags into the list of queries to run.
// Exactly one of -q and -f must be given.
func resolveQueries(flags *searchFlags) ([]string, error) {
	switch {
	case flags.query != "" && flags.queryFile != "":
		return nil, model.NewCLIError(model.ExitValidationError,
			"use either --query or --query-file, not both")
	case flags.query != "":
		return []string{flags.query}, nil
	case flags.queryFile != "":
		data, err := os.ReadFile(flags.queryFile)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitValidationError,
				fmt.Sprintf("failed to read query file %s", flags.queryFile), err)
		}
		queries := ParseQueryLines(string(data))
		if len(queries) == 0 {
			return nil, model.NewCLIError(model.ExitValidationError,
				fmt.Sprintf("query file %s contains no queries", flags.queryFile))
		}
		return queries, nil
	default:
		return nil, model.NewCLIError(model.ExitValidationError,
			"no query given: pass --query or --query-file")
	}
}

// ParseQueryLines splits query file content into queries: one per line,
// surrounding whitespace trimmed, empty lines dropped.
//
// This function is exported for testing purposes (tested in search_test.go).
func ParseQueryLines(content string) []string {
	var queries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			queries = append(queries, line)
		}
	}
	return queries
}

// printSearchResult outputs the search results in text or JSON format,
// depending on the global --json flag.
func printSearchResult(results []searchResult) {
	if IsJSONOutput() {
		wrapper := struct {
			Results []searchResult `json:"results"`
		}{Results: results}
		data, _ := json.MarshalIndent(wrapper, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, res := range results {
		// The per-query header only earns its line when there are
		// multiple queries to tell apart.
		if len(results) > 1 {
			fmt.Printf("%s: %d hit(s)\n", res.Query, len(res.Matches))
		}
		if len(res.Matches) == 0 && len(results) == 1 {
			fmt.Printf("No objects matching %q.\n", res.Query)
		}
		for _, obj := range res.Matches {
			fmt.Println(obj.String())
		}
	}
}
