// Package cli implements the cobra-based CLI commands for hcpi.
//
// Each subcommand (setup, buckets, search, upload, download, delete, read)
// is defined in its own file within this package. This file defines the
// root command that serves as the parent for all subcommands, handles
// global flags, builds the logger, and translates errors into process
// exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose lowers the log level to debug. Suppressed bootstrap
	// failures and skipped upload candidates only show up here.
	verbose bool

	// credentialsPath is the --credentials flag: the credentials.json
	// location for storage commands. Empty means HCPI_CREDENTIALS or the
	// working directory.
	credentialsPath string

	// bucketName is the --bucket flag: the bucket all object operations
	// target. Empty means HCPI_BUCKET.
	bucketName string

	// logger is built in PersistentPreRunE and synced in
	// PersistentPostRun. Until then it is a no-op logger, so helpers
	// called early never dereference nil.
	logger = zap.NewNop()
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action — it only provides
// help text, global flags, and the logger lifecycle. Actual functionality
// is provided by subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "hcpi",
		Short: "HCP object storage interface and analysis environment bootstrapper",
		Long: `hcpi manages sequencing data on a Hitachi Content Platform tenant and
provisions the conda environment the analysis pipelines run in.

Storage commands (buckets, search, upload, download, delete, read) talk to
the tenant's S3 interface and need a credentials file and a bucket. The
setup command only needs conda on PATH.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// The logger lives exactly as long as the command run: built
		// here, flushed in PersistentPostRun. Console encoding to stderr
		// keeps stdout clean for command output.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.OutputPaths = []string{"stderr"}
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}

			built, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags — any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "",
		"Path to credentials.json (default: $HCPI_CREDENTIALS or ./credentials.json)")
	rootCmd.PersistentFlags().StringVarP(&bucketName, "bucket", "b", "",
		"Bucket for object operations (default: $HCPI_BUCKET)")

	// Register subcommands. Each subcommand is defined in its own file
	// (setup.go, buckets.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewBucketsCommand())
	rootCmd.AddCommand(NewSearchCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewDownloadCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewReadCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them into
// OS exit codes. CLIError values carry an exit code class and, for failed
// conda/pip invocations, the tool's own exit status, which takes
// precedence so schedulers observe the same status a raw tool run would
// give. Other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		// errors.As rather than a type assertion: domain errors may come
		// back wrapped by cobra or by fmt.Errorf in a subcommand.
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(cliErr.ExitStatus())
		}

		// Generic error — exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// Logger returns the logger for the current command run. Before
// PersistentPreRunE it is a no-op logger.
func Logger() *zap.Logger {
	return logger
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
