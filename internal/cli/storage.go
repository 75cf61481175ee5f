// Package cli — storage.go holds the helpers shared by the storage
// subcommands: configuration resolution, manager construction and bucket
// attachment, and the interactive confirmation prompt.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/genomic-medicine-sweden/hcpi/internal/config"
	"github.com/genomic-medicine-sweden/hcpi/internal/hcp"
)

// openManager resolves the configuration from flags, environment, and
// files, builds the HCP manager, and attaches the configured bucket.
//
// Commands that operate at the endpoint level (bucket listing) pass
// bucketOptional; they get an unattached manager when no bucket was
// configured. Everything else fails with a configuration error before any
// network traffic when credentials or bucket are missing.
//
// The transfer progress line is enabled only when stderr is a terminal,
// so redirected and scheduled runs stay free of control characters.
func openManager(ctx context.Context, bucketOptional bool) (*hcp.Manager, error) {
	cfg, err := config.Load(config.Options{
		CredentialsPath: credentialsPath,
		Bucket:          bucketName,
		BucketOptional:  bucketOptional,
	})
	if err != nil {
		return nil, err
	}

	mgr, err := hcp.NewManager(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		mgr.EnableProgress(os.Stderr)
	}

	if cfg.Bucket != "" {
		Logger().Debug("Attaching bucket", zap.String("bucket", cfg.Bucket))
		if err := mgr.Attach(ctx, cfg.Bucket); err != nil {
			return nil, err
		}
	}

	return mgr, nil
}

// stdinIsTerminal reports whether interactive prompts can be shown.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptYesNo asks a yes/no question on stdout and reads one line from
// stdin. Only "y" and "yes" (case-insensitive) count as confirmation;
// anything else, including a closed stdin, is a no.
func promptYesNo(question string) (bool, error) {
	fmt.Printf("%s [y/N] ", question)

	// bufio.Scanner handles different line endings across platforms
	// (LF on Unix, CRLF on Windows).
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}

	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}
