// Package model defines the domain types and value objects for the
// hcpi CLI.
//
// This package contains pure data structures with no external dependencies.
// It holds the bootstrapper's fixed constants (default environment name,
// pinned interpreter version, package channel, manifest file name), the
// ObjectInfo value object returned by bucket listings, and environment
// name validation.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
// CLIError additionally records the exit status of a failed external tool
// so the process can propagate it unchanged.
package model
