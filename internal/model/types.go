// Package model defines the domain types for the hcpi CLI.
//
// All entities in this package are plain data structures shared between the
// conda, hcp, and cli layers. Nothing here talks to the network or spawns
// processes; state lives in the conda registry and the HCP bucket, both
// externally owned.
package model

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultEnvName is the conda environment created when `hcpi setup` is
// invoked without an argument.
const DefaultEnvName = "hcpenv"

// PythonVersion is the interpreter version pinned into every environment
// the bootstrapper creates. The analysis pipelines installed from the
// requirements manifest are validated against this version only.
const PythonVersion = "3.7"

// CondaChannel is the additional package channel registered during setup.
// Several pipeline dependencies (samtools et al.) resolve only from here.
const CondaChannel = "bioconda"

// RequirementsFile is the dependency manifest expected in the project
// directory. hcpi never reads it — the path is handed to pip verbatim.
const RequirementsFile = "requirements.txt"

// envNameRegex validates conda environment names: letters, digits, hyphen,
// underscore and dot. Conda itself accepts a wider range, but everything the
// bootstrapper creates should survive being used in paths and shell lines.
var envNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateEnvName checks if name is a valid conda environment name.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !envNameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: use letters, digits, '.', '_' or '-', starting with a letter or digit", name)
	}
	return nil
}

// ObjectInfo holds metadata about a single object in the attached HCP
// bucket, as returned by a bucket listing. ETag is the value reported by
// the platform, quotes stripped.
type ObjectInfo struct {
	// Key is the full object key within the bucket.
	Key string `json:"key"`

	// Size is the object size in bytes.
	Size int64 `json:"size"`

	// ETag is the platform-reported entity tag. For multipart uploads this
	// is an MD5-of-MD5s with a "-<parts>" suffix, not a plain MD5.
	ETag string `json:"etag"`

	// LastModified is the platform-reported modification timestamp.
	LastModified time.Time `json:"lastModified"`
}

// String returns a listing-friendly representation of the object.
func (o ObjectInfo) String() string {
	return fmt.Sprintf("%s  (%d bytes, modified %s)", o.Key, o.Size, o.LastModified.Format(time.RFC3339))
}

// ExitCode defines the hcpi process exit codes. Scripts and schedulers use
// these to distinguish configuration mistakes from tool failures.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates credentials or settings were missing
	// or invalid.
	ExitConfigError ExitCode = 2

	// ExitCondaError indicates a conda invocation failed (and conda's own
	// exit status was unavailable).
	ExitCondaError ExitCode = 3

	// ExitPipError indicates a pip install step failed (and pip's own exit
	// status was unavailable).
	ExitPipError ExitCode = 4

	// ExitStorageError indicates an HCP operation failed.
	ExitStorageError ExitCode = 5

	// ExitValidationError indicates an input failed validation
	// (environment name, fastq file, query file).
	ExitValidationError ExitCode = 6

	// ExitUserCancelled indicates the user declined an interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code class to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// ToolStatus, when non-zero, is the exit status of the underlying
	// external tool (conda, pip). The CLI prefers it over Code so that
	// setup failures surface the tool's own status, as a shell pipeline
	// would.
	ToolStatus int

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// ExitStatus returns the process exit status for this error: the underlying
// tool's status when one was captured, the code class otherwise.
func (e *CLIError) ExitStatus() int {
	if e.ToolStatus != 0 {
		return e.ToolStatus
	}
	return int(e.Code)
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// WrapToolError creates a CLIError for a failed external tool invocation,
// preserving the tool's exit status for propagation.
func WrapToolError(code ExitCode, message string, status int, err error) *CLIError {
	return &CLIError{Code: code, Message: message, ToolStatus: status, Err: err}
}
