// Package config resolves the hcpi configuration used by the storage
// commands.
//
// Three sources are merged, in decreasing precedence:
//   - command-line flags (--credentials, --bucket)
//   - HCPI_* environment variables
//   - files: credentials.json (JSONC tolerated) and an optional hcpi.yaml
//     with transfer tuning
//
// The bootstrapper (`hcpi setup`) does not use this package; only commands
// that talk to the HCP endpoint resolve a configuration, and they fail
// with a configuration error before any network traffic when credentials
// or the bucket are missing.
package config
