// Package conda provides conda environment lifecycle operations for
// the hcpi CLI.
//
// All conda operations are performed via os/exec calls to the conda
// binary, rather than reimplementing any solver or registry logic.
// This approach:
//   - Uses the exact same conda behavior the user sees in their terminal
//   - Keeps hcpi independent of any particular conda distribution
//     (miniconda, anaconda, mambaforge all ship a compatible CLI)
//   - Surfaces conda's own exit status on failure, so schedulers and
//     scripts observe the same status a raw conda invocation would give
//
// The Manager struct provides methods for listing, removing, and creating
// environments, configuring channels, and running pip inside a named
// environment via `conda run`.
package conda
