// Package conda wraps the conda CLI for environment lifecycle management.
//
// This package shells out to `conda` (via os/exec) to list, remove, and
// create environments, register package channels, and run pip inside a
// named environment. It is the conda integration layer for the hcpi CLI,
// where every analysis pipeline runs inside a dedicated conda environment.
//
// Design decisions:
//   - We shell out to `conda` rather than touching its registry or package
//     cache directly because the on-disk layout is an implementation detail
//     that differs between conda distributions and versions.
//   - Activation cannot cross a process boundary (it mutates the calling
//     shell), so steps that the interactive workflow would run inside an
//     activated environment are targeted explicitly with `conda run --name`.
//   - All errors from conda commands are wrapped in model.CLIError and
//     carry the tool's own exit status, so the CLI can propagate it
//     unchanged to the OS.
package conda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// runFunc executes a single external command and returns its stdout.
// On failure implementations return a *model.CLIError classified with
// code and carrying the process exit status. The Manager's run field
// holds runTool in production; tests swap in a scripted fake.
type runFunc func(ctx context.Context, code model.ExitCode, name string, args ...string) (string, error)

// Manager provides conda operations by invoking the conda CLI.
//
// The bin field names the conda executable and exists so that a test or an
// exotic install can point elsewhere; everything else is resolved by conda
// itself from the user's configuration.
type Manager struct {
	bin string
	run runFunc
}

// NewManager creates a Manager bound to the `conda` binary on PATH.
func NewManager() *Manager {
	return &Manager{bin: "conda", run: runTool}
}

// envList mirrors the JSON document printed by `conda env list --json`:
//
//	{"envs": ["/opt/miniconda3", "/opt/miniconda3/envs/hcpenv"]}
//
// Entries are absolute environment prefixes; the first is usually the
// base installation itself.
type envList struct {
	Envs []string `json:"envs"`
}

// EnvNames returns the directory base names of all environments known to
// conda, in listing order.
//
// It runs `conda env list --json` and takes the base name of each prefix.
// The base installation appears under its directory name (for example
// "miniconda3"), which is fine for our purposes: environments hcpi manages
// always live under envs/ and list under their own name.
func (m *Manager) EnvNames(ctx context.Context) ([]string, error) {
	output, err := m.run(ctx, model.ExitCondaError, m.bin, "env", "list", "--json")
	if err != nil {
		return nil, err
	}

	var list envList
	if err := json.Unmarshal([]byte(output), &list); err != nil {
		return nil, model.WrapCLIError(model.ExitCondaError,
			"failed to parse conda env list output", err)
	}

	names := make([]string, 0, len(list.Envs))
	for _, prefix := range list.Envs {
		names = append(names, filepath.Base(prefix))
	}
	return names, nil
}

// EnvExists reports whether an environment with exactly the given name is
// known to conda. Matching is exact on the directory base name — "hcpenv"
// does not match "hcpenv2".
func (m *Manager) EnvExists(ctx context.Context, name string) (bool, error) {
	names, err := m.EnvNames(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// Deactivate runs `conda deactivate`.
//
// A child process cannot alter the invoking shell, so this only clears
// conda state visible to this process tree. It is kept for parity with the
// interactive workflow; callers treat failure as non-fatal.
func (m *Manager) Deactivate(ctx context.Context) error {
	_, err := m.run(ctx, model.ExitCondaError, m.bin, "deactivate")
	return err
}

// RemoveEnv deletes the named environment and all its packages.
//
// This runs `conda remove --name <name> --all --yes`. The --yes flag keeps
// conda from prompting; --all removes the environment itself rather than
// individual packages. Removing a non-existent environment fails, which
// callers that only want a clean slate may ignore.
func (m *Manager) RemoveEnv(ctx context.Context, name string) error {
	_, err := m.run(ctx, model.ExitCondaError, m.bin,
		"remove", "--name", name, "--all", "--yes")
	return err
}

// CreateEnv creates a new environment with the given name and a pinned
// Python interpreter.
//
// This runs `conda create --name <name> python=<version> --yes`. Creation
// can take minutes on a cold package cache; the context allows the caller
// to cancel it.
func (m *Manager) CreateEnv(ctx context.Context, name, pythonVersion string) error {
	_, err := m.run(ctx, model.ExitCondaError, m.bin,
		"create", "--name", name, "python="+pythonVersion, "--yes")
	return err
}

// AddChannel registers an additional package channel in the user's conda
// configuration via `conda config --add channels <channel>`.
//
// Channel configuration is user-level (written to ~/.condarc), not
// per-environment; re-adding an already-registered channel succeeds and
// moves it to the highest priority.
func (m *Manager) AddChannel(ctx context.Context, channel string) error {
	_, err := m.run(ctx, model.ExitCondaError, m.bin,
		"config", "--add", "channels", channel)
	return err
}

// RunPip executes `python -m pip <args...>` inside the named environment
// using `conda run --name <name>`.
//
// `conda run` places the environment's bin directory first on PATH and
// sets the conda activation variables, which is what interactive
// activation would have done. pip failures are classified separately from
// conda's own (model.ExitPipError) so callers can tell a resolver error
// from a broken environment.
func (m *Manager) RunPip(ctx context.Context, envName string, pipArgs ...string) error {
	args := append([]string{"run", "--name", envName, "python", "-m", "pip"}, pipArgs...)
	_, err := m.run(ctx, model.ExitPipError, m.bin, args...)
	return err
}

// runTool executes an external command with the given arguments.
//
// It captures stdout and stderr separately. On success (exit code 0), it
// returns the stdout output. On failure, it returns a model.CLIError with
// the provided exit code class, the trimmed stderr output folded into the
// message, and the process exit status recorded for propagation.
//
// The context is threaded through exec.CommandContext so that long
// operations (environment creation, dependency installation) are killed
// when the CLI is interrupted.
func runTool(ctx context.Context, code model.ExitCode, name string, args ...string) (string, error) {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, name, args...)

	// Capture stdout and stderr separately so we can include stderr
	// in error messages while returning stdout on success.
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("%s %s failed", name, strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}

		// Recover the process exit status when the command ran but exited
		// non-zero. A missing binary or a signal-killed process has no
		// usable status (ExitCode reports -1); the class code stands in
		// for those.
		status := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			status = exitErr.ExitCode()
		}

		return "", model.WrapToolError(code, message, status, err)
	}

	return stdout.String(), nil
}
