// Package bootstrap — bootstrap.go implements the environment
// provisioning sequence behind `hcpi setup`.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// Conda is the subset of conda operations the bootstrapper needs.
// *conda.Manager satisfies it; tests substitute scripted fakes.
type Conda interface {
	// EnvExists reports whether an environment with exactly this name is
	// known to conda.
	EnvExists(ctx context.Context, name string) (bool, error)

	// Deactivate runs `conda deactivate` in this process tree.
	Deactivate(ctx context.Context) error

	// RemoveEnv deletes the named environment and all its packages.
	RemoveEnv(ctx context.Context, name string) error

	// CreateEnv creates the named environment with a pinned Python version.
	CreateEnv(ctx context.Context, name, pythonVersion string) error

	// AddChannel registers a package channel in the user configuration.
	AddChannel(ctx context.Context, channel string) error

	// RunPip executes `python -m pip <args...>` inside the named environment.
	RunPip(ctx context.Context, envName string, pipArgs ...string) error
}

// Bootstrapper runs the fixed provisioning sequence against a Conda
// implementation. The completion message is written to out (stdout in
// production); progress and suppressed-failure diagnostics go through the
// logger.
type Bootstrapper struct {
	conda Conda
	log   *zap.Logger
	out   io.Writer
}

// New creates a Bootstrapper. A nil logger is replaced with a no-op
// logger so call sites without logging configured still work.
func New(c Conda, log *zap.Logger, out io.Writer) *Bootstrapper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bootstrapper{conda: c, log: log, out: out}
}

// Run provisions the named environment from scratch.
//
// The sequence is:
//  1. Validate the environment name.
//  2. If an environment of that name is known, attempt `conda deactivate`.
//     Failures here (listing or deactivation) are logged at debug level
//     and otherwise ignored.
//  3. Remove any existing environment of that name. Failure (typically:
//     it did not exist) is logged at debug level and otherwise ignored.
//  4. Create the environment with the pinned Python version. Fatal.
//  5. Verify the new environment resolves in conda's listing. Activation
//     cannot cross the process boundary, so this verification plus
//     explicit `conda run --name` targeting of the install steps stands
//     in for it. Fatal.
//  6. Register the package channel. Fatal.
//  7. Install the dependency manifest with pip. The manifest is handed to
//     pip verbatim; hcpi neither reads nor validates it. Fatal.
//  8. Install the local project with pip. Fatal.
//  9. Print the completion message naming the environment and how to
//     activate it in an interactive shell.
//
// Fatal failures abort immediately and are returned unchanged, so the
// wrapped tool exit status survives to the process exit handler. Re-runs
// against the same name replace the environment rather than merging into
// it.
func (b *Bootstrapper) Run(ctx context.Context, name string) error {
	if err := model.ValidateEnvName(name); err != nil {
		return model.WrapCLIError(model.ExitValidationError, "invalid environment name", err)
	}

	b.log.Info("Checking for existing environment", zap.String("env", name))
	exists, err := b.conda.EnvExists(ctx, name)
	switch {
	case err != nil:
		b.log.Debug("Environment listing failed, skipping deactivation", zap.Error(err))
	case exists:
		if err := b.conda.Deactivate(ctx); err != nil {
			b.log.Debug("Deactivation failed", zap.Error(err))
		}
	}

	b.log.Info("Removing existing environment", zap.String("env", name))
	if err := b.conda.RemoveEnv(ctx, name); err != nil {
		b.log.Debug("Removal failed", zap.String("env", name), zap.Error(err))
	}

	b.log.Info("Creating environment",
		zap.String("env", name), zap.String("python", model.PythonVersion))
	if err := b.conda.CreateEnv(ctx, name, model.PythonVersion); err != nil {
		return err
	}

	b.log.Info("Verifying environment", zap.String("env", name))
	exists, err = b.conda.EnvExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return model.NewCLIError(model.ExitCondaError,
			fmt.Sprintf("environment %q not present after creation", name))
	}

	b.log.Info("Registering package channel", zap.String("channel", model.CondaChannel))
	if err := b.conda.AddChannel(ctx, model.CondaChannel); err != nil {
		return err
	}

	b.log.Info("Installing dependencies", zap.String("manifest", model.RequirementsFile))
	if err := b.conda.RunPip(ctx, name, "install", "-r", model.RequirementsFile); err != nil {
		return err
	}

	b.log.Info("Installing local project", zap.String("env", name))
	if err := b.conda.RunPip(ctx, name, "install", "."); err != nil {
		return err
	}

	fmt.Fprintf(b.out, "Environment %q is ready. Activate it in new shells with:\n\n    conda activate %s\n", name, name)
	return nil
}
