package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// fakeConda is a scripted Conda implementation. Every operation appends a
// short label to ops so tests can assert the exact sequence; per-step
// error fields script failures. EnvExists consumes existsResults in call
// order and defaults to true once exhausted.
type fakeConda struct {
	ops []string

	existsResults []bool
	existsErrs    []error
	existsCalls   int

	deactivateErr error
	removeErr     error
	createErr     error
	channelErr    error
	pipErr        map[string]error // keyed by joined pip args
}

func (f *fakeConda) EnvExists(_ context.Context, name string) (bool, error) {
	f.ops = append(f.ops, "exists "+name)
	i := f.existsCalls
	f.existsCalls++
	if i < len(f.existsErrs) && f.existsErrs[i] != nil {
		return false, f.existsErrs[i]
	}
	if i < len(f.existsResults) {
		return f.existsResults[i], nil
	}
	return true, nil
}

func (f *fakeConda) Deactivate(_ context.Context) error {
	f.ops = append(f.ops, "deactivate")
	return f.deactivateErr
}

func (f *fakeConda) RemoveEnv(_ context.Context, name string) error {
	f.ops = append(f.ops, "remove "+name)
	return f.removeErr
}

func (f *fakeConda) CreateEnv(_ context.Context, name, pythonVersion string) error {
	f.ops = append(f.ops, fmt.Sprintf("create %s python=%s", name, pythonVersion))
	return f.createErr
}

func (f *fakeConda) AddChannel(_ context.Context, channel string) error {
	f.ops = append(f.ops, "channel "+channel)
	return f.channelErr
}

func (f *fakeConda) RunPip(_ context.Context, envName string, pipArgs ...string) error {
	key := strings.Join(pipArgs, " ")
	f.ops = append(f.ops, fmt.Sprintf("pip %s %s", envName, key))
	if f.pipErr != nil {
		return f.pipErr[key]
	}
	return nil
}

// runBootstrap runs the sequence against the fake with a discarded logger
// and returns the completion output.
func runBootstrap(t *testing.T, fake *fakeConda, name string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	b := New(fake, zap.NewNop(), &out)
	err := b.Run(context.Background(), name)
	return out.String(), err
}

// TestRunFullSequence verifies the complete happy path: every step runs
// exactly once, in order, and the completion message names the environment
// and the activation command.
func TestRunFullSequence(t *testing.T) {
	// No pre-existing environment, verification after creation succeeds.
	fake := &fakeConda{existsResults: []bool{false, true}}

	out, err := runBootstrap(t, fake, "testenv")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"exists testenv",
		"remove testenv",
		"create testenv python=3.7",
		"exists testenv",
		"channel bioconda",
		"pip testenv install -r requirements.txt",
		"pip testenv install .",
	}, fake.ops)

	assert.Contains(t, out, `"testenv"`)
	assert.Contains(t, out, "conda activate testenv")
}

// TestRunDeactivatesWhenActive verifies that a known environment triggers
// a deactivation attempt before removal.
func TestRunDeactivatesWhenActive(t *testing.T) {
	fake := &fakeConda{existsResults: []bool{true, true}}

	_, err := runBootstrap(t, fake, "hcpenv")
	require.NoError(t, err)

	require.Greater(t, len(fake.ops), 2)
	assert.Equal(t, "exists hcpenv", fake.ops[0])
	assert.Equal(t, "deactivate", fake.ops[1])
	assert.Equal(t, "remove hcpenv", fake.ops[2])
}

// TestRunTeardownFailuresSuppressed verifies that listing, deactivation,
// and removal failures do not stop the sequence: provisioning still runs
// and the command succeeds.
func TestRunTeardownFailuresSuppressed(t *testing.T) {
	t.Run("listing failure skips deactivation", func(t *testing.T) {
		fake := &fakeConda{
			existsErrs:    []error{errors.New("conda env list failed")},
			existsResults: []bool{false, true},
		}

		_, err := runBootstrap(t, fake, "testenv")
		require.NoError(t, err)
		assert.NotContains(t, fake.ops, "deactivate")
		assert.Contains(t, fake.ops, "create testenv python=3.7")
	})

	t.Run("deactivation failure ignored", func(t *testing.T) {
		fake := &fakeConda{
			existsResults: []bool{true, true},
			deactivateErr: errors.New("conda deactivate failed"),
		}

		_, err := runBootstrap(t, fake, "testenv")
		require.NoError(t, err)
		assert.Contains(t, fake.ops, "pip testenv install .")
	})

	t.Run("removal failure ignored", func(t *testing.T) {
		fake := &fakeConda{
			existsResults: []bool{false, true},
			removeErr:     errors.New("EnvironmentNameNotFound"),
		}

		_, err := runBootstrap(t, fake, "testenv")
		require.NoError(t, err)
		assert.Contains(t, fake.ops, "create testenv python=3.7")
	})
}

// TestRunCreateFailureAborts verifies that a failed creation stops the
// sequence before channel configuration and the install steps, and that
// the tool's error (with its exit status) is returned unchanged.
func TestRunCreateFailureAborts(t *testing.T) {
	toolErr := model.WrapToolError(model.ExitCondaError, "conda create failed", 137, errors.New("exit status 137"))
	fake := &fakeConda{
		existsResults: []bool{false},
		createErr:     toolErr,
	}

	out, err := runBootstrap(t, fake, "testenv")
	require.Error(t, err)

	// The error must be propagated unchanged so the exit handler sees the
	// recorded tool status.
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Same(t, toolErr, cliErr)
	assert.Equal(t, 137, cliErr.ExitStatus())

	for _, op := range fake.ops {
		assert.NotContains(t, op, "channel")
		assert.NotContains(t, op, "pip")
	}
	assert.Empty(t, out, "no completion message after a failed run")
}

// TestRunVerifyFailureAborts verifies that an environment missing from the
// listing after creation is fatal.
func TestRunVerifyFailureAborts(t *testing.T) {
	fake := &fakeConda{existsResults: []bool{false, false}}

	_, err := runBootstrap(t, fake, "testenv")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCondaError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "testenv")

	assert.NotContains(t, fake.ops, "channel bioconda")
}

// TestRunChannelFailureAborts verifies that a failed channel registration
// stops the sequence before any install step.
func TestRunChannelFailureAborts(t *testing.T) {
	fake := &fakeConda{
		existsResults: []bool{false, true},
		channelErr:    model.NewCLIError(model.ExitCondaError, "conda config failed"),
	}

	_, err := runBootstrap(t, fake, "testenv")
	require.Error(t, err)

	for _, op := range fake.ops {
		assert.NotContains(t, op, "pip")
	}
}

// TestRunInstallFailureAborts verifies that a failed dependency install
// stops the sequence before the local project install, preserving the
// pip exit status.
func TestRunInstallFailureAborts(t *testing.T) {
	pipErr := model.WrapToolError(model.ExitPipError, "pip install failed", 1, errors.New("exit status 1"))
	fake := &fakeConda{
		existsResults: []bool{false, true},
		pipErr:        map[string]error{"install -r requirements.txt": pipErr},
	}

	_, err := runBootstrap(t, fake, "testenv")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipErr)

	assert.Contains(t, fake.ops, "pip testenv install -r requirements.txt")
	assert.NotContains(t, fake.ops, "pip testenv install .")
}

// TestRunInvalidName verifies that an invalid environment name fails
// validation before any conda operation runs.
func TestRunInvalidName(t *testing.T) {
	fake := &fakeConda{}

	_, err := runBootstrap(t, fake, "bad/name")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitValidationError, cliErr.Code)
	assert.Empty(t, fake.ops, "no conda operation should run for an invalid name")
}

// TestRunReplacesExisting verifies replace-not-merge semantics: two
// consecutive runs against the same name both succeed, and each run
// performs its own removal and creation.
func TestRunReplacesExisting(t *testing.T) {
	fake := &fakeConda{existsResults: []bool{false, true, true, true}}
	var out bytes.Buffer
	b := New(fake, zap.NewNop(), &out)

	require.NoError(t, b.Run(context.Background(), "dupenv"))
	require.NoError(t, b.Run(context.Background(), "dupenv"))

	removes, creates := 0, 0
	for _, op := range fake.ops {
		switch op {
		case "remove dupenv":
			removes++
		case "create dupenv python=3.7":
			creates++
		}
	}
	assert.Equal(t, 2, removes)
	assert.Equal(t, 2, creates)
}

// TestRunSuppressedFailuresLoggedAtDebug verifies that ignored teardown
// failures are still visible at debug level for diagnosability.
func TestRunSuppressedFailuresLoggedAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fake := &fakeConda{
		existsResults: []bool{true, true},
		deactivateErr: errors.New("deactivate boom"),
		removeErr:     errors.New("remove boom"),
	}

	var out bytes.Buffer
	b := New(fake, zap.New(core), &out)
	require.NoError(t, b.Run(context.Background(), "testenv"))

	debugMessages := make([]string, 0)
	for _, entry := range logs.All() {
		if entry.Level == zap.DebugLevel {
			debugMessages = append(debugMessages, entry.Message)
		}
	}
	assert.Contains(t, debugMessages, "Deactivation failed")
	assert.Contains(t, debugMessages, "Removal failed")
}
