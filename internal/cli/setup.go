// Package cli — setup.go implements the "hcpi setup" command.
//
// The setup command provisions the conda environment the analysis
// pipelines run in. It tears down any environment of the requested name,
// creates a fresh one with the pinned Python version, registers the
// bioconda channel, and installs the dependency manifest and the local
// project into it. The sequence itself lives in internal/bootstrap; this
// file only wires flags, the conda manager, and the logger together.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/genomic-medicine-sweden/hcpi/internal/bootstrap"
	"github.com/genomic-medicine-sweden/hcpi/internal/conda"
	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// NewSetupCommand creates the "setup" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup [name]",
		Short: "Provision the conda analysis environment",
		Long: `Provision a clean conda environment for the analysis pipelines.

Any existing environment of the same name is removed first, so re-running
setup replaces the environment rather than merging into it. The new
environment gets Python ` + model.PythonVersion + `, the ` + model.CondaChannel + ` channel, the packages
from ` + model.RequirementsFile + `, and the local project.

Requires conda on PATH and a ` + model.RequirementsFile + ` plus an installable project
in the working directory. Credentials are not needed.

Examples:
  hcpi setup
  hcpi setup testenv
  hcpi setup --verbose`,

		// At most one positional argument: the environment name.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.DefaultEnvName
			if len(args) == 1 {
				name = args[0]
			}
			return runSetup(cmd, name)
		},
	}

	return cmd
}

// runSetup is the main logic function for the setup command. The
// bootstrapper owns the sequence; the completion message goes to stdout.
func runSetup(cmd *cobra.Command, name string) error {
	b := bootstrap.New(conda.NewManager(), Logger(), os.Stdout)
	return b.Run(cmd.Context(), name)
}
