// Package bootstrap provisions the conda analysis environment for the
// hcpi CLI.
//
// It implements one fixed, linear sequence: tear down any environment of
// the requested name, create a fresh one with the pinned interpreter,
// register the package channel, and install the dependency manifest and
// the local project into it. Teardown steps are best-effort; provisioning
// steps abort the sequence on first failure. There is no rollback — a
// failed run leaves whatever the failing tool left, and the fix is to run
// it again.
//
// The sequence talks to conda only through the Conda interface, which
// *conda.Manager satisfies in production and scripted fakes satisfy in
// tests.
package bootstrap
