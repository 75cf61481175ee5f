package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

// clearEnv blanks all HCPI_* variables for the duration of the test, so
// results do not depend on the developer's shell environment. t.Setenv
// restores the originals automatically.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HCPI_ENDPOINT", "HCPI_ACCESS_KEY_ID", "HCPI_SECRET_ACCESS_KEY",
		"HCPI_BUCKET", "HCPI_CREDENTIALS",
	} {
		t.Setenv(key, "")
	}
}

// writeFile creates a file with the given content inside dir and returns
// its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoadCredentials verifies parsing of a credentials file in the
// JSONC-tolerant layout used by the lab's tooling, including comments and
// a trailing comma.
func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "credentials.json", `{
	// Tenant issued 2021, rotate on request.
	"endpoint": "https://vgtn0008.example.se",
	"aws_access_key_id": "AKIA0008",
	"aws_secret_access_key": "secret0008",
}`)

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "https://vgtn0008.example.se", creds.Endpoint)
	assert.Equal(t, "AKIA0008", creds.AccessKeyID)
	assert.Equal(t, "secret0008", creds.SecretAccessKey)
}

// TestLoadCredentialsNotFound verifies the configuration error for a
// missing credentials file.
func TestLoadCredentialsNotFound(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
	assert.Contains(t, cliErr.Message, "not found")
}

// TestLoadCredentialsBadJSON verifies the configuration error for an
// unparseable credentials file.
func TestLoadCredentialsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "credentials.json", `{"endpoint": `)

	_, err := LoadCredentials(path)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// TestLoadDefaults verifies a full resolution with only a credentials file
// present: transfer settings fall back to their defaults.
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials.json",
		`{"endpoint": "https://hcp.example.se", "aws_access_key_id": "ak", "aws_secret_access_key": "sk"}`)

	cfg, err := Load(Options{CredentialsPath: credPath, Bucket: "ngs-data"})
	require.NoError(t, err)

	assert.Equal(t, "https://hcp.example.se", cfg.Endpoint)
	assert.Equal(t, "ngs-data", cfg.Bucket)
	assert.Equal(t, int64(DefaultPartSizeMB)*1024*1024, cfg.PartSize)
	assert.Equal(t, DefaultUploadConcurrency, cfg.UploadConcurrency)
	assert.Equal(t, DefaultDownloadConcurrency, cfg.DownloadConcurrency)
	assert.True(t, cfg.TLSSkipVerify)
}

// TestLoadSettingsFile verifies that an hcpi.yaml next to the credentials
// file overrides transfer defaults, and that absent keys keep theirs.
func TestLoadSettingsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials.json",
		`{"endpoint": "https://hcp.example.se", "aws_access_key_id": "ak", "aws_secret_access_key": "sk"}`)
	writeFile(t, dir, "hcpi.yaml", "part_size_mb: 16\ntls_skip_verify: false\n")

	cfg, err := Load(Options{CredentialsPath: credPath, Bucket: "ngs-data"})
	require.NoError(t, err)

	assert.Equal(t, int64(16)*1024*1024, cfg.PartSize)
	assert.False(t, cfg.TLSSkipVerify)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, DefaultUploadConcurrency, cfg.UploadConcurrency)
	assert.Equal(t, DefaultDownloadConcurrency, cfg.DownloadConcurrency)
}

// TestLoadEnvOverrides verifies precedence between environment variables,
// file values, and flags.
func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials.json",
		`{"endpoint": "https://file.example.se", "aws_access_key_id": "file-ak", "aws_secret_access_key": "file-sk"}`)

	t.Setenv("HCPI_ENDPOINT", "https://env.example.se")
	t.Setenv("HCPI_ACCESS_KEY_ID", "env-ak")
	t.Setenv("HCPI_BUCKET", "env-bucket")

	t.Run("environment beats file", func(t *testing.T) {
		cfg, err := Load(Options{CredentialsPath: credPath})
		require.NoError(t, err)

		assert.Equal(t, "https://env.example.se", cfg.Endpoint)
		assert.Equal(t, "env-ak", cfg.AccessKeyID)
		assert.Equal(t, "file-sk", cfg.SecretAccessKey, "unset variable falls through to the file")
		assert.Equal(t, "env-bucket", cfg.Bucket)
	})

	t.Run("flag beats environment", func(t *testing.T) {
		cfg, err := Load(Options{CredentialsPath: credPath, Bucket: "flag-bucket"})
		require.NoError(t, err)
		assert.Equal(t, "flag-bucket", cfg.Bucket)
	})
}

// TestLoadCredentialsPathFromEnv verifies that HCPI_CREDENTIALS locates
// the credentials file when no flag is given.
func TestLoadCredentialsPathFromEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	credPath := writeFile(t, dir, "tenant.json",
		`{"endpoint": "https://hcp.example.se", "aws_access_key_id": "ak", "aws_secret_access_key": "sk"}`)
	t.Setenv("HCPI_CREDENTIALS", credPath)

	cfg, err := Load(Options{Bucket: "ngs-data"})
	require.NoError(t, err)
	assert.Equal(t, "ak", cfg.AccessKeyID)
}

// TestValidate checks each validation rule in isolation.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Endpoint:        "https://hcp.example.se",
			AccessKeyID:     "ak",
			SecretAccessKey: "sk",
			Bucket:          "ngs-data",
			PartSize:        8 * 1024 * 1024,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"relative endpoint", func(c *Config) { c.Endpoint = "hcp.example.se" }, "absolute http(s) URL"},
		{"unsupported scheme", func(c *Config) { c.Endpoint = "ftp://hcp.example.se" }, "absolute http(s) URL"},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, "absolute http(s) URL"},
		{"empty access key", func(c *Config) { c.AccessKeyID = "" }, "aws_access_key_id"},
		{"empty secret key", func(c *Config) { c.SecretAccessKey = "" }, "aws_secret_access_key"},
		{"empty bucket", func(c *Config) { c.Bucket = "" }, "no bucket selected"},
		{"part size below minimum", func(c *Config) { c.PartSize = 4 * 1024 * 1024 }, "part_size_mb too small"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitConfigError, cliErr.Code)
			assert.Contains(t, cliErr.Message, tt.message)
		})
	}
}

// TestLoadBucketOptional verifies that endpoint-level commands (bucket
// listing) resolve a configuration without a bucket, while connection
// values are still validated.
func TestLoadBucketOptional(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	credPath := writeFile(t, dir, "credentials.json",
		`{"endpoint": "https://hcp.example.se", "aws_access_key_id": "ak", "aws_secret_access_key": "sk"}`)

	cfg, err := Load(Options{CredentialsPath: credPath, BucketOptional: true})
	require.NoError(t, err)
	assert.Empty(t, cfg.Bucket)

	// A bucket given anyway is kept and fully validated.
	cfg, err = Load(Options{CredentialsPath: credPath, Bucket: "ngs-data", BucketOptional: true})
	require.NoError(t, err)
	assert.Equal(t, "ngs-data", cfg.Bucket)

	// Connection problems still fail, bucket or no bucket.
	badPath := writeFile(t, dir, "bad.json",
		`{"endpoint": "https://hcp.example.se", "aws_access_key_id": "", "aws_secret_access_key": "sk"}`)
	_, err = Load(Options{CredentialsPath: badPath, BucketOptional: true})
	require.Error(t, err)
}
