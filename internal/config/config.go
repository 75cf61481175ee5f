// Package config handles loading and validation of hcpi configuration files.
//
// Credentials follow the credentials.json layout used by the lab's other
// HCP tooling. Operators habitually annotate these files, so JSONC
// (comments, trailing commas) is tolerated: github.com/tidwall/jsonc
// strips the extensions before parsing with the standard encoding/json.
//
// Key responsibilities:
//   - Locate credentials.json (flag, HCPI_CREDENTIALS, working directory)
//   - Parse credentials and the optional hcpi.yaml transfer settings
//   - Apply HCPI_* environment overrides
//   - Validate the resolved configuration before any network use
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/genomic-medicine-sweden/hcpi/internal/model"
)

const (
	// CredentialsFile is the default credentials file name, looked up in
	// the working directory when no flag or environment override is given.
	CredentialsFile = "credentials.json"

	// SettingsFile is the optional transfer-tuning file name, looked up in
	// the working directory and next to the credentials file.
	SettingsFile = "hcpi.yaml"

	// MinPartSize is the smallest accepted multipart part size. The S3
	// protocol rejects parts below 5 MiB (except the last), and the local
	// ETag computation must use the same size the uploader does.
	MinPartSize = 5 * 1024 * 1024
)

// Defaults for the hcpi.yaml settings when the file or a key is absent.
const (
	DefaultPartSizeMB          = 8
	DefaultUploadConcurrency   = 4
	DefaultDownloadConcurrency = 4
)

// Credentials is the credentials.json document: the HCP endpoint plus the
// S3-style key pair issued for a tenant. Field names match the file layout
// consumed by the lab's existing tooling, so files are interchangeable.
type Credentials struct {
	// Endpoint is the HCP tenant URL, e.g. "https://vgtn0008.vgregion.se".
	Endpoint string `json:"endpoint"`

	// AccessKeyID is the S3 access key id for the tenant user.
	AccessKeyID string `json:"aws_access_key_id"`

	// SecretAccessKey is the matching S3 secret key.
	SecretAccessKey string `json:"aws_secret_access_key"`
}

// Settings is the optional hcpi.yaml document with transfer tuning.
// Absent keys keep their defaults; the file itself is optional.
type Settings struct {
	// PartSizeMB is the multipart part size in MiB for uploads and for the
	// local ETag computation. Minimum 5 (S3 protocol floor).
	PartSizeMB int `yaml:"part_size_mb"`

	// UploadConcurrency is the number of parallel part uploads.
	UploadConcurrency int `yaml:"upload_concurrency"`

	// DownloadConcurrency is the number of parallel part downloads.
	DownloadConcurrency int `yaml:"download_concurrency"`

	// TLSSkipVerify disables certificate verification. The deployed HCP
	// presents a certificate clients cannot verify, so this defaults on.
	TLSSkipVerify bool `yaml:"tls_skip_verify"`
}

// envOverrides mirrors the HCPI_* environment variables. They sit between
// flags and files in precedence.
type envOverrides struct {
	Endpoint        string `env:"HCPI_ENDPOINT"`
	AccessKeyID     string `env:"HCPI_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"HCPI_SECRET_ACCESS_KEY"`
	Bucket          string `env:"HCPI_BUCKET"`
	Credentials     string `env:"HCPI_CREDENTIALS"`
}

// Config is the fully resolved configuration handed to the HCP client.
type Config struct {
	// Endpoint is the HCP tenant URL (absolute http or https).
	Endpoint string

	// AccessKeyID and SecretAccessKey are the S3-style credentials.
	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the bucket all object operations target.
	Bucket string

	// PartSize is the multipart part size in bytes.
	PartSize int64

	// UploadConcurrency and DownloadConcurrency bound parallel part
	// transfers.
	UploadConcurrency   int
	DownloadConcurrency int

	// TLSSkipVerify disables certificate verification on the endpoint.
	TLSSkipVerify bool
}

// Options carries the flag-level inputs to configuration resolution.
// Empty fields fall through to environment variables and files.
type Options struct {
	// CredentialsPath is the --credentials flag value.
	CredentialsPath string

	// Bucket is the --bucket flag value.
	Bucket string

	// BucketOptional relaxes the bucket requirement for endpoint-level
	// commands (bucket listing), which have no bucket to attach.
	BucketOptional bool
}

// Load resolves the configuration for a storage command.
//
// Resolution order per value is flags > environment > files > defaults.
// The credentials file is required; hcpi.yaml is optional. The returned
// configuration has passed Validate.
func Load(opts Options) (*Config, error) {
	var envs envOverrides
	if err := env.Parse(&envs); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			"failed to parse HCPI_* environment variables", err)
	}

	credPath := opts.CredentialsPath
	if credPath == "" {
		credPath = envs.Credentials
	}
	if credPath == "" {
		credPath = CredentialsFile
	}

	creds, err := LoadCredentials(credPath)
	if err != nil {
		return nil, err
	}

	settings, err := loadSettings(filepath.Dir(credPath))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Endpoint:            creds.Endpoint,
		AccessKeyID:         creds.AccessKeyID,
		SecretAccessKey:     creds.SecretAccessKey,
		Bucket:              envs.Bucket,
		PartSize:            int64(settings.PartSizeMB) * 1024 * 1024,
		UploadConcurrency:   settings.UploadConcurrency,
		DownloadConcurrency: settings.DownloadConcurrency,
		TLSSkipVerify:       settings.TLSSkipVerify,
	}

	// Environment overrides beat file values.
	if envs.Endpoint != "" {
		cfg.Endpoint = envs.Endpoint
	}
	if envs.AccessKeyID != "" {
		cfg.AccessKeyID = envs.AccessKeyID
	}
	if envs.SecretAccessKey != "" {
		cfg.SecretAccessKey = envs.SecretAccessKey
	}

	// Flags beat everything.
	if opts.Bucket != "" {
		cfg.Bucket = opts.Bucket
	}

	if opts.BucketOptional && cfg.Bucket == "" {
		if err := cfg.validateEndpoint(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCredentials reads a credentials file, strips JSONC comments, and
// parses it into a Credentials struct.
//
// Returns a CLIError with ExitConfigError if the file does not exist or
// cannot be parsed.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("credentials file not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read credentials file %s", path), err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. encoding/json silently ignores unknown fields, which keeps
	// old credentials files with extra keys working.
	var creds Credentials
	if err := json.Unmarshal(jsonc.ToJSON(data), &creds); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse credentials file %s", path), err)
	}

	return &creds, nil
}

// loadSettings reads hcpi.yaml from the first of the candidate locations
// that exists: the working directory, then the credentials directory.
// A missing file yields the defaults; a present but unparseable file is a
// configuration error.
func loadSettings(credDir string) (*Settings, error) {
	settings := &Settings{
		PartSizeMB:          DefaultPartSizeMB,
		UploadConcurrency:   DefaultUploadConcurrency,
		DownloadConcurrency: DefaultDownloadConcurrency,
		TLSSkipVerify:       true,
	}

	candidates := []string{
		SettingsFile,
		filepath.Join(credDir, SettingsFile),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		// Unmarshal over the prefilled defaults: keys absent from the file
		// keep their default values.
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to parse settings file %s", path), err)
		}
		break
	}

	return settings, nil
}

// Validate checks the resolved configuration for use by a storage command.
// It runs before any network traffic, so a misconfigured invocation fails
// fast with a configuration error.
func (c *Config) Validate() error {
	if err := c.validateEndpoint(); err != nil {
		return err
	}
	if c.Bucket == "" {
		return model.NewCLIError(model.ExitConfigError,
			"no bucket selected: pass --bucket or set HCPI_BUCKET")
	}
	return nil
}

// validateEndpoint checks the connection-level values every storage
// command needs, attached bucket or not.
func (c *Config) validateEndpoint() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("endpoint must be an absolute http(s) URL, got %q", c.Endpoint))
	}
	if c.AccessKeyID == "" {
		return model.NewCLIError(model.ExitConfigError, "aws_access_key_id is empty")
	}
	if c.SecretAccessKey == "" {
		return model.NewCLIError(model.ExitConfigError, "aws_secret_access_key is empty")
	}
	if c.PartSize < MinPartSize {
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("part_size_mb too small: %d MiB (minimum 5)", c.PartSize/(1024*1024)))
	}
	return nil
}
