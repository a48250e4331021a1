package snapshot

import (
	"os"
	"path/filepath"
)

// Config holds the full snapshot system configuration
type Config struct {
	// Root is the directory under which snapshot directories are created
	Root string `mapstructure:"root" yaml:"root" json:"root"`

	Sources     SourcesConfig     `mapstructure:"sources" yaml:"sources" json:"sources"`
	Retention   RetentionConfig   `mapstructure:"retention" yaml:"retention" json:"retention"`
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression" json:"compression"`
	Encryption  EncryptionConfig  `mapstructure:"encryption" yaml:"encryption" json:"encryption"`
	Offsite     OffsiteConfig     `mapstructure:"offsite" yaml:"offsite" json:"offsite"`
	Validation  ValidationConfig  `mapstructure:"validation" yaml:"validation" json:"validation"`
}

// SourcesConfig names the live data to snapshot
type SourcesConfig struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path" json:"database_path"`
	UploadsDir   string `mapstructure:"uploads_dir" yaml:"uploads_dir" json:"uploads_dir"`
}

// RetentionConfig controls pruning of old snapshots
type RetentionConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	// MaxCount of 0 means no count limit
	MaxCount int `mapstructure:"max_count" yaml:"max_count" json:"max_count"`
	// KeepSafety preserves safety snapshots regardless of age
	KeepSafety bool `mapstructure:"keep_safety" yaml:"keep_safety" json:"keep_safety"`
}

// CompressionConfig selects the uploads archive codec
type CompressionConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm" json:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level" json:"level"`
}

// EncryptionConfig enables at-rest encryption of archive members
type EncryptionConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	// PassphraseEnv names the environment variable holding the passphrase
	PassphraseEnv string `mapstructure:"passphrase_env" yaml:"passphrase_env" json:"passphrase_env"`
}

// OffsiteConfig enables replication of snapshots to remote storage
type OffsiteConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Provider string `mapstructure:"provider" yaml:"provider" json:"provider"`

	S3    S3Config    `mapstructure:"s3" yaml:"s3" json:"s3"`
	GCS   GCSConfig   `mapstructure:"gcs" yaml:"gcs" json:"gcs"`
	Azure AzureConfig `mapstructure:"azure" yaml:"azure" json:"azure"`
}

// S3Config holds AWS S3 settings
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Region    string `mapstructure:"region" yaml:"region" json:"region"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"-" json:"-"`
	SecretKey string `mapstructure:"secret_key" yaml:"-" json:"-"`
}

// GCSConfig holds Google Cloud Storage settings
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
}

// AzureConfig holds Azure Blob Storage settings
type AzureConfig struct {
	Container   string `mapstructure:"container" yaml:"container" json:"container"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	AccountName string `mapstructure:"account_name" yaml:"account_name" json:"account_name"`
	AccountKey  string `mapstructure:"account_key" yaml:"-" json:"-"`
}

// ValidationConfig controls verification behaviour
type ValidationConfig struct {
	VerifyAfterCreate bool `mapstructure:"verify_after_create" yaml:"verify_after_create" json:"verify_after_create"`
	IntegrityCheck    bool `mapstructure:"integrity_check" yaml:"integrity_check" json:"integrity_check"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Root: "backups",
		Sources: SourcesConfig{
			DatabasePath: filepath.Join("data", "app.db"),
			UploadsDir:   filepath.Join("data", "uploads"),
		},
		Retention: RetentionConfig{
			Enabled:    true,
			MaxAgeDays: 30,
			MaxCount:   0,
			KeepSafety: true,
		},
		Compression: CompressionConfig{
			Algorithm: "gzip",
			Level:     6,
		},
		Encryption: EncryptionConfig{
			Enabled:       false,
			PassphraseEnv: "KABU_VAULT_PASSPHRASE",
		},
		Offsite: OffsiteConfig{
			Enabled:  false,
			Provider: "s3",
		},
		Validation: ValidationConfig{
			VerifyAfterCreate: true,
			IntegrityCheck:    true,
		},
	}
}

// Validate checks the configuration for problems
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Root == "" {
		errs.Add("root", "snapshot root directory is required", c.Root)
	}
	if c.Sources.DatabasePath == "" {
		errs.Add("sources.database_path", "database path is required", c.Sources.DatabasePath)
	}
	if c.Retention.MaxAgeDays < 0 {
		errs.Add("retention.max_age_days", "must not be negative", c.Retention.MaxAgeDays)
	}
	if c.Retention.MaxCount < 0 {
		errs.Add("retention.max_count", "must not be negative", c.Retention.MaxCount)
	}

	switch c.Compression.Algorithm {
	case "gzip", "zstd", "lz4", "none", "":
	default:
		errs.Add("compression.algorithm", "must be one of: gzip, zstd, lz4, none", c.Compression.Algorithm)
	}

	if c.Encryption.Enabled {
		if c.Encryption.PassphraseEnv == "" {
			errs.Add("encryption.passphrase_env", "required when encryption is enabled", "")
		} else if os.Getenv(c.Encryption.PassphraseEnv) == "" {
			errs.Add("encryption.passphrase_env", "environment variable is not set", c.Encryption.PassphraseEnv)
		}
	}

	if c.Offsite.Enabled {
		switch c.Offsite.Provider {
		case "s3":
			if c.Offsite.S3.Bucket == "" {
				errs.Add("offsite.s3.bucket", "bucket is required for s3 offsite storage", "")
			}
			if c.Offsite.S3.Region == "" {
				errs.Add("offsite.s3.region", "region is required for s3 offsite storage", "")
			}
		case "gcs":
			if c.Offsite.GCS.Bucket == "" {
				errs.Add("offsite.gcs.bucket", "bucket is required for gcs offsite storage", "")
			}
		case "azure":
			if c.Offsite.Azure.Container == "" {
				errs.Add("offsite.azure.container", "container is required for azure offsite storage", "")
			}
			if c.Offsite.Azure.AccountName == "" {
				errs.Add("offsite.azure.account_name", "account name is required for azure offsite storage", "")
			}
		default:
			errs.Add("offsite.provider", "must be one of: s3, gcs, azure", c.Offsite.Provider)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Passphrase resolves the encryption passphrase from the environment
func (c *Config) Passphrase() string {
	if c.Encryption.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Encryption.PassphraseEnv)
}
