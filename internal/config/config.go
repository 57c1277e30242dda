package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for cadmin.
type Config struct {
	OperatorID string         `toml:"operator_id"`
	BaseDir    string         `toml:"base_dir"`
	LogDir     string         `toml:"log_dir"`
	API        APIConfig      `toml:"api"`
	Session    SessionConfig  `toml:"session"`
	Database   DatabaseConfig `toml:"database"`
	Archive    ArchiveConfig  `toml:"archive"`
	Limits     LimitsConfig   `toml:"limits"`
}

// APIConfig points the console at the backing API.
type APIConfig struct {
	BaseURL       string `toml:"base_url"`
	Timeout       int    `toml:"timeout"`        // seconds, plain requests; defaults to 30
	UploadTimeout int    `toml:"upload_timeout"` // seconds, multipart submissions; defaults to 120
}

// SessionConfig represents where the login session is kept between invocations.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SessionConfig struct {
	Type         string `toml:"type"`                    // "file" (default) or "memory"
	Path         string `toml:"path,omitempty"`          // only used for type=file
	IdentityPath string `toml:"identity_path,omitempty"` // age identity, only used for type=file
	TTLHours     int    `toml:"ttl_hours,omitempty"`     // defaults to 24
}

// DatabaseConfig represents configuration for the operation history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ArchiveConfig represents configuration for the app package archive.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ArchiveConfig struct {
	Type string `toml:"type"` // "none" (default), "memory", "filesystem", or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// Optional S3-compatible endpoint and static keys; the default AWS
	// credential chain is used when the keys are empty.
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// LimitsConfig overrides the upload limits. Zero values use the defaults.
type LimitsConfig struct {
	ImageMaxBytes    int64 `toml:"image_max_bytes,omitempty"`
	BannerMaxImages  int   `toml:"banner_max_images,omitempty"`
	ProductMaxImages int   `toml:"product_max_images,omitempty"`
	PackageMaxBytes  int64 `toml:"package_max_bytes,omitempty"`
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(operatorID, baseDir string) *Config {
	return &Config{
		OperatorID: operatorID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		API: APIConfig{
			BaseURL:       "http://localhost:5000/api",
			Timeout:       30,
			UploadTimeout: 120,
		},
		Session: SessionConfig{
			Type:         "file",
			Path:         filepath.Join(baseDir, "session.age"),
			IdentityPath: filepath.Join(baseDir, "keys", "session.key"),
			TTLHours:     24,
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Archive:  ArchiveConfig{Type: "none"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
