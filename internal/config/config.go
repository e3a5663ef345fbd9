package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable that overrides ImageGenConfig.APIKey when set.
const EnvAPIKey = "GEMINI_API_KEY"

const (
	defaultListen       = "127.0.0.1:8080"
	defaultDataDir      = "data"
	defaultLogLevel     = "info"
	defaultTimeout      = 60
	defaultPNGRatio     = 3
	defaultPDFRatio     = 2
	defaultProvider     = "gemini"
	defaultModel        = "imagen-4.0-generate-001"
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultMaxBytes     = 10 << 20
	defaultMaxDimension = 2400
	defaultTimezone     = "Europe/Paris"
)

// DefaultPrompt asks for a text-free deep-space background.
const DefaultPrompt = "A professional scientific poster background, astrophysics theme, deep space, " +
	"dark blue and purple nebula, distant stars, clean void areas for text overlay, " +
	"subtle geometric constellation lines, high resolution, minimal aesthetic"

// BasicAuthConfig holds HTTP Basic Auth credentials for the editor and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ChromiumConfig controls the headless browser used for exports.
type ChromiumConfig struct {
	// ExecPath points at a Chromium binary. Empty uses chromedp's lookup.
	ExecPath string `yaml:"exec_path" json:"exec_path"`
	// TimeoutSeconds bounds a single rasterization.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
	// PNGPixelRatio is the device scale factor for PNG exports.
	PNGPixelRatio float64 `yaml:"png_pixel_ratio" json:"png_pixel_ratio"`
	// PDFPixelRatio is the device scale factor of the bitmap embedded in PDFs.
	PDFPixelRatio float64 `yaml:"pdf_pixel_ratio" json:"pdf_pixel_ratio"`
}

// ImageGenConfig configures the background image generator.
type ImageGenConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	APIKey   string `yaml:"api_key" json:"-"`
	Model    string `yaml:"model" json:"model"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
	Prompt   string `yaml:"prompt" json:"prompt"`
}

// Enabled reports whether a key is available.
func (c ImageGenConfig) Enabled() bool {
	return c.APIKey != ""
}

// UploadConfig limits and normalizes uploaded images.
type UploadConfig struct {
	MaxBytes     int64 `yaml:"max_bytes" json:"max_bytes"`
	MaxDimension int   `yaml:"max_dimension" json:"max_dimension"`
}

// SnapshotConfig schedules periodic preview renders.
type SnapshotConfig struct {
	// Cron is a 5-field cron schedule. Empty disables snapshots.
	Cron string `yaml:"cron" json:"cron"`
}

// ICSConfig controls calendar imports.
type ICSConfig struct {
	// Timezone is the IANA zone used for entry times (e.g. "Europe/Paris").
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the editor and API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds preview snapshots.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Chromium ChromiumConfig `yaml:"chromium" json:"chromium"`

	ImageGeneration ImageGenConfig `yaml:"image_generation" json:"image_generation"`

	Uploads UploadConfig `yaml:"uploads" json:"uploads"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	ICS ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		DataDir:  defaultDataDir,
		LogLevel: defaultLogLevel,
		Chromium: ChromiumConfig{
			TimeoutSeconds: defaultTimeout,
			PNGPixelRatio:  defaultPNGRatio,
			PDFPixelRatio:  defaultPDFRatio,
		},
		ImageGeneration: ImageGenConfig{
			Provider: defaultProvider,
			Model:    defaultModel,
			BaseURL:  defaultBaseURL,
			Prompt:   DefaultPrompt,
		},
		Uploads: UploadConfig{
			MaxBytes:     defaultMaxBytes,
			MaxDimension: defaultMaxDimension,
		},
		Snapshot: SnapshotConfig{Cron: ""},
		ICS:      ICSConfig{Timezone: defaultTimezone},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled files still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		c.LogLevel = defaultLogLevel
	}

	if c.Chromium.TimeoutSeconds <= 0 {
		c.Chromium.TimeoutSeconds = defaultTimeout
	}
	if c.Chromium.PNGPixelRatio <= 0 {
		c.Chromium.PNGPixelRatio = defaultPNGRatio
	}
	if c.Chromium.PDFPixelRatio <= 0 {
		c.Chromium.PDFPixelRatio = defaultPDFRatio
	}

	if c.ImageGeneration.Provider == "" {
		c.ImageGeneration.Provider = defaultProvider
	}
	if c.ImageGeneration.Model == "" {
		c.ImageGeneration.Model = defaultModel
	}
	if c.ImageGeneration.BaseURL == "" {
		c.ImageGeneration.BaseURL = defaultBaseURL
	}
	c.ImageGeneration.BaseURL = strings.TrimRight(c.ImageGeneration.BaseURL, "/")
	if strings.TrimSpace(c.ImageGeneration.Prompt) == "" {
		c.ImageGeneration.Prompt = DefaultPrompt
	}

	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = defaultMaxBytes
	}
	if c.Uploads.MaxDimension <= 0 {
		c.Uploads.MaxDimension = defaultMaxDimension
	}

	c.Snapshot.Cron = strings.TrimSpace(c.Snapshot.Cron)

	if c.ICS.Timezone == "" {
		c.ICS.Timezone = defaultTimezone
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// ApplyEnv overrides file values from the environment.
func (c *Config) ApplyEnv() {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		c.ImageGeneration.APIKey = key
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled over the defaults and normalized.
//
// Environment overrides are applied in both cases but never written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			err := Save(path, cfg)
			cfg.ApplyEnv()
			return cfg, err
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with the
// parent directory created 0700 and the final file 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".postergen-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
