package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (LABELCTL_BASE_URL, ...).
const EnvPrefix = "LABELCTL"

func homeDirOrFallback() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// BaseURL is the root URL of the label management backend (serves /api/...).
	BaseURL string `json:"base_url" mapstructure:"base_url"`
	// CatalogueURL is the root URL of the catalogue proxy (serves /CatalogueService and /MilkyWay).
	CatalogueURL string `json:"catalogue_url" mapstructure:"catalogue_url"`
	// CatalogueToken is sent as a bearer token on catalogue calls.
	CatalogueToken string `json:"catalogue_token" mapstructure:"catalogue_token"`
	// Organisation is sent as X-Organisation and as the organisation query parameter.
	Organisation string `json:"organisation" mapstructure:"organisation"`
	// ImageCDNHost is the host product images are served from.
	ImageCDNHost string `json:"image_cdn_host" mapstructure:"image_cdn_host"`
	// RequestsPerSecond rate-limits HTTP requests.
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`
	// RequestTimeoutSeconds bounds JSON calls. Downloads are bounded by context only.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	// MaxConcurrentUploads caps bulk upload parallelism. 0 means unlimited.
	MaxConcurrentUploads int `json:"max_concurrent_uploads" mapstructure:"max_concurrent_uploads"`
	// DownloadDir is where bulk label archives and previews are saved.
	DownloadDir string `json:"download_dir" mapstructure:"download_dir"`
	// ToastSeconds overrides the per-view notification lifetime when > 0.
	ToastSeconds int `json:"toast_seconds" mapstructure:"toast_seconds"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" mapstructure:"log_level"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home := homeDirOrFallback()
	return &Config{
		BaseURL:               "http://localhost:8080",
		CatalogueURL:          "http://localhost:4200",
		CatalogueToken:        "",
		Organisation:          "default",
		ImageCDNHost:          "s1.thcdn.com",
		RequestsPerSecond:     10.0,
		RequestTimeoutSeconds: 30,
		MaxConcurrentUploads:  0,
		DownloadDir:           filepath.Join(home, "Downloads", "labels"),
		ToastSeconds:          0,
		LogLevel:              "info",
	}
}

// RequestTimeout returns the JSON request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		if expanded, err := homedir.Expand(dir); err == nil {
			return expanded
		}
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "labelctl")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// JournalPath returns the path to the SQLite upload journal.
func JournalPath() string {
	return filepath.Join(ConfigDir(), "uploads.db")
}

// StoreDir returns the directory backing the local key/value store.
func StoreDir() string {
	return filepath.Join(ConfigDir(), "store")
}

// LogPath returns the path of the log file used while the TUI owns the terminal.
func LogPath() string {
	return filepath.Join(ConfigDir(), "labelctl.log")
}

// Load reads config from disk, returning defaults if the file doesn't exist.
// Values from a .env file in the working directory and LABELCTL_* environment
// variables take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if _, err := os.Stat(ConfigPath()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := DefaultConfig().Save(); err != nil {
			return nil, err
		}
	}

	v := newViper()
	v.SetConfigFile(ConfigPath())
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigPath(), err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("catalogue_url", def.CatalogueURL)
	v.SetDefault("catalogue_token", def.CatalogueToken)
	v.SetDefault("organisation", def.Organisation)
	v.SetDefault("image_cdn_host", def.ImageCDNHost)
	v.SetDefault("requests_per_second", def.RequestsPerSecond)
	v.SetDefault("request_timeout_seconds", def.RequestTimeoutSeconds)
	v.SetDefault("max_concurrent_uploads", def.MaxConcurrentUploads)
	v.SetDefault("download_dir", def.DownloadDir)
	v.SetDefault("toast_seconds", def.ToastSeconds)
	v.SetDefault("log_level", def.LogLevel)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if expanded, err := homedir.Expand(cfg.DownloadDir); err == nil {
		cfg.DownloadDir = expanded
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.CatalogueURL = strings.TrimRight(cfg.CatalogueURL, "/")
	if cfg.Organisation == "" {
		cfg.Organisation = "default"
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
