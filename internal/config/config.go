// Package config loads and validates site-audit configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/site-audit/internal/storedir"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// StorageConfig locates the persisted site registry.
type StorageConfig struct {
	// Dir overrides the platform data directory.
	Dir        string `mapstructure:"dir"`
	AppName    string `mapstructure:"app_name"`
	VersionDir string `mapstructure:"version_dir"`
	FileName   string `mapstructure:"file_name"`
	ItemsKey   string `mapstructure:"items_key"`
	AutoSave   bool   `mapstructure:"autosave"`
}

// QueueConfig sizes the main queue.
type QueueConfig struct {
	Depth int `mapstructure:"depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig names the service in emitted traces.
type TelemetryConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	// SampleRatio is the fraction of root spans recorded, 0 through 1.
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment. Environment variables use the
// SITEAUDIT_ prefix with dots replaced by underscores.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.app_name", "siteaudit")
	v.SetDefault("storage.version_dir", "v1")
	v.SetDefault("storage.file_name", "sites.json")
	v.SetDefault("storage.items_key", "items")
	v.SetDefault("storage.autosave", true)
	v.SetDefault("queue.depth", 64)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("telemetry.service_name", "siteaudit")
	v.SetDefault("telemetry.service_version", "dev")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be in 1..65535", ErrInvalid)
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("%w: server.shutdown_timeout_seconds must be >= 0", ErrInvalid)
	}
	if strings.TrimSpace(c.Storage.AppName) == "" {
		return fmt.Errorf("%w: storage.app_name must be set", ErrInvalid)
	}
	if strings.TrimSpace(c.Storage.FileName) == "" || strings.ContainsAny(c.Storage.FileName, `/\`) {
		return fmt.Errorf("%w: storage.file_name must be a bare file name", ErrInvalid)
	}
	if strings.TrimSpace(c.Storage.ItemsKey) == "" {
		return fmt.Errorf("%w: storage.items_key must be set", ErrInvalid)
	}
	if c.Queue.Depth <= 0 {
		return fmt.Errorf("%w: queue.depth must be > 0", ErrInvalid)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: telemetry.sample_ratio must be in 0..1", ErrInvalid)
	}
	return nil
}

// StoreDir converts the storage section into a storedir.Config.
func (c Config) StoreDir() storedir.Config {
	var parts []string
	if c.Storage.VersionDir != "" {
		parts = []string{c.Storage.VersionDir}
	}
	return storedir.Config{
		Root:           c.Storage.Dir,
		AppName:        c.Storage.AppName,
		PathComponents: parts,
	}
}

// ShutdownTimeout is the grace period for in-flight requests.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
