package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-audit/internal/storedir"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "siteaudit", cfg.Storage.AppName)
	require.Equal(t, "v1", cfg.Storage.VersionDir)
	require.Equal(t, "sites.json", cfg.Storage.FileName)
	require.Equal(t, "items", cfg.Storage.ItemsKey)
	require.True(t, cfg.Storage.AutoSave)
	require.Equal(t, 64, cfg.Queue.Depth)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "siteaudit", cfg.Telemetry.ServiceName)
	require.InDelta(t, 1.0, cfg.Telemetry.SampleRatio, 0)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
server:
  port: 9090
  shutdown_timeout_seconds: 3
storage:
  dir: /tmp/audit
  app_name: audit
  version_dir: v2
  file_name: registry.json
  items_key: sites
  autosave: false
queue:
  depth: 8
logging:
  development: false
  level: warn
telemetry:
  service_name: audit-api
  sample_ratio: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "registry.json", cfg.Storage.FileName)
	require.Equal(t, "sites", cfg.Storage.ItemsKey)
	require.False(t, cfg.Storage.AutoSave)
	require.Equal(t, 8, cfg.Queue.Depth)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "audit-api", cfg.Telemetry.ServiceName)
	require.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
	require.Equal(t, storedir.Config{
		Root:           "/tmp/audit",
		AppName:        "audit",
		PathComponents: []string{"v2"},
	}, cfg.StoreDir())
}

// Not parallel: t.Setenv forbids it.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SITEAUDIT_SERVER_PORT", "7070")
	t.Setenv("SITEAUDIT_STORAGE_DIR", "/srv/audit")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "/srv/audit", cfg.StoreDir().Root)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{AppName: "siteaudit", FileName: "sites.json", ItemsKey: "items"},
		Queue:   QueueConfig{Depth: 1},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"shutdown":  func(c *Config) { c.Server.ShutdownTimeoutSeconds = -1 },
		"app name":  func(c *Config) { c.Storage.AppName = " " },
		"file name": func(c *Config) { c.Storage.FileName = "a/b.json" },
		"items key": func(c *Config) { c.Storage.ItemsKey = "" },
		"queue":     func(c *Config) { c.Queue.Depth = 0 },
		"sampling":  func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
