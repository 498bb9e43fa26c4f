package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/barsamuebles/cronos/internal/config"
)

// defaultConfig returns a new Config instance with default values.
func defaultConfig(configPath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr: "127.0.0.1:7450",
		},
		Persist: config.PersistConfig{
			QueueSize: 64,
			Timeout:   5 * time.Second,
		},
		Checkpoint: config.CheckpointConfig{
			Schedule: "@every 30s",
		},
		Lifecycle: config.LifecycleConfig{
			ExitWhenIdle: false,
			IdleGrace:    time.Minute,
		},
		Notifications: config.NotificationConfig{
			Enabled: true,
		},
		Log: config.LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		System: config.SystemConfig{
			ConfigPath: configPath,
		},
	}
}

func TestViperWriteConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, defaultConfig(configPath), cfg)

	_, err = os.Stat(configPath)
	require.NoError(t, err, "default config was not written")

	reread, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, cfg, reread)
}

func TestViperReadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	modified := `server:
  addr: 0.0.0.0:9000
persist:
  queue_size: 16
  timeout: 2s
checkpoint:
  schedule: "@every 1m"
lifecycle:
  exit_when_idle: true
  idle_grace: 10s
hooks:
  on_finalize: "sync-papeleta --quiet"
`

	require.NoError(t, os.WriteFile(configPath, []byte(modified), 0o600))

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	want := defaultConfig(configPath)
	want.Server.Addr = "0.0.0.0:9000"
	want.Persist = config.PersistConfig{QueueSize: 16, Timeout: 2 * time.Second}
	want.Checkpoint.Schedule = "@every 1m"
	want.Lifecycle = config.LifecycleConfig{ExitWhenIdle: true, IdleGrace: 10 * time.Second}
	want.Hooks.OnFinalize = "sync-papeleta --quiet"

	assert.Equal(t, want, cfg)
}

func TestEnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	t.Setenv("CRONOS_SERVER_ADDR", "127.0.0.1:8123")

	cfg, err := config.New(config.WithViperConfig(configPath))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8123", cfg.Server.Addr)
}

func TestCLIOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")

	f := flag.NewFlagSet("serve", flag.ContinueOnError)
	_ = f.String("addr", "", "")
	_ = f.String("db", "", "")
	_ = f.String("log-level", "", "")
	_ = f.String("on-finalize", "", "")
	_ = f.Bool("disable-notification", false, "")
	_ = f.Bool("exit-when-idle", false, "")

	require.NoError(t, f.Parse([]string{
		"-addr", "127.0.0.1:9999",
		"-db", "/tmp/other.db",
		"-log-level", "debug",
		"-disable-notification",
	}))

	ctx := cli.NewContext(&cli.App{}, f, nil)

	cfg, err := config.New(
		config.WithPaths(configPath, "/var/lib/cronos.db", "/var/log/cronos.log"),
		config.WithViperConfig(configPath),
		config.WithCLIConfig(ctx),
	)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/other.db", cfg.System.DBPath)
	assert.Equal(t, "/var/log/cronos.log", cfg.System.LogPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Notifications.Enabled)
	assert.False(t, cfg.Lifecycle.ExitWhenIdle)
}

func TestValidate(t *testing.T) {
	table := []struct {
		modify func(c *config.Config)
		name   string
		valid  bool
	}{
		{func(*config.Config) {}, "defaults", true},
		{func(c *config.Config) { c.Server.Addr = "localhost" }, "address without port", false},
		{func(c *config.Config) { c.Persist.QueueSize = 0 }, "empty queue", false},
		{func(c *config.Config) { c.Persist.Timeout = time.Hour }, "long persist timeout", false},
		{func(c *config.Config) { c.Checkpoint.Schedule = "every now and then" }, "bad schedule", false},
		{func(c *config.Config) { c.Checkpoint.Schedule = "" }, "checkpoints disabled", true},
		{func(c *config.Config) { c.Checkpoint.Schedule = "*/5 * * * *" }, "cron expression", true},
		{func(c *config.Config) { c.Lifecycle.IdleGrace = -time.Second }, "negative grace", false},
		{func(c *config.Config) { c.Log.Level = "trace" }, "unknown log level", false},
	}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig("")
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
