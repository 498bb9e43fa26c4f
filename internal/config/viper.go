package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// viperKeys defines the mapping between config keys and their Viper counterparts.
const (
	keyServerAddr           = "server.addr"
	keyPersistQueueSize     = "persist.queue_size"
	keyPersistTimeout       = "persist.timeout"
	keyCheckpointSchedule   = "checkpoint.schedule"
	keyExitWhenIdle         = "lifecycle.exit_when_idle"
	keyIdleGrace            = "lifecycle.idle_grace"
	keyNotificationsEnabled = "notifications.enabled"
	keyOnFinalize           = "hooks.on_finalize"
	keyLogLevel             = "log.level"
	keyLogMaxSize           = "log.max_size_mb"
	keyLogMaxBackups        = "log.max_backups"
)

// WithViperConfig returns an Option that loads configuration from Viper.
// A config file holding the defaults is written if none exists. Any key can
// be overridden through a CRONOS_ prefixed environment variable, e.g.
// CRONOS_SERVER_ADDR.
func WithViperConfig(configPath string) Option {
	return func(c *Config) error {
		v := viper.New()

		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		v.SetEnvPrefix("cronos")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		setupViper(v)

		c.System.ConfigPath = configPath

		err := v.ReadInConfig()
		if err == nil {
			return loadViperConfig(v, c)
		}

		if !errors.Is(err, os.ErrNotExist) {
			return errReadConfig.Wrap(err)
		}

		if err := v.WriteConfig(); err != nil {
			return errWriteConfig.Wrap(err)
		}

		return loadViperConfig(v, c)
	}
}

// setupViper configures Viper with defaults.
func setupViper(v *viper.Viper) {
	v.SetDefault(keyServerAddr, "127.0.0.1:7450")
	v.SetDefault(keyPersistQueueSize, 64)
	v.SetDefault(keyPersistTimeout, "5s")
	v.SetDefault(keyCheckpointSchedule, "@every 30s")
	v.SetDefault(keyExitWhenIdle, false)
	v.SetDefault(keyIdleGrace, "1m")
	v.SetDefault(keyNotificationsEnabled, true)
	v.SetDefault(keyOnFinalize, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogMaxSize, 10)
	v.SetDefault(keyLogMaxBackups, 3)
}

// loadViperConfig loads configuration from Viper into the Config struct.
func loadViperConfig(v *viper.Viper, c *Config) error {
	system := c.System

	if err := v.Unmarshal(c); err != nil {
		return errReadConfig.Wrap(err)
	}

	c.System = system

	return nil
}
