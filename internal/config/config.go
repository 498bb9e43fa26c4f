package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

type (
	// Config holds all configuration settings
	Config struct {
		Server        ServerConfig       `mapstructure:"server"`
		Log           LogConfig          `mapstructure:"log"`
		Checkpoint    CheckpointConfig   `mapstructure:"checkpoint"`
		Hooks         HooksConfig        `mapstructure:"hooks"`
		System        SystemConfig       `mapstructure:"-"`
		Persist       PersistConfig      `mapstructure:"persist"`
		Lifecycle     LifecycleConfig    `mapstructure:"lifecycle"`
		Notifications NotificationConfig `mapstructure:"notifications"`
	}

	// ServerConfig holds the daemon's HTTP settings
	ServerConfig struct {
		Addr string `mapstructure:"addr"`
	}

	// PersistConfig holds ledger write settings
	PersistConfig struct {
		QueueSize int           `mapstructure:"queue_size"`
		Timeout   time.Duration `mapstructure:"timeout"`
	}

	// CheckpointConfig holds the periodic checkpoint schedule. An empty
	// schedule disables periodic checkpoints.
	CheckpointConfig struct {
		Schedule string `mapstructure:"schedule"`
	}

	// LifecycleConfig controls when the daemon exits on its own
	LifecycleConfig struct {
		ExitWhenIdle bool          `mapstructure:"exit_when_idle"`
		IdleGrace    time.Duration `mapstructure:"idle_grace"`
	}

	// NotificationConfig holds desktop notification settings
	NotificationConfig struct {
		Enabled bool `mapstructure:"enabled"`
	}

	// HooksConfig holds commands run on timer events
	HooksConfig struct {
		OnFinalize string `mapstructure:"on_finalize"`
	}

	// LogConfig holds log file settings
	LogConfig struct {
		Level      string `mapstructure:"level"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
	}

	// SystemConfig holds file locations
	SystemConfig struct {
		ConfigPath string
		DBPath     string
		LogPath    string
	}

	// Option is a function that modifies Config
	Option func(*Config) error
)

const Version = "v0.3.0"

var (
	configDir      = "cronos"
	configFileName = "config.yml"
	dbFileName     = "cronos.db"
	logFileName    = "cronos.log"
	dbFilePath     string
	configFilePath string
	logFilePath    string
)

// Stdout receives command output.
var Stdout io.Writer = os.Stdout

func DBFilePath() string {
	return dbFilePath
}

func LogFilePath() string {
	return logFilePath
}

func ConfigFilePath() string {
	return configFilePath
}

// InitializePaths resolves the config, database and log locations under the
// XDG base directories. CRONOS_ENV suffixes every file name so that separate
// environments do not share state.
func InitializePaths() error {
	cronosEnv := strings.TrimSpace(os.Getenv("CRONOS_ENV"))
	if cronosEnv != "" {
		configFileName = fmt.Sprintf("config_%s.yml", cronosEnv)
		dbFileName = fmt.Sprintf("cronos_%s.db", cronosEnv)
		logFileName = fmt.Sprintf("cronos_%s.log", cronosEnv)
	}

	var err error

	relPath := filepath.Join(configDir, configFileName)

	configFilePath, err = xdg.ConfigFile(relPath)
	if err != nil {
		return errResolvePath.Wrap(err)
	}

	dataDir, err := xdg.DataFile(configDir)
	if err != nil {
		return errResolvePath.Wrap(err)
	}

	dbFilePath = filepath.Join(dataDir, dbFileName)

	logFilePath = filepath.Join(dataDir, "log", logFileName)

	return nil
}

// WithPaths returns an Option that records the resolved file locations.
func WithPaths(configPath, dbPath, logPath string) Option {
	return func(c *Config) error {
		c.System.ConfigPath = configPath
		c.System.DBPath = dbPath
		c.System.LogPath = logPath

		return nil
	}
}

// New creates a new Config and applies options in order.
func New(opts ...Option) (*Config, error) {
	cfg := &Config{}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errConfigOption.Wrap(err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errConfigValidation.Wrap(err)
	}

	return cfg, nil
}
