package config

import (
	"github.com/urfave/cli/v2"
)

// CLIOptions represents command-line configuration options.
type CLIOptions struct {
	Addr          string
	DBPath        string
	LogLevel      string
	OnFinalize    string
	DisableNotify bool
	ExitWhenIdle  bool
}

// WithCLIConfig returns an Option that loads configuration from CLI flags.
func WithCLIConfig(ctx *cli.Context) Option {
	return func(c *Config) error {
		opts := CLIOptions{
			Addr:          ctx.String("addr"),
			DBPath:        ctx.String("db"),
			LogLevel:      ctx.String("log-level"),
			OnFinalize:    ctx.String("on-finalize"),
			DisableNotify: ctx.Bool("disable-notification"),
			ExitWhenIdle:  ctx.Bool("exit-when-idle"),
		}

		applyCLIOptions(c, opts)

		return nil
	}
}

// applyCLIOptions applies CLI options to the config.
func applyCLIOptions(c *Config, opts CLIOptions) {
	if opts.Addr != "" {
		c.Server.Addr = opts.Addr
	}

	if opts.DBPath != "" {
		c.System.DBPath = opts.DBPath
	}

	if opts.LogLevel != "" {
		c.Log.Level = opts.LogLevel
	}

	if opts.OnFinalize != "" {
		c.Hooks.OnFinalize = opts.OnFinalize
	}

	if opts.DisableNotify {
		c.Notifications.Enabled = false
	}

	if opts.ExitWhenIdle {
		c.Lifecycle.ExitWhenIdle = true
	}
}
