package app

import "github.com/urfave/cli/v2"

var (
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	addrFlag = &cli.StringFlag{
		Name:    "addr",
		Aliases: []string{"a"},
		Usage:   "Address of the cronos daemon (default: 127.0.0.1:7450)",
	}

	configFlag = &cli.StringFlag{
		Name:   "config",
		Usage:  "Path to the config file",
		Hidden: true,
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Daemon log level: debug, info, warn or error (default: info)",
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the timer database",
	}

	onFinalizeFlag = &cli.StringFlag{
		Name:  "on-finalize",
		Usage: "Command to run after a stage is finalized. The record is passed in CRONOS_* environment variables",
	}

	disableNotificationFlag = &cli.BoolFlag{
		Name:    "disable-notification",
		Aliases: []string{"d"},
		Usage:   "Disable the desktop notification shown when a timer changes state",
	}

	exitWhenIdleFlag = &cli.BoolFlag{
		Name:  "exit-when-idle",
		Usage: "Stop the daemon once no timer has been running for the idle grace period",
	}

	checkpointFlag = &cli.Int64Flag{
		Name:    "checkpoint",
		Aliases: []string{"c"},
		Usage:   "Seconds already spent on the stage, e.g. as reported by another device",
	}

	atFlag = &cli.StringFlag{
		Name:  "at",
		Usage: "When the stage was finished (e.g. '10 mins ago'). Defaults to now",
	}

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}

	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print JSON instead of a table",
	}
)
