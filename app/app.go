package app

import (
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/barsamuebles/cronos/internal/config"
)

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
	pterm.Debug.Prefix.Text = ""
	pterm.Info.Prefix.Text = ""
	pterm.Success.Prefix.Text = ""
	pterm.Warning.Prefix.Text = ""
	pterm.Error.Prefix.Text = ""
	pterm.Fatal.Prefix.Text = ""
}

// Get retrieves the cronos app instance.
func Get() *cli.App {
	return &cli.App{
		Name: "cronos",
		Usage: `
		Cronos keeps a stopwatch per production stage of every job. A daemon
		owns the running timers and saves them to a local database; the other
		commands talk to it.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the timer daemon in the foreground",
				Action: serveAction,
				Flags: []cli.Flag{
					dbFlag,
					logLevelFlag,
					onFinalizeFlag,
					disableNotificationFlag,
					exitWhenIdleFlag,
				},
			},
			{
				Name:      "start",
				Usage:     "Start or resume the timer of a stage",
				ArgsUsage: "JOB STAGE",
				Action:    startAction,
				Flags:     []cli.Flag{checkpointFlag},
			},
			{
				Name:      "pause",
				Usage:     "Pause the timer of a stage and save it",
				ArgsUsage: "JOB STAGE",
				Action:    pauseAction,
			},
			{
				Name:      "reset",
				Usage:     "Set the timer of a stage back to zero",
				ArgsUsage: "JOB STAGE",
				Action:    resetAction,
			},
			{
				Name:      "finalize",
				Usage:     "Close a stage for good and save its final time",
				ArgsUsage: "JOB STAGE",
				Action:    finalizeAction,
				Flags:     []cli.Flag{atFlag},
			},
			{
				Name:      "stop-job",
				Usage:     "Pause every running stage of a job",
				ArgsUsage: "JOB",
				Action:    stopJobAction,
				Flags:     []cli.Flag{yesFlag},
			},
			{
				Name:      "status",
				Usage:     "Print the live timers, or a single stage",
				ArgsUsage: "[JOB STAGE]",
				Action:    statusAction,
				Flags:     []cli.Flag{jsonFlag},
			},
			{
				Name:      "records",
				Usage:     "Print the saved timers of a job",
				ArgsUsage: "JOB",
				Action:    recordsAction,
				Flags:     []cli.Flag{jsonFlag},
			},
			{
				Name:   "watch",
				Usage:  "Follow the live timers in the terminal",
				Action: watchAction,
			},
			{
				Name:   "edit-config",
				Usage:  "Edit the configuration file",
				Action: editConfigAction,
			},
		},
		Flags: []cli.Flag{
			addrFlag,
			configFlag,
			noColorFlag,
		},
		Before: beforeAction,
	}
}
