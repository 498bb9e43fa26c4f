package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/barsamuebles/cronos/client"
	"github.com/barsamuebles/cronos/daemon"
	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/logger"
	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
	"github.com/barsamuebles/cronos/internal/ui"
)

const (
	envNoColor       = "NO_COLOR"
	envCronosNoColor = "CRONOS_NO_COLOR"

	watchInterval = time.Second
)

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	configPath := firstNonEmptyString(ctx.String("config"), config.ConfigFilePath())

	return config.New(
		config.WithPaths(configPath, config.DBFilePath(), config.LogFilePath()),
		config.WithViperConfig(configPath),
		config.WithCLIConfig(ctx),
	)
}

func newClient(ctx *cli.Context) (*client.Client, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	return client.New(cfg.Server.Addr), nil
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidJobID.Fmt(s)
	}

	return id, nil
}

// parseKey reads JOB STAGE from the arguments. Stage names may contain
// spaces, so every argument after the job id is part of the stage.
func parseKey(args cli.Args) (int64, string, error) {
	if args.Len() < 2 {
		return 0, "", errMissingArgs.Fmt("JOB STAGE")
	}

	id, err := parseJobID(args.First())
	if err != nil {
		return 0, "", err
	}

	stage := strings.TrimSpace(strings.Join(args.Tail(), " "))
	if stage == "" {
		return 0, "", errMissingArgs.Fmt("JOB STAGE")
	}

	return id, stage, nil
}

func printJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	fmt.Fprintln(config.Stdout, string(b))

	return nil
}

func printStatus(st models.Status) {
	fmt.Fprintf(config.Stdout, "Job %d · %s  %s  %s\n",
		st.Key.JobID,
		st.Key.Stage,
		timeutil.FormatSeconds(st.ElapsedSeconds),
		ui.State(st.Running, st.Finished),
	)
}

// serveAction runs the daemon until it is interrupted or goes idle.
func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg)
	if err != nil {
		return err
	}

	defer closer.Close()

	slog.SetDefault(log)

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}

	pterm.Info.Printfln("cronos daemon listening on %s", d.Addr())

	return d.Run(sigCtx)
}

func startAction(ctx *cli.Context) error {
	id, stage, err := parseKey(ctx.Args())
	if err != nil {
		return err
	}

	checkpoint := ctx.Int64("checkpoint")
	if checkpoint < 0 {
		return errInvalidCheckpoint
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	st, err := c.Start(ctx.Context, id, stage, checkpoint)
	if err != nil {
		return err
	}

	printStatus(st)

	return nil
}

func pauseAction(ctx *cli.Context) error {
	id, stage, err := parseKey(ctx.Args())
	if err != nil {
		return err
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	st, err := c.Pause(ctx.Context, id, stage)
	if err != nil {
		return err
	}

	printStatus(st)

	return nil
}

func resetAction(ctx *cli.Context) error {
	id, stage, err := parseKey(ctx.Args())
	if err != nil {
		return err
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	st, err := c.Reset(ctx.Context, id, stage)
	if err != nil {
		return err
	}

	printStatus(st)

	return nil
}

func finalizeAction(ctx *cli.Context) error {
	id, stage, err := parseKey(ctx.Args())
	if err != nil {
		return err
	}

	var at time.Time

	if s := ctx.String("at"); s != "" {
		at, err = timeutil.FromStr(s)
		if err != nil {
			return errInvalidAt.Fmt(s).Wrap(err)
		}
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	st, err := c.Finalize(ctx.Context, id, stage, at)
	if err != nil {
		return err
	}

	printStatus(st)

	return nil
}

// confirmStopJob asks before pausing every stage of a job.
func confirmStopJob(id int64) (bool, error) {
	var ok bool

	err := huh.NewConfirm().
		Title(fmt.Sprintf("Pause every running stage of job %d?", id)).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()

	return ok, err
}

func stopJobAction(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return errMissingArgs.Fmt("JOB")
	}

	id, err := parseJobID(ctx.Args().First())
	if err != nil {
		return err
	}

	if !ctx.Bool("yes") {
		ok, err := confirmStopJob(id)
		if err != nil {
			return err
		}

		if !ok {
			pterm.Info.Println("Nothing was stopped")
			return nil
		}
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	statuses, err := c.StopJob(ctx.Context, id)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		pterm.Info.Printfln("Job %d has no timers", id)
		return nil
	}

	ui.PrintTable(ui.StatusRows(statuses), config.Stdout)

	return nil
}

func statusAction(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	if ctx.Args().Present() {
		id, stage, err := parseKey(ctx.Args())
		if err != nil {
			return err
		}

		st, err := c.Status(ctx.Context, id, stage)
		if err != nil {
			return err
		}

		if ctx.Bool("json") {
			return printJSON(st)
		}

		printStatus(st)

		return nil
	}

	statuses, err := c.List(ctx.Context)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(statuses)
	}

	if len(statuses) == 0 {
		pterm.Info.Println("No timers yet")
		return nil
	}

	ui.PrintTable(ui.StatusRows(statuses), config.Stdout)

	return nil
}

func recordsAction(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return errMissingArgs.Fmt("JOB")
	}

	id, err := parseJobID(ctx.Args().First())
	if err != nil {
		return err
	}

	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	records, err := c.Records(ctx.Context, id)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(records)
	}

	if len(records) == 0 {
		pterm.Info.Printfln("No saved timers for job %d", id)
		return nil
	}

	ui.PrintTable(ui.RecordRows(records), config.Stdout)

	return nil
}

func watchAction(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(ui.NewWatch(c, watchInterval)).Run()

	return err
}

func beforeAction(ctx *cli.Context) error {
	// Override the default help template
	cli.AppHelpTemplate = helpText()

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	if _, exists := os.LookupEnv(envNoColor); exists {
		disableStyling()
	}

	if _, exists := os.LookupEnv(envCronosNoColor); exists {
		disableStyling()
	}

	if ctx.Bool("no-color") {
		disableStyling()
	}

	return config.InitializePaths()
}
