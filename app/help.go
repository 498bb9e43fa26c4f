package app

import (
	"strings"

	"github.com/pterm/pterm"
)

type helpExample struct {
	cmd  string
	desc string
}

var helpExamples = []helpExample{
	{"cronos serve --exit-when-idle", "run the daemon until no stage has been timed for a while"},
	{"cronos start 12 Madera", "start timing the Madera stage of job 12"},
	{"cronos start 12 Madera -c 3600", "resume with an hour already spent elsewhere"},
	{"cronos finalize 12 Madera --at '10 minutes ago'", "close the stage as of ten minutes ago"},
	{"cronos stop-job 12 --yes", "pause every stage of job 12 without asking"},
	{"cronos status --json", "dump the live timers for scripts"},
}

// section renders a heading followed by an indented body. The body may hold
// template actions.
func section(title, body string) string {
	return pterm.Yellow(title) + "\n" + body + "\n\n"
}

func helpText() string {
	var b strings.Builder

	b.WriteString(section("NAME", "   {{.Name}}{{if .Version}} {{.Version}}{{end}}"))
	b.WriteString(section("SYNOPSIS", "   {{.HelpName}} [global options] command [JOB [STAGE]]"))
	b.WriteString(section("ABOUT", "   {{.Usage}}"))

	b.WriteString(section(
		"COMMANDS",
		"{{range .Commands}}{{if not .HideHelp}}   "+
			pterm.Green("{{.Name}}")+
			"{{if .ArgsUsage}} {{.ArgsUsage}}{{end}}{{ `\t` }}{{.Usage}}{{ `\n` }}{{end}}{{end}}",
	))

	b.WriteString(section(
		"GLOBAL OPTIONS",
		"{{range .VisibleFlags}}   "+pterm.Green("{{.}}")+"\n{{end}}",
	))

	b.WriteString(section("EXAMPLES", examplesHelp()))
	b.WriteString(section("FILES", filesHelp()))
	b.WriteString(section("ENVIRONMENT", envHelp()))

	return b.String()
}

func examplesHelp() string {
	lines := make([]string, 0, len(helpExamples))

	for _, ex := range helpExamples {
		lines = append(lines, "   "+pterm.Green(ex.cmd)+"\n      "+ex.desc)
	}

	return strings.Join(lines, "\n")
}

func filesHelp() string {
	return strings.Join([]string{
		"   $XDG_CONFIG_HOME/cronos/config.yml   daemon and client settings",
		"   $XDG_DATA_HOME/cronos/cronos.db      stage time ledger",
		"   $XDG_DATA_HOME/cronos/log/cronos.log daemon log",
	}, "\n")
}

func envHelp() string {
	return strings.Join([]string{
		"   CRONOS_ENV=<name>     suffix every file above with _<name>, e.g. config_dev.yml",
		"   CRONOS_<SECTION>_<KEY> override one config value, e.g. CRONOS_LIFECYCLE_IDLE_GRACE=2m",
		"   CRONOS_NO_COLOR, NO_COLOR  print without ANSI colours",
	}, "\n")
}
