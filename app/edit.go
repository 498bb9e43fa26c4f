package app

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/barsamuebles/cronos/internal/osutil"
)

// firstNonEmptyString returns its first non-empty argument, or "" if all
// arguments are empty.
func firstNonEmptyString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}

// editConfigAction handles the edit-config command which opens the cronos
// config file in the user's default text editor.
func editConfigAction(ctx *cli.Context) error {
	defaultEditor := "nano"

	if runtime.GOOS == osutil.Windows {
		defaultEditor = "C:\\Windows\\system32\\notepad.exe"
	}

	editor := firstNonEmptyString(
		os.Getenv("VISUAL"),
		os.Getenv("EDITOR"),
		defaultEditor,
	)

	// loading writes the defaults on first use so the editor has
	// something to show
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	//nolint:gosec // the editor is chosen by the user
	cmd := exec.Command(editor, cfg.System.ConfigPath)

	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout

	return cmd.Run()
}
