package app

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/barsamuebles/cronos/internal/config"
	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/server"
	"github.com/barsamuebles/cronos/store"
	"github.com/barsamuebles/cronos/timer"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	pterm.SetDefaultOutput(io.Discard)

	os.Exit(m.Run())
}

type cliHarness struct {
	out    *bytes.Buffer
	addr   string
	config string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	dir := t.TempDir()

	db, err := store.NewClient(filepath.Join(dir, "cronos.db"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := timer.New(db, timer.WithLogger(logger))
	srv := httptest.NewServer(server.New(ctrl, logger, nil).Handler())

	out := &bytes.Buffer{}
	stdout := config.Stdout
	config.Stdout = out

	t.Cleanup(func() {
		config.Stdout = stdout

		srv.Close()
		_ = ctrl.Close(context.Background())
		_ = db.Close()
	})

	return &cliHarness{
		out:    out,
		addr:   strings.TrimPrefix(srv.URL, "http://"),
		config: filepath.Join(dir, "config.yml"),
	}
}

func (h *cliHarness) run(t *testing.T, args ...string) error {
	t.Helper()

	h.out.Reset()

	base := []string{"cronos", "--addr", h.addr, "--config", h.config}

	return Get().Run(append(base, args...))
}

func TestStartAndStatusJSON(t *testing.T) {
	h := newCLIHarness(t)

	require.NoError(t, h.run(t, "start", "--checkpoint", "300", "31", "Lija", "fina"))
	assert.Contains(t, h.out.String(), "Job 31 · Lija fina")
	assert.Contains(t, h.out.String(), "running")

	require.NoError(t, h.run(t, "status", "--json"))

	var statuses []models.Status

	require.NoError(t, json.Unmarshal(h.out.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, models.NewKey(31, "Lija fina"), statuses[0].Key)
	assert.GreaterOrEqual(t, statuses[0].ElapsedSeconds, int64(300))
}

func TestFinalizeAtRelativeTime(t *testing.T) {
	h := newCLIHarness(t)

	require.NoError(t, h.run(t, "start", "4", "Barniz"))
	require.NoError(t, h.run(t, "finalize", "--at", "10 minutes ago", "4", "Barniz"))
	assert.Contains(t, h.out.String(), "finished")

	require.NoError(t, h.run(t, "records", "--json", "4"))

	var records []models.TimerRecord

	require.NoError(t, json.Unmarshal(h.out.Bytes(), &records))
	require.Len(t, records, 1)
	require.NotNil(t, records[0].FinishedAt)
	assert.WithinDuration(t, time.Now().Add(-10*time.Minute), *records[0].FinishedAt, time.Minute)

	err := h.run(t, "start", "4", "Barniz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished")
}

func TestStopJobWithoutPrompt(t *testing.T) {
	h := newCLIHarness(t)

	require.NoError(t, h.run(t, "start", "9", "Madera"))
	require.NoError(t, h.run(t, "start", "9", "Pintura"))
	require.NoError(t, h.run(t, "stop-job", "--yes", "9"))

	require.NoError(t, h.run(t, "status", "--json", "9", "Pintura"))

	var st models.Status

	require.NoError(t, json.Unmarshal(h.out.Bytes(), &st))
	assert.False(t, st.Running)
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		stage string
		id    int64
		err   bool
	}{
		{name: "simple", args: []string{"12", "Madera"}, id: 12, stage: "Madera"},
		{name: "stage with spaces", args: []string{"12", "Lija", "fina"}, id: 12, stage: "Lija fina"},
		{name: "missing stage", args: []string{"12"}, err: true},
		{name: "bad job", args: []string{"doce", "Madera"}, err: true},
		{name: "zero job", args: []string{"0", "Madera"}, err: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := flag.NewFlagSet("test", flag.ContinueOnError)
			require.NoError(t, set.Parse(tc.args))

			id, stage, err := parseKey(cli.NewContext(nil, set, nil).Args())
			if tc.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.id, id)
			assert.Equal(t, tc.stage, stage)
		})
	}
}

func TestHelpText(t *testing.T) {
	var buf bytes.Buffer

	cli.HelpPrinterCustom(&buf, helpText(), Get(), nil)

	out := buf.String()

	for _, want := range []string{
		"SYNOPSIS",
		"stop-job JOB",
		"status [JOB STAGE]",
		"cronos finalize 12 Madera --at '10 minutes ago'",
		"$XDG_DATA_HOME/cronos/cronos.db",
		"CRONOS_ENV=<name>",
	} {
		assert.Contains(t, out, want)
	}
}
