package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
)

const dateFormat = "Jan 02, 2006 03:04 PM"

func PrintTable(data [][]string, writer io.Writer) {
	table := pterm.DefaultTable
	table.Boxed = true

	str, err := table.WithHasHeader().WithData(data).Srender()
	if err != nil {
		pterm.Error.Printfln("Failed to output timer table: %s", err.Error())
		return
	}

	fmt.Fprintln(writer, str)
}

// State describes a timer as a short colored word.
func State(running, finished bool) string {
	switch {
	case finished:
		return Blue("finished")
	case running:
		return Green("running")
	default:
		return Magenta("paused")
	}
}

// StatusRows builds a table of live timer statuses, header included.
func StatusRows(statuses []models.Status) [][]string {
	rows := [][]string{{"JOB", "STAGE", "ELAPSED", "STATE"}}

	for _, st := range statuses {
		rows = append(rows, []string{
			strconv.FormatInt(st.Key.JobID, 10),
			st.Key.Stage,
			timeutil.FormatSeconds(st.ElapsedSeconds),
			State(st.Running, st.Finished),
		})
	}

	return rows
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Local().Format(dateFormat)
}

// RecordRows builds a table of saved timer records, header included.
func RecordRows(records []models.TimerRecord) [][]string {
	rows := [][]string{{"STAGE", "SAVED", "STATE", "STARTED", "FINISHED"}}

	for i := range records {
		rec := &records[i]

		rows = append(rows, []string{
			rec.Key.Stage,
			timeutil.FormatSeconds(rec.AccumulatedSeconds),
			State(rec.IsRunning, rec.IsFinished),
			formatDate(rec.StartedAt),
			formatDate(rec.FinishedAt),
		})
	}

	return rows
}
