package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/barsamuebles/cronos/internal/models"
	"github.com/barsamuebles/cronos/internal/timeutil"
)

// StatusSource supplies the statuses shown by the watch view.
type StatusSource interface {
	List(ctx context.Context) ([]models.Status, error)
}

type keymap struct {
	refresh key.Binding
	quit    key.Binding
}

var defaultKeymap = keymap{
	refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

type render func(strs ...string) string

type styles struct {
	title    render
	job      render
	running  render
	paused   render
	finished render
	hint     render
	err      render
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Render,
		job:      lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).Render,
		running:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render,
		paused:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F4A261")).Render,
		finished: lipgloss.NewStyle().Foreground(lipgloss.Color("#5C9DF5")).Render,
		hint:     lipgloss.NewStyle().Foreground(lipgloss.Color("#767676")).Render,
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("#E63946")).Render,
	}
}

type (
	statusesMsg struct {
		err      error
		statuses []models.Status
	}

	tickMsg time.Time
)

// Watch is a bubbletea model that polls the daemon and lists its timers.
type Watch struct {
	src      StatusSource
	err      error
	styles   styles
	statuses []models.Status
	interval time.Duration
	loaded   bool
}

// NewWatch returns a Watch polling src every interval.
func NewWatch(src StatusSource, interval time.Duration) *Watch {
	return &Watch{
		src:      src,
		styles:   defaultStyles(),
		interval: interval,
	}
}

func (w *Watch) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	statuses, err := w.src.List(ctx)

	return statusesMsg{statuses: statuses, err: err}
}

func (w *Watch) tick() tea.Cmd {
	return tea.Tick(w.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *Watch) Init() tea.Cmd {
	return w.fetch
}

func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, defaultKeymap.quit):
			return w, tea.Quit
		case key.Matches(msg, defaultKeymap.refresh):
			return w, w.fetch
		}
	case tickMsg:
		return w, w.fetch
	case statusesMsg:
		w.loaded = true
		w.err = msg.err

		if msg.err == nil {
			w.statuses = msg.statuses
		}

		return w, w.tick()
	}

	return w, nil
}

func (w *Watch) stateView(st models.Status) string {
	switch {
	case st.Finished:
		return w.styles.finished("■ finished")
	case st.Running:
		return w.styles.running("● running")
	default:
		return w.styles.paused("‖ paused")
	}
}

func (w *Watch) View() string {
	var s strings.Builder

	var running int

	for _, st := range w.statuses {
		if st.Running {
			running++
		}
	}

	s.WriteString(w.styles.title(fmt.Sprintf("cronos · %d running", running)))
	s.WriteString("\n\n")

	switch {
	case !w.loaded:
		s.WriteString(w.styles.hint("connecting to daemon..."))
		s.WriteString("\n")
	case len(w.statuses) == 0:
		s.WriteString(w.styles.hint("no timers yet"))
		s.WriteString("\n")
	}

	width := 0
	for _, st := range w.statuses {
		width = max(width, len([]rune(st.Key.Stage)))
	}

	var job int64

	for _, st := range w.statuses {
		if st.Key.JobID != job {
			job = st.Key.JobID
			s.WriteString(w.styles.job(fmt.Sprintf("Job %d", job)))
			s.WriteString("\n")
		}

		pad := strings.Repeat(" ", width-len([]rune(st.Key.Stage)))

		fmt.Fprintf(&s, "  %s%s  %s  %s\n",
			st.Key.Stage,
			pad,
			timeutil.FormatSeconds(st.ElapsedSeconds),
			w.stateView(st),
		)
	}

	if w.err != nil {
		s.WriteString("\n")
		s.WriteString(w.styles.err(w.err.Error()))
		s.WriteString("\n")
	}

	help := make([]string, 0, 2)

	for _, b := range []key.Binding{defaultKeymap.refresh, defaultKeymap.quit} {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}

	s.WriteString("\n")
	s.WriteString(w.styles.hint(strings.Join(help, " • ")))

	return s.String()
}
