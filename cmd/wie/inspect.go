package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mirusu400/wie/internal/archive"
	"github.com/mirusu400/wie/internal/backend"
	wlog "github.com/mirusu400/wie/internal/log"
	"github.com/mirusu400/wie/internal/sched"
	"github.com/mirusu400/wie/internal/trace"
)

var (
	taskBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	traceBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("108")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
)

// tickMsg drives a periodic poll of the scheduler's task table and the
// trace collector; the TUI has no other source of asynchronous updates
// since both run on their own goroutines independent of bubbletea's loop.
type tickMsg time.Time

type inspectModel struct {
	vendor    string
	collector *trace.Collector
	run       *nativeRun
	viewport  viewport.Model
	tasks     []sched.TaskInfo
	events    []*trace.Event
	done      bool
	runErr    error
}

func newInspectModel(vendor string, run *nativeRun, collector *trace.Collector) inspectModel {
	vp := viewport.New(80, 16)
	return inspectModel{vendor: vendor, run: run, collector: collector, viewport: vp}
}

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m inspectModel) Init() tea.Cmd {
	return tickCmd()
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.run.sched.Stop()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
	case tickMsg:
		m.tasks = m.run.sched.Tasks()
		m.events = append(m.events, m.collector.Drain()...)
		if len(m.events) > 500 {
			m.events = m.events[len(m.events)-500:]
		}
		m.done = allDone(m.tasks)
		m.viewport.SetContent(renderEvents(m.events))
		m.viewport.GotoBottom()
		if m.done {
			return m, tea.Quit
		}
		return m, tickCmd()
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func allDone(tasks []sched.TaskInfo) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, t := range tasks {
		if t.Status == "running" {
			return false
		}
	}
	return true
}

func renderEvents(events []*trace.Event) string {
	s := ""
	for _, e := range events {
		s += fmt.Sprintf("#%-10s %-20s %s\n", e.Tags.Primary(), e.Name, e.Detail)
	}
	return s
}

func (m inspectModel) View() string {
	header := headerStyle.Render(fmt.Sprintf("wie inspect — vendor=%s", m.vendor))

	taskLines := ""
	for _, t := range m.tasks {
		taskLines += fmt.Sprintf("%s  %s\n", t.ID, t.Status)
	}
	if taskLines == "" {
		taskLines = "(no tasks yet)"
	}

	status := "running"
	if m.done {
		status = "finished"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		taskBoxStyle.Render("tasks ("+status+")\n"+taskLines),
		traceBoxStyle.Render("trace\n"+m.viewport.View()),
		"q to quit",
	)
}

// runInspect loads and starts a KTF/LGT app the same way run does, then
// drives a live bubbletea view over the scheduler's task table and the
// trace collector instead of blocking until completion. SKT apps have no
// scheduler to inspect, so inspect falls back to the plain java-only path.
func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	cfg := loadConfig()
	vendor := resolveVendor(cfg)
	wlog.Init(verbose)
	logger := wlog.L

	app, err := archive.Load(data, vendor)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}

	be := backend.New(app.Resources, logger)

	if app.BinaryModule == "" {
		return runJavaOnly(app, be, logger)
	}

	collector := trace.NewCollector()
	logger.SetOnTrace(func(pc uint64, category, name, detail string) {
		e := trace.NewEvent(pc, category, name, detail)
		trace.DefaultEnricher(e)
		collector.Add(e)
	})

	run, err := startNative(app, be, logger)
	if err != nil {
		return err
	}
	defer run.core.Close()

	m := newInspectModel(string(app.Vendor), run, collector)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return run.sched.Wait()
}
