// Package tui implements the interactive rc-status dashboard: a
// Bubble Tea program that polls service state and renders a live
// runlevel/service table. Adapted from the teacher's internal/tui
// QuickMenuModel/ToastModel (tea.Model Update/View shape, lipgloss
// styling), rewritten for a runlevel/service status table instead of
// a project/chat switcher; the collecting-status spinner is grounded
// on the teacher's chatModel spinner.Model wiring (cli/cmd/tui_chat.go).
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"openrc-go/pkg/rcpath"
	"openrc-go/pkg/svcstate"
)

// ServiceRow is one rendered line of the dashboard.
type ServiceRow struct {
	Name    string
	Status  svcstate.Status
	Crashed bool
}

// RunlevelSnapshot is one poll's worth of status for every service in a
// runlevel.
type RunlevelSnapshot struct {
	Runlevel string
	Services []ServiceRow
}

// pollMsg carries a freshly collected snapshot into Update.
type pollMsg struct {
	snapshot RunlevelSnapshot
	err      error
}

// tickMsg drives the next poll.
type tickMsg time.Time

// Collector gathers one RunlevelSnapshot; production code backs this with
// pkg/rcpath.ListRunlevel and pkg/svcstate.Machine.Get per service.
type Collector func() (RunlevelSnapshot, error)

// Model is the dashboard's Bubble Tea model.
type Model struct {
	collect  Collector
	interval time.Duration

	snapshot RunlevelSnapshot
	err      error
	width    int
	height   int
	polled   bool
	spin     spinner.Model

	headerStyle  lipgloss.Style
	startedStyle lipgloss.Style
	stoppedStyle lipgloss.Style
	crashedStyle lipgloss.Style
	dimStyle     lipgloss.Style
}

// New builds a dashboard Model polling collect every interval.
func New(collect Collector, interval time.Duration) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	return Model{
		collect:      collect,
		interval:     interval,
		spin:         s,
		headerStyle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		startedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		stoppedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		crashedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		dimStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.spin.Tick, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) }))
}

func (m Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.collect()
		return pollMsg{snapshot: snap, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.pollCmd(), tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) }))
	case pollMsg:
		m.snapshot, m.err = msg.snapshot, msg.err
		m.polled = true
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", m.headerStyle.Render("runlevel: "+m.snapshot.Runlevel))

	if !m.polled {
		fmt.Fprintf(&b, " %s collecting status...\n", m.spin.View())
		return b.String()
	}

	if m.err != nil {
		fmt.Fprintf(&b, "%s\n", m.crashedStyle.Render("error: "+m.err.Error()))
		return b.String()
	}

	rows := append([]ServiceRow(nil), m.snapshot.Services...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	for _, row := range rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}
	b.WriteString("\n" + m.dimStyle.Render("q to quit") + "\n")
	return b.String()
}

func (m Model) renderRow(row ServiceRow) string {
	label := string(row.Status.Primary)
	style := m.stoppedStyle
	switch {
	case row.Crashed || row.Status.Failed:
		style = m.crashedStyle
		label = "crashed"
	case row.Status.Primary == svcstate.Started:
		style = m.startedStyle
	}
	badges := ""
	if row.Status.Scheduled {
		badges += " [scheduled]"
	}
	if row.Status.Hotplugged {
		badges += " [hotplugged]"
	}
	return fmt.Sprintf(" %-24s %s%s", row.Name, style.Render(fmt.Sprintf("[%s]", label)), m.dimStyle.Render(badges))
}

// CollectRunlevel builds a Collector backed by layout/runlevelsRoot,
// the production wiring for cmd/rc-status.
func CollectRunlevel(layout *rcpath.Layout, runlevelsRoot, runlevel string) Collector {
	return func() (RunlevelSnapshot, error) {
		names, err := layout.ListRunlevel(runlevelsRoot, runlevel)
		if err != nil {
			return RunlevelSnapshot{}, err
		}
		snap := RunlevelSnapshot{Runlevel: runlevel}
		for _, name := range names {
			machine := svcstate.NewMachine(layout, name)
			status, err := machine.Get()
			if err != nil {
				continue
			}
			snap.Services = append(snap.Services, ServiceRow{Name: name, Status: status, Crashed: status.Crashed})
		}
		return snap, nil
	}
}
