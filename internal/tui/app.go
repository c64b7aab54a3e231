// Package tui provides the interactive terminal dashboard for Recall.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/recall/internal/capture"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	sessionItemStyle = lipgloss.NewStyle().
				Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
	lowConfStyle = lipgloss.NewStyle().Foreground(warningColor)
)

// App is the main TUI application model.
type App struct {
	client       *Client
	sessions     []SessionItem
	selectedIdx  int
	viewport     viewport.Model
	width        int
	height       int
	mode         string // "list", "detail"
	events       []EventDetail
	stats        *StatsDetail
	message      string
	daemonOnline bool
	captureTools []capture.Tool
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	detector := capture.NewDetector()
	tools := detector.Scan()

	return &App{
		client:       NewClient(apiAddr),
		viewport:     viewport.New(80, 20),
		mode:         "list",
		captureTools: tools,
	}
}

// Run starts the TUI event loop.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type refreshMsg struct {
	sessions []SessionItem
	stats    *StatsDetail
	online   bool
	err      error
}

type eventsMsg struct {
	events []EventDetail
	err    error
}

type tickMsg time.Time

func (a *App) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		msg := refreshMsg{online: a.client.Health()}
		if !msg.online {
			return msg
		}
		msg.sessions, msg.err = a.client.ListSessions(50)
		if msg.err == nil {
			msg.stats, msg.err = a.client.Stats()
		}
		return msg
	}
}

func (a *App) loadEventsCmd(id string) tea.Cmd {
	return func() tea.Msg {
		events, err := a.client.SessionEvents(id)
		return eventsMsg{events: events, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refreshCmd(), tickCmd())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = msg.Height - 8
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.refreshCmd(), tickCmd())

	case refreshMsg:
		a.daemonOnline = msg.online
		if msg.err != nil {
			a.message = msg.err.Error()
			return a, nil
		}
		if msg.online {
			a.sessions = msg.sessions
			a.stats = msg.stats
			if a.selectedIdx >= len(a.sessions) {
				a.selectedIdx = 0
			}
		}
		return a, nil

	case eventsMsg:
		if msg.err != nil {
			a.message = msg.err.Error()
			return a, nil
		}
		a.events = msg.events
		a.viewport.SetContent(a.renderEvents())
		a.mode = "detail"
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if a.mode == "detail" {
			a.mode = "list"
			return a, nil
		}
		return a, tea.Quit

	case "esc":
		a.mode = "list"
		return a, nil

	case "r":
		return a, a.refreshCmd()

	case "up", "k":
		if a.mode == "list" && a.selectedIdx > 0 {
			a.selectedIdx--
		}
		return a, nil

	case "down", "j":
		if a.mode == "list" && a.selectedIdx < len(a.sessions)-1 {
			a.selectedIdx++
		}
		return a, nil

	case "enter":
		if a.mode == "list" && len(a.sessions) > 0 {
			return a, a.loadEventsCmd(a.sessions[a.selectedIdx].ID)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Recall — task sessions"))
	b.WriteString("  ")
	if a.daemonOnline {
		b.WriteString(onlineStyle.Render("● daemon"))
	} else {
		b.WriteString(offlineStyle.Render("○ daemon offline"))
	}
	for _, tool := range a.captureTools {
		b.WriteString("  ")
		if tool.Status == "online" {
			b.WriteString(onlineStyle.Render("● " + tool.Name))
		} else {
			b.WriteString(offlineStyle.Render("○ " + tool.Name))
		}
	}
	b.WriteString("\n\n")

	if a.mode == "detail" {
		b.WriteString(panelStyle.Render(a.viewport.View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc: back  q: close  ↑/↓: scroll"))
		if a.message != "" {
			b.WriteString("\n" + statusBarStyle.Render(a.message))
		}
		return b.String()
	}

	b.WriteString(a.renderSessionList())
	b.WriteString("\n")
	b.WriteString(a.renderStatsPanel())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: events  r: refresh  q: quit  ↑/↓: select"))
	if a.message != "" {
		b.WriteString("\n" + statusBarStyle.Render(a.message))
	}
	return b.String()
}

func (a *App) renderSessionList() string {
	if len(a.sessions) == 0 {
		return sessionItemStyle.Render("No sessions yet. Is the capture daemon running?")
	}

	var rows []string
	for i, s := range a.sessions {
		conf := fmt.Sprintf("%3.0f%%", s.Confidence*100)
		if s.Confidence < 0.5 {
			conf = lowConfStyle.Render(conf)
		}
		line := fmt.Sprintf("%s  %-40s %8s  %s",
			s.StartTime.Local().Format("Jan 02 15:04"),
			truncate(s.PrimaryWindow, 40),
			formatDuration(s.DurationSec),
			conf,
		)
		if i == a.selectedIdx {
			rows = append(rows, selectedStyle.Render(line))
		} else {
			rows = append(rows, sessionItemStyle.Render(line))
		}
	}
	return strings.Join(rows, "\n")
}

func (a *App) renderStatsPanel() string {
	if a.stats == nil || a.stats.SessionCount == 0 {
		return ""
	}
	lines := []string{
		fmt.Sprintf("Sessions: %d   Avg duration: %.1f min   Avg events: %.1f",
			a.stats.SessionCount, a.stats.AvgDurationMin, a.stats.AvgEventsPerTask),
	}
	if len(a.stats.TopWindows) > 0 {
		lines = append(lines, "Top windows: "+strings.Join(a.stats.TopWindows, " | "))
	}
	if a.stats.Threshold > 0 {
		lines = append(lines, fmt.Sprintf("Boundary threshold: %.2f", a.stats.Threshold))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderEvents() string {
	if len(a.events) == 0 {
		return "No events."
	}
	var rows []string
	for _, ev := range a.events {
		rows = append(rows, fmt.Sprintf("%s  %-14s %s",
			ev.Timestamp.Local().Format("15:04:05"),
			truncate(ev.AppName, 14),
			truncate(ev.WindowTitle, 60),
		))
	}
	return strings.Join(rows, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func formatDuration(sec float64) string {
	d := time.Duration(sec) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
