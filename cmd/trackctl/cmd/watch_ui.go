package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// activity mirrors the relay's SSE payload.
type activity struct {
	EventID     string    `json:"event_id"`
	Fingerprint string    `json:"fingerprint"`
	Kind        string    `json:"kind"`
	Downstream  string    `json:"downstream"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

type (
	activityMsg     activity
	streamClosedMsg struct{}
)

type watchModel struct {
	spinner    spinner.Model
	activities []activity
	closed     bool
	width      int
	height     int
	quit       bool
}

func newWatchModel() *watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &watchModel{
		spinner:    sp,
		activities: make([]activity, 0),
	}
}

func (m *watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case activityMsg:
		m.activities = append(m.activities, activity(msg))
		// Keep only the last N entries that fit in the view
		maxRows := m.height - 5
		if maxRows > 0 && len(m.activities) > maxRows {
			m.activities = m.activities[len(m.activities)-maxRows:]
		}
	case streamClosedMsg:
		m.closed = true
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	if m.quit {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Conversion Relay Watch"))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render(fmt.Sprintf("%-22s %-16s %-12s %-9s %-30s", "KIND", "DOWNSTREAM", "STATUS", "ATTEMPTS", "MESSAGE")))
	s.WriteString("\n")

	for _, a := range m.activities {
		line := fmt.Sprintf("%-22s %-16s %-12s %-9d %-30s",
			truncate(a.Kind, 21),
			truncate(a.Downstream, 15),
			styleStatus(a.Status),
			a.Attempts,
			truncate(a.Message, 30),
		)
		s.WriteString(line + "\n")
	}

	switch {
	case m.closed:
		s.WriteString("\n  Stream closed.\n")
	case len(m.activities) == 0:
		s.WriteString(fmt.Sprintf("\n  %s Waiting for activity...\n", m.spinner.View()))
	}

	s.WriteString("\n  (Press q to quit)")

	return s.String()
}
