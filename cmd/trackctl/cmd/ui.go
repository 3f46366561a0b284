package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))

	deliveredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	rejectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C00"))
)

func renderSendResult(status, eventID, fingerprint string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Event " + status))
	s.WriteString("\n")
	if eventID != "" {
		s.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("event_id:"), eventID))
	}
	s.WriteString(fmt.Sprintf("  %s %s", labelStyle.Render("fingerprint:"), fingerprint))
	return s.String()
}

func renderStats(processed, succeeded, failed, duplicates uint64, avgMs float64) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Relay Statistics"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("  %s %d\n", labelStyle.Render("processed:   "), processed))
	s.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("succeeded:   "), deliveredStyle.Render(fmt.Sprint(succeeded))))
	s.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("failed:      "), failedStyle.Render(fmt.Sprint(failed))))
	s.WriteString(fmt.Sprintf("  %s %d\n", labelStyle.Render("duplicates:  "), duplicates))
	s.WriteString(fmt.Sprintf("  %s %.2fms", labelStyle.Render("avg latency: "), avgMs))
	return s.String()
}

func styleStatus(status string) string {
	switch status {
	case "DELIVERED":
		return deliveredStyle.Render(status)
	case "FAILED", "INVALID":
		return failedStyle.Render(status)
	case "ACCEPTED", "DUPLICATE":
		return pendingStyle.Render(status)
	case "REJECTED":
		return rejectedStyle.Render(status)
	default:
		return status
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
