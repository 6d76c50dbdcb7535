// Package render formats tasks for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/antavlouros/tempo/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	scheduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.StatusPending:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		models.StatusOnWork:       lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.StatusOverDeadline: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.StatusDone:         lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}
)

// statusGlyph is the one-character marker shown next to each task.
func statusGlyph(status models.TaskStatus) string {
	switch status {
	case models.StatusDone:
		return "✓"
	case models.StatusOnWork:
		return "▶"
	case models.StatusOverDeadline:
		return "!"
	default:
		return "·"
	}
}

// TaskList renders a numbered task listing. The numbering is what index
// references like "1-3" resolve against.
func TaskList(tasks []*models.Task) string {
	if len(tasks) == 0 {
		return "You have no tasks yet."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	b.WriteString("\n")

	for i, task := range tasks {
		style, ok := statusStyles[task.Status]
		if !ok {
			style = statusStyles[models.StatusPending]
		}

		b.WriteString(indexStyle.Render(fmt.Sprintf("%3d.", i+1)))
		b.WriteString(" ")
		b.WriteString(style.Render(statusGlyph(task.Status)))
		b.WriteString(" ")
		b.WriteString(task.Description)
		if s := task.Scheduled(); s != "" {
			b.WriteString(" ")
			b.WriteString(scheduleStyle.Render("@ " + s))
		}
		if len(task.DependsOn) > 0 {
			b.WriteString(indexStyle.Render(fmt.Sprintf("  (after %d other)", len(task.DependsOn))))
		}
		b.WriteString(" ")
		b.WriteString(style.Render("[" + string(task.Status) + "]"))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Stats renders store statistics for the status command.
func Stats(stats models.StoreStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", headerStyle.Render("Tasks:"), stats.Tasks)
	fmt.Fprintf(&b, "%s %d\n", headerStyle.Render("Dependencies:"), stats.Dependencies)
	for _, status := range models.AllStatuses() {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", status, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Check prints a status line for environment checks, in the style of
// "✓ Ollama reachable".
func Check(ok bool, message string) string {
	if ok {
		return color.GreenString("✓") + " " + message
	}
	return color.RedString("✗") + " " + message
}

// Warn prints a yellow warning line.
func Warn(message string) string {
	return color.YellowString("⚠") + " " + message
}
