package main

import (
	"fmt"
	"strings"

	"genspec/internal/driver"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	changedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	unchangedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7A89"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E53935"))
	pairStyle      = lipgloss.NewStyle().Width(28)
	statusStyle    = lipgloss.NewStyle().Width(10)
)

// renderSummary formats one line per pair followed by a total.
func renderSummary(results []driver.Result, check bool) string {
	var b strings.Builder
	changed := 0
	for _, r := range results {
		status := unchangedStyle.Render("unchanged")
		if r.Changed {
			changed++
			switch {
			case check:
				status = staleStyle.Render("stale")
			default:
				status = changedStyle.Render("written")
			}
		}
		fmt.Fprintf(&b, "  %s%s%s\n",
			pairStyle.Render(r.Pair.String()),
			statusStyle.Render(status),
			overridesLabel(len(r.Overrides)))
	}

	verb := "updated"
	if check {
		verb = "stale"
	}
	fmt.Fprintln(&b, headerStyle.Render(fmt.Sprintf("%d modules, %d %s", len(results), changed, verb)))
	return b.String()
}

func overridesLabel(n int) string {
	switch n {
	case 0:
		return "no overrides"
	case 1:
		return "1 override"
	}
	return fmt.Sprintf("%d overrides", n)
}
