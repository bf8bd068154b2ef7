package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/types"
)

// TreeWidthPct is the percentage of terminal width used for the left (tree) pane.
const TreeWidthPct = 60

// Theme holds the colors of one appearance.
type Theme struct {
	Accent lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
	Border lipgloss.Color
	Error  lipgloss.Color
	OK     lipgloss.Color
}

var (
	lightTheme = Theme{
		Accent: lipgloss.Color("62"),
		Text:   lipgloss.Color("235"),
		Muted:  lipgloss.Color("243"),
		Border: lipgloss.Color("250"),
		Error:  lipgloss.Color("160"),
		OK:     lipgloss.Color("28"),
	}
	darkTheme = Theme{
		Accent: lipgloss.Color("111"),
		Text:   lipgloss.Color("252"),
		Muted:  lipgloss.Color("245"),
		Border: lipgloss.Color("240"),
		Error:  lipgloss.Color("203"),
		OK:     lipgloss.Color("42"),
	}
)

// themeFor returns the theme matching the dark mode setting.
func themeFor(dark bool) Theme {
	if dark {
		return darkTheme
	}
	return lightTheme
}

// groupColors maps browser group colors to terminal colors.
var groupColors = map[string]lipgloss.Color{
	"grey":   lipgloss.Color("245"),
	"blue":   lipgloss.Color("33"),
	"red":    lipgloss.Color("196"),
	"yellow": lipgloss.Color("220"),
	"green":  lipgloss.Color("42"),
	"pink":   lipgloss.Color("205"),
	"purple": lipgloss.Color("135"),
	"cyan":   lipgloss.Color("51"),
	"orange": lipgloss.Color("214"),
}

func swatch(color string) string {
	c, ok := groupColors[types.NormalizeColor(color)]
	if !ok {
		return " "
	}
	return lipgloss.NewStyle().Foreground(c).Render("■")
}

// renderTopBar draws the source, its connection state and the session
// totals. An empty state is left out.
func renderTopBar(source, state string, stats types.Stats, theme Theme, width int) string {
	sourceStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent)
	statsStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	label := source
	if state != "" {
		label += " " + state
	}
	left := " " + sourceStyle.Render(label)

	statsStr := fmt.Sprintf("%d tabs · %d groups", stats.TotalTabs, stats.TotalGroups)
	if stats.UngroupedTabs > 0 {
		statsStr += fmt.Sprintf(" · %d ungrouped", stats.UngroupedTabs)
	}
	if stats.PinnedTabs > 0 {
		statsStr += fmt.Sprintf(" · %d pinned", stats.PinnedTabs)
	}
	right := statsStyle.Render(statsStr)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + right + " "
}
