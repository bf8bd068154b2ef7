package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/shortcuts"
)

// Keys handled by the popup directly rather than through the shortcut
// registry.
var extraKeys = [][2]string{
	{"space", "Select tab"},
	{"enter", "Expand or collapse"},
	{"m", "Move selection to group"},
	{"u", "Ungroup selection"},
	{"r", "Refresh"},
	{"t", "Toggle dark mode"},
	{"esc", "Clear selection / search"},
	{"?", "Show this help"},
	{"q", "Quit"},
}

func renderHelp(list []shortcuts.Shortcut, theme Theme) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent)
	keyStyle := lipgloss.NewStyle().Bold(true).Width(16)
	offStyle := lipgloss.NewStyle().Foreground(theme.Muted)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Accent).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keyboard shortcuts") + "\n\n")
	for _, s := range list {
		line := keyStyle.Render(shortcuts.Format(s.Combo)) + s.Description
		if !s.Enabled {
			line = offStyle.Render(fmt.Sprintf("%s (disabled)", line))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	for _, k := range extraKeys {
		b.WriteString(keyStyle.Render(k[0]) + k[1] + "\n")
	}
	b.WriteString("\n" + offStyle.Render("press any key to close"))
	return boxStyle.Render(b.String())
}
