package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/grouping"
	"github.com/lotas/tabgroups/internal/types"
)

// DetailModel shows information about the selected item.
type DetailModel struct {
	Width  int
	Height int
	Theme  Theme
}

func (m DetailModel) styles() (label, value lipgloss.Style) {
	label = lipgloss.NewStyle().Bold(true).Foreground(m.Theme.Muted)
	value = lipgloss.NewStyle().Foreground(m.Theme.Text)
	return label, value
}

func (m DetailModel) ViewTab(tab *types.Tab, group *types.TabGroup) string {
	if tab == nil {
		return ""
	}
	labelStyle, valueStyle := m.styles()
	width := m.Width - 2
	if width < 10 {
		width = 10
	}

	var b strings.Builder

	b.WriteString(labelStyle.Render("Title") + "\n")
	title := []rune(tab.Title)
	if len(title) > width {
		title = append(title[:width-1], '…')
	}
	b.WriteString(valueStyle.Render(string(title)) + "\n\n")

	b.WriteString(labelStyle.Render("URL") + "\n")
	url := tab.URL
	// Wrap long URLs
	for len(url) > width {
		b.WriteString(valueStyle.Render(url[:width]) + "\n")
		url = url[width:]
	}
	b.WriteString(valueStyle.Render(url) + "\n\n")

	b.WriteString(labelStyle.Render("Group") + "\n")
	if group != nil && tab.Grouped() {
		b.WriteString(valueStyle.Render(swatch(group.Color)+" "+group.Title) + "\n\n")
	} else {
		b.WriteString(valueStyle.Render("none") + "\n\n")
	}

	if !tab.LastAccessed.IsZero() {
		b.WriteString(labelStyle.Render("Last Visited") + "\n")
		b.WriteString(valueStyle.Render(ago(time.Since(tab.LastAccessed))) + "\n\n")
	}

	var flags []string
	if tab.Pinned {
		flags = append(flags, "pinned")
	}
	if tab.Muted {
		flags = append(flags, "muted")
	}
	if tab.Active {
		flags = append(flags, "active")
	}
	if len(flags) > 0 {
		b.WriteString(labelStyle.Render("State") + "\n")
		b.WriteString(valueStyle.Render(strings.Join(flags, ", ")) + "\n")
	}

	return b.String()
}

func ago(age time.Duration) string {
	days := int(age.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%d days ago", days)
	}
	if hours := int(age.Hours()); hours > 0 {
		return fmt.Sprintf("%d hours ago", hours)
	}
	return "just now"
}

func (m DetailModel) ViewGroup(group *types.TabGroup) string {
	if group == nil {
		return ""
	}
	labelStyle, valueStyle := m.styles()

	var b strings.Builder

	b.WriteString(labelStyle.Render("Group") + "\n")
	b.WriteString(valueStyle.Render(group.Title) + "\n\n")

	b.WriteString(labelStyle.Render("Tabs") + "\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", len(group.Tabs))) + "\n\n")

	if group.ID == types.UngroupedGroupID {
		return b.String()
	}

	b.WriteString(labelStyle.Render("Color") + "\n")
	b.WriteString(valueStyle.Render(swatch(group.Color)+" "+group.Color) + "\n\n")

	state := "expanded"
	if group.Collapsed {
		state = "collapsed"
	}
	b.WriteString(labelStyle.Render("State") + "\n")
	b.WriteString(valueStyle.Render(state) + "\n")

	// Domains, most common first.
	counts := make(map[string]int)
	var order []string
	for _, tab := range group.Tabs {
		host, ok := grouping.Hostname(tab.URL)
		if !ok {
			continue
		}
		if counts[host] == 0 {
			order = append(order, host)
		}
		counts[host]++
	}
	if len(order) > 0 {
		b.WriteString("\n" + labelStyle.Render("Domains") + "\n")
		for _, host := range order {
			b.WriteString(fmt.Sprintf("  %s (%d)\n", host, counts[host]))
		}
	}

	return b.String()
}
