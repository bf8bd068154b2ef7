package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/types"
)

// GroupPicker chooses the destination group for a move.
type GroupPicker struct {
	Groups []*types.TabGroup
	Cursor int
	Width  int
	Height int
	Theme  Theme
}

// NewGroupPicker lists the real groups only.
func NewGroupPicker(groups []*types.TabGroup) GroupPicker {
	var real []*types.TabGroup
	for _, g := range groups {
		if g.ID != types.UngroupedGroupID {
			real = append(real, g)
		}
	}
	return GroupPicker{Groups: real}
}

func (m *GroupPicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *GroupPicker) MoveDown() {
	if m.Cursor < len(m.Groups)-1 {
		m.Cursor++
	}
}

func (m GroupPicker) Selected() *types.TabGroup {
	if m.Cursor >= 0 && m.Cursor < len(m.Groups) {
		return m.Groups[m.Cursor]
	}
	return nil
}

func (m GroupPicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.Theme.Accent).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Move to group:") + "\n\n")

	if len(m.Groups) == 0 {
		b.WriteString(normalStyle.Render("No groups yet. Press ctrl+g to create one.") + "\n")
	}
	for i, g := range m.Groups {
		label := fmt.Sprintf("%s %s (%d tabs)", swatch(g.Color), g.Title, len(g.Tabs))
		if i == m.Cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render("  " + label)
		}
		b.WriteString(label + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter confirm · esc cancel"))

	return boxStyle.Render(b.String())
}
