package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/types"
)

// ProfilePicker chooses which Firefox profile an offline popup reads.
type ProfilePicker struct {
	Profiles []types.Profile
	Cursor   int
	Chosen   bool
	Theme    Theme
}

func NewProfilePicker(profiles []types.Profile) ProfilePicker {
	cursor := 0
	for i, p := range profiles {
		if p.IsDefault {
			cursor = i
			break
		}
	}
	return ProfilePicker{Profiles: profiles, Cursor: cursor, Theme: lightTheme}
}

// PickProfile shows the picker full screen. ok is false when the user
// cancelled.
func PickProfile(profiles []types.Profile) (p types.Profile, ok bool, err error) {
	if len(profiles) == 1 {
		return profiles[0], true, nil
	}
	final, err := tea.NewProgram(NewProfilePicker(profiles), tea.WithAltScreen()).Run()
	if err != nil {
		return types.Profile{}, false, err
	}
	picker := final.(ProfilePicker)
	if !picker.Chosen || len(picker.Profiles) == 0 {
		return types.Profile{}, false, nil
	}
	return picker.Selected(), true, nil
}

func (m ProfilePicker) Init() tea.Cmd { return nil }

func (m ProfilePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.MoveUp()
	case "down", "j":
		m.MoveDown()
	case "enter":
		m.Chosen = len(m.Profiles) > 0
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *ProfilePicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *ProfilePicker) MoveDown() {
	if m.Cursor < len(m.Profiles)-1 {
		m.Cursor++
	}
}

func (m ProfilePicker) Selected() types.Profile {
	return m.Profiles[m.Cursor]
}

func (m ProfilePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.Theme.Accent).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Read tab groups from which profile?") + "\n\n")

	if len(m.Profiles) == 0 {
		b.WriteString(normalStyle.Render("No Firefox profiles found.") + "\n")
	}
	for i, p := range m.Profiles {
		label := p.Name
		if p.IsDefault {
			label += " (default)"
		}
		if i == m.Cursor {
			b.WriteString(selectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(normalStyle.Render(fmt.Sprintf("  %s", label)) + "\n")
		}
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter open · esc cancel"))

	return boxStyle.Render(b.String())
}
