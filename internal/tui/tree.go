package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/search"
	"github.com/lotas/tabgroups/internal/types"
)

// UngroupedTitle labels the pseudo-group holding tabs outside any group.
const UngroupedTitle = "Ungrouped"

// TreeNode represents a visible row in the tree.
type TreeNode struct {
	Group *types.TabGroup // non-nil for group headers
	Tab   *types.Tab      // non-nil for tab rows
}

// TreeModel manages the collapsible tree view.
type TreeModel struct {
	Source        *types.SessionData
	Groups        []*types.TabGroup
	Expanded      map[int]bool // group ID -> expanded
	SavedExpanded map[int]bool // snapshot before a search override
	Selected      map[int]bool // tab ID -> selected
	Term          string
	ShowCount     bool
	Theme         Theme
	Cursor        int
	Offset        int // scroll offset
	Width         int
	Height        int
}

// NewTreeModel builds the tree for data. Real groups are listed in
// browser order, followed by the Ungrouped pseudo-group when any tab is
// outside a group.
func NewTreeModel(data *types.SessionData) TreeModel {
	if data == nil {
		data = &types.SessionData{}
	}
	m := TreeModel{
		Source:    data,
		Expanded:  make(map[int]bool),
		Selected:  make(map[int]bool),
		ShowCount: true,
	}
	m.Groups = treeGroups(data)
	for _, g := range m.Groups {
		m.Expanded[g.ID] = !g.Collapsed
	}
	return m
}

func treeGroups(data *types.SessionData) []*types.TabGroup {
	groups := make([]*types.TabGroup, 0, len(data.Groups)+1)
	groups = append(groups, data.Groups...)
	if loose := data.Ungrouped(); len(loose) > 0 {
		groups = append(groups, &types.TabGroup{
			ID:    types.UngroupedGroupID,
			Title: UngroupedTitle,
			Tabs:  loose,
		})
	}
	return groups
}

// SetTerm filters the tree by a search term. While a term is active every
// group is expanded; clearing it restores the previous expansion.
func (m *TreeModel) SetTerm(term string) {
	term = strings.TrimSpace(term)
	prev := m.Term
	m.Term = term

	if term != "" {
		m.Groups = treeGroups(search.Filter(m.Source, term))
		if prev == "" {
			m.SavedExpanded = make(map[int]bool, len(m.Expanded))
			for id, exp := range m.Expanded {
				m.SavedExpanded[id] = exp
			}
		}
		for _, g := range m.Groups {
			m.Expanded[g.ID] = true
		}
	} else {
		m.Groups = treeGroups(m.Source)
		if m.SavedExpanded != nil {
			for id, exp := range m.SavedExpanded {
				m.Expanded[id] = exp
			}
			m.SavedExpanded = nil
		}
	}

	m.Cursor = 0
	m.Offset = 0
}

// VisibleNodes returns the flat list of currently visible nodes.
func (m TreeModel) VisibleNodes() []TreeNode {
	var nodes []TreeNode
	for _, g := range m.Groups {
		nodes = append(nodes, TreeNode{Group: g})
		if m.Expanded[g.ID] {
			for _, tab := range g.Tabs {
				nodes = append(nodes, TreeNode{Tab: tab})
			}
		}
	}
	return nodes
}

// SelectedNode returns the node under the cursor, or nil.
func (m TreeModel) SelectedNode() *TreeNode {
	nodes := m.VisibleNodes()
	if m.Cursor >= 0 && m.Cursor < len(nodes) {
		return &nodes[m.Cursor]
	}
	return nil
}

// CurrentGroup returns the group under the cursor, or the group holding
// the tab under the cursor.
func (m TreeModel) CurrentGroup() *types.TabGroup {
	nodes := m.VisibleNodes()
	for i := m.Cursor; i >= 0 && i < len(nodes); i-- {
		if nodes[i].Group != nil {
			return nodes[i].Group
		}
	}
	return nil
}

// MoveUp moves the cursor up.
func (m *TreeModel) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
}

// MoveDown moves the cursor down.
func (m *TreeModel) MoveDown() {
	nodes := m.VisibleNodes()
	if m.Cursor < len(nodes)-1 {
		m.Cursor++
	}
	m.scrollToCursor()
}

func (m *TreeModel) scrollToCursor() {
	visibleRows := m.Height - 2 // account for padding
	if visibleRows < 1 {
		visibleRows = 1
	}
	if m.Cursor >= m.Offset+visibleRows {
		m.Offset = m.Cursor - visibleRows + 1
	}
}

// Toggle expands/collapses the selected group.
func (m *TreeModel) Toggle() {
	node := m.SelectedNode()
	if node == nil || node.Group == nil {
		return
	}
	m.Expanded[node.Group.ID] = !m.Expanded[node.Group.ID]
}

// CollapseOrParent collapses the selected group if expanded, or jumps to the
// parent group header if the cursor is on a tab.
func (m *TreeModel) CollapseOrParent() {
	node := m.SelectedNode()
	if node == nil {
		return
	}
	if node.Group != nil {
		m.Expanded[node.Group.ID] = false
		return
	}
	nodes := m.VisibleNodes()
	for i := m.Cursor - 1; i >= 0; i-- {
		if nodes[i].Group != nil {
			m.Cursor = i
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
			return
		}
	}
}

// ExpandOrEnter expands the selected group if collapsed, or moves into the
// first child tab if already expanded.
func (m *TreeModel) ExpandOrEnter() {
	node := m.SelectedNode()
	if node == nil || node.Group == nil {
		return
	}
	if !m.Expanded[node.Group.ID] {
		m.Expanded[node.Group.ID] = true
		return
	}
	nodes := m.VisibleNodes()
	if m.Cursor+1 < len(nodes) && nodes[m.Cursor+1].Tab != nil {
		m.Cursor++
		m.scrollToCursor()
	}
}

// Clamp keeps the cursor on a visible row.
func (m *TreeModel) Clamp() {
	n := len(m.VisibleNodes())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// View renders the tree.
func (m TreeModel) View() string {
	nodes := m.VisibleNodes()
	if len(nodes) == 0 {
		if m.Term != "" {
			return fmt.Sprintf("No tabs match %q.", m.Term)
		}
		return "No tabs found."
	}

	visibleRows := m.Height
	if visibleRows < 1 {
		visibleRows = 20
	}

	var b strings.Builder
	end := m.Offset + visibleRows
	if end > len(nodes) {
		end = len(nodes)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	groupStyle := lipgloss.NewStyle().Bold(true).Foreground(m.Theme.Text)
	tabStyle := lipgloss.NewStyle().Foreground(m.Theme.Text)
	markerStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted)
	selectStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent)

	for i := m.Offset; i < end; i++ {
		node := nodes[i]
		var line string

		if node.Group != nil {
			icon := "▶"
			if m.Expanded[node.Group.ID] {
				icon = "▼"
			}
			title := node.Group.Title
			if title == "" {
				title = "Untitled"
			}
			label := fmt.Sprintf("%s %s %s", icon, swatch(node.Group.Color), title)
			if m.ShowCount {
				label += fmt.Sprintf(" (%d tabs)", len(node.Group.Tabs))
			}
			line = groupStyle.Render(label)
		} else if node.Tab != nil {
			prefix := "  "
			if m.Selected[node.Tab.ID] {
				prefix = selectStyle.Render("▸ ")
			}
			var markers []string
			if node.Tab.Pinned {
				markers = append(markers, "⚲")
			}
			if node.Tab.Muted {
				markers = append(markers, "♪")
			}
			marker := ""
			if len(markers) > 0 {
				marker = markerStyle.Render(strings.Join(markers, "")) + " "
			}

			label := node.Tab.Title
			if label == "" {
				label = node.Tab.URL
			}
			maxLen := m.Width - lipgloss.Width(prefix) - lipgloss.Width(marker) - 2
			if maxLen < 10 {
				maxLen = 10
			}
			if r := []rune(label); len(r) > maxLen {
				label = string(r[:maxLen-1]) + "…"
			}
			line = prefix + marker + tabStyle.Render(label)
		}

		if i == m.Cursor {
			if pad := m.Width - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			line = cursorStyle.Render(line)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}
