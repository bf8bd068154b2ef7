package tui

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/exchange"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/registry"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/shortcuts"
	"github.com/lotas/tabgroups/internal/storage"
	"github.com/lotas/tabgroups/internal/types"
)

// StatusTimeout is how long a status message stays visible.
const StatusTimeout = 3 * time.Second

// Options wires the popup to one browser source.
type Options struct {
	Ctx        context.Context
	Host       host.Host
	Registry   *registry.Registry
	Settings   *settings.Store
	Downloader host.Downloader

	// Events delivers browser events. Nil for offline sources.
	Events <-chan host.Event

	// Connect blocks until the browser is reachable. Nil for offline
	// sources.
	Connect func(context.Context) error

	// DB records exports in the history when set.
	DB *sql.DB

	Source        string
	Now           func() time.Time
	StatusTimeout time.Duration
}

// --- Messages ---

type connectedMsg struct{ err error }

type refreshedMsg struct{ err error }

type eventMsg struct{ ev host.Event }

type opDoneMsg struct {
	status string
	err    error
}

type statusExpiredMsg struct{ id int }

type settingsChangedMsg struct{ s settings.Settings }

// mode is the popup's input state.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeTitle
	modeImport
	modeConfirm
	modeGroupPicker
	modeHelp
)

// --- Model ---

type Model struct {
	opts    Options
	keys    *shortcuts.Registry
	prefs   settings.Settings
	theme   Theme
	changes <-chan settings.Change

	session *types.SessionData
	stats   types.Stats

	// UI state
	tree        TreeModel
	detail      DetailModel
	groupPicker GroupPicker
	input       textinput.Model
	mode        mode
	selected    map[int]bool // tab ID -> selected
	pendingIDs  []int        // tabs waiting for a new group's title
	closeTarget *types.TabGroup
	loading     bool
	connected   bool
	width       int
	height      int

	status    string
	statusErr bool
	statusID  int
}

func NewModel(opts Options) Model {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StatusTimeout == 0 {
		opts.StatusTimeout = StatusTimeout
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	prefs := opts.Settings.Get()
	changes, _ := opts.Settings.Subscribe()
	m := Model{
		opts:      opts,
		changes:   changes,
		keys:      shortcuts.Defaults(),
		prefs:     prefs,
		theme:     themeFor(prefs.DarkMode),
		input:     ti,
		selected:  make(map[int]bool),
		loading:   true,
		connected: opts.Connect == nil,
	}
	m.tree = NewTreeModel(nil)
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitSettings(m.changes), listenEvents(m.opts.Events)}
	if m.opts.Connect != nil {
		cmds = append(cmds, connect(m.opts.Ctx, m.opts.Connect))
	} else {
		cmds = append(cmds, refresh(m.opts.Ctx, m.opts.Registry))
	}
	return tea.Batch(cmds...)
}

func connect(ctx context.Context, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{err: fn(ctx)}
	}
}

func refresh(ctx context.Context, reg *registry.Registry) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: reg.Refresh(ctx)}
	}
}

func listenEvents(events <-chan host.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func waitSettings(changes <-chan settings.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-changes
		if !ok {
			return nil
		}
		return settingsChangedMsg{s: c.New}
	}
}

// op runs fn off the UI loop and reports its outcome as a status message.
func op(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		return opDoneMsg{status: status, err: err}
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.status = text
	m.statusErr = isErr
	id := m.statusID
	return tea.Tick(m.opts.StatusTimeout, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}

func (m *Model) selectedOrCurrentTabIDs() []int {
	if len(m.selected) > 0 {
		ids := make([]int, 0, len(m.selected))
		for id := range m.selected {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return ids
	}
	node := m.tree.SelectedNode()
	if node != nil && node.Tab != nil {
		return []int{node.Tab.ID}
	}
	if node != nil && node.Group != nil {
		return node.Group.TabIDs()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case connectedMsg:
		if msg.err != nil {
			m.loading = false
			c := m.setStatus("Not connected: "+msg.err.Error(), true)
			return m, c
		}
		m.connected = true
		return m, refresh(m.opts.Ctx, m.opts.Registry)

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			applog.Error("tui.refresh", msg.err)
			c := m.setStatus("Refresh failed: "+msg.err.Error(), true)
			return m, c
		}
		m.rebuild()
		return m, nil

	case eventMsg:
		next := listenEvents(m.opts.Events)
		switch msg.ev.Kind {
		case host.EventCommand:
			if msg.ev.Command == shortcuts.CommandSearchTabs {
				c := tea.Batch(next, m.startSearch())
				return m, c
			}
			return m, next
		case host.EventStorageChanged:
			m.opts.Settings.ApplyRemote(msg.ev.Changes)
			return m, next
		case host.EventSettingsReload:
			return m, tea.Batch(next, func() tea.Msg {
				if _, err := m.opts.Settings.Load(m.opts.Ctx); err != nil {
					return opDoneMsg{err: err}
				}
				return nil
			})
		case host.EventSnapshot:
			m.connected = true
		}
		return m, tea.Batch(next, refresh(m.opts.Ctx, m.opts.Registry))

	case opDoneMsg:
		if msg.err != nil {
			applog.Error("tui.op", msg.err)
			c := tea.Batch(m.setStatus(msg.err.Error(), true), refresh(m.opts.Ctx, m.opts.Registry))
			return m, c
		}
		m.rebuild()
		if msg.status == "" {
			return m, nil
		}
		c := m.setStatus(msg.status, false)
		return m, c

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case settingsChangedMsg:
		m.prefs = msg.s
		m.theme = themeFor(msg.s.DarkMode)
		m.rebuild()
		return m, waitSettings(m.changes)
	}

	if m.mode == modeSearch || m.mode == modeTitle || m.mode == modeImport {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeHelp:
		m.mode = modeNormal
		return m, nil

	case modeGroupPicker:
		switch key {
		case "up", "k":
			m.groupPicker.MoveUp()
		case "down", "j":
			m.groupPicker.MoveDown()
		case "enter":
			m.mode = modeNormal
			group := m.groupPicker.Selected()
			if group == nil {
				return m, nil
			}
			ids := m.selectedOrCurrentTabIDs()
			m.selected = make(map[int]bool)
			reg := m.opts.Registry
			ctx := m.opts.Ctx
			return m, op(func() (string, error) {
				if err := reg.AddTabs(ctx, group.ID, ids); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved %d tabs to %s", len(ids), group.Title), nil
			})
		case "esc":
			m.mode = modeNormal
		}
		return m, nil

	case modeConfirm:
		m.mode = modeNormal
		target := m.closeTarget
		m.closeTarget = nil
		if key != "y" || target == nil {
			c := m.setStatus("Cancelled", false)
			return m, c
		}
		c := m.closeGroup(target)
		return m, c

	case modeSearch:
		switch key {
		case "esc":
			m.input.Blur()
			m.input.SetValue("")
			m.mode = modeNormal
			m.tree.SetTerm("")
			return m, nil
		case "enter":
			m.input.Blur()
			m.mode = modeNormal
			return m, nil
		case "up", "down":
			// Navigation keeps working while typing.
			if key == "up" {
				m.tree.MoveUp()
			} else {
				m.tree.MoveDown()
			}
			return m, nil
		}
		prev := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != prev {
			m.tree.SetTerm(m.input.Value())
		}
		return m, cmd

	case modeTitle, modeImport:
		switch key {
		case "esc":
			m.input.Blur()
			m.input.SetValue("")
			m.mode = modeNormal
			m.pendingIDs = nil
			return m, nil
		case "enter":
			value := strings.TrimSpace(m.input.Value())
			m.input.Blur()
			m.input.SetValue("")
			done := m.mode
			m.mode = modeNormal
			if done == modeTitle {
				c := m.createGroup(value)
				return m, c
			}
			c := m.importFile(value)
			return m, c
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if action, ok := m.keys.Lookup(key, false); ok {
		return m.perform(action)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "k":
		m.tree.MoveUp()
	case "j":
		m.tree.MoveDown()
	case "enter":
		m.tree.Toggle()
	case "h", "left":
		m.tree.CollapseOrParent()
	case "l", "right":
		m.tree.ExpandOrEnter()
	case " ":
		node := m.tree.SelectedNode()
		if node != nil && node.Tab != nil {
			id := node.Tab.ID
			if m.selected[id] {
				delete(m.selected, id)
			} else {
				m.selected[id] = true
			}
		}
		m.tree.MoveDown()
	case "m":
		if len(m.selectedOrCurrentTabIDs()) == 0 {
			return m, nil
		}
		m.groupPicker = NewGroupPicker(m.tree.Groups)
		m.groupPicker.Theme = m.theme
		m.mode = modeGroupPicker
	case "u":
		ids := m.selectedOrCurrentTabIDs()
		if len(ids) == 0 {
			return m, nil
		}
		m.selected = make(map[int]bool)
		reg := m.opts.Registry
		ctx := m.opts.Ctx
		return m, op(func() (string, error) {
			if err := reg.RemoveTabs(ctx, ids); err != nil {
				return "", err
			}
			return fmt.Sprintf("Ungrouped %d tabs", len(ids)), nil
		})
	case "r":
		return m, refresh(m.opts.Ctx, m.opts.Registry)
	case "t":
		store := m.opts.Settings
		ctx := m.opts.Ctx
		return m, op(func() (string, error) {
			err := store.Update(ctx, func(s *settings.Settings) error {
				s.DarkMode = !s.DarkMode
				return nil
			})
			return "", err
		})
	case "?":
		m.mode = modeHelp
	case "esc":
		m.selected = make(map[int]bool)
		if m.tree.Term != "" {
			m.input.SetValue("")
			m.tree.SetTerm("")
		}
	}
	return m, nil
}

func (m Model) perform(action shortcuts.Action) (tea.Model, tea.Cmd) {
	switch action {
	case shortcuts.Up:
		m.tree.MoveUp()
	case shortcuts.Down:
		m.tree.MoveDown()
	case shortcuts.Search:
		c := m.startSearch()
		return m, c
	case shortcuts.NewGroup:
		ids := m.selectedOrCurrentTabIDs()
		if len(ids) == 0 {
			c := m.setStatus("No tabs to group", true)
			return m, c
		}
		m.pendingIDs = ids
		m.mode = modeTitle
		m.input.Placeholder = types.DefaultGroupTitle
		m.input.Prompt = "Group title: "
		m.input.SetValue("")
		c := m.input.Focus()
		return m, c
	case shortcuts.Export:
		c := m.exportAll()
		return m, c
	case shortcuts.Import:
		m.mode = modeImport
		m.input.Placeholder = "path/to/export.json"
		m.input.Prompt = "Import file: "
		m.input.SetValue("")
		c := m.input.Focus()
		return m, c
	case shortcuts.CloseGroup:
		g := m.tree.CurrentGroup()
		if g == nil || g.ID == types.UngroupedGroupID {
			c := m.setStatus("No group selected", true)
			return m, c
		}
		if m.prefs.ConfirmTabClose {
			m.closeTarget = g
			m.mode = modeConfirm
			return m, nil
		}
		c := m.closeGroup(g)
		return m, c
	case shortcuts.SelectAll:
		g := m.tree.CurrentGroup()
		if g == nil {
			return m, nil
		}
		for _, id := range g.TabIDs() {
			m.selected[id] = true
		}
		c := m.setStatus(fmt.Sprintf("Selected %d tabs", len(g.Tabs)), false)
		return m, c
	case shortcuts.ToggleCollapse:
		g := m.tree.CurrentGroup()
		if g == nil {
			return m, nil
		}
		collapsed := m.tree.Expanded[g.ID]
		m.tree.Expanded[g.ID] = !collapsed
		if g.ID == types.UngroupedGroupID {
			return m, nil
		}
		reg := m.opts.Registry
		ctx := m.opts.Ctx
		id := g.ID
		return m, op(func() (string, error) {
			return "", reg.UpdateGroup(ctx, id, host.GroupUpdate{Collapsed: &collapsed})
		})
	}
	return m, nil
}

func (m *Model) startSearch() tea.Cmd {
	m.mode = modeSearch
	m.input.Placeholder = "Search tabs..."
	m.input.Prompt = "/ "
	m.input.SetValue(m.tree.Term)
	return m.input.Focus()
}

func (m *Model) createGroup(title string) tea.Cmd {
	ids := m.pendingIDs
	m.pendingIDs = nil
	m.selected = make(map[int]bool)
	reg := m.opts.Registry
	ctx := m.opts.Ctx
	return op(func() (string, error) {
		id, err := reg.CreateGroup(ctx, ids, title, "")
		if err != nil {
			return "", err
		}
		name := title
		if g := reg.Get(id); g != nil {
			name = g.Title
		}
		return fmt.Sprintf("Created group %s with %d tabs", name, len(ids)), nil
	})
}

func (m *Model) closeGroup(g *types.TabGroup) tea.Cmd {
	reg := m.opts.Registry
	ctx := m.opts.Ctx
	return op(func() (string, error) {
		if err := reg.RemoveGroup(ctx, g.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Closed group %s", g.Title), nil
	})
}

func (m *Model) exportAll() tea.Cmd {
	if m.opts.Downloader == nil {
		return m.setStatus("Export is not available", true)
	}
	opts := m.opts
	return op(func() (string, error) {
		var ids []int
		for _, g := range opts.Registry.Groups() {
			ids = append(ids, g.ID)
		}
		now := opts.Now()
		req := exchange.ExportRequest{GroupIDs: ids, IncludeUngrouped: true}
		doc, err := exchange.Collect(opts.Ctx, opts.Host, req, now, nil)
		if err != nil {
			return "", err
		}
		name, err := exchange.Download(opts.Ctx, opts.Downloader, doc, now)
		if err != nil {
			return "", err
		}
		if opts.DB != nil {
			data, err := exchange.Encode(doc)
			if err == nil {
				_, err = storage.RecordExport(opts.DB, name, len(doc.Groups), doc.TabCount(), data)
			}
			if err != nil {
				applog.Error("tui.export_history", err)
			}
		}
		return fmt.Sprintf("Exported %d groups to %s", len(doc.Groups), name), nil
	})
}

func (m *Model) importFile(path string) tea.Cmd {
	if path == "" {
		return m.setStatus("No file given", true)
	}
	opts := m.opts
	return op(func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		res, err := exchange.ImportFile(opts.Ctx, opts.Host, data, nil)
		if rerr := opts.Registry.Refresh(opts.Ctx); rerr != nil {
			applog.Error("tui.refresh", rerr)
		}
		if err != nil {
			return "", err
		}
		status := fmt.Sprintf("Imported %d groups, %d tabs", res.Groups, res.Tabs)
		if res.SkippedTabs > 0 {
			status += fmt.Sprintf(" (%d skipped)", res.SkippedTabs)
		}
		return status, nil
	})
}

func (m *Model) layout() {
	treeWidth := m.width * TreeWidthPct / 100
	detailWidth := m.width - treeWidth - 3 // borders
	paneHeight := m.height - 6              // top bar, search, status, bottom bar
	m.tree.Width = treeWidth
	m.tree.Height = paneHeight
	m.detail.Width = detailWidth
	m.detail.Height = paneHeight
	m.input.Width = m.width - 20
}

// rebuild redraws the tree from the registry's latest snapshot.
func (m *Model) rebuild() {
	m.session = m.opts.Registry.Snapshot()
	m.stats = m.opts.Registry.Stats()

	old := m.tree
	m.tree = NewTreeModel(m.session)
	m.tree.ShowCount = m.prefs.ShowTabCount
	m.tree.Theme = m.theme
	m.detail.Theme = m.theme
	for id, exp := range old.Expanded {
		if m.session.GroupByID(id) != nil || id == types.UngroupedGroupID {
			m.tree.Expanded[id] = exp
		}
	}
	m.tree.SavedExpanded = old.SavedExpanded
	if old.Term != "" {
		saved := m.tree.SavedExpanded
		m.tree.SetTerm(old.Term)
		m.tree.SavedExpanded = saved
	}
	m.tree.Cursor = old.Cursor
	m.tree.Offset = old.Offset
	m.layout()
	m.tree.Clamp()

	// Drop selections of tabs that no longer exist.
	for id := range m.selected {
		if m.session.TabByID(id) == nil {
			delete(m.selected, id)
		}
	}
}

func (m Model) View() string {
	if m.loading {
		if !m.connected {
			return fmt.Sprintf("\n  Waiting for extension connection (%s)...\n", m.opts.Source)
		}
		return "\n  Loading tabs...\n"
	}

	switch m.mode {
	case modeHelp:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, renderHelp(m.keys.List(), m.theme))
	case modeGroupPicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.groupPicker.View())
	case modeConfirm:
		box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(m.theme.Error).Padding(1, 2)
		text := fmt.Sprintf("Close group %q and ungroup its tabs? (y/n)", m.closeTarget.Title)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(text))
	}

	state := ""
	if m.opts.Connect != nil {
		state = "○ waiting..."
		if m.connected {
			state = "● connected"
		}
	}
	topBar := renderTopBar(m.opts.Source, state, m.stats, m.theme, m.width)

	searchLine := ""
	if m.mode != modeNormal {
		searchLine = " " + m.input.View()
	} else if m.tree.Term != "" {
		searchLine = lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf(" search: %s (esc to clear)", m.tree.Term))
	}

	treeBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Accent).
		Width(m.tree.Width).
		Height(m.tree.Height)

	detailBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Border).
		Width(m.detail.Width).
		Height(m.detail.Height)

	var detailContent string
	if node := m.tree.SelectedNode(); node != nil {
		if node.Tab != nil {
			detailContent = m.detail.ViewTab(node.Tab, m.session.GroupByID(node.Tab.GroupID))
		} else if node.Group != nil {
			detailContent = m.detail.ViewGroup(node.Group)
		}
	}

	m.tree.Selected = m.selected
	left := treeBorder.Render(m.tree.View())
	right := detailBorder.Render(detailContent)
	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	statusLine := ""
	if m.status != "" {
		color := m.theme.OK
		if m.statusErr {
			color = m.theme.Error
		}
		statusLine = lipgloss.NewStyle().Foreground(color).Padding(0, 1).Render(m.status)
	}

	bottomBarStyle := lipgloss.NewStyle().Foreground(m.theme.Muted).Padding(0, 1)
	var bottomText string
	if n := len(m.selected); n > 0 {
		bottomText = fmt.Sprintf("%d selected · m move · u ungroup · ctrl+g group · esc clear · ", n)
	}
	bottomText += "↑↓ navigate · space select · ctrl+f search · ctrl+e export · ? help · q quit"
	bottomBar := bottomBarStyle.Render(bottomText)

	return lipgloss.JoinVertical(lipgloss.Left, topBar, searchLine, panes, statusLine, bottomBar)
}
