// Package hosttest provides an in-memory browser for tests.
package hosttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/types"
)

// Browser simulates the tab and tab-group API of a single browser profile.
// It records every call so tests can assert on the side effects issued.
type Browser struct {
	mu        sync.Mutex
	window    int
	tabs      []*types.Tab
	groups    []*types.TabGroup
	nextTab   int
	nextGroup int

	calls []string

	// FailCreate makes CreateTab fail for the given URLs.
	FailCreate map[string]error
	// FailGroup makes every GroupTabs call fail.
	FailGroup error
	// FailUpdate makes every UpdateGroup call fail.
	FailUpdate error

	Downloads map[string][]byte
	Badges    []string
	Notices   []string
	Messages  []string
}

var (
	_ host.Host       = (*Browser)(nil)
	_ host.Downloader = (*Browser)(nil)
	_ host.Badge      = (*Browser)(nil)
	_ host.Notifier   = (*Browser)(nil)
	_ host.Messenger  = (*Browser)(nil)
)

// New returns an empty browser with one window (ID 1).
func New() *Browser {
	return &Browser{
		window:     1,
		nextTab:    100,
		nextGroup:  10,
		FailCreate: make(map[string]error),
		Downloads:  make(map[string][]byte),
	}
}

// AddTab inserts a tab directly, bypassing call recording. Zero ID and
// WindowID are assigned; a zero GroupID means ungrouped.
func (b *Browser) AddTab(t types.Tab) *types.Tab {
	b.mu.Lock()
	defer b.mu.Unlock()
	tab := t
	if tab.ID == 0 {
		tab.ID = b.nextTab
		b.nextTab++
	}
	if tab.WindowID == 0 {
		tab.WindowID = b.window
	}
	if tab.GroupID == 0 {
		tab.GroupID = types.NoGroup
	}
	tab.Index = len(b.tabs)
	b.tabs = append(b.tabs, &tab)
	return &tab
}

// AddGroup creates a group holding the given tabs, bypassing call recording.
func (b *Browser) AddGroup(title, color string, tabIDs ...int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	g := &types.TabGroup{ID: b.nextGroup, Title: title, Color: color, WindowID: b.window}
	b.nextGroup++
	b.groups = append(b.groups, g)
	for _, id := range tabIDs {
		if t := b.tab(id); t != nil {
			t.GroupID = g.ID
		}
	}
	return g.ID
}

// Calls returns the recorded call log.
func (b *Browser) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallCount counts recorded calls whose name starts with prefix.
func (b *Browser) CallCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Session returns a copy of the current state.
func (b *Browser) Session() *types.SessionData {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := &types.SessionData{}
	byID := make(map[int]*types.TabGroup)
	for _, g := range b.groups {
		cp := *g
		cp.Tabs = nil
		byID[g.ID] = &cp
		data.Groups = append(data.Groups, &cp)
	}
	for _, t := range b.tabs {
		cp := *t
		data.AllTabs = append(data.AllTabs, &cp)
		if g, ok := byID[t.GroupID]; ok {
			g.Tabs = append(g.Tabs, &cp)
		}
	}
	return data
}

func (b *Browser) record(format string, args ...any) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *Browser) tab(id int) *types.Tab {
	for _, t := range b.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (b *Browser) group(id int) *types.TabGroup {
	for _, g := range b.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// pruneGroups drops groups that no longer have members, as browsers do.
func (b *Browser) pruneGroups() {
	used := make(map[int]bool)
	for _, t := range b.tabs {
		used[t.GroupID] = true
	}
	kept := b.groups[:0]
	for _, g := range b.groups {
		if used[g.ID] {
			kept = append(kept, g)
		}
	}
	b.groups = kept
}

func (b *Browser) QueryTabs(ctx context.Context, q host.TabQuery) ([]*types.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabs.query")
	var out []*types.Tab
	for _, t := range b.tabs {
		if q.Matches(t, b.window) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *Browser) CreateTab(ctx context.Context, opts host.CreateTab) (*types.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabs.create %s", opts.URL)
	if err, ok := b.FailCreate[opts.URL]; ok {
		return nil, err
	}
	window := opts.WindowID
	if window == 0 {
		window = b.window
	}
	t := &types.Tab{
		ID:       b.nextTab,
		WindowID: window,
		Index:    len(b.tabs),
		URL:      opts.URL,
		Pinned:   opts.Pinned,
		Active:   opts.Active,
		GroupID:  types.NoGroup,
	}
	b.nextTab++
	b.tabs = append(b.tabs, t)
	cp := *t
	return &cp, nil
}

func (b *Browser) GroupTabs(ctx context.Context, req host.GroupRequest) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabs.group %v -> %d", req.TabIDs, req.GroupID)
	if b.FailGroup != nil {
		return 0, b.FailGroup
	}
	if len(req.TabIDs) == 0 {
		return 0, fmt.Errorf("no tabs to group")
	}
	for _, id := range req.TabIDs {
		if b.tab(id) == nil {
			return 0, fmt.Errorf("no tab with id: %d", id)
		}
	}

	var g *types.TabGroup
	if req.GroupID != 0 {
		g = b.group(req.GroupID)
		if g == nil {
			return 0, fmt.Errorf("no group with id: %d", req.GroupID)
		}
	} else {
		g = &types.TabGroup{ID: b.nextGroup, Color: "grey", WindowID: b.window}
		b.nextGroup++
		b.groups = append(b.groups, g)
	}
	for _, id := range req.TabIDs {
		b.tab(id).GroupID = g.ID
	}
	b.pruneGroups()
	return g.ID, nil
}

func (b *Browser) UngroupTabs(ctx context.Context, tabIDs []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabs.ungroup %v", tabIDs)
	for _, id := range tabIDs {
		t := b.tab(id)
		if t == nil {
			return fmt.Errorf("no tab with id: %d", id)
		}
		t.GroupID = types.NoGroup
	}
	b.pruneGroups()
	return nil
}

func (b *Browser) QueryGroups(ctx context.Context) ([]*types.TabGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabGroups.query")
	out := make([]*types.TabGroup, 0, len(b.groups))
	for _, g := range b.groups {
		cp := *g
		cp.Tabs = nil
		out = append(out, &cp)
	}
	return out, nil
}

func (b *Browser) GetGroup(ctx context.Context, id int) (*types.TabGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabGroups.get %d", id)
	g := b.group(id)
	if g == nil {
		return nil, fmt.Errorf("no group with id: %d", id)
	}
	cp := *g
	cp.Tabs = nil
	return &cp, nil
}

func (b *Browser) UpdateGroup(ctx context.Context, id int, u host.GroupUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabGroups.update %d", id)
	if b.FailUpdate != nil {
		return b.FailUpdate
	}
	g := b.group(id)
	if g == nil {
		return fmt.Errorf("no group with id: %d", id)
	}
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Color != nil {
		if !types.ValidColor(*u.Color) {
			return fmt.Errorf("invalid color %q", *u.Color)
		}
		g.Color = types.NormalizeColor(*u.Color)
	}
	if u.Collapsed != nil {
		g.Collapsed = *u.Collapsed
	}
	return nil
}

func (b *Browser) MoveGroup(ctx context.Context, id, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabGroups.move %d %d", id, index)
	pos := -1
	for i, g := range b.groups {
		if g.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("no group with id: %d", id)
	}
	g := b.groups[pos]
	rest := append(b.groups[:pos:pos], b.groups[pos+1:]...)
	if index < 0 || index > len(rest) {
		index = len(rest)
	}
	b.groups = append(rest[:index:index], append([]*types.TabGroup{g}, rest[index:]...)...)
	return nil
}

func (b *Browser) CurrentWindow(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("windows.getCurrent")
	return b.window, nil
}

func (b *Browser) Download(ctx context.Context, filename string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("downloads.download %s", filename)
	b.Downloads[filename] = append([]byte(nil), data...)
	return nil
}

func (b *Browser) SetBadge(ctx context.Context, text, color string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("action.setBadge %s", text)
	b.Badges = append(b.Badges, text+" "+color)
	return nil
}

func (b *Browser) Notify(ctx context.Context, level, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("notify %s", level)
	b.Notices = append(b.Notices, level+": "+text)
	return nil
}

func (b *Browser) SendMessage(ctx context.Context, tabID int, action string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("tabs.sendMessage %d", tabID)
	b.Messages = append(b.Messages, fmt.Sprintf("%d:%s", tabID, action))
	return nil
}
