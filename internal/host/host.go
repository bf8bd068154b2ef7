// Package host describes the browser primitives tabgroups orchestrates.
// The browser owns all tab and group state; implementations either relay
// calls to a live extension (server.Bridge), expose a parsed session file
// read-only (firefox.SessionHost), or simulate a browser in tests
// (hosttest.Browser).
package host

import (
	"context"
	"encoding/json"

	"github.com/lotas/tabgroups/internal/types"
)

// TabQuery selects tabs. Nil fields match any value.
type TabQuery struct {
	GroupID       *int  `json:"groupId,omitempty"`
	Pinned        *bool `json:"pinned,omitempty"`
	Highlighted   *bool `json:"highlighted,omitempty"`
	Active        *bool `json:"active,omitempty"`
	CurrentWindow bool  `json:"currentWindow,omitempty"`
	WindowID      int   `json:"windowId,omitempty"`
}

// InGroup returns a query for the members of group id.
func InGroup(id int) TabQuery {
	return TabQuery{GroupID: &id}
}

// UngroupedTabs returns a query for tabs outside any group.
func UngroupedTabs() TabQuery {
	id := types.NoGroup
	return TabQuery{GroupID: &id}
}

// PinnedTabs returns a query for pinned tabs.
func PinnedTabs() TabQuery {
	pinned := true
	return TabQuery{Pinned: &pinned}
}

// HighlightedInCurrentWindow returns a query for the tabs the user has
// selected in the focused window.
func HighlightedInCurrentWindow() TabQuery {
	h := true
	return TabQuery{Highlighted: &h, CurrentWindow: true}
}

// ActiveInCurrentWindow returns a query for the focused tab.
func ActiveInCurrentWindow() TabQuery {
	a := true
	return TabQuery{Active: &a, CurrentWindow: true}
}

// Matches reports whether tab satisfies q. currentWindow is the ID of the
// focused window, used when q.CurrentWindow is set.
func (q TabQuery) Matches(tab *types.Tab, currentWindow int) bool {
	if q.GroupID != nil {
		if *q.GroupID == types.NoGroup {
			if tab.Grouped() {
				return false
			}
		} else if tab.GroupID != *q.GroupID {
			return false
		}
	}
	if q.Pinned != nil && tab.Pinned != *q.Pinned {
		return false
	}
	if q.Highlighted != nil && tab.Highlighted != *q.Highlighted {
		return false
	}
	if q.Active != nil && tab.Active != *q.Active {
		return false
	}
	if q.CurrentWindow && tab.WindowID != currentWindow {
		return false
	}
	if q.WindowID != 0 && tab.WindowID != q.WindowID {
		return false
	}
	return true
}

// CreateTab describes a tab to open.
type CreateTab struct {
	URL      string `json:"url"`
	Pinned   bool   `json:"pinned,omitempty"`
	Active   bool   `json:"active"`
	WindowID int    `json:"windowId,omitempty"`
}

// GroupRequest adds tabs to a group. A zero GroupID creates a new group.
type GroupRequest struct {
	TabIDs  []int `json:"tabIds"`
	GroupID int   `json:"groupId,omitempty"`
}

// GroupUpdate changes group properties. Nil fields are left unchanged.
type GroupUpdate struct {
	Title     *string `json:"title,omitempty"`
	Color     *string `json:"color,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

// TitleColor is a shorthand for the most common update.
func TitleColor(title, color string) GroupUpdate {
	u := GroupUpdate{Title: &title}
	if color != "" {
		u.Color = &color
	}
	return u
}

// Host is the tab and tab-group API of the browser.
type Host interface {
	QueryTabs(ctx context.Context, q TabQuery) ([]*types.Tab, error)
	CreateTab(ctx context.Context, opts CreateTab) (*types.Tab, error)
	GroupTabs(ctx context.Context, req GroupRequest) (int, error)
	UngroupTabs(ctx context.Context, tabIDs []int) error
	QueryGroups(ctx context.Context) ([]*types.TabGroup, error)
	GetGroup(ctx context.Context, id int) (*types.TabGroup, error)
	UpdateGroup(ctx context.Context, id int, u GroupUpdate) error
	MoveGroup(ctx context.Context, id, index int) error
	CurrentWindow(ctx context.Context) (int, error)
}

// Downloader saves a file on the user's behalf.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) error
}

// Badge shows short text on the extension's toolbar button.
type Badge interface {
	SetBadge(ctx context.Context, text, color string) error
}

// Message levels for Notify.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(ctx context.Context, level, text string) error
}

// Messenger delivers an action to the content of a tab.
type Messenger interface {
	SendMessage(ctx context.Context, tabID int, action string) error
}

// Event kinds delivered by the browser.
const (
	EventTabCreated     = "tab.created"
	EventTabUpdated     = "tab.updated"
	EventTabRemoved     = "tab.removed"
	EventGroupCreated   = "group.created"
	EventGroupUpdated   = "group.updated"
	EventGroupRemoved   = "group.removed"
	EventCommand        = "command"
	EventStorageChanged = "storage.changed"
	EventSettingsReload = "settings.reload"
	EventSnapshot       = "snapshot"
)

// Event is a notification pushed by the browser.
type Event struct {
	Kind    string
	Tab     *types.Tab
	TabID   int
	Group   *types.TabGroup
	Command string
	Changes map[string]json.RawMessage
	Session *types.SessionData
}
