package types

import (
	"strings"
	"time"
)

// NoGroup is the group ID the browser reports for a tab outside any group.
const NoGroup = -1

// Pseudo-group IDs used in export documents. They never exist in the browser.
const (
	UngroupedGroupID = -1
	PinnedGroupID    = -2
)

// DefaultGroupTitle is used when a group is created without a title.
const DefaultGroupTitle = "New Group"

// Tab represents a single browser tab.
type Tab struct {
	ID           int
	WindowID     int
	Index        int
	URL          string
	Title        string
	Pinned       bool
	Muted        bool
	Active       bool
	Highlighted  bool
	FavIconURL   string
	GroupID      int // NoGroup if ungrouped
	LastAccessed time.Time
}

// Grouped reports whether the tab belongs to a group.
func (t *Tab) Grouped() bool {
	return t.GroupID != NoGroup && t.GroupID != 0
}

// TabGroup represents a browser tab group.
type TabGroup struct {
	ID        int
	Title     string
	Color     string
	Collapsed bool
	WindowID  int
	Tabs      []*Tab
}

// TabIDs returns the IDs of the group's member tabs in order.
func (g *TabGroup) TabIDs() []int {
	ids := make([]int, 0, len(g.Tabs))
	for _, t := range g.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// SessionData is a point-in-time view of the browser's tabs and groups.
// Groups holds real browser groups only, in the order the browser
// enumerated them.
type SessionData struct {
	Groups   []*TabGroup
	AllTabs  []*Tab
	Profile  Profile
	ParsedAt time.Time
}

// GroupByID returns the group with the given ID, or nil.
func (d *SessionData) GroupByID(id int) *TabGroup {
	for _, g := range d.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// TabByID returns the tab with the given ID, or nil.
func (d *SessionData) TabByID(id int) *Tab {
	for _, t := range d.AllTabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Ungrouped returns tabs that belong to no group, pinned ones included.
func (d *SessionData) Ungrouped() []*Tab {
	var out []*Tab
	for _, t := range d.AllTabs {
		if !t.Grouped() {
			out = append(out, t)
		}
	}
	return out
}

// Pinned returns all pinned tabs regardless of group membership.
func (d *SessionData) Pinned() []*Tab {
	var out []*Tab
	for _, t := range d.AllTabs {
		if t.Pinned {
			out = append(out, t)
		}
	}
	return out
}

// Stats holds aggregate statistics.
type Stats struct {
	TotalTabs       int
	TotalGroups     int
	UngroupedTabs   int
	PinnedTabs      int
	CollapsedGroups int
}

// ComputeStats summarizes a session.
func ComputeStats(data *SessionData) Stats {
	stats := Stats{
		TotalTabs:   len(data.AllTabs),
		TotalGroups: len(data.Groups),
	}
	for _, tab := range data.AllTabs {
		if !tab.Grouped() {
			stats.UngroupedTabs++
		}
		if tab.Pinned {
			stats.PinnedTabs++
		}
	}
	for _, g := range data.Groups {
		if g.Collapsed {
			stats.CollapsedGroups++
		}
	}
	return stats
}

// Colors is the fixed palette the browser accepts for tab groups.
var Colors = []string{"grey", "blue", "red", "yellow", "green", "pink", "purple", "cyan", "orange"}

// NormalizeColor lower-cases a color name and maps the "gray" spelling to
// the browser's "grey".
func NormalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "gray" {
		return "grey"
	}
	return c
}

// ValidColor reports whether c names a color in the browser palette.
func ValidColor(c string) bool {
	c = NormalizeColor(c)
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}
