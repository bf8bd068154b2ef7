package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/tabgroups/internal/types"
)

type wireTab struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	LastAccessed int64  `json:"lastAccessed"`
	GroupID      *int   `json:"groupId"`
	WindowID     int    `json:"windowId"`
	Index        int    `json:"index"`
	FavIconURL   string `json:"favIconUrl"`
	Pinned       bool   `json:"pinned"`
	Active       bool   `json:"active"`
	Highlighted  bool   `json:"highlighted"`
	MutedInfo    *struct {
		Muted bool `json:"muted"`
	} `json:"mutedInfo"`
}

type wireGroup struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
	WindowID  int    `json:"windowId"`
}

func (wt wireTab) tab() *types.Tab {
	t := &types.Tab{
		ID:          wt.ID,
		WindowID:    wt.WindowID,
		Index:       wt.Index,
		URL:         wt.URL,
		Title:       wt.Title,
		Pinned:      wt.Pinned,
		Active:      wt.Active,
		Highlighted: wt.Highlighted,
		FavIconURL:  wt.FavIconURL,
		GroupID:     types.NoGroup,
	}
	if wt.GroupID != nil {
		t.GroupID = *wt.GroupID
	}
	if wt.MutedInfo != nil {
		t.Muted = wt.MutedInfo.Muted
	}
	if wt.LastAccessed > 0 {
		t.LastAccessed = time.UnixMilli(wt.LastAccessed)
	}
	return t
}

func (wg wireGroup) group() *types.TabGroup {
	return &types.TabGroup{
		ID:        wg.ID,
		Title:     wg.Title,
		Color:     wg.Color,
		Collapsed: wg.Collapsed,
		WindowID:  wg.WindowID,
	}
}

// ParseSnapshot converts an IncomingMsg of type "snapshot" into a SessionData.
func ParseSnapshot(msg IncomingMsg) (*types.SessionData, error) {
	tabs, err := ParseTabs(msg.Tabs)
	if err != nil {
		return nil, err
	}
	groups, err := ParseGroups(msg.Groups)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*types.TabGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	for _, t := range tabs {
		if g, ok := byID[t.GroupID]; ok {
			g.Tabs = append(g.Tabs, t)
		}
	}

	return &types.SessionData{
		Groups:   groups,
		AllTabs:  tabs,
		ParsedAt: time.Now(),
	}, nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (*types.Tab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), nil
}

// ParseTabs converts a raw JSON list of tabs. A missing list is empty.
func ParseTabs(raw json.RawMessage) ([]*types.Tab, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wts []wireTab
	if err := json.Unmarshal(raw, &wts); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	out := make([]*types.Tab, 0, len(wts))
	for _, wt := range wts {
		out = append(out, wt.tab())
	}
	return out, nil
}

// ParseGroup converts a raw JSON tab group into a TabGroup.
func ParseGroup(raw json.RawMessage) (*types.TabGroup, error) {
	var wg wireGroup
	if err := json.Unmarshal(raw, &wg); err != nil {
		return nil, fmt.Errorf("parse group: %w", err)
	}
	return wg.group(), nil
}

// ParseGroups converts a raw JSON list of tab groups. A missing list is
// empty.
func ParseGroups(raw json.RawMessage) ([]*types.TabGroup, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wgs []wireGroup
	if err := json.Unmarshal(raw, &wgs); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	out := make([]*types.TabGroup, 0, len(wgs))
	for _, wg := range wgs {
		out = append(out, wg.group())
	}
	return out, nil
}

// ParseChanges extracts the new value of every changed storage key.
// Removed keys are left out.
func ParseChanges(changes map[string]StorageChange) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(changes))
	for k, c := range changes {
		if len(c.NewValue) > 0 {
			out[k] = c.NewValue
		}
	}
	return out
}
