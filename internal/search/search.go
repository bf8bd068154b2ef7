// Package search filters groups and tabs by a free-text term.
package search

import (
	"strings"

	"github.com/lotas/tabgroups/internal/types"
)

// Matches reports whether tab's title or URL contains term, ignoring case.
// term must already be lower-cased.
func Matches(tab *types.Tab, term string) bool {
	return strings.Contains(strings.ToLower(tab.Title), term) ||
		strings.Contains(strings.ToLower(tab.URL), term)
}

// Filter returns a copy of data holding only what matches term. A group is
// kept when its title matches, with all its tabs, or when any of its tabs
// match, with only those tabs. AllTabs keeps every matching tab plus the
// members of groups kept by title. An empty term returns data unchanged.
func Filter(data *types.SessionData, term string) *types.SessionData {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || data == nil {
		return data
	}

	out := &types.SessionData{Profile: data.Profile, ParsedAt: data.ParsedAt}
	keep := make(map[int]bool)
	for _, g := range data.Groups {
		titleMatch := strings.Contains(strings.ToLower(g.Title), term)
		var tabs []*types.Tab
		for _, t := range g.Tabs {
			if titleMatch || Matches(t, term) {
				tabs = append(tabs, t)
				keep[t.ID] = true
			}
		}
		if titleMatch || len(tabs) > 0 {
			cp := *g
			cp.Tabs = tabs
			out.Groups = append(out.Groups, &cp)
		}
	}
	for _, t := range data.AllTabs {
		if keep[t.ID] || Matches(t, term) {
			out.AllTabs = append(out.AllTabs, t)
		}
	}
	return out
}
