// Package grouping decides where a tab belongs based on its domain and
// picks colors for new groups.
//
// Every scan here is an ordered linear search: the configured domain list
// and the host's group enumeration order both act as tie-breakers.
package grouping

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

// Hostname extracts the lower-cased host of an absolute URL.
func Hostname(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", false
	}
	h := strings.ToLower(u.Hostname())
	if h == "" {
		return "", false
	}
	return h, true
}

// MatchDomain returns the first domain in list order that is a substring
// of hostname.
func MatchDomain(hostname string, domains []string) (string, bool) {
	for _, d := range domains {
		if d != "" && strings.Contains(hostname, d) {
			return d, true
		}
	}
	return "", false
}

// FindGroup returns the first group holding a tab whose hostname contains
// domain, or nil.
func FindGroup(data *types.SessionData, domain string) *types.TabGroup {
	if data == nil {
		return nil
	}
	for _, g := range data.Groups {
		for _, t := range g.Tabs {
			if h, ok := Hostname(t.URL); ok && strings.Contains(h, domain) {
				return g
			}
		}
	}
	return nil
}

// NextColor returns the first palette color not used by any group, or
// fallback when the palette is exhausted.
func NextColor(palette []string, groups []*types.TabGroup, fallback string) string {
	used := make(map[string]bool, len(groups))
	for _, g := range groups {
		used[types.NormalizeColor(g.Color)] = true
	}
	for _, c := range palette {
		if !used[types.NormalizeColor(c)] {
			return c
		}
	}
	return fallback
}

// Action is the outcome of an auto-group decision.
type Action int

const (
	None Action = iota
	Join
	Create
)

func (a Action) String() string {
	switch a {
	case Join:
		return "join"
	case Create:
		return "create"
	default:
		return "none"
	}
}

// Decision describes what to do with a newly created tab.
type Decision struct {
	Action  Action
	Domain  string
	GroupID int    // Join only
	Title   string // Create only
	Color   string // Create only
}

// Decide applies the auto-group rules to tab against the current groups.
func Decide(tab *types.Tab, s settings.Settings, data *types.SessionData) Decision {
	if !s.AutoGroup || tab == nil || tab.Grouped() {
		return Decision{}
	}
	hostname, ok := Hostname(tab.URL)
	if !ok {
		return Decision{}
	}
	domain, ok := MatchDomain(hostname, s.AutoGroupDomains)
	if !ok {
		return Decision{}
	}
	if g := FindGroup(data, domain); g != nil {
		return Decision{Action: Join, Domain: domain, GroupID: g.ID}
	}
	var groups []*types.TabGroup
	if data != nil {
		groups = data.Groups
	}
	return Decision{
		Action: Create,
		Domain: domain,
		Title:  types.DefaultGroupTitle,
		Color:  NextColor(s.GroupColors, groups, s.DefaultColor),
	}
}

// Apply issues the host calls for d and returns the group the tab ended up
// in, or 0 when nothing was done. Failures are returned unretried.
func Apply(ctx context.Context, h host.Host, tab *types.Tab, d Decision) (int, error) {
	switch d.Action {
	case Join:
		if _, err := h.GroupTabs(ctx, host.GroupRequest{TabIDs: []int{tab.ID}, GroupID: d.GroupID}); err != nil {
			return 0, fmt.Errorf("add tab %d to group %d: %w", tab.ID, d.GroupID, err)
		}
		applog.Info("autogroup.join", "tab", tab.ID, "group", d.GroupID, "domain", d.Domain)
		return d.GroupID, nil
	case Create:
		id, err := h.GroupTabs(ctx, host.GroupRequest{TabIDs: []int{tab.ID}})
		if err != nil {
			return 0, fmt.Errorf("create group for tab %d: %w", tab.ID, err)
		}
		if err := h.UpdateGroup(ctx, id, host.TitleColor(d.Title, d.Color)); err != nil {
			return id, fmt.Errorf("update group %d: %w", id, err)
		}
		applog.Info("autogroup.create", "tab", tab.ID, "group", id, "domain", d.Domain, "color", d.Color)
		return id, nil
	}
	return 0, nil
}
