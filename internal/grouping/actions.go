package grouping

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

// GroupAllByDomain groups the tabs of the current window by hostname.
// Every hostname with at least two tabs gets a group titled after it.
// It returns the number of groups created.
func GroupAllByDomain(ctx context.Context, h host.Host, s settings.Settings) (int, error) {
	tabs, err := h.QueryTabs(ctx, host.TabQuery{CurrentWindow: true})
	if err != nil {
		return 0, fmt.Errorf("query tabs: %w", err)
	}
	groups, err := h.QueryGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("query groups: %w", err)
	}

	var order []string
	byDomain := make(map[string][]int)
	for _, t := range tabs {
		d, ok := Hostname(t.URL)
		if !ok {
			continue
		}
		if _, seen := byDomain[d]; !seen {
			order = append(order, d)
		}
		byDomain[d] = append(byDomain[d], t.ID)
	}

	created := 0
	for _, d := range order {
		ids := byDomain[d]
		if len(ids) < 2 {
			continue
		}
		id, err := h.GroupTabs(ctx, host.GroupRequest{TabIDs: ids})
		if err != nil {
			return created, fmt.Errorf("group %s: %w", d, err)
		}
		color := NextColor(s.GroupColors, groups, s.DefaultColor)
		if err := h.UpdateGroup(ctx, id, host.TitleColor(d, color)); err != nil {
			return created, fmt.Errorf("update group %s: %w", d, err)
		}
		groups = append(groups, &types.TabGroup{ID: id, Title: d, Color: color})
		created++
	}
	applog.Info("group_by_domain.done", "groups", created)
	return created, nil
}

// UngroupAll removes every tab from its group. It returns the number of
// groups dissolved.
func UngroupAll(ctx context.Context, h host.Host) (int, error) {
	groups, err := h.QueryGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("query groups: %w", err)
	}
	n := 0
	for _, g := range groups {
		tabs, err := h.QueryTabs(ctx, host.InGroup(g.ID))
		if err != nil {
			return n, fmt.Errorf("query group %d: %w", g.ID, err)
		}
		if len(tabs) == 0 {
			continue
		}
		ids := make([]int, 0, len(tabs))
		for _, t := range tabs {
			ids = append(ids, t.ID)
		}
		if err := h.UngroupTabs(ctx, ids); err != nil {
			return n, fmt.Errorf("ungroup group %d: %w", g.ID, err)
		}
		n++
	}
	applog.Info("ungroup_all.done", "groups", n)
	return n, nil
}

// SortGroups moves groups into case-insensitive alphabetical title order.
func SortGroups(ctx context.Context, h host.Host) error {
	groups, err := h.QueryGroups(ctx)
	if err != nil {
		return fmt.Errorf("query groups: %w", err)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Title) < strings.ToLower(groups[j].Title)
	})
	for i, g := range groups {
		if err := h.MoveGroup(ctx, g.ID, i); err != nil {
			return fmt.Errorf("move group %d: %w", g.ID, err)
		}
	}
	applog.Info("sort_groups.done", "groups", len(groups))
	return nil
}
