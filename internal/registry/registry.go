// Package registry caches the browser's groups and their member tabs.
//
// The cache is rebuilt from scratch on every Refresh and never patched in
// place, so a snapshot handed out earlier is never mutated.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/grouping"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

// SettingsSource supplies the color palette used for new groups.
type SettingsSource interface {
	Get() settings.Settings
}

// Registry is one surface's view of the browser's groups.
type Registry struct {
	host     host.Host
	settings SettingsSource

	mu   sync.RWMutex
	data *types.SessionData
}

// New returns an empty registry. Call Refresh to populate it.
func New(h host.Host, src SettingsSource) *Registry {
	return &Registry{
		host:     h,
		settings: src,
		data:     &types.SessionData{},
	}
}

// Refresh rebuilds the cache from the host.
func (r *Registry) Refresh(ctx context.Context) error {
	groups, err := r.host.QueryGroups(ctx)
	if err != nil {
		return fmt.Errorf("query groups: %w", err)
	}
	for _, g := range groups {
		tabs, err := r.host.QueryTabs(ctx, host.InGroup(g.ID))
		if err != nil {
			return fmt.Errorf("query tabs of group %d: %w", g.ID, err)
		}
		g.Tabs = tabs
	}
	all, err := r.host.QueryTabs(ctx, host.TabQuery{})
	if err != nil {
		return fmt.Errorf("query tabs: %w", err)
	}

	data := &types.SessionData{
		Groups:   groups,
		AllTabs:  all,
		ParsedAt: time.Now(),
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

// Snapshot returns the current cache. Callers must not modify it.
func (r *Registry) Snapshot() *types.SessionData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Groups returns the cached groups in host enumeration order.
func (r *Registry) Groups() []*types.TabGroup {
	return r.Snapshot().Groups
}

// Get returns the cached group with the given ID, or nil.
func (r *Registry) Get(id int) *types.TabGroup {
	return r.Snapshot().GroupByID(id)
}

// TabIDs returns the member tab IDs of a cached group.
func (r *Registry) TabIDs(id int) []int {
	g := r.Get(id)
	if g == nil {
		return nil
	}
	return g.TabIDs()
}

// Stats summarizes the cache.
func (r *Registry) Stats() types.Stats {
	return types.ComputeStats(r.Snapshot())
}

// CreateGroup groups tabIDs into a new group. An empty title becomes
// "New Group"; an empty color is picked from the palette.
func (r *Registry) CreateGroup(ctx context.Context, tabIDs []int, title, color string) (int, error) {
	if len(tabIDs) == 0 {
		return 0, fmt.Errorf("create group: no tabs selected")
	}
	if title == "" {
		title = types.DefaultGroupTitle
	}
	if color == "" {
		s := r.settings.Get()
		color = grouping.NextColor(s.GroupColors, r.Groups(), s.DefaultColor)
	}

	id, err := r.host.GroupTabs(ctx, host.GroupRequest{TabIDs: tabIDs})
	if err != nil {
		applog.Error("registry.create_group", err)
		return 0, fmt.Errorf("create group: %w", err)
	}
	if err := r.host.UpdateGroup(ctx, id, host.TitleColor(title, color)); err != nil {
		applog.Error("registry.create_group", err, "group", id)
		return id, fmt.Errorf("update new group %d: %w", id, err)
	}
	applog.Info("registry.group_created", "group", id, "tabs", len(tabIDs), "color", color)
	return id, r.Refresh(ctx)
}

// UpdateGroup changes a group's properties.
func (r *Registry) UpdateGroup(ctx context.Context, id int, u host.GroupUpdate) error {
	if err := r.host.UpdateGroup(ctx, id, u); err != nil {
		applog.Error("registry.update_group", err, "group", id)
		return fmt.Errorf("update group %d: %w", id, err)
	}
	return r.Refresh(ctx)
}

// RemoveGroup ungroups every member of a cached group. Unknown IDs are
// ignored.
func (r *Registry) RemoveGroup(ctx context.Context, id int) error {
	g := r.Get(id)
	if g == nil {
		return nil
	}
	if ids := g.TabIDs(); len(ids) > 0 {
		if err := r.host.UngroupTabs(ctx, ids); err != nil {
			applog.Error("registry.remove_group", err, "group", id)
			return fmt.Errorf("remove group %d: %w", id, err)
		}
	}
	return r.Refresh(ctx)
}

// AddTabs moves tabs into an existing group.
func (r *Registry) AddTabs(ctx context.Context, id int, tabIDs []int) error {
	if _, err := r.host.GroupTabs(ctx, host.GroupRequest{TabIDs: tabIDs, GroupID: id}); err != nil {
		applog.Error("registry.add_tabs", err, "group", id)
		return fmt.Errorf("add tabs to group %d: %w", id, err)
	}
	return r.Refresh(ctx)
}

// RemoveTabs takes tabs out of whatever group they are in.
func (r *Registry) RemoveTabs(ctx context.Context, tabIDs []int) error {
	if err := r.host.UngroupTabs(ctx, tabIDs); err != nil {
		applog.Error("registry.remove_tabs", err)
		return fmt.Errorf("remove tabs: %w", err)
	}
	return r.Refresh(ctx)
}
