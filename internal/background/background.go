// Package background coordinates the long-running surface: it reacts to
// browser events by auto-grouping new tabs, keeping the badge current and
// dispatching keyboard commands.
package background

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/grouping"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/registry"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/shortcuts"
	"github.com/lotas/tabgroups/internal/types"
)

// Badge colors.
const (
	BadgeEmpty  = "#64748b"
	BadgeActive = "#3b82f6"
)

// Browser is everything the service needs from the host.
type Browser interface {
	host.Host
	host.Badge
	host.Notifier
	host.Messenger
}

// Service owns this surface's settings store and group registry. Events
// are handled one at a time.
type Service struct {
	browser  Browser
	settings *settings.Store
	registry *registry.Registry
}

// New returns a service over b. store should not be shared with another
// surface.
func New(b Browser, store *settings.Store) *Service {
	return &Service{
		browser:  b,
		settings: store,
		registry: registry.New(b, store),
	}
}

// Registry exposes the service's group cache.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Start loads settings and brings the cache and badge up to date.
func (s *Service) Start(ctx context.Context) {
	if _, err := s.settings.Load(ctx); err != nil {
		applog.Warn("background.settings_defaults", "error", err.Error())
	}
	s.refresh(ctx)
}

// Run handles events until ctx is done or events is closed.
func (s *Service) Run(ctx context.Context, events <-chan host.Event) error {
	s.Start(ctx)
	applog.Info("background.started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				applog.Info("background.stopped")
				return nil
			}
			s.Handle(ctx, ev)
		}
	}
}

// Handle processes a single event.
func (s *Service) Handle(ctx context.Context, ev host.Event) {
	switch ev.Kind {
	case host.EventTabCreated:
		if ev.Tab != nil {
			s.autoGroup(ctx, ev.Tab)
		}
		s.refresh(ctx)
	case host.EventTabUpdated, host.EventTabRemoved,
		host.EventGroupCreated, host.EventGroupUpdated, host.EventGroupRemoved,
		host.EventSnapshot:
		s.refresh(ctx)
	case host.EventCommand:
		s.command(ctx, ev.Command)
	case host.EventStorageChanged:
		if keys := s.settings.ApplyRemote(ev.Changes); len(keys) > 0 {
			applog.Info("background.settings_changed", "keys", fmt.Sprint(keys))
		}
	case host.EventSettingsReload:
		if _, err := s.settings.Load(ctx); err != nil {
			s.fail(ctx, "Failed to reload settings", err)
		}
	default:
		applog.Warn("background.unknown_event", "kind", ev.Kind)
	}
}

func (s *Service) autoGroup(ctx context.Context, tab *types.Tab) {
	cfg := s.settings.Get()
	if !cfg.AutoGroup {
		return
	}
	if err := s.registry.Refresh(ctx); err != nil {
		s.fail(ctx, "Auto-grouping failed", err)
		return
	}
	d := grouping.Decide(tab, cfg, s.registry.Snapshot())
	if d.Action == grouping.None {
		return
	}
	if _, err := grouping.Apply(ctx, s.browser, tab, d); err != nil {
		s.fail(ctx, "Auto-grouping failed", err)
	}
}

func (s *Service) command(ctx context.Context, name string) {
	switch name {
	case shortcuts.CommandSearchTabs:
		tabs, err := s.browser.QueryTabs(ctx, host.ActiveInCurrentWindow())
		if err != nil {
			s.fail(ctx, "Command failed", err)
			return
		}
		if len(tabs) == 0 {
			return
		}
		if err := s.browser.SendMessage(ctx, tabs[0].ID, "focusSearch"); err != nil {
			s.fail(ctx, "Command failed", err)
		}
	case shortcuts.CommandCreateGroup:
		tabs, err := s.browser.QueryTabs(ctx, host.HighlightedInCurrentWindow())
		if err != nil {
			s.fail(ctx, "Command failed", err)
			return
		}
		if len(tabs) == 0 {
			return
		}
		ids := make([]int, 0, len(tabs))
		for _, t := range tabs {
			ids = append(ids, t.ID)
		}
		if _, err := s.registry.CreateGroup(ctx, ids, "", ""); err != nil {
			s.fail(ctx, "Failed to create group", err)
			return
		}
		s.updateBadge(ctx)
	default:
		applog.Warn("background.unknown_command", "command", name)
	}
}

// refresh rebuilds the registry and updates the badge.
func (s *Service) refresh(ctx context.Context) {
	if err := s.registry.Refresh(ctx); err != nil {
		applog.Error("background.refresh", err)
		return
	}
	s.updateBadge(ctx)
}

func (s *Service) updateBadge(ctx context.Context) {
	n := len(s.registry.Groups())
	color := BadgeActive
	if n == 0 {
		color = BadgeEmpty
	}
	if err := s.browser.SetBadge(ctx, strconv.Itoa(n), color); err != nil {
		applog.Error("background.badge", err)
	}
}

// fail logs err and shows a transient message. Nothing is retried.
func (s *Service) fail(ctx context.Context, msg string, err error) {
	applog.Error("background.failure", err, "message", msg)
	if nerr := s.browser.Notify(ctx, host.LevelError, msg+": "+err.Error()); nerr != nil {
		applog.Error("background.notify", nerr)
	}
}
