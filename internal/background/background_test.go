package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/host/hosttest"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

func newService(t *testing.T, s settings.Settings) (*Service, *hosttest.Browser) {
	t.Helper()
	b := hosttest.New()
	backend := settings.NewMemoryBackend()
	store := settings.NewStore(backend)
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	svc := New(b, store)
	svc.Start(context.Background())
	return svc, b
}

func autoGroupSettings(domains ...string) settings.Settings {
	s := settings.Defaults()
	s.AutoGroup = true
	s.AutoGroupDomains = domains
	return s
}

func TestStartSetsBadge(t *testing.T) {
	_, b := newService(t, settings.Defaults())
	if len(b.Badges) != 1 || b.Badges[0] != "0 "+BadgeEmpty {
		t.Errorf("badges = %v", b.Badges)
	}
}

func TestTabCreatedAutoGroups(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, autoGroupSettings("github.com"))

	tab := b.AddTab(types.Tab{URL: "https://github.com/foo"})
	svc.Handle(ctx, host.Event{Kind: host.EventTabCreated, Tab: tab})

	data := b.Session()
	if len(data.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(data.Groups))
	}
	if data.Groups[0].Color != settings.DefaultPalette[0] {
		t.Errorf("color = %q", data.Groups[0].Color)
	}
	if got := b.Badges[len(b.Badges)-1]; got != "1 "+BadgeActive {
		t.Errorf("badge = %q", got)
	}
	if len(svc.Registry().Groups()) != 1 {
		t.Error("registry should see the new group")
	}
}

func TestTabCreatedJoinsExistingGroup(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, autoGroupSettings("github.com"))
	first := b.AddTab(types.Tab{URL: "https://github.com/a"})
	gid := b.AddGroup("Code", "red", first.ID)

	tab := b.AddTab(types.Tab{URL: "https://github.com/b"})
	svc.Handle(ctx, host.Event{Kind: host.EventTabCreated, Tab: tab})

	g := b.Session().GroupByID(gid)
	if g == nil || len(g.Tabs) != 2 {
		t.Fatalf("expected the tab to join group %d: %+v", gid, g)
	}
}

func TestTabCreatedAutoGroupOff(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, settings.Defaults())
	tab := b.AddTab(types.Tab{URL: "https://github.com/foo"})
	svc.Handle(ctx, host.Event{Kind: host.EventTabCreated, Tab: tab})
	if b.CallCount("tabs.group") != 0 {
		t.Error("auto-group is off")
	}
}

func TestAutoGroupFailureNotifies(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, autoGroupSettings("github.com"))
	b.FailGroup = errors.New("permission denied")

	tab := b.AddTab(types.Tab{URL: "https://github.com/foo"})
	svc.Handle(ctx, host.Event{Kind: host.EventTabCreated, Tab: tab})

	if len(b.Notices) != 1 || !strings.HasPrefix(b.Notices[0], "error: Auto-grouping failed") {
		t.Errorf("notices = %v", b.Notices)
	}
	if b.CallCount("tabs.group") != 1 {
		t.Error("failure must not be retried")
	}
}

func TestCommandSearchTabs(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, settings.Defaults())
	b.AddTab(types.Tab{URL: "https://a.com"})
	active := b.AddTab(types.Tab{URL: "https://b.com", Active: true})

	svc.Handle(ctx, host.Event{Kind: host.EventCommand, Command: "search_tabs"})
	if len(b.Messages) != 1 || b.Messages[0] != fmt.Sprintf("%d:focusSearch", active.ID) {
		t.Errorf("messages = %v", b.Messages)
	}
}

func TestCommandCreateGroup(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, settings.Defaults())
	b.AddTab(types.Tab{URL: "https://a.com", Highlighted: true})
	b.AddTab(types.Tab{URL: "https://b.com", Highlighted: true})
	b.AddTab(types.Tab{URL: "https://c.com"})

	svc.Handle(ctx, host.Event{Kind: host.EventCommand, Command: "create_group"})

	data := b.Session()
	if len(data.Groups) != 1 || len(data.Groups[0].Tabs) != 2 {
		t.Fatalf("groups = %+v", data.Groups)
	}
	if data.Groups[0].Title != types.DefaultGroupTitle {
		t.Errorf("title = %q", data.Groups[0].Title)
	}
}

func TestCommandCreateGroupNothingHighlighted(t *testing.T) {
	svc, b := newService(t, settings.Defaults())
	b.AddTab(types.Tab{URL: "https://a.com"})
	svc.Handle(context.Background(), host.Event{Kind: host.EventCommand, Command: "create_group"})
	if b.CallCount("tabs.group") != 0 {
		t.Error("no group expected")
	}
}

func TestStorageChangedAppliesRemote(t *testing.T) {
	ctx := context.Background()
	svc, b := newService(t, settings.Defaults())
	svc.Handle(ctx, host.Event{Kind: host.EventStorageChanged, Changes: map[string]json.RawMessage{
		"autoGroup":        json.RawMessage("true"),
		"autoGroupDomains": json.RawMessage(`["example.com"]`),
	}})

	tab := b.AddTab(types.Tab{URL: "https://www.example.com/"})
	svc.Handle(ctx, host.Event{Kind: host.EventTabCreated, Tab: tab})
	if len(b.Session().Groups) != 1 {
		t.Error("remote settings change should enable auto-grouping")
	}
}

func TestRunStopsWhenEventsClose(t *testing.T) {
	svc, b := newService(t, settings.Defaults())
	events := make(chan host.Event, 2)
	events <- host.Event{Kind: host.EventGroupCreated}
	close(events)

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background(), events) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if len(b.Badges) < 2 {
		t.Errorf("expected badge updates, got %v", b.Badges)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _ := newService(t, settings.Defaults())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx, make(chan host.Event)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
