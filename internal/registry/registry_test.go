package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/host/hosttest"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

func newRegistry(t *testing.T) (*Registry, *hosttest.Browser) {
	t.Helper()
	b := hosttest.New()
	store := settings.NewStore(settings.NewMemoryBackend())
	return New(b, store), b
}

func TestRefreshRebuilds(t *testing.T) {
	ctx := context.Background()
	r, b := newRegistry(t)
	a := b.AddTab(types.Tab{URL: "https://a.com"})
	c := b.AddTab(types.Tab{URL: "https://c.com", Pinned: true})
	gid := b.AddGroup("Work", "red", a.ID)

	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := r.Snapshot()
	if len(before.Groups) != 1 || len(before.AllTabs) != 2 {
		t.Fatalf("groups=%d tabs=%d", len(before.Groups), len(before.AllTabs))
	}
	if ids := r.TabIDs(gid); len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("TabIDs = %v", ids)
	}

	b.AddGroup("Pinned stuff", "blue", c.ID)
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(before.Groups) != 1 {
		t.Error("earlier snapshot was mutated")
	}
	if len(r.Groups()) != 2 {
		t.Errorf("expected 2 groups after refresh, got %d", len(r.Groups()))
	}
	st := r.Stats()
	if st.TotalGroups != 2 || st.TotalTabs != 2 || st.PinnedTabs != 1 || st.UngroupedTabs != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestCreateGroupPicksUnusedColor(t *testing.T) {
	ctx := context.Background()
	r, b := newRegistry(t)
	a := b.AddTab(types.Tab{URL: "https://a.com"})
	c := b.AddTab(types.Tab{URL: "https://c.com"})
	b.AddGroup("Existing", "grey", a.ID)
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	id, err := r.CreateGroup(ctx, []int{c.ID}, "", "")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	g := r.Get(id)
	if g == nil {
		t.Fatal("new group missing from cache")
	}
	if g.Title != types.DefaultGroupTitle {
		t.Errorf("title = %q", g.Title)
	}
	if g.Color != "blue" {
		t.Errorf("color = %q, want blue", g.Color)
	}
}

func TestCreateGroupRequiresTabs(t *testing.T) {
	r, b := newRegistry(t)
	if _, err := r.CreateGroup(context.Background(), nil, "x", "red"); err == nil {
		t.Fatal("expected error")
	}
	if len(b.Calls()) != 0 {
		t.Errorf("expected no host calls, got %v", b.Calls())
	}
}

func TestCreateGroupHostFailure(t *testing.T) {
	r, b := newRegistry(t)
	a := b.AddTab(types.Tab{URL: "https://a.com"})
	b.FailGroup = errors.New("denied")
	if _, err := r.CreateGroup(context.Background(), []int{a.ID}, "x", "red"); err == nil {
		t.Fatal("expected error")
	}
	if b.CallCount("tabs.group") != 1 {
		t.Error("expected a single attempt")
	}
}

func TestUpdateRemoveAddTabs(t *testing.T) {
	ctx := context.Background()
	r, b := newRegistry(t)
	a := b.AddTab(types.Tab{URL: "https://a.com"})
	c := b.AddTab(types.Tab{URL: "https://c.com"})
	d := b.AddTab(types.Tab{URL: "https://d.com"})
	gid := b.AddGroup("G", "red", a.ID)
	r.Refresh(ctx)

	title := "Renamed"
	if err := r.UpdateGroup(ctx, gid, host.GroupUpdate{Title: &title}); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if r.Get(gid).Title != "Renamed" {
		t.Errorf("title = %q", r.Get(gid).Title)
	}

	if err := r.AddTabs(ctx, gid, []int{c.ID, d.ID}); err != nil {
		t.Fatalf("AddTabs: %v", err)
	}
	if n := len(r.TabIDs(gid)); n != 3 {
		t.Errorf("expected 3 members, got %d", n)
	}

	if err := r.RemoveTabs(ctx, []int{d.ID}); err != nil {
		t.Fatalf("RemoveTabs: %v", err)
	}
	if n := len(r.TabIDs(gid)); n != 2 {
		t.Errorf("expected 2 members, got %d", n)
	}

	if err := r.RemoveGroup(ctx, gid); err != nil {
		t.Fatalf("RemoveGroup: %v", err)
	}
	if r.Get(gid) != nil {
		t.Error("group should be gone")
	}
	if len(r.Snapshot().Ungrouped()) != 3 {
		t.Errorf("expected all tabs ungrouped")
	}

	calls := len(b.Calls())
	if err := r.RemoveGroup(ctx, 999); err != nil {
		t.Errorf("unknown group: %v", err)
	}
	if len(b.Calls()) != calls {
		t.Error("removing an unknown group should not call the host")
	}
}
