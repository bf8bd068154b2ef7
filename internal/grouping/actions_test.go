package grouping

import (
	"context"
	"testing"

	"github.com/lotas/tabgroups/internal/host/hosttest"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

func TestGroupAllByDomain(t *testing.T) {
	b := hosttest.New()
	b.AddTab(types.Tab{URL: "https://github.com/a"})
	b.AddTab(types.Tab{URL: "https://example.com/"})
	b.AddTab(types.Tab{URL: "https://github.com/b"})
	b.AddTab(types.Tab{URL: "about:blank"})
	b.AddTab(types.Tab{URL: "https://example.com/x"})
	b.AddTab(types.Tab{URL: "https://solo.org/"})
	b.AddTab(types.Tab{URL: "https://github.com/c", WindowID: 2})

	n, err := GroupAllByDomain(context.Background(), b, settings.Defaults())
	if err != nil {
		t.Fatalf("GroupAllByDomain: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 groups, got %d", n)
	}

	data := b.Session()
	if len(data.Groups) != 2 {
		t.Fatalf("expected 2 groups in browser, got %d", len(data.Groups))
	}
	gh, ex := data.Groups[0], data.Groups[1]
	if gh.Title != "github.com" || len(gh.Tabs) != 2 {
		t.Errorf("first group = %q with %d tabs", gh.Title, len(gh.Tabs))
	}
	if ex.Title != "example.com" || len(ex.Tabs) != 2 {
		t.Errorf("second group = %q with %d tabs", ex.Title, len(ex.Tabs))
	}
	if gh.Color != "grey" || ex.Color != "blue" {
		t.Errorf("colors = %q, %q", gh.Color, ex.Color)
	}
}

func TestUngroupAll(t *testing.T) {
	b := hosttest.New()
	a := b.AddTab(types.Tab{URL: "https://a.com"})
	c := b.AddTab(types.Tab{URL: "https://c.com"})
	b.AddTab(types.Tab{URL: "https://free.com"})
	b.AddGroup("A", "red", a.ID)
	b.AddGroup("C", "blue", c.ID)

	n, err := UngroupAll(context.Background(), b)
	if err != nil {
		t.Fatalf("UngroupAll: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 groups dissolved, got %d", n)
	}
	data := b.Session()
	if len(data.Groups) != 0 || len(data.Ungrouped()) != 3 {
		t.Errorf("groups=%d ungrouped=%d", len(data.Groups), len(data.Ungrouped()))
	}
}

func TestSortGroups(t *testing.T) {
	b := hosttest.New()
	for _, title := range []string{"zeta", "Alpha", "mid"} {
		tab := b.AddTab(types.Tab{URL: "https://" + title + ".com"})
		b.AddGroup(title, "grey", tab.ID)
	}
	if err := SortGroups(context.Background(), b); err != nil {
		t.Fatalf("SortGroups: %v", err)
	}
	var got []string
	for _, g := range b.Session().Groups {
		got = append(got, g.Title)
	}
	want := []string{"Alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
