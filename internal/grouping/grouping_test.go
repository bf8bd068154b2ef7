package grouping

import (
	"context"
	"errors"
	"testing"

	"github.com/lotas/tabgroups/internal/host/hosttest"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/types"
)

func autoSettings(domains ...string) settings.Settings {
	s := settings.Defaults()
	s.AutoGroup = true
	s.AutoGroupDomains = domains
	return s
}

func group(id int, color string, urls ...string) *types.TabGroup {
	g := &types.TabGroup{ID: id, Color: color, Title: "g"}
	for i, u := range urls {
		g.Tabs = append(g.Tabs, &types.Tab{ID: id*100 + i, URL: u, GroupID: id})
	}
	return g
}

func TestHostname(t *testing.T) {
	cases := map[string]string{
		"https://GitHub.com/foo":       "github.com",
		"http://docs.example.org:8080/": "docs.example.org",
	}
	for in, want := range cases {
		got, ok := Hostname(in)
		if !ok || got != want {
			t.Errorf("Hostname(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "not a url", "about:blank", "/relative/path", "http://%zz"} {
		if h, ok := Hostname(bad); ok {
			t.Errorf("Hostname(%q) = %q, expected failure", bad, h)
		}
	}
}

func TestMatchDomainFirstInListOrder(t *testing.T) {
	d, ok := MatchDomain("gist.github.com", []string{"gitlab.com", "github.com", "gist"})
	if !ok || d != "github.com" {
		t.Errorf("got %q, %v", d, ok)
	}
	// Substring containment is kept: "git" matches "digital.com".
	d, ok = MatchDomain("digital.com", []string{"git"})
	if !ok || d != "git" {
		t.Errorf("got %q, %v", d, ok)
	}
	if _, ok := MatchDomain("example.com", []string{"github.com", ""}); ok {
		t.Error("expected no match")
	}
}

func TestFindGroupFirstInEnumerationOrder(t *testing.T) {
	data := &types.SessionData{Groups: []*types.TabGroup{
		group(1, "red", "https://example.com"),
		group(2, "blue", "https://github.com/a"),
		group(3, "green", "https://github.com/b"),
	}}
	g := FindGroup(data, "github.com")
	if g == nil || g.ID != 2 {
		t.Fatalf("expected group 2, got %+v", g)
	}
	if FindGroup(data, "gitlab.com") != nil {
		t.Error("expected no group")
	}
	if FindGroup(nil, "x") != nil {
		t.Error("nil data should find nothing")
	}
}

func TestNextColor(t *testing.T) {
	palette := []string{"grey", "blue", "red"}
	groups := []*types.TabGroup{{Color: "grey"}, {Color: "red"}}
	if c := NextColor(palette, groups, "blue"); c != "blue" {
		t.Errorf("got %q", c)
	}
	groups = append(groups, &types.TabGroup{Color: "blue"})
	if c := NextColor(palette, groups, "cyan"); c != "cyan" {
		t.Errorf("exhausted palette should fall back, got %q", c)
	}
	if c := NextColor(palette, []*types.TabGroup{{Color: "gray"}}, "cyan"); c != "blue" {
		t.Errorf("gray should count as grey, got %q", c)
	}
	if c := NextColor(nil, nil, "blue"); c != "blue" {
		t.Errorf("empty palette should fall back, got %q", c)
	}
}

func TestDecideNoAction(t *testing.T) {
	data := &types.SessionData{}
	s := autoSettings("github.com")

	off := s
	off.AutoGroup = false
	cases := []struct {
		name string
		tab  *types.Tab
		s    settings.Settings
	}{
		{"disabled", &types.Tab{ID: 1, URL: "https://github.com/x", GroupID: types.NoGroup}, off},
		{"already grouped", &types.Tab{ID: 1, URL: "https://github.com/x", GroupID: 7}, s},
		{"no url", &types.Tab{ID: 1, GroupID: types.NoGroup}, s},
		{"bad url", &types.Tab{ID: 1, URL: "::::", GroupID: types.NoGroup}, s},
		{"no match", &types.Tab{ID: 1, URL: "https://example.com", GroupID: types.NoGroup}, s},
		{"nil tab", nil, s},
	}
	for _, c := range cases {
		if d := Decide(c.tab, c.s, data); d.Action != None {
			t.Errorf("%s: got %v", c.name, d.Action)
		}
	}
}

func TestDecideJoinsFirstMatchingGroup(t *testing.T) {
	data := &types.SessionData{Groups: []*types.TabGroup{
		group(4, "red", "https://news.example.com"),
		group(5, "blue", "https://github.com/one"),
		group(6, "green", "https://github.com/two"),
	}}
	tab := &types.Tab{ID: 9, URL: "https://github.com/three", GroupID: types.NoGroup}
	d := Decide(tab, autoSettings("example.com", "github.com"), data)
	if d.Action != Join || d.GroupID != 5 || d.Domain != "github.com" {
		t.Errorf("got %+v", d)
	}
}

func TestDecideCreatesWithUnusedColor(t *testing.T) {
	data := &types.SessionData{Groups: []*types.TabGroup{group(4, "grey", "https://example.com")}}
	tab := &types.Tab{ID: 9, URL: "https://github.com/foo", GroupID: types.NoGroup}
	d := Decide(tab, autoSettings("github.com"), data)
	if d.Action != Create {
		t.Fatalf("got %v", d.Action)
	}
	if d.Color != "blue" {
		t.Errorf("color = %q, want first unused palette color", d.Color)
	}
	if d.Title != types.DefaultGroupTitle {
		t.Errorf("title = %q", d.Title)
	}
}

func TestAutoGroupCreatesSingleGroup(t *testing.T) {
	ctx := context.Background()
	b := hosttest.New()
	tab := b.AddTab(types.Tab{URL: "https://github.com/foo"})

	s := autoSettings("github.com")
	d := Decide(tab, s, b.Session())
	id, err := Apply(ctx, b, tab, d)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	data := b.Session()
	if len(data.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(data.Groups))
	}
	g := data.Groups[0]
	if g.ID != id || len(g.Tabs) != 1 || g.Tabs[0].ID != tab.ID {
		t.Errorf("unexpected group %+v", g)
	}
	if g.Color != s.GroupColors[0] {
		t.Errorf("color = %q, want %q", g.Color, s.GroupColors[0])
	}
}

func TestApplyJoin(t *testing.T) {
	ctx := context.Background()
	b := hosttest.New()
	first := b.AddTab(types.Tab{URL: "https://github.com/a"})
	gid := b.AddGroup("Code", "red", first.ID)
	tab := b.AddTab(types.Tab{URL: "https://github.com/b"})

	d := Decide(tab, autoSettings("github.com"), b.Session())
	if _, err := Apply(ctx, b, tab, d); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	g := b.Session().GroupByID(gid)
	if g == nil || len(g.Tabs) != 2 {
		t.Fatalf("expected two tabs in group, got %+v", g)
	}
	if b.CallCount("tabGroups.update") != 0 {
		t.Error("joining must not update the group")
	}
}

func TestApplyFailureIsReturned(t *testing.T) {
	b := hosttest.New()
	tab := b.AddTab(types.Tab{URL: "https://github.com/a"})
	b.FailGroup = errors.New("boom")

	d := Decision{Action: Create, Title: "New Group", Color: "blue"}
	if _, err := Apply(context.Background(), b, tab, d); err == nil {
		t.Fatal("expected error")
	}
	if b.CallCount("tabs.group") != 1 {
		t.Error("expected exactly one attempt")
	}
}

func TestApplyNone(t *testing.T) {
	b := hosttest.New()
	id, err := Apply(context.Background(), b, &types.Tab{ID: 1}, Decision{})
	if err != nil || id != 0 {
		t.Errorf("got %d, %v", id, err)
	}
	if len(b.Calls()) != 0 {
		t.Errorf("expected no calls, got %v", b.Calls())
	}
}
