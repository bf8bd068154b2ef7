package types

import "testing"

func TestSessionDataHelpers(t *testing.T) {
	work := &TabGroup{ID: 7, Title: "Work", Color: "blue"}
	a := &Tab{ID: 1, URL: "https://a.example", GroupID: 7}
	b := &Tab{ID: 2, URL: "https://b.example", GroupID: NoGroup, Pinned: true}
	c := &Tab{ID: 3, URL: "https://c.example", GroupID: NoGroup}
	work.Tabs = []*Tab{a}
	data := &SessionData{Groups: []*TabGroup{work}, AllTabs: []*Tab{a, b, c}}

	if g := data.GroupByID(7); g != work {
		t.Errorf("GroupByID(7) = %v, want Work", g)
	}
	if g := data.GroupByID(8); g != nil {
		t.Errorf("GroupByID(8) = %v, want nil", g)
	}
	if got := len(data.Ungrouped()); got != 2 {
		t.Errorf("Ungrouped() returned %d tabs, want 2", got)
	}
	if got := data.Pinned(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Pinned() = %v, want tab 2", got)
	}
	if ids := work.TabIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("TabIDs() = %v, want [1]", ids)
	}

	stats := ComputeStats(data)
	if stats.TotalTabs != 3 || stats.TotalGroups != 1 || stats.UngroupedTabs != 2 || stats.PinnedTabs != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestColors(t *testing.T) {
	if !ValidColor("Gray") {
		t.Error("expected Gray to normalize to a valid color")
	}
	if NormalizeColor(" Gray ") != "grey" {
		t.Errorf("NormalizeColor(Gray) = %q", NormalizeColor(" Gray "))
	}
	if ValidColor("magenta") {
		t.Error("magenta is not a browser group color")
	}
}
