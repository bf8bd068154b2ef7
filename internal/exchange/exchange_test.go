package exchange

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabgroups/internal/host/hosttest"
	"github.com/lotas/tabgroups/internal/types"
)

var exportTime = time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

func TestFileName(t *testing.T) {
	if got := FileName(exportTime); got != "tab_groups_export_2024-06-01.json" {
		t.Errorf("FileName = %q", got)
	}
	if got := Timestamp(exportTime); got != "2024-06-01T12:30:00.000Z" {
		t.Errorf("Timestamp = %q", got)
	}
}

func TestCollectSelectedGroups(t *testing.T) {
	b := hosttest.New()
	a := b.AddTab(types.Tab{URL: "https://a.com", Title: "A", Muted: true})
	c := b.AddTab(types.Tab{URL: "https://c.com", Title: "C"})
	ga := b.AddGroup("Alpha", "red", a.ID)
	gc := b.AddGroup("Gamma", "cyan", c.ID)

	var seen []int
	doc, err := Collect(context.Background(), b, ExportRequest{GroupIDs: []int{gc, 4242, ga}}, exportTime, func(p int) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if doc.Version != "1.0" || doc.Timestamp != "2024-06-01T12:30:00.000Z" {
		t.Errorf("header = %q %q", doc.Version, doc.Timestamp)
	}
	if len(doc.Groups) != 2 {
		t.Fatalf("expected stale group 4242 to be skipped, got %d groups", len(doc.Groups))
	}
	if doc.Groups[0].Title != "Gamma" || doc.Groups[1].Title != "Alpha" {
		t.Errorf("order = %q, %q", doc.Groups[0].Title, doc.Groups[1].Title)
	}
	if doc.Groups[1].Color != "red" || doc.Groups[1].ID != ga {
		t.Errorf("alpha = %+v", doc.Groups[1])
	}
	if tab := doc.Groups[1].Tabs[0]; tab.URL != "https://a.com" || tab.Title != "A" || !tab.Muted {
		t.Errorf("tab = %+v", tab)
	}

	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Errorf("progress went backwards: %v", seen)
		}
	}
	if seen[len(seen)-1] != 100 {
		t.Errorf("progress should finish at 100: %v", seen)
	}
}

func TestCollectUngroupedOnly(t *testing.T) {
	b := hosttest.New()
	b.AddTab(types.Tab{URL: "https://one.com"})
	b.AddTab(types.Tab{URL: "https://two.com"})
	b.AddTab(types.Tab{URL: "https://pinned.com", Pinned: true})

	doc, err := Collect(context.Background(), b, ExportRequest{GroupIDs: []int{}, IncludeUngrouped: true}, exportTime, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(doc.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(doc.Groups))
	}
	g := doc.Groups[0]
	if g.ID != -1 || g.Title != "Ungrouped" || len(g.Tabs) != 2 {
		t.Errorf("group = %+v", g)
	}
	if g.Color != "" {
		t.Errorf("pseudo-group should have no color, got %q", g.Color)
	}
}

func TestCollectPinnedIncludesGroupedPins(t *testing.T) {
	b := hosttest.New()
	p := b.AddTab(types.Tab{URL: "https://pinned.com", Pinned: true})
	b.AddTab(types.Tab{URL: "https://free-pinned.com", Pinned: true})
	b.AddGroup("G", "red", p.ID)

	doc, err := Collect(context.Background(), b, ExportRequest{IncludeUngrouped: true, IncludePinned: true}, exportTime, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(doc.Groups) != 1 {
		t.Fatalf("expected only the pinned pseudo-group, got %+v", doc.Groups)
	}
	if doc.Groups[0].ID != -2 || len(doc.Groups[0].Tabs) != 2 {
		t.Errorf("pinned group = %+v", doc.Groups[0])
	}
}

func TestCollectNothingSelected(t *testing.T) {
	b := hosttest.New()
	last := -1
	doc, err := Collect(context.Background(), b, ExportRequest{}, exportTime, func(p int) { last = p })
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(doc.Groups) != 0 {
		t.Errorf("expected no groups")
	}
	if last != 100 {
		t.Errorf("progress = %d, want 100", last)
	}
	data, _ := Encode(doc)
	if !strings.Contains(string(data), `"groups": []`) {
		t.Errorf("empty groups should encode as a list:\n%s", data)
	}
}

func TestDownload(t *testing.T) {
	b := hosttest.New()
	doc := &Document{Version: Version, Timestamp: Timestamp(exportTime), Groups: []GroupExport{}}
	name, err := Download(context.Background(), b, doc, exportTime)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if name != "tab_groups_export_2024-06-01.json" {
		t.Errorf("name = %q", name)
	}
	saved := b.Downloads[name]
	if !strings.Contains(string(saved), "\n  \"version\": \"1.0\"") {
		t.Errorf("expected 2-space indented JSON:\n%s", saved)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"version": "1.0", "groups": [`))
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestDecodeInvalidFormat(t *testing.T) {
	cases := []string{
		`{"version": "1.0"}`,
		`{"groups": []}`,
		`{"version": "", "groups": []}`,
		`{"version": "1.0", "groups": {}}`,
		`{"version": "1.0", "groups": null}`,
		`{"version": "1.0", "groups": [{"id": "x"}]}`,
		`[]`,
	}
	for _, c := range cases {
		if _, err := Decode([]byte(c)); !errors.Is(err, ErrInvalidFormat) && !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Decode(%s) = %v, want format error", c, err)
		}
	}
	if _, err := Decode([]byte(`{"version": "1.0"}`)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("missing groups should be ErrInvalidFormat, got %v", err)
	}
}

func TestDecodeNumericVersion(t *testing.T) {
	doc, err := Decode([]byte(`{"version": 2, "groups": []}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Version != "2" {
		t.Errorf("version = %q", doc.Version)
	}
}

func TestImportRejectsMissingGroupsBeforeAnyCall(t *testing.T) {
	b := hosttest.New()
	_, err := ImportFile(context.Background(), b, []byte(`{"version": "1.0", "timestamp": "x"}`), nil)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if len(b.Calls()) != 0 {
		t.Errorf("no host call may be made for an invalid document: %v", b.Calls())
	}
}

func TestImportSkipsFailedTabs(t *testing.T) {
	b := hosttest.New()
	b.FailCreate["notaurl"] = errors.New("invalid url")
	doc := &Document{Version: Version, Groups: []GroupExport{{
		ID: 5, Title: "Mixed", Color: "green",
		Tabs: []TabExport{{URL: "https://ok.com"}, {URL: "notaurl"}, {URL: "https://fine.com"}},
	}}}

	res, err := Import(context.Background(), b, doc, ImportOptions{WindowID: 1}, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Groups != 1 || res.Tabs != 2 || res.SkippedTabs != 1 {
		t.Errorf("result = %+v", res)
	}
	data := b.Session()
	if len(data.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(data.Groups))
	}
	g := data.Groups[0]
	if g.Title != "Mixed" || g.Color != "green" || len(g.Tabs) != 2 {
		t.Errorf("group = %+v with %d tabs", g, len(g.Tabs))
	}
	for _, tab := range data.AllTabs {
		if tab.Active {
			t.Errorf("imported tab %d should be inactive", tab.ID)
		}
	}
}

func TestImportSkipsEmptyGroups(t *testing.T) {
	b := hosttest.New()
	b.FailCreate["https://bad.com"] = errors.New("nope")
	doc := &Document{Version: Version, Groups: []GroupExport{
		{ID: 1, Title: "Dead", Tabs: []TabExport{{URL: "https://bad.com"}}},
		{ID: 2, Title: "Empty"},
	}}

	var progress []int
	res, err := Import(context.Background(), b, doc, ImportOptions{}, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Groups != 0 || b.CallCount("tabs.group") != 0 {
		t.Errorf("no group should be created: %+v", res)
	}
	if progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v", progress)
	}
}

func TestImportPseudoGroupsStayUngrouped(t *testing.T) {
	b := hosttest.New()
	doc := &Document{Version: Version, Groups: []GroupExport{
		{ID: -1, Title: "Ungrouped", Tabs: []TabExport{{URL: "https://loose.com"}}},
		{ID: -2, Title: "Pinned", Tabs: []TabExport{{URL: "https://pin.com", Pinned: true}}},
	}}
	res, err := Import(context.Background(), b, doc, ImportOptions{}, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Tabs != 2 || res.Groups != 0 {
		t.Errorf("result = %+v", res)
	}
	if b.CallCount("tabs.group") != 0 || b.CallCount("tabGroups.update") != 0 {
		t.Errorf("pseudo-groups must not be grouped: %v", b.Calls())
	}
	data := b.Session()
	if len(data.Pinned()) != 1 {
		t.Error("pinned flag should be restored")
	}
}

func TestImportGroupFailureAborts(t *testing.T) {
	b := hosttest.New()
	b.FailGroup = errors.New("quota")
	doc := &Document{Version: Version, Groups: []GroupExport{
		{ID: 1, Title: "A", Tabs: []TabExport{{URL: "https://a.com"}}},
		{ID: 2, Title: "B", Tabs: []TabExport{{URL: "https://b.com"}}},
	}}
	if _, err := Import(context.Background(), b, doc, ImportOptions{}, nil); err == nil {
		t.Fatal("expected error")
	}
	if b.CallCount("tabs.create") != 1 {
		t.Errorf("second group should not be attempted: %v", b.Calls())
	}
}

func TestImportCancelled(t *testing.T) {
	b := hosttest.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := &Document{Version: Version, Groups: []GroupExport{
		{ID: 1, Title: "A", Tabs: []TabExport{{URL: "https://a.com"}}},
	}}
	if _, err := Import(ctx, b, doc, ImportOptions{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(b.Calls()) != 0 {
		t.Errorf("expected no calls, got %v", b.Calls())
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := hosttest.New()
	a1 := src.AddTab(types.Tab{URL: "https://go.dev/doc", Title: "Docs"})
	a2 := src.AddTab(types.Tab{URL: "https://pkg.go.dev", Title: "Packages", Pinned: true})
	b1 := src.AddTab(types.Tab{URL: "https://news.example.com", Title: "News"})
	ga := src.AddGroup("Go", "blue", a1.ID, a2.ID)
	gb := src.AddGroup("Reading", "yellow", b1.ID)

	doc, err := Collect(ctx, src, ExportRequest{GroupIDs: []int{ga, gb}}, exportTime, nil)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	dst := hosttest.New()
	if _, err := Import(ctx, dst, decoded, ImportOptions{}, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}

	want := src.Session()
	got := dst.Session()
	if len(got.Groups) != len(want.Groups) {
		t.Fatalf("groups: got %d, want %d", len(got.Groups), len(want.Groups))
	}
	for i, wg := range want.Groups {
		gg := got.Groups[i]
		if gg.Title != wg.Title || gg.Color != wg.Color || len(gg.Tabs) != len(wg.Tabs) {
			t.Errorf("group %d: got %q/%q/%d, want %q/%q/%d",
				i, gg.Title, gg.Color, len(gg.Tabs), wg.Title, wg.Color, len(wg.Tabs))
			continue
		}
		for j := range wg.Tabs {
			if gg.Tabs[j].URL != wg.Tabs[j].URL || gg.Tabs[j].Pinned != wg.Tabs[j].Pinned {
				t.Errorf("tab %d/%d: got %s pinned=%v, want %s pinned=%v",
					i, j, gg.Tabs[j].URL, gg.Tabs[j].Pinned, wg.Tabs[j].URL, wg.Tabs[j].Pinned)
			}
		}
	}
}

func TestImportUnknownColorDropped(t *testing.T) {
	b := hosttest.New()
	doc := &Document{Version: Version, Groups: []GroupExport{
		{ID: 1, Title: "Odd", Color: "magenta", Tabs: []TabExport{{URL: "https://a.com"}}},
	}}
	if _, err := Import(context.Background(), b, doc, ImportOptions{}, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if g := b.Session().Groups[0]; g.Title != "Odd" || g.Color != "grey" {
		t.Errorf("group = %+v", g)
	}
}

func TestImportFileUsesCurrentWindow(t *testing.T) {
	b := hosttest.New()
	data := []byte(`{"version":"1.0","timestamp":"2024-06-01T12:30:00.000Z","groups":[
		{"id":7,"title":"Work","color":"purple","tabs":[{"url":"https://work.example.com","title":"W","pinned":false,"muted":false}]}
	]}`)
	res, err := ImportFile(context.Background(), b, data, nil)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Groups != 1 || len(res.GroupIDs) != 1 {
		t.Errorf("result = %+v", res)
	}
	if b.CallCount("windows.getCurrent") != 1 {
		t.Error("expected the current window to be resolved")
	}
	g := b.Session().GroupByID(res.GroupIDs[0])
	if g == nil || g.Title != "Work" || g.Color != "purple" || g.WindowID != 1 {
		t.Errorf("group = %+v", g)
	}
}
