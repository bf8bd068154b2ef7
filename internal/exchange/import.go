package exchange

import (
	"context"
	"fmt"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/types"
)

// ImportOptions controls where imported tabs are opened.
type ImportOptions struct {
	WindowID int
}

// ImportResult summarizes an import.
type ImportResult struct {
	Groups      int   // groups created in the browser
	Tabs        int   // tabs opened
	SkippedTabs int   // tabs that failed to open
	GroupIDs    []int // IDs of the created groups, in document order
}

// Import opens the tabs of doc one group at a time and regroups them.
// A tab that fails to open is skipped. A group whose tabs all failed is
// not created. Pseudo-groups reopen their tabs without grouping them.
// Grouping failures abort the import; groups created before the failure
// are left in place.
func Import(ctx context.Context, h host.Host, doc *Document, opts ImportOptions, progress Progress) (*ImportResult, error) {
	res := &ImportResult{}
	total := len(doc.Groups)
	progress.report(0, total)

	for i, g := range doc.Groups {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("import aborted after %d of %d groups: %w", i, total, err)
		}

		var tabIDs []int
		for _, t := range g.Tabs {
			tab, err := h.CreateTab(ctx, host.CreateTab{
				URL:      t.URL,
				Pinned:   t.Pinned,
				Active:   false,
				WindowID: opts.WindowID,
			})
			if err != nil {
				applog.Error("import.create_tab", err, "url", t.URL)
				res.SkippedTabs++
				continue
			}
			tabIDs = append(tabIDs, tab.ID)
		}
		res.Tabs += len(tabIDs)

		if len(tabIDs) > 0 && !pseudoGroup(g.ID) {
			id, err := h.GroupTabs(ctx, host.GroupRequest{TabIDs: tabIDs})
			if err != nil {
				return res, fmt.Errorf("group %q: %w", g.Title, err)
			}
			if err := h.UpdateGroup(ctx, id, groupUpdate(g)); err != nil {
				return res, fmt.Errorf("update group %q: %w", g.Title, err)
			}
			res.Groups++
			res.GroupIDs = append(res.GroupIDs, id)
		}
		progress.report(i+1, total)
	}

	applog.Info("import.done", "groups", res.Groups, "tabs", res.Tabs, "skipped", res.SkippedTabs)
	return res, nil
}

func pseudoGroup(id int) bool {
	return id == types.UngroupedGroupID || id == types.PinnedGroupID
}

// groupUpdate carries the document's title and color. Colors the browser
// does not know are dropped so the group keeps its default.
func groupUpdate(g GroupExport) host.GroupUpdate {
	color := types.NormalizeColor(g.Color)
	if color != "" && !types.ValidColor(color) {
		applog.Warn("import.unknown_color", "group", g.Title, "color", g.Color)
		color = ""
	}
	return host.TitleColor(g.Title, color)
}

// ImportFile decodes data and imports it into the current window.
// Nothing is created in the browser when data is not a valid document.
func ImportFile(ctx context.Context, h host.Host, data []byte, progress Progress) (*ImportResult, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	window, err := h.CurrentWindow(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current window: %w", err)
	}
	return Import(ctx, h, doc, ImportOptions{WindowID: window}, progress)
}
