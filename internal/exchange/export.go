package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/types"
)

// Progress receives a completion percentage between 0 and 100.
type Progress func(percent int)

func (p Progress) report(done, total int) {
	if p == nil {
		return
	}
	if total <= 0 {
		p(100)
		return
	}
	p(done * 100 / total)
}

// ExportRequest selects what to export. GroupIDs are exported in order.
type ExportRequest struct {
	GroupIDs         []int
	IncludeUngrouped bool
	IncludePinned    bool
}

// Collect builds an export document from the live browser state. Groups
// with no live tabs are left out.
func Collect(ctx context.Context, h host.Host, req ExportRequest, now time.Time, progress Progress) (*Document, error) {
	doc := &Document{
		Version:   Version,
		Timestamp: Timestamp(now),
		Groups:    []GroupExport{},
	}

	total := len(req.GroupIDs)
	if req.IncludeUngrouped {
		total++
	}
	if req.IncludePinned {
		total++
	}
	done := 0
	progress.report(done, total)

	for _, id := range req.GroupIDs {
		tabs, err := h.QueryTabs(ctx, host.InGroup(id))
		if err != nil {
			return nil, fmt.Errorf("query group %d: %w", id, err)
		}
		if len(tabs) > 0 {
			g, err := h.GetGroup(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("get group %d: %w", id, err)
			}
			doc.Groups = append(doc.Groups, GroupExport{
				ID:    id,
				Title: g.Title,
				Color: g.Color,
				Tabs:  exportTabs(tabs),
			})
		} else {
			applog.Warn("export.skip_empty", "group", id)
		}
		done++
		progress.report(done, total)
	}

	if req.IncludeUngrouped {
		tabs, err := h.QueryTabs(ctx, host.UngroupedTabs())
		if err != nil {
			return nil, fmt.Errorf("query ungrouped tabs: %w", err)
		}
		var unpinned []*types.Tab
		for _, t := range tabs {
			if !t.Pinned {
				unpinned = append(unpinned, t)
			}
		}
		if len(unpinned) > 0 {
			doc.Groups = append(doc.Groups, GroupExport{
				ID:    types.UngroupedGroupID,
				Title: "Ungrouped",
				Tabs:  exportTabs(unpinned),
			})
		}
		done++
		progress.report(done, total)
	}

	if req.IncludePinned {
		tabs, err := h.QueryTabs(ctx, host.PinnedTabs())
		if err != nil {
			return nil, fmt.Errorf("query pinned tabs: %w", err)
		}
		if len(tabs) > 0 {
			doc.Groups = append(doc.Groups, GroupExport{
				ID:    types.PinnedGroupID,
				Title: "Pinned",
				Tabs:  exportTabs(tabs),
			})
		}
		done++
		progress.report(done, total)
	}

	return doc, nil
}

func exportTabs(tabs []*types.Tab) []TabExport {
	out := make([]TabExport, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, TabExport{
			URL:    t.URL,
			Title:  t.Title,
			Pinned: t.Pinned,
			Muted:  t.Muted,
		})
	}
	return out
}

// Download encodes doc and hands it to d under the dated export name.
// It returns the file name used.
func Download(ctx context.Context, d host.Downloader, doc *Document, now time.Time) (string, error) {
	data, err := Encode(doc)
	if err != nil {
		return "", err
	}
	name := FileName(now)
	if err := d.Download(ctx, name, data); err != nil {
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	applog.Info("export.downloaded", "file", name, "groups", len(doc.Groups), "tabs", doc.TabCount())
	return name, nil
}
