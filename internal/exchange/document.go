// Package exchange reads and writes tab group export documents and
// rebuilds groups from them.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is written into every exported document.
const Version = "1.0"

var (
	ErrInvalidJSON   = errors.New("invalid JSON file")
	ErrInvalidFormat = errors.New("invalid import file format")
)

// Document is the export file format.
type Document struct {
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Groups    []GroupExport `json:"groups"`
}

// GroupExport is one exported group. ID is the browser's group ID at export
// time, or one of the pseudo-group IDs for ungrouped and pinned tabs.
type GroupExport struct {
	ID    int         `json:"id"`
	Title string      `json:"title"`
	Color string      `json:"color,omitempty"`
	Tabs  []TabExport `json:"tabs"`
}

// TabExport keeps only what is needed to reopen a tab.
type TabExport struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Pinned bool   `json:"pinned"`
	Muted  bool   `json:"muted"`
}

// TabCount returns the number of tabs across all groups.
func (d *Document) TabCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Tabs)
	}
	return n
}

// Timestamp formats t the way export documents carry it.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FileName returns the download name for an export made at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("tab_groups_export_%s.json", t.UTC().Format("2006-01-02"))
}

// Encode renders doc as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return append(b, '\n'), nil
}

// Decode parses and validates an export document. It fails with
// ErrInvalidJSON or ErrInvalidFormat without touching the browser.
func Decode(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	version, ok := versionString(top["version"])
	if !ok {
		return nil, fmt.Errorf("%w: missing version", ErrInvalidFormat)
	}
	groups := bytes.TrimSpace(top["groups"])
	if len(groups) == 0 || groups[0] != '[' {
		return nil, fmt.Errorf("%w: groups must be a list", ErrInvalidFormat)
	}

	doc := &Document{Version: version}
	if ts, ok := top["timestamp"]; ok {
		json.Unmarshal(ts, &doc.Timestamp)
	}
	if err := json.Unmarshal(groups, &doc.Groups); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return doc, nil
}

// versionString accepts any present, non-empty version value.
func versionString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	switch string(raw) {
	case "null", "false", "0", "[]", "{}":
		return "", false
	}
	return string(raw), true
}
