package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lotas/tabgroups/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}

	// Verify magic header.
	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	// Read uncompressed size (4-byte little-endian uint32).
	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])

	// Decompress using raw lz4 block decompression.
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}

// Raw JSON types for Firefox session file parsing.
type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
	Group        string     `json:"groupId"`
	Pinned       bool       `json:"pinned"`
	Muted        bool       `json:"muted"`
}

type rawGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type rawWindow struct {
	Tabs     []rawTab   `json:"tabs"`
	Groups   []rawGroup `json:"groups"`
	Selected int        `json:"selected"`
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"`
}

// ParseSession parses raw JSON session data into a SessionData structure.
// Session files carry no browser IDs, so tabs and groups are numbered
// from 1 in file order and windows are numbered from 1 by position.
// A tab referencing an undefined group is treated as ungrouped.
func ParseSession(data []byte) (*types.SessionData, error) {
	sd, _, err := parseSession(data)
	return sd, err
}

// parseSession also returns the ID of the window that had focus.
func parseSession(data []byte) (*types.SessionData, int, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("parse session JSON: %w", err)
	}

	sd := &types.SessionData{
		ParsedAt: time.Now(),
	}

	nextTab, nextGroup := 1, 1
	for winIdx, window := range raw.Windows {
		windowID := winIdx + 1

		groupMap := make(map[string]*types.TabGroup)
		for _, rg := range window.Groups {
			tg := &types.TabGroup{
				ID:        nextGroup,
				Title:     rg.Name,
				Color:     types.NormalizeColor(rg.Color),
				Collapsed: rg.Collapsed,
				WindowID:  windowID,
			}
			nextGroup++
			groupMap[rg.ID] = tg
			sd.Groups = append(sd.Groups, tg)
		}

		index := 0
		for tabIdx, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}

			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			tab := &types.Tab{
				ID:         nextTab,
				WindowID:   windowID,
				Index:      index,
				URL:        entry.URL,
				Title:      entry.Title,
				Pinned:     rt.Pinned,
				Muted:      rt.Muted,
				Active:     window.Selected == tabIdx+1,
				FavIconURL: rt.Image,
				GroupID:    types.NoGroup,
			}
			tab.Highlighted = tab.Active
			if rt.LastAccessed > 0 {
				tab.LastAccessed = time.UnixMilli(rt.LastAccessed)
			}
			nextTab++
			index++

			if tg, ok := groupMap[rt.Group]; ok && rt.Group != "" {
				tab.GroupID = tg.ID
				tg.Tabs = append(tg.Tabs, tab)
			}
			sd.AllTabs = append(sd.AllTabs, tab)
		}
	}

	// Groups whose tabs were all dropped do not exist in the browser.
	kept := sd.Groups[:0]
	for _, g := range sd.Groups {
		if len(g.Tabs) > 0 {
			kept = append(kept, g)
		}
	}
	sd.Groups = kept

	current := raw.SelectedWindow
	if current < 1 || current > len(raw.Windows) {
		current = 1
	}
	return sd, current, nil
}

// ReadSessionFile reads and parses a Firefox session recovery file from the given profile directory.
// It tries recovery.jsonlz4 first (active session), then previous.jsonlz4 (last closed session).
func ReadSessionFile(profileDir string) (*types.SessionData, error) {
	sd, _, err := readSessionFile(profileDir)
	return sd, err
}

func readSessionFile(profileDir string) (*types.SessionData, int, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range sessionFiles {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress session file: %w", err)
	}

	return parseSession(decompressed)
}

var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}
