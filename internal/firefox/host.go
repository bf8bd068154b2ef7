package firefox

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/types"
)

// ErrReadOnly is returned by SessionHost for every mutating call.
var ErrReadOnly = errors.New("session file is read-only")

// SessionHost serves a parsed session file through the host API so that
// export and search work without a running browser.
type SessionHost struct {
	data   *types.SessionData
	window int
}

var _ host.Host = (*SessionHost)(nil)

// NewSessionHost wraps data. window is the focused window's ID.
func NewSessionHost(data *types.SessionData, window int) *SessionHost {
	return &SessionHost{data: data, window: window}
}

// OpenSession reads the session file of profile.
func OpenSession(profile types.Profile) (*SessionHost, error) {
	data, window, err := readSessionFile(profile.Path)
	if err != nil {
		return nil, err
	}
	data.Profile = profile
	return NewSessionHost(data, window), nil
}

// Session returns the parsed session.
func (h *SessionHost) Session() *types.SessionData {
	return h.data
}

func (h *SessionHost) QueryTabs(ctx context.Context, q host.TabQuery) ([]*types.Tab, error) {
	var out []*types.Tab
	for _, t := range h.data.AllTabs {
		if q.Matches(t, h.window) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (h *SessionHost) QueryGroups(ctx context.Context) ([]*types.TabGroup, error) {
	out := make([]*types.TabGroup, 0, len(h.data.Groups))
	for _, g := range h.data.Groups {
		c := *g
		c.Tabs = nil
		out = append(out, &c)
	}
	return out, nil
}

func (h *SessionHost) GetGroup(ctx context.Context, id int) (*types.TabGroup, error) {
	g := h.data.GroupByID(id)
	if g == nil {
		return nil, fmt.Errorf("no group with id %d", id)
	}
	c := *g
	c.Tabs = nil
	return &c, nil
}

func (h *SessionHost) CurrentWindow(ctx context.Context) (int, error) {
	return h.window, nil
}

func (h *SessionHost) CreateTab(ctx context.Context, opts host.CreateTab) (*types.Tab, error) {
	return nil, ErrReadOnly
}

func (h *SessionHost) GroupTabs(ctx context.Context, req host.GroupRequest) (int, error) {
	return 0, ErrReadOnly
}

func (h *SessionHost) UngroupTabs(ctx context.Context, tabIDs []int) error {
	return ErrReadOnly
}

func (h *SessionHost) UpdateGroup(ctx context.Context, id int, u host.GroupUpdate) error {
	return ErrReadOnly
}

func (h *SessionHost) MoveGroup(ctx context.Context, id, index int) error {
	return ErrReadOnly
}
