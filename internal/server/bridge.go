package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/types"
)

// ErrTimeout is returned when the extension does not answer in time.
var ErrTimeout = errors.New("browser did not respond")

// ExtensionError is a failure reported by the extension for one request.
type ExtensionError struct {
	Action  string
	Message string
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// Bridge turns the message stream of a Server into request/response calls
// and browser events. It implements the host interfaces.
type Bridge struct {
	srv     *Server
	timeout time.Duration
	events  chan host.Event

	mu      sync.Mutex
	pending map[string]chan IncomingMsg
}

var (
	_ host.Host       = (*Bridge)(nil)
	_ host.Downloader = (*Bridge)(nil)
	_ host.Badge      = (*Bridge)(nil)
	_ host.Notifier   = (*Bridge)(nil)
	_ host.Messenger  = (*Bridge)(nil)
)

// NewBridge creates a bridge over srv. Each call waits at most timeout for
// its response.
func NewBridge(srv *Server, timeout time.Duration) *Bridge {
	return &Bridge{
		srv:     srv,
		timeout: timeout,
		events:  make(chan host.Event, 64),
		pending: make(map[string]chan IncomingMsg),
	}
}

// Events returns browser events. The channel is closed when Run returns.
func (b *Bridge) Events() <-chan host.Event {
	return b.events
}

// Run dispatches incoming messages until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	defer close(b.events)
	msgs := b.srv.Messages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			b.dispatch(msg)
		}
	}
}

func (b *Bridge) dispatch(msg IncomingMsg) {
	if msg.Type == TypeResponse {
		b.mu.Lock()
		ch, ok := b.pending[msg.ID]
		delete(b.pending, msg.ID)
		b.mu.Unlock()
		if !ok {
			applog.Warn("bridge.orphan", "id", msg.ID)
			return
		}
		ch <- msg
		return
	}

	ev, err := toEvent(msg)
	if err != nil {
		applog.Error("bridge.event", err, "type", msg.Type)
		return
	}
	select {
	case b.events <- ev:
	default:
		applog.Warn("bridge.event_dropped", "type", msg.Type)
	}
}

func toEvent(msg IncomingMsg) (host.Event, error) {
	ev := host.Event{Kind: msg.Type, TabID: msg.TabID, Command: msg.Command}
	switch msg.Type {
	case host.EventTabCreated, host.EventTabUpdated:
		tab, err := ParseTab(msg.Tab)
		if err != nil {
			return ev, err
		}
		ev.Tab = tab
		ev.TabID = tab.ID
	case host.EventGroupCreated, host.EventGroupUpdated, host.EventGroupRemoved:
		g, err := ParseGroup(msg.Group)
		if err != nil {
			return ev, err
		}
		ev.Group = g
	case host.EventStorageChanged:
		ev.Changes = ParseChanges(msg.Changes)
	case host.EventSnapshot:
		data, err := ParseSnapshot(msg)
		if err != nil {
			return ev, err
		}
		ev.Session = data
	case host.EventTabRemoved, host.EventCommand, host.EventSettingsReload:
	default:
		return ev, fmt.Errorf("unknown message type %q", msg.Type)
	}
	return ev, nil
}

// call sends one request and decodes the response result into out, which
// may be nil.
func (b *Bridge) call(ctx context.Context, action string, params, out any) error {
	id := uuid.NewString()
	ch := make(chan IncomingMsg, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.srv.Send(OutgoingMsg{ID: id, Action: action, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	var resp IncomingMsg
	select {
	case resp = <-ch:
	case <-timer.C:
		return fmt.Errorf("%s: %w", action, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if resp.OK != nil && !*resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = "request failed"
		}
		return &ExtensionError{Action: action, Message: msg}
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", action, err)
	}
	return nil
}

func (b *Bridge) QueryTabs(ctx context.Context, q host.TabQuery) ([]*types.Tab, error) {
	var raw json.RawMessage
	if err := b.call(ctx, ActionTabsQuery, q, &raw); err != nil {
		return nil, err
	}
	return ParseTabs(raw)
}

func (b *Bridge) CreateTab(ctx context.Context, opts host.CreateTab) (*types.Tab, error) {
	var raw json.RawMessage
	if err := b.call(ctx, ActionTabsCreate, opts, &raw); err != nil {
		return nil, err
	}
	return ParseTab(raw)
}

func (b *Bridge) GroupTabs(ctx context.Context, req host.GroupRequest) (int, error) {
	var id int
	if err := b.call(ctx, ActionTabsGroup, req, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (b *Bridge) UngroupTabs(ctx context.Context, tabIDs []int) error {
	return b.call(ctx, ActionTabsUngroup, ungroupParams{TabIDs: tabIDs}, nil)
}

func (b *Bridge) QueryGroups(ctx context.Context) ([]*types.TabGroup, error) {
	var raw json.RawMessage
	if err := b.call(ctx, ActionGroupsQuery, nil, &raw); err != nil {
		return nil, err
	}
	return ParseGroups(raw)
}

func (b *Bridge) GetGroup(ctx context.Context, id int) (*types.TabGroup, error) {
	var raw json.RawMessage
	if err := b.call(ctx, ActionGroupsGet, groupIDParams{GroupID: id}, &raw); err != nil {
		return nil, err
	}
	return ParseGroup(raw)
}

func (b *Bridge) UpdateGroup(ctx context.Context, id int, u host.GroupUpdate) error {
	p := updateParams{GroupID: id, Title: u.Title, Color: u.Color, Collapsed: u.Collapsed}
	return b.call(ctx, ActionGroupsUpdate, p, nil)
}

func (b *Bridge) MoveGroup(ctx context.Context, id, index int) error {
	return b.call(ctx, ActionGroupsMove, moveParams{GroupID: id, Index: index}, nil)
}

func (b *Bridge) CurrentWindow(ctx context.Context) (int, error) {
	var w wireWindow
	if err := b.call(ctx, ActionWindowsGetCurrent, nil, &w); err != nil {
		return 0, err
	}
	return w.ID, nil
}

// Download asks the browser to save data through its download manager.
func (b *Bridge) Download(ctx context.Context, filename string, data []byte) error {
	p := downloadParams{Filename: filename, Content: string(data), MimeType: "application/json", SaveAs: true}
	return b.call(ctx, ActionDownload, p, nil)
}

func (b *Bridge) SetBadge(ctx context.Context, text, color string) error {
	return b.call(ctx, ActionSetBadge, badgeParams{Text: text, Color: color}, nil)
}

func (b *Bridge) Notify(ctx context.Context, level, text string) error {
	return b.call(ctx, ActionNotify, notifyParams{Level: level, Text: text}, nil)
}

func (b *Bridge) SendMessage(ctx context.Context, tabID int, action string) error {
	p := sendMessageParams{TabID: tabID, Message: map[string]any{"action": action}}
	return b.call(ctx, ActionSendMessage, p, nil)
}
