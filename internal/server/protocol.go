package server

import "encoding/json"

// Message type for replies to a request. Every other type is an event
// kind from the host package.
const TypeResponse = "response"

// Request actions understood by the extension.
const (
	ActionTabsQuery         = "tabs.query"
	ActionTabsCreate        = "tabs.create"
	ActionTabsGroup         = "tabs.group"
	ActionTabsUngroup       = "tabs.ungroup"
	ActionGroupsQuery       = "tabGroups.query"
	ActionGroupsGet         = "tabGroups.get"
	ActionGroupsUpdate      = "tabGroups.update"
	ActionGroupsMove        = "tabGroups.move"
	ActionWindowsGetCurrent = "windows.getCurrent"
	ActionDownload          = "downloads.download"
	ActionSetBadge          = "action.setBadge"
	ActionSendMessage       = "tabs.sendMessage"
	ActionNotify            = "notify"
)

// IncomingMsg is a message from the extension: either a response to a
// request (Type "response" with the request's ID) or an event.
type IncomingMsg struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// Response fields
	OK     *bool           `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	// Event fields
	Tab     json.RawMessage          `json:"tab,omitempty"`
	Tabs    json.RawMessage          `json:"tabs,omitempty"`
	Groups  json.RawMessage          `json:"groups,omitempty"`
	Group   json.RawMessage          `json:"group,omitempty"`
	TabID   int                      `json:"tabId,omitempty"`
	Command string                   `json:"command,omitempty"`
	Changes map[string]StorageChange `json:"changes,omitempty"`
}

// StorageChange is one entry of a storage change notification.
type StorageChange struct {
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// OutgoingMsg is a request to the extension.
type OutgoingMsg struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Params any    `json:"params,omitempty"`
}

type ungroupParams struct {
	TabIDs []int `json:"tabIds"`
}

type groupIDParams struct {
	GroupID int `json:"groupId"`
}

type updateParams struct {
	GroupID   int     `json:"groupId"`
	Title     *string `json:"title,omitempty"`
	Color     *string `json:"color,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

type moveParams struct {
	GroupID int `json:"groupId"`
	Index   int `json:"index"`
}

type downloadParams struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	MimeType string `json:"mimeType"`
	SaveAs   bool   `json:"saveAs"`
}

type badgeParams struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

type sendMessageParams struct {
	TabID   int            `json:"tabId"`
	Message map[string]any `json:"message"`
}

type notifyParams struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type wireWindow struct {
	ID int `json:"id"`
}
