// Package shortcuts maps key combinations to popup actions.
package shortcuts

import "strings"

// Host command names delivered by the browser's keyboard command API.
const (
	CommandSearchTabs  = "search_tabs"
	CommandCreateGroup = "create_group"
)

// Action is something the popup can do in response to a key.
type Action string

const (
	Search         Action = "search"
	NewGroup       Action = "new_group"
	Export         Action = "export"
	Import         Action = "import"
	CloseGroup     Action = "close_group"
	SelectAll      Action = "select_all"
	ToggleCollapse Action = "toggle_collapse"
	Up             Action = "up"
	Down           Action = "down"
)

// Shortcut is a registered key binding.
type Shortcut struct {
	Combo       string
	Action      Action
	Description string
	Enabled     bool
}

// Registry holds key bindings in registration order.
type Registry struct {
	order   []string
	byCombo map[string]*Shortcut
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byCombo: make(map[string]*Shortcut)}
}

// Defaults returns the popup's standard bindings.
func Defaults() *Registry {
	r := New()
	r.Register("ctrl+f", Search, "Search tabs")
	r.Register("ctrl+g", NewGroup, "Create new group")
	r.Register("ctrl+e", Export, "Export groups")
	r.Register("ctrl+i", Import, "Import groups")
	r.Register("ctrl+w", CloseGroup, "Close current group")
	r.Register("ctrl+a", SelectAll, "Select all tabs in group")
	r.Register("ctrl+space", ToggleCollapse, "Toggle group collapse")
	r.Register("up", Up, "Navigate up")
	r.Register("down", Down, "Navigate down")
	return r
}

// Register binds combo to action, replacing any existing binding.
// New bindings are enabled.
func (r *Registry) Register(combo string, action Action, description string) {
	combo = strings.ToLower(combo)
	if _, ok := r.byCombo[combo]; !ok {
		r.order = append(r.order, combo)
	}
	r.byCombo[combo] = &Shortcut{Combo: combo, Action: action, Description: description, Enabled: true}
}

// Enable turns a binding back on. It reports whether combo is registered.
func (r *Registry) Enable(combo string) bool {
	return r.setEnabled(combo, true)
}

// Disable turns a binding off without removing it.
func (r *Registry) Disable(combo string) bool {
	return r.setEnabled(combo, false)
}

func (r *Registry) setEnabled(combo string, on bool) bool {
	s, ok := r.byCombo[strings.ToLower(combo)]
	if ok {
		s.Enabled = on
	}
	return ok
}

// Lookup returns the action bound to combo. Nothing fires while a text
// input has focus.
func (r *Registry) Lookup(combo string, inInput bool) (Action, bool) {
	if inInput {
		return "", false
	}
	s, ok := r.byCombo[Normalize(combo)]
	if !ok || !s.Enabled {
		return "", false
	}
	return s.Action, true
}

// List returns every binding in registration order.
func (r *Registry) List() []Shortcut {
	out := make([]Shortcut, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, *r.byCombo[c])
	}
	return out
}

// Format renders a combination for display, e.g. "ctrl + f".
func Format(combo string) string {
	return strings.Join(strings.Split(combo, "+"), " + ")
}

// Normalize maps terminal key names onto registry combinations.
// Terminals report ctrl+space as ctrl+@ and ctrl+i as tab.
func Normalize(key string) string {
	key = strings.ToLower(key)
	switch key {
	case "ctrl+@":
		return "ctrl+space"
	case "tab":
		return "ctrl+i"
	}
	return key
}
