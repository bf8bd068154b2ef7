package shortcuts

import "testing"

func TestDefaults(t *testing.T) {
	r := Defaults()
	list := r.List()
	if len(list) != 9 {
		t.Fatalf("expected 9 bindings, got %d", len(list))
	}
	if list[0].Combo != "ctrl+f" || list[0].Action != Search {
		t.Errorf("first binding = %+v", list[0])
	}
	if list[8].Combo != "down" {
		t.Errorf("last binding = %+v", list[8])
	}
	for _, s := range list {
		if !s.Enabled || s.Description == "" {
			t.Errorf("binding %+v should be enabled with a description", s)
		}
	}
}

func TestLookup(t *testing.T) {
	r := Defaults()
	if a, ok := r.Lookup("ctrl+g", false); !ok || a != NewGroup {
		t.Errorf("ctrl+g = %q, %v", a, ok)
	}
	if a, ok := r.Lookup("ctrl+@", false); !ok || a != ToggleCollapse {
		t.Errorf("ctrl+@ = %q, %v", a, ok)
	}
	if a, ok := r.Lookup("tab", false); !ok || a != Import {
		t.Errorf("tab = %q, %v", a, ok)
	}
	if _, ok := r.Lookup("ctrl+g", true); ok {
		t.Error("shortcuts must not fire while typing")
	}
	if _, ok := r.Lookup("ctrl+z", false); ok {
		t.Error("unbound combo should not match")
	}
}

func TestEnableDisable(t *testing.T) {
	r := Defaults()
	if !r.Disable("CTRL+E") {
		t.Fatal("ctrl+e should be registered")
	}
	if _, ok := r.Lookup("ctrl+e", false); ok {
		t.Error("disabled shortcut fired")
	}
	if r.List()[2].Enabled {
		t.Error("List should report the binding disabled")
	}
	r.Enable("ctrl+e")
	if _, ok := r.Lookup("ctrl+e", false); !ok {
		t.Error("re-enabled shortcut should fire")
	}
	if r.Disable("ctrl+q") {
		t.Error("unknown combo reported as registered")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := New()
	r.Register("ctrl+x", Export, "first")
	r.Register("ctrl+x", Import, "second")
	list := r.List()
	if len(list) != 1 || list[0].Action != Import || list[0].Description != "second" {
		t.Errorf("list = %+v", list)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("ctrl+shift+f"); got != "ctrl + shift + f" {
		t.Errorf("got %q", got)
	}
	if got := Format("up"); got != "up" {
		t.Errorf("got %q", got)
	}
}
