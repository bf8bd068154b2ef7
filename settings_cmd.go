package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lotas/tabgroups/internal/config"
	"github.com/lotas/tabgroups/internal/settings"
)

func runSettings(cfg *config.Config, args []string) {
	ctx := context.Background()
	db := openDB(cfg)
	defer db.Close()
	store := openSettings(ctx, db)

	if len(args) == 0 || args[0] == "list" {
		printSettings(os.Stdout, store.Get())
		return
	}

	update := func(fn func(*settings.Settings) error) {
		if err := store.Update(ctx, fn); err != nil {
			exitf("Error: %v", err)
		}
	}

	switch args[0] {
	case "get":
		if len(args) != 2 {
			exitf("Usage: tabgroups settings get <key>")
		}
		v, err := store.Get().Value(args[1])
		if err != nil {
			exitf("Error: %v", err)
		}
		fmt.Println(v)
	case "set":
		if len(args) < 3 {
			exitf("Usage: tabgroups settings set <key> <value>")
		}
		value := strings.Join(args[2:], " ")
		update(func(s *settings.Settings) error { return s.Set(args[1], value) })
		fmt.Printf("%s updated.\n", args[1])
	case "add-domain":
		if len(args) != 2 {
			exitf("Usage: tabgroups settings add-domain <domain>")
		}
		update(func(s *settings.Settings) error { return s.AddDomain(args[1]) })
		fmt.Printf("Domain %s added.\n", strings.ToLower(strings.TrimSpace(args[1])))
	case "remove-domain":
		if len(args) != 2 {
			exitf("Usage: tabgroups settings remove-domain <domain>")
		}
		update(func(s *settings.Settings) error {
			if !s.RemoveDomain(args[1]) {
				return fmt.Errorf("domain %s is not configured", args[1])
			}
			return nil
		})
		fmt.Printf("Domain %s removed.\n", args[1])
	case "toggle-color":
		if len(args) != 2 {
			exitf("Usage: tabgroups settings toggle-color <color>")
		}
		update(func(s *settings.Settings) error { return s.ToggleColor(args[1]) })
		fmt.Printf("Palette: %s\n", strings.Join(store.Get().GroupColors, ", "))
	case "reset":
		if err := store.Save(ctx, settings.Defaults()); err != nil {
			exitf("Error: %v", err)
		}
		fmt.Println("Settings reset to defaults.")
	default:
		exitf("Unknown settings command %q. Use list, get, set, add-domain, remove-domain, toggle-color, or reset.", args[0])
	}
}

func printSettings(w io.Writer, s settings.Settings) {
	for _, key := range settings.Keys {
		v, err := s.Value(key)
		if err != nil {
			v = "?"
		}
		fmt.Fprintf(w, "%-22s %s\n", key, v)
	}
}
