package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/config"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := applog.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer applog.Close()

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "tui":
		runTUI(cfg, args)
	case "serve":
		runServe(cfg, args)
	case "export":
		runExport(cfg, args)
	case "import":
		runImport(cfg, args)
	case "history":
		runHistory(cfg, args)
	case "settings":
		runSettings(cfg, args)
	case "search":
		runSearch(cfg, args)
	case "group-by-domain":
		runGroupByDomain(cfg, args)
	case "ungroup-all":
		runUngroupAll(cfg, args)
	case "sort-groups":
		runSortGroups(cfg, args)
	case "links":
		runLinks(cfg, args)
	case "profiles":
		runProfiles()
	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Run 'tabgroups help' for usage.\n", cmd)
		os.Exit(2)
	}
}

func printHelp() {
	fmt.Print(`tabgroups — tab group manager

Usage:
  tabgroups                                   Start the TUI (default)
    --profile <name>       Read a Firefox profile's session file (read-only)
    --offline              Pick a Firefox profile instead of connecting
    --port <n>             Client WebSocket port (default: 19192)

  tabgroups serve                             Run the background service
    --port <n>             Extension WebSocket port (default: 19191)

  tabgroups export                            Export tab groups
    --group <ids>          Comma-separated group IDs (default: all groups)
    --ungrouped            Include ungrouped tabs
    --pinned               Include pinned tabs
    --markdown             Print markdown instead of saving JSON
    --out <file>           Write to a file instead of the downloads folder
    --profile <name>       Export from a Firefox profile's session file
    --no-history           Do not record the export in the history

  tabgroups import <file>                     Recreate groups from an export
    --window <id>          Target window (default: current window)

  tabgroups history                           List recorded exports
  tabgroups history show <id>                 Print a recorded export
  tabgroups history restore <id>              Import a recorded export
  tabgroups history delete <id>               Delete a recorded export

  tabgroups settings                          Show all settings
  tabgroups settings get <key>
  tabgroups settings set <key> <value>        Lists are comma separated
  tabgroups settings add-domain <domain>
  tabgroups settings remove-domain <domain>
  tabgroups settings toggle-color <color>
  tabgroups settings reset

  tabgroups search <term> [--profile <name>]  Find tabs by title or URL
  tabgroups group-by-domain                   Group tabs sharing a hostname
  tabgroups ungroup-all                       Dissolve every group
  tabgroups sort-groups                       Order groups alphabetically
  tabgroups links <group> [--dir <path>]      Save a group's tabs as .url files
  tabgroups profiles                          List Firefox profiles

Environment:
  TABGROUPS_CONFIG        Config file (default: $XDG_CONFIG_HOME/tabgroups/config.yaml)
  TABGROUPS_PORT          Extension port used by serve
  TABGROUPS_CLIENT_PORT   Extension port used by the TUI and live commands
  TABGROUPS_DB            SQLite database path
  TABGROUPS_LOG_DIR       Log directory
  TABGROUPS_DOWNLOAD_DIR  Directory for offline exports and links
  TABGROUPS_PROFILE       Default Firefox profile (overridden by --profile)
  TABGROUPS_TIMEOUT       Per-request timeout, e.g. 10s
`)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openDB(cfg *config.Config) *sql.DB {
	db, err := storage.OpenDB(cfg.DB)
	if err != nil {
		exitf("Error opening database: %v", err)
	}
	return db
}

// openSettings returns a loaded settings store persisted in db.
func openSettings(ctx context.Context, db *sql.DB) *settings.Store {
	store := settings.NewStore(settings.DBBackend{DB: db})
	if _, err := store.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using default settings: %v\n", err)
	}
	return store
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !boolFlags[strings.TrimLeft(args[i], "-")] {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// boolFlags take no value, so reorderArgs must not swallow the next word.
var boolFlags = map[string]bool{
	"ungrouped":  true,
	"pinned":     true,
	"markdown":   true,
	"no-history": true,
	"offline":    true,
	"yes":        true,
}

// resolveProfileName returns the profile name from the flag if set,
// otherwise the configured default.
func resolveProfileName(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Profile
}
