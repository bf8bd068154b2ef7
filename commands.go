package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/background"
	"github.com/lotas/tabgroups/internal/config"
	"github.com/lotas/tabgroups/internal/exchange"
	"github.com/lotas/tabgroups/internal/filename"
	"github.com/lotas/tabgroups/internal/firefox"
	"github.com/lotas/tabgroups/internal/grouping"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/registry"
	"github.com/lotas/tabgroups/internal/search"
	"github.com/lotas/tabgroups/internal/server"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/storage"
	"github.com/lotas/tabgroups/internal/tui"
	"github.com/lotas/tabgroups/internal/types"
)

// settingsPoll is how often serve rereads settings saved by other surfaces.
const settingsPoll = 2 * time.Second

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Port, "WebSocket port the extension's background connects to")
	fs.Parse(args)
	if *port == cfg.ClientPort {
		exitf("Error: port %d is the client port", *port)
	}

	ctx, stop := signalContext()
	defer stop()

	db := openDB(cfg)
	defer db.Close()
	store := settings.NewStore(settings.DBBackend{DB: db})

	srv := server.New(*port)
	bridge := server.NewBridge(srv, cfg.Timeout)
	svc := background.New(bridge, store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return bridge.Run(gctx) })
	g.Go(func() error { return svc.Run(gctx, bridge.Events()) })
	g.Go(func() error { return store.Watch(gctx, settingsPoll) })

	fmt.Fprintf(os.Stderr, "Serving the extension on 127.0.0.1:%d (ctrl+c to stop)\n", *port)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		exitf("Error: %v", err)
	}
}

func runTUI(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("tabgroups", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile to read instead of the live browser")
	offline := fs.Bool("offline", false, "Read a Firefox profile's session file")
	port := fs.Int("port", cfg.ClientPort, "Client WebSocket port for the live browser")
	fs.Parse(args)

	ctx, stop := signalContext()
	defer stop()

	var src *source
	switch {
	case *profileName != "":
		var err error
		if src, err = openOffline(cfg, *profileName); err != nil {
			exitf("Error: %v", err)
		}
	case *offline:
		var err error
		if src, err = pickOffline(cfg); err != nil {
			exitf("Error: %v", err)
		}
		if src == nil {
			return
		}
	default:
		src = openLive(ctx, cfg, *port)
	}
	defer src.stop()

	db := openDB(cfg)
	defer db.Close()
	store := openSettings(ctx, db)

	model := tui.NewModel(tui.Options{
		Ctx:        ctx,
		Host:       src.host,
		Registry:   registry.New(src.host, store),
		Settings:   store,
		Downloader: src.downloader,
		Events:     src.events,
		Connect:    src.connect,
		DB:         db,
		Source:     src.name,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		exitf("Error: %v", err)
	}
}

func runExport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	groupList := fs.String("group", "", "Comma-separated group IDs (default: all groups)")
	ungrouped := fs.Bool("ungrouped", false, "Include ungrouped tabs")
	pinned := fs.Bool("pinned", false, "Include pinned tabs")
	markdown := fs.Bool("markdown", false, "Print markdown instead of saving JSON")
	outFile := fs.String("out", "", "Output file path (default: downloads folder)")
	profileName := fs.String("profile", "", "Firefox profile name")
	offline := fs.Bool("offline", false, "Export from a Firefox profile's session file")
	noHistory := fs.Bool("no-history", false, "Do not record the export")
	fs.Parse(reorderArgs(args))

	ctx, stop := signalContext()
	defer stop()

	src := openSource(ctx, cfg, *offline, *profileName)
	defer src.stop()

	req := exchange.ExportRequest{IncludeUngrouped: *ungrouped, IncludePinned: *pinned}
	if *groupList != "" {
		ids, err := parseIDs(*groupList)
		if err != nil {
			exitf("Error: %v", err)
		}
		req.GroupIDs = ids
	} else {
		groups, err := src.host.QueryGroups(ctx)
		if err != nil {
			exitf("Error: %v", err)
		}
		for _, g := range groups {
			req.GroupIDs = append(req.GroupIDs, g.ID)
		}
	}

	now := time.Now()
	doc, err := exchange.Collect(ctx, src.host, req, now, printProgress("Exporting"))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		exitf("Error: %v", err)
	}

	if *markdown {
		writeOutput(*outFile, []byte(exchange.Markdown(doc)))
		return
	}

	data, err := exchange.Encode(doc)
	if err != nil {
		exitf("Error encoding export: %v", err)
	}
	name := *outFile
	if name != "" {
		writeOutput(name, data)
	} else {
		if name, err = exchange.Download(ctx, src.downloader, doc, now); err != nil {
			exitf("Error: %v", err)
		}
		if !src.live() {
			name = filepath.Join(cfg.DownloadDir, name)
		}
	}
	fmt.Fprintf(os.Stderr, "Exported %d groups, %d tabs to %s\n", len(doc.Groups), doc.TabCount(), name)

	if *noHistory {
		return
	}
	db := openDB(cfg)
	defer db.Close()
	id, err := storage.RecordExport(db, filepath.Base(name), len(doc.Groups), doc.TabCount(), data)
	if err != nil {
		exitf("Error recording export: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Recorded as export #%d\n", id)
}

func runImport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	window := fs.Int("window", 0, "Target window ID (default: current window)")
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		exitf("Usage: tabgroups import <file> [--window id]")
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		exitf("Error: %v", err)
	}
	doc, err := exchange.Decode(data)
	if err != nil {
		exitf("Error: %v", err)
	}

	ctx, stop := signalContext()
	defer stop()
	src := connectLive(ctx, cfg)
	defer src.stop()
	importDocument(ctx, src.host, doc, *window)
}

func importDocument(ctx context.Context, h host.Host, doc *exchange.Document, window int) {
	if window == 0 {
		w, err := h.CurrentWindow(ctx)
		if err != nil {
			exitf("Error: get current window: %v", err)
		}
		window = w
	}
	res, err := exchange.Import(ctx, h, doc, exchange.ImportOptions{WindowID: window}, printProgress("Importing"))
	fmt.Fprintln(os.Stderr)
	if res != nil {
		fmt.Printf("Imported %d groups, %d tabs", res.Groups, res.Tabs)
		if res.SkippedTabs > 0 {
			fmt.Printf(" (%d tabs could not be opened)", res.SkippedTabs)
		}
		fmt.Println()
	}
	if err != nil {
		exitf("Error: %v", err)
	}
}

func runHistory(cfg *config.Config, args []string) {
	db := openDB(cfg)
	defer db.Close()

	if len(args) == 0 || args[0] == "list" {
		list, err := storage.ListExports(db)
		if err != nil {
			exitf("Error listing exports: %v", err)
		}
		if len(list) == 0 {
			fmt.Println("No exports recorded.")
			return
		}
		fmt.Printf("%-5s %6s %5s  %-16s  %s\n", "ID", "GROUPS", "TABS", "CREATED", "FILE")
		for _, e := range list {
			fmt.Printf("%5d %6d %5d  %-16s  %s\n",
				e.ID,
				e.GroupCount,
				e.TabCount,
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.FileName,
			)
		}
		return
	}

	if len(args) != 2 {
		exitf("Usage: tabgroups history [list | show <id> | restore <id> | delete <id>]")
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitf("Invalid export ID: %s", args[1])
	}

	switch args[0] {
	case "show":
		rec, err := storage.GetExport(db, id)
		if err != nil {
			exitf("Error: %v", err)
		}
		os.Stdout.Write(rec.Document)
	case "restore":
		rec, err := storage.GetExport(db, id)
		if err != nil {
			exitf("Error: %v", err)
		}
		doc, err := exchange.Decode(rec.Document)
		if err != nil {
			exitf("Error: %v", err)
		}
		ctx, stop := signalContext()
		defer stop()
		src := connectLive(ctx, cfg)
		defer src.stop()
		importDocument(ctx, src.host, doc, 0)
	case "delete":
		if err := storage.DeleteExport(db, id); err != nil {
			exitf("Error: %v", err)
		}
		fmt.Printf("Export #%d deleted.\n", id)
	default:
		exitf("Unknown history command %q. Use list, show, restore, or delete.", args[0])
	}
}

func runSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name")
	offline := fs.Bool("offline", false, "Search a Firefox profile's session file")
	fs.Parse(reorderArgs(args))

	term := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(term) == "" {
		exitf("Usage: tabgroups search <term> [--profile name]")
	}

	ctx, stop := signalContext()
	defer stop()
	src := openSource(ctx, cfg, *offline, *profileName)
	defer src.stop()

	data, err := loadSnapshot(ctx, src.host, settings.NewStore(settings.NewMemoryBackend()))
	if err != nil {
		exitf("Error: %v", err)
	}
	fmt.Print(formatMatches(search.Filter(data, term)))
}

// formatMatches lists matching tabs under their group, ungrouped last.
func formatMatches(data *types.SessionData) string {
	var b strings.Builder
	for _, g := range data.Groups {
		fmt.Fprintf(&b, "%s [%s] #%d\n", g.Title, g.Color, g.ID)
		for _, t := range g.Tabs {
			fmt.Fprintf(&b, "  %d  %s\n      %s\n", t.ID, t.Title, t.URL)
		}
	}
	if loose := data.Ungrouped(); len(loose) > 0 {
		b.WriteString("Ungrouped\n")
		for _, t := range loose {
			fmt.Fprintf(&b, "  %d  %s\n      %s\n", t.ID, t.Title, t.URL)
		}
	}
	if b.Len() == 0 {
		return "No tabs match.\n"
	}
	return b.String()
}

func runGroupByDomain(cfg *config.Config, args []string) {
	withLiveBrowser(cfg, "group-by-domain", args, func(ctx context.Context, h host.Host, store *settings.Store) error {
		n, err := grouping.GroupAllByDomain(ctx, h, store.Get())
		if err == nil {
			fmt.Printf("Created %d groups.\n", n)
		}
		return err
	})
}

func runUngroupAll(cfg *config.Config, args []string) {
	withLiveBrowser(cfg, "ungroup-all", args, func(ctx context.Context, h host.Host, _ *settings.Store) error {
		n, err := grouping.UngroupAll(ctx, h)
		if err == nil {
			fmt.Printf("Ungrouped %d groups.\n", n)
		}
		return err
	})
}

func runSortGroups(cfg *config.Config, args []string) {
	withLiveBrowser(cfg, "sort-groups", args, func(ctx context.Context, h host.Host, _ *settings.Store) error {
		if err := grouping.SortGroups(ctx, h); err != nil {
			return err
		}
		fmt.Println("Groups sorted.")
		return nil
	})
}

// withLiveBrowser runs one quick action against the connected browser.
func withLiveBrowser(cfg *config.Config, name string, args []string, fn func(context.Context, host.Host, *settings.Store) error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Parse(args)

	ctx, stop := signalContext()
	defer stop()

	db := openDB(cfg)
	defer db.Close()
	store := openSettings(ctx, db)

	src := connectLive(ctx, cfg)
	defer src.stop()
	if err := fn(ctx, src.host, store); err != nil {
		applog.Error("cli."+name, err)
		exitf("Error: %v", err)
	}
}

func runLinks(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("links", flag.ExitOnError)
	dir := fs.String("dir", cfg.DownloadDir, "Directory to write .url files into")
	template := fs.String("template", "", "File name template (default: fileNameTemplate setting)")
	profileName := fs.String("profile", "", "Firefox profile name")
	offline := fs.Bool("offline", false, "Read a Firefox profile's session file")
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		exitf("Usage: tabgroups links <group id or title> [--dir path] [--template tmpl]")
	}

	ctx, stop := signalContext()
	defer stop()

	db := openDB(cfg)
	defer db.Close()
	store := openSettings(ctx, db)
	tmpl := *template
	if tmpl == "" {
		tmpl = store.Get().FileNameTemplate
	}

	src := openSource(ctx, cfg, *offline, *profileName)
	defer src.stop()
	data, err := loadSnapshot(ctx, src.host, store)
	if err != nil {
		exitf("Error: %v", err)
	}
	group := findGroup(data, fs.Arg(0))
	if group == nil {
		exitf("Group %q not found.", fs.Arg(0))
	}

	n, err := saveLinks(ctx, host.FileDownloader{Dir: *dir}, group, tmpl, time.Now())
	if err != nil {
		exitf("Error: %v", err)
	}
	fmt.Printf("Saved %d links from %s to %s\n", n, group.Title, *dir)
}

// findGroup matches a group by ID, then by case-insensitive title.
func findGroup(data *types.SessionData, ref string) *types.TabGroup {
	if id, err := strconv.Atoi(ref); err == nil {
		if g := data.GroupByID(id); g != nil {
			return g
		}
	}
	for _, g := range data.Groups {
		if strings.EqualFold(g.Title, ref) {
			return g
		}
	}
	return nil
}

// saveLinks writes one internet shortcut per tab of g. Indexes start at 1.
func saveLinks(ctx context.Context, d host.Downloader, g *types.TabGroup, tmpl string, now time.Time) (int, error) {
	seen := make(map[string]int)
	for i, t := range g.Tabs {
		name := filename.Format(tmpl, filename.Fields{Title: t.Title, URL: t.URL}, i+1, now)
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		if err := d.Download(ctx, name+".url", filename.Shortcut(t.URL)); err != nil {
			return i, fmt.Errorf("save %s: %w", t.URL, err)
		}
	}
	return len(g.Tabs), nil
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		exitf("Error discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 {
		exitf("No Firefox profiles found.")
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

func parseIDs(list string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid group ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printProgress(label string) exchange.Progress {
	return func(percent int) {
		fmt.Fprintf(os.Stderr, "\r%s... %d%%", label, percent)
	}
}

func writeOutput(path string, data []byte) {
	if path == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		exitf("Error writing file: %v", err)
	}
}
