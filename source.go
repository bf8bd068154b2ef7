package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/lotas/tabgroups/internal/applog"
	"github.com/lotas/tabgroups/internal/config"
	"github.com/lotas/tabgroups/internal/firefox"
	"github.com/lotas/tabgroups/internal/host"
	"github.com/lotas/tabgroups/internal/registry"
	"github.com/lotas/tabgroups/internal/server"
	"github.com/lotas/tabgroups/internal/settings"
	"github.com/lotas/tabgroups/internal/tui"
	"github.com/lotas/tabgroups/internal/types"
)

// source is where a command reads and changes tab groups: the running
// browser over the client port, or a profile's session file.
type source struct {
	name       string
	host       host.Host
	downloader host.Downloader
	events     <-chan host.Event
	connect    func(context.Context) error
	stop       func()
}

func (s *source) live() bool {
	return s.connect != nil
}

// openLive serves the client port and relays requests through a bridge.
// The extension may attach at any time; connect waits for it.
func openLive(ctx context.Context, cfg *config.Config, port int) *source {
	srv := server.New(port)
	bridge := server.NewBridge(srv, cfg.Timeout)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return bridge.Run(gctx) })

	return &source{
		name:       fmt.Sprintf("live :%d", port),
		host:       bridge,
		downloader: bridge,
		events:     bridge.Events(),
		connect: func(ctx context.Context) error {
			wctx, abort := context.WithCancel(ctx)
			defer abort()
			defer context.AfterFunc(gctx, abort)()
			if err := srv.WaitConnected(wctx); err != nil {
				if gctx.Err() != nil && ctx.Err() == nil {
					if werr := g.Wait(); werr != nil {
						return fmt.Errorf("listen on port %d: %w", port, werr)
					}
				}
				return err
			}
			return nil
		},
		stop: func() {
			cancel()
			if err := g.Wait(); err != nil {
				applog.Error("live.stop", err)
			}
		},
	}
}

// openOffline reads the named profile, or the default one when name is
// empty.
func openOffline(cfg *config.Config, name string) (*source, error) {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}
	profile, err := firefox.FindProfile(profiles, name)
	if err != nil {
		return nil, err
	}
	return openProfile(cfg, profile)
}

func openProfile(cfg *config.Config, profile types.Profile) (*source, error) {
	sh, err := firefox.OpenSession(profile)
	if err != nil {
		return nil, err
	}
	return &source{
		name:       "profile " + profile.Name,
		host:       sh,
		downloader: host.FileDownloader{Dir: cfg.DownloadDir},
		stop:       func() {},
	}, nil
}

// pickOffline lets the user choose among the discovered profiles.
func pickOffline(cfg *config.Config) (*source, error) {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no Firefox profiles found")
	}
	profile, ok, err := tui.PickProfile(profiles)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return openProfile(cfg, profile)
}

// openSource picks the session file when offline or a profile is named,
// the running browser otherwise. Live sources are connected on return.
func openSource(ctx context.Context, cfg *config.Config, offline bool, profile string) *source {
	if offline || profile != "" {
		src, err := openOffline(cfg, resolveProfileName(profile, cfg))
		if err != nil {
			exitf("Error: %v", err)
		}
		return src
	}
	return connectLive(ctx, cfg)
}

// connectLive opens the client port and waits up to the configured
// timeout for the extension.
func connectLive(ctx context.Context, cfg *config.Config) *source {
	src := openLive(ctx, cfg, cfg.ClientPort)
	fmt.Fprintf(os.Stderr, "Waiting for the extension on port %d...\n", cfg.ClientPort)
	wctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := src.connect(wctx); err != nil {
		src.stop()
		if wctx.Err() != nil && ctx.Err() == nil {
			exitf("Error: timed out waiting for the extension (%s)", cfg.Timeout)
		}
		exitf("Error: %v", err)
	}
	return src
}

// loadSnapshot reads every group and tab from h.
func loadSnapshot(ctx context.Context, h host.Host, store *settings.Store) (*types.SessionData, error) {
	reg := registry.New(h, store)
	if err := reg.Refresh(ctx); err != nil {
		return nil, err
	}
	return reg.Snapshot(), nil
}
