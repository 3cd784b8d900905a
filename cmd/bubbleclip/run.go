package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/bubbleclip/internal/clip"
	"go.klb.dev/bubbleclip/internal/control"
	"go.klb.dev/bubbleclip/internal/history"
	"go.klb.dev/bubbleclip/internal/hub"
	"go.klb.dev/bubbleclip/internal/ipc"
	"go.klb.dev/bubbleclip/internal/launch"
	"go.klb.dev/bubbleclip/internal/logging"
	"go.klb.dev/bubbleclip/internal/overlay"
	"go.klb.dev/bubbleclip/internal/surface"
	"go.klb.dev/bubbleclip/internal/tui"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bubble overlay (+ clipboard capture and history)",
		Long: `Starts the overlay. Clipboard changes become bubbles; drag a bubble with
the mouse toward a terminal edge to reveal its actions and release over one.

Keys: r/a/c mark replace/append/clear on the selected bubble, tab select,
p pin, n new empty bubble, m toggle tap mode, t trim, esc cancel drags,
q quit.

With --headless no terminal UI is drawn: bubbles are managed through
"bubbleclip status/mark/trim" and the overlay logs to stderr.

Config file search order:
  /etc/bubbleclip/bubbleclip.toml
  $HOME/.config/bubbleclip/bubbleclip.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → BUBBLECLIP_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runOverlay(cmd.Context(), v) },
	}

	f := cmd.Flags()
	f.Bool("headless", false, "no terminal UI; run as a background capture service")
	f.Bool("no-history", false, "do not record or restore history")
	f.String("log-file", "", "log file while the terminal UI owns the screen (default: <history>/bubbleclip.log)")
	addOverlayFlags(cmd)
	addHistoryFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runOverlay(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	headless := v.GetBool("headless")

	if headless {
		setupLogging(v)
	} else {
		path := v.GetString("log-file")
		if path == "" {
			path = filepath.Join(v.GetString("history"), "bubbleclip.log")
		}
		f, err := logging.OpenFile(path)
		if err != nil {
			return err
		}
		defer f.Close()
		logging.SetupWriter(f, logging.ParseFormat(v.GetString("log-format")), logLevel(v, true))
	}

	cfg, err := overlayConfig(v)
	if err != nil {
		return err
	}

	slog.Info("bubbleclip starting",
		"version", Version,
		"headless", headless,
		"mode", cfg.Mode,
		"max_bubbles", cfg.MaxBubbles,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	var hist overlay.History
	if !v.GetBool("no-history") {
		store, err := openHistory(ctx, v)
		if err != nil {
			return err
		}
		defer store.Close()
		hist = store
	}

	surf := surface.NewHeadless()
	h := hub.New()
	notices := tui.NewNotices()

	o := overlay.New(cfg, overlay.Deps{
		Surface:   surf,
		Clipboard: backend,
		History:   hist,
		Launcher: launch.New(launch.Exec{},
			launch.WithSearchURL(v.GetString("search-url")),
			launch.WithMapURL(v.GetString("map-url")),
		),
		Notifier: overlay.NotifierFunc(func(msg string) {
			slog.Info("notice", "msg", msg)
			notices.Notify(msg)
		}),
		Hub: h,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.Run(gctx) })
	g.Go(func() error {
		if err := o.LoadHistory(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("restore history: %w", err)
		}
		return nil
	})

	// control socket for copy/status/trim/mark CLI tools
	ln, err := ipc.Listen()
	if err != nil {
		slog.Warn("control socket unavailable", "err", err)
	} else {
		slog.Info("control socket listening", "path", ipc.SocketPath())
		g.Go(func() error { return control.NewServer(o).Serve(gctx, ln) })
	}

	if !headless {
		peer := hub.NewChanPeer("tui", 16)
		h.Register(peer)
		g.Go(func() error {
			defer cancel()
			defer h.Unregister(peer)
			return tui.Run(gctx, tui.New(gctx, o, surf, peer.C(), notices))
		})
	}

	err = g.Wait()
	slog.Info("bubbleclip stopped")
	return err
}

// openHistory opens the store and applies the retention settings.
func openHistory(ctx context.Context, v *viper.Viper) (*history.Store, error) {
	store, err := history.Open(v.GetString("history"), v.GetString("passphrase"))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if ttl := v.GetDuration("history-ttl"); ttl > 0 {
		n, err := store.PurgeOlderThan(ctx, time.Now().Add(-ttl))
		if err != nil {
			slog.Warn("history purge failed", "err", err)
		} else if n > 0 {
			slog.Info("history purged", "rows", n, "ttl", ttl)
		}
	}
	if keep := v.GetInt("max-history"); keep > 0 {
		if _, err := store.Trim(ctx, keep); err != nil {
			slog.Warn("history trim failed", "err", err)
		}
	}
	slog.Info("history open", "dir", v.GetString("history"), "encrypted", store.Sealed())
	return store, nil
}

func logLevel(v *viper.Viper, interactive bool) slog.Level {
	if s := v.GetString("log-level"); s != "" {
		return logging.ParseLevel(s)
	}
	if interactive || v.GetBool("no-background") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
