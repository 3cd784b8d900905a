package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/bubbleclip/internal/geom"
	"go.klb.dev/bubbleclip/internal/gesture"
	"go.klb.dev/bubbleclip/internal/launch"
	"go.klb.dev/bubbleclip/internal/logging"
	"go.klb.dev/bubbleclip/internal/overlay"
	"go.klb.dev/bubbleclip/internal/zone"
)

// envKeys maps flag names to env suffixes: edge-threshold → EDGE_THRESHOLD.
var envKeys = strings.NewReplacer("-", "_")

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and BUBBLECLIP_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → BUBBLECLIP_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("bubbleclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/bubbleclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bubbleclip"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("BUBBLECLIP")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addHistoryFlags adds the history store flags to a command.
func addHistoryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("history", defaultDataDir(), "history directory")
	f.String("passphrase", "", "history encryption passphrase (empty = plaintext)")
}

// addOverlayFlags adds the overlay tuning flags to a command.
func addOverlayFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("edge-threshold", gesture.DefaultEdgeThreshold, "edge activation band, logical px")
	f.Float64("drag-threshold", gesture.DefaultDragThreshold, "anti-jitter displacement, logical px")
	f.Float64("bubble-size", overlay.DefaultBubbleSize, "bubble diameter, logical px")
	f.Float64("zone-thickness", zone.DefaultThickness, "action zone cross-axis size, logical px")
	f.Float64("slot-length", zone.DefaultSlotLength, "action slot length along the zone, logical px")
	f.Int("max-bubbles", overlay.DefaultMaxBubbles, "bubbles kept under memory pressure")
	f.Int("restore", overlay.DefaultRestore, "bubbles restored from history at start")
	f.String("separator", "\n", "separator used by APPEND captures")
	f.String("mode", "replace", "tap mode: replace|extend")
	f.Bool("no-overlay", false, "start without the overlay (capture and history only)")
	f.String("screen", "1920x1080", "logical screen size when running without a terminal UI")
	f.Int("max-history", 100, "history rows kept")
	f.Duration("history-ttl", 24*time.Hour, "purge history rows older than this at start (0 = never)")
	f.String("search-url", launch.DefaultSearchURL, "search URL template, %s is the query")
	f.String("map-url", launch.DefaultMapURL, "map search URL template, %s is the address")
}

// overlayConfig builds the orchestrator config from viper.
func overlayConfig(v *viper.Viper) (overlay.Config, error) {
	mode, err := overlay.ParseMode(v.GetString("mode"))
	if err != nil {
		return overlay.Config{}, err
	}
	screen, err := parseScreen(v.GetString("screen"))
	if err != nil {
		return overlay.Config{}, err
	}
	return overlay.Config{
		Screen:        screen,
		BubbleSize:    v.GetFloat64("bubble-size"),
		DragThreshold: v.GetFloat64("drag-threshold"),
		EdgeThreshold: v.GetFloat64("edge-threshold"),
		ZoneThickness: v.GetFloat64("zone-thickness"),
		SlotLength:    v.GetFloat64("slot-length"),
		MaxBubbles:    v.GetInt("max-bubbles"),
		Restore:       v.GetInt("restore"),
		Separator:     v.GetString("separator"),
		Mode:          mode,
		NoOverlay:     v.GetBool("no-overlay"),
	}, nil
}

func parseScreen(s string) (geom.Size, error) {
	var w, h float64
	if _, err := fmt.Sscanf(s, "%gx%g", &w, &h); err != nil || w <= 0 || h <= 0 {
		return geom.Size{}, fmt.Errorf("screen %q: want WxH", s)
	}
	return geom.Size{W: w, H: h}, nil
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "bubbleclip")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "bubbleclip")
	}
	return filepath.Join(os.TempDir(), "bubbleclip")
}
