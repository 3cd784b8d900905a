// bubbleclip: floating clipboard bubbles with edge-drop actions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/bubbleclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "bubbleclip",
		Short: "Clipboard bubbles with edge-drop actions",
		Long: `bubbleclip keeps recent clipboard captures as floating bubbles. Drag a
bubble toward a screen edge to reveal actions for its content (open, call,
email, map, merge with the clipboard) and release over one to apply it.

Run "bubbleclip run" to start the overlay in this terminal. Use
"bubbleclip copy/status/trim/mark" as CLI tools against a running overlay.

Config file search order (first found wins):
  /etc/bubbleclip/bubbleclip.toml
  $HOME/.config/bubbleclip/bubbleclip.toml
  path supplied via --config

All flags can be set via BUBBLECLIP_<FLAG> env vars or config-file keys.
See "bubbleclip run --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newCopyCmd(),
		newStatusCmd(),
		newTrimCmd(),
		newMarkCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("bubbleclip %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
