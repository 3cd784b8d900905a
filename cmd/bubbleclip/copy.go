package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/bubbleclip/internal/control"
	"go.klb.dev/bubbleclip/internal/message"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy [text...]",
		Short: "Capture text into the running overlay (like pbcopy)",
		Long: `Sends its arguments, or stdin when there are none, to the running
overlay as a capture. The text is routed exactly like a clipboard change
(marked bubbles, then the first empty bubble, then a new bubble) and is
placed on the system clipboard.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runCopy(v, args) },
	}

	cmd.Flags().String("source", defaultSource(), "source identifier shown in logs")
	addConfigFlag(cmd)

	return cmd
}

func runCopy(v *viper.Viper, args []string) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := control.Request(message.NewCapture(v.GetString("source"), text))
	return err
}

// defaultSource returns a human-readable identifier for this host.
func defaultSource() string {
	if s := os.Getenv("BUBBLECLIP_SOURCE"); s != "" {
		return s
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
