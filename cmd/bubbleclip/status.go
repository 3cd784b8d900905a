package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/bubbleclip/internal/control"
	"go.klb.dev/bubbleclip/internal/ipc"
	"go.klb.dev/bubbleclip/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the bubbles of the running overlay",
		Long: `Lists every live bubble with its state, content type, position and a
content preview, plus the tap mode and whether the overlay is degraded.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	resp, err := control.Request(&message.Message{Type: message.TypeStatus})
	if err != nil {
		return err
	}
	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(enc))
		return nil
	}
	printStatus(os.Stdout, resp)
	return nil
}

func printStatus(out io.Writer, resp *message.Message) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Socket:\t%s\n", ipc.SocketPath())
	fmt.Fprintf(w, "Mode:\t%s\n", resp.Mode)
	overlayState := "on"
	if resp.Degraded {
		overlayState = "off (degraded)"
	}
	fmt.Fprintf(w, "Overlay:\t%s\n", overlayState)
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(resp.Bubbles) == 0 {
		fmt.Fprintln(out, "No bubbles.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tSTATE\tTYPE\tPIN\tPOS\tPREVIEW\n")
	_, _ = fmt.Fprintf(tw, "--\t-----\t----\t---\t---\t-------\n")
	for _, b := range resp.Bubbles {
		typ := b.Type
		if typ == "" {
			typ = "-"
		}
		pin := ""
		if b.Pinned {
			pin = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g,%g\t%s\n",
			b.ID, b.State, typ, pin, b.X, b.Y, b.Preview,
		)
	}
	_ = tw.Flush()
}
