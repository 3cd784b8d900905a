package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/bubbleclip/internal/control"
	"go.klb.dev/bubbleclip/internal/message"
)

func newTrimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trim",
		Short: "Signal memory pressure to the running overlay",
		Long: `Evicts the oldest bubbles beyond --max-bubbles that are neither pinned
nor being dragged. Their content is saved to history first.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := control.Request(&message.Message{Type: message.TypeTrim}); err != nil {
				return err
			}
			fmt.Println("trim requested")
			return nil
		},
	}
}
