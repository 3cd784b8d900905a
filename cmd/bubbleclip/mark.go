package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"go.klb.dev/bubbleclip/internal/control"
	"go.klb.dev/bubbleclip/internal/message"
)

var markers = []message.Marker{
	message.MarkReplace,
	message.MarkAppend,
	message.MarkClear,
	message.MarkPin,
	message.MarkUnpin,
}

func newMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <bubble-id> <replace|append|clear|pin|unpin>",
		Short: "Mark a bubble of the running overlay",
		Long: `replace and append make the next clipboard capture replace or extend the
bubble's content; clear drops the marker. pin protects the bubble from
memory-pressure eviction. The bubble id may be any unique prefix of the id
shown by "bubbleclip status".`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := parseMarker(args[1])
			if err != nil {
				return err
			}
			_, err = control.Request(&message.Message{
				Type:   message.TypeMark,
				Bubble: args[0],
				Marker: m,
			})
			return err
		},
	}
}

func parseMarker(s string) (message.Marker, error) {
	for _, m := range markers {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown marker %q (want replace, append, clear, pin or unpin)", s)
}
