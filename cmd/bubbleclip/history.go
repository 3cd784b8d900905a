package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/bubbleclip/internal/actions"
	"go.klb.dev/bubbleclip/internal/history"
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or edit the capture history",
		Long: `Reads the history database directly; the overlay does not need to be
running. Rows sealed with another passphrase are skipped.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runHistory(cmd, v) },
	}

	f := cmd.Flags()
	f.Int("limit", 20, "rows to list")
	f.String("delete", "", "delete the row with this id")
	f.Bool("clear", false, "delete every row")
	addHistoryFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runHistory(cmd *cobra.Command, v *viper.Viper) error {
	ctx := cmd.Context()
	store, err := history.Open(v.GetString("history"), v.GetString("passphrase"))
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer store.Close()

	switch {
	case v.GetString("delete") != "":
		return store.Delete(ctx, v.GetString("delete"))
	case v.GetBool("clear"):
		n, err := store.Trim(ctx, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%d rows deleted\n", n)
		return nil
	}

	items, err := store.Recent(ctx, v.GetInt("limit"))
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	printHistory(os.Stdout, items, total)
	return nil
}

func printHistory(out io.Writer, items []history.Item, total int) {
	if len(items) == 0 {
		fmt.Fprintln(out, "History is empty.")
		return
	}
	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tTYPE\tCREATED\tPREVIEW\n")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			it.ID, it.Type, it.CreatedAt.Local().Format(time.DateTime), actions.Preview(it.Content, 48),
		)
	}
	_ = tw.Flush()
	if total > len(items) {
		fmt.Fprintf(out, "(%d of %d rows)\n", len(items), total)
	}
}
