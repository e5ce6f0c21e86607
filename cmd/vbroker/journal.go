package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/vbroker/pkg/journal"
	"github.com/peter-kozarec/vbroker/pkg/utility/fixed"
)

func journalCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Summarize a trade journal written by backtest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			j := journal.NewJournal(dsn, zap.NewNop())
			if err := j.Open(cmd.Context()); err != nil {
				return err
			}
			defer j.Close()

			closed, err := j.ClosedPositions(cmd.Context())
			if err != nil {
				return err
			}
			reasons, err := j.CancelReasons(cmd.Context())
			if err != nil {
				return err
			}

			net := fixed.Zero
			for _, c := range closed {
				net = net.Add(c.NetProfit)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "closed positions: %d\n", len(closed))
			_, _ = fmt.Fprintf(out, "net profit: %s\n", net)

			keys := make([]string, 0, len(reasons))
			for reason := range reasons {
				keys = append(keys, reason)
			}
			sort.Strings(keys)
			for _, reason := range keys {
				_, _ = fmt.Fprintf(out, "cancelled (%s): %d\n", reason, reasons[reason])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "journal.duckdb", "DuckDB journal to read")
	return cmd
}
