package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vbroker",
		Short:         "Bar driven virtual broker",
		Long:          `vbroker replays OHLC bars through a simulated broker and reports account performance.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(backtestCmd())
	root.AddCommand(journalCmd())
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "vbroker version %s\n", version)
		},
	}
}
