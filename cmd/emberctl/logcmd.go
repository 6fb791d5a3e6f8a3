package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/cmd/emberctl/logview"
)

var (
	logOpts   logview.Options
	logFormat string
	logOutput string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect protocol capture files",
	Long: `Inspect protocol capture files written with --protocol-log or the
log.protocolFile config key.`,
}

var logViewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Print events in human-readable form",
	Example: `  emberctl log view session.elog
  emberctl log view --layer wire --direction out session.elog
  emberctl log view --path 0.1 session.elog`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logview.RunView(args[0], logOpts, cmd.OutOrStdout())
	},
}

var logExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export events as jsonl or csv",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logview.RunExport(args[0], logFormat, logOutput, logOpts, cmd.OutOrStdout())
	},
}

var logFilterCmd = &cobra.Command{
	Use:   "filter <file>",
	Short: "Copy matching events into a new capture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if logOutput == "" {
			return fmt.Errorf("output file (-f) required")
		}
		n, err := logview.RunFilter(args[0], logOutput, logOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, logOutput)
		return nil
	},
}

var logStatsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Show statistics about a capture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logview.RunStats(args[0], cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{logViewCmd, logExportCmd, logFilterCmd} {
		f := c.Flags()
		f.StringVar(&logOpts.ConnID, "conn-id", "", "Filter by connection ID")
		f.StringVar(&logOpts.Layer, "layer", "", "Filter by layer (transport, wire, session)")
		f.StringVar(&logOpts.Direction, "direction", "", "Filter by direction (in, out)")
		f.StringVar(&logOpts.Category, "category", "", "Filter by category (message, control, state, error)")
		f.StringVar(&logOpts.Role, "role", "", "Filter by role (consumer, provider)")
		f.StringVar(&logOpts.PathPrefix, "path", "", "Filter messages by path prefix")
		f.StringVar(&logOpts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
		f.StringVar(&logOpts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	}
	logExportCmd.Flags().StringVar(&logFormat, "format", "jsonl", "Output format (jsonl, csv)")
	logExportCmd.Flags().StringVarP(&logOutput, "file", "f", "", "Output file (default stdout)")
	logFilterCmd.Flags().StringVarP(&logOutput, "file", "f", "", "Output file (required)")

	logCmd.AddCommand(logViewCmd, logExportCmd, logFilterCmd, logStatsCmd)
}
