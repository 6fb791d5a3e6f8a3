// Emberctl is a command-line consumer for tree-protocol providers.
//
// It browses the node tree, reads and writes parameters, follows value
// changes and keeps watches alive across connection loss.
//
// Usage:
//
//	emberctl [command] [flags]
//
// Examples:
//
//	# List the root of a provider
//	emberctl browse --host 10.0.0.5
//
//	# Read a parameter by identifier path
//	emberctl get Device.Audio.Gain --host 10.0.0.5
//
//	# Write a number
//	emberctl set 0.1.2 -6 --type number --host 10.0.0.5
//
//	# Follow two meters, reconnecting on loss, as JSON lines
//	emberctl watch 0.1.3 0.2.3 --previous --host 10.0.0.5
//
//	# Find providers on the LAN
//	emberctl discover
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "emberctl",
	Short: "Tree protocol consumer",
	Long: `A command-line consumer for tree-protocol providers.

Paths use numeric ("0.1.2"), identifier ("Device.Audio.Gain") or mixed
("0.Audio.2") notation. Settings come from --config, then EMBER_LOG_LEVEL
and EMBER_DEV_MODE, then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.configFile, "config", "", "YAML config file")
	pf.StringVar(&globals.host, "host", "", "Provider host")
	pf.IntVar(&globals.port, "port", 9000, "Provider port")
	pf.StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	pf.StringVar(&globals.protocolLog, "protocol-log", "", "Capture protocol events to this file")
	pf.DurationVar(&globals.timeout, "timeout", 0, "Per-operation timeout (default from config)")
	pf.StringVarP(&globals.output, "output", "o", "text", "Output format: text, json")

	rootCmd.AddCommand(browseCmd, getCmd, setCmd, subscribeCmd, watchCmd,
		discoverCmd, shellCmd, runCmd, logCmd)
}

// exitCode maps failures to process exit codes: 2 for invalid input,
// 3 for connection-level failures, 1 otherwise.
func exitCode(err error) int {
	var cerr *consumer.Error
	if !errors.As(err, &cerr) {
		return 1
	}
	switch {
	case cerr.Kind.IsConnectionLevel():
		return 3
	case cerr.Kind == consumer.KindInvalidPath || cerr.Kind == consumer.KindInvalidValue:
		return 2
	default:
		return 1
	}
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var cerr *consumer.Error
	if errors.As(err, &cerr) {
		if hint := cerr.Hint(); hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", hint)
		}
	}
}
