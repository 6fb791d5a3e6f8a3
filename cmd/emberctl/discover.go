package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/discovery"
)

var discoverFlags struct {
	timeout time.Duration
	iface   string
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find providers on the local network",
	Long: `Browse mDNS for providers announcing _ember._tcp and list them with
their addresses and TXT metadata.`,
	Example: `  emberctl discover
  emberctl discover --timeout 10s --interface en0`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverFlags.timeout, "timeout", discovery.BrowseTimeout, "How long to listen")
	discoverCmd.Flags().StringVar(&discoverFlags.iface, "interface", "", "Network interface (default all)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	b := discovery.NewBrowser(discovery.BrowserConfig{
		BrowseTimeout: discoverFlags.timeout,
		Interface:     discoverFlags.iface,
	})
	providers, err := b.List(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if globals.output == "json" {
		a := &app{out: out}
		return a.print(providers, "")
	}

	if len(providers) == 0 {
		fmt.Fprintln(out, "No providers found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d provider(s):\n\n", len(providers))
	for _, p := range providers {
		fmt.Fprintf(out, "  %s\n", p.Instance)
		fmt.Fprintf(out, "      Host: %s port %d\n", p.Host, p.Port)
		if len(p.Addresses) > 0 {
			fmt.Fprintf(out, "      Addresses: %s\n", strings.Join(p.Addresses, ", "))
		}
		if p.Product != "" {
			fmt.Fprintf(out, "      Product: %s %s\n", p.Product, p.Version)
		}
		if p.Root != "" {
			fmt.Fprintf(out, "      Root: %s\n", p.Root)
		}
	}
	return nil
}
