// Ember-provider serves a small demo tree over the tree protocol.
//
// It is the counterpart to emberctl for local testing: a device with an
// identity block, an audio block with gain, mute and a meter, a matrix and
// a function.
//
// Usage:
//
//	ember-provider [flags]
//
// Examples:
//
//	# Serve on the default port
//	ember-provider
//
//	# Move the meter and announce the provider on the LAN
//	ember-provider --simulate --advertise --name "Studio A"
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/discovery"
	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/provider"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

var flags struct {
	address     string
	port        int
	logLevel    string
	protocolLog string
	advertise   bool
	name        string
	iface       string
	simulate    bool
	interval    time.Duration
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "ember-provider",
	Short:         "Demo tree-protocol provider",
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	f := rootCmd.Flags()
	f.StringVar(&flags.address, "address", "", "Listen address (default all interfaces)")
	f.IntVarP(&flags.port, "port", "p", discovery.DefaultPort, "Listen port")
	f.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error, none)")
	f.StringVar(&flags.protocolLog, "protocol-log", "", "Write a CBOR protocol log to this file")
	f.BoolVar(&flags.advertise, "advertise", false, "Announce the provider via mDNS")
	f.StringVar(&flags.name, "name", "Demo Mixer", "mDNS instance name")
	f.StringVar(&flags.iface, "interface", "", "Network interface for mDNS (default all)")
	f.BoolVar(&flags.simulate, "simulate", false, "Move the meter parameter")
	f.DurationVar(&flags.interval, "interval", 250*time.Millisecond, "Meter update interval")
}

func run(cmd *cobra.Command, _ []string) error {
	verbosity, err := log.ParseVerbosity(flags.logLevel)
	if err != nil {
		return err
	}
	logger := log.NewLogger(cmd.ErrOrStderr(), verbosity)

	var protocol log.Logger
	if flags.protocolLog != "" {
		fl, err := log.NewFileLogger(flags.protocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		protocol = fl
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree := provider.DemoTree()
	srv := provider.NewServer(provider.ServerConfig{
		Address:        net.JoinHostPort(flags.address, strconv.Itoa(flags.port)),
		Tree:           tree,
		Logger:         logger,
		ProtocolLogger: protocol,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()
	logger.Info("Provider listening", slog.String("address", srv.Addr().String()))

	if flags.advertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: flags.iface,
			TTL:       discovery.DefaultTTL,
			Logger:    logger,
		})
		err := adv.Advertise(ctx, discovery.ProviderInfo{
			Instance: flags.name,
			Port:     uint16(srv.Port()),
			Product:  "Demo Mixer",
			Version:  version,
			Root:     "Device",
		})
		if err != nil {
			return err
		}
		defer adv.Stop()
	}

	if flags.simulate {
		go provider.Simulate(ctx, tree, provider.DemoMeterPath, flags.interval, -60, 0, logger)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving demo tree on %s (Ctrl+C to stop)\n", srv.Addr())
	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}
