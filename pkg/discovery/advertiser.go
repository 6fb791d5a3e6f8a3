package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

// AdvertiserConfig configures mDNS advertising.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

// Advertiser registers a single provider instance under ServiceType.
type Advertiser struct {
	config AdvertiserConfig
	logger *slog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
	info   ProviderInfo
}

// NewAdvertiser creates a new mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{
		config: config,
		logger: log.OrDiscard(config.Logger),
	}
}

// Advertise starts announcing info, replacing any previous announcement.
func (a *Advertiser) Advertise(ctx context.Context, info ProviderInfo) error {
	if err := ValidateInstanceName(info.Instance); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.Instance,
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(EncodeTXT(&info)),
		interfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}

	a.server = server
	a.info = info
	a.logger.Info("Advertising provider",
		slog.String("instance", info.Instance),
		slog.Int("port", port))
	return nil
}

// Update replaces the TXT records of the running announcement.
func (a *Advertiser) Update(info ProviderInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	info.Instance = a.info.Instance
	info.Port = a.info.Port
	a.server.SetText(TXTRecordsToStrings(EncodeTXT(&info)))
	a.info = info
	return nil
}

// Advertising reports whether an announcement is active.
func (a *Advertiser) Advertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Stop withdraws the announcement. Stopping twice is a no-op.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info("Stopped advertising", slog.String("instance", a.info.Instance))
}

// interfaces returns the named interface, or nil for all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
