package discovery

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

// BrowserConfig configures provider browsing.
type BrowserConfig struct {
	// BrowseTimeout bounds List.
	// Default: 3 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// Browser finds providers announcing ServiceType.
type Browser struct {
	config BrowserConfig
	logger *slog.Logger
}

// NewBrowser creates a new mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config, logger: log.OrDiscard(config.Logger)}
}

// Browse streams providers as they are found until ctx ends. Each instance
// is emitted once; addresses seen later on other interfaces are merged into
// the browser's view but not re-emitted.
func (b *Browser) Browse(ctx context.Context) (<-chan *Provider, error) {
	out := make(chan *Provider)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)
		agg := newAggregator()

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				p, isNew := agg.add(fromZeroconf(entry))
				if p == nil || !isNew {
					continue
				}
				b.logger.Debug("Provider found",
					slog.String("instance", p.Instance),
					slog.Any("addresses", p.Addresses))
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if agg.remove(fromZeroconf(entry)) {
					b.logger.Debug("Provider gone", slog.String("instance", entry.Instance))
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...); err != nil {
			b.logger.Warn("mDNS browse failed", slog.Any("error", err))
		}
	}()

	return out, nil
}

// List browses for BrowseTimeout (or until ctx ends) and returns every
// provider still present, sorted by instance name.
func (b *Browser) List(ctx context.Context) ([]*Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	agg := newAggregator()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				agg.add(fromZeroconf(entry))
			case entry, ok := <-removed:
				if !ok {
					continue
				}
				agg.remove(fromZeroconf(entry))
			case <-ctx.Done():
				return
			}
		}
	}()

	err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	<-done
	if err != nil && ctx.Err() == nil {
		return nil, err
	}
	return agg.list(), nil
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if ifaces := interfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	return opts
}

// serviceEntry is the part of a zeroconf answer the aggregator needs.
type serviceEntry struct {
	Instance  string
	Host      string
	Port      int
	Text      []string
	Addresses []string
}

func fromZeroconf(entry *zeroconf.ServiceEntry) serviceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return serviceEntry{
		Instance:  entry.Instance,
		Host:      entry.HostName,
		Port:      entry.Port,
		Text:      entry.Text,
		Addresses: addrs,
	}
}

// aggregator merges entries for the same instance seen on several
// interfaces and drops an instance once its last address is withdrawn.
type aggregator struct {
	providers map[string]*Provider
}

func newAggregator() *aggregator {
	return &aggregator{providers: make(map[string]*Provider)}
}

// add records entry and returns a snapshot of the provider, plus whether
// the instance was new. Entries with unusable TXT records are ignored.
func (g *aggregator) add(entry serviceEntry) (*Provider, bool) {
	p := entryToProvider(entry)
	if p == nil {
		return nil, false
	}
	if existing, found := g.providers[p.Instance]; found {
		existing.Addresses = mergeAddresses(existing.Addresses, p.Addresses)
		return existing.clone(), false
	}
	g.providers[p.Instance] = p
	return p.clone(), true
}

// remove withdraws entry's addresses and reports whether the instance
// disappeared as a result.
func (g *aggregator) remove(entry serviceEntry) bool {
	existing, found := g.providers[entry.Instance]
	if !found {
		return false
	}
	existing.Addresses = removeAddresses(existing.Addresses, entry.Addresses)
	if len(existing.Addresses) == 0 {
		delete(g.providers, entry.Instance)
		return true
	}
	return false
}

func (g *aggregator) list() []*Provider {
	out := make([]*Provider, 0, len(g.providers))
	for _, p := range g.providers {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

func (p *Provider) clone() *Provider {
	c := *p
	c.Addresses = slices.Clone(p.Addresses)
	return &c
}

// entryToProvider converts an entry, or returns nil when its TXT records
// cannot be decoded.
func entryToProvider(entry serviceEntry) *Provider {
	info, err := DecodeTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}
	return &Provider{
		Instance:  entry.Instance,
		Host:      entry.Host,
		Port:      uint16(entry.Port),
		Addresses: slices.Clone(entry.Addresses),
		Product:   info.Product,
		Version:   info.Version,
		Root:      info.Root,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses filters gone out of addresses.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
