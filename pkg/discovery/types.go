package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type providers register under.
	ServiceType = "_ember._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default provider port.
	DefaultPort = 9000
)

// TXT record keys.
const (
	TXTKeyProduct = "product" // Product name
	TXTKeyVersion = "version" // Provider software version
	TXTKeyRoot    = "root"    // Identifier of the top-level node
	TXTKeyTxtVers = "txtvers" // TXT record format version
)

// TXTVersion is the TXT record format written by Advertiser.
const TXTVersion = "1"

// Timing constants.
const (
	// BrowseTimeout is the default timeout for Browser.Browse.
	BrowseTimeout = 3 * time.Second

	// DefaultTTL is the record TTL used when none is configured.
	DefaultTTL = 120 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("not advertising")
)

// ProviderInfo is what a provider announces about itself.
type ProviderInfo struct {
	// Instance is the DNS-SD instance name, e.g. "Studio A Mixer".
	Instance string

	// Port the provider listens on. Zero means DefaultPort.
	Port uint16

	Product string
	Version string
	Root    string
}

// Provider is a provider found on the network. Addresses from every
// interface the provider answered on are merged into one entry.
type Provider struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string

	Product string
	Version string
	Root    string
}

// Endpoint returns the host and port to dial: the first known address, or
// the advertised host name when no address was resolved.
func (p *Provider) Endpoint() (string, uint16) {
	if len(p.Addresses) > 0 {
		return p.Addresses[0], p.Port
	}
	return p.Host, p.Port
}

// String returns "instance (host:port)".
func (p *Provider) String() string {
	host, port := p.Endpoint()
	return fmt.Sprintf("%s (%s)", p.Instance, net.JoinHostPort(host, strconv.Itoa(int(port))))
}
