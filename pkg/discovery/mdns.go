package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"

	"github.com/corvo-protocol/corvo-go/pkg/version"
)

// AdvertiserConfig configures broker advertising.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL is the record time to live. Zero uses the zeroconf default.
	TTL uint32
}

// Advertiser announces a broker endpoint over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts announcing the broker. A second call replaces the
// previous announcement.
func (a *Advertiser) Advertise(info *BrokerInfo) error {
	if err := ValidateInstanceName(info.InstanceName); err != nil {
		return err
	}
	if info.Port == 0 {
		return fmt.Errorf("broker port is required")
	}

	if info.Version == "" {
		info.Version = version.Current
	}
	txtStrings := TXTRecordsToStrings(EncodeBrokerTXT(info))

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(a.config.TTL))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceType,
		Domain,
		int(info.Port),
		txtStrings,
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register broker service: %w", err)
	}

	a.server = server
	return nil
}

// Stop withdraws the announcement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// BrowserConfig configures broker browsing.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	// Empty means all interfaces.
	Interface string
}

// Browser searches for advertised brokers.
type Browser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewBrowser creates an mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse searches for brokers until the context ends. Announcements
// from multiple interfaces are aggregated per instance name, so each
// broker is emitted once with the union of its addresses.
func (b *Browser) Browse(ctx context.Context) (<-chan *BrokerInfo, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrBrowserStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *BrokerInfo)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		brokers := make(map[string]*BrokerInfo)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				info := entryToBroker(entry)
				if info == nil {
					continue
				}

				existing, found := brokers[info.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, info.Addresses)
					continue
				}

				brokers[info.InstanceName] = info
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(brokers, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// FindByNodeID searches for a specific broker. Returns ErrNotFound
// when the context ends first.
func (b *Browser) FindByNodeID(ctx context.Context, nodeID int32) (*BrokerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, BrowseTimeout)
	defer cancel()

	brokers, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case info, ok := <-brokers:
			if !ok {
				return nil, ErrNotFound
			}
			if info.NodeID == nodeID {
				return info, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

// Stop cancels all active browse operations.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryToBroker(entry *zeroconf.ServiceEntry) *BrokerInfo {
	info, err := DecodeBrokerTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	info.InstanceName = entry.Instance
	info.Host = entry.HostName
	info.Port = uint16(entry.Port)
	info.Addresses = addrs
	return info
}

func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range incoming {
		if !seen[a] {
			existing = append(existing, a)
			seen[a] = true
		}
	}
	return existing
}
