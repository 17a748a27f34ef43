package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface selects one network interface by name. Empty means all
	// interfaces.
	Interface string

	// TTL is the DNS record TTL. Zero leaves the zeroconf default.
	TTL time.Duration
}

// Advertiser announces a gateway session over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser; nothing is announced until
// Advertise is called.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
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

// Advertise starts announcing the gateway. A previous announcement is
// replaced.
func (a *Advertiser) Advertise(info *GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instanceName := info.InstanceName
	if instanceName == "" {
		instanceName = fmt.Sprintf("openda-%s", info.SessionID)
	}
	if len(instanceName) > MaxInstanceNameLen {
		instanceName = instanceName[:MaxInstanceNameLen]
	}

	txtStrings := TXTRecordsToStrings(EncodeGatewayTXT(info))

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instanceName,
		ServiceType,
		Domain,
		port,
		txtStrings,
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register gateway service: %w", err)
	}

	a.server = server
	return nil
}

// Update replaces the TXT records of the current announcement.
func (a *Advertiser) Update(info *GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotFound
	}
	a.server.SetText(TXTRecordsToStrings(EncodeGatewayTXT(info)))
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

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface selects one network interface by name. Empty means all
	// interfaces.
	Interface string
}

// Browser finds gateway sessions on the local network.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// Browse emits gateways as they are found, until ctx is cancelled.
// Announcements from multiple interfaces are aggregated by instance name,
// so each gateway is emitted once with all of its addresses.
func (b *Browser) Browse(ctx context.Context) (<-chan *Gateway, error) {
	out := make(chan *Gateway)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		gateways := make(map[string]*Gateway)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				gw := entryToGateway(entry)
				if gw == nil {
					continue
				}

				existing, found := gateways[gw.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, gw.Addresses)
					continue
				}
				gateways[gw.InstanceName] = gw
				select {
				case out <- gw:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := gateways[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(gateways, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()

	return out, nil
}

// FindBySession browses until the gateway with the given session GUID
// appears, the browse ends, or ctx expires.
func (b *Browser) FindBySession(ctx context.Context, sessionID string) (*Gateway, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case gw, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if gw.SessionID == sessionID {
				return gw, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// entryToGateway converts a zeroconf entry; malformed announcements are
// dropped.
func entryToGateway(entry *zeroconf.ServiceEntry) *Gateway {
	info, err := DecodeGatewayTXT(StringsToTXTRecords(entry.Text))
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

	return &Gateway{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Server:       info.Server,
		SessionID:    info.SessionID,
		Version:      info.Version,
	}
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range incoming {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses announced by a withdrawn entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
