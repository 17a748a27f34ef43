package discovery

import "errors"

// mDNS service constants.
const (
	// ServiceType is the service type gateway sessions announce under.
	ServiceType = "_opcda-gw._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is announced when the gateway has no listening port of
	// its own.
	DefaultPort = 7766

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	// TXTKeyServer is the OPC server program ID the session is bound to.
	TXTKeyServer = "sv"

	// TXTKeySession is the session GUID.
	TXTKeySession = "id"

	// TXTKeyVersion is the client version string (optional).
	TXTKeyVersion = "vn"
)

var (
	// ErrNotFound is returned when browsing ends without a match.
	ErrNotFound = errors.New("discovery: not found")

	// ErrMissingRequired is returned when an announcement lacks a
	// required TXT record.
	ErrMissingRequired = errors.New("discovery: missing required TXT record")
)

// GatewayInfo describes the local session being advertised.
type GatewayInfo struct {
	// InstanceName is the mDNS instance label. Truncated to the DNS
	// label limit when necessary.
	InstanceName string

	// Server is the OPC server program ID.
	Server string

	// SessionID is the session GUID.
	SessionID string

	// Version is the client version string. Optional.
	Version string

	// Port is the announced port. Zero means DefaultPort.
	Port uint16
}

// Gateway is a browsed gateway session.
type Gateway struct {
	InstanceName string
	Host         string
	Port         uint16

	// Addresses aggregates the IPv4 and IPv6 addresses seen across all
	// interfaces the announcement arrived on.
	Addresses []string

	Server    string
	SessionID string
	Version   string
}
