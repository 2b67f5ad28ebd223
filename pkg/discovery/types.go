package discovery

import (
	"errors"
	"time"
)

// mDNS service constants.
const (
	// ServiceType is the mDNS service type for broker endpoints.
	ServiceType = "_corvo._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	// TXTKeyNodeID is the numeric broker node id.
	TXTKeyNodeID = "NI"

	// TXTKeyVersion is the protocol version ("major.minor").
	TXTKeyVersion = "V"

	// TXTKeyCluster is the cluster name (optional).
	TXTKeyCluster = "CL"
)

// Discovery errors.
var (
	ErrNotFound       = errors.New("broker not found")
	ErrInvalidTXT     = errors.New("invalid TXT record")
	ErrBrowserStopped = errors.New("browser stopped")
)

// BrokerInfo describes an advertised broker endpoint.
type BrokerInfo struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname.
	Host string

	// Port is the broker listen port.
	Port uint16

	// Addresses holds the resolved IP addresses as strings.
	Addresses []string

	// NodeID is the numeric broker node id, -1 when not advertised.
	NodeID int32

	// Version is the advertised protocol version.
	Version string

	// Cluster is the cluster name, empty when not advertised.
	Cluster string
}
