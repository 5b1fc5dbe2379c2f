package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Device represents a discovered door controller on the network
type Device struct {
	// Instance is the mDNS instance name (e.g., "Garage")
	Instance string

	// Hostname is the mDNS hostname (e.g., "garage-pi.local.")
	Hostname string

	// IP is the address, IPv4 when available
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the TXT record data (scheme, path, door, version)
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.Instance
	if door := d.GetMetadata(TxtDoor); door != "" {
		name = fmt.Sprintf("%s (%s)", d.Instance, door)
	}
	return fmt.Sprintf("%s at %s", name, d.Endpoint())
}

// Endpoint returns the API base URL suitable for the credential store.
func (d *Device) Endpoint() string {
	scheme := d.GetMetadata(TxtScheme)
	if scheme != "http" && scheme != "https" {
		scheme = "http"
	}
	host := net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
	path := strings.TrimRight(d.GetMetadata(TxtPath), "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + host + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
