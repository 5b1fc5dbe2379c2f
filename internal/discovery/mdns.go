package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/garagectl/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type advertised by door controllers
	ServiceType = "_garagedoor._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 80
)

// TXT record keys understood in advertisements
const (
	TxtScheme  = "scheme"  // http or https
	TxtPath    = "path"    // Base path of the API, e.g. /garage
	TxtVersion = "version" // Controller software version
	TxtDoor    = "door"    // Human-readable door name
)

// Browser abstracts the zeroconf resolver so scans can be tested.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// NewBrowser creates the resolver; nil uses zeroconf
	NewBrowser func() (Browser, error)
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan discovers door controllers until the timeout or ctx ends. Duplicate
// advertisements of the same instance are collapsed.
func (s *Scanner) Scan(ctx context.Context) ([]*Device, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browser, err := s.browser()
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)

	var (
		mu      sync.Mutex
		devices []*Device
		seen    = make(map[string]bool)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				device := parseServiceEntry(entry)
				if device == nil {
					continue
				}
				mu.Lock()
				if !seen[device.Instance] {
					seen[device.Instance] = true
					devices = append(devices, device)
					logging.Debug("Discovered door controller",
						zap.String("instance", device.Instance),
						zap.String("endpoint", device.Endpoint()),
					)
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := browser.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (s *Scanner) browser() (Browser, error) {
	if s.NewBrowser != nil {
		return s.NewBrowser()
	}
	return zeroconf.NewResolver(nil)
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	instance := entry.Instance
	if instance == "" {
		instance = entry.HostName
	}

	return &Device{
		Instance:     instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement describes a controller to publish on the LAN.
type Advertisement struct {
	Instance string // mDNS instance name
	Port     int
	Path     string // API base path, may be empty
	Door     string // Human-readable name
	Version  string
}

// Advertiser publishes a controller until Shutdown is called.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the service on all interfaces.
func Advertise(ad Advertisement) (*Advertiser, error) {
	txt := []string{TxtScheme + "=http"}
	if ad.Path != "" {
		txt = append(txt, TxtPath+"="+ad.Path)
	}
	if ad.Door != "" {
		txt = append(txt, TxtDoor+"="+ad.Door)
	}
	if ad.Version != "" {
		txt = append(txt, TxtVersion+"="+ad.Version)
	}

	server, err := zeroconf.Register(ad.Instance, ServiceType, ServiceDomain, ad.Port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising door controller",
		zap.String("instance", ad.Instance),
		zap.Int("port", ad.Port),
		zap.Strings("txt", txt),
	)
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
