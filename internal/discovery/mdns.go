// ABOUTME: mDNS discovery for MediaRec executor daemons
// ABOUTME: Handles daemon advertisement and player-side browsing

package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const (
	serviceType = "_mediarec._tcp"
	domain      = "local"
)

// Config holds discovery configuration.
type Config struct {
	ServiceName string
	Port        int
}

// DaemonInfo describes a discovered executor daemon.
type DaemonInfo struct {
	Name string
	Host string
	Port int
}

// Manager handles mDNS operations.
type Manager struct {
	config  Config
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	daemons chan *DaemonInfo
}

// NewManager creates a discovery manager.
func NewManager(config Config, logger zerolog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     logger.With().Str("component", "discovery").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		daemons: make(chan *DaemonInfo, 10),
	}
}

// Advertise announces this executor daemon via mDNS.
func (m *Manager) Advertise() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		serviceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/mediarec"},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Info().Str("service", m.config.ServiceName).Int("port", m.config.Port).
		Msg("advertising executor daemon")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for executor daemons on the local network.
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for daemons.
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}

				daemon := &DaemonInfo{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}

				m.log.Info().Str("name", daemon.Name).Str("host", daemon.Host).
					Int("port", daemon.Port).Msg("discovered executor daemon")

				select {
				case m.daemons <- daemon:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: serviceType,
			Domain:  domain,
			Timeout: 3,
			Entries: entries,
		}

		mdns.Query(params)
		close(entries)
	}
}

// Daemons returns the channel of discovered daemons.
func (m *Manager) Daemons() <-chan *DaemonInfo {
	return m.daemons
}

// Stop stops the discovery manager.
func (m *Manager) Stop() {
	m.cancel()
}

// localIPs returns non-loopback IPv4 addresses.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
