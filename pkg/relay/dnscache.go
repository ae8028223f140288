package relay

import (
	"context"
	"net"
	"time"

	"github.com/rs/dnscache"
)

// dnsDialer resolves device host names through a cache refreshed in the
// background. IP literals are dialled directly.
type dnsDialer struct {
	resolver *dnscache.Resolver
	dialer   *net.Dialer
	stop     chan struct{}
}

func newDNSDialer(ttl time.Duration) *dnsDialer {
	d := &dnsDialer{
		resolver: &dnscache.Resolver{},
		dialer:   &net.Dialer{Timeout: DefaultTimeout, KeepAlive: 30 * time.Second},
		stop:     make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.resolver.Refresh(true)
			case <-d.stop:
				return
			}
		}
	}()
	return d
}

func (d *dnsDialer) Close() { close(d.stop) }

func (d *dnsDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) != nil {
		return d.dialer.DialContext(ctx, network, address)
	}
	ips, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, ip := range ips {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &net.DNSError{Err: "no addresses found", Name: host}
	}
	return nil, lastErr
}
