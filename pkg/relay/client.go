// Package relay talks to a relay device's local HTTP API:
//
//	GET http://{ip}/relay/0            current state as JSON
//	GET http://{ip}/relay/0?turn=on    switch channel 0
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"relaydash/internal/observability"
)

// DefaultTimeout bounds every device call.
const DefaultTimeout = 5 * time.Second

const statePath = "/relay/0"

const maxStateBody = 1 << 20

type Options struct {
	Timeout     time.Duration
	DNSCacheTTL time.Duration // 0 disables the caching resolver
	Transport   http.RoundTripper
}

type Client struct {
	HTTP *http.Client
	dns  *dnsDialer
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Client{}
	rt := opts.Transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if opts.DNSCacheTTL > 0 {
			c.dns = newDNSDialer(opts.DNSCacheTTL)
			tr.DialContext = c.dns.DialContext
		}
		rt = tr
	}
	c.HTTP = &http.Client{Timeout: opts.Timeout, Transport: rt}
	return c
}

// Close stops the DNS cache refresher, if any.
func (c *Client) Close() {
	if c.dns != nil {
		c.dns.Close()
	}
}

// StateURL returns the device state endpoint for ip.
func StateURL(ip string) string {
	return (&url.URL{Scheme: "http", Host: ip, Path: statePath}).String()
}

// ToggleURL returns the switch endpoint for ip. turn is passed through as given.
func ToggleURL(ip, turn string) string {
	u := url.URL{Scheme: "http", Host: ip, Path: statePath, RawQuery: url.Values{"turn": {turn}}.Encode()}
	return u.String()
}

// State fetches the device state and returns the JSON body as sent by the
// device. The HTTP status is not inspected; a body that is not JSON is an error.
func (c *Client) State(ctx context.Context, ip string) (json.RawMessage, error) {
	start := time.Now()
	body, err := c.state(ctx, ip)
	observability.ObserveRelay("state", err, start)
	return body, err
}

func (c *Client) state(ctx context.Context, ip string) (json.RawMessage, error) {
	res, err := c.get(ctx, StateURL(ip))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, maxStateBody+1))
	if err != nil {
		return nil, fmt.Errorf("read relay state from %s: %w", ip, err)
	}
	if len(b) > maxStateBody {
		return nil, fmt.Errorf("relay state from %s exceeds %d bytes", ip, maxStateBody)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("relay state from %s is not valid JSON", ip)
	}
	return json.RawMessage(b), nil
}

// Toggle asks the device to switch channel 0. Any response counts as success;
// only transport failures are reported.
func (c *Client) Toggle(ctx context.Context, ip, turn string) error {
	start := time.Now()
	res, err := c.get(ctx, ToggleURL(ip, turn))
	if err == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
	observability.ObserveRelay("toggle", err, start)
	return err
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.HTTP.Do(req)
}
