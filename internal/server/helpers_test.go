package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"relaydash/internal/config"
	"relaydash/pkg/relay"
)

// client replays cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *client) {
	t.Helper()
	cfg := config.Defaults()
	cfg.DevicesPath = filepath.Join(t.TempDir(), "devices.json")
	cfg.SessionHashKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.DNSCacheTTL = 0
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	s := New(cfg, opts...)
	t.Cleanup(s.Close)
	return s, &client{t: t, h: s.Router(), cookies: map[string]*http.Cookie{}}
}

func withRelayTransport(rt http.RoundTripper) Option {
	return WithRelayClient(relay.New(relay.Options{Transport: rt}))
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rr
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) login() {
	c.t.Helper()
	rr := c.postForm("/login", url.Values{"username": {"admin"}, "password": {"password123"}})
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/landing/192.168.1.10/relay/0" {
		c.t.Fatalf("login failed: %d %s", rr.Code, rr.Header().Get("Location"))
	}
}

func expectRedirect(t *testing.T, rr *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}
