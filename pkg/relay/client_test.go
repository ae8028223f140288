package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingTransport struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.urls = append(t.urls, req.URL.String())
	t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       http.NoBody,
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestURLs(t *testing.T) {
	if got := StateURL("10.0.0.5"); got != "http://10.0.0.5/relay/0" {
		t.Fatalf("state url %s", got)
	}
	if got := ToggleURL("10.0.0.5", "on"); got != "http://10.0.0.5/relay/0?turn=on" {
		t.Fatalf("toggle url %s", got)
	}
	if got := ToggleURL("10.0.0.5", "a b&c"); got != "http://10.0.0.5/relay/0?turn=a+b%26c" {
		t.Fatalf("toggle url escaping %s", got)
	}
}

func TestStateReturnsBodyVerbatim(t *testing.T) {
	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/relay/0" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ison": true, "source": "http"}`))
	}))
	defer dev.Close()

	c := New(Options{})
	defer c.Close()
	body, err := c.State(context.Background(), hostOf(dev))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ison": true, "source": "http"}` {
		t.Fatalf("body changed: %s", body)
	}
}

func TestStateNonJSONIsError(t *testing.T) {
	for _, body := range []string{
		`<html>nope</html>`,
		`{"ison": true} <html>oops</html>`,
		`{"ison": true}{"ison": false}`,
		`{"ison": `,
		``,
	} {
		dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		got, err := New(Options{}).State(context.Background(), hostOf(dev))
		dev.Close()
		if err == nil {
			t.Fatalf("%q: expected error, got %s", body, got)
		}
	}
}

func TestStateOversizedBodyIsError(t *testing.T) {
	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"` + strings.Repeat("a", maxStateBody) + `"`))
	}))
	defer dev.Close()
	if _, err := New(Options{}).State(context.Background(), hostOf(dev)); err == nil {
		t.Fatal("expected size error")
	}
}

func TestStateTimeout(t *testing.T) {
	release := make(chan struct{})
	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer dev.Close()
	defer close(release)

	c := New(Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	if _, err := c.State(context.Background(), hostOf(dev)); err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestToggleIssuesOneGet(t *testing.T) {
	rt := &recordingTransport{}
	c := New(Options{Transport: rt})
	if err := c.Toggle(context.Background(), "10.0.0.5", "on"); err != nil {
		t.Fatal(err)
	}
	if len(rt.urls) != 1 || rt.urls[0] != "http://10.0.0.5/relay/0?turn=on" {
		t.Fatalf("unexpected requests: %v", rt.urls)
	}
}

func TestToggleIgnoresUpstreamStatus(t *testing.T) {
	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad turn", http.StatusBadRequest)
	}))
	defer dev.Close()
	if err := New(Options{}).Toggle(context.Background(), hostOf(dev), "sideways"); err != nil {
		t.Fatalf("upstream status should not be an error: %v", err)
	}
}

func TestToggleTransportError(t *testing.T) {
	rt := &recordingTransport{err: errors.New("connection refused")}
	err := New(Options{Transport: rt}).Toggle(context.Background(), "10.0.0.5", "off")
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestDNSCacheDialerReachesDevice(t *testing.T) {
	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ison": false}`))
	}))
	defer dev.Close()
	c := New(Options{DNSCacheTTL: time.Minute})
	defer c.Close()
	host := strings.Replace(hostOf(dev), "127.0.0.1", "localhost", 1)
	body, err := c.State(context.Background(), host)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ison": false}` {
		t.Fatalf("body %s", body)
	}
}
