package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"relaydash/pkg/auth"
)

func TestHealth(t *testing.T) {
	_, c := newTestServer(t)
	res := c.get("/api/health")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["ok"] != true || body["version"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, c := newTestServer(t)
	res := c.get("/metrics")
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "go_goroutines") {
		t.Fatalf("metrics: %d", res.Code)
	}
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	_, c := newTestServer(t)
	for _, path := range []string{
		"/",
		"/landing/192.168.1.10/relay/0",
		"/add",
		"/edit/192.168.1.10",
		"/api/get_device_state?ip=10.0.0.5",
		"/api/toggle_relay?ip=10.0.0.5&turn=on",
	} {
		expectRedirect(t, c.get(path), "/login")
	}
	expectRedirect(t, c.postForm("/add", url.Values{"device_ip": {"10.0.0.5"}}), "/login")
	expectRedirect(t, c.postForm("/edit/10.0.0.5", url.Values{"device_ip": {"10.0.0.6"}}), "/login")
}

func TestLoginRequiredNoticeShownOnce(t *testing.T) {
	_, c := newTestServer(t)
	c.get("/add")
	page := c.get("/login")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), loginRequiredNotice) {
		t.Fatalf("expected notice on login page, got %d", page.Code)
	}
	again := c.get("/login")
	if strings.Contains(again.Body.String(), loginRequiredNotice) {
		t.Fatalf("notice should be consumed after one render")
	}
}

func TestInvalidCredentials(t *testing.T) {
	_, c := newTestServer(t)
	for _, form := range []url.Values{
		{"username": {"admin"}, "password": {"wrong"}},
		{"username": {"ADMIN"}, "password": {"password123"}},
		{"username": {"admin"}, "password": {"Password123"}},
		{},
	} {
		expectRedirect(t, c.postForm("/login", form), "/login")
	}
	page := c.get("/login")
	if !strings.Contains(page.Body.String(), "Invalid credentials") {
		t.Fatalf("expected invalid credentials notice")
	}
	expectRedirect(t, c.get("/add"), "/login")
}

func TestLoginThenLanding(t *testing.T) {
	_, c := newTestServer(t)
	c.login()
	res := c.get("/landing/192.168.1.10/relay/0")
	if res.Code != http.StatusOK {
		t.Fatalf("landing: %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "192.168.1.10") {
		t.Fatalf("landing should show context")
	}
	expectRedirect(t, c.get("/"), "/landing/192.168.1.10/relay/0")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s, c := newTestServer(t)
	c.login()
	stolen := *c.cookies[auth.SessionCookieName]

	expectRedirect(t, c.get("/logout"), "/login")
	if _, ok := c.cookies[auth.SessionCookieName]; ok {
		t.Fatalf("logout should expire the cookie")
	}
	expectRedirect(t, c.get("/add"), "/login")

	req := httptest.NewRequest(http.MethodGet, "/add", nil)
	req.AddCookie(&stolen)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	expectRedirect(t, rr, "/login")
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	_, c := newTestServer(t)
	c.login()
	ck := c.cookies[auth.SessionCookieName]
	ck.Value = "AAAA" + ck.Value
	expectRedirect(t, c.get("/add"), "/login")
}

func TestLogoutWithoutSession(t *testing.T) {
	_, c := newTestServer(t)
	expectRedirect(t, c.get("/logout"), "/login")
}

func TestSessionRotatedOnLogin(t *testing.T) {
	_, c := newTestServer(t)
	c.login()
	first := c.cookies[auth.SessionCookieName].Value
	c.login()
	if c.cookies[auth.SessionCookieName].Value == first {
		t.Fatalf("session cookie should change on login")
	}
}

func TestNoticeCarriesOverLogin(t *testing.T) {
	_, c := newTestServer(t)
	c.get("/add")
	if _, ok := c.cookies[auth.FlashCookieName]; !ok {
		t.Fatalf("anonymous notice should travel in the flash cookie")
	}
	c.login()
	if _, ok := c.cookies[auth.FlashCookieName]; ok {
		t.Fatalf("flash cookie should be cleared once the notice moves to the session")
	}
	page := c.get("/landing/192.168.1.10/relay/0")
	if !strings.Contains(page.Body.String(), loginRequiredNotice) {
		t.Fatalf("pending notice should survive login")
	}
}

func TestAnonymousRequestsKeepNoServerState(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Router()
	for i := 0; i < 500; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/toggle_relay?ip=10.0.0.5&turn=on", nil))
		expectRedirect(t, rr, "/login")
		for _, ck := range rr.Result().Cookies() {
			if ck.Name == auth.SessionCookieName {
				t.Fatalf("anonymous request must not get a session cookie")
			}
		}
	}
	if n := s.sessions.Len(); n != 0 {
		t.Fatalf("want no stored sessions, got %d", n)
	}
}

func TestFailedLoginsStoreNoSession(t *testing.T) {
	s, c := newTestServer(t)
	for i := 0; i < 20; i++ {
		c.postForm("/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	}
	if n := s.sessions.Len(); n != 0 {
		t.Fatalf("want no stored sessions, got %d", n)
	}
	page := c.get("/login")
	if got := strings.Count(page.Body.String(), "Invalid credentials"); got != maxFlashes {
		t.Fatalf("want %d queued notices, got %d", maxFlashes, got)
	}
	c.login()
	if n := s.sessions.Len(); n != 1 {
		t.Fatalf("want one session after login, got %d", n)
	}
}
