package authgate

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kriviai/chat-web/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

// authServerConfig drives the fake auth service shared by the tests.
type authServerConfig struct {
	checkStatus  int
	checkBody    string
	refreshOK    bool
	refreshCooks []string
	logoutCooks  []string
	logoutStatus int
}

func newAuthServer(t *testing.T, cfg authServerConfig) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/check", func(w http.ResponseWriter, r *http.Request) {
		status := cfg.checkStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(cfg.checkBody))
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range cfg.refreshCooks {
			w.Header().Add("Set-Cookie", c)
		}
		if cfg.refreshOK {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range cfg.logoutCooks {
			w.Header().Add("Set-Cookie", c)
		}
		status := cfg.logoutStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	})
	return httptest.NewServer(mux)
}

func newGate(srv *httptest.Server) *Service {
	return NewService(Options{
		CheckURL:   srv.URL + "/auth/check",
		RefreshURL: srv.URL + "/auth/refresh",
		LogoutURL:  srv.URL + "/auth/logout",
	}, srv.Client(), testLogger())
}

func testContext(target, cookie string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != "" {
		c.Request.Header.Set("Cookie", cookie)
	}
	return c, w
}

func TestRequireUserAuthenticated(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody: `{"status":"authenticated","user":{"id":"u1","email":"u1@example.com"}}`,
	})
	defer srv.Close()

	c, w := testContext("/chat/abc", "session=tok")
	user, ok := newGate(srv).RequireUser(c, "/login")
	if !ok {
		t.Fatal("expected the request to proceed")
	}
	if string(user) != `{"id":"u1","email":"u1@example.com"}` {
		t.Errorf("unexpected user payload: %s", user)
	}
	if w.Code == http.StatusFound {
		t.Error("no redirect expected for an authenticated request")
	}
}

func TestRequireUserAuthenticatedWithoutUserPayload(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: `{"status":"authenticated"}`})
	defer srv.Close()

	c, _ := testContext("/", "session=tok")
	user, ok := newGate(srv).RequireUser(c, "/login")
	if !ok {
		t.Fatal("expected the request to proceed")
	}
	if len(user) == 0 {
		t.Error("expected a fallback user payload")
	}
}

func TestRequireUserRefreshSuccessSelfRedirects(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody:    `{"status":"refresh_required","reason":"token_expired"}`,
		refreshOK:    true,
		refreshCooks: []string{"access=new; Path=/", "refresh=new2; Path=/; HttpOnly"},
	})
	defer srv.Close()

	c, w := testContext("/chat/abc?x=1", "session=old")
	_, ok := newGate(srv).RequireUser(c, "/login")
	if ok {
		t.Fatal("a refresh round-trip must not proceed directly")
	}

	// Renewed credentials ride a redirect back to the original URL.
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/chat/abc?x=1" {
		t.Errorf("expected self-redirect to the original URL, got %q", loc)
	}
	cookies := w.Header().Values("Set-Cookie")
	if len(cookies) != 2 {
		t.Fatalf("expected both credential headers relayed, got %v", cookies)
	}
	if cookies[0] != "access=new; Path=/" {
		t.Errorf("unexpected first credential header %q", cookies[0])
	}
}

func TestRequireUserRefreshFailureRedirectsToLogin(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody:    `{"status":"refresh_required"}`,
		refreshOK:    false,
		refreshCooks: []string{"access=; Max-Age=0"},
	})
	defer srv.Close()

	c, w := testContext("/chat/abc", "session=old")
	_, ok := newGate(srv).RequireUser(c, "/login")
	if ok {
		t.Fatal("expected redirect on failed refresh")
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to login, got %q", loc)
	}
	// Clearing headers from the failed attempt still reach the browser.
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) != 1 || cookies[0] != "access=; Max-Age=0" {
		t.Errorf("expected the clearing header relayed, got %v", cookies)
	}
}

func TestRequireUserLoginRequired(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: `{"status":"login_required","reason":"no_token"}`})
	defer srv.Close()

	c, w := testContext("/", "")
	if _, ok := newGate(srv).RequireUser(c, "/login"); ok {
		t.Fatal("expected redirect for login_required")
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to login, got %q", loc)
	}
}

func TestRequireUserUnknownStatusFailsClosed(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: `{"status":"something_new"}`})
	defer srv.Close()

	c, w := testContext("/", "session=tok")
	if _, ok := newGate(srv).RequireUser(c, "/login"); ok {
		t.Fatal("an unknown status must fail closed")
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to login, got %q", loc)
	}
}

func TestCheckFailsClosedOnNetworkError(t *testing.T) {
	gate := NewService(Options{
		CheckURL: "http://127.0.0.1:1/auth/check",
	}, &http.Client{}, testLogger())

	d := gate.Check(context.Background(), "session=tok")
	if d.Status != StatusLoginRequired {
		t.Errorf("expected login_required on network failure, got %s", d.Status)
	}
	if d.Reason != "network_error" {
		t.Errorf("expected reason network_error, got %q", d.Reason)
	}
}

func TestCheckFailsClosedOnServiceError(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkStatus: http.StatusBadGateway, checkBody: "oops"})
	defer srv.Close()

	d := newGate(srv).Check(context.Background(), "session=tok")
	if d.Status != StatusLoginRequired || d.Reason != "auth_service_error" {
		t.Errorf("expected fail-closed decision, got %+v", d)
	}
}

func TestCheckFailsClosedOnBadPayload(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: "not json"})
	defer srv.Close()

	d := newGate(srv).Check(context.Background(), "session=tok")
	if d.Status != StatusLoginRequired || d.Reason != "bad_check_payload" {
		t.Errorf("expected fail-closed decision, got %+v", d)
	}
}

func TestPreventAuthenticatedUserRedirects(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: `{"status":"authenticated"}`})
	defer srv.Close()

	c, w := testContext("/login", "session=tok")
	if !newGate(srv).PreventAuthenticatedUser(c, "/") {
		t.Fatal("expected an authenticated user to be redirected away from login")
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestPreventAuthenticatedUserRefreshSuccess(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody:    `{"status":"refresh_required"}`,
		refreshOK:    true,
		refreshCooks: []string{"access=new"},
	})
	defer srv.Close()

	c, w := testContext("/login", "session=old")
	if !newGate(srv).PreventAuthenticatedUser(c, "/") {
		t.Fatal("expected redirect after successful refresh")
	}
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) != 1 || cookies[0] != "access=new" {
		t.Errorf("expected renewed credentials on the redirect, got %v", cookies)
	}
}

func TestPreventAuthenticatedUserRendersOnLoginRequired(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{checkBody: `{"status":"login_required"}`})
	defer srv.Close()

	c, _ := testContext("/login", "")
	if newGate(srv).PreventAuthenticatedUser(c, "/") {
		t.Fatal("login_required must render the login view, not redirect")
	}
}

func TestPreventAuthenticatedUserRendersOnFailedRefresh(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody: `{"status":"refresh_required"}`,
		refreshOK: false,
	})
	defer srv.Close()

	c, _ := testContext("/login", "session=old")
	if newGate(srv).PreventAuthenticatedUser(c, "/") {
		t.Fatal("a failed refresh must render the login view")
	}
}

func TestLogoutAndRedirectRelaysClearingHeaders(t *testing.T) {
	srv := newAuthServer(t, authServerConfig{
		checkBody:   `{"status":"authenticated"}`,
		logoutCooks: []string{"access=; Max-Age=0", "refresh=; Max-Age=0"},
	})
	defer srv.Close()

	c, w := testContext("/logout", "session=tok")
	newGate(srv).LogoutAndRedirect(c, "/login")

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected redirect to login, got %q", loc)
	}
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) != 2 {
		t.Errorf("expected both clearing headers relayed, got %v", cookies)
	}
}

func TestLogoutAndRedirectOnServiceFailure(t *testing.T) {
	gate := NewService(Options{
		LogoutURL: "http://127.0.0.1:1/auth/logout",
	}, &http.Client{}, testLogger())

	c, w := testContext("/logout", "session=tok")
	gate.LogoutAndRedirect(c, "/login")

	if loc := w.Header().Get("Location"); loc != "/login?logoutError=true" {
		t.Errorf("expected logout-error redirect, got %q", loc)
	}
}
