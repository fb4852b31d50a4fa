package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/core/settings"
	"github.com/glasscore/glasscore/pkg/gateway/config"
)

func newTestServer() *Server {
	bus := eventbus.New()
	reg := session.NewRegistry(func(userID string) *session.User {
		return session.New(userID, session.Deps{Bus: bus})
	}, bus, nil)
	return New(config.Config{HeartbeatInterval: 0}, Deps{
		Bus:         bus,
		Registry:    reg,
		Settings:    settings.New(nil, nil),
		DebugRoutes: true,
	})
}

func TestServer_HealthRouteIsWired(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestServer_UnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/does-not-exist", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestServer_DebugRouteAbsentWhenDisabled(t *testing.T) {
	bus := eventbus.New()
	reg := session.NewRegistry(func(userID string) *session.User {
		return session.New(userID, session.Deps{Bus: bus})
	}, bus, nil)
	s := New(config.Config{}, Deps{Bus: bus, Registry: reg, Settings: settings.New(nil, nil)})

	req := httptest.NewRequest(http.MethodPost, "/api/debug/kill-session?userId=u1", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestServer_RecoversFromPanic(t *testing.T) {
	s := newTestServer()
	s.router.Handle("/panic", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestServer_DrainMakesHealthUnavailable(t *testing.T) {
	s := newTestServer()
	s.Drain().SetDraining(true)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}
