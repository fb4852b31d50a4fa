package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
)

func TestSpeakHandler_PassesTextThroughToSession(t *testing.T) {
	bus := eventbus.New()
	reg := newTestRegistry(bus)
	hw := &fakeHW{}
	reg.GetOrCreate("u1").SetAppSession(hw)

	h := SpeakHandler{ActionDeps{Registry: reg}}
	req := httptest.NewRequest(http.MethodPost, "/api/speak", strings.NewReader(`{"userId":"u1","text":"hello"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if len(hw.spoken) != 1 || hw.spoken[0] != "hello" {
		t.Fatalf("spoken = %v", hw.spoken)
	}
}

func TestSpeakHandler_UnavailableWithoutSession(t *testing.T) {
	bus := eventbus.New()
	reg := newTestRegistry(bus)

	h := SpeakHandler{ActionDeps{Registry: reg}}
	req := httptest.NewRequest(http.MethodPost, "/api/speak", strings.NewReader(`{"userId":"u1","text":"hello"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSpeakHandler_RejectsMissingFields(t *testing.T) {
	bus := eventbus.New()
	reg := newTestRegistry(bus)

	h := SpeakHandler{ActionDeps{Registry: reg}}
	req := httptest.NewRequest(http.MethodPost, "/api/speak", strings.NewReader(`{"userId":"u1"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestStopAudioHandler_CallsSessionStopAudio(t *testing.T) {
	bus := eventbus.New()
	reg := newTestRegistry(bus)
	hw := &fakeHW{}
	reg.GetOrCreate("u1").SetAppSession(hw)

	h := StopAudioHandler{ActionDeps{Registry: reg}}
	req := httptest.NewRequest(http.MethodPost, "/api/stop-audio", strings.NewReader(`{"userId":"u1"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if hw.stopped != 1 {
		t.Fatalf("stopped = %d", hw.stopped)
	}
}

func TestThemePreferenceHandler_RoundTrips(t *testing.T) {
	bus := eventbus.New()
	reg := newTestRegistry(bus)

	h := ThemePreferenceHandler{ActionDeps{Registry: reg, Settings: newTestSettingsStore()}}

	postReq := httptest.NewRequest(http.MethodPost, "/api/theme-preference", strings.NewReader(`{"userId":"u1","theme":"dark"}`))
	postRR := httptest.NewRecorder()
	h.ServeHTTP(postRR, postReq)
	if postRR.Code != http.StatusOK {
		t.Fatalf("post status = %d body = %s", postRR.Code, postRR.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/theme-preference?userId=u1", nil)
	getRR := httptest.NewRecorder()
	h.ServeHTTP(getRR, getReq)
	if !strings.Contains(getRR.Body.String(), `"dark"`) {
		t.Fatalf("body = %s", getRR.Body.String())
	}
}
