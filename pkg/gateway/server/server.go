// Package server assembles the gateway's HTTP surface: route registration,
// middleware chain, and graceful draining.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/lifecycle"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/core/settings"
	"github.com/glasscore/glasscore/pkg/gateway/config"
	"github.com/glasscore/glasscore/pkg/gateway/drain"
	"github.com/glasscore/glasscore/pkg/gateway/handlers"
	"github.com/glasscore/glasscore/pkg/gateway/mw"
)

// Server owns the gateway's router and the collaborators its handlers need.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	router *mux.Router

	bus       *eventbus.Bus
	registry  *session.Registry
	settings  *settings.Store
	drain     *drain.Flag
	lifecycle *lifecycle.Controller

	debugRoutes bool
}

// Deps bundles the process-wide collaborators the gateway's routes dispatch
// into. DebugRoutes gates the dev-only kill-session endpoint. Lifecycle is
// the controller that turns a newly upgraded wearable connection into a
// User's attached hardware.Session; it is nil only in tests that never
// exercise the websocket route.
type Deps struct {
	Bus         *eventbus.Bus
	Registry    *session.Registry
	Settings    *settings.Store
	Drain       *drain.Flag
	Lifecycle   *lifecycle.Controller
	DebugRoutes bool
	Logger      *slog.Logger
}

// New builds a Server and registers every route.
func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Drain == nil {
		deps.Drain = &drain.Flag{}
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		router:      mux.NewRouter(),
		bus:         deps.Bus,
		registry:    deps.Registry,
		settings:    deps.Settings,
		drain:       deps.Drain,
		lifecycle:   deps.Lifecycle,
		debugRoutes: deps.DebugRoutes,
	}

	s.routes(cfg)
	return s
}

// Drain exposes the server's draining flag so main can flip it before
// initiating a graceful shutdown.
func (s *Server) Drain() *drain.Flag { return s.drain }

func (s *Server) routes(cfg config.Config) {
	streamDeps := handlers.StreamDeps{
		Bus:               s.bus,
		Registry:          s.registry,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Logger:            s.logger,
	}
	actionDeps := handlers.ActionDeps{
		Registry: s.registry,
		Settings: s.settings,
		Logger:   s.logger,
	}

	s.router.Handle("/api/health", handlers.HealthHandler{Drain: s.drain}).Methods(http.MethodGet)

	s.router.Handle("/api/wearable/connect", handlers.WearableHandler{
		Lifecycle: s.lifecycle,
		Drain:     s.drain,
		Logger:    s.logger,
	}).Methods(http.MethodGet)

	s.router.Handle("/api/chat/stream", handlers.ChatStreamHandler{StreamDeps: streamDeps}).Methods(http.MethodGet)
	s.router.Handle("/api/transcription-stream", handlers.TranscriptionStreamHandler{StreamDeps: streamDeps}).Methods(http.MethodGet)
	s.router.Handle("/api/photo-stream", handlers.PhotoStreamHandler{StreamDeps: streamDeps}).Methods(http.MethodGet)

	s.router.Handle("/api/speak", handlers.SpeakHandler{ActionDeps: actionDeps}).Methods(http.MethodPost)
	s.router.Handle("/api/stop-audio", handlers.StopAudioHandler{ActionDeps: actionDeps}).Methods(http.MethodPost)
	s.router.Handle("/api/theme-preference", handlers.ThemePreferenceHandler{ActionDeps: actionDeps}).Methods(http.MethodGet, http.MethodPost)

	s.router.Handle("/api/settings", handlers.SettingsHandler{Settings: s.settings}).Methods(http.MethodGet, http.MethodPatch)

	s.router.Handle("/api/latest-photo", handlers.LatestPhotoHandler{Registry: s.registry}).Methods(http.MethodGet)
	s.router.Handle("/api/photo/{requestId}", handlers.PhotoByIDHandler{Registry: s.registry}).Methods(http.MethodGet)
	s.router.Handle("/api/photo-base64/{requestId}", handlers.PhotoBase64Handler{Registry: s.registry}).Methods(http.MethodGet)

	if s.debugRoutes {
		s.router.Handle("/api/debug/kill-session", handlers.KillSessionHandler{Registry: s.registry}).Methods(http.MethodPost)
	}
}

// Handler returns the fully wrapped HTTP handler: route dispatch plus the
// request-id, panic-recovery, and access-log middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
