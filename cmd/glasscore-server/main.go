package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/genai"

	"github.com/glasscore/glasscore/pkg/core/agent"
	"github.com/glasscore/glasscore/pkg/core/eventbus"
	"github.com/glasscore/glasscore/pkg/core/lifecycle"
	"github.com/glasscore/glasscore/pkg/core/session"
	"github.com/glasscore/glasscore/pkg/core/settings"
	"github.com/glasscore/glasscore/pkg/gateway/config"
	gatewayserver "github.com/glasscore/glasscore/pkg/gateway/server"
	"github.com/glasscore/glasscore/pkg/store"
	"github.com/glasscore/glasscore/pkg/store/postgres"
)

// serverDeps is the injectable seam for tests: every collaborator runMain
// actually calls through an indirection so main_test.go can substitute
// fakes without touching global state.
type serverDeps struct {
	loadConfig   func() (config.Config, error)
	newAgent     func(ctx context.Context, cfg config.Config) (*agent.Adapter, error)
	newDurable   func(ctx context.Context, cfg config.Config) (store.Store, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServerDeps() serverDeps {
	return serverDeps{
		loadConfig:   config.Load,
		newAgent:     newAgentFromEnv,
		newDurable:   newDurableFromConfig,
		signalNotify: signal.Notify,
		signalStop:   signal.Stop,
	}
}

func newAgentFromEnv(ctx context.Context, cfg config.Config) (*agent.Adapter, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return agent.New(client, agent.WithDeadline(cfg.AgentDeadline)), nil
}

func newDurableFromConfig(ctx context.Context, cfg config.Config) (store.Store, error) {
	if !cfg.HasDatabase() {
		return nil, nil
	}
	if err := postgres.Migrate(cfg.DatabaseURI); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func run(ctx context.Context, logger *slog.Logger, deps serverDeps) error {
	if deps.loadConfig == nil || deps.newAgent == nil || deps.newDurable == nil {
		return errors.New("missing required dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("starting glasscore", cfg.LogFields()...)

	agentAdapter, err := deps.newAgent(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	durable, err := deps.newDurable(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build durable store: %w", err)
	}
	if durable != nil {
		defer durable.Close()
	}

	bus := eventbus.New()
	settingsStore := settings.New(durable, logger)

	registry := session.NewRegistry(func(userID string) *session.User {
		return session.New(userID, session.Deps{
			Bus:           bus,
			Agent:         agentAdapter,
			Durable:       durable,
			Settings:      settingsStore,
			SilenceWindow: cfg.SilenceWindow,
			Logger:        logger,
		})
	}, bus, logger)
	registry.SetGracePeriod(cfg.GracePeriod)

	lc := lifecycle.New(registry, bus, cfg.WelcomeSoundURL, logger)

	gw := gatewayserver.New(cfg, gatewayserver.Deps{
		Bus:       bus,
		Registry:  registry,
		Settings:  settingsStore,
		Lifecycle: lc,
		Logger:    logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	listenErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	gw.Drain().SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("glasscore stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps serverDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "glasscore-server: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultServerDeps()))
}
