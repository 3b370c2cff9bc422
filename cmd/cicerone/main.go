// Command cicerone runs the voice tour guide server: a live speech session
// against the Gemini agent, an HTTP control plane, and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cicerone-ai/cicerone/internal/config"
	"github.com/cicerone-ai/cicerone/internal/geo"
	"github.com/cicerone-ai/cicerone/internal/health"
	"github.com/cicerone-ai/cicerone/internal/observe"
	"github.com/cicerone-ai/cicerone/internal/persona"
	"github.com/cicerone-ai/cicerone/internal/server"
	"github.com/cicerone-ai/cicerone/internal/session"
	"github.com/cicerone-ai/cicerone/pkg/audio"
	"github.com/cicerone-ai/cicerone/pkg/live/gemini"
)

// version is injected at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "cicerone: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "cicerone: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("cicerone starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"city", cfg.Guide.City,
		"persona", cfg.Guide.Persona,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "cicerone",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	catalog := persona.NewCatalog()
	if cfg.Personas.File != "" {
		if err := catalog.LoadFile(cfg.Personas.File); err != nil {
			slog.Error("failed to load personas", "file", cfg.Personas.File, "err", err)
			return 1
		}
		slog.Info("personas loaded", "file", cfg.Personas.File, "count", len(catalog.List()))
	}

	var position geo.Provider = geo.None{}
	if cfg.Geo != nil {
		position = geo.Static{Location: geo.Location{Lat: cfg.Geo.Lat, Lng: cfg.Geo.Lng}}
	}

	var providerOpts []gemini.Option
	if cfg.Live.Model != "" {
		providerOpts = append(providerOpts, gemini.WithModel(cfg.Live.Model))
	}
	if cfg.Live.BaseURL != "" {
		providerOpts = append(providerOpts, gemini.WithBaseURL(cfg.Live.BaseURL))
	}
	provider := gemini.New(cfg.Live.APIKey, providerOpts...)

	openInput, openOutput := deviceOpeners(cfg.Audio)

	ctrl, err := session.NewController(session.Config{
		Provider:   provider,
		OpenInput:  openInput,
		OpenOutput: openOutput,
		Catalog:    catalog,
		PersonaID:  cfg.Guide.Persona,
		City:       cfg.Guide.City,
		Prefs: persona.Preferences{
			TimeBudget: cfg.Guide.Preferences.TimeBudget,
			Mobility:   cfg.Guide.Preferences.Mobility,
			Budget:     cfg.Guide.Preferences.Budget,
		},
		Geo:    position,
		Logger: logger,
	})
	if err != nil {
		slog.Error("failed to initialise session controller", "err", err)
		return 1
	}

	mux := http.NewServeMux()
	server.New(ctrl, catalog, logger).Register(mux)
	healthChecks(cfg, catalog).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("control server listening", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping")

		if err := ctrl.Stop(); err != nil {
			slog.Warn("session stop error", "err", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// deviceOpeners returns the per-session device factories for the configured
// audio backend.
func deviceOpeners(cfg config.AudioConfig) (func() (audio.InputDevice, error), func() (audio.OutputDevice, error)) {
	// Only the null backend exists today; the config layer rejects anything
	// else before we get here.
	openInput := func() (audio.InputDevice, error) {
		return audio.NewNullInput(cfg.FrameSize), nil
	}
	openOutput := func() (audio.OutputDevice, error) {
		return audio.NewNullOutput(), nil
	}
	return openInput, openOutput
}

// healthChecks wires the readiness probes.
func healthChecks(cfg *config.Config, catalog *persona.Catalog) *health.Handler {
	return health.New(
		health.Checker{
			Name: "personas",
			Check: func(context.Context) error {
				if len(catalog.List()) == 0 {
					return errors.New("no personas available")
				}
				return nil
			},
		},
		health.Checker{
			Name: "agent",
			Check: func(context.Context) error {
				if cfg.Live.APIKey == "" {
					return errors.New("no agent API key configured")
				}
				return nil
			},
		},
	)
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
