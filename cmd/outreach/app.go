package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outreach/pkg/config"
	"outreach/pkg/conversation"
	"outreach/pkg/llm/middleware/metrics"
	"outreach/pkg/logx"
	"outreach/pkg/providers"
	"outreach/pkg/session"
	"outreach/pkg/verify"
	"outreach/pkg/webui"
)

// app holds the wired components shared by every mode.
type app struct {
	cfg        *config.Config
	creds      *config.Credentials
	registry   *prometheus.Registry
	controller *conversation.Controller
	verifier   *verify.Verifier
	envFile    *config.EnvFile
	logger     *logx.Logger
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	return wire(cfg, creds), nil
}

// wire builds the component graph from loaded configuration.
func wire(cfg *config.Config, creds *config.Credentials, factoryOpts ...providers.FactoryOption) *app {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheusRecorder(registry)

	factory := providers.NewFactory(creds, cfg.Providers, recorder, factoryOpts...)
	chain := providers.NewChain(factory, recorder)

	envFile := config.NewEnvFile(cfg.EnvFile)
	verifier := verify.New(creds, envFile,
		verify.WithProbeTimeout(cfg.Providers.ProbeTimeout),
		verify.WithRecorder(recorder),
		verify.WithCircuits(factory),
	)

	return &app{
		cfg:        cfg,
		creds:      creds,
		registry:   registry,
		controller: conversation.NewController(chain),
		verifier:   verifier,
		envFile:    envFile,
		logger:     logx.NewLogger("main"),
	}
}

// openSessions opens the configured session backend.
func (a *app) openSessions() (session.Store, error) {
	switch a.cfg.Session.Backend {
	case config.SessionBackendSQLite:
		store, err := session.OpenSQLite(a.cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return store, nil
	default:
		store, err := session.NewMemoryStore(a.cfg.Session.MaxSessions)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// serve runs the web server until ctx ends.
func (a *app) serve(ctx context.Context) error {
	store, err := a.openSessions()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("failed to close session store: %v", err)
		}
	}()

	snap := a.creds.Snapshot()
	if snap.DeepSeekKey == "" && snap.GroqKey == "" {
		a.logger.Warn("no DeepSeek or Groq key configured; emails will use the offline template until keys are added")
	}

	server := webui.NewServer(a.controller, store, a.verifier, a.metricsHandler())
	errCh := server.StartServer(ctx, a.cfg.Addr)
	fmt.Printf("✅ outreach listening on %s\n", a.cfg.Addr)

	select {
	case <-ctx.Done():
		// Wait for the listener to close after shutdown.
		if err, ok := <-errCh; ok {
			return err
		}
		return nil
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("web server stopped: %w", err)
		}
		return nil
	}
}
