// Package main is the entry point for the hubwatch API server.
//
// It loads configuration, wires the refresh pipeline, starts the in-process
// refresh scheduler and serves the read API, the SSE change stream and the
// Prometheus endpoint until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubwatch/internal/api/handlers"
	"hubwatch/internal/app"
	"hubwatch/internal/config"
	"hubwatch/internal/core"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewSecretProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("hubwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	reg := newRegistry()

	p, err := app.Build(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Server.MigrateOnStart {
		if err := p.Prepare(ctx); err != nil {
			return fmt.Errorf("preparing database: %w", err)
		}
	}

	srv, err := newServer(cfg, p, reg, logger)
	if err != nil {
		return err
	}

	runner := p.NewRunner()
	if err := runner.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer runner.Stop()

	return runHTTPServer(srv.HTTPServer(), logger)
}

// newRegistry returns a Prometheus registry with the Go runtime and process
// collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newServer builds the API server over the pipeline's read service.
func newServer(cfg *config.Config, p *app.Pipeline, gatherer prometheus.Gatherer, logger *slog.Logger) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = p.Metrics
	srv.Events = p.Broadcaster
	srv.MetricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	srv.HealthProbes = []core.HealthProbe{
		core.PingProbe{ProbeName: "database", Target: p.Pool},
	}

	hubHandler := handlers.NewHubHandler(p.Service, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, hubHandler.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer serves until a signal arrives or the listener fails, then
// drains in-flight requests. Open event streams are ended by cancelling the
// base context when shutdown begins.
func runHTTPServer(httpServer *http.Server, logger *slog.Logger) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpServer.BaseContext = func(net.Listener) context.Context { return baseCtx }
	httpServer.RegisterOnShutdown(cancelBase)

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
