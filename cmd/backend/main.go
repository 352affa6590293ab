package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	alertimpl "github.com/talkcircle/sentinel/external/alert"
	cacheimpl "github.com/talkcircle/sentinel/external/cache"
	configloader "github.com/talkcircle/sentinel/external/config"
	"github.com/talkcircle/sentinel/external/httpapi"
	identityimpl "github.com/talkcircle/sentinel/external/identity"
	providerimpl "github.com/talkcircle/sentinel/external/provider"
	repositoryimpl "github.com/talkcircle/sentinel/external/repository"
	webhookimpl "github.com/talkcircle/sentinel/external/webhook"
	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/session"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching http server")
	runServer(injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	cacheimpl.RegisterDI(injector)
	identityimpl.RegisterDI(injector)
	providerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	alertimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func runServer(injector do.Injector) {
	srv, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		slog.Error("failed to resolve http server", "error", err)
		os.Exit(1)
	}
	hub, err := do.Invoke[*alert.Hub](injector)
	if err != nil {
		slog.Error("failed to resolve alert hub", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		if err := srv.Listen(); err != nil {
			slog.Error("http listener failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	if err := srv.Shutdown(); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	hub.Close()
}
