package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"aituki/internal/audit"
	"aituki/internal/auth/callback"
	"aituki/internal/auth/metrics"
	"aituki/internal/auth/models"
	"aituki/internal/auth/oauth"
	"aituki/internal/auth/provider"
	"aituki/internal/auth/service"
	"aituki/internal/auth/session"
	"aituki/internal/platform/config"
	"aituki/internal/platform/httpserver"
	"aituki/internal/platform/logger"
	"aituki/internal/platform/redis"
	httptransport "aituki/internal/transport/http"
)

const (
	refreshInterval = time.Minute
	refreshWindow   = 5 * time.Minute
	auditQueueSize  = 128
	shutdownTimeout = 10 * time.Second
)

// main wires high-level dependencies, exposes the HTTP surface, and keeps the
// process lifecycle small. Business logic lives in the internal packages.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	store, closeStore, err := sessionStore(cfg)
	if err != nil {
		log.Error("session store unavailable", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	manager := session.NewManager(store, log)
	manager.Subscribe(func(event models.AuthEvent) {
		m.RecordSessionEvent(string(event.Type))
	})
	if _, err := manager.Load(context.Background()); err != nil {
		// A fresh sign-in recovers from a broken persisted session.
		log.Warn("session restore failed, starting signed out", "error", err)
	}

	prov, err := provider.NewHTTP(cfg.Provider, cfg.OAuth.Providers, log)
	if err != nil {
		log.Error("provider client invalid", "error", err)
		os.Exit(1)
	}

	queue := audit.NewQueue(audit.NewMemoryStore(), auditQueueSize)
	trail := audit.NewPublisher(queue)
	svc := service.New(prov, manager, cfg.AppScheme, m, trail, log)

	browser := oauth.NewLoopback(cfg.OAuth.LoopbackAddr, openBrowser, log)
	coordinator := oauth.New(prov, svc, browser, browser.RedirectTo(), cfg.OAuth.FlowTimeout, m, trail, log)

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(svc, coordinator, manager),
		httptransport.NewCallbackHandler(callback.NewRouter(svc, m, log)),
		manager,
		registry,
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return ignoreCancel(queue.Worker().Run(ctx))
	})
	group.Go(func() error {
		refresher := session.NewRefresher(manager, func(ctx context.Context) error {
			_, err := svc.Refresh(ctx)
			return err
		}, refreshInterval, refreshWindow, log)
		return ignoreCancel(refresher.Run(ctx))
	})
	group.Go(func() error {
		log.Info("starting authctl", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// sessionStore picks Redis-backed persistence when configured, with an
// in-memory fallback for local runs.
func sessionStore(cfg config.Config) (session.Store, func(), error) {
	client, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return session.NewMemory(), func() {}, nil
	}
	return session.NewRedis(client), func() { _ = client.Close() }, nil
}

// openBrowser hands the authorization URL to the platform's default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// ignoreCancel treats a context-cancellation return as a clean worker exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
