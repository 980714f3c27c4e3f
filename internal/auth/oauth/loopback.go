package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"aituki/internal/auth/models"
)

// OpenURLFunc presents an authorization URL to the user, typically by
// launching the system browser.
type OpenURLFunc func(url string) error

// LoopbackBrowser implements Browser with a local redirect catcher: it
// serves the callback path on a loopback address for the duration of one
// flow and resolves with whatever URL the provider redirected to.
//
// The listen address is fixed (not ephemeral) because the provider only
// redirects to pre-registered URIs.
type LoopbackBrowser struct {
	addr string
	open OpenURLFunc
	log  *slog.Logger
}

// NewLoopback builds a loopback browser listening on addr when a flow is
// active.
func NewLoopback(addr string, open OpenURLFunc, log *slog.Logger) *LoopbackBrowser {
	return &LoopbackBrowser{addr: addr, open: open, log: log}
}

// RedirectTo is the redirect target a flow through this browser must use.
func (b *LoopbackBrowser) RedirectTo() string {
	return "http://" + b.addr + "/auth/callback"
}

func (b *LoopbackBrowser) OpenAuthSession(ctx context.Context, authURL, redirectTo string) models.RedirectResult {
	if !strings.HasPrefix(redirectTo, "http://"+b.addr+"/") {
		return models.RedirectResult{
			Status: models.RedirectFailed,
			Reason: fmt.Sprintf("redirect target %q does not point at the loopback listener", redirectTo),
		}
	}

	listener, err := net.Listen("tcp", b.addr)
	if err != nil {
		return models.RedirectResult{
			Status: models.RedirectFailed,
			Reason: fmt.Sprintf("listen on %s: %v", b.addr, err),
		}
	}

	hits := make(chan string, 1)
	router := chi.NewRouter()
	router.Get("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		select {
		case hits <- "http://" + b.addr + r.URL.String():
		default: // a second hit during the same flow changes nothing
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Signed in. You can close this window.</body></html>")
	})

	server := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	result := b.await(ctx, authURL, hits)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		b.log.Warn("loopback shutdown failed", "error", err)
	}
	if err := group.Wait(); err != nil {
		b.log.Warn("loopback serve failed", "error", err)
	}

	return result
}

func (b *LoopbackBrowser) await(ctx context.Context, authURL string, hits <-chan string) models.RedirectResult {
	if err := b.open(authURL); err != nil {
		return models.RedirectResult{
			Status: models.RedirectFailed,
			Reason: fmt.Sprintf("open browser: %v", err),
		}
	}

	select {
	case <-ctx.Done():
		// Timeout or caller cancellation: the user walked away from the
		// browser without finishing.
		return models.RedirectResult{Status: models.RedirectCancelled}
	case finalURL := <-hits:
		return models.RedirectResult{Status: models.RedirectSuccess, URL: finalURL}
	}
}
