// Package httptransport is the thin HTTP layer over the auth subsystem. It
// delegates to domain services without embedding business logic so transport
// concerns remain isolated.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aituki/internal/auth/guard"
	dErrors "aituki/pkg/domain-errors"
	"aituki/pkg/requestcontext"
)

// NewRouter wires all public endpoints.
func NewRouter(auth *AuthHandler, cb *CallbackHandler, sessions SessionSource, gatherer prometheus.Gatherer, log *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(requestLogger(log))

	auth.Register(router)
	cb.Register(router)
	router.Get("/auth/guard", handleGuard(sessions))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return router
}

// SessionSource reports whether a session is currently established.
type SessionSource interface {
	Authenticated() bool
}

// handleGuard answers "where does navigation to this screen belong" for the
// app shell. The screen path arrives as a query parameter; loading=true marks
// the window before the initial session restore resolves.
func handleGuard(sessions SessionSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "path query parameter is required"))
			return
		}

		decision := guard.Evaluate(guard.State{
			Loading:       r.URL.Query().Get("loading") == "true",
			Authenticated: sessions.Authenticated(),
			Section:       guard.SectionOf(path),
		})
		writeJSON(w, http.StatusOK, map[string]string{
			"action": string(decision.Action),
			"target": decision.Target,
		})
	}
}

// requestLogger tags every request with an ID and logs it. The ID travels in
// the context so domain code can stamp it on audit events and log lines.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			ctx := requestcontext.WithRequestID(r.Context(), requestID)
			log.Debug("request", "request_id", requestID, "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(dErrors.CodeOf(err)), map[string]string{
		"error":   string(dErrors.CodeOf(err)),
		"message": err.Error(),
	})
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeExpired, dErrors.CodeProviderRejection:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeCancelled:
		return http.StatusConflict
	case dErrors.CodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
