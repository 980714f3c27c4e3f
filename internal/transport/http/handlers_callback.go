package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"aituki/internal/auth/callback"
	"aituki/internal/auth/models"
)

// CallbackHandler receives provider redirects delivered over HTTP and routes
// them through the callback router.
type CallbackHandler struct {
	router *callback.Router
}

func NewCallbackHandler(router *callback.Router) *CallbackHandler {
	return &CallbackHandler{router: router}
}

func (h *CallbackHandler) Register(router chi.Router) {
	router.Get("/auth/callback", h.handleCallback)
	router.Get("/auth/reset-password", h.handleCallback)
}

type callbackResponse struct {
	Route   string                `json:"route"`
	Reset   *callback.ResetParams `json:"reset,omitempty"`
	Session *models.Session       `json:"session,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// handleCallback dispatches the redirect parameters and reports the resolved
// route. The response status is 200 even on a failed exchange; the redirect
// itself was received and routed, and the failure travels in the body.
func (h *CallbackHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	outcome := h.router.Handle(r.Context(), r.URL.Query())

	resp := callbackResponse{
		Route:   string(outcome.Route),
		Reset:   outcome.Reset,
		Session: outcome.Session,
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
