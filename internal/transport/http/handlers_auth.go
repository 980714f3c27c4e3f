package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aituki/internal/auth/models"
	dErrors "aituki/pkg/domain-errors"
)

// AuthService is the slice of the credential exchanger the auth endpoints
// need.
type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.Session, error)
	ResetPassword(ctx context.Context, email string) error
	Refresh(ctx context.Context) (*models.Session, error)
	CurrentUser(ctx context.Context) (models.User, error)
	SignOut(ctx context.Context) error
}

// OAuthStarter runs one interactive third-party sign-in flow to completion.
type OAuthStarter interface {
	SignIn(ctx context.Context, provider string) (*models.Session, error)
}

// SessionReader exposes the current session for the session endpoint.
type SessionReader interface {
	Current() *models.Session
}

type AuthHandler struct {
	auth     AuthService
	oauth    OAuthStarter
	sessions SessionReader
}

func NewAuthHandler(auth AuthService, oauth OAuthStarter, sessions SessionReader) *AuthHandler {
	return &AuthHandler{auth: auth, oauth: oauth, sessions: sessions}
}

func (h *AuthHandler) Register(router chi.Router) {
	router.Post("/auth/sign-in", h.handleSignIn)
	router.Post("/auth/sign-up", h.handleSignUp)
	router.Post("/auth/sign-out", h.handleSignOut)
	router.Post("/auth/reset-password", h.handleResetPassword)
	router.Post("/auth/refresh", h.handleRefresh)
	router.Post("/auth/oauth/{provider}", h.handleOAuth)
	router.Get("/auth/session", h.handleSession)
	router.Get("/auth/user", h.handleUser)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session *models.Session `json:"session"`
	// Pending is true when sign-up succeeded but the account still awaits
	// email confirmation, so no session exists yet.
	Pending bool `json:"pending,omitempty"`
}

func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	sess, err := h.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	sess, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, Pending: sess == nil})
}

func (h *AuthHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reset_email_sent"})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// handleOAuth blocks for the whole interactive browser flow. The request
// context bounds it, on top of the coordinator's own flow timeout.
func (h *AuthHandler) handleOAuth(w http.ResponseWriter, r *http.Request) {
	sess, err := h.oauth.SignIn(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *AuthHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Current()
	if sess == nil {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no active session"))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *AuthHandler) handleUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.User{"user": user})
}
