package handlers

import (
	"context"
	"net/http"

	"merchant-console/internal/middleware"
	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	responder
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService, sessions *session.Manager, secureCookie bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		responder:   newResponder(sessions, secureCookie, logger),
		authService: authService,
	}
}

type loginResponse struct {
	Role    models.UserRole `json:"role"`
	Landing string          `json:"redirect"`
	Agent   models.Agent    `json:"agent"`
}

type sessionResponse struct {
	Role               models.UserRole `json:"role"`
	IdleTimeoutSeconds int             `json:"idleTimeoutSeconds"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Échec de la connexion.")
		return
	}
	if h.gone(r) {
		// The browser will never see the cookie.
		h.sessions.End(context.WithoutCancel(r.Context()), res.Session.ID, session.ReasonLogout)
		return
	}

	middleware.SetSessionCookie(w, res.Cookie, h.secureCookie)
	h.respondWithJSON(w, http.StatusOK, loginResponse{
		Role:    res.Role,
		Landing: res.Landing,
		Agent:   res.Agent,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(r.Context())
	middleware.ClearSessionCookie(w, h.secureCookie)
	h.respondWithJSON(w, http.StatusOK, map[string]string{"redirect": session.LoginPath})
}

// Activity is the browser heartbeat. The session middleware has already
// pushed the idle deadline back by the time it runs.
func (h *AuthHandler) Activity(w http.ResponseWriter, r *http.Request) {
	h.Me(w, r)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := session.IdentityFromContext(r.Context())
	h.ok(w, r, sessionResponse{
		Role:               id.Role,
		IdleTimeoutSeconds: int(h.sessions.IdleTimeout().Seconds()),
	})
}
