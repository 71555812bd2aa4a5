package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"merchant-console/internal/gateway"
	"merchant-console/internal/merchant"
	"merchant-console/internal/middleware"
	"merchant-console/internal/models"
	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

// responder holds what every handler needs to answer: logging, the session
// manager for 401 cleanup, and the cookie policy.
type responder struct {
	logger       zerolog.Logger
	sessions     *session.Manager
	secureCookie bool
}

func newResponder(sessions *session.Manager, secureCookie bool, logger zerolog.Logger) responder {
	return responder{logger: logger, sessions: sessions, secureCookie: secureCookie}
}

func (h responder) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.logger
}

// gone reports whether the client went away; nothing is written then.
func (h responder) gone(r *http.Request) bool {
	if err := r.Context().Err(); err != nil {
		h.log(r).Debug().Err(err).Str("path", r.URL.Path).Msg("Client gone, dropping response")
		return true
	}
	return false
}

func (h responder) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(middleware.ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h responder) ok(w http.ResponseWriter, r *http.Request, payload interface{}) {
	if h.gone(r) {
		return
	}
	h.respondWithJSON(w, http.StatusOK, payload)
}

// signOut clears the identity and sends the browser back to the login page.
func (h responder) signOut(w http.ResponseWriter, r *http.Request, reason string) {
	if h.sessions != nil {
		h.sessions.EndFromContext(r.Context(), reason)
	}
	middleware.ClearSessionCookie(w, h.secureCookie)
	http.Redirect(w, r, session.LoginPath, http.StatusFound)
}

// fail maps err onto a response. fallback is shown when the backend gave no
// message of its own.
func (h responder) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if h.gone(r) {
		return
	}

	var (
		mValidation *merchant.ValidationError
		sValidation *services.ValidationError
		apiErr      *gateway.APIError
	)
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		if _, ok := session.FromContext(r.Context()); !ok {
			h.respondWithError(w, http.StatusUnauthorized, "unauthorized", gateway.UserMessage(err, fallback))
			return
		}
		h.log(r).Info().Err(err).Msg("Backend rejected the session")
		h.signOut(w, r, session.ReasonUnauthorized)
	case errors.As(err, &mValidation):
		h.respondWithError(w, http.StatusBadRequest, "validation_failed", mValidation.Message)
	case errors.As(err, &sValidation):
		h.respondWithError(w, http.StatusBadRequest, "validation_failed", sValidation.Message)
	case errors.Is(err, services.ErrInProgress):
		h.respondWithError(w, http.StatusConflict, "in_progress", "Une opération identique est déjà en cours.")
	case errors.Is(err, merchant.ErrActorNotAllowed):
		h.respondWithError(w, http.StatusForbidden, "forbidden", "Action non autorisée pour votre rôle.")
	case errors.Is(err, merchant.ErrIllegalTransition):
		h.respondWithError(w, http.StatusConflict, "invalid_transition", "Cette action n'est pas possible pour le statut actuel du marchand.")
	case errors.Is(err, models.ErrInconsistentRecord):
		h.log(r).Error().Err(err).Msg("Inconsistent record from backend")
		h.respondWithError(w, http.StatusBadGateway, "inconsistent_record", "Les données reçues du serveur sont incohérentes.")
	case errors.Is(err, gateway.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "not_found", gateway.UserMessage(err, "Aucune donnée trouvée."))
	case errors.Is(err, gateway.ErrNotAFile):
		h.respondWithError(w, http.StatusNotFound, "no_file", gateway.UserMessage(err, fallback))
	case errors.Is(err, gateway.ErrUnreachable):
		h.log(r).Error().Err(err).Msg("Backend unreachable")
		h.respondWithError(w, http.StatusBadGateway, "backend_unreachable", gateway.UserMessage(err, fallback))
	case errors.As(err, &apiErr):
		code := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			code = apiErr.Status
		}
		h.log(r).Warn().Err(err).Int("upstream_status", apiErr.Status).Msg("Backend error")
		h.respondWithError(w, code, "backend_error", gateway.UserMessage(err, fallback))
	default:
		h.log(r).Error().Err(err).Msg("Request failed")
		h.respondWithError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func (h responder) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Corps de requête invalide.")
		return false
	}
	return true
}

// parseDate accepts a calendar day or a full RFC 3339 timestamp.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &services.ValidationError{Field: "date", Message: "Date invalide : " + raw}
}

func dateRange(r *http.Request) (start, end *time.Time, err error) {
	q := r.URL.Query()
	if start, err = parseDate(q.Get("startDate")); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate(q.Get("endDate")); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
