package middleware

import (
	"context"
	"errors"
	"net/http"

	"merchant-console/internal/services"
	"merchant-console/internal/session"

	"github.com/rs/zerolog"
)

const SessionCookie = "console_session"

// CookieVerifier checks the signature of a session cookie.
type CookieVerifier interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// SessionResolver is the part of session.Manager the middleware needs.
type SessionResolver interface {
	Resume(ctx context.Context, id string) (session.Record, error)
	Touch(ctx context.Context, id string) error
}

// Sessions loads the session named by the cookie, if any, and counts the
// request as activity. Requests without a live session continue without one;
// Guard decides what they may reach.
func Sessions(verifier CookieVerifier, sessions SessionResolver, secure bool, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.ValidateToken(cookie.Value)
			if err != nil {
				logger.Debug().Err(err).Msg("Discarding invalid session cookie")
				ClearSessionCookie(w, secure)
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			rec, err := sessions.Resume(ctx, claims.SessionID)
			if err == nil {
				err = sessions.Touch(ctx, rec.ID)
			}
			if err != nil {
				if !errors.Is(err, session.ErrExpired) && !errors.Is(err, session.ErrNotFound) {
					logger.Error().Err(err).Msg("Failed to load session")
				}
				ClearSessionCookie(w, secure)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithRecord(ctx, rec)))
		})
	}
}

// Guard lets the request through only when the session satisfies q. Every
// refusal is a redirect to the login page.
func Guard(q session.Requirement, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := session.IdentityFromContext(r.Context())
			decision := session.Evaluate(id, ok, q)
			if !decision.Allow {
				logger.Info().
					Str("path", r.URL.Path).
					Str("role", string(id.Role)).
					Str("reason", decision.Reason).
					Msg("Access denied")
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
